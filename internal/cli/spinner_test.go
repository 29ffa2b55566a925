package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine and the test
// to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerShowsMessage(t *testing.T) {
	var out syncBuffer
	sp := startSpinner(context.Background(), &out, "Laying out 3 techs...")
	time.Sleep(3 * spinnerInterval)
	sp.update("Rendering svg...")
	time.Sleep(3 * spinnerInterval)
	sp.finish()

	got := out.String()
	for _, want := range []string{"Laying out 3 techs...", "Rendering svg..."} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if !strings.HasSuffix(got, "\r") {
		t.Error("finish should clear the line")
	}
	if sp.cancelled() {
		t.Error("finish is not a cancellation")
	}
}

func TestSpinnerFinishIsIdempotent(t *testing.T) {
	var out syncBuffer
	sp := startSpinner(context.Background(), &out, "Loading...")
	sp.finish()
	sp.finish()
}

func TestSpinnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var out syncBuffer
	sp := startSpinner(ctx, &out, "Loading...")

	cancel()
	sp.finish()
	if !sp.cancelled() {
		t.Error("cancelled() = false after the parent context was cancelled")
	}
}

func TestSpinnerQuietWhenFast(t *testing.T) {
	var out syncBuffer
	sp := startSpinner(context.Background(), &out, "Loading...")
	sp.finish()
	if got := out.String(); got != "" && !strings.Contains(got, "Loading") {
		t.Errorf("unexpected output %q", got)
	}
}
