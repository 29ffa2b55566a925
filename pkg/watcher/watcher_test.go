package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	for range 10 {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 callback invocation, got %d", n)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not run after Cancel")
	}
}

func TestDebouncerDefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func waitChanged(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Changed():
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

// start runs w until the test ends.
func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	})
}

func TestWatcherDetectsFileChange(t *testing.T) {
	tests := []struct {
		poll bool
		mode Mode
	}{
		{poll: false, mode: ModeNotify},
		{poll: true, mode: ModePoll},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "techs.toml")
			if err := os.WriteFile(path, []byte("initial"), 0o644); err != nil {
				t.Fatal(err)
			}

			var calls atomic.Int32
			w, err := New(path, Config{
				Debounce:     20 * time.Millisecond,
				PollInterval: 20 * time.Millisecond,
				Poll:         tt.poll,
				OnChange:     func() { calls.Add(1) },
			})
			if err != nil {
				t.Fatal(err)
			}
			if tt.poll && w.Mode() != ModePoll {
				t.Errorf("Mode() = %q, want %q", w.Mode(), ModePoll)
			}
			start(t, w)

			// Let the poller record the initial stamp.
			time.Sleep(50 * time.Millisecond)
			if err := os.WriteFile(path, []byte("changed content"), 0o644); err != nil {
				t.Fatal(err)
			}
			waitChanged(t, w)
			if calls.Load() == 0 {
				t.Error("OnChange not called")
			}
		})
	}
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "techs.toml")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := New(path, Config{Debounce: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if w.Mode() != ModeNotify {
		t.Skip("fsnotify unavailable")
	}
	start(t, w)

	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Changed():
		t.Error("sibling write reported as change")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherPollReportsRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "techs.toml")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 4)
	w, err := New(path, Config{
		PollInterval: 10 * time.Millisecond,
		Poll:         true,
		OnError:      func(err error) { errs <- err },
	})
	if err != nil {
		t.Fatal(err)
	}
	start(t, w)

	time.Sleep(30 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-errs:
		if !errors.Is(err, ErrFileRemoved) {
			t.Errorf("OnError(%v), want ErrFileRemoved", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("removal not reported")
	}
}

func TestWatcherMissingFile(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing.toml"), Config{Poll: true})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(w.Path()) {
		t.Errorf("Path() = %q, want absolute", w.Path())
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}
