package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// spinner animates a status message on a terminal line until the work it
// tracks finishes or ctx is cancelled.
type spinner struct {
	w      io.Writer
	ctx    context.Context
	parent context.Context

	mu      sync.Mutex
	message string
	width   int

	stop    context.CancelFunc
	stopped chan struct{}
	once    sync.Once
}

// startSpinner starts animating message on w.
func startSpinner(ctx context.Context, w io.Writer, message string) *spinner {
	inner, stop := context.WithCancel(ctx)
	s := &spinner{
		w:       w,
		ctx:     inner,
		parent:  ctx,
		message: message,
		stop:    stop,
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *spinner) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-s.ctx.Done():
			s.clear()
			return
		case <-ticker.C:
			s.mu.Lock()
			frame := styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)])
			line := fmt.Sprintf("\r%s %s", frame, StyleDim.Render(s.message))
			s.width = max(s.width, len(s.message)+2)
			fmt.Fprint(s.w, line)
			s.mu.Unlock()
		}
	}
}

// update replaces the message shown next to the spinner.
func (s *spinner) update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// finish stops the animation and clears the line. It is safe to call more
// than once.
func (s *spinner) finish() {
	s.once.Do(func() {
		s.stop()
		<-s.stopped
	})
}

// cancelled reports whether the work was interrupted by cancellation of
// the context the spinner was started with.
func (s *spinner) cancelled() bool {
	return s.parent.Err() != nil
}

func (s *spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+2))
	}
}
