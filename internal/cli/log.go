// Package cli implements the techtree command-line interface.
//
// The commands lay out and render a tech table, validate it, browse it in a
// terminal viewer, manage research saves and serve the HTTP API. The CLI is
// built using cobra and logs through charmbracelet/log.
//
// # Commands
//
//   - layout: Compute the grid layout and write it as JSON
//   - render: Generate SVG, PNG, DOT or Graphviz output
//   - validate: Report unknown requirements and cycles
//   - view: Browse the tree in the terminal
//   - save: Create, inspect and advance research saves
//   - serve: Run the HTTP API
//   - cache: Manage the layout and artifact cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing to w at level, with timestamps like
// "14:32:01.45".
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// stage times one step of a command and logs its outcome with structured
// fields.
type stage struct {
	logger *log.Logger
	name   string
	start  time.Time
}

func startStage(l *log.Logger, name string) stage {
	l.Debug("Starting "+name)
	return stage{logger: l, name: name, start: time.Now()}
}

// done logs msg at info level with the stage's elapsed time appended to
// keyvals.
func (s stage) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "duration", time.Since(s.start).Round(time.Millisecond))
	s.logger.Info(msg, keyvals...)
}

// ctxKey is the type for context keys used in this package.
// Using a distinct type prevents collisions with other packages.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
// The logger can be retrieved later with loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
// This ensures commands always have a valid logger even if context setup fails.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
