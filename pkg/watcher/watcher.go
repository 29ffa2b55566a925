// Package watcher reports changes to a single file, such as a tech table
// being edited while the server runs.
//
// Events come from fsnotify on the file's directory, so editors that save by
// renaming a temporary file over the original are seen too. When fsnotify
// cannot watch the directory the watcher polls the file's stamp instead.
// Bursts of events are debounced into one change.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is how often a polling watcher stats the file.
const DefaultPollInterval = 2 * time.Second

// ErrFileRemoved is reported when the watched file disappears. Watching
// continues and a recreated file is reported as a change.
var ErrFileRemoved = errors.New("watched file was removed")

// Mode is how a watcher learns about changes.
type Mode string

const (
	ModeNotify Mode = "fsnotify"
	ModePoll   Mode = "poll"
)

// Config configures a Watcher. The zero value is usable.
type Config struct {
	// Debounce is the quiet period before a change is reported.
	Debounce time.Duration

	// PollInterval applies in ModePoll.
	PollInterval time.Duration

	// Poll forces ModePoll.
	Poll bool

	// OnChange runs after each debounced change.
	OnChange func()

	// OnError receives watch errors, including ErrFileRemoved.
	OnError func(error)
}

// Watcher watches one file. Create it with New and drive it with Run.
type Watcher struct {
	path     string
	cfg      Config
	mode     Mode
	notify   *fsnotify.Watcher
	debounce *Debouncer
	changed  chan struct{}
}

// New resolves path and prepares a watcher for it. The file need not exist.
func New(path string, cfg Config) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.OnChange == nil {
		cfg.OnChange = func() {}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error) {}
	}

	w := &Watcher{
		path:     abs,
		cfg:      cfg,
		mode:     ModePoll,
		debounce: NewDebouncer(cfg.Debounce),
		changed:  make(chan struct{}, 1),
	}
	if !cfg.Poll {
		if n, err := fsnotify.NewWatcher(); err == nil {
			if err := n.Add(filepath.Dir(abs)); err == nil {
				w.notify, w.mode = n, ModeNotify
			} else {
				n.Close()
			}
		}
	}
	return w, nil
}

// Path returns the absolute watched path.
func (w *Watcher) Path() string { return w.path }

// Mode reports whether the watcher uses fsnotify or polling.
func (w *Watcher) Mode() Mode { return w.mode }

// Changed receives once per reported change. Sends never block; a change
// not yet received absorbs later ones.
func (w *Watcher) Changed() <-chan struct{} { return w.changed }

// Run watches until ctx is done and returns ctx's error. A pending
// debounced change is dropped. Run may be called once.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debounce.Cancel()
	if w.notify != nil {
		defer w.notify.Close()
		w.runNotify(ctx)
	} else {
		w.runPoll(ctx)
	}
	return ctx.Err()
}

func (w *Watcher) runNotify(ctx context.Context) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.notify.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Has(fsnotify.Remove) {
				w.cfg.OnError(ErrFileRemoved)
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.debounce.Trigger(w.report)
			}
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.cfg.OnError(err)
		}
	}
}

// stamp identifies a version of the file for polling. The zero stamp means
// the file is absent.
type stamp struct {
	mod  time.Time
	size int64
}

func statStamp(path string) (stamp, error) {
	info, err := os.Stat(path)
	if err != nil {
		return stamp{}, err
	}
	return stamp{mod: info.ModTime(), size: info.Size()}, nil
}

func (w *Watcher) runPoll(ctx context.Context) {
	last, err := statStamp(w.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.cfg.OnError(err)
	}

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur, err := statStamp(w.path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			if last != (stamp{}) {
				w.cfg.OnError(ErrFileRemoved)
			}
		case err != nil:
			w.cfg.OnError(err)
			continue
		case cur != last:
			w.debounce.Trigger(w.report)
		}
		last = cur
	}
}

func (w *Watcher) report() {
	w.cfg.OnChange()
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
