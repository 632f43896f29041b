package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jettison/panopticon/schema"
)

// Watcher reloads a schema file whenever it changes.
type Watcher struct {
	path   string
	opts   []schema.Option
	w      *fsnotify.Watcher
	log    *slog.Logger
	settle time.Duration
}

type WatchOption func(*Watcher)

func WithWatchLogger(l *slog.Logger) WatchOption {
	return func(w *Watcher) { w.log = l }
}

// WithSettle sets how long the file must stay unchanged before it is
// reloaded.
func WithSettle(d time.Duration) WatchOption {
	return func(w *Watcher) { w.settle = d }
}

// WithSchemaOptions sets the options used to load the schema.
func WithSchemaOptions(opts ...schema.Option) WatchOption {
	return func(w *Watcher) { w.opts = opts }
}

// NewWatcher watches the schema file at path.  The directory holding it
// is watched so that editors replacing the file are noticed.
func NewWatcher(path string, opts ...WatchOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", path, err)
	}
	w := &Watcher{path: abs, w: fw, log: slog.Default(), settle: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run calls fn with each successfully reloaded schema until ctx is done.
// Schemas which fail to load are logged and skipped.
func (w *Watcher) Run(ctx context.Context, fn func(*schema.Registry)) error {
	defer w.w.Close()
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.settle)
		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("schema watcher error", "error", err)
		case <-timer.C:
			reg, err := schema.LoadFile(w.path, w.opts...)
			if err != nil {
				w.log.Error("schema reload failed", "path", w.path, "error", err)
				continue
			}
			w.log.Info("schema changed", "path", w.path, "version", reg.Version())
			fn(reg)
		}
	}
}
