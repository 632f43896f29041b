// Package pipeline runs one snapshot source through an engine and into a
// sink.
//
// Snapshots are read concurrently with processing.  When the source
// outpaces the engine, only the newest unprocessed snapshot is kept; the
// ones it supersedes are dropped.  Each snapshot that is processed runs to
// completion before the pipeline checks for cancellation or schema
// reloads.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jettison/panopticon/debug"
	"github.com/jettison/panopticon/decode"
	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/metrics"
	"github.com/jettison/panopticon/schema"
	"github.com/jettison/panopticon/snapshot"
)

// Sink receives the batches of a pipeline in sequence order.
type Sink interface {
	Apply(b *engine.Batch) error
}

type SinkFunc func(*engine.Batch) error

func (f SinkFunc) Apply(b *engine.Batch) error { return f(b) }

// Stats counts what happened to the snapshots of a pipeline.  Unreadable
// counts documents the source could not turn into snapshots.
type Stats struct {
	Processed  uint64
	Dropped    uint64
	Stale      uint64
	Fatal      uint64
	Unreadable uint64
	Reloads    uint64
}

type Pipeline struct {
	src  snapshot.Source
	eng  *engine.Engine
	sink Sink
	log  *slog.Logger
	met  *metrics.Pipeline

	box    mailbox
	reload chan *schema.Registry
	rmu    sync.Mutex

	processed, dropped, stale, fatal, unreadable, reloads atomic.Uint64
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

func WithMetrics(m *metrics.Pipeline) Option {
	return func(p *Pipeline) { p.met = m }
}

func New(src snapshot.Source, eng *engine.Engine, sink Sink, opts ...Option) *Pipeline {
	p := &Pipeline{
		src:    src,
		eng:    eng,
		sink:   sink,
		log:    slog.Default(),
		reload: make(chan *schema.Registry, 1),
	}
	p.box.ready = make(chan struct{}, 1)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Reload asks the pipeline to switch to reg before its next snapshot.  Of
// several pending reloads only the last one is applied.
func (p *Pipeline) Reload(reg *schema.Registry) {
	p.rmu.Lock()
	defer p.rmu.Unlock()
	select {
	case <-p.reload:
	default:
	}
	p.reload <- reg
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Processed:  p.processed.Load(),
		Dropped:    p.dropped.Load(),
		Stale:      p.stale.Load(),
		Fatal:      p.fatal.Load(),
		Unreadable: p.unreadable.Load(),
		Reloads:    p.reloads.Load(),
	}
}

// Run processes snapshots until the source is exhausted or fails, the sink
// fails or ctx is done.  Exhaustion of the source is not an error.
// Documents the source cannot read and snapshots the engine rejects are
// logged and counted without stopping the pipeline.
func (p *Pipeline) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	srcErr := make(chan error, 1)
	go p.read(ctx, srcErr)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case reg := <-p.reload:
			p.doReload(reg)
		case <-p.box.ready:
			if err := p.step(); err != nil {
				return err
			}
		case err := <-srcErr:
			// the last snapshot may still be waiting
			if err := p.step(); err != nil {
				return err
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (p *Pipeline) read(ctx context.Context, errc chan<- error) {
	for {
		s, err := p.src.Next(ctx)
		if snapshot.Skippable(err) && ctx.Err() == nil {
			p.unreadable.Add(1)
			p.log.Error("unreadable snapshot, waiting for the next", "error", err)
			if p.met != nil {
				p.met.ObserveRejected(metrics.ResultFatal)
			}
			continue
		}
		if err != nil {
			errc <- err
			return
		}
		if p.box.put(s) {
			p.dropped.Add(1)
			if p.met != nil {
				p.met.ObserveDropped(1)
			}
			if debug.Pipeline() {
				debug.Logf("pipeline: snapshot superseded by %d\n", s.Seq)
			}
		}
	}
}

func (p *Pipeline) doReload(reg *schema.Registry) {
	err := p.eng.Reset(reg)
	if p.met != nil {
		p.met.ObserveReload(err)
		p.met.ObserveState(p.eng.State())
	}
	if err != nil {
		p.log.Error("schema reload failed, keeping previous schema", "error", err)
		return
	}
	p.reloads.Add(1)
	p.log.Info("schema reloaded", "version", reg.Version())
}

// step processes the snapshot in the mailbox, if any.
func (p *Pipeline) step() error {
	s := p.box.take()
	if s == nil {
		return nil
	}
	start := time.Now()
	b, err := p.eng.Process(s)
	elapsed := time.Since(start)
	if p.met != nil {
		p.met.ObserveState(p.eng.State())
	}
	switch {
	case errors.Is(err, engine.ErrStale):
		p.stale.Add(1)
		p.log.Warn("stale snapshot ignored", "seq", s.Seq, "last", p.eng.Seq())
		if p.met != nil {
			p.met.ObserveRejected(metrics.ResultStale)
		}
		return nil
	case decode.IsFatal(err):
		p.fatal.Add(1)
		p.log.Error("snapshot discarded", "seq", s.Seq, "error", err)
		if p.met != nil {
			p.met.ObserveRejected(metrics.ResultFatal)
		}
		return nil
	}
	p.processed.Add(1)
	if p.met != nil {
		p.met.ObserveBatch(b, elapsed)
	}
	if len(b.Missing) != 0 {
		p.log.Debug("partial snapshot", "seq", s.Seq, "missing", len(b.Missing))
	}
	if debug.Pipeline() {
		debug.Logf("pipeline: seq %d: %d patches (rebuild %t) in %s\n", b.Seq, len(b.Patches), b.Rebuild, elapsed)
	}
	if err := p.sink.Apply(b); err != nil {
		return fmt.Errorf("sink at seq %d: %w", b.Seq, err)
	}
	return nil
}

// mailbox holds the newest snapshot not yet processed.
type mailbox struct {
	mu    sync.Mutex
	s     *snapshot.Snapshot
	ready chan struct{}
}

// put stores s and reports whether it replaced an unprocessed snapshot.
func (m *mailbox) put(s *snapshot.Snapshot) bool {
	m.mu.Lock()
	replaced := m.s != nil
	m.s = s
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
	return replaced
}

func (m *mailbox) take() *snapshot.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.s
	m.s = nil
	return s
}
