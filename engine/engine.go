// Package engine keeps one displayed tree synchronized with a stream of
// snapshots.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jettison/panopticon/decode"
	"github.com/jettison/panopticon/fieldfmt"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/libdiff"
	"github.com/jettison/panopticon/schema"
	"github.com/jettison/panopticon/snapshot"
)

var ErrStale = errors.New("stale snapshot")

type State int

const (
	Uninitialized State = iota
	Synchronized
)

func (s State) String() string {
	if s == Synchronized {
		return "synchronized"
	}
	return "uninitialized"
}

// Batch is the patch list produced by one snapshot.
type Batch struct {
	Seq  uint64
	Time time.Time
	// Rebuild is set when Patches build the whole tree from scratch.
	Rebuild bool
	Patches []libdiff.Patch
	// Missing lists the paths absent from the snapshot.
	Missing []string
}

// Engine owns the displayed tree of one telemetry source.  It is not safe
// for concurrent use.
type Engine struct {
	reg   *schema.Registry
	dec   *decode.Decoder
	rules func(*fieldfmt.Formatter)
	log   *slog.Logger

	state  State
	tree   *ir.Node
	seq    uint64
	hasSeq bool
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRules customizes the formatter built from each schema, e.g. to add
// path rules.
func WithRules(fn func(*fieldfmt.Formatter)) Option {
	return func(e *Engine) { e.rules = fn }
}

func New(reg *schema.Registry, opts ...Option) (*Engine, error) {
	e := &Engine{log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.Reset(reg); err != nil {
		return nil, err
	}
	return e, nil
}

// Reset switches to a new schema.  The next snapshot rebuilds the tree.
func (e *Engine) Reset(reg *schema.Registry) error {
	f, err := fieldfmt.FromRegistry(reg)
	if err != nil {
		return err
	}
	if e.rules != nil {
		e.rules(f)
	}
	e.reg = reg
	e.dec = decode.New(reg, f, decode.WithLogger(e.log))
	e.state = Uninitialized
	return nil
}

func (e *Engine) State() State { return e.state }
func (e *Engine) Registry() *schema.Registry { return e.reg }

// Tree returns the displayed tree, nil before the first snapshot.  It must
// not be modified.
func (e *Engine) Tree() *ir.Node { return e.tree }

// Seq returns the sequence number of the last snapshot accepted.
func (e *Engine) Seq() uint64 { return e.seq }

// Process decodes s and returns the patches bringing the displayed tree
// up to date with it.
//
// Snapshots must arrive with increasing sequence numbers; others fail with
// ErrStale.  A snapshot which cannot be decoded is discarded: the
// displayed tree keeps its last good state and the next good snapshot
// rebuilds it.
func (e *Engine) Process(s *snapshot.Snapshot) (*Batch, error) {
	if e.hasSeq && s.Seq <= e.seq {
		return nil, fmt.Errorf("%w: seq %d after %d", ErrStale, s.Seq, e.seq)
	}
	e.seq, e.hasSeq = s.Seq, true

	var prev *ir.Node
	if e.state == Synchronized {
		prev = e.tree
	}
	root, err := e.dec.Decode(s.State, prev)
	if decode.IsFatal(err) {
		e.state = Uninitialized
		return nil, fmt.Errorf("snapshot %d discarded: %w", s.Seq, err)
	}
	b := &Batch{Seq: s.Seq, Time: s.Time}
	pe := &decode.PartialError{}
	if errors.As(err, &pe) {
		b.Missing = pe.Paths()
	}

	if e.state == Synchronized {
		patches, err := libdiff.Diff(e.tree, root)
		switch {
		case errors.Is(err, libdiff.ErrShape):
			e.log.Warn("displayed tree changed shape, rebuilding", "seq", s.Seq, "error", err)
		case err != nil:
			return nil, err
		default:
			tree, err := libdiff.Apply(e.tree, patches)
			if err != nil {
				return nil, err
			}
			e.tree = tree
			b.Patches = patches
			return b, nil
		}
	}
	b.Rebuild = true
	b.Patches = libdiff.Rebuild(root)
	tree, err := libdiff.Apply(nil, b.Patches)
	if err != nil {
		return nil, err
	}
	e.tree = tree
	e.state = Synchronized
	return b, nil
}
