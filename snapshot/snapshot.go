package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jettison/panopticon/decode"
)

// Snapshot is one complete state of a telemetry source.
type Snapshot struct {
	Seq   uint64
	Time  time.Time
	State any
}

// Source delivers the snapshots of one telemetry source in order.  Next
// returns io.EOF when the source is exhausted.
type Source interface {
	Next(ctx context.Context) (*Snapshot, error)
}

var (
	ErrEnvelope = errors.New("bad envelope")
	// ErrDocument marks a failure confined to one document: the source
	// can still deliver later snapshots.
	ErrDocument = errors.New("bad snapshot document")
)

// Skippable reports whether err only lost the current document, so that
// the caller may wait for the next one.
func Skippable(err error) bool {
	return errors.Is(err, ErrDocument) || errors.Is(err, ErrEnvelope)
}

// Envelope names the keys of a document wrapping a snapshot.  Documents
// lacking StateKey are bare states.
type Envelope struct {
	SeqKey   string
	TimeKey  string
	StateKey string
}

func DefaultEnvelope() Envelope {
	return Envelope{SeqKey: "seq", TimeKey: "time", StateKey: "state"}
}

// sequencer assigns sequence numbers to documents which carry none and
// checks that carried ones increase.
type sequencer struct {
	env  Envelope
	last uint64
	now  func() time.Time
}

func newSequencer(env Envelope) *sequencer {
	if env == (Envelope{}) {
		env = DefaultEnvelope()
	}
	return &sequencer{env: env, now: time.Now}
}

// Unwrap turns a decoded document into a snapshot.
func (s *sequencer) Unwrap(doc any) (*Snapshot, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		s.last++
		return &Snapshot{Seq: s.last, Time: s.now(), State: doc}, nil
	}
	state, wrapped := m[s.env.StateKey]
	if !wrapped {
		s.last++
		return &Snapshot{Seq: s.last, Time: s.now(), State: doc}, nil
	}
	res := &Snapshot{State: state}
	if v, ok := m[s.env.SeqKey]; ok {
		seq, err := asUint(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrEnvelope, s.env.SeqKey, err)
		}
		res.Seq = seq
	} else {
		res.Seq = s.last + 1
	}
	t, err := s.time(m)
	if err != nil {
		return nil, err
	}
	res.Time = t
	s.last = res.Seq
	return res, nil
}

func (s *sequencer) time(m map[string]any) (time.Time, error) {
	k := s.env.TimeKey
	if v, ok := m[k]; ok {
		return parseTime(v)
	}
	lo, hasLo := m[k+"_lo"]
	hi, hasHi := m[k+"_hi"]
	if !hasLo && !hasHi {
		return s.now(), nil
	}
	if !hasLo || !hasHi {
		return time.Time{}, fmt.Errorf("%w: %s: only one half present", ErrEnvelope, k)
	}
	l, err := asUint(lo)
	if err != nil || l > math.MaxUint32 {
		return time.Time{}, fmt.Errorf("%w: %s_lo: %v", ErrEnvelope, k, lo)
	}
	h, err := asUint(hi)
	if err != nil || h > math.MaxUint32 {
		return time.Time{}, fmt.Errorf("%w: %s_hi: %v", ErrEnvelope, k, hi)
	}
	joined := decode.JoinHalves(uint32(l), uint32(h))
	if joined > math.MaxInt64 {
		return time.Time{}, fmt.Errorf("%w: %s: %d out of range", ErrEnvelope, k, joined)
	}
	return time.Unix(int64(joined), 0).UTC(), nil
}

func parseTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: time: %w", ErrEnvelope, err)
		}
		return t, nil
	}
	f, err := asFloat(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time: %w", ErrEnvelope, err)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}
