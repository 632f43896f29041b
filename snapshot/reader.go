package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jettison/panopticon/format"
)

// Reader is a Source reading a stream of documents: YAML documents
// separated by "---", concatenated JSON values or JSON lines.
type Reader struct {
	dec docDecoder
	seq *sequencer
	f   format.Format
}

func NewReader(r io.Reader, f format.Format, env Envelope) *Reader {
	return &Reader{dec: newDocDecoder(r, f), seq: newSequencer(env), f: f}
}

func (r *Reader) Next(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc any
	if err := r.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading %s snapshot: %w", r.f, err)
	}
	return r.seq.Unwrap(doc)
}

// ReadAll reads every snapshot of r.
func ReadAll(ctx context.Context, src Source) ([]*Snapshot, error) {
	var res []*Snapshot
	for {
		s, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return res, err
		}
		res = append(res, s)
	}
}
