package snapshot

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/jettison/panopticon/format"
)

// Exec is a Source polling a shell command: every interval the command is
// run and the newest document of its output becomes the next snapshot.
// A run which fails or prints no valid document yields an ErrDocument
// error; the next interval runs the command again.
type Exec struct {
	command string
	every   time.Duration
	f       format.Format
	seq     *sequencer
	limit   int

	runs   int
	ticker *time.Ticker
}

type ExecOption func(*Exec)

// WithLimit stops the source with io.EOF after n runs.
func WithLimit(n int) ExecOption {
	return func(e *Exec) { e.limit = n }
}

func NewExec(command string, every time.Duration, f format.Format, env Envelope, opts ...ExecOption) *Exec {
	e := &Exec{command: command, every: every, f: f, seq: newSequencer(env)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Exec) Next(ctx context.Context) (*Snapshot, error) {
	if e.limit > 0 && e.runs == e.limit {
		e.Stop()
		return nil, io.EOF
	}
	if e.ticker == nil {
		e.ticker = time.NewTicker(e.every)
	} else {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.ticker.C:
		}
	}
	e.runs++
	d, err := e.run(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(d, e.f)
	if err != nil {
		return nil, fmt.Errorf("%w: output of %q: %w", ErrDocument, e.command, err)
	}
	return e.seq.Unwrap(doc)
}

func (e *Exec) run(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", e.command)
	r, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("unable to create pipe for command %q: %w", e.command, err)
	}
	cmd.WaitDelay = e.every
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("unable to start %q: %w", e.command, err)
	}
	d, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%w: command %q exited with an error: %w", ErrDocument, e.command, err)
	}
	return d, nil
}

// Stop releases the interval timer.
func (e *Exec) Stop() {
	if e.ticker != nil {
		e.ticker.Stop()
	}
}
