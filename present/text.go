package present

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/libdiff"
)

// Text writes batches as lines of the form
//
//	path: display (raw)
//
// preceded by a header line per batch.
type Text struct {
	w       *bufio.Writer
	colors  *Colors
	strDiff bool
	header  bool
	prev    map[string]string
}

type TextOption func(*Text)

// WithColors colors the output.
func WithColors(c *Colors) TextOption {
	return func(t *Text) { t.colors = c }
}

// WithStringDiff highlights the characters which changed in a value.
func WithStringDiff(v bool) TextOption {
	return func(t *Text) { t.strDiff = v }
}

// WithHeader turns the per batch header lines on or off.
func WithHeader(v bool) TextOption {
	return func(t *Text) { t.header = v }
}

func NewText(w io.Writer, opts ...TextOption) *Text {
	t := &Text{
		w:      bufio.NewWriter(w),
		colors: NoColors(),
		header: true,
		prev:   map[string]string{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Text) Apply(b *engine.Batch) error {
	kind := "update"
	if b.Rebuild {
		kind = "rebuild"
		clear(t.prev)
	}
	if t.header {
		hdr := t.colors.Color(HeaderColor)
		t.w.WriteString(hdr("# %d %s %s", b.Seq, kind, b.Time.UTC().Format(time.RFC3339Nano)))
		if n := len(b.Missing); n != 0 {
			t.w.WriteString(hdr(" (%d missing)", n))
		}
		t.w.WriteByte('\n')
	}
	for i := range b.Patches {
		p := &b.Patches[i]
		switch {
		case p.Op == libdiff.SetState:
			if p.Missing {
				t.state(p)
			}
			continue
		case p.Op == libdiff.Build && !p.Node.IsLeaf():
			continue
		}
		t.line(p)
	}
	return t.w.Flush()
}

// Prime records the values of the tree rooted at root as the ones
// previously written, for highlighting changes to them.
func (t *Text) Prime(root *ir.Node) {
	_ = root.Walk(func(n *ir.Node) error {
		if n.IsLeaf() {
			t.prev[n.Path().String()] = n.Display
		}
		return nil
	})
}

func (t *Text) line(p *libdiff.Patch) {
	path := p.Path.String()
	t.w.WriteString(t.colors.Color(PathColor)("%s", path))
	t.w.WriteString(": ")
	prev, seen := t.prev[path]
	switch {
	case p.Missing:
		t.w.WriteString(t.colors.Color(MissingColor)("%s", p.Display))
	case t.strDiff && seen:
		t.spans(libdiff.DiffString(prev, p.Display))
	case p.Unrecognized:
		t.w.WriteString(t.colors.Color(UnrecognizedColor)("%s", p.Display))
	default:
		t.w.WriteString(t.colors.Color(ValueColor)("%s", p.Display))
	}
	if p.Raw != nil && !p.Missing {
		if raw := p.Raw.String(); raw != p.Display && !strings.HasPrefix(p.Display, raw+" ") {
			t.w.WriteString(t.colors.Color(RawColor)(" (%s)", raw))
		}
	}
	t.w.WriteByte('\n')
	t.prev[path] = p.Display
}

// state writes a container which went missing.  Containers coming back
// are reported through their leaves.
func (t *Text) state(p *libdiff.Patch) {
	t.w.WriteString(t.colors.Color(PathColor)("%s", p.Path.String()))
	t.w.WriteString(": ")
	t.w.WriteString(t.colors.Color(MissingColor)("%s", ir.MissingDisplay))
	t.w.WriteByte('\n')
}

// spans writes a changed value.  Without colors, changes are marked
// [-deleted-] and {+inserted+}.
func (t *Text) spans(spans []libdiff.Span) {
	_, colored := t.colors.Map[InsertColor]
	for _, s := range spans {
		switch {
		case s.Op == libdiff.SpanInsert && colored:
			t.w.WriteString(t.colors.Color(InsertColor)("%s", s.Text))
		case s.Op == libdiff.SpanInsert:
			t.w.WriteString("{+" + s.Text + "+}")
		case s.Op == libdiff.SpanDelete && colored:
			t.w.WriteString(t.colors.Color(DeleteColor)("%s", s.Text))
		case s.Op == libdiff.SpanDelete:
			t.w.WriteString("[-" + s.Text + "-]")
		default:
			t.w.WriteString(t.colors.Color(ValueColor)("%s", s.Text))
		}
	}
}
