package present

import (
	"errors"
	"fmt"

	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/libdiff"
)

var ErrOutOfOrder = errors.New("batch out of order")

// Row is one visible line of a Tree.
type Row struct {
	Path  string
	Depth int
	Label string
	// Value is the display string of leaves and a size summary of
	// containers.
	Value        string
	Leaf         bool
	Expanded     bool
	Missing      bool
	Unrecognized bool
	// Changed is set on nodes updated by an incremental batch and on
	// their ancestors.
	Changed bool
}

// Tree is a navigable copy of a displayed tree.  Expanded containers and
// the cursor are remembered by path, so they survive rebuilds.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	root     *ir.Node
	seq      uint64
	hasSeq   bool
	expanded map[string]bool
	changed  map[string]bool

	rows   []Row
	cursor int
	at     string
	offset int
	height int
}

func NewTree() *Tree {
	return &Tree{
		expanded: map[string]bool{},
		changed:  map[string]bool{},
	}
}

// Root returns the tree, nil before the first batch.
func (t *Tree) Root() *ir.Node { return t.root }

func (t *Tree) Seq() uint64 { return t.seq }

func (t *Tree) Apply(b *engine.Batch) error {
	if t.hasSeq && b.Seq <= t.seq {
		return fmt.Errorf("%w: seq %d after %d", ErrOutOfOrder, b.Seq, t.seq)
	}
	base := t.root
	if b.Rebuild {
		base = nil
	}
	root, err := libdiff.Apply(base, b.Patches)
	if err != nil {
		return err
	}
	t.root = root
	t.seq, t.hasSeq = b.Seq, true
	clear(t.changed)
	if !b.Rebuild {
		for i := range b.Patches {
			for kp := b.Patches[i].Path; kp != nil; kp = kp.Parent() {
				t.changed[kp.String()] = true
			}
		}
	}
	t.refresh()
	return nil
}

// Rows returns every visible row.
func (t *Tree) Rows() []Row { return t.rows }

// Window returns the rows fitting in the height given to SetHeight, all
// rows if none was given.
func (t *Tree) Window() []Row {
	if t.height <= 0 {
		return t.rows
	}
	end := min(t.offset+t.height, len(t.rows))
	return t.rows[t.offset:end]
}

func (t *Tree) SetHeight(h int) {
	t.height = h
	t.scroll()
}

// Cursor returns the index of the selected row.
func (t *Tree) Cursor() int { return t.cursor }

// Offset returns the index of the first row of the window.
func (t *Tree) Offset() int { return t.offset }

// Selected returns the row under the cursor.
func (t *Tree) Selected() (Row, bool) {
	if t.cursor >= len(t.rows) {
		return Row{}, false
	}
	return t.rows[t.cursor], true
}

// Move moves the cursor by delta rows, stopping at either end.
func (t *Tree) Move(delta int) {
	t.setCursor(t.cursor + delta)
}

// Toggle expands or collapses the container under the cursor.
func (t *Tree) Toggle() {
	r, ok := t.Selected()
	if !ok || r.Leaf {
		return
	}
	if r.Expanded {
		t.Collapse(r.Path)
	} else {
		t.Expand(r.Path)
	}
}

func (t *Tree) Expand(path string) {
	t.expanded[path] = true
	t.refresh()
}

func (t *Tree) Collapse(path string) {
	delete(t.expanded, path)
	t.refresh()
}

// ExpandAll expands every container.
func (t *Tree) ExpandAll() {
	if t.root == nil {
		return
	}
	_ = t.root.Walk(func(n *ir.Node) error {
		if !n.IsLeaf() && n.Parent != nil {
			t.expanded[n.Path().String()] = true
		}
		return nil
	})
	t.refresh()
}

func (t *Tree) setCursor(i int) {
	t.cursor = max(0, min(i, len(t.rows)-1))
	if t.cursor < len(t.rows) {
		t.at = t.rows[t.cursor].Path
	}
	t.scroll()
}

func (t *Tree) scroll() {
	if t.cursor < t.offset {
		t.offset = t.cursor
	}
	if t.height > 0 && t.cursor >= t.offset+t.height {
		t.offset = t.cursor - t.height + 1
	}
	t.offset = max(0, min(t.offset, len(t.rows)-1))
}

// refresh recomputes the rows and puts the cursor back on its path, or as
// near as possible when the path is no longer visible.
func (t *Tree) refresh() {
	t.rows = nil
	if t.root != nil {
		t.children(t.root, 0)
	}
	for i := range t.rows {
		if t.rows[i].Path == t.at {
			t.setCursor(i)
			return
		}
	}
	t.setCursor(t.cursor)
}

func (t *Tree) children(n *ir.Node, depth int) {
	v := n.View()
	for i, c := range v.Values {
		label := fmt.Sprintf("[%d]", i)
		if v.Type == ir.StructType {
			label = v.Fields[i]
		}
		t.row(c, label, depth)
	}
}

func (t *Tree) row(n *ir.Node, label string, depth int) {
	path := n.Path().String()
	r := Row{
		Path:    path,
		Depth:   depth,
		Label:   label,
		Leaf:    n.IsLeaf(),
		Missing: n.Missing,
		Changed: t.changed[path],
	}
	if r.Leaf {
		r.Value = n.Display
		r.Unrecognized = n.Unrecognized
		t.rows = append(t.rows, r)
		return
	}
	r.Expanded = t.expanded[path]
	r.Value = summary(n)
	t.rows = append(t.rows, r)
	if r.Expanded {
		t.children(n, depth+1)
	}
}

func summary(n *ir.Node) string {
	v := n.View()
	switch {
	case n.Missing:
		return ir.MissingDisplay
	case v.Type == ir.ArrayType:
		return fmt.Sprintf("[%d]", len(v.Values))
	case n.Type == ir.UnionType:
		return fmt.Sprintf("%s {%d}", n.Variant, len(v.Values))
	default:
		return fmt.Sprintf("{%d}", len(v.Values))
	}
}
