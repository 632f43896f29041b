package libdiff

import (
	"errors"
	"fmt"

	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/kpath"
)

var (
	ErrShape  = errors.New("shape mismatch")
	ErrNoTree = errors.New("no tree")
)

type Op int

const (
	SetValue Op = iota
	Build
	// SetState updates the Missing flag and union variant of a
	// container.  Its leaves are patched separately.
	SetState
)

func (o Op) String() string {
	switch o {
	case SetValue:
		return "set"
	case Build:
		return "build"
	case SetState:
		return "state"
	}
	return fmt.Sprintf("<op %d>", int(o))
}

func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Patch is one instruction to bring a displayed tree up to date.  For
// leaves, Display, Raw, Missing and Unrecognized carry the new value.  Node
// is only set on Build patches and holds the subtree to create; it is
// shared and must not be modified.
type Patch struct {
	Op           Op
	Path         *kpath.KPath
	Display      string
	Raw          *ir.Raw
	Missing      bool
	Unrecognized bool
	Variant      string
	Node         *ir.Node
}

func (p *Patch) String() string {
	path := p.Path.String()
	if path == "" {
		path = "."
	}
	switch {
	case p.Op == SetState && p.Missing:
		return fmt.Sprintf("%s %s missing", p.Op, path)
	case p.Op == SetState:
		return fmt.Sprintf("%s %s present", p.Op, path)
	case p.Op == Build && !p.Node.IsLeaf():
		return fmt.Sprintf("%s %s", p.Op, path)
	}
	return fmt.Sprintf("%s %s = %q", p.Op, path, p.Display)
}

func leafPatch(op Op, n *ir.Node) Patch {
	return Patch{
		Op:           op,
		Path:         n.Path(),
		Display:      n.Display,
		Raw:          n.Raw,
		Missing:      n.Missing,
		Unrecognized: n.Unrecognized,
		Variant:      n.Variant,
	}
}

func statePatch(n *ir.Node) Patch {
	return Patch{Op: SetState, Path: n.Path(), Missing: n.Missing, Variant: n.Variant}
}

// Rebuild returns Build patches for every node of root in pre-order.
func Rebuild(root *ir.Node) []Patch {
	var res []Patch
	_ = root.Walk(func(n *ir.Node) error {
		p := Patch{Op: Build, Path: n.Path(), Node: n, Missing: n.Missing}
		if n.IsLeaf() {
			p = leafPatch(Build, n)
			p.Node = n
		}
		res = append(res, p)
		return nil
	})
	return res
}
