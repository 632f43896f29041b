package libdiff

import (
	"fmt"

	"github.com/jettison/panopticon/ir"
)

// Apply applies patches to tree and returns the resulting tree.  A Build
// at the root replaces the tree with a private copy of the patch's
// subtree; Builds below a root Build of the same call are then already
// in place.  tree is modified in place otherwise.
func Apply(tree *ir.Node, patches []Patch) (*ir.Node, error) {
	built := false
	for i := range patches {
		p := &patches[i]
		switch p.Op {
		case Build:
			if p.Path == nil {
				tree = p.Node.Clone()
				tree.Parent = nil
				built = true
				continue
			}
			if built {
				continue
			}
			if err := replace(tree, p); err != nil {
				return nil, err
			}
		case SetValue:
			if tree == nil {
				return nil, fmt.Errorf("%w: set %s", ErrNoTree, p.Path)
			}
			n, err := tree.Get(p.Path)
			if err != nil {
				return nil, err
			}
			if !n.IsLeaf() {
				return nil, fmt.Errorf("%w: set %s: not a leaf", ErrShape, p.Path)
			}
			n.SetLeaf(p.Raw, p.Display, p.Missing, p.Unrecognized)
		case SetState:
			if tree == nil {
				return nil, fmt.Errorf("%w: state %s", ErrNoTree, p.Path)
			}
			n, err := tree.Get(p.Path)
			if err != nil {
				return nil, err
			}
			if n.IsLeaf() {
				return nil, fmt.Errorf("%w: state %s: a leaf", ErrShape, p.Path)
			}
			n.SetState(p.Missing, p.Variant)
		default:
			return nil, fmt.Errorf("unknown patch op %s", p.Op)
		}
	}
	return tree, nil
}

func replace(tree *ir.Node, p *Patch) error {
	if tree == nil {
		return fmt.Errorf("%w: build %s", ErrNoTree, p.Path)
	}
	old, err := tree.Get(p.Path)
	if err != nil {
		return err
	}
	parent := old.Parent
	if parent == nil {
		return fmt.Errorf("%w: build %s: no parent", ErrShape, p.Path)
	}
	n := p.Node.CloneTo(&ir.Node{})
	n.Parent = parent
	n.ParentIndex = old.ParentIndex
	n.ParentField = old.ParentField
	parent.Values[old.ParentIndex] = n
	return nil
}
