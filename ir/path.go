package ir

import (
	"errors"
	"fmt"

	"github.com/jettison/panopticon/kpath"
)

var ErrNoPath = errors.New("no such path")

// Path returns the path of y from the root of its tree.  The root's path
// is nil.
func (y *Node) Path() *kpath.KPath {
	if y.Parent == nil {
		return nil
	}
	switch y.Parent.Type {
	case StructType:
		return y.Parent.Path().Append(kpath.Field(y.ParentField))
	case ArrayType:
		return y.Parent.Path().Append(kpath.Index(y.ParentIndex))
	case UnionType:
		return y.Parent.Path()
	default:
		panic("parent but not in container")
	}
}

// Get returns the node at kp relative to y.  For paths ending at a union
// the union itself is returned.
func (y *Node) Get(kp *kpath.KPath) (*Node, error) {
	res := y
	for x := kp; x != nil; x = x.Next {
		if res.IsLeaf() {
			return nil, fmt.Errorf("%w: %s: %s is a leaf", ErrNoPath, kp, res.Path())
		}
		v := res.View()
		switch {
		case x.Field != nil:
			res = v.Field(*x.Field)
			if res == nil {
				return nil, fmt.Errorf("%w: %s: no field %s at %q", ErrNoPath, kp, x.SegmentString(), v.Path())
			}
		case x.Index != nil:
			if v.Type != ArrayType {
				return nil, fmt.Errorf("%w: %s: index %s into %s", ErrNoPath, kp, x.SegmentString(), v.Type)
			}
			if *x.Index >= len(v.Values) {
				return nil, fmt.Errorf("%w: %s: index %s out of range", ErrNoPath, kp, x.SegmentString())
			}
			res = v.Values[*x.Index]
		}
	}
	return res, nil
}
