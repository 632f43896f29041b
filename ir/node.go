package ir

import (
	"github.com/jettison/panopticon/schema"
)

// MissingDisplay is the display string of every missing leaf.
const MissingDisplay = "<missing>"

// UnrecognizedDisplay annotates a raw value which has no display form.
func UnrecognizedDisplay(r *Raw) string {
	return r.String() + " (unrecognized)"
}

type Node struct {
	Type        Type
	Schema      *schema.Node
	Parent      *Node
	ParentIndex int
	ParentField string

	// Fields are the struct field names, parallel to Values.
	Fields []string
	Values []*Node

	Raw          *Raw
	Display      string
	Missing      bool
	Unrecognized bool
	Semantic     string

	// Variant names the union variant shown by Values[0], empty when
	// the union is missing.
	Variant string
	// Packed retains a union's packed raw value whichever view is shown.
	Packed *Raw
}

// NewScalar returns a present scalar leaf.
func NewScalar(sn *schema.Node, raw *Raw, display string) *Node {
	return &Node{
		Type:     ScalarType,
		Schema:   sn,
		Raw:      raw,
		Display:  display,
		Semantic: sn.Semantic,
	}
}

// NewStruct returns an empty struct node to be filled with AddField.
func NewStruct(sn *schema.Node) *Node {
	return &Node{
		Type:   StructType,
		Schema: sn,
		Fields: make([]string, 0, len(sn.Fields)),
		Values: make([]*Node, 0, len(sn.Fields)),
	}
}

// NewArray returns an empty array node to be filled with AddElem.
func NewArray(sn *schema.Node) *Node {
	return &Node{
		Type:   ArrayType,
		Schema: sn,
		Values: make([]*Node, 0, sn.Len),
	}
}

// NewUnion returns a union showing view, the value of the variant named
// variant.  Leaf attributes of scalar views are mirrored onto the union.
func NewUnion(sn *schema.Node, variant string, view *Node, packed *Raw) *Node {
	res := &Node{
		Type:    UnionType,
		Schema:  sn,
		Variant: variant,
		Packed:  packed,
	}
	res.setView(view)
	return res
}

func (y *Node) setView(view *Node) {
	view.Parent = y
	view.ParentIndex = 0
	view.ParentField = y.Variant
	y.Values = []*Node{view}
	y.syncView()
}

func (y *Node) syncView() {
	view := y.Values[0]
	if view.Type != ScalarType {
		y.Missing = view.Missing
		return
	}
	y.Raw = view.Raw
	y.Display = view.Display
	y.Missing = view.Missing
	y.Unrecognized = view.Unrecognized
	y.Semantic = view.Semantic
}

// NewMissing returns a missing subtree of the full shape of sn: structs
// and arrays expand down to missing leaves.
func NewMissing(sn *schema.Node) *Node {
	switch sn.Kind {
	case schema.StructKind:
		res := NewStruct(sn)
		for _, f := range sn.Fields {
			res.AddField(f.Name, NewMissing(f.Node))
		}
		res.Missing = true
		return res
	case schema.ArrayKind:
		res := NewArray(sn)
		for i := 0; i < sn.Len; i++ {
			res.AddElem(NewMissing(sn.Elem))
		}
		res.Missing = true
		return res
	case schema.UnionKind:
		return NewUnion(sn, "", NewMissing(sn.DecodedVariant().Node), nil)
	default:
		return &Node{
			Type:     ScalarType,
			Schema:   sn,
			Display:  MissingDisplay,
			Missing:  true,
			Semantic: sn.Semantic,
		}
	}
}

// AddField appends a struct field.
func (y *Node) AddField(name string, v *Node) *Node {
	v.Parent = y
	v.ParentIndex = len(y.Values)
	v.ParentField = name
	y.Fields = append(y.Fields, name)
	y.Values = append(y.Values, v)
	return y
}

// AddElem appends an array element.
func (y *Node) AddElem(v *Node) *Node {
	v.Parent = y
	v.ParentIndex = len(y.Values)
	v.ParentField = ""
	y.Values = append(y.Values, v)
	return y
}

// IsLeaf reports whether y displays as a single value: scalars and unions
// with a scalar view.
func (y *Node) IsLeaf() bool {
	switch y.Type {
	case ScalarType:
		return true
	case UnionType:
		return len(y.Values) == 1 && y.Values[0].Type == ScalarType
	}
	return false
}

// View returns the node standing for y in paths and displays: the
// selected view of a struct-decoded union, y otherwise.
func (y *Node) View() *Node {
	if y.Type == UnionType && !y.IsLeaf() {
		return y.Values[0]
	}
	return y
}

// Field returns the struct field called name, or nil.  Struct-decoded
// unions are looked through.
func (y *Node) Field(name string) *Node {
	v := y.View()
	if v.Type != StructType {
		return nil
	}
	for i, f := range v.Fields {
		if f == name {
			return v.Values[i]
		}
	}
	return nil
}

// SetLeaf updates the value of a leaf.  For scalar unions the selected
// view is updated too.
func (y *Node) SetLeaf(raw *Raw, display string, missing, unrecognized bool) {
	y.Raw = raw
	y.Display = display
	y.Missing = missing
	y.Unrecognized = unrecognized
	if y.Type == UnionType && len(y.Values) == 1 {
		v := y.Values[0]
		v.Raw = raw
		v.Display = display
		v.Missing = missing
		v.Unrecognized = unrecognized
	}
}

// SetState updates the Missing flag of a container and, for unions, the
// selected variant.  The view of a struct-decoded union follows the union.
func (y *Node) SetState(missing bool, variant string) {
	y.Missing = missing
	if y.Type != UnionType {
		return
	}
	y.Variant = variant
	if len(y.Values) == 1 {
		y.Values[0].ParentField = variant
		y.Values[0].Missing = missing
	}
}

func (y *Node) Clone() *Node {
	res := &Node{}
	return y.CloneTo(res)
}

func (y *Node) CloneTo(dst *Node) *Node {
	dst.Type = y.Type
	dst.Schema = y.Schema
	dst.Parent = y.Parent
	dst.ParentIndex = y.ParentIndex
	dst.ParentField = y.ParentField
	if y.Fields != nil {
		dst.Fields = make([]string, len(y.Fields))
		copy(dst.Fields, y.Fields)
	}
	if y.Values != nil {
		dst.Values = make([]*Node, len(y.Values))
		for i, yv := range y.Values {
			dstI := yv.CloneTo(&Node{})
			dstI.Parent = dst
			dst.Values[i] = dstI
		}
	}
	dst.Raw = y.Raw.Clone()
	dst.Display = y.Display
	dst.Missing = y.Missing
	dst.Unrecognized = y.Unrecognized
	dst.Semantic = y.Semantic
	dst.Variant = y.Variant
	dst.Packed = y.Packed.Clone()
	if dst.Type == UnionType && len(dst.Values) == 1 && dst.Values[0].Type == ScalarType {
		dst.Raw = dst.Values[0].Raw
	}
	return dst
}

// Walk calls fn on every addressable node of the tree rooted at y in
// pre-order.  The views of unions are not visited themselves: scalar views
// are represented by their union, and struct views are descended into
// directly.
func (y *Node) Walk(fn func(*Node) error) error {
	if err := fn(y); err != nil {
		return err
	}
	if y.IsLeaf() {
		return nil
	}
	for _, v := range y.View().Values {
		if err := v.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// ToAny returns the displayed tree as plain data: structs become
// map[string]any, arrays []any and leaves their display strings.
func (y *Node) ToAny() any {
	if y.IsLeaf() {
		return y.Display
	}
	v := y.View()
	switch v.Type {
	case StructType:
		res := make(map[string]any, len(v.Fields))
		for i, f := range v.Fields {
			res[f] = v.Values[i].ToAny()
		}
		return res
	case ArrayType:
		res := make([]any, len(v.Values))
		for i, e := range v.Values {
			res[i] = e.ToAny()
		}
		return res
	}
	return v.Display
}
