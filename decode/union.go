package decode

import (
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/kpath"
	"github.com/jettison/panopticon/schema"
)

// unionValue decodes the variants of a union found in m, which is either
// the union's own object or, for inline unions, the enclosing struct's.
//
// The view shown is chosen as follows:
//   - the decoded variant, when present and within its formatter's domain
//     (the packed variant instead if both are present and the union
//     prefers packed)
//   - the packed raw value annotated as unrecognized, when the decoded
//     value is out of domain or absent
//   - the decoded raw value annotated as unrecognized, when out of domain
//     and no packed value is available
//
// Unions with a struct decoded variant always show the struct so the
// tree keeps its shape.  The packed raw value is retained in every case.
func (s *state) unionValue(sn *schema.Node, m map[string]any, kp *kpath.KPath, prev *ir.Node) (*ir.Node, error) {
	dv, pv := sn.DecodedVariant(), sn.PackedVariant()
	dx, hasD := m[dv.Name]
	px, hasP := m[pv.Name]
	hasD = hasD && dx != nil
	hasP = hasP && px != nil

	var packed *ir.Raw
	if hasP {
		r, ok := toRaw(pv.Node.Scalar, px)
		if !ok {
			return nil, s.mismatch(kp.Append(kpath.Field(pv.Name)), pv.Node, px)
		}
		packed = r
	}

	if dv.Node.Kind == schema.StructKind {
		var vprev *ir.Node
		if prev != nil && prev.Type == ir.UnionType && len(prev.Values) == 1 {
			vprev = prev.Values[0]
		}
		view, err := s.value(dv.Node, dx, hasD, kp, vprev)
		if err != nil {
			return nil, err
		}
		variant := dv.Name
		if view.Missing {
			variant = ""
		}
		return ir.NewUnion(sn, variant, view, packed), nil
	}

	if !hasD && !hasP {
		return s.absent(kp, sn), nil
	}

	var decoded *ir.Raw
	if hasD {
		r, ok := toRaw(dv.Node.Scalar, dx)
		if !ok {
			return nil, s.mismatch(kp.Append(kpath.Field(dv.Name)), dv.Node, dx)
		}
		decoded = r
	}
	inDomain := hasD && s.fmt.InDomain(kp, dv.Node.Semantic, decoded)

	switch {
	case inDomain && (!hasP || sn.Display == schema.PreferDecoded):
		return s.unionLeaf(sn, dv, decoded, packed, kp, prev, false), nil
	case hasP && sn.Display == schema.PreferPacked:
		return s.unionLeaf(sn, pv, packed, packed, kp, prev, false), nil
	case hasP:
		return s.unionLeaf(sn, pv, packed, packed, kp, prev, true), nil
	default:
		return s.unionLeaf(sn, dv, decoded, packed, kp, prev, true), nil
	}
}

func (s *state) unionLeaf(sn *schema.Node, v *schema.Variant, raw, packed *ir.Raw, kp *kpath.KPath, prev *ir.Node, unrec bool) *ir.Node {
	var view *ir.Node
	switch {
	case prev != nil && prev.Type == ir.UnionType && prev.Schema == sn && prev.Variant == v.Name &&
		prev.Unrecognized == unrec && !prev.Missing && prev.Raw.Equal(raw):
		s.reused++
		view = ir.NewScalar(v.Node, raw, prev.Display)
	case unrec:
		view = ir.NewScalar(v.Node, raw, ir.UnrecognizedDisplay(raw))
	default:
		disp, _ := s.format(kp, v.Node.Semantic, raw)
		view = ir.NewScalar(v.Node, raw, disp)
	}
	view.Unrecognized = unrec
	return ir.NewUnion(sn, v.Name, view, packed)
}
