package libdiff

import (
	"fmt"

	"github.com/jettison/panopticon/debug"
	"github.com/jettison/panopticon/ir"
)

// Diff returns the patches turning from into to, in pre-order.  Changed
// leaves get SetValue patches and containers whose Missing flag or union
// variant changed get SetState patches.  A scalar union switching variant
// is rebuilt with a Build patch since its view has another schema.  Both
// trees must have been decoded against the same schema.
func Diff(from, to *ir.Node) ([]Patch, error) {
	var res []Patch
	if err := diff(from, to, &res); err != nil {
		return nil, err
	}
	if debug.Diff() {
		debug.Logf("diff: %d patches\n", len(res))
	}
	return res, nil
}

func diff(from, to *ir.Node, res *[]Patch) error {
	if from.Type != to.Type || from.Schema != to.Schema || from.IsLeaf() != to.IsLeaf() {
		return fmt.Errorf("%w at %q: %s and %s", ErrShape, to.Path(), from.Type, to.Type)
	}
	if to.IsLeaf() {
		switch {
		case from.Variant != to.Variant:
			p := leafPatch(Build, to)
			p.Node = to
			*res = append(*res, p)
		case from.Display != to.Display:
			*res = append(*res, leafPatch(SetValue, to))
		}
		return nil
	}
	if from.Missing != to.Missing || from.Variant != to.Variant {
		*res = append(*res, statePatch(to))
	}
	fv, tv := from.View(), to.View()
	if fv.Type != tv.Type || len(fv.Values) != len(tv.Values) {
		return fmt.Errorf("%w at %q: %d and %d children", ErrShape, to.Path(), len(fv.Values), len(tv.Values))
	}
	for i := range tv.Values {
		if tv.Type == ir.StructType && fv.Fields[i] != tv.Fields[i] {
			return fmt.Errorf("%w at %q: field %q and %q", ErrShape, to.Path(), fv.Fields[i], tv.Fields[i])
		}
		if err := diff(fv.Values[i], tv.Values[i], res); err != nil {
			return err
		}
	}
	return nil
}
