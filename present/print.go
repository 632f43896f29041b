package present

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/format"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/libdiff"
)

// Print writes the fully expanded tree rooted at root as indented
// "label: value" lines.  Missing containers are printed without their
// contents.
func Print(w io.Writer, root *ir.Node, c *Colors) error {
	t := NewTree()
	if err := t.Apply(&engine.Batch{Rebuild: true, Patches: libdiff.Rebuild(root)}); err != nil {
		return err
	}
	t.ExpandAll()
	bw := bufio.NewWriter(w)
	skip := -1
	for _, r := range t.Rows() {
		if skip >= 0 && r.Depth > skip {
			continue
		}
		skip = -1
		if r.Missing && !r.Leaf {
			skip = r.Depth
		}
		bw.WriteString(strings.Repeat("  ", r.Depth))
		bw.WriteString(c.Color(PathColor)("%s", r.Label))
		bw.WriteByte(':')
		switch {
		case r.Missing:
			bw.WriteString(c.Color(MissingColor)(" %s", ir.MissingDisplay))
		case !r.Leaf:
		case r.Unrecognized:
			bw.WriteString(c.Color(UnrecognizedColor)(" %s", r.Value))
		default:
			bw.WriteString(c.Color(ValueColor)(" %s", r.Value))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Encode writes the display strings of the tree rooted at root as a
// document in format f.  YAML output keeps the field order of the schema.
func Encode(w io.Writer, root *ir.Node, f format.Format) error {
	var (
		d   []byte
		err error
	)
	switch f {
	case format.YAMLFormat:
		d, err = yaml.Marshal(Ordered(root))
	case format.JSONFormat:
		d, err = json.MarshalIndent(root.ToAny(), "", "  ")
		d = append(d, '\n')
	default:
		d, err = json.Marshal(root.ToAny())
		d = append(d, '\n')
	}
	if err != nil {
		return err
	}
	_, err = w.Write(d)
	return err
}

// Ordered is like ir.Node.ToAny but represents structs as yaml.MapSlice
// so that fields keep their order.
func Ordered(n *ir.Node) any {
	if n.IsLeaf() {
		return n.Display
	}
	v := n.View()
	if v.Type == ir.ArrayType {
		res := make([]any, len(v.Values))
		for i, e := range v.Values {
			res[i] = Ordered(e)
		}
		return res
	}
	res := make(yaml.MapSlice, 0, len(v.Fields))
	for i, f := range v.Fields {
		res = append(res, yaml.MapItem{Key: f, Value: Ordered(v.Values[i])})
	}
	return res
}
