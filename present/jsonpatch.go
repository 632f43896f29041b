package present

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/jettison/panopticon/engine"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/kpath"
	"github.com/jettison/panopticon/libdiff"
)

// Operation is one RFC 6902 operation.
type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// JSONPatch writes each batch as a JSON Patch document on its own line
// and keeps a JSON mirror of the displayed tree up to date with them.
// Leaves are represented by their display strings.
type JSONPatch struct {
	w   io.Writer
	doc []byte
}

func NewJSONPatch(w io.Writer) *JSONPatch {
	return &JSONPatch{w: w}
}

// Mirror returns the JSON document built by the patches written so far.
func (j *JSONPatch) Mirror() []byte { return j.doc }

func (j *JSONPatch) Apply(b *engine.Batch) error {
	ops := Operations(b)
	d, err := json.Marshal(ops)
	if err != nil {
		return err
	}
	if _, err := j.w.Write(append(d, '\n')); err != nil {
		return err
	}
	if len(ops) == 0 {
		return nil
	}
	doc := j.doc
	if b.Rebuild {
		// the root operation replaces the whole document
		if doc, err = json.Marshal(ops[0].Value); err != nil {
			return err
		}
		ops = ops[1:]
		if d, err = json.Marshal(ops); err != nil {
			return err
		}
	}
	if doc == nil {
		return fmt.Errorf("%w: no document to patch", libdiff.ErrNoTree)
	}
	patch, err := jsonpatch.DecodePatch(d)
	if err != nil {
		return err
	}
	out, err := patch.Apply(doc)
	if err != nil {
		return fmt.Errorf("patching mirror at seq %d: %w", b.Seq, err)
	}
	j.doc = out
	return nil
}

// Operations converts a batch to JSON Patch operations: Build patches of
// a rebuild become "add", other patches "replace".  SetState patches have no
// counterpart since the mirror holds display strings only.
func Operations(b *engine.Batch) []Operation {
	res := make([]Operation, 0, len(b.Patches))
	for i := range b.Patches {
		p := &b.Patches[i]
		if p.Op == libdiff.SetState {
			continue
		}
		op := Operation{Path: Pointer(p.Path), Value: p.Display}
		switch p.Op {
		case libdiff.Build:
			op.Op = "add"
			if !b.Rebuild {
				op.Op = "replace"
			}
			if !p.Node.IsLeaf() {
				op.Value = emptyContainer(p.Node)
			}
		case libdiff.SetValue:
			op.Op = "replace"
		}
		res = append(res, op)
	}
	return res
}

func emptyContainer(n *ir.Node) any {
	if n.View().Type == ir.ArrayType {
		return []any{}
	}
	return map[string]any{}
}

// Pointer returns the RFC 6901 JSON pointer of kp.
func Pointer(kp *kpath.KPath) string {
	var buf strings.Builder
	for x := kp; x != nil; x = x.Next {
		buf.WriteByte('/')
		switch {
		case x.Field != nil:
			buf.WriteString(pointerEscaper.Replace(*x.Field))
		case x.Index != nil:
			buf.WriteString(strconv.Itoa(*x.Index))
		}
	}
	return buf.String()
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")
