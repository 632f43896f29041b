package decode

import (
	"errors"
	"log/slog"
	"math"

	"github.com/jettison/panopticon/debug"
	"github.com/jettison/panopticon/fieldfmt"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/kpath"
	"github.com/jettison/panopticon/schema"
)

// Decoder turns snapshot objects (plain map[string]any / []any trees as
// produced by JSON or YAML decoders) into formatted value trees.
type Decoder struct {
	reg *schema.Registry
	fmt *fieldfmt.Formatter
	log *slog.Logger
}

type Option func(*Decoder)

func WithLogger(l *slog.Logger) Option {
	return func(d *Decoder) { d.log = l }
}

func New(reg *schema.Registry, f *fieldfmt.Formatter, opts ...Option) *Decoder {
	d := &Decoder{reg: reg, fmt: f, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) Registry() *schema.Registry { return d.reg }

// Decode decodes obj against the root of the schema.
//
// prev, when non nil, is a tree previously decoded against the same
// registry; leaves whose raw value did not change reuse its display
// strings.
//
// A snapshot whose shape contradicts the schema yields a nil tree and a
// *DecodeError of kind TypeMismatch.  A snapshot lacking some fields yields
// a complete tree, with missing sentinels in place of the absent data, and
// a *PartialError.
func (d *Decoder) Decode(obj any, prev *ir.Node) (*ir.Node, error) {
	if prev != nil && prev.Schema != d.reg.Root() {
		prev = nil
	}
	st := &state{Decoder: d}
	root, err := st.value(d.reg.Root(), obj, true, nil, prev)
	if err != nil {
		if debug.Decode() {
			debug.Logf("decode: %v\n", err)
		}
		return nil, err
	}
	if debug.Decode() {
		debug.Logf("decoded %d missing, %d reused\n%v\n", len(st.missing), st.reused, root)
	}
	if len(st.missing) != 0 {
		return root, &PartialError{Missing: st.missing}
	}
	return root, nil
}

type state struct {
	*Decoder
	missing []*DecodeError
	reused  int
}

func (s *state) mismatch(kp *kpath.KPath, sn *schema.Node, v any) error {
	return &DecodeError{Kind: TypeMismatch, Path: kp.String(), Want: sn.TypeString(), Got: describe(v)}
}

func (s *state) absent(kp *kpath.KPath, sn *schema.Node) *ir.Node {
	s.missing = append(s.missing, &DecodeError{Kind: FieldMissing, Path: kp.String(), Want: sn.TypeString()})
	return ir.NewMissing(sn)
}

// child returns the i'th child of prev if prev has the expected shape.
func child(prev *ir.Node, i int) *ir.Node {
	if prev == nil {
		return nil
	}
	v := prev.View()
	if i >= len(v.Values) {
		return nil
	}
	return v.Values[i]
}

func (s *state) value(sn *schema.Node, v any, present bool, kp *kpath.KPath, prev *ir.Node) (*ir.Node, error) {
	if !present || v == nil {
		return s.absent(kp, sn), nil
	}
	switch sn.Kind {
	case schema.StructKind:
		m, ok := asMap(v)
		if !ok {
			return nil, s.mismatch(kp, sn, v)
		}
		return s.structValue(sn, m, kp, prev)
	case schema.ArrayKind:
		return s.arrayValue(sn, v, kp, prev)
	case schema.UnionKind:
		m, ok := asMap(v)
		if !ok {
			return nil, s.mismatch(kp, sn, v)
		}
		return s.unionValue(sn, m, kp, prev)
	default:
		raw, ok := toRaw(sn.Scalar, v)
		if !ok {
			return nil, s.mismatch(kp, sn, v)
		}
		return s.scalar(sn, raw, kp, prev), nil
	}
}

func (s *state) structValue(sn *schema.Node, m map[string]any, kp *kpath.KPath, prev *ir.Node) (*ir.Node, error) {
	res := ir.NewStruct(sn)
	for i, f := range sn.Fields {
		fkp := kp.Append(kpath.Field(f.Name))
		fprev := child(prev, i)
		var (
			fv  *ir.Node
			err error
		)
		switch {
		case f.Split != nil:
			fv, err = s.split(f, m, fkp, fprev)
		case f.Inline:
			fv, err = s.unionValue(f.Node, m, fkp, fprev)
		default:
			x, ok := m[f.Name]
			fv, err = s.value(f.Node, x, ok, fkp, fprev)
		}
		if err != nil {
			return nil, err
		}
		res.AddField(f.Name, fv)
	}
	return res, nil
}

func (s *state) arrayValue(sn *schema.Node, v any, kp *kpath.KPath, prev *ir.Node) (*ir.Node, error) {
	elems, ok := asSlice(v)
	if !ok || len(elems) > sn.Len {
		return nil, s.mismatch(kp, sn, v)
	}
	res := ir.NewArray(sn)
	for i := 0; i < sn.Len; i++ {
		var (
			x       any
			present = i < len(elems)
		)
		if present {
			x = elems[i]
		}
		ev, err := s.value(sn.Elem, x, present, kp.Append(kpath.Index(i)), child(prev, i))
		if err != nil {
			return nil, err
		}
		res.AddElem(ev)
	}
	return res, nil
}

// split assembles a composite 64-bit scalar from its two 32-bit halves.
func (s *state) split(f *schema.Field, m map[string]any, kp *kpath.KPath, prev *ir.Node) (*ir.Node, error) {
	lo, hasLo := m[f.Split.Low]
	hi, hasHi := m[f.Split.High]
	if !hasLo && !hasHi {
		x, ok := m[f.Name]
		return s.value(f.Node, x, ok, kp, prev)
	}
	if !hasLo || !hasHi || lo == nil || hi == nil {
		return s.absent(kp, f.Node), nil
	}
	lr, ok := toRaw(schema.Uint32, lo)
	if !ok {
		return nil, &DecodeError{Kind: TypeMismatch, Path: kp.Parent().Append(kpath.Field(f.Split.Low)).String(), Want: "uint32", Got: describe(lo)}
	}
	hr, ok := toRaw(schema.Uint32, hi)
	if !ok {
		return nil, &DecodeError{Kind: TypeMismatch, Path: kp.Parent().Append(kpath.Field(f.Split.High)).String(), Want: "uint32", Got: describe(hi)}
	}
	joined := JoinHalves(uint32(*lr.Uint64), uint32(*hr.Uint64))
	var raw *ir.Raw
	if f.Node.Scalar == schema.Int64 {
		raw = ir.FromInt(int64(joined))
	} else {
		raw = ir.FromUint(joined)
	}
	return s.scalar(f.Node, raw, kp, prev), nil
}

// JoinHalves reconstructs a 64-bit value from its 32-bit halves.
func JoinHalves(low, high uint32) uint64 {
	return uint64(high)<<32 | uint64(low)
}

// SplitHalves is the inverse of JoinHalves.
func SplitHalves(v uint64) (low, high uint32) {
	return uint32(v & math.MaxUint32), uint32(v >> 32)
}

func (s *state) scalar(sn *schema.Node, raw *ir.Raw, kp *kpath.KPath, prev *ir.Node) *ir.Node {
	if prev != nil && prev.Type == ir.ScalarType && !prev.Missing && prev.Schema == sn && prev.Raw.Equal(raw) {
		s.reused++
		res := ir.NewScalar(sn, raw, prev.Display)
		res.Unrecognized = prev.Unrecognized
		return res
	}
	disp, unrec := s.format(kp, sn.Semantic, raw)
	res := ir.NewScalar(sn, raw, disp)
	res.Unrecognized = unrec
	return res
}

// format formats a leaf.  Enum misses report unrecognized; other rule
// failures fall back to the rule's display and are logged.
func (s *state) format(kp *kpath.KPath, semantic string, raw *ir.Raw) (string, bool) {
	disp, err := s.fmt.Format(kp, semantic, raw)
	if err == nil {
		return disp, false
	}
	ee := &fieldfmt.EnumError{}
	if errors.As(err, &ee) {
		return disp, true
	}
	s.log.Debug("format failed", "path", kp.String(), "semantic", semantic, "error", err)
	return disp, false
}
