package fieldfmt

import (
	"errors"
	"fmt"
	"time"

	"github.com/jettison/panopticon/debug"
	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/kpath"
	"github.com/jettison/panopticon/schema"
)

// EnumError reports a raw value missing from an enum table.  It is not
// fatal: Format returns a fallback display along with it.
type EnumError struct {
	Path     string
	Semantic string
	Enum     string
	Raw      *ir.Raw
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("%s: value %s not in enum %q (semantic %q)", e.Path, e.Raw, e.Enum, e.Semantic)
}

// Formatter holds the display rules of one schema.  It is safe for
// concurrent use once registration is done.
type Formatter struct {
	semantics map[string]Rule
	paths     map[string]Rule
}

func New() *Formatter {
	return &Formatter{
		semantics: map[string]Rule{},
		paths:     map[string]Rule{},
	}
}

// Register sets the rule for a semantic type.
func (f *Formatter) Register(semantic string, r Rule) {
	f.semantics[semantic] = r
}

// RegisterPath sets a rule for the leaf at kp, overriding its semantic
// type's rule.
func (f *Formatter) RegisterPath(kp *kpath.KPath, r Rule) {
	f.paths[kp.String()] = r
}

// Rule returns the rule applying to a leaf.
func (f *Formatter) Rule(kp *kpath.KPath, semantic string) Rule {
	if len(f.paths) != 0 {
		if r, ok := f.paths[kp.String()]; ok {
			return r
		}
	}
	if r, ok := f.semantics[semantic]; ok {
		return r
	}
	return Identity{}
}

// Format returns the display string of raw at kp.
func (f *Formatter) Format(kp *kpath.KPath, semantic string, raw *ir.Raw) (string, error) {
	res, err := f.Rule(kp, semantic).Format(raw)
	if err != nil {
		ee := &EnumError{}
		if errors.As(err, &ee) {
			ee.Path = kp.String()
			ee.Semantic = semantic
		}
	}
	if debug.Format() {
		debug.Logf("format %s (%s) %s -> %q err=%v\n", kp, semantic, raw, res, err)
	}
	return res, err
}

// InDomain reports whether raw has a display form at kp.  It is false only
// for enum values outside their table.
func (f *Formatter) InDomain(kp *kpath.KPath, semantic string, raw *ir.Raw) bool {
	if d, ok := f.Rule(kp, semantic).(domainer); ok {
		return d.InDomain(raw)
	}
	return true
}

// FromRegistry compiles the semantic rules declared by a schema.
func FromRegistry(reg *schema.Registry) (*Formatter, error) {
	res := New()
	enums := reg.Enums()
	for name, spec := range reg.Semantics() {
		r, err := Compile(name, spec, enums)
		if err != nil {
			return nil, err
		}
		res.Register(name, r)
	}
	return res, nil
}

// Compile builds the rule declared by spec for the semantic type name.
func Compile(name string, spec *schema.RuleSpec, enums map[string]*schema.EnumSpec) (Rule, error) {
	switch spec.Rule {
	case "", "identity":
		return Identity{}, nil
	case "scale":
		s := &Scale{Factor: 1, Offset: spec.Offset, Precision: -1, Unit: spec.Unit}
		if spec.Factor != nil {
			s.Factor = *spec.Factor
		}
		if spec.Precision != nil {
			s.Precision = *spec.Precision
		}
		return s, nil
	case "enum":
		es, ok := enums[spec.Enum]
		if !ok {
			return nil, fmt.Errorf("%w: semantic %q: unknown enum %q", ErrRule, name, spec.Enum)
		}
		return &Enum{Name: spec.Enum, Names: es.Values, Prefix: es.Prefix, Verbatim: spec.Raw}, nil
	case "bool":
		return &Bool{True: spec.True, False: spec.False}, nil
	case "hex":
		return &Hex{Width: spec.Width}, nil
	case "time":
		t := &Time{Layout: spec.Layout, Millis: spec.Millis}
		if spec.Location != "" {
			loc, err := time.LoadLocation(spec.Location)
			if err != nil {
				return nil, fmt.Errorf("%w: semantic %q: %w", ErrRule, name, err)
			}
			t.Location = loc
		}
		return t, nil
	case "expr":
		e, err := CompileExpr(spec.Expr)
		if err != nil {
			return nil, fmt.Errorf("semantic %q: %w", name, err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("%w: semantic %q: unknown rule %q", ErrRule, name, spec.Rule)
}
