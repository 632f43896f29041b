package fieldfmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/jettison/panopticon/ir"
)

var ErrRule = errors.New("rule error")

// Rule formats raw values of one semantic type.
type Rule interface {
	Format(raw *ir.Raw) (string, error)
}

// domainer is implemented by rules which only accept some raw values.
type domainer interface {
	InDomain(raw *ir.Raw) bool
}

// Identity shows raw values verbatim.
type Identity struct{}

func (Identity) Format(raw *ir.Raw) (string, error) {
	return raw.String(), nil
}

// Scale shows raw*Factor+Offset with Precision decimals followed by Unit.
// A negative Precision uses the shortest exact representation.
type Scale struct {
	Factor    float64
	Offset    float64
	Precision int
	Unit      string
}

func (s *Scale) Format(raw *ir.Raw) (string, error) {
	v, ok := raw.AsFloat64()
	if !ok {
		return raw.String(), fmt.Errorf("%w: scale of non numeric %q", ErrRule, raw)
	}
	res := strconv.FormatFloat(v*s.Factor+s.Offset, 'f', s.Precision, 64)
	if s.Unit != "" {
		res += " " + s.Unit
	}
	return res, nil
}

// Enum looks raw integers up in a name table.  Names have Prefix removed
// and, unless Verbatim is set, are shown title-cased with underscores
// replaced by spaces.
type Enum struct {
	Name     string
	Names    map[int64]string
	Prefix   string
	Verbatim bool
}

func (e *Enum) lookup(raw *ir.Raw) (string, bool) {
	v, ok := raw.AsInt64()
	if !ok {
		return "", false
	}
	name, ok := e.Names[v]
	return name, ok
}

func (e *Enum) InDomain(raw *ir.Raw) bool {
	_, ok := e.lookup(raw)
	return ok
}

func (e *Enum) Format(raw *ir.Raw) (string, error) {
	name, ok := e.lookup(raw)
	if !ok {
		return ir.UnrecognizedDisplay(raw), &EnumError{Enum: e.Name, Raw: raw.Clone()}
	}
	name = strings.TrimPrefix(name, e.Prefix)
	if e.Verbatim {
		return name, nil
	}
	return titleCase(name), nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		rs := []rune(strings.ToLower(w))
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

// Bool shows booleans (or 0/1 integers) with custom labels.
type Bool struct {
	True  string
	False string
}

func (b *Bool) Format(raw *ir.Raw) (string, error) {
	var v bool
	switch {
	case raw != nil && raw.Bool != nil:
		v = *raw.Bool
	default:
		i, ok := raw.AsInt64()
		if !ok || (i != 0 && i != 1) {
			return raw.String(), fmt.Errorf("%w: bool of %q", ErrRule, raw)
		}
		v = i == 1
	}
	if v {
		return orDefault(b.True, "true"), nil
	}
	return orDefault(b.False, "false"), nil
}

func orDefault(s, d string) string {
	if s == "" {
		return d
	}
	return s
}

// Hex shows non negative integers as 0x-prefixed upper case hex, zero
// padded to Width digits.
type Hex struct {
	Width int
}

func (h *Hex) Format(raw *ir.Raw) (string, error) {
	v, ok := raw.AsUint64()
	if !ok {
		return raw.String(), fmt.Errorf("%w: hex of %q", ErrRule, raw)
	}
	return fmt.Sprintf("0x%0*X", h.Width, v), nil
}

// DefaultTimeLayout is used by Time rules without a layout.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// Time shows unix timestamps (seconds, or milliseconds when Millis is set)
// as dates in Location, UTC when nil.
type Time struct {
	Layout   string
	Location *time.Location
	Millis   bool
}

func (t *Time) Format(raw *ir.Raw) (string, error) {
	v, ok := raw.AsInt64()
	if !ok {
		return raw.String(), fmt.Errorf("%w: time of %q", ErrRule, raw)
	}
	var ts time.Time
	if t.Millis {
		ts = time.UnixMilli(v)
	} else {
		ts = time.Unix(v, 0)
	}
	loc := t.Location
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format(orDefault(t.Layout, DefaultTimeLayout)), nil
}

// Expr runs an expr-lang program with the raw value bound to "raw".  The
// program may call printf(format, args...).  Non string results are
// shown with fmt.Sprint.
type Expr struct {
	Source  string
	program *vm.Program
}

func exprOpts() []expr.Option {
	return []expr.Option{
		expr.Function("printf", func(params ...any) (any, error) {
			if len(params) == 0 {
				return nil, fmt.Errorf("printf: no format")
			}
			f, ok := params[0].(string)
			if !ok {
				return nil, fmt.Errorf("printf: format is %T, not string", params[0])
			}
			return fmt.Sprintf(f, params[1:]...), nil
		}),
	}
}

// CompileExpr compiles src into an Expr rule.
func CompileExpr(src string) (*Expr, error) {
	prg, err := expr.Compile(src, exprOpts()...)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling %q: %w", ErrRule, src, err)
	}
	return &Expr{Source: src, program: prg}, nil
}

func (e *Expr) Format(raw *ir.Raw) (string, error) {
	res, err := expr.Run(e.program, map[string]any{"raw": raw.Any()})
	if err != nil {
		return raw.String(), fmt.Errorf("%w: %s: %w", ErrRule, e.Source, err)
	}
	if s, ok := res.(string); ok {
		return s, nil
	}
	return fmt.Sprint(res), nil
}
