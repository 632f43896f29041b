package decode

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/jettison/panopticon/ir"
	"github.com/jettison/panopticon/schema"
)

// number is a raw numeric input value kept without loss.
type number struct {
	i     int64
	u     uint64
	f     float64
	kind  reflect.Kind // Int64, Uint64 or Float64
	valid bool
}

func toNumber(v any) number {
	if n, ok := v.(json.Number); ok {
		if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return number{i: i, kind: reflect.Int64, valid: true}
		}
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return number{u: u, kind: reflect.Uint64, valid: true}
		}
		if f, err := n.Float64(); err == nil {
			return number{f: f, kind: reflect.Float64, valid: true}
		}
		return number{}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{i: rv.Int(), kind: reflect.Int64, valid: true}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{u: rv.Uint(), kind: reflect.Uint64, valid: true}
	case reflect.Float32, reflect.Float64:
		return number{f: rv.Float(), kind: reflect.Float64, valid: true}
	}
	return number{}
}

// integer returns the number as a signed or unsigned integer if it is
// integral.
func (n number) integer() (i int64, u uint64, signed bool, ok bool) {
	switch n.kind {
	case reflect.Int64:
		return n.i, 0, true, true
	case reflect.Uint64:
		return 0, n.u, false, true
	case reflect.Float64:
		if n.f != math.Trunc(n.f) || math.IsInf(n.f, 0) {
			return 0, 0, false, false
		}
		if n.f < 0 {
			if n.f < math.MinInt64 {
				return 0, 0, false, false
			}
			return int64(n.f), 0, true, true
		}
		if n.f >= math.MaxUint64 {
			return 0, 0, false, false
		}
		return 0, uint64(n.f), false, true
	}
	return 0, 0, false, false
}

func describe(v any) string {
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("string %q", x)
	case map[string]any:
		return "object"
	case []any:
		return fmt.Sprintf("array of %d", len(x))
	}
	return fmt.Sprintf("%T %v", v, v)
}

// toRaw converts an input scalar to the exact raw value of type st.
func toRaw(st schema.ScalarType, v any) (*ir.Raw, bool) {
	switch {
	case st == schema.Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, false
		}
		return ir.FromBool(b), true
	case st == schema.String:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		return ir.FromString(s), true
	case st.IsFloat():
		n := toNumber(v)
		if !n.valid {
			return nil, false
		}
		switch n.kind {
		case reflect.Int64:
			return ir.FromFloat(float64(n.i)), true
		case reflect.Uint64:
			return ir.FromFloat(float64(n.u)), true
		}
		if st == schema.Float32 && !math.IsInf(n.f, 0) && !math.IsNaN(n.f) && math.Abs(n.f) > math.MaxFloat32 {
			return nil, false
		}
		return ir.FromFloat(n.f), true
	}
	i, u, signed, ok := toNumber(v).integer()
	if !ok {
		return nil, false
	}
	bits := uint(st.Bits())
	if st.IsSigned() {
		if !signed {
			if u > math.MaxInt64 {
				return nil, false
			}
			i = int64(u)
		}
		lo, hi := int64(-1)<<(bits-1), int64(1)<<(bits-1)-1
		if bits == 64 {
			lo, hi = math.MinInt64, math.MaxInt64
		}
		if i < lo || i > hi {
			return nil, false
		}
		return ir.FromInt(i), true
	}
	if signed {
		if i < 0 {
			return nil, false
		}
		u = uint64(i)
	}
	if bits < 64 && u > uint64(1)<<bits-1 {
		return nil, false
	}
	return ir.FromUint(u), true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		res := make(map[string]any, len(m))
		for k, x := range m {
			ks, ok := k.(string)
			if !ok {
				ks = fmt.Sprint(k)
			}
			res[ks] = x
		}
		return res, true
	}
	return nil, false
}

func asSlice(v any) ([]any, bool) {
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	res := make([]any, rv.Len())
	for i := range res {
		res[i] = rv.Index(i).Interface()
	}
	return res, true
}
