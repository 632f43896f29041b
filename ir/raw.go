package ir

import (
	"math"
	"strconv"
)

// Raw is an exact raw scalar value.  Exactly one field is set.
type Raw struct {
	Int64   *int64
	Uint64  *uint64
	Float64 *float64
	Bool    *bool
	Str     *string
}

func FromInt(v int64) *Raw     { return &Raw{Int64: &v} }
func FromUint(v uint64) *Raw   { return &Raw{Uint64: &v} }
func FromFloat(v float64) *Raw { return &Raw{Float64: &v} }
func FromBool(v bool) *Raw     { return &Raw{Bool: &v} }
func FromString(v string) *Raw { return &Raw{Str: &v} }

func (r *Raw) Clone() *Raw {
	if r == nil {
		return nil
	}
	switch {
	case r.Int64 != nil:
		return FromInt(*r.Int64)
	case r.Uint64 != nil:
		return FromUint(*r.Uint64)
	case r.Float64 != nil:
		return FromFloat(*r.Float64)
	case r.Bool != nil:
		return FromBool(*r.Bool)
	case r.Str != nil:
		return FromString(*r.Str)
	}
	return &Raw{}
}

// Equal reports whether r and o hold the same value of the same kind.
// Floats compare bitwise so that NaN equals itself.
func (r *Raw) Equal(o *Raw) bool {
	if r == nil || o == nil {
		return r == o
	}
	switch {
	case r.Int64 != nil:
		return o.Int64 != nil && *r.Int64 == *o.Int64
	case r.Uint64 != nil:
		return o.Uint64 != nil && *r.Uint64 == *o.Uint64
	case r.Float64 != nil:
		return o.Float64 != nil && math.Float64bits(*r.Float64) == math.Float64bits(*o.Float64)
	case r.Bool != nil:
		return o.Bool != nil && *r.Bool == *o.Bool
	case r.Str != nil:
		return o.Str != nil && *r.Str == *o.Str
	}
	return *o == Raw{}
}

func (r *Raw) String() string {
	if r == nil {
		return ""
	}
	switch {
	case r.Int64 != nil:
		return strconv.FormatInt(*r.Int64, 10)
	case r.Uint64 != nil:
		return strconv.FormatUint(*r.Uint64, 10)
	case r.Float64 != nil:
		return strconv.FormatFloat(*r.Float64, 'g', -1, 64)
	case r.Bool != nil:
		return strconv.FormatBool(*r.Bool)
	case r.Str != nil:
		return *r.Str
	}
	return ""
}

// Any returns the value as a plain Go value.
func (r *Raw) Any() any {
	if r == nil {
		return nil
	}
	switch {
	case r.Int64 != nil:
		return *r.Int64
	case r.Uint64 != nil:
		return *r.Uint64
	case r.Float64 != nil:
		return *r.Float64
	case r.Bool != nil:
		return *r.Bool
	case r.Str != nil:
		return *r.Str
	}
	return nil
}

func (r *Raw) AsInt64() (int64, bool) {
	switch {
	case r == nil:
		return 0, false
	case r.Int64 != nil:
		return *r.Int64, true
	case r.Uint64 != nil:
		if *r.Uint64 > math.MaxInt64 {
			return 0, false
		}
		return int64(*r.Uint64), true
	case r.Float64 != nil:
		f := *r.Float64
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func (r *Raw) AsUint64() (uint64, bool) {
	switch {
	case r == nil:
		return 0, false
	case r.Uint64 != nil:
		return *r.Uint64, true
	case r.Int64 != nil:
		if *r.Int64 < 0 {
			return 0, false
		}
		return uint64(*r.Int64), true
	case r.Float64 != nil:
		f := *r.Float64
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	}
	return 0, false
}

func (r *Raw) AsFloat64() (float64, bool) {
	switch {
	case r == nil:
		return 0, false
	case r.Float64 != nil:
		return *r.Float64, true
	case r.Int64 != nil:
		return float64(*r.Int64), true
	case r.Uint64 != nil:
		return float64(*r.Uint64), true
	}
	return 0, false
}
