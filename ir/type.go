package ir

import "fmt"

type Type int

const (
	ScalarType Type = iota
	StructType
	UnionType
	ArrayType
)

func (t Type) String() string {
	s, ok := map[Type]string{
		ScalarType: "Scalar",
		StructType: "Struct",
		UnionType:  "Union",
		ArrayType:  "Array",
	}[t]
	if ok {
		return s
	}
	return "<unknown type>"
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(d []byte) error {
	tt, ok := map[string]Type{
		"Scalar": ScalarType,
		"Struct": StructType,
		"Union":  UnionType,
		"Array":  ArrayType,
	}[string(d)]
	if !ok {
		return fmt.Errorf("unrecognized type %q", d)
	}
	*t = tt
	return nil
}
