package schema

import (
	"fmt"
	"strings"
)

type Kind int

const (
	ScalarKind Kind = iota
	StructKind
	UnionKind
	ArrayKind
)

func (k Kind) String() string {
	switch k {
	case ScalarKind:
		return "scalar"
	case StructKind:
		return "struct"
	case UnionKind:
		return "union"
	case ArrayKind:
		return "array"
	default:
		return fmt.Sprintf("<kind %d>", int(k))
	}
}

// ScalarType is the declared primitive type of a scalar leaf.
type ScalarType int

const (
	Bool ScalarType = iota + 1
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	String
)

var scalarNames = map[ScalarType]string{
	Bool:    "bool",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Uint8:   "uint8",
	Uint16:  "uint16",
	Uint32:  "uint32",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	String:  "string",
}

func ParseScalarType(s string) (ScalarType, bool) {
	for st, name := range scalarNames {
		if name == s {
			return st, true
		}
	}
	return 0, false
}

func (t ScalarType) String() string {
	if s, ok := scalarNames[t]; ok {
		return s
	}
	return fmt.Sprintf("<scalar %d>", int(t))
}

func (t ScalarType) IsInteger() bool {
	return t >= Int8 && t <= Uint64
}

func (t ScalarType) IsSigned() bool {
	return t >= Int8 && t <= Int64
}

func (t ScalarType) IsFloat() bool {
	return t == Float32 || t == Float64
}

// Bits returns the width of numeric types, 0 otherwise.
func (t ScalarType) Bits() int {
	switch t {
	case Int8, Uint8:
		return 8
	case Int16, Uint16:
		return 16
	case Int32, Uint32, Float32:
		return 32
	case Int64, Uint64, Float64:
		return 64
	}
	return 0
}

// DisplayPolicy selects which view of a union is shown when both are
// available.
type DisplayPolicy int

const (
	PreferDecoded DisplayPolicy = iota
	PreferPacked
)

func (p DisplayPolicy) String() string {
	if p == PreferPacked {
		return "packed"
	}
	return "decoded"
}

type Role int

const (
	Decoded Role = iota
	Packed
)

func (r Role) String() string {
	if r == Packed {
		return "packed"
	}
	return "decoded"
}

// Node is a node of the schema graph.  Named struct and union types are
// shared between every field that references them; scalar nodes are
// private to the field (or variant) declaring them, so they carry that
// field's semantic type.
type Node struct {
	Kind Kind
	// Name is the declared type name; empty for scalars and anonymous
	// arrays.
	Name     string
	Scalar   ScalarType
	Semantic string

	Fields []*Field

	Variants []*Variant
	Display  DisplayPolicy

	Elem *Node
	Len  int
}

// Field is a named member of a struct.
type Field struct {
	Name string
	Node *Node
	// Inline unions read their variants from keys of the enclosing
	// object rather than from a nested object.
	Inline bool
	// Split, when set, assembles a 64-bit scalar from two 32-bit halves
	// held in sibling keys.
	Split *Split
}

// Split names the sibling keys holding the halves of a composite 64-bit
// integer.
type Split struct {
	Low  string `yaml:"low" json:"low"`
	High string `yaml:"high" json:"high"`
}

type Variant struct {
	Name string
	Role Role
	Node *Node
}

// Field returns the field called name, or nil.
func (n *Node) Field(name string) *Field {
	for _, f := range n.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// DecodedVariant returns the decoded variant of a union.
func (n *Node) DecodedVariant() *Variant {
	return n.variant(Decoded)
}

// PackedVariant returns the packed variant of a union.
func (n *Node) PackedVariant() *Variant {
	return n.variant(Packed)
}

func (n *Node) variant(r Role) *Variant {
	for _, v := range n.Variants {
		if v.Role == r {
			return v
		}
	}
	return nil
}

// IsLeaf reports whether values of n are displayed as a single line: scalars
// and unions with a scalar decoded view.
func (n *Node) IsLeaf() bool {
	switch n.Kind {
	case ScalarKind:
		return true
	case UnionKind:
		d := n.DecodedVariant()
		return d != nil && d.Node.Kind == ScalarKind
	}
	return false
}

// TypeString gives a short human description such as "uint8",
// "compass" or "[8]power_module".
func (n *Node) TypeString() string {
	switch n.Kind {
	case ScalarKind:
		return n.Scalar.String()
	case ArrayKind:
		return fmt.Sprintf("[%d]%s", n.Len, n.Elem.TypeString())
	default:
		if n.Name != "" {
			return n.Name
		}
		return n.Kind.String()
	}
}

func (n *Node) String() string {
	buf := &strings.Builder{}
	buf.WriteString(n.TypeString())
	if n.Semantic != "" {
		fmt.Fprintf(buf, "(%s)", n.Semantic)
	}
	return buf.String()
}
