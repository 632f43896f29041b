package schema

// File is the document form of a schema as read from YAML or JSON.
type File struct {
	Version   string               `yaml:"version" json:"version"`
	Root      string               `yaml:"root" json:"root"`
	Enums     map[string]*EnumSpec `yaml:"enums,omitempty" json:"enums,omitempty"`
	Semantics map[string]*RuleSpec `yaml:"semantics,omitempty" json:"semantics,omitempty"`
	Types     map[string]*TypeSpec `yaml:"types" json:"types"`
}

// EnumSpec is a table of enumerator names keyed by raw value.
type EnumSpec struct {
	// Prefix is stripped from names before display.
	Prefix string           `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Values map[int64]string `yaml:"values" json:"values"`
}

// RuleSpec declares how values of a semantic type are displayed.  Which
// fields apply depends on Rule.
type RuleSpec struct {
	Rule string `yaml:"rule" json:"rule"`

	// scale
	Factor    *float64 `yaml:"factor,omitempty" json:"factor,omitempty"`
	Offset    float64  `yaml:"offset,omitempty" json:"offset,omitempty"`
	Precision *int     `yaml:"precision,omitempty" json:"precision,omitempty"`
	Unit      string   `yaml:"unit,omitempty" json:"unit,omitempty"`

	// enum
	Enum string `yaml:"enum,omitempty" json:"enum,omitempty"`
	// Raw keeps enumerator names as declared instead of title-casing them.
	Raw bool `yaml:"raw,omitempty" json:"raw,omitempty"`

	// bool
	True  string `yaml:"true,omitempty" json:"true,omitempty"`
	False string `yaml:"false,omitempty" json:"false,omitempty"`

	// hex
	Width int `yaml:"width,omitempty" json:"width,omitempty"`

	// time
	Layout   string `yaml:"layout,omitempty" json:"layout,omitempty"`
	Location string `yaml:"location,omitempty" json:"location,omitempty"`
	Millis   bool   `yaml:"millis,omitempty" json:"millis,omitempty"`

	// expr
	Expr string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

// TypeSpec declares a named struct, union or array type.
type TypeSpec struct {
	Kind string `yaml:"kind" json:"kind"`

	// struct
	Fields []*FieldSpec `yaml:"fields,omitempty" json:"fields,omitempty"`

	// union
	Display  string         `yaml:"display,omitempty" json:"display,omitempty"`
	Variants []*VariantSpec `yaml:"variants,omitempty" json:"variants,omitempty"`

	// array
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
	Length   int    `yaml:"length,omitempty" json:"length,omitempty"`
	Semantic string `yaml:"semantic,omitempty" json:"semantic,omitempty"`
}

type FieldSpec struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Semantic string `yaml:"semantic,omitempty" json:"semantic,omitempty"`
	// Length, when non zero, makes the field a fixed array of Type.
	Length int    `yaml:"length,omitempty" json:"length,omitempty"`
	Split  *Split `yaml:"split,omitempty" json:"split,omitempty"`
	Inline bool   `yaml:"inline,omitempty" json:"inline,omitempty"`
}

type VariantSpec struct {
	Name     string `yaml:"name" json:"name"`
	Role     string `yaml:"role" json:"role"`
	Type     string `yaml:"type" json:"type"`
	Semantic string `yaml:"semantic,omitempty" json:"semantic,omitempty"`
}
