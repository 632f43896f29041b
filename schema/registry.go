package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"
	"github.com/jettison/panopticon/kpath"
)

// Registry is a loaded, validated schema.
type Registry struct {
	file      *File
	version   string
	hash      string
	root      *Node
	types     map[string]*Node
	semantics map[string]*RuleSpec
	enums     map[string]*EnumSpec
}

type options struct {
	root string
}

type Option func(*options)

// WithRoot overrides the root type declared in the document.
func WithRoot(name string) Option {
	return func(o *options) { o.root = name }
}

// Load parses and validates a schema document.
func Load(data []byte, opts ...Option) (*Registry, error) {
	f := &File{}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, &SchemaError{Kind: BadDocument, Reason: err.Error()}
	}
	sum := sha256.Sum256(data)
	return build(f, hex.EncodeToString(sum[:6]), opts...)
}

// LoadFile reads and loads the schema at path.
func LoadFile(path string, opts ...Option) (*Registry, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := Load(d, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// FromFile validates an in-memory schema document, e.g. one produced by
// [ImportBindings].
func FromFile(f *File, opts ...Option) (*Registry, error) {
	d, err := yaml.Marshal(f)
	if err != nil {
		return nil, &SchemaError{Kind: BadDocument, Reason: err.Error()}
	}
	sum := sha256.Sum256(d)
	return build(f, hex.EncodeToString(sum[:6]), opts...)
}

func build(f *File, hash string, opts ...Option) (*Registry, error) {
	o := &options{root: f.Root}
	for _, opt := range opts {
		opt(o)
	}
	if f.Semantics == nil {
		f.Semantics = map[string]*RuleSpec{}
	}
	if f.Enums == nil {
		f.Enums = map[string]*EnumSpec{}
	}
	b := &builder{
		file:     f,
		nodes:    make(map[string]*Node, len(f.Types)),
		visiting: map[string]bool{},
	}
	if err := b.checkSemantics(); err != nil {
		return nil, err
	}
	for _, name := range sortedKeys(f.Types) {
		if _, err := b.named(name); err != nil {
			return nil, err
		}
	}
	if o.root == "" {
		return nil, &SchemaError{Kind: BadDocument, Reason: "no root type"}
	}
	root, ok := b.nodes[o.root]
	if !ok {
		return nil, schemaErr(UnknownType, o.root, "", "root type is not declared")
	}
	if root.Kind != StructKind {
		return nil, schemaErr(BadDocument, o.root, "", "root type must be a struct, not %s", root.Kind)
	}
	return &Registry{
		file:      f,
		version:   f.Version,
		hash:      hash,
		root:      root,
		types:     b.nodes,
		semantics: f.Semantics,
		enums:     f.Enums,
	}, nil
}

// Root returns the root struct of the schema.
func (r *Registry) Root() *Node { return r.root }

// Version identifies the schema: the declared version followed by a
// hash of the document.  Two registries with equal versions have the same
// shape.
func (r *Registry) Version() string {
	if r.version == "" {
		return r.hash
	}
	return r.version + "@" + r.hash
}

// File returns the document the registry was built from.
func (r *Registry) File() *File { return r.file }

// Types returns the declared named types.
func (r *Registry) Types() map[string]*Node {
	res := make(map[string]*Node, len(r.types))
	for k, v := range r.types {
		res[k] = v
	}
	return res
}

// Semantics returns the display rule declarations keyed by semantic type.
func (r *Registry) Semantics() map[string]*RuleSpec {
	res := make(map[string]*RuleSpec, len(r.semantics))
	for k, v := range r.semantics {
		res[k] = v
	}
	return res
}

// Enums returns the enum tables keyed by name.
func (r *Registry) Enums() map[string]*EnumSpec {
	res := make(map[string]*EnumSpec, len(r.enums))
	for k, v := range r.enums {
		res[k] = v
	}
	return res
}

// Resolve returns the schema node at kp.  Unions with a scalar decoded
// variant are leaves; unions with a struct decoded variant are transparent
// and kp continues into the decoded struct's fields.
func (r *Registry) Resolve(kp *kpath.KPath) (*Node, error) {
	n := r.root
	for x := kp; x != nil; x = x.Next {
		seg := x.SegmentString()
		if n.Kind == UnionKind {
			d := n.DecodedVariant()
			if d.Node.Kind != StructKind {
				return nil, fmt.Errorf("%w: %s: %q is a leaf", ErrSchema, kp, n.Name)
			}
			n = d.Node
		}
		switch {
		case x.Index != nil:
			if n.Kind != ArrayKind {
				return nil, fmt.Errorf("%w: %s: index %s into %s", ErrSchema, kp, seg, n.Kind)
			}
			if *x.Index >= n.Len {
				return nil, fmt.Errorf("%w: %s: index %s out of range [0,%d)", ErrSchema, kp, seg, n.Len)
			}
			n = n.Elem
		case x.Field != nil:
			if n.Kind != StructKind {
				return nil, fmt.Errorf("%w: %s: field %s of %s", ErrSchema, kp, seg, n.Kind)
			}
			f := n.Field(*x.Field)
			if f == nil {
				return nil, fmt.Errorf("%w: %s: no field %s in %s", ErrSchema, kp, seg, n.TypeString())
			}
			n = f.Node
		}
	}
	return n, nil
}

// Walk calls fn for every node path of the schema in pre-order, with
// array elements expanded.  Walk stops at the first error returned by fn.
func (r *Registry) Walk(fn func(*kpath.KPath, *Node) error) error {
	return walk(nil, r.root, fn)
}

func walk(kp *kpath.KPath, n *Node, fn func(*kpath.KPath, *Node) error) error {
	if err := fn(kp, n); err != nil {
		return err
	}
	switch n.Kind {
	case StructKind:
		for _, f := range n.Fields {
			if err := walk(kp.Append(kpath.Field(f.Name)), f.Node, fn); err != nil {
				return err
			}
		}
	case UnionKind:
		if d := n.DecodedVariant(); d.Node.Kind == StructKind {
			for _, f := range d.Node.Fields {
				if err := walk(kp.Append(kpath.Field(f.Name)), f.Node, fn); err != nil {
					return err
				}
			}
		}
	case ArrayKind:
		for i := 0; i < n.Len; i++ {
			if err := walk(kp.Append(kpath.Index(i)), n.Elem, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// StructInfo summarizes one struct type for verification reports.
type StructInfo struct {
	Name   string
	Path   string // first path where the struct occurs
	Count  int    // number of occurrences in the tree
	Fields []*Field
}

// Structs lists the struct types reachable from the root in order of
// first occurrence.
func (r *Registry) Structs() []*StructInfo {
	var (
		res   []*StructInfo
		index = map[*Node]*StructInfo{}
	)
	_ = r.Walk(func(kp *kpath.KPath, n *Node) error {
		if n.Kind == UnionKind && n.DecodedVariant().Node.Kind == StructKind {
			n = n.DecodedVariant().Node
		}
		if n.Kind != StructKind {
			return nil
		}
		if si, ok := index[n]; ok {
			si.Count++
			return nil
		}
		si := &StructInfo{Name: n.Name, Path: kp.String(), Count: 1, Fields: n.Fields}
		if si.Path == "" {
			si.Path = "."
		}
		index[n] = si
		res = append(res, si)
		return nil
	})
	return res
}

func sortedKeys[V any](m map[string]V) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}
