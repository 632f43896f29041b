package schema

var knownRules = map[string]bool{
	"identity": true,
	"scale":    true,
	"enum":     true,
	"bool":     true,
	"hex":      true,
	"time":     true,
	"expr":     true,
}

type builder struct {
	file     *File
	nodes    map[string]*Node
	visiting map[string]bool
}

func (b *builder) checkSemantics() error {
	for _, name := range sortedKeys(b.file.Semantics) {
		rs := b.file.Semantics[name]
		if rs == nil || !knownRules[rs.Rule] {
			rule := ""
			if rs != nil {
				rule = rs.Rule
			}
			return schemaErr(UnknownSemantic, "", name, "unknown rule %q", rule)
		}
		switch rs.Rule {
		case "enum":
			if _, ok := b.file.Enums[rs.Enum]; !ok {
				return schemaErr(UnknownEnum, "", name, "enum %q is not declared", rs.Enum)
			}
		case "scale":
			if rs.Factor == nil {
				return schemaErr(UnknownSemantic, "", name, "scale rule without factor")
			}
		case "expr":
			if rs.Expr == "" {
				return schemaErr(UnknownSemantic, "", name, "expr rule without expr")
			}
		}
	}
	return nil
}

func (b *builder) named(name string) (*Node, error) {
	if n, ok := b.nodes[name]; ok {
		return n, nil
	}
	if b.visiting[name] {
		return nil, schemaErr(RecursiveType, name, "", "type %q refers to itself", name)
	}
	ts, ok := b.file.Types[name]
	if !ok || ts == nil {
		return nil, schemaErr(UnknownType, name, "", "type %q is not declared", name)
	}
	if _, isScalar := ParseScalarType(name); isScalar {
		return nil, schemaErr(BadDocument, name, "", "type name shadows scalar type")
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	var (
		n   *Node
		err error
	)
	switch ts.Kind {
	case "struct":
		n, err = b.structType(name, ts)
	case "union":
		n, err = b.unionType(name, ts)
	case "array":
		n, err = b.arrayType(name, name, ts.Type, ts.Semantic, ts.Length)
		if n != nil {
			n.Name = name
		}
	default:
		return nil, schemaErr(BadDocument, name, "", "unknown kind %q", ts.Kind)
	}
	if err != nil {
		return nil, err
	}
	b.nodes[name] = n
	return n, nil
}

// ref resolves a type reference made by a field, variant or array of
// owner.
func (b *builder) ref(owner, path, typ, semantic string) (*Node, error) {
	if semantic != "" {
		if _, ok := b.file.Semantics[semantic]; !ok {
			return nil, schemaErr(UnknownSemantic, owner, path, "semantic type %q is not declared", semantic)
		}
	}
	if st, ok := ParseScalarType(typ); ok {
		return &Node{Kind: ScalarKind, Scalar: st, Semantic: semantic}, nil
	}
	if typ == "" {
		return nil, schemaErr(BadScalarType, owner, path, "no type given")
	}
	if _, ok := b.file.Types[typ]; !ok {
		return nil, schemaErr(UnknownType, owner, path, "type %q is not declared", typ)
	}
	if b.visiting[typ] {
		return nil, schemaErr(RecursiveType, owner, path, "type %q refers to itself through %q", typ, owner)
	}
	n, err := b.named(typ)
	if err != nil {
		return nil, err
	}
	if semantic != "" {
		return nil, schemaErr(UnknownSemantic, owner, path, "semantic type %q on non scalar type %q", semantic, typ)
	}
	return n, nil
}

func (b *builder) arrayType(owner, path, elem, semantic string, length int) (*Node, error) {
	if length <= 0 {
		return nil, schemaErr(InvalidArrayLength, owner, path, "length %d", length)
	}
	en, err := b.ref(owner, path, elem, semantic)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: ArrayKind, Elem: en, Len: length}, nil
}

func (b *builder) structType(name string, ts *TypeSpec) (*Node, error) {
	if len(ts.Fields) == 0 {
		return nil, schemaErr(BadDocument, name, "", "struct has no fields")
	}
	n := &Node{Kind: StructKind, Name: name}
	keys := map[string]string{}
	claim := func(key, by string) error {
		if prev, ok := keys[key]; ok {
			return schemaErr(DuplicateField, name, by, "key %q already used by %q", key, prev)
		}
		keys[key] = by
		return nil
	}
	for _, fs := range ts.Fields {
		if fs == nil || fs.Name == "" {
			return nil, schemaErr(BadDocument, name, "", "field without name")
		}
		if n.Field(fs.Name) != nil {
			return nil, schemaErr(DuplicateField, name, fs.Name, "field declared twice")
		}
		f := &Field{Name: fs.Name, Inline: fs.Inline}
		var err error
		switch {
		case fs.Length != 0:
			f.Node, err = b.arrayType(name, fs.Name, fs.Type, fs.Semantic, fs.Length)
		default:
			f.Node, err = b.ref(name, fs.Name, fs.Type, fs.Semantic)
		}
		if err != nil {
			return nil, err
		}
		if fs.Split != nil {
			if err := checkSplit(name, fs, f.Node); err != nil {
				return nil, err
			}
			f.Split = &Split{Low: fs.Split.Low, High: fs.Split.High}
			if err := claim(f.Split.Low, fs.Name); err != nil {
				return nil, err
			}
			if err := claim(f.Split.High, fs.Name); err != nil {
				return nil, err
			}
		}
		if fs.Inline {
			if f.Node.Kind != UnionKind {
				return nil, schemaErr(BadDocument, name, fs.Name, "only unions can be inline, not %s", f.Node.Kind)
			}
			for _, v := range f.Node.Variants {
				if err := claim(v.Name, fs.Name); err != nil {
					return nil, err
				}
			}
		}
		if !fs.Inline {
			if err := claim(fs.Name, fs.Name); err != nil {
				return nil, err
			}
		}
		n.Fields = append(n.Fields, f)
	}
	return n, nil
}

func checkSplit(owner string, fs *FieldSpec, n *Node) error {
	if n.Kind != ScalarKind || (n.Scalar != Int64 && n.Scalar != Uint64) {
		return schemaErr(InvalidSplit, owner, fs.Name, "split requires int64 or uint64, not %s", n.TypeString())
	}
	if fs.Split.Low == "" || fs.Split.High == "" || fs.Split.Low == fs.Split.High {
		return schemaErr(InvalidSplit, owner, fs.Name, "split needs two distinct keys, got %q and %q", fs.Split.Low, fs.Split.High)
	}
	return nil
}

func (b *builder) unionType(name string, ts *TypeSpec) (*Node, error) {
	n := &Node{Kind: UnionKind, Name: name}
	switch ts.Display {
	case "", "decoded":
		n.Display = PreferDecoded
	case "packed":
		n.Display = PreferPacked
	default:
		return nil, schemaErr(BadDocument, name, "", "unknown display policy %q", ts.Display)
	}
	if len(ts.Variants) != 2 {
		return nil, schemaErr(BadUnionPairing, name, "", "want one decoded and one packed variant, got %d variants", len(ts.Variants))
	}
	for _, vs := range ts.Variants {
		if vs == nil || vs.Name == "" {
			return nil, schemaErr(BadUnionPairing, name, "", "variant without name")
		}
		v := &Variant{Name: vs.Name}
		switch vs.Role {
		case "decoded":
			v.Role = Decoded
		case "packed":
			v.Role = Packed
		default:
			return nil, schemaErr(BadUnionPairing, name, vs.Name, "unknown role %q", vs.Role)
		}
		if n.variant(v.Role) != nil {
			return nil, schemaErr(BadUnionPairing, name, vs.Name, "second %s variant", v.Role)
		}
		vn, err := b.ref(name, vs.Name, vs.Type, vs.Semantic)
		if err != nil {
			return nil, err
		}
		v.Node = vn
		n.Variants = append(n.Variants, v)
	}
	if n.Variants[0].Name == n.Variants[1].Name {
		return nil, schemaErr(BadUnionPairing, name, n.Variants[0].Name, "variants share a name")
	}
	p := n.PackedVariant().Node
	if p.Kind != ScalarKind || !p.Scalar.IsInteger() {
		return nil, schemaErr(BadUnionPairing, name, n.PackedVariant().Name, "packed variant must be an integer scalar, not %s", p.TypeString())
	}
	switch d := n.DecodedVariant().Node; d.Kind {
	case ScalarKind, StructKind:
	default:
		return nil, schemaErr(BadUnionPairing, name, n.DecodedVariant().Name, "decoded variant must be a scalar or struct, not %s", d.Kind)
	}
	return n, nil
}
