package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// bindingStruct is one structure of a legacy C-bindings dump.
type bindingStruct struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Fields []*bindingField `json:"fields"`
}

type bindingField struct {
	Name           string         `json:"name"`
	CType          string         `json:"ctype"`
	ArrayLength    int            `json:"array_length"`
	Details        *bindingStruct `json:"details"`
	ElementDetails *bindingStruct `json:"element_details"`
}

var ctypes = map[string]string{
	"bool":     "bool",
	"_Bool":    "bool",
	"int8_t":   "int8",
	"int16_t":  "int16",
	"int32_t":  "int32",
	"int64_t":  "int64",
	"uint8_t":  "uint8",
	"uint16_t": "uint16",
	"uint32_t": "uint32",
	"uint64_t": "uint64",
	"int":      "int32",
	"float":    "float32",
	"double":   "float64",
	"char":     "string",
}

// LoadBindings imports a legacy bindings dump and loads the result.
func LoadBindings(data []byte, opts ...Option) (*Registry, error) {
	f, err := ImportBindings(data)
	if err != nil {
		return nil, err
	}
	return FromFile(f, opts...)
}

// ImportBindings converts a legacy bindings dump into a schema document.
//
// Unions are recognized by naming once, here: a field x accompanied by a
// sibling x_packed becomes an inline union with x decoded and x_packed
// packed.  A pair of uint32 fields x_lo, x_hi (or x_low, x_high) becomes a
// single split 64-bit field x.
func ImportBindings(data []byte) (*File, error) {
	top := &bindingStruct{}
	if err := json.Unmarshal(data, top); err != nil {
		return nil, &SchemaError{Kind: BadDocument, Reason: err.Error()}
	}
	if top.Type != "structure" || top.Name == "" {
		return nil, &SchemaError{Kind: BadDocument, Reason: "top level is not a named structure"}
	}
	im := &importer{
		file: &File{
			Version: "bindings",
			Root:    typeName(top.Name),
			Types:   map[string]*TypeSpec{},
		},
	}
	if _, err := im.structure(top); err != nil {
		return nil, err
	}
	return im.file, nil
}

type importer struct {
	file *File
}

func typeName(cname string) string {
	cname = strings.TrimPrefix(cname, "struct ")
	return strings.TrimSpace(cname)
}

func (im *importer) structure(bs *bindingStruct) (string, error) {
	name := typeName(bs.Name)
	if _, ok := im.file.Types[name]; ok {
		return name, nil
	}
	ts := &TypeSpec{Kind: "struct"}
	im.file.Types[name] = ts

	byName := make(map[string]*bindingField, len(bs.Fields))
	for _, bf := range bs.Fields {
		byName[bf.Name] = bf
	}
	consumed := map[string]bool{}
	for _, bf := range bs.Fields {
		if consumed[bf.Name] {
			continue
		}
		if p, ok := byName[bf.Name+"_packed"]; ok {
			fs, err := im.union(name, bf, p)
			if err != nil {
				return "", err
			}
			consumed[p.Name] = true
			ts.Fields = append(ts.Fields, fs)
			continue
		}
		if fs := splitField(bf, byName); fs != nil {
			consumed[fs.Split.Low] = true
			consumed[fs.Split.High] = true
			ts.Fields = append(ts.Fields, fs)
			continue
		}
		if strings.HasSuffix(bf.Name, "_packed") {
			if _, ok := byName[strings.TrimSuffix(bf.Name, "_packed")]; ok {
				continue
			}
		}
		fs, err := im.field(name, bf)
		if err != nil {
			return "", err
		}
		ts.Fields = append(ts.Fields, fs)
	}
	return name, nil
}

func (im *importer) field(owner string, bf *bindingField) (*FieldSpec, error) {
	fs := &FieldSpec{Name: bf.Name}
	details := bf.Details
	if bf.ArrayLength > 0 {
		details = bf.ElementDetails
	}
	switch {
	case details != nil:
		t, err := im.structure(details)
		if err != nil {
			return nil, err
		}
		fs.Type = t
	default:
		t, ok := ctypes[baseCType(bf.CType)]
		if !ok {
			return nil, schemaErr(BadScalarType, owner, bf.Name, "unknown ctype %q", bf.CType)
		}
		fs.Type = t
	}
	if bf.ArrayLength > 0 && fs.Type != "string" {
		fs.Length = bf.ArrayLength
	}
	return fs, nil
}

func (im *importer) union(owner string, dec, packed *bindingField) (*FieldSpec, error) {
	df, err := im.field(owner, dec)
	if err != nil {
		return nil, err
	}
	pf, err := im.field(owner, packed)
	if err != nil {
		return nil, err
	}
	if df.Length != 0 || pf.Length != 0 {
		return nil, schemaErr(BadUnionPairing, owner, dec.Name, "union variants cannot be arrays")
	}
	un := owner + "_" + dec.Name
	im.file.Types[un] = &TypeSpec{
		Kind: "union",
		Variants: []*VariantSpec{
			{Name: dec.Name, Role: "decoded", Type: df.Type},
			{Name: packed.Name, Role: "packed", Type: pf.Type},
		},
	}
	return &FieldSpec{Name: dec.Name, Type: un, Inline: true}, nil
}

func splitField(bf *bindingField, byName map[string]*bindingField) *FieldSpec {
	for _, sfx := range [][2]string{{"_lo", "_hi"}, {"_low", "_high"}} {
		for i, own := range sfx {
			base, ok := strings.CutSuffix(bf.Name, own)
			if !ok || base == "" {
				continue
			}
			other, ok := byName[base+sfx[1-i]]
			if !ok || baseCType(bf.CType) != "uint32_t" || baseCType(other.CType) != "uint32_t" {
				continue
			}
			if _, taken := byName[base]; taken {
				continue
			}
			lo, hi := bf, other
			if i == 1 {
				lo, hi = other, bf
			}
			return &FieldSpec{
				Name:  base,
				Type:  "uint64",
				Split: &Split{Low: lo.Name, High: hi.Name},
			}
		}
	}
	return nil
}

func baseCType(ct string) string {
	ct = strings.TrimSpace(ct)
	ct = strings.TrimPrefix(ct, "const ")
	if i := strings.IndexByte(ct, '['); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// TypeNames lists the declared type names, sorted.
func (f *File) TypeNames() []string {
	res := make([]string, 0, len(f.Types))
	for k := range f.Types {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

func (f *File) String() string {
	return fmt.Sprintf("schema %s (root %s, %d types)", f.Version, f.Root, len(f.Types))
}
