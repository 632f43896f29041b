package schema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrSchema = errors.New("schema error")

type ErrorKind int

const (
	UnknownType ErrorKind = iota + 1
	InvalidArrayLength
	BadUnionPairing
	RecursiveType
	DuplicateField
	BadScalarType
	UnknownSemantic
	UnknownEnum
	InvalidSplit
	BadDocument
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownType:
		return "unknown type reference"
	case InvalidArrayLength:
		return "invalid array length"
	case BadUnionPairing:
		return "unrecognized union variant pairing"
	case RecursiveType:
		return "recursive type"
	case DuplicateField:
		return "duplicate field"
	case BadScalarType:
		return "bad scalar type"
	case UnknownSemantic:
		return "unknown semantic type"
	case UnknownEnum:
		return "unknown enum"
	case InvalidSplit:
		return "invalid split"
	case BadDocument:
		return "bad document"
	}
	return fmt.Sprintf("<error kind %d>", int(k))
}

// SchemaError reports a malformed schema.  Type names the declared type
// where the problem was found and Path the field (or variant) within it.
type SchemaError struct {
	Kind   ErrorKind
	Type   string
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	buf := &strings.Builder{}
	buf.WriteString("schema")
	if e.Type != "" {
		fmt.Fprintf(buf, " type %q", e.Type)
	}
	if e.Path != "" {
		fmt.Fprintf(buf, " at %q", e.Path)
	}
	fmt.Fprintf(buf, ": %s", e.Kind)
	if e.Reason != "" {
		fmt.Fprintf(buf, ": %s", e.Reason)
	}
	return buf.String()
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

func schemaErr(kind ErrorKind, typ, path, format string, args ...any) *SchemaError {
	return &SchemaError{Kind: kind, Type: typ, Path: path, Reason: fmt.Sprintf(format, args...)}
}
