package decode

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind int

const (
	// FieldMissing marks data absent from a snapshot.  The field decodes
	// to a missing sentinel and the rest of the snapshot still renders.
	FieldMissing ErrorKind = iota + 1
	// TypeMismatch marks data whose shape contradicts the schema.  The
	// whole snapshot is discarded.
	TypeMismatch
)

func (k ErrorKind) String() string {
	switch k {
	case FieldMissing:
		return "field missing"
	case TypeMismatch:
		return "type mismatch"
	}
	return fmt.Sprintf("<error kind %d>", int(k))
}

type DecodeError struct {
	Kind ErrorKind
	Path string
	Want string
	Got  string
}

func (e *DecodeError) Error() string {
	p := e.Path
	if p == "" {
		p = "<root>"
	}
	if e.Kind == FieldMissing {
		return fmt.Sprintf("%s: %s (want %s)", p, e.Kind, e.Want)
	}
	return fmt.Sprintf("%s: %s: want %s, got %s", p, e.Kind, e.Want, e.Got)
}

// PartialError lists the fields missing from a snapshot which otherwise
// decoded.
type PartialError struct {
	Missing []*DecodeError
}

func (e *PartialError) Error() string {
	paths := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		paths = append(paths, m.Path)
	}
	const show = 5
	if len(paths) > show {
		paths = append(paths[:show], fmt.Sprintf("... (%d more)", len(e.Missing)-show))
	}
	return fmt.Sprintf("%d missing fields: %s", len(e.Missing), strings.Join(paths, ", "))
}

func (e *PartialError) Unwrap() []error {
	res := make([]error, len(e.Missing))
	for i, m := range e.Missing {
		res[i] = m
	}
	return res
}

// Paths returns the paths of the missing fields.
func (e *PartialError) Paths() []string {
	res := make([]string, len(e.Missing))
	for i, m := range e.Missing {
		res[i] = m.Path
	}
	return res
}

// IsFatal reports whether err means a snapshot must be discarded.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	pe := &PartialError{}
	if errors.As(err, &pe) {
		return false
	}
	de := &DecodeError{}
	if errors.As(err, &de) {
		return de.Kind != FieldMissing
	}
	return true
}
