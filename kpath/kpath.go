package kpath

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrSyntax = errors.New("kpath syntax error")

// KPath is a linked list of path segments.  Exactly one of Field and Index
// is set on each segment.  The nil *KPath is the root path.
type KPath struct {
	Field *string // struct field name
	Index *int    // fixed array index
	Next  *KPath  // next segment in path (nil for leaf)
}

// Field returns a single field segment.
func Field(name string) *KPath {
	return &KPath{Field: &name}
}

// Index returns a single array index segment.
func Index(i int) *KPath {
	return &KPath{Index: &i}
}

// New builds a path from segments, which are either strings (fields) or
// ints (indices).
func New(segs ...any) *KPath {
	var res *KPath
	for _, s := range segs {
		switch x := s.(type) {
		case string:
			res = res.Append(Field(x))
		case int:
			res = res.Append(Index(x))
		default:
			panic(fmt.Sprintf("kpath.New: segment %v has type %T", s, s))
		}
	}
	return res
}

// String returns the path representation, e.g. "power.modules[3].voltage".
// The root path is "".
func (p *KPath) String() string {
	if p == nil {
		return ""
	}
	buf := bytes.NewBuffer(nil)
	for x := p; x != nil; x = x.Next {
		if x.Field != nil {
			if buf.Len() > 0 {
				buf.WriteByte('.')
			}
			buf.WriteString(quoteField(*x.Field))
			continue
		}
		if x.Index != nil {
			fmt.Fprintf(buf, "[%d]", *x.Index)
		}
	}
	return buf.String()
}

// Parse parses a path string.  The empty string is the root path and
// parses to nil.
//
// Examples:
//   - "a.b.c" → 3 field segments
//   - "a[0].b" → field, index, field
//   - "'odd.name'[1]" → quoted field, index
func Parse(s string) (*KPath, error) {
	if s == "" {
		return nil, nil
	}
	var (
		res *KPath
		i   int
	)
	for i < len(s) {
		c := s[i]
		switch {
		case c == '[':
			j := strings.IndexByte(s[i:], ']')
			if j < 0 {
				return nil, fmt.Errorf("%w: unterminated index at %d in %q", ErrSyntax, i, s)
			}
			n, err := strconv.Atoi(s[i+1 : i+j])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: bad index %q at %d in %q", ErrSyntax, s[i+1:i+j], i, s)
			}
			res = res.Append(Index(n))
			i += j + 1
		case c == '.':
			if res == nil || i == len(s)-1 {
				return nil, fmt.Errorf("%w: misplaced '.' at %d in %q", ErrSyntax, i, s)
			}
			i++
			if s[i] == '.' || s[i] == '[' {
				return nil, fmt.Errorf("%w: empty field at %d in %q", ErrSyntax, i, s)
			}
			name, n, err := scanField(s, i)
			if err != nil {
				return nil, err
			}
			res = res.Append(Field(name))
			i += n
		default:
			if res != nil {
				return nil, fmt.Errorf("%w: expected '.' or '[' at %d in %q", ErrSyntax, i, s)
			}
			name, n, err := scanField(s, i)
			if err != nil {
				return nil, err
			}
			res = Field(name)
			i += n
		}
	}
	return res, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *KPath {
	kp, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return kp
}

func scanField(s string, i int) (string, int, error) {
	if s[i] == '\'' {
		buf := strings.Builder{}
		for j := i + 1; j < len(s); j++ {
			switch s[j] {
			case '\\':
				if j+1 == len(s) {
					return "", 0, fmt.Errorf("%w: dangling escape in %q", ErrSyntax, s)
				}
				j++
				buf.WriteByte(s[j])
			case '\'':
				return buf.String(), j + 1 - i, nil
			default:
				buf.WriteByte(s[j])
			}
		}
		return "", 0, fmt.Errorf("%w: unterminated quote at %d in %q", ErrSyntax, i, s)
	}
	j := i
	for j < len(s) && s[j] != '.' && s[j] != '[' {
		if s[j] == ']' || s[j] == '\'' || s[j] == ' ' {
			return "", 0, fmt.Errorf("%w: unexpected %q at %d in %q", ErrSyntax, s[j], j, s)
		}
		j++
	}
	return s[i:j], j - i, nil
}

func quoteField(f string) string {
	if f != "" && !strings.ContainsAny(f, ".[]' \\") {
		return f
	}
	buf := strings.Builder{}
	buf.WriteByte('\'')
	for i := 0; i < len(f); i++ {
		if f[i] == '\'' || f[i] == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(f[i])
	}
	buf.WriteByte('\'')
	return buf.String()
}
