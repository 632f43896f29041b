package format

import (
	"errors"
	"fmt"
)

// Format is the encoding of snapshot and output documents.
type Format int

const (
	YAMLFormat Format = iota
	JSONFormat
	JSONLinesFormat
)

var ErrBadFormat = errors.New("bad format")

func ParseFormat(v string) (Format, error) {
	f, ok := map[string]Format{
		"y":     YAMLFormat,
		"yaml":  YAMLFormat,
		"yml":   YAMLFormat,
		"j":     JSONFormat,
		"json":  JSONFormat,
		"jl":    JSONLinesFormat,
		"jsonl": JSONLinesFormat,
	}[v]
	if ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrBadFormat, v)
}

func (f Format) String() string {
	d, err := f.MarshalText()
	if err != nil {
		return err.Error()
	}
	return string(d)
}

func (f Format) MarshalText() ([]byte, error) {
	switch f {
	case YAMLFormat:
		return []byte("yaml"), nil
	case JSONFormat:
		return []byte("json"), nil
	case JSONLinesFormat:
		return []byte("jsonl"), nil
	default:
		return nil, fmt.Errorf("<err: %d is not a format>", f)
	}
}

func (f *Format) UnmarshalText(d []byte) error {
	pf, err := ParseFormat(string(d))
	if err != nil {
		return err
	}
	*f = pf
	return nil
}

func (f Format) IsJSON() bool  { return f == JSONFormat }
func (f Format) IsJSONL() bool { return f == JSONLinesFormat }
func (f Format) IsYAML() bool  { return f == YAMLFormat }

// Suffix returns the file extension for this format (including the dot).
func (f Format) Suffix() string {
	switch f {
	case YAMLFormat:
		return ".yaml"
	case JSONFormat:
		return ".json"
	case JSONLinesFormat:
		return ".jsonl"
	default:
		return ""
	}
}

// FromPath guesses the format of a file from its extension, falling back
// to def.
func FromPath(path string, def Format) Format {
	for _, f := range AllFormats() {
		if n, s := len(path), f.Suffix(); n > len(s) && path[n-len(s):] == s {
			return f
		}
	}
	if n := len(path); n > 4 && path[n-4:] == ".yml" {
		return YAMLFormat
	}
	return def
}

// AllFormats returns all supported formats in preference order.
func AllFormats() []Format {
	return []Format{YAMLFormat, JSONFormat, JSONLinesFormat}
}
