package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/jettison/panopticon/format"
)

// docDecoder yields successive documents of a stream.
type docDecoder interface {
	Decode(v any) error
}

type jsonLines struct {
	sc *bufio.Scanner
}

func (j *jsonLines) Decode(v any) error {
	for j.sc.Scan() {
		line := bytes.TrimSpace(j.sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := unmarshalJSON(line, v); err != nil {
			return fmt.Errorf("%w: %w", ErrDocument, err)
		}
		return nil
	}
	if err := j.sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func unmarshalJSON(d []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(d))
	dec.UseNumber()
	return dec.Decode(v)
}

func newDocDecoder(r io.Reader, f format.Format) docDecoder {
	switch f {
	case format.JSONFormat:
		dec := json.NewDecoder(r)
		dec.UseNumber()
		return dec
	case format.JSONLinesFormat:
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
		return &jsonLines{sc: sc}
	default:
		return yaml.NewDecoder(r)
	}
}

// ParseDocument parses the last document held in d.  Streams with several
// documents (YAML multi-doc, JSON lines) yield their newest entry.
func ParseDocument(d []byte, f format.Format) (any, error) {
	dec := newDocDecoder(bytes.NewReader(d), f)
	var (
		res   any
		found bool
	)
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s document: %w", f, err)
		}
		res, found = v, true
	}
	if !found {
		return nil, fmt.Errorf("parsing %s document: %w", f, io.ErrUnexpectedEOF)
	}
	return res, nil
}
