package libdiff

import (
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

type SpanOp int

const (
	SpanEqual SpanOp = iota
	SpanInsert
	SpanDelete
)

// Span is a run of characters of a display string change.
type Span struct {
	Op   SpanOp
	Text string
}

// DiffString returns the character level change from one display string
// to another.  If more than half of the shorter string changed, a single
// delete and insert pair is returned instead.
func DiffString(from, to string) []Span {
	if from == to {
		return []Span{{Op: SpanEqual, Text: to}}
	}
	diffCfg := diffpatch.New()
	diffs := diffCfg.DiffCleanupSemantic(diffCfg.DiffMain(from, to, false))
	diffSize := 0
	res := make([]Span, 0, len(diffs))
	for i := range diffs {
		diff := &diffs[i]
		switch diff.Type {
		case diffpatch.DiffInsert:
			res = append(res, Span{Op: SpanInsert, Text: diff.Text})
			diffSize += len(diff.Text)
		case diffpatch.DiffDelete:
			res = append(res, Span{Op: SpanDelete, Text: diff.Text})
			diffSize += len(diff.Text)
		case diffpatch.DiffEqual:
			res = append(res, Span{Op: SpanEqual, Text: diff.Text})
		}
	}
	if diffSize > min(len(from), len(to))/2+1 {
		return replaceSpans(from, to)
	}
	return res
}

func replaceSpans(from, to string) []Span {
	var res []Span
	if from != "" {
		res = append(res, Span{Op: SpanDelete, Text: from})
	}
	if to != "" {
		res = append(res, Span{Op: SpanInsert, Text: to})
	}
	return res
}
