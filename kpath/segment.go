package kpath

import "fmt"

func (p *KPath) copySegment() *KPath {
	res := &KPath{}
	if p.Field != nil {
		tmp := *p.Field
		res.Field = &tmp
	}
	if p.Index != nil {
		tmp := *p.Index
		res.Index = &tmp
	}
	return res
}

// Clone returns a deep copy of p.
func (p *KPath) Clone() *KPath {
	if p == nil {
		return nil
	}
	res := p.copySegment()
	res.Next = p.Next.Clone()
	return res
}

// Append returns a new path consisting of p followed by q.  Neither p nor q
// is modified.
func (p *KPath) Append(q *KPath) *KPath {
	if p == nil {
		return q.Clone()
	}
	res := p.Clone()
	last := res
	for last.Next != nil {
		last = last.Next
	}
	last.Next = q.Clone()
	return res
}

// Parent returns the path without its last segment.  The parent of a
// single segment path is the root (nil).
func (p *KPath) Parent() *KPath {
	if p == nil || p.Next == nil {
		return nil
	}
	res := p.copySegment()
	res.Next = p.Next.Parent()
	return res
}

// Last returns the last segment of p.
func (p *KPath) Last() *KPath {
	if p == nil {
		return nil
	}
	x := p
	for x.Next != nil {
		x = x.Next
	}
	return x.copySegment()
}

// Len returns the number of segments in p.
func (p *KPath) Len() int {
	n := 0
	for x := p; x != nil; x = x.Next {
		n++
	}
	return n
}

// Segments returns the segments of p, each a single segment path.
func (p *KPath) Segments() []*KPath {
	res := make([]*KPath, 0, p.Len())
	for x := p; x != nil; x = x.Next {
		res = append(res, x.copySegment())
	}
	return res
}

// SegmentString returns the representation of the first segment only.
//   - KPath{Field: &"a"} → "a"
//   - KPath{Field: &"odd name"} → "'odd name'"
//   - KPath{Index: &0} → "[0]"
func (p *KPath) SegmentString() string {
	if p == nil {
		return ""
	}
	if p.Field != nil {
		return quoteField(*p.Field)
	}
	if p.Index != nil {
		return fmt.Sprintf("[%d]", *p.Index)
	}
	return ""
}

// IsField reports whether the first segment is a field segment.
func (p *KPath) IsField() bool {
	return p != nil && p.Field != nil
}

// Equal reports whether p and q name the same node.
func (p *KPath) Equal(q *KPath) bool {
	return p.Compare(q) == 0
}

// HasPrefix reports whether prefix is p or an ancestor of p.
func (p *KPath) HasPrefix(prefix *KPath) bool {
	x, y := p, prefix
	for y != nil {
		if x == nil || compareSegment(x, y) != 0 {
			return false
		}
		x, y = x.Next, y.Next
	}
	return true
}

// Compare orders paths segment by segment.  Shorter paths sort before their
// extensions, index segments sort before field segments, indices compare
// numerically and fields lexically.
func (p *KPath) Compare(q *KPath) int {
	x, y := p, q
	for x != nil && y != nil {
		if c := compareSegment(x, y); c != 0 {
			return c
		}
		x, y = x.Next, y.Next
	}
	switch {
	case x == nil && y == nil:
		return 0
	case x == nil:
		return -1
	default:
		return 1
	}
}

func compareSegment(a, b *KPath) int {
	switch {
	case a.Index != nil && b.Index != nil:
		switch {
		case *a.Index < *b.Index:
			return -1
		case *a.Index > *b.Index:
			return 1
		}
		return 0
	case a.Index != nil:
		return -1
	case b.Index != nil:
		return 1
	case a.Field != nil && b.Field != nil:
		switch {
		case *a.Field < *b.Field:
			return -1
		case *a.Field > *b.Field:
			return 1
		}
	}
	return 0
}
