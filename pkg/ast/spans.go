package ast

// Position is a 1-based line/column location plus the byte offset into the
// source text.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// Span covers the source range of a node.
type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// SetSpan annotates the node with the provided span.
func SetSpan(node Node, span Span) {
	if node == nil {
		return
	}
	if setter, ok := node.(interface{ setSpan(Span) }); ok {
		setter.setSpan(span)
	}
}

// ZeroSpan returns an empty span value.
func ZeroSpan() Span {
	return Span{}
}

// Slice returns the source text covered by span, or "" when the span does not
// fit inside src.
func (s Span) Slice(src string) string {
	if s.Start.Offset < 0 || s.End.Offset > len(src) || s.Start.Offset >= s.End.Offset {
		return ""
	}
	return src[s.Start.Offset:s.End.Offset]
}
