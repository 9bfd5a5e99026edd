package xmltext

// Token is an allocation-free view of the next XML token.
// Spans are only valid until the next read call.
type Token struct {
	Name         QNameSpan
	Attrs        []AttrSpan
	AttrNeeds    []bool
	AttrRaw      []Span
	AttrRawNeeds []bool
	Text         Span
	Raw          Span
	Line         int
	Column       int
	Kind         Kind
	TextNeeds    bool
	TextRawNeeds bool
	IsXMLDecl    bool
}
