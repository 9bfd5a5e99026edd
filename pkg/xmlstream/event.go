package xmlstream

// EventKind identifies the kind of streaming XML event.
type EventKind uint8

const (
	EventStartElement EventKind = iota
	EventEndElement
	EventCharData
	EventComment
	EventPI
	EventDirective
)

// String returns a stable name for the kind.
func (k EventKind) String() string {
	switch k {
	case EventStartElement:
		return "StartElement"
	case EventEndElement:
		return "EndElement"
	case EventCharData:
		return "CharData"
	case EventComment:
		return "Comment"
	case EventPI:
		return "PI"
	case EventDirective:
		return "Directive"
	default:
		return "Unknown"
	}
}

// QName is a namespace-resolved name.
type QName struct {
	Namespace string
	Local     string
}

// ElementID is a monotonic identifier assigned per document.
type ElementID uint64

// Attr is a resolved attribute. Raw holds the qualified name as written.
// Namespace declarations are reported through NamespaceDecls, not as Attrs.
type Attr struct {
	Name  QName
	Raw   []byte
	Value []byte
}

// Event is a single streaming XML event.
// Raw, Attrs and Text are only valid until the next Next call.
type Event struct {
	Name       QName
	Raw        []byte
	Attrs      []Attr
	Text       []byte
	Kind       EventKind
	Line       int
	Column     int
	ID         ElementID
	ScopeDepth int
}
