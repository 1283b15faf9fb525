package docmodel

import "encoding/json"

// NodeKind discriminates the closed set of node variants.
type NodeKind string

const (
	KindTitle         NodeKind = "title"
	KindSectionHeader NodeKind = "section_header"
	KindText          NodeKind = "text"
	KindList          NodeKind = "list"
	KindListItem      NodeKind = "list_item"
	KindTable         NodeKind = "table"
	KindPicture       NodeKind = "picture"
)

// Sequence returns the name of the document collection that owns
// nodes of this kind.
func (k NodeKind) Sequence() string {
	switch k {
	case KindList:
		return SeqGroups
	case KindTable:
		return SeqTables
	case KindPicture:
		return SeqPictures
	default:
		return SeqTexts
	}
}

// ContentLayer separates primary body content from furniture
// (headers, footers, repeated chrome) so consumers can filter
// boilerplate without losing it.
type ContentLayer string

const (
	LayerBody      ContentLayer = "body"
	LayerFurniture ContentLayer = "furniture"
)

// Node is the capability shared by every variant. The set of
// implementations is closed: consumers switch on Kind() and must
// handle all seven.
type Node interface {
	Kind() NodeKind
	Core() *NodeCore
}

// NodeCore carries the fields common to every node. Parent and
// Children hold refs into the owning document's sequences; the
// sequences, not these back-pointers, own node lifetime.
type NodeCore struct {
	SelfRef      Ref          `json:"self_ref"`
	Parent       Ref          `json:"parent,omitempty"`
	Children     []Ref        `json:"children"`
	ContentLayer ContentLayer `json:"content_layer"`
	Prov         []Provenance `json:"prov"`
}

func (c *NodeCore) Core() *NodeCore { return c }

// FormatSpan marks an inline formatting run inside a node's text,
// as rune offsets.
type FormatSpan struct {
	Start     int  `json:"start"`
	End       int  `json:"end"`
	Bold      bool `json:"bold,omitempty"`
	Italic    bool `json:"italic,omitempty"`
	Underline bool `json:"underline,omitempty"`
}

// HyperlinkSpan marks a linked run inside a node's text.
type HyperlinkSpan struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	URL   string `json:"url"`
}

// Title is the document's top-level heading. The model does not
// forbid more than one, but well-formed documents have at most one.
type Title struct {
	NodeCore
	Text       string          `json:"text"`
	Formatting []FormatSpan    `json:"formatting,omitempty"`
	Hyperlinks []HyperlinkSpan `json:"hyperlinks,omitempty"`
}

func (t *Title) Kind() NodeKind { return KindTitle }

// SectionHeader is a heading with a level, 1 being the highest.
type SectionHeader struct {
	NodeCore
	Text       string          `json:"text"`
	Level      int             `json:"level"`
	Formatting []FormatSpan    `json:"formatting,omitempty"`
	Hyperlinks []HyperlinkSpan `json:"hyperlinks,omitempty"`
}

func (s *SectionHeader) Kind() NodeKind { return KindSectionHeader }

// Text is a paragraph.
type Text struct {
	NodeCore
	Text       string          `json:"text"`
	Formatting []FormatSpan    `json:"formatting,omitempty"`
	Hyperlinks []HyperlinkSpan `json:"hyperlinks,omitempty"`
}

func (t *Text) Kind() NodeKind { return KindText }

// List is a structural grouping node owning ListItem children.
type List struct {
	NodeCore
	Name       string `json:"name"`
	Enumerated bool   `json:"enumerated"`
}

func (l *List) Kind() NodeKind { return KindList }

// ListItem carries its rendered marker ("1.", "-", "iii.") so
// consumers never have to re-run numbering.
type ListItem struct {
	NodeCore
	Text       string `json:"text"`
	Marker     string `json:"marker"`
	Enumerated bool   `json:"enumerated"`
}

func (l *ListItem) Kind() NodeKind { return KindListItem }

// TableCell is one logical cell; spans > 1 describe merges.
type TableCell struct {
	Text    string `json:"text"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	RowSpan int    `json:"row_span"`
	ColSpan int    `json:"col_span"`
	Header  bool   `json:"header,omitempty"`
}

// TableData is the structured payload of a Table node.
type TableData struct {
	NumRows int         `json:"num_rows"`
	NumCols int         `json:"num_cols"`
	Cells   []TableCell `json:"cells"`
}

// Grid lays the cells out as a dense NumRows x NumCols matrix of
// cell texts, duplicating merged cells into every position they span.
func (d TableData) Grid() [][]string {
	grid := make([][]string, d.NumRows)
	for i := range grid {
		grid[i] = make([]string, d.NumCols)
	}
	for _, c := range d.Cells {
		rspan, cspan := max(c.RowSpan, 1), max(c.ColSpan, 1)
		for r := c.Row; r < c.Row+rspan && r < d.NumRows; r++ {
			for col := c.Col; col < c.Col+cspan && col < d.NumCols; col++ {
				grid[r][col] = c.Text
			}
		}
	}
	return grid
}

// Table holds structured cell data plus a flattened text fallback.
type Table struct {
	NodeCore
	Data TableData `json:"data"`
	Text string    `json:"text,omitempty"`
}

func (t *Table) Kind() NodeKind { return KindTable }

// ImageData is a fully resolved, inlined image payload. URI is a
// data-URI-style encoding of the bytes; the model never stores
// pending references into a source container.
type ImageData struct {
	MimeType string `json:"mimetype"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	DPI      int    `json:"dpi"`
	URI      string `json:"uri"`
}

// Picture is an embedded image with optional caption/footnote links
// to Text nodes elsewhere in the tree.
type Picture struct {
	NodeCore
	Image       *ImageData `json:"image,omitempty"`
	Captions    []Ref      `json:"captions,omitempty"`
	Footnotes   []Ref      `json:"footnotes,omitempty"`
	Annotations []string   `json:"annotations,omitempty"`
}

func (p *Picture) Kind() NodeKind { return KindPicture }

// The marshalers below inject the kind discriminator so the JSON
// projection is self-describing for the quality-verification consumer.

func marshalWithKind(kind NodeKind, v any) ([]byte, error) {
	inner, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head := []byte(`{"kind":"` + string(kind) + `",`)
	if len(inner) == 2 { // "{}"
		return append(head[:len(head)-1], '}'), nil
	}
	return append(head, inner[1:]...), nil
}

func (t *Title) MarshalJSON() ([]byte, error) {
	type alias Title
	return marshalWithKind(KindTitle, (*alias)(t))
}

func (s *SectionHeader) MarshalJSON() ([]byte, error) {
	type alias SectionHeader
	return marshalWithKind(KindSectionHeader, (*alias)(s))
}

func (t *Text) MarshalJSON() ([]byte, error) {
	type alias Text
	return marshalWithKind(KindText, (*alias)(t))
}

func (l *List) MarshalJSON() ([]byte, error) {
	type alias List
	return marshalWithKind(KindList, (*alias)(l))
}

func (l *ListItem) MarshalJSON() ([]byte, error) {
	type alias ListItem
	return marshalWithKind(KindListItem, (*alias)(l))
}

func (t *Table) MarshalJSON() ([]byte, error) {
	type alias Table
	return marshalWithKind(KindTable, (*alias)(t))
}

func (p *Picture) MarshalJSON() ([]byte, error) {
	type alias Picture
	return marshalWithKind(KindPicture, (*alias)(p))
}
