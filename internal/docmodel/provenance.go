package docmodel

import "unicode/utf8"

// BBox is a spatial region in points, top-left origin, y increasing
// downward. All provenance is normalized to this convention
// regardless of the source coordinate system.
type BBox struct {
	Left   float64 `json:"l"`
	Top    float64 `json:"t"`
	Right  float64 `json:"r"`
	Bottom float64 `json:"b"`
}

// CharSpan is a half-open rune range into a page- or sheet-level
// character stream.
type CharSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Provenance attributes a node to a location in the source document.
type Provenance struct {
	PageNo   int       `json:"page_no"` // 1-based page/slide/sheet
	BBox     BBox      `json:"bbox"`
	CharSpan *CharSpan `json:"charspan,omitempty"`
}

// PageGeometry is the extent of one page/slide/sheet in points.
type PageGeometry struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DefaultPageGeometry is used by flow formats with no fixed page
// geometry (US Letter in points).
var DefaultPageGeometry = PageGeometry{Width: 612, Height: 792}

// ProvBuilder tracks page geometry for one conversion and produces
// normalized provenance records. Backends that cannot determine a
// bounding region emit the degenerate full-page record rather than
// omitting provenance, so page attribution is never lost.
type ProvBuilder struct {
	pages []PageGeometry
}

func NewProvBuilder() *ProvBuilder {
	return &ProvBuilder{}
}

// AddPage registers the next page and returns its 1-based number.
func (b *ProvBuilder) AddPage(geom PageGeometry) int {
	if geom.Width <= 0 || geom.Height <= 0 {
		geom = DefaultPageGeometry
	}
	b.pages = append(b.pages, geom)
	return len(b.pages)
}

// PageCount returns the number of registered pages.
func (b *ProvBuilder) PageCount() int { return len(b.pages) }

// Pages returns the registered page geometries in order.
func (b *ProvBuilder) Pages() []PageGeometry { return b.pages }

func (b *ProvBuilder) geometry(page int) PageGeometry {
	if page >= 1 && page <= len(b.pages) {
		return b.pages[page-1]
	}
	return DefaultPageGeometry
}

// FullPage returns the degenerate full-extent record for a page.
func (b *ProvBuilder) FullPage(page int) Provenance {
	g := b.geometry(page)
	return Provenance{
		PageNo: page,
		BBox:   BBox{Left: 0, Top: 0, Right: g.Width, Bottom: g.Height},
	}
}

// FromTopLeft builds provenance from coordinates already in the
// document convention.
func (b *ProvBuilder) FromTopLeft(page int, box BBox) Provenance {
	return Provenance{PageNo: page, BBox: box}
}

// FromBottomLeft converts a bottom-left-origin region (PDF-style,
// y increasing upward) to the document convention by flipping
// against the page height.
func (b *ProvBuilder) FromBottomLeft(page int, left, bottom, right, top float64) Provenance {
	h := b.geometry(page).Height
	return Provenance{
		PageNo: page,
		BBox:   BBox{Left: left, Top: h - top, Right: right, Bottom: h - bottom},
	}
}

// WithSpan attaches a character span to a provenance record.
func WithSpan(p Provenance, start, end int) Provenance {
	p.CharSpan = &CharSpan{Start: start, End: end}
	return p
}

// SpanCursor tracks a running rune offset into a page-level
// character stream, for flow backends whose only precise location
// information is the character span.
type SpanCursor struct {
	offset int
}

// Next consumes text and returns its span in the stream.
func (c *SpanCursor) Next(text string) CharSpan {
	start := c.offset
	c.offset += utf8.RuneCountInString(text)
	return CharSpan{Start: start, End: c.offset}
}

// Reset rewinds the cursor, typically at a page boundary.
func (c *SpanCursor) Reset() { c.offset = 0 }
