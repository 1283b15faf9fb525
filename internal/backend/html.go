package backend

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docnorm/internal/docmodel"
	"github.com/dgallion1/docnorm/internal/numbering"
)

// ImageResolver turns an embedded image reference into a fully
// inlined payload. A nil resolver means references outside the
// source (remote URLs in standalone HTML) cannot be resolved; such
// pictures are emitted with alt-text annotations only. A non-nil
// resolver (EPUB manifest lookup) must succeed or the conversion
// fails with a resource-resolution error.
type ImageResolver func(src string) (*docmodel.ImageData, error)

// HTMLBackend handles HTML files. Headings drive the parent
// hierarchy, ul/ol structure drives numbering hints, and
// header/footer/nav/aside land under furniture instead of being
// dropped.
type HTMLBackend struct{}

func (b *HTMLBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, Malformed(FormatHTML, "document", err)
	}

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()
	page := pages.AddPage(docmodel.DefaultPageGeometry)

	w := newHTMLWalker(doc, pages, page, nil)
	body := findElement(root, "body")
	if body == nil {
		body = root
	}
	if err := w.walk(body); err != nil {
		return nil, err
	}
	w.finish()

	meta := docmodel.SourceMeta{Title: baseName(filename)}
	if t := findTitleText(root); t != "" {
		meta.Title = t
	}
	if h := findElement(root, "html"); h != nil {
		meta.Language = attrValue(h, "lang")
	}
	doc.Aggregate(meta, pages)
	return doc, nil
}

type headingEntry struct {
	ref   docmodel.Ref
	level int
}

// htmlWalker emits nodes for one parsed HTML tree. It is also the
// EPUB spine walker, with the page number and image resolver set per
// spine document.
type htmlWalker struct {
	doc     *docmodel.Document
	pages   *docmodel.ProvBuilder
	page    int
	tracker *numbering.Tracker
	cursor  docmodel.SpanCursor
	resolve ImageResolver
	layer   docmodel.ContentLayer
	format  Format

	headings []headingEntry
	listSeq  int
	pending  strings.Builder
}

func newHTMLWalker(doc *docmodel.Document, pages *docmodel.ProvBuilder, page int, resolve ImageResolver) *htmlWalker {
	return &htmlWalker{
		doc:     doc,
		pages:   pages,
		page:    page,
		tracker: numbering.NewTracker(doc),
		resolve: resolve,
		layer:   docmodel.LayerBody,
		format:  FormatHTML,
	}
}

// setPage moves the walker to a new page (EPUB spine boundary).
func (w *htmlWalker) setPage(page int) {
	w.flushPending()
	w.tracker.Interrupt()
	w.page = page
	w.cursor.Reset()
}

// finish closes any open state at end of stream.
func (w *htmlWalker) finish() {
	w.flushPending()
	w.tracker.Interrupt()
}

func (w *htmlWalker) prov(text string) []docmodel.Provenance {
	span := w.cursor.Next(text)
	return []docmodel.Provenance{
		docmodel.WithSpan(w.pages.FullPage(w.page), span.Start, span.End),
	}
}

func (w *htmlWalker) parent() docmodel.Ref {
	if len(w.headings) > 0 {
		return w.headings[len(w.headings)-1].ref
	}
	return ""
}

func (w *htmlWalker) opts(text string) docmodel.NodeOptions {
	return docmodel.NodeOptions{Parent: w.parent(), Layer: w.layer, Prov: w.prov(text)}
}

// flushPending turns accumulated stray text into a generic Text
// node: content the walker failed to classify is never dropped.
func (w *htmlWalker) flushPending() {
	t := strings.TrimSpace(w.pending.String())
	w.pending.Reset()
	if t != "" {
		w.doc.AddText(collapseSpace(t), w.opts(t))
	}
}

func (w *htmlWalker) walk(n *html.Node) error {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "template", "noscript":
			return nil

		case "header", "footer", "nav", "aside":
			// Furniture: kept, but structurally separate from body.
			w.flushPending()
			prev := w.layer
			w.layer = docmodel.LayerFurniture
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if err := w.walk(c); err != nil {
					return err
				}
			}
			w.flushPending()
			w.layer = prev
			return nil

		case "h1", "h2", "h3", "h4", "h5", "h6":
			w.flushPending()
			w.tracker.Interrupt()
			level := int(n.Data[1] - '0')
			text := collapseSpace(textContent(n))
			if text == "" {
				return nil
			}
			for len(w.headings) > 0 && w.headings[len(w.headings)-1].level >= level {
				w.headings = w.headings[:len(w.headings)-1]
			}
			h := w.doc.AddHeading(text, level, w.opts(text))
			w.headings = append(w.headings, headingEntry{ref: h.SelfRef, level: level})
			return nil

		case "p", "blockquote", "pre", "dd", "dt":
			w.flushPending()
			w.tracker.Interrupt()
			text := collapseSpace(textContent(n))
			if text != "" {
				w.doc.AddText(text, w.opts(text))
			}
			return nil

		case "ul", "ol":
			w.flushPending()
			if err := w.walkList(n, 0); err != nil {
				return err
			}
			w.tracker.Interrupt()
			return nil

		case "table":
			w.flushPending()
			w.tracker.Interrupt()
			w.emitTable(n)
			return nil

		case "figure":
			w.flushPending()
			return w.emitFigure(n)

		case "img":
			w.flushPending()
			return w.emitImage(n, nil)

		case "br":
			w.pending.WriteString("\n")
			return nil
		}
	}

	if n.Type == html.TextNode {
		w.pending.WriteString(n.Data)
		return nil
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := w.walk(c); err != nil {
			return err
		}
	}
	return nil
}

// walkList emits numbering hints for one ul/ol subtree. Each list
// element gets its own list id, so two disjoint lists at the same
// indent never share a counter.
func (w *htmlWalker) walkList(list *html.Node, level int) error {
	w.listSeq++
	hint := numbering.Hint{
		ListID:  fmt.Sprintf("l%d", w.listSeq),
		Level:   level,
		Ordered: list.Data == "ol",
	}
	restart := 0
	if v := attrValue(list, "start"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			restart = n
		}
	}

	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		text := collapseSpace(inlineText(li))
		if text != "" {
			h := hint
			if restart > 0 {
				// The restart rides on the first emitted item; empty
				// items must not swallow it.
				h.Restart = restart
				restart = 0
			}
			w.tracker.Item(h, text, docmodel.NodeOptions{Layer: w.layer, Prov: w.prov(text)})
		}
		// Nested lists inside this item.
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ul" || c.Data == "ol") {
				if err := w.walkList(c, level+1); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *htmlWalker) emitTable(n *html.Node) {
	var rows []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			rows = append(rows, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	if len(rows) == 0 {
		return
	}

	var cells []docmodel.TableCell
	numCols := 0
	occupied := make(map[[2]int]bool)
	for r, tr := range rows {
		col := 0
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.Data != "td" && c.Data != "th") {
				continue
			}
			for occupied[[2]int{r, col}] {
				col++
			}
			rowSpan := spanAttr(c, "rowspan")
			colSpan := spanAttr(c, "colspan")
			cells = append(cells, docmodel.TableCell{
				Text:    collapseSpace(textContent(c)),
				Row:     r,
				Col:     col,
				RowSpan: rowSpan,
				ColSpan: colSpan,
				Header:  c.Data == "th",
			})
			for rr := r; rr < r+rowSpan; rr++ {
				for cc := col; cc < col+colSpan; cc++ {
					occupied[[2]int{rr, cc}] = true
				}
			}
			col += colSpan
		}
		if col > numCols {
			numCols = col
		}
	}

	data := docmodel.TableData{NumRows: len(rows), NumCols: numCols, Cells: cells}
	text := collapseSpace(textContent(n))
	w.doc.AddTable(data, text, w.opts(text))
}

func (w *htmlWalker) emitFigure(fig *html.Node) error {
	img := findElement(fig, "img")
	var captionRef docmodel.Ref
	if cap := findElement(fig, "figcaption"); cap != nil {
		text := collapseSpace(textContent(cap))
		if text != "" {
			captionRef = w.doc.AddText(text, w.opts(text)).SelfRef
		}
	}
	if img == nil {
		return nil
	}
	var captions []docmodel.Ref
	if captionRef != "" {
		captions = []docmodel.Ref{captionRef}
	}
	return w.emitImage(img, captions)
}

func (w *htmlWalker) emitImage(img *html.Node, captions []docmodel.Ref) error {
	src := attrValue(img, "src")
	alt := attrValue(img, "alt")

	var payload *docmodel.ImageData
	if strings.HasPrefix(src, "data:") {
		payload = imageFromDataURI(src)
	} else if w.resolve != nil && src != "" {
		resolved, err := w.resolve(src)
		if err != nil {
			return ResourceFailure(w.format, "img "+src, err)
		}
		payload = resolved
	}

	pic := w.doc.AddPicture(payload, docmodel.NodeOptions{
		Parent: w.parent(),
		Layer:  w.layer,
		Prov:   []docmodel.Provenance{w.pages.FullPage(w.page)},
	})
	pic.Captions = captions
	if alt != "" {
		pic.Annotations = append(pic.Annotations, alt)
	}
	return nil
}

// inlineText collects the text of a node excluding nested lists, so
// an li's own text is separate from its sublist items.
func inlineText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		if n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "ol") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return b.String()
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func findTitleText(n *html.Node) string {
	if t := findElement(n, "title"); t != nil {
		return collapseSpace(textContent(t))
	}
	return ""
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func spanAttr(n *html.Node, name string) int {
	if v, err := strconv.Atoi(attrValue(n, name)); err == nil && v > 1 {
		return v
	}
	return 1
}
