package backend

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docnorm/internal/docmodel"
	"github.com/dgallion1/docnorm/internal/numbering"
)

// MarkdownBackend handles Markdown files using goldmark, with GFM
// tables enabled.
type MarkdownBackend struct{}

func (b *MarkdownBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(data))

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()
	page := pages.AddPage(docmodel.DefaultPageGeometry)

	w := &mdWalker{
		doc:     doc,
		pages:   pages,
		page:    page,
		tracker: numbering.NewTracker(doc),
		src:     data,
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n)
	}
	w.tracker.Interrupt()

	doc.Aggregate(docmodel.SourceMeta{Title: baseName(filename)}, pages)
	return doc, nil
}

type mdWalker struct {
	doc     *docmodel.Document
	pages   *docmodel.ProvBuilder
	page    int
	tracker *numbering.Tracker
	cursor  docmodel.SpanCursor
	src     []byte

	headings []headingEntry
	listSeq  int
}

func (w *mdWalker) parent() docmodel.Ref {
	if len(w.headings) > 0 {
		return w.headings[len(w.headings)-1].ref
	}
	return ""
}

func (w *mdWalker) opts(text string) docmodel.NodeOptions {
	span := w.cursor.Next(text)
	return docmodel.NodeOptions{
		Parent: w.parent(),
		Prov: []docmodel.Provenance{
			docmodel.WithSpan(w.pages.FullPage(w.page), span.Start, span.End),
		},
	}
}

func (w *mdWalker) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		w.tracker.Interrupt()
		title := string(node.Text(w.src))
		for len(w.headings) > 0 && w.headings[len(w.headings)-1].level >= node.Level {
			w.headings = w.headings[:len(w.headings)-1]
		}
		h := w.doc.AddHeading(title, node.Level, w.opts(title))
		w.headings = append(w.headings, headingEntry{ref: h.SelfRef, level: node.Level})

	case *ast.List:
		w.list(node, 0)
		w.tracker.Interrupt()

	case *east.Table:
		w.tracker.Interrupt()
		w.table(node)

	default:
		w.tracker.Interrupt()
		t := mdText(n, w.src)
		if t != "" {
			w.doc.AddText(t, w.opts(t))
		}
	}
}

func (w *mdWalker) list(list *ast.List, level int) {
	w.listSeq++
	hint := numbering.Hint{
		ListID:  fmt.Sprintf("l%d", w.listSeq),
		Level:   level,
		Ordered: list.IsOrdered(),
	}
	if list.IsOrdered() && list.Marker == ')' {
		hint.Delim = ")"
	}
	restart := 0
	if list.IsOrdered() && list.Start > 1 {
		restart = list.Start
	}

	first := true
	for li := list.FirstChild(); li != nil; li = li.NextSibling() {
		h := hint
		if first && restart > 0 {
			h.Restart = restart
		}
		first = false

		// The item's own text comes from its non-list children;
		// nested lists recurse afterwards, one level deeper.
		var parts []string
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if _, nested := c.(*ast.List); nested {
				continue
			}
			if t := mdText(c, w.src); t != "" {
				parts = append(parts, t)
			}
		}
		itemText := strings.Join(parts, " ")
		if itemText != "" {
			span := w.cursor.Next(itemText)
			w.tracker.Item(h, itemText, docmodel.NodeOptions{
				Parent: w.parent(),
				Prov: []docmodel.Provenance{
					docmodel.WithSpan(w.pages.FullPage(w.page), span.Start, span.End),
				},
			})
		}
		for c := li.FirstChild(); c != nil; c = c.NextSibling() {
			if nested, ok := c.(*ast.List); ok {
				w.list(nested, level+1)
			}
		}
	}
}

func (w *mdWalker) table(t *east.Table) {
	var rows [][]string
	var headerRows int
	for section := t.FirstChild(); section != nil; section = section.NextSibling() {
		switch sec := section.(type) {
		case *east.TableHeader:
			rows = append(rows, mdTableRow(sec, w.src))
			headerRows++
		case *east.TableRow:
			rows = append(rows, mdTableRow(sec, w.src))
		}
	}
	if len(rows) == 0 {
		return
	}
	data := tableFromRows(rows, headerRows > 0)
	text := flattenRows(rows)
	w.doc.AddTable(data, text, w.opts(text))
}

func mdTableRow(row ast.Node, src []byte) []string {
	var cells []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, string(c.Text(src)))
	}
	return cells
}

// mdText flattens a block node's text content, line by line for
// blocks and inline by inline for its children.
func mdText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	if buf.Len() == 0 {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			} else {
				buf.WriteString(mdText(c, src))
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
