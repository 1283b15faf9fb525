package backend

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"

	"github.com/dgallion1/docnorm/internal/docmodel"
	"github.com/dgallion1/docnorm/internal/numbering"
)

// DOCXBackend handles .docx files. Heading and list structure is
// style-name-driven: Heading1-6 set the section hierarchy, and
// ListBullet/ListNumber/ListParagraph styles produce numbering
// hints, with the nesting level taken from the style's trailing
// digit (ListBullet2 is one level in).
type DOCXBackend struct{}

func (b *DOCXBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	parsed, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, Malformed(FormatDocx, "document", err)
	}

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()
	page := pages.AddPage(docmodel.DefaultPageGeometry)
	tracker := numbering.NewTracker(doc)
	var cursor docmodel.SpanCursor

	var headings []headingEntry
	parentRef := func() docmodel.Ref {
		if len(headings) > 0 {
			return headings[len(headings)-1].ref
		}
		return ""
	}
	prov := func(text string) []docmodel.Provenance {
		span := cursor.Next(text)
		return []docmodel.Provenance{
			docmodel.WithSpan(pages.FullPage(page), span.Start, span.End),
		}
	}

	sawTitle := false
	for _, item := range parsed.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			// Not a paragraph (table, drawing, section break). The
			// contract forbids silently dropping what we cannot
			// classify, so keep whatever text it stringifies to.
			if s, isStringer := item.(fmt.Stringer); isStringer {
				tracker.Interrupt()
				if t := strings.TrimSpace(s.String()); t != "" {
					doc.AddText(t, docmodel.NodeOptions{Parent: parentRef(), Prov: prov(t)})
				}
			}
			continue
		}

		style := paraStyle(para)
		text := paraText(para)
		if text == "" {
			continue
		}

		switch {
		case strings.EqualFold(style, "Title") && !sawTitle:
			tracker.Interrupt()
			doc.AddTitle(text, docmodel.NodeOptions{Prov: prov(text)})
			sawTitle = true

		case headingStyleLevel(style) > 0:
			tracker.Interrupt()
			level := headingStyleLevel(style)
			for len(headings) > 0 && headings[len(headings)-1].level >= level {
				headings = headings[:len(headings)-1]
			}
			h := doc.AddHeading(text, level, docmodel.NodeOptions{Parent: parentRef(), Prov: prov(text)})
			headings = append(headings, headingEntry{ref: h.SelfRef, level: level})

		case listStyleHint(style) != nil:
			hint := *listStyleHint(style)
			tracker.Item(hint, text, docmodel.NodeOptions{Parent: parentRef(), Prov: prov(text)})

		default:
			tracker.Interrupt()
			doc.AddText(text, docmodel.NodeOptions{Parent: parentRef(), Prov: prov(text)})
		}
	}
	tracker.Interrupt()

	doc.Aggregate(docmodel.SourceMeta{Title: baseName(filename)}, pages)
	return doc, nil
}

func paraStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func paraText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}

// headingStyleLevel maps "Heading1".."Heading6" (and "heading 1"
// variants) to a level, 0 for non-headings.
func headingStyleLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	rest, ok := strings.CutPrefix(s, "heading")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 || n > 6 {
		return 0
	}
	return n
}

// listStyleHint maps list paragraph styles to numbering hints. Word
// names nested list styles with a trailing digit (ListBullet,
// ListBullet2, ...); the digit minus one is the indent level.
func listStyleHint(style string) *numbering.Hint {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	var base string
	ordered := false
	switch {
	case strings.HasPrefix(s, "listnumber"):
		base, ordered = "listnumber", true
	case strings.HasPrefix(s, "listbullet"):
		base = "listbullet"
	case s == "listparagraph":
		base = "listparagraph"
	default:
		return nil
	}
	level := 0
	if rest := strings.TrimPrefix(s, base); rest != "" {
		if n, err := strconv.Atoi(rest); err == nil && n > 1 {
			level = n - 1
		}
	}
	return &numbering.Hint{ListID: base, Level: level, Ordered: ordered}
}
