package backend

import (
	"bufio"
	"bytes"
	"strings"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// TextBackend handles plain text files. Blank lines separate
// paragraphs; the whole file is one page, with character spans
// carrying the real location information.
type TextBackend struct{}

func (b *TextBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, IOFailure(FormatText, err)
	}

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()
	page := pages.AddPage(docmodel.DefaultPageGeometry)
	var cursor docmodel.SpanCursor

	for _, para := range paragraphs {
		span := cursor.Next(para)
		doc.AddText(para, docmodel.NodeOptions{
			Prov: []docmodel.Provenance{
				docmodel.WithSpan(pages.FullPage(page), span.Start, span.End),
			},
		})
	}

	doc.Aggregate(docmodel.SourceMeta{Title: baseName(filename)}, pages)
	return doc, nil
}
