package backend

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// PDFBackend is the bypass pipeline: PDF intentionally does not
// populate the document tree. Text is extracted page by page and
// rendered to Markdown directly, with no tree interchange.
type PDFBackend struct{}

func (b *PDFBackend) Render(data []byte, filename string) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", Malformed(FormatPDF, "document", err)
	}

	var out strings.Builder
	out.WriteString("# " + baseName(filename) + "\n")

	numPages := reader.NumPage()
	wrote := false
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&out, "\n## Page %d\n\n%s\n", i, text)
		wrote = true
	}
	if !wrote {
		return "", Malformed(FormatPDF, "pages", fmt.Errorf("no extractable text in %d pages", numPages))
	}
	return out.String(), nil
}
