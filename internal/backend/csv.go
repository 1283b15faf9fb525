package backend

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// CSVBackend handles CSV files: one Table node, the first row as
// header cells, the sheet as page 1.
type CSVBackend struct{}

func (b *CSVBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, Malformed(FormatCSV, "csv", err)
	}

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()
	page := pages.AddPage(docmodel.DefaultPageGeometry)

	if len(records) > 0 {
		doc.AddTable(tableFromRows(records, true), flattenRows(records), docmodel.NodeOptions{
			Prov: []docmodel.Provenance{pages.FullPage(page)},
		})
	}

	doc.Aggregate(docmodel.SourceMeta{Title: baseName(filename)}, pages)
	return doc, nil
}

// tableFromRows builds a dense table payload from row-major string
// data. headerRow marks the first row's cells as headers.
func tableFromRows(rows [][]string, headerRow bool) docmodel.TableData {
	numCols := 0
	for _, row := range rows {
		if len(row) > numCols {
			numCols = len(row)
		}
	}
	data := docmodel.TableData{NumRows: len(rows), NumCols: numCols}
	for r, row := range rows {
		for c, cell := range row {
			data.Cells = append(data.Cells, docmodel.TableCell{
				Text:    cell,
				Row:     r,
				Col:     c,
				RowSpan: 1,
				ColSpan: 1,
				Header:  headerRow && r == 0,
			})
		}
	}
	return data
}

// flattenRows is the table's text fallback: rows joined by newlines,
// cells by commas.
func flattenRows(rows [][]string) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(row, ", "))
	}
	return b.String()
}
