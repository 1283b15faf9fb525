package backend

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// XLSXBackend handles .xlsx workbooks. Each sheet is one page in
// workbook order, contributing a section header named after the
// sheet and one Table node with the sheet's cell grid.
type XLSXBackend struct{}

func (b *XLSXBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	files, err := zipMap(data, FormatXLSX)
	if err != nil {
		return nil, err
	}

	workbook, err := xmlEntry(files, "xl/workbook.xml", FormatXLSX)
	if err != nil {
		return nil, err
	}
	sheets := xmlquery.Find(workbook, "//"+localName("sheet"))
	if len(sheets) == 0 {
		return nil, Malformed(FormatXLSX, "xl/workbook.xml", fmt.Errorf("workbook has no sheets"))
	}

	shared := sharedStrings(files)
	rels := workbookRels(files)

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()

	for i, sheet := range sheets {
		name := sheet.SelectAttr("name")
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		entry := sheetEntry(sheet, i, rels)
		ws, err := xmlEntry(files, entry, FormatXLSX)
		if err != nil {
			return nil, err
		}

		page := pages.AddPage(docmodel.DefaultPageGeometry)
		prov := []docmodel.Provenance{pages.FullPage(page)}
		header := doc.AddHeading(name, 1, docmodel.NodeOptions{Prov: prov})

		rows := sheetRows(ws, shared)
		if len(rows) > 0 {
			doc.AddTable(tableFromRows(rows, true), flattenRows(rows), docmodel.NodeOptions{
				Parent: header.SelfRef,
				Prov:   prov,
			})
		}
	}

	meta := readCoreProps(files, FormatXLSX)
	if meta.Title == "" {
		meta.Title = baseName(filename)
	}
	doc.Aggregate(meta, pages)
	return doc, nil
}

// sheetEntry resolves a sheet's worksheet part through the workbook
// relationships. Position is not identity: after reordering or
// deleting sheets the file numbers no longer line up with workbook
// order, so the positional name is only a fallback for packages
// missing the rels part.
func sheetEntry(sheet *xmlquery.Node, pos int, rels map[string]string) string {
	if target, ok := rels[attrLocal(sheet, "id")]; ok && target != "" {
		if strings.HasPrefix(target, "/") {
			return strings.TrimPrefix(target, "/")
		}
		return path.Clean("xl/" + target)
	}
	return fmt.Sprintf("xl/worksheets/sheet%d.xml", pos+1)
}

// workbookRels reads xl/_rels/workbook.xml.rels into an Id → Target
// map. A missing or unreadable part yields nil.
func workbookRels(files map[string][]byte) map[string]string {
	content, ok := files["xl/_rels/workbook.xml.rels"]
	if !ok {
		return nil
	}
	root, err := xmlquery.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil
	}
	rels := make(map[string]string)
	for _, rel := range xmlquery.Find(root, "//"+localName("Relationship")) {
		id := rel.SelectAttr("Id")
		if id != "" {
			rels[id] = rel.SelectAttr("Target")
		}
	}
	return rels
}

// attrLocal reads an attribute by local name, ignoring its namespace
// prefix (r:id arrives under varying prefixes).
func attrLocal(n *xmlquery.Node, local string) string {
	for _, a := range n.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// sharedStrings reads xl/sharedStrings.xml; InnerText flattens rich
// text runs inside an si element.
func sharedStrings(files map[string][]byte) []string {
	content, ok := files["xl/sharedStrings.xml"]
	if !ok {
		return nil
	}
	root, err := xmlquery.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil
	}
	items := xmlquery.Find(root, "//"+localName("si"))
	out := make([]string, len(items))
	for i, si := range items {
		out[i] = si.InnerText()
	}
	return out
}

// sheetRows materializes a worksheet's cells as a dense row-major
// grid, resolving shared-string and inline-string cells.
func sheetRows(ws *xmlquery.Node, shared []string) [][]string {
	var rows [][]string
	for _, row := range xmlquery.Find(ws, "//"+localName("row")) {
		var cells []string
		for _, c := range xmlquery.Find(row, localName("c")) {
			col := columnIndex(c.SelectAttr("r"))
			if col < 0 {
				col = len(cells)
			}
			for len(cells) <= col {
				cells = append(cells, "")
			}
			cells[col] = cellValue(c, shared)
		}
		rows = append(rows, cells)
	}
	return rows
}

func cellValue(c *xmlquery.Node, shared []string) string {
	switch c.SelectAttr("t") {
	case "s":
		v := xmlquery.FindOne(c, localName("v"))
		if v == nil {
			return ""
		}
		idx, err := strconv.Atoi(strings.TrimSpace(v.InnerText()))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "inlineStr":
		if is := xmlquery.FindOne(c, localName("is")); is != nil {
			return is.InnerText()
		}
		return ""
	default:
		if v := xmlquery.FindOne(c, localName("v")); v != nil {
			return strings.TrimSpace(v.InnerText())
		}
		return ""
	}
}

// columnIndex turns an A1-style cell reference's letters into a
// 0-based column number; -1 if the reference is absent.
func columnIndex(ref string) int {
	col := 0
	seen := false
	for i := 0; i < len(ref); i++ {
		ch := ref[i]
		if ch >= 'A' && ch <= 'Z' {
			col = col*26 + int(ch-'A') + 1
			seen = true
			continue
		}
		break
	}
	if !seen {
		return -1
	}
	return col - 1
}
