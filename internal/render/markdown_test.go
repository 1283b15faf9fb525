package render

import (
	"strings"
	"testing"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

func TestMarkdown_HeadingsAndParagraphs(t *testing.T) {
	doc := docmodel.NewDocument("doc")
	doc.AddTitle("Report", docmodel.NodeOptions{})
	h := doc.AddHeading("Background", 1, docmodel.NodeOptions{})
	doc.AddText("Some text.", docmodel.NodeOptions{Parent: h.SelfRef})
	doc.AddHeading("Deep", 9, docmodel.NodeOptions{Parent: h.SelfRef})

	got := Markdown(doc, Options{})
	want := "# Report\n\n## Background\n\nSome text.\n\n###### Deep\n"
	if got != want {
		t.Errorf("rendered markdown mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarkdown_EmptyDocument(t *testing.T) {
	doc := docmodel.NewDocument("empty")
	if got := Markdown(doc, Options{}); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestMarkdown_ListMarkersAndNesting(t *testing.T) {
	doc := docmodel.NewDocument("doc")
	outer := doc.AddList("list", true, docmodel.NodeOptions{})
	one := doc.AddListItem("first", "1.", true, docmodel.NodeOptions{Parent: outer.SelfRef})
	doc.AddListItem("second", "2.", true, docmodel.NodeOptions{Parent: outer.SelfRef})
	inner := doc.AddList("list", false, docmodel.NodeOptions{Parent: one.SelfRef})
	doc.AddListItem("nested", "*", false, docmodel.NodeOptions{Parent: inner.SelfRef})

	got := Markdown(doc, Options{})
	want := "1. first\n    * nested\n2. second\n"
	if got != want {
		t.Errorf("rendered list mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarkdown_EmptyMarkerFallsBackToBullet(t *testing.T) {
	doc := docmodel.NewDocument("doc")
	l := doc.AddList("list", false, docmodel.NodeOptions{})
	doc.AddListItem("item", "", false, docmodel.NodeOptions{Parent: l.SelfRef})

	got := Markdown(doc, Options{})
	if !strings.HasPrefix(got, "- item") {
		t.Errorf("expected bullet fallback, got %q", got)
	}
}

func TestMarkdown_Table(t *testing.T) {
	doc := docmodel.NewDocument("doc")
	doc.AddTable(docmodel.TableData{
		NumRows: 2,
		NumCols: 2,
		Cells: []docmodel.TableCell{
			{Text: "Name", Row: 0, Col: 0, RowSpan: 1, ColSpan: 1, Header: true},
			{Text: "Qty", Row: 0, Col: 1, RowSpan: 1, ColSpan: 1, Header: true},
			{Text: "apples", Row: 1, Col: 0, RowSpan: 1, ColSpan: 1},
			{Text: "a|b", Row: 1, Col: 1, RowSpan: 1, ColSpan: 1},
		},
	}, "", docmodel.NodeOptions{})

	got := Markdown(doc, Options{})
	want := "| Name | Qty |\n| --- | --- |\n| apples | a\\|b |\n"
	if got != want {
		t.Errorf("rendered table mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarkdown_FurnitureExcludedByDefault(t *testing.T) {
	doc := docmodel.NewDocument("doc")
	doc.AddText("body", docmodel.NodeOptions{})
	doc.AddText("page footer", docmodel.NodeOptions{Layer: docmodel.LayerFurniture})

	got := Markdown(doc, Options{})
	if strings.Contains(got, "page footer") {
		t.Errorf("furniture should be excluded by default, got %q", got)
	}

	got = Markdown(doc, Options{IncludeFurniture: true})
	want := "body\n\n---\n\npage footer\n"
	if got != want {
		t.Errorf("rendered furniture mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestMarkdown_Pictures(t *testing.T) {
	doc := docmodel.NewDocument("doc")
	p := doc.AddPicture(&docmodel.ImageData{MimeType: "image/png", URI: "data:image/png;base64,AAAA"}, docmodel.NodeOptions{})
	p.Annotations = []string{"a chart"}
	doc.AddPicture(nil, docmodel.NodeOptions{})

	got := Markdown(doc, Options{})
	want := "![a chart](data:image/png;base64,AAAA)\n\n![image]()\n"
	if got != want {
		t.Errorf("rendered pictures mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}
