package docmodel

import "testing"

func TestAggregate_SourceDeclaredWins(t *testing.T) {
	doc := NewDocument("meta")
	doc.AddTitle("Tree Title", NodeOptions{})

	doc.Aggregate(SourceMeta{Title: "Declared Title", Author: "A. Writer"}, nil)
	if doc.Metadata.Title != "Declared Title" {
		t.Errorf("expected declared title, got %q", doc.Metadata.Title)
	}
	if doc.Metadata.Author != "A. Writer" {
		t.Errorf("expected author, got %q", doc.Metadata.Author)
	}
}

func TestAggregate_TitleFallsBackToTree(t *testing.T) {
	doc := NewDocument("meta")
	doc.AddText("preamble", NodeOptions{})
	doc.AddTitle("Tree Title", NodeOptions{})

	doc.Aggregate(SourceMeta{}, nil)
	if doc.Metadata.Title != "Tree Title" {
		t.Errorf("expected tree title fallback, got %q", doc.Metadata.Title)
	}
}

func TestAggregate_PagesFromBuilder(t *testing.T) {
	doc := NewDocument("meta")
	pages := NewProvBuilder()
	pages.AddPage(DefaultPageGeometry)
	pages.AddPage(DefaultPageGeometry)

	doc.Aggregate(SourceMeta{}, pages)
	if doc.Metadata.NumPages != 2 {
		t.Errorf("expected 2 pages, got %d", doc.Metadata.NumPages)
	}
	if len(doc.Metadata.Pages) != 2 {
		t.Errorf("expected 2 page geometries, got %d", len(doc.Metadata.Pages))
	}
}

func TestAggregate_PagesFallBackToProvenance(t *testing.T) {
	doc := NewDocument("meta")
	doc.AddText("a", NodeOptions{Prov: []Provenance{{PageNo: 1}}})
	doc.AddText("b", NodeOptions{Prov: []Provenance{{PageNo: 3}}})

	doc.Aggregate(SourceMeta{}, nil)
	if doc.Metadata.NumPages != 2 {
		t.Errorf("expected 2 distinct pages, got %d", doc.Metadata.NumPages)
	}
}

func TestCharacterCount_RunesNotBytes(t *testing.T) {
	doc := NewDocument("chars")
	doc.AddText("héllo", NodeOptions{}) // 5 runes, 6 bytes
	doc.AddTable(TableData{NumRows: 1, NumCols: 1, Cells: []TableCell{{Text: "ab", RowSpan: 1, ColSpan: 1}}}, "ab", NodeOptions{})

	if got := doc.CharacterCount(); got != 7 {
		t.Errorf("expected 7 characters, got %d", got)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"en", "en"},
		{"EN-us", "en-US"},
		{"", ""},
		{"not a language!", ""},
	}
	for _, c := range cases {
		if got := NormalizeLanguage(c.raw); got != c.want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}
