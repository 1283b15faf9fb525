package backend

import (
	"testing"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

func convertMarkdown(t *testing.T, input string) *docmodel.Document {
	t.Helper()
	b := &MarkdownBackend{}
	doc, err := b.Convert([]byte(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}

func TestMarkdownBackend_HeadingsAndParagraphs(t *testing.T) {
	doc := convertMarkdown(t, "# Title\n\nIntro paragraph.\n\n## Section\n\nDetail paragraph.\n")

	if len(doc.Body.Children) != 1 {
		t.Fatalf("expected single root heading, got %d", len(doc.Body.Children))
	}
	top := doc.Resolve(doc.Body.Children[0]).(*docmodel.SectionHeader)
	if top.Text != "Title" || top.Level != 1 {
		t.Errorf("unexpected root heading: %q level %d", top.Text, top.Level)
	}
	if len(top.Children) != 2 {
		t.Fatalf("expected intro and section under root, got %d", len(top.Children))
	}
	sec := doc.Resolve(top.Children[1]).(*docmodel.SectionHeader)
	if sec.Level != 2 {
		t.Errorf("expected level 2, got %d", sec.Level)
	}
	para := doc.Resolve(sec.Children[0]).(*docmodel.Text)
	if para.Text != "Detail paragraph." {
		t.Errorf("unexpected paragraph: %q", para.Text)
	}
}

func TestMarkdownBackend_OrderedList(t *testing.T) {
	doc := convertMarkdown(t, "1. first\n2. second\n3. third\n")

	if len(doc.Groups) != 1 {
		t.Fatalf("expected 1 list, got %d", len(doc.Groups))
	}
	list := doc.Groups[0]
	if !list.Enumerated {
		t.Error("expected enumerated list")
	}
	if len(list.Children) != 3 {
		t.Fatalf("expected 3 items, got %d", len(list.Children))
	}
	last := doc.Resolve(list.Children[2]).(*docmodel.ListItem)
	if last.Marker != "3." {
		t.Errorf("expected marker 3., got %q", last.Marker)
	}
}

func TestMarkdownBackend_ListStart(t *testing.T) {
	doc := convertMarkdown(t, "4. fourth\n5. fifth\n")

	list := doc.Groups[0]
	first := doc.Resolve(list.Children[0]).(*docmodel.ListItem)
	if first.Marker != "4." {
		t.Errorf("expected start honored, got %q", first.Marker)
	}
}

func TestMarkdownBackend_ParenDelimiter(t *testing.T) {
	doc := convertMarkdown(t, "1) one\n2) two\n")

	first := doc.Resolve(doc.Groups[0].Children[0]).(*docmodel.ListItem)
	if first.Marker != "1)" {
		t.Errorf("expected paren delimiter, got %q", first.Marker)
	}
}

func TestMarkdownBackend_NestedLists(t *testing.T) {
	doc := convertMarkdown(t, "- outer\n    - inner\n- outer two\n")

	if len(doc.Groups) != 2 {
		t.Fatalf("expected 2 list nodes, got %d", len(doc.Groups))
	}
	outer := doc.Groups[0]
	if len(outer.Children) != 2 {
		t.Fatalf("expected 2 outer items, got %d", len(outer.Children))
	}
	inner := doc.Groups[1]
	if inner.Parent != outer.Children[0] {
		t.Errorf("expected inner list under first outer item, got %q", inner.Parent)
	}
}

func TestMarkdownBackend_Table(t *testing.T) {
	doc := convertMarkdown(t, "| a | b |\n|---|---|\n| 1 | 2 |\n")

	if len(doc.Tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(doc.Tables))
	}
	data := doc.Tables[0].Data
	if data.NumRows != 2 || data.NumCols != 2 {
		t.Fatalf("expected 2x2, got %dx%d", data.NumRows, data.NumCols)
	}
	grid := data.Grid()
	if grid[0][0] != "a" || grid[1][1] != "2" {
		t.Errorf("unexpected grid: %v", grid)
	}
	// Header row marked.
	headers := 0
	for _, c := range data.Cells {
		if c.Header {
			headers++
		}
	}
	if headers != 2 {
		t.Errorf("expected 2 header cells, got %d", headers)
	}
}

func TestMarkdownBackend_CodeBlockKeptAsText(t *testing.T) {
	doc := convertMarkdown(t, "```\nfunc main() {}\n```\n")
	if len(doc.Texts) != 1 {
		t.Fatalf("expected code block as text, got %d texts", len(doc.Texts))
	}
	if doc.Texts[0].(*docmodel.Text).Text != "func main() {}" {
		t.Errorf("unexpected text: %q", doc.Texts[0].(*docmodel.Text).Text)
	}
}
