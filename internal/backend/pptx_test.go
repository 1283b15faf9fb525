package backend

import (
	"testing"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

func minimalPPTX(t *testing.T) []byte {
	return buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree>
    <p:sp>
      <p:nvSpPr><p:nvPr><p:ph type="ctrTitle"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>Quarterly Review</a:t></a:r></a:p></p:txBody>
    </p:sp>
    <p:sp>
      <p:txBody><a:p><a:r><a:t>Opening remarks</a:t></a:r></a:p></p:txBody>
    </p:sp>
  </p:spTree></p:cSld>
</p:sld>`,
		"ppt/slides/slide2.xml": `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree>
    <p:sp>
      <p:nvSpPr><p:nvPr><p:ph type="title"/></p:nvPr></p:nvSpPr>
      <p:txBody><a:p><a:r><a:t>Results</a:t></a:r></a:p></p:txBody>
    </p:sp>
    <p:sp>
      <p:txBody>
        <a:p><a:pPr><a:buAutoNum type="arabicPeriod"/></a:pPr><a:r><a:t>Revenue up</a:t></a:r></a:p>
        <a:p><a:pPr><a:buAutoNum type="arabicPeriod"/></a:pPr><a:r><a:t>Costs down</a:t></a:r></a:p>
      </p:txBody>
    </p:sp>
    <p:sp>
      <p:txBody>
        <a:p><a:pPr><a:buChar char="&#8226;"/></a:pPr><a:r><a:t>Preliminary figures</a:t></a:r></a:p>
      </p:txBody>
    </p:sp>
  </p:spTree></p:cSld>
</p:sld>`,
		"docProps/core.xml": `<?xml version="1.0"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <dc:title>Q3 Deck</dc:title>
  <dc:creator>Finance</dc:creator>
</cp:coreProperties>`,
	})
}

func TestPPTX_TitleAndHeadings(t *testing.T) {
	b := &PPTXBackend{}
	doc, err := b.Convert(minimalPPTX(t), "deck.pptx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	title, ok := doc.Texts[0].(*docmodel.Title)
	if !ok || title.Text != "Quarterly Review" {
		t.Errorf("expected first-slide title placeholder as document title, got %+v", doc.Texts[0])
	}

	var heading *docmodel.SectionHeader
	for _, n := range doc.Texts {
		if h, ok := n.(*docmodel.SectionHeader); ok {
			heading = h
			break
		}
	}
	if heading == nil || heading.Text != "Results" || heading.Level != 1 {
		t.Fatalf("expected later title placeholders as level-1 headings, got %+v", heading)
	}
}

func TestPPTX_SlidesArePages(t *testing.T) {
	b := &PPTXBackend{}
	doc, err := b.Convert(minimalPPTX(t), "deck.pptx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Metadata.NumPages != 2 {
		t.Errorf("expected 2 pages for 2 slides, got %d", doc.Metadata.NumPages)
	}
	if g := doc.Metadata.Pages[0]; g.Width != 720 || g.Height != 540 {
		t.Errorf("expected default slide geometry 720x540, got %+v", g)
	}

	var remarks *docmodel.Text
	for _, n := range doc.Texts {
		if p, ok := n.(*docmodel.Text); ok && p.Text == "Opening remarks" {
			remarks = p
		}
	}
	if remarks == nil {
		t.Fatal("expected body paragraph from slide 1")
	}
	if len(remarks.Prov) == 0 || remarks.Prov[0].PageNo != 1 {
		t.Errorf("expected slide-1 provenance, got %+v", remarks.Prov)
	}
}

func TestPPTX_AutoNumberedBullets(t *testing.T) {
	b := &PPTXBackend{}
	doc, err := b.Convert(minimalPPTX(t), "deck.pptx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ordered *docmodel.List
	for _, l := range doc.Groups {
		if l.Enumerated {
			ordered = l
		}
	}
	if ordered == nil {
		t.Fatal("expected an enumerated list from buAutoNum bullets")
	}
	if len(ordered.Children) != 2 {
		t.Fatalf("expected 2 items, got %d", len(ordered.Children))
	}
	first := doc.Resolve(ordered.Children[0]).(*docmodel.ListItem)
	second := doc.Resolve(ordered.Children[1]).(*docmodel.ListItem)
	if first.Marker != "1." || second.Marker != "2." {
		t.Errorf("expected markers 1. and 2., got %q and %q", first.Marker, second.Marker)
	}
	if first.Prov[0].PageNo != 2 {
		t.Errorf("expected slide-2 provenance on list items, got %+v", first.Prov)
	}
}

func TestPPTX_CharBullets(t *testing.T) {
	b := &PPTXBackend{}
	doc, err := b.Convert(minimalPPTX(t), "deck.pptx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var bullets *docmodel.List
	for _, l := range doc.Groups {
		if !l.Enumerated {
			bullets = l
		}
	}
	if bullets == nil {
		t.Fatal("expected an unordered list from buChar bullets")
	}
	item := doc.Resolve(bullets.Children[0]).(*docmodel.ListItem)
	if item.Text != "Preliminary figures" || item.Marker != "-" {
		t.Errorf("expected level-0 bullet item, got %q marker %q", item.Text, item.Marker)
	}
}

func TestPPTX_StartAtRepeatedPerParagraph(t *testing.T) {
	// startAt rides on every paragraph of the list; only the first
	// occurrence may restart the counter.
	data := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": `<?xml version="1.0"?>
<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">
  <p:cSld><p:spTree>
    <p:sp>
      <p:txBody>
        <a:p><a:pPr><a:buAutoNum type="arabicPeriod" startAt="3"/></a:pPr><a:r><a:t>third</a:t></a:r></a:p>
        <a:p><a:pPr><a:buAutoNum type="arabicPeriod" startAt="3"/></a:pPr><a:r><a:t>fourth</a:t></a:r></a:p>
      </p:txBody>
    </p:sp>
  </p:spTree></p:cSld>
</p:sld>`,
	})

	b := &PPTXBackend{}
	doc, err := b.Convert(data, "deck.pptx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Groups) != 1 || len(doc.Groups[0].Children) != 2 {
		t.Fatalf("expected one list with 2 items, got %+v", doc.Groups)
	}
	first := doc.Resolve(doc.Groups[0].Children[0]).(*docmodel.ListItem)
	second := doc.Resolve(doc.Groups[0].Children[1]).(*docmodel.ListItem)
	if first.Marker != "3." || second.Marker != "4." {
		t.Errorf("expected markers 3. and 4., got %q and %q", first.Marker, second.Marker)
	}
}

func TestPPTX_Metadata(t *testing.T) {
	b := &PPTXBackend{}
	doc, err := b.Convert(minimalPPTX(t), "deck.pptx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Metadata.Title != "Q3 Deck" {
		t.Errorf("expected declared title, got %q", doc.Metadata.Title)
	}
	if doc.Metadata.Author != "Finance" {
		t.Errorf("expected declared author, got %q", doc.Metadata.Author)
	}
}

func TestPPTX_NoSlides(t *testing.T) {
	data := buildZip(t, map[string]string{"docProps/core.xml": `<cp:coreProperties xmlns:cp="x"/>`})

	b := &PPTXBackend{}
	_, err := b.Convert(data, "deck.pptx")
	if err == nil {
		t.Fatal("expected error for package without slides")
	}
	class, ok := Classify(err)
	if !ok || class != ClassMalformedSource {
		t.Errorf("expected malformed_source class, got %q (%v)", class, ok)
	}
}
