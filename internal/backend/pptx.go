package backend

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/dgallion1/docnorm/internal/docmodel"
	"github.com/dgallion1/docnorm/internal/numbering"
)

// PPTXBackend handles .pptx presentations. Slides are pages in deck
// order; title placeholders become the document title (first slide)
// or section headers, and bullet properties (buChar/buAutoNum)
// produce numbering hints.
type PPTXBackend struct{}

func (b *PPTXBackend) Convert(data []byte, filename string) (*docmodel.Document, error) {
	files, err := zipMap(data, FormatPPTX)
	if err != nil {
		return nil, err
	}

	slideNames := slideEntries(files)
	if len(slideNames) == 0 {
		return nil, Malformed(FormatPPTX, "ppt/slides", fmt.Errorf("no slides in package"))
	}

	doc := docmodel.NewDocument(baseName(filename))
	pages := docmodel.NewProvBuilder()
	tracker := numbering.NewTracker(doc)

	sawTitle := false
	// buAutoNum startAt is repeated on every paragraph of a list;
	// it is a restart directive only the first time a list key
	// appears.
	started := make(map[string]bool)
	for slideIdx, entry := range slideNames {
		slide, err := xmlEntry(files, entry, FormatPPTX)
		if err != nil {
			return nil, err
		}
		// Slides are 10 x 7.5 inches by default.
		page := pages.AddPage(docmodel.PageGeometry{Width: 720, Height: 540})
		prov := []docmodel.Provenance{pages.FullPage(page)}

		var slideHeader docmodel.Ref
		for shapeIdx, sp := range xmlquery.Find(slide, "//"+localName("sp")) {
			isTitle := false
			if ph := xmlquery.FindOne(sp, ".//"+localName("ph")); ph != nil {
				t := ph.SelectAttr("type")
				isTitle = t == "title" || t == "ctrTitle"
			}

			for _, para := range xmlquery.Find(sp, ".//"+localName("txBody")+"//"+localName("p")) {
				text := paraRunsText(para)
				if text == "" {
					continue
				}

				if isTitle {
					tracker.Interrupt()
					if !sawTitle && slideIdx == 0 {
						doc.AddTitle(text, docmodel.NodeOptions{Prov: prov})
						sawTitle = true
					} else {
						h := doc.AddHeading(text, 1, docmodel.NodeOptions{Prov: prov})
						slideHeader = h.SelfRef
					}
					continue
				}

				if hint, ok := bulletHint(para, slideIdx, shapeIdx); ok {
					key := fmt.Sprintf("%s/%d", hint.ListID, hint.Level)
					if started[key] {
						hint.Restart = 0
					}
					started[key] = true
					tracker.Item(hint, text, docmodel.NodeOptions{Parent: slideHeader, Prov: prov})
					continue
				}
				tracker.Interrupt()
				doc.AddText(text, docmodel.NodeOptions{Parent: slideHeader, Prov: prov})
			}
			tracker.Interrupt()
		}
	}
	tracker.Interrupt()

	meta := readCoreProps(files, FormatPPTX)
	if meta.Title == "" {
		meta.Title = baseName(filename)
	}
	doc.Aggregate(meta, pages)
	return doc, nil
}

// slideEntries returns ppt/slides/slideN.xml names in numeric order.
func slideEntries(files map[string][]byte) []string {
	type slide struct {
		name string
		num  int
	}
	var slides []slide
	for name := range files {
		rest, ok := strings.CutPrefix(name, "ppt/slides/slide")
		if !ok {
			continue
		}
		numStr, isXML := strings.CutSuffix(rest, ".xml")
		if !isXML {
			continue
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		slides = append(slides, slide{name: name, num: n})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })
	out := make([]string, len(slides))
	for i, s := range slides {
		out[i] = s.name
	}
	return out
}

// paraRunsText concatenates the a:t runs of one a:p paragraph.
func paraRunsText(para *xmlquery.Node) string {
	var b strings.Builder
	for _, t := range xmlquery.Find(para, ".//"+localName("t")) {
		b.WriteString(t.InnerText())
	}
	return strings.TrimSpace(b.String())
}

// autoNumStyles maps buAutoNum type attributes to numbering styles
// and delimiters.
var autoNumStyles = map[string]struct {
	style numbering.Style
	delim string
}{
	"arabicPeriod":  {numbering.Decimal, "."},
	"arabicParenR":  {numbering.Decimal, ")"},
	"romanLcPeriod": {numbering.LowerRoman, "."},
	"romanLcParenR": {numbering.LowerRoman, ")"},
	"romanUcPeriod": {numbering.UpperRoman, "."},
	"alphaLcPeriod": {numbering.LowerAlpha, "."},
	"alphaLcParenR": {numbering.LowerAlpha, ")"},
	"alphaUcPeriod": {numbering.UpperAlpha, "."},
}

// bulletHint reads a paragraph's bullet properties. Paragraphs
// without explicit bullet properties are treated as plain text; the
// slide master's inherited bullets are out of reach here and per-
// level style is explicit input by design.
func bulletHint(para *xmlquery.Node, slideIdx, shapeIdx int) (numbering.Hint, bool) {
	pPr := xmlquery.FindOne(para, localName("pPr"))
	if pPr == nil {
		return numbering.Hint{}, false
	}
	level := 0
	if v := pPr.SelectAttr("lvl"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			level = n
		}
	}
	hint := numbering.Hint{
		ListID: fmt.Sprintf("s%d-sp%d", slideIdx, shapeIdx),
		Level:  level,
	}
	if auto := xmlquery.FindOne(pPr, localName("buAutoNum")); auto != nil {
		hint.Ordered = true
		if m, ok := autoNumStyles[auto.SelectAttr("type")]; ok {
			hint.Style = m.style
			hint.Delim = m.delim
		}
		if v := auto.SelectAttr("startAt"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 1 {
				hint.Restart = n
			}
		}
		return hint, true
	}
	if xmlquery.FindOne(pPr, localName("buChar")) != nil {
		return hint, true
	}
	return numbering.Hint{}, false
}
