package docmodel

import (
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
)

// Metadata holds document-level facts collected once per conversion,
// independent of structural content.
type Metadata struct {
	Title         string         `json:"title,omitempty"`
	Author        string         `json:"author,omitempty"`
	Created       *time.Time     `json:"created,omitempty"`
	Modified      *time.Time     `json:"modified,omitempty"`
	NumPages      int            `json:"num_pages"`
	NumCharacters int            `json:"num_characters"`
	Language      string         `json:"language,omitempty"`
	Pages         []PageGeometry `json:"pages,omitempty"`
}

// SourceMeta is what a backend could read from the source container
// (core properties, OPF metadata, HTML head). Zero values mean the
// source did not declare the fact.
type SourceMeta struct {
	Title    string
	Author   string
	Created  *time.Time
	Modified *time.Time
	Language string
}

// Aggregate computes the document's metadata from source-declared
// facts plus the finished tree and page registry. NumPages is the
// count of the format's natural pagination unit; NumCharacters is
// the Unicode scalar count over all text-bearing node text fields.
func (d *Document) Aggregate(src SourceMeta, pages *ProvBuilder) {
	m := Metadata{
		Title:    src.Title,
		Author:   src.Author,
		Created:  src.Created,
		Modified: src.Modified,
		Language: NormalizeLanguage(src.Language),
	}
	if m.Title == "" {
		for _, n := range d.Texts {
			if t, ok := n.(*Title); ok {
				m.Title = t.Text
				break
			}
		}
	}
	if pages != nil {
		m.NumPages = pages.PageCount()
		m.Pages = pages.Pages()
	}
	if m.NumPages == 0 {
		m.NumPages = d.DistinctPages()
	}
	m.NumCharacters = d.CharacterCount()
	d.Metadata = m
}

// DistinctPages counts the distinct page numbers reachable through
// provenance across the whole tree.
func (d *Document) DistinctPages() int {
	seen := make(map[int]struct{})
	walk := func(core *NodeCore) {
		for _, p := range core.Prov {
			seen[p.PageNo] = struct{}{}
		}
	}
	for _, n := range d.Texts {
		walk(n.Core())
	}
	for _, n := range d.Groups {
		walk(n.Core())
	}
	for _, n := range d.Tables {
		walk(n.Core())
	}
	for _, n := range d.Pictures {
		walk(n.Core())
	}
	return len(seen)
}

// CharacterCount sums rune counts over every text-bearing field:
// the texts sequence plus each table's flattened fallback.
func (d *Document) CharacterCount() int {
	total := 0
	for _, n := range d.Texts {
		switch v := n.(type) {
		case *Title:
			total += utf8.RuneCountInString(v.Text)
		case *SectionHeader:
			total += utf8.RuneCountInString(v.Text)
		case *Text:
			total += utf8.RuneCountInString(v.Text)
		case *ListItem:
			total += utf8.RuneCountInString(v.Text)
		}
	}
	for _, t := range d.Tables {
		total += utf8.RuneCountInString(t.Text)
	}
	return total
}

// NormalizeLanguage canonicalizes a source-declared language to a
// BCP 47 tag, or returns "" if it cannot be parsed.
func NormalizeLanguage(raw string) string {
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return ""
	}
	return tag.String()
}
