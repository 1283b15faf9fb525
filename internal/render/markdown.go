// Package render serializes a finished document tree to Markdown.
// It treats self-refs as opaque and children order as the definitive
// rendering order.
package render

import (
	"strings"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// Options controls rendering.
type Options struct {
	// IncludeFurniture renders furniture content after the body,
	// separated by a rule. Off by default: furniture is boilerplate.
	IncludeFurniture bool
}

// Markdown renders the tree.
func Markdown(doc *docmodel.Document, opts Options) string {
	r := &renderer{doc: doc}
	for _, ref := range doc.Body.Children {
		r.node(ref, 0)
	}
	if opts.IncludeFurniture && len(doc.Furniture.Children) > 0 {
		r.blocks = append(r.blocks, "---")
		for _, ref := range doc.Furniture.Children {
			r.node(ref, 0)
		}
	}
	out := strings.Join(r.blocks, "\n\n")
	if out != "" {
		out += "\n"
	}
	return out
}

type renderer struct {
	doc    *docmodel.Document
	blocks []string
}

// node renders one node and then its children, in children order.
// listDepth tracks indentation for nested lists.
func (r *renderer) node(ref docmodel.Ref, listDepth int) {
	n := r.doc.Resolve(ref)
	if n == nil {
		return
	}

	switch v := n.(type) {
	case *docmodel.Title:
		r.blocks = append(r.blocks, "# "+v.Text)

	case *docmodel.SectionHeader:
		level := min(v.Level+1, 6)
		r.blocks = append(r.blocks, strings.Repeat("#", level)+" "+v.Text)

	case *docmodel.Text:
		if v.Text != "" {
			r.blocks = append(r.blocks, v.Text)
		}

	case *docmodel.List:
		var lines []string
		r.listLines(v, listDepth, &lines)
		if len(lines) > 0 {
			r.blocks = append(r.blocks, strings.Join(lines, "\n"))
		}
		return // items and nested lists already rendered

	case *docmodel.ListItem:
		// Reached only for items detached from any List; render as text.
		r.blocks = append(r.blocks, markerOrDefault(v)+" "+v.Text)

	case *docmodel.Table:
		if t := tableMarkdown(v); t != "" {
			r.blocks = append(r.blocks, t)
		}

	case *docmodel.Picture:
		r.blocks = append(r.blocks, pictureMarkdown(v))
	}

	for _, c := range n.Core().Children {
		r.node(c, listDepth)
	}
}

// listLines renders a List's items with indentation, recursing into
// lists nested under items.
func (r *renderer) listLines(list *docmodel.List, depth int, lines *[]string) {
	indent := strings.Repeat("    ", depth)
	for _, ref := range list.Children {
		item, ok := r.doc.Resolve(ref).(*docmodel.ListItem)
		if !ok {
			continue
		}
		*lines = append(*lines, indent+markerOrDefault(item)+" "+item.Text)
		for _, c := range item.Children {
			if nested, ok := r.doc.Resolve(c).(*docmodel.List); ok {
				r.listLines(nested, depth+1, lines)
			}
		}
	}
}

// markerOrDefault falls back to a plain bullet when a backend left
// the marker empty; correct backends never rely on this.
func markerOrDefault(item *docmodel.ListItem) string {
	if item.Marker == "" {
		return "-"
	}
	return item.Marker
}

func tableMarkdown(t *docmodel.Table) string {
	grid := t.Data.Grid()
	if len(grid) == 0 {
		return ""
	}
	var b strings.Builder
	for i, row := range grid {
		b.WriteString("|")
		for _, cell := range row {
			b.WriteString(" " + escapeCell(cell) + " |")
		}
		b.WriteString("\n")
		if i == 0 {
			b.WriteString("|")
			for range row {
				b.WriteString(" --- |")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

func pictureMarkdown(p *docmodel.Picture) string {
	alt := "image"
	if len(p.Annotations) > 0 {
		alt = p.Annotations[0]
	}
	if p.Image != nil && p.Image.URI != "" {
		return "![" + alt + "](" + p.Image.URI + ")"
	}
	return "![" + alt + "]()"
}
