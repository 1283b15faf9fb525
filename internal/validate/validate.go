// Package validate checks the structural invariants of a finished
// document tree. It inspects the model, not rendered output: the
// defects it exists to catch (colliding self-refs, broken parent
// links, out-of-range provenance) leave the rendered text looking
// perfectly normal.
package validate

import (
	"fmt"

	"github.com/dgallion1/docnorm/internal/docmodel"
	"github.com/dgallion1/docnorm/internal/numbering"
)

// Check names one invariant.
type Check string

const (
	CheckRefUniqueness   Check = "ref_uniqueness"
	CheckRefIntegrity    Check = "ref_integrity"
	CheckProvPageBounds  Check = "prov_page_bounds"
	CheckMarkerMonotonic Check = "marker_monotonic"
	CheckEmptyLists      Check = "empty_lists"
	CheckPageCount       Check = "page_count"
)

// Issue is one invariant violation.
type Issue struct {
	Check  Check        `json:"check"`
	Ref    docmodel.Ref `json:"ref,omitempty"`
	Detail string       `json:"detail"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s", i.Check, i.Ref, i.Detail)
}

// Document runs every check and returns all violations found.
func Document(doc *docmodel.Document) []Issue {
	var issues []Issue
	issues = append(issues, refUniqueness(doc)...)
	issues = append(issues, refIntegrity(doc)...)
	issues = append(issues, provPageBounds(doc)...)
	issues = append(issues, markerMonotonic(doc)...)
	issues = append(issues, emptyLists(doc)...)
	issues = append(issues, pageCount(doc)...)
	return issues
}

func containsRef(refs []docmodel.Ref, want docmodel.Ref) bool {
	for _, r := range refs {
		if r == want {
			return true
		}
	}
	return false
}

func allNodes(doc *docmodel.Document) []docmodel.Node {
	var nodes []docmodel.Node
	nodes = append(nodes, doc.Texts...)
	for _, n := range doc.Groups {
		nodes = append(nodes, n)
	}
	for _, n := range doc.Tables {
		nodes = append(nodes, n)
	}
	for _, n := range doc.Pictures {
		nodes = append(nodes, n)
	}
	return nodes
}

// refUniqueness: no two nodes of the same sequence share an index,
// and every node's ref points back at its own sequence position.
func refUniqueness(doc *docmodel.Document) []Issue {
	var issues []Issue
	seen := make(map[docmodel.Ref]int)
	for _, n := range allNodes(doc) {
		seen[n.Core().SelfRef]++
	}
	for ref, count := range seen {
		if count > 1 {
			issues = append(issues, Issue{
				Check:  CheckRefUniqueness,
				Ref:    ref,
				Detail: fmt.Sprintf("%d nodes share this ref", count),
			})
		}
	}
	check := func(seq string, i int, n docmodel.Node) {
		want := docmodel.NewRef(seq, i)
		if got := n.Core().SelfRef; got != want {
			issues = append(issues, Issue{
				Check:  CheckRefUniqueness,
				Ref:    got,
				Detail: fmt.Sprintf("node at %s position %d carries ref %s", seq, i, got),
			})
		}
	}
	for i, n := range doc.Texts {
		check(docmodel.SeqTexts, i, n)
	}
	for i, n := range doc.Groups {
		check(docmodel.SeqGroups, i, n)
	}
	for i, n := range doc.Tables {
		check(docmodel.SeqTables, i, n)
	}
	for i, n := range doc.Pictures {
		check(docmodel.SeqPictures, i, n)
	}
	return issues
}

// refIntegrity: parents resolve and list the node among their
// children; children resolve and point back at the parent; root
// children resolve.
func refIntegrity(doc *docmodel.Document) []Issue {
	var issues []Issue
	for _, n := range allNodes(doc) {
		core := n.Core()
		if !core.Parent.IsZero() && core.Parent != docmodel.RefBody && core.Parent != docmodel.RefFurniture {
			p := doc.Resolve(core.Parent)
			if p == nil {
				issues = append(issues, Issue{
					Check:  CheckRefIntegrity,
					Ref:    core.SelfRef,
					Detail: fmt.Sprintf("parent %s does not resolve", core.Parent),
				})
			} else if !containsRef(p.Core().Children, core.SelfRef) {
				issues = append(issues, Issue{
					Check:  CheckRefIntegrity,
					Ref:    core.SelfRef,
					Detail: fmt.Sprintf("not listed in children of parent %s", core.Parent),
				})
			}
		}
		for _, c := range core.Children {
			child := doc.Resolve(c)
			if child == nil {
				issues = append(issues, Issue{
					Check:  CheckRefIntegrity,
					Ref:    core.SelfRef,
					Detail: fmt.Sprintf("child %s does not resolve", c),
				})
				continue
			}
			if child.Core().Parent != core.SelfRef {
				issues = append(issues, Issue{
					Check:  CheckRefIntegrity,
					Ref:    c,
					Detail: fmt.Sprintf("parent back-pointer is %s, expected %s", child.Core().Parent, core.SelfRef),
				})
			}
		}
	}
	for _, root := range [][]docmodel.Ref{doc.Body.Children, doc.Furniture.Children} {
		for _, ref := range root {
			if doc.Resolve(ref) == nil {
				issues = append(issues, Issue{
					Check:  CheckRefIntegrity,
					Ref:    ref,
					Detail: "root child does not resolve",
				})
			}
		}
	}
	return issues
}

// provPageBounds: every provenance page number is within the
// document's declared page count.
func provPageBounds(doc *docmodel.Document) []Issue {
	var issues []Issue
	numPages := doc.Metadata.NumPages
	for _, n := range allNodes(doc) {
		core := n.Core()
		for _, p := range core.Prov {
			if p.PageNo < 1 || (numPages > 0 && p.PageNo > numPages) {
				issues = append(issues, Issue{
					Check:  CheckProvPageBounds,
					Ref:    core.SelfRef,
					Detail: fmt.Sprintf("page_no %d outside 1..%d", p.PageNo, numPages),
				})
			}
		}
	}
	return issues
}

// markerMonotonic: within an enumerated list, successive markers
// must strictly increase under at least one consistent numbering
// style ("i." is roman 1 or alpha 9; either reading may carry the
// sequence, but one of them must).
func markerMonotonic(doc *docmodel.Document) []Issue {
	var issues []Issue
	for _, list := range doc.Groups {
		if !list.Enumerated {
			continue
		}
		var prev map[numbering.Style]int
		for _, ref := range list.Children {
			item, ok := doc.Resolve(ref).(*docmodel.ListItem)
			if !ok {
				continue
			}
			cur := numbering.DecodeOrdinal(item.Marker)
			if len(cur) == 0 {
				issues = append(issues, Issue{
					Check:  CheckMarkerMonotonic,
					Ref:    ref,
					Detail: fmt.Sprintf("unparseable ordered marker %q", item.Marker),
				})
				prev = nil
				continue
			}
			if prev != nil {
				increased := false
				for style, n := range cur {
					if p, ok := prev[style]; ok && n > p {
						increased = true
						break
					}
				}
				if !increased {
					issues = append(issues, Issue{
						Check:  CheckMarkerMonotonic,
						Ref:    ref,
						Detail: fmt.Sprintf("marker %q does not advance the sequence", item.Marker),
					})
				}
			}
			prev = cur
		}
	}
	return issues
}

// emptyLists: a List with zero ListItem children must never appear
// in a finished tree.
func emptyLists(doc *docmodel.Document) []Issue {
	var issues []Issue
	for _, list := range doc.Groups {
		items := 0
		for _, ref := range list.Children {
			if _, ok := doc.Resolve(ref).(*docmodel.ListItem); ok {
				items++
			}
		}
		if items == 0 {
			issues = append(issues, Issue{
				Check:  CheckEmptyLists,
				Ref:    list.SelfRef,
				Detail: "list has no items",
			})
		}
	}
	return issues
}

// pageCount: the metadata page count must equal the distinct
// provenance pages whenever both are available.
func pageCount(doc *docmodel.Document) []Issue {
	distinct := doc.DistinctPages()
	declared := doc.Metadata.NumPages
	if distinct == 0 || declared == 0 {
		return nil
	}
	// Pages with no attributable content legitimately leave gaps, so
	// distinct may run below declared; above it is a defect.
	if distinct > declared {
		return []Issue{{
			Check:  CheckPageCount,
			Detail: fmt.Sprintf("provenance reaches %d distinct pages, metadata declares %d", distinct, declared),
		}}
	}
	return nil
}
