package docmodel

import "encoding/json"

// GroupRoot is one of the two structural roots, "#/body" or
// "#/furniture". Roots are not nodes: they live outside the
// sequences and only collect top-level children.
type GroupRoot struct {
	SelfRef  Ref   `json:"self_ref"`
	Children []Ref `json:"children"`
}

// Document is the normalized document tree. The per-kind sequences
// are the canonical owners of every node; Body/Furniture and all
// parent/children refs are traversal back-pointers into them.
//
// Nodes are appended in document reading order and never removed;
// once a conversion finishes the tree is immutable.
type Document struct {
	Name      string    `json:"name"`
	Body      GroupRoot `json:"body"`
	Furniture GroupRoot `json:"furniture"`

	Texts    []Node     `json:"texts"`
	Groups   []*List    `json:"groups"`
	Tables   []*Table   `json:"tables"`
	Pictures []*Picture `json:"pictures"`

	Metadata Metadata `json:"metadata"`

	alloc *RefAllocator
	index map[Ref]Node
}

// NewDocument creates an empty tree with a fresh, conversion-scoped
// ref allocator. Documents must never be shared across concurrent
// conversions.
func NewDocument(name string) *Document {
	return &Document{
		Name:      name,
		Body:      GroupRoot{SelfRef: RefBody, Children: []Ref{}},
		Furniture: GroupRoot{SelfRef: RefFurniture, Children: []Ref{}},
		Texts:     []Node{},
		Groups:    []*List{},
		Tables:    []*Table{},
		Pictures:  []*Picture{},
		alloc:     NewRefAllocator(),
		index:     make(map[Ref]Node),
	}
}

// Resolve returns the live node for a ref, or nil for roots and
// unknown refs.
func (d *Document) Resolve(ref Ref) Node {
	return d.index[ref]
}

// NodeCount returns the total number of nodes across all sequences.
func (d *Document) NodeCount() int {
	return len(d.Texts) + len(d.Groups) + len(d.Tables) + len(d.Pictures)
}

// RootChildren returns the top-level children of body or furniture.
func (d *Document) RootChildren(root Ref) []Ref {
	if root == RefFurniture {
		return d.Furniture.Children
	}
	return d.Body.Children
}

// append is the single tree-assembly routine: it allocates the
// node's self-ref, inserts it into its kind's sequence, and wires
// the parent/children back-pointers. If parent does not resolve the
// node becomes a root-level child of body (or furniture, per its
// content layer).
func (d *Document) append(n Node, parent Ref) Ref {
	core := n.Core()
	kind := n.Kind()
	core.SelfRef = d.alloc.Alloc(kind.Sequence())
	if core.Children == nil {
		core.Children = []Ref{}
	}
	if core.ContentLayer == "" {
		core.ContentLayer = LayerBody
	}
	if core.Prov == nil {
		core.Prov = []Provenance{}
	}

	switch v := n.(type) {
	case *List:
		d.Groups = append(d.Groups, v)
	case *Table:
		d.Tables = append(d.Tables, v)
	case *Picture:
		d.Pictures = append(d.Pictures, v)
	default:
		d.Texts = append(d.Texts, n)
	}
	d.index[core.SelfRef] = n

	if p := d.Resolve(parent); p != nil {
		pc := p.Core()
		pc.Children = append(pc.Children, core.SelfRef)
		core.Parent = parent
	} else if core.ContentLayer == LayerFurniture {
		d.Furniture.Children = append(d.Furniture.Children, core.SelfRef)
		core.Parent = RefFurniture
	} else {
		d.Body.Children = append(d.Body.Children, core.SelfRef)
		core.Parent = RefBody
	}
	return core.SelfRef
}

// NodeOptions carries the optional arguments common to every
// node-creation call.
type NodeOptions struct {
	Parent Ref
	Layer  ContentLayer
	Prov   []Provenance
}

func (o NodeOptions) core() NodeCore {
	layer := o.Layer
	if layer == "" {
		layer = LayerBody
	}
	prov := o.Prov
	if prov == nil {
		prov = []Provenance{}
	}
	return NodeCore{ContentLayer: layer, Prov: prov}
}

// AddTitle appends the document's top-level heading.
func (d *Document) AddTitle(text string, opts NodeOptions) *Title {
	n := &Title{NodeCore: opts.core(), Text: text}
	d.append(n, opts.Parent)
	return n
}

// AddHeading appends a section header. Levels below 1 are clamped.
func (d *Document) AddHeading(text string, level int, opts NodeOptions) *SectionHeader {
	if level < 1 {
		level = 1
	}
	n := &SectionHeader{NodeCore: opts.core(), Text: text, Level: level}
	d.append(n, opts.Parent)
	return n
}

// AddText appends a paragraph.
func (d *Document) AddText(text string, opts NodeOptions) *Text {
	n := &Text{NodeCore: opts.core(), Text: text}
	d.append(n, opts.Parent)
	return n
}

// AddList appends a list grouping node. Lists are normally created
// through the numbering tracker, which defers creation until the
// first item exists so empty lists never reach a finished tree.
func (d *Document) AddList(name string, enumerated bool, opts NodeOptions) *List {
	n := &List{NodeCore: opts.core(), Name: name, Enumerated: enumerated}
	d.append(n, opts.Parent)
	return n
}

// AddListItem appends a list item under its owning list.
func (d *Document) AddListItem(text, marker string, enumerated bool, opts NodeOptions) *ListItem {
	n := &ListItem{NodeCore: opts.core(), Text: text, Marker: marker, Enumerated: enumerated}
	d.append(n, opts.Parent)
	return n
}

// AddTable appends a table with its structured payload and a
// flattened text fallback.
func (d *Document) AddTable(data TableData, text string, opts NodeOptions) *Table {
	n := &Table{NodeCore: opts.core(), Data: data, Text: text}
	d.append(n, opts.Parent)
	return n
}

// AddPicture appends a picture. The image payload must already be
// fully resolved; the tree never stores pending references.
func (d *Document) AddPicture(img *ImageData, opts NodeOptions) *Picture {
	n := &Picture{NodeCore: opts.core(), Image: img}
	d.append(n, opts.Parent)
	return n
}

// Merge re-appends every node of src, in src's reading order, under
// parent in d. Refs are re-minted by d's allocator and provenance
// page numbers are offset past d's current page count. Used by
// archive backends that combine several member documents into one.
func (d *Document) Merge(src *Document, parent Ref, pageOffset int) {
	remap := make(map[Ref]Ref)
	firstNewPicture := len(d.Pictures)

	var copyTree func(refs []Ref, parent Ref)
	copyTree = func(refs []Ref, parent Ref) {
		for _, ref := range refs {
			n := src.Resolve(ref)
			if n == nil {
				continue
			}
			clone := cloneNode(n, pageOffset)
			newRef := d.append(clone, parent)
			remap[ref] = newRef
			copyTree(n.Core().Children, newRef)
		}
	}
	copyTree(src.Body.Children, parent)
	copyTree(src.Furniture.Children, RefFurniture)

	// Caption/footnote links point at Text nodes copied above. Only
	// the pictures appended by this call carry source-namespace refs;
	// earlier pictures' links are already in d's namespace and may
	// collide with the remap keys.
	for _, p := range d.Pictures[firstNewPicture:] {
		remapRefs(p.Captions, remap)
		remapRefs(p.Footnotes, remap)
	}
}

func remapRefs(refs []Ref, remap map[Ref]Ref) {
	for i, r := range refs {
		if nr, ok := remap[r]; ok {
			refs[i] = nr
		}
	}
}

func cloneNode(n Node, pageOffset int) Node {
	var clone Node
	switch v := n.(type) {
	case *Title:
		c := *v
		clone = &c
	case *SectionHeader:
		c := *v
		clone = &c
	case *Text:
		c := *v
		clone = &c
	case *List:
		c := *v
		clone = &c
	case *ListItem:
		c := *v
		clone = &c
	case *Table:
		c := *v
		clone = &c
	case *Picture:
		c := *v
		c.Captions = append([]Ref(nil), v.Captions...)
		c.Footnotes = append([]Ref(nil), v.Footnotes...)
		clone = &c
	}
	core := clone.Core()
	core.SelfRef = ""
	core.Parent = ""
	core.Children = nil
	prov := make([]Provenance, len(core.Prov))
	for i, p := range core.Prov {
		p.PageNo += pageOffset
		prov[i] = p
	}
	core.Prov = prov
	return clone
}

// MarshalIndent renders the full JSON projection of the tree, every
// field of every node, for the quality-verification consumer.
func (d *Document) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
