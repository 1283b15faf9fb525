package docmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Ref is a type-scoped node identifier of the form "#/texts/3".
// Refs are the only way nodes point at each other; they are plain
// values, never owning pointers, so the tree cannot form cycles.
type Ref string

const (
	RefBody      Ref = "#/body"
	RefFurniture Ref = "#/furniture"
)

// NewRef builds a ref from a sequence name and index.
func NewRef(seq string, index int) Ref {
	return Ref(fmt.Sprintf("#/%s/%d", seq, index))
}

// Split returns the sequence name and index of a ref.
// ok is false for the body/furniture roots and malformed refs.
func (r Ref) Split() (seq string, index int, ok bool) {
	s, found := strings.CutPrefix(string(r), "#/")
	if !found {
		return "", 0, false
	}
	seq, idx, found := strings.Cut(s, "/")
	if !found {
		return "", 0, false
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return "", 0, false
	}
	return seq, n, true
}

// IsZero reports whether the ref is unset (a node with no parent).
func (r Ref) IsZero() bool { return r == "" }

// Sequence names for the per-kind node collections.
const (
	SeqTexts    = "texts"
	SeqGroups   = "groups"
	SeqTables   = "tables"
	SeqPictures = "pictures"
)

// RefAllocator issues monotonically increasing indexes per sequence.
// One allocator exists per conversion; every node-creation site must
// obtain its index here. Handing out a fixed index instead would
// silently collapse distinct nodes into colliding refs, which is the
// defect the structural validator exists to catch.
type RefAllocator struct {
	next map[string]int
}

func NewRefAllocator() *RefAllocator {
	return &RefAllocator{next: make(map[string]int)}
}

// Next returns the next free index for a sequence and advances it.
func (a *RefAllocator) Next(seq string) int {
	n := a.next[seq]
	a.next[seq] = n + 1
	return n
}

// Alloc mints the ref for the next node in a sequence.
func (a *RefAllocator) Alloc(seq string) Ref {
	return NewRef(seq, a.Next(seq))
}
