package docmodel

import "testing"

func TestNewRef(t *testing.T) {
	if got := NewRef(SeqTexts, 3); got != "#/texts/3" {
		t.Errorf("expected #/texts/3, got %q", got)
	}
	if got := NewRef(SeqGroups, 0); got != "#/groups/0" {
		t.Errorf("expected #/groups/0, got %q", got)
	}
}

func TestRefSplit(t *testing.T) {
	seq, idx, ok := Ref("#/tables/12").Split()
	if !ok {
		t.Fatal("expected split to succeed")
	}
	if seq != "tables" || idx != 12 {
		t.Errorf("expected (tables, 12), got (%s, %d)", seq, idx)
	}
}

func TestRefSplit_RootsAndMalformed(t *testing.T) {
	cases := []Ref{RefBody, RefFurniture, "", "texts/3", "#/texts", "#/texts/x", "#/texts/-1"}
	for _, r := range cases {
		if _, _, ok := r.Split(); ok {
			t.Errorf("expected split to fail for %q", r)
		}
	}
}

func TestRefIsZero(t *testing.T) {
	if !Ref("").IsZero() {
		t.Error("empty ref should be zero")
	}
	if RefBody.IsZero() {
		t.Error("body root should not be zero")
	}
}

func TestRefAllocator_PerSequenceCounters(t *testing.T) {
	a := NewRefAllocator()
	if got := a.Alloc(SeqTexts); got != "#/texts/0" {
		t.Errorf("expected #/texts/0, got %q", got)
	}
	if got := a.Alloc(SeqTexts); got != "#/texts/1" {
		t.Errorf("expected #/texts/1, got %q", got)
	}
	// Other sequences start independently at zero.
	if got := a.Alloc(SeqTables); got != "#/tables/0" {
		t.Errorf("expected #/tables/0, got %q", got)
	}
	if got := a.Alloc(SeqTexts); got != "#/texts/2" {
		t.Errorf("expected #/texts/2, got %q", got)
	}
}
