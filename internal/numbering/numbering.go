// Package numbering reconstructs list structure and marker text from
// a stream of paragraph-level numbering hints emitted by a backend.
package numbering

import (
	"strconv"
	"strings"

	"github.com/dgallion1/docnorm/internal/docmodel"
)

// Style is a numbering style for ordered lists.
type Style string

const (
	Decimal    Style = "decimal"
	LowerRoman Style = "lower_roman"
	UpperRoman Style = "upper_roman"
	LowerAlpha Style = "lower_alpha"
	UpperAlpha Style = "upper_alpha"
)

// Bullet glyphs by indent level (cycled past the last).
var bullets = []string{"-", "*", "+"}

// Hint is one paragraph's numbering facts as seen by a backend.
// Style and Delim are explicit per hint: an inner list never
// inherits the outer level's style.
type Hint struct {
	ListID  string
	Level   int // 0-based indent level
	Ordered bool
	Style   Style  // ordered lists only; "" means Decimal
	Delim   string // "." or ")"; "" means "."
	Restart int    // > 0: reset the counter to this value for this item
}

type counterKey struct {
	id    string
	level int
}

type openList struct {
	id       string
	level    int
	ordered  bool
	ref      docmodel.Ref
	lastItem docmodel.Ref
}

// Tracker is the conversion-scoped list state machine. It owns the
// per-(list,level) counters and the stack of currently open lists,
// and appends List/ListItem nodes to the document as hints arrive.
//
// List nodes are created lazily, on the first item at a given
// (list, level): a finished tree therefore never contains an empty
// List even when every candidate paragraph was filtered upstream.
type Tracker struct {
	doc      *docmodel.Document
	counters map[counterKey]int
	stack    []openList
}

func NewTracker(doc *docmodel.Document) *Tracker {
	return &Tracker{doc: doc, counters: make(map[counterKey]int)}
}

// Item consumes one hint and appends the list item, opening or
// closing List nodes as the indent structure demands. opts.Parent is
// the nearest non-list ancestor, used when a new top-level list
// opens; nested lists parent under the enclosing list item.
func (t *Tracker) Item(hint Hint, text string, opts docmodel.NodeOptions) *docmodel.ListItem {
	// Close lists that this hint cannot continue: deeper levels, or
	// the same level under a different identity.
	for len(t.stack) > 0 {
		top := &t.stack[len(t.stack)-1]
		if top.level > hint.Level ||
			(top.level == hint.Level && (top.id != hint.ListID || top.ordered != hint.Ordered)) {
			t.stack = t.stack[:len(t.stack)-1]
			continue
		}
		break
	}

	if len(t.stack) == 0 || t.stack[len(t.stack)-1].level < hint.Level {
		parent := opts.Parent
		if len(t.stack) > 0 {
			// Nesting: the new list hangs off the enclosing item.
			parent = t.stack[len(t.stack)-1].lastItem
		}
		list := t.doc.AddList(listName(hint), hint.Ordered, docmodel.NodeOptions{
			Parent: parent,
			Layer:  opts.Layer,
		})
		t.stack = append(t.stack, openList{
			id:      hint.ListID,
			level:   hint.Level,
			ordered: hint.Ordered,
			ref:     list.SelfRef,
		})
	}
	top := &t.stack[len(t.stack)-1]

	key := counterKey{id: hint.ListID, level: hint.Level}
	if hint.Restart > 0 {
		t.counters[key] = hint.Restart
	} else {
		t.counters[key]++
	}

	item := t.doc.AddListItem(text, t.marker(hint, t.counters[key]), hint.Ordered, docmodel.NodeOptions{
		Parent: top.ref,
		Layer:  opts.Layer,
		Prov:   opts.Prov,
	})
	top.lastItem = item.SelfRef
	return item
}

// Interrupt closes all open lists. Backends call it when a non-list
// block arrives or the hint stream ends. Counters survive: a list id
// that resumes later continues its numbering unless an explicit
// restart says otherwise.
func (t *Tracker) Interrupt() {
	t.stack = t.stack[:0]
}

// Depth returns the number of currently open lists.
func (t *Tracker) Depth() int { return len(t.stack) }

func (t *Tracker) marker(hint Hint, n int) string {
	if !hint.Ordered {
		return bullets[hint.Level%len(bullets)]
	}
	delim := hint.Delim
	if delim == "" {
		delim = "."
	}
	return FormatOrdinal(hint.Style, n) + delim
}

func listName(hint Hint) string {
	if hint.ListID != "" {
		return hint.ListID
	}
	return "list"
}

// FormatOrdinal renders a counter value in a numbering style.
func FormatOrdinal(style Style, n int) string {
	if n < 1 {
		n = 1
	}
	switch style {
	case LowerRoman:
		return strings.ToLower(roman(n))
	case UpperRoman:
		return roman(n)
	case LowerAlpha:
		return alpha(n)
	case UpperAlpha:
		return strings.ToUpper(alpha(n))
	default:
		return strconv.Itoa(n)
	}
}

var romanValues = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func roman(n int) string {
	var b strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			b.WriteString(rv.symbol)
			n -= rv.value
		}
	}
	return b.String()
}

// alpha renders 1..26 as a..z, then aa, ab, ... (bijective base 26).
func alpha(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('a' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

// DecodeOrdinal parses a rendered marker back to its counter value
// under every style it could plausibly encode ("i." is both roman 1
// and alpha 9). The structural validator uses this to check that
// successive markers strictly increase under at least one consistent
// interpretation.
func DecodeOrdinal(marker string) map[Style]int {
	s := strings.TrimRight(marker, ".)")
	if s == "" {
		return nil
	}
	out := make(map[Style]int)
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		out[Decimal] = n
		return out
	}
	lower := s == strings.ToLower(s)
	upper := s == strings.ToUpper(s)
	if !lower && !upper {
		return out
	}
	if n, ok := parseRoman(strings.ToUpper(s)); ok {
		if lower {
			out[LowerRoman] = n
		}
		if upper {
			out[UpperRoman] = n
		}
	}
	if n, ok := parseAlpha(strings.ToLower(s)); ok {
		if lower {
			out[LowerAlpha] = n
		}
		if upper {
			out[UpperAlpha] = n
		}
	}
	return out
}

func parseRoman(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	values := map[byte]int{'I': 1, 'V': 5, 'X': 10, 'L': 50, 'C': 100, 'D': 500, 'M': 1000}
	total := 0
	for i := 0; i < len(s); i++ {
		v, ok := values[s[i]]
		if !ok {
			return 0, false
		}
		if i+1 < len(s) && values[s[i+1]] > v {
			total -= v
		} else {
			total += v
		}
	}
	// Round-trip to reject malformed sequences like "IIX".
	if roman(total) != s {
		return 0, false
	}
	return total, true
}

func parseAlpha(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return 0, false
		}
		n = n*26 + int(c-'a') + 1
	}
	return n, n > 0
}
