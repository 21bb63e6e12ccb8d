// Package strcmp provides the uniform path-ordering rules the rest of the
// daemon relies on: byte-order comparison on case-sensitive filesystems,
// case-folded comparison on filesystems where git treats names as equal
// modulo case (core.ignorecase). The index model's path ordering and every
// sorted directory listing go through one of these functions so that "the
// active string order" referenced throughout the spec is a single, testable
// definition; internal/tagdb orders packed-refs entries by plain byte
// comparison instead.
package strcmp

import (
	"sort"
	"strings"
)

// Order is a total order over path strings, chosen per-repository from
// gitlib's filesystem case-sensitivity probe (the same signal git uses to
// set core.ignorecase).
type Order struct {
	CaseSensitive bool
}

// CaseSensitiveOrder is the default order used on Linux.
var CaseSensitiveOrder = Order{CaseSensitive: true}

// CaseInsensitiveOrder folds case with strings.ToLower before comparing, matching git's
// core.ignorecase=true behavior on macOS/Windows filesystems.
var CaseInsensitiveOrder = Order{CaseSensitive: false}

// New returns the order for the given case-sensitivity flag.
func New(caseSensitive bool) Order {
	if caseSensitive {
		return CaseSensitiveOrder
	}
	return CaseInsensitiveOrder
}

// Compare returns <0, 0, >0 as a compares less than, equal to, or greater
// than b under this order.
func (o Order) Compare(a, b string) int {
	if o.CaseSensitive {
		return strings.Compare(a, b)
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Equal reports whether a and b are equal under this order.
func (o Order) Equal(a, b string) bool {
	return o.Compare(a, b) == 0
}

// Less reports whether a sorts strictly before b under this order.
func (o Order) Less(a, b string) bool {
	return o.Compare(a, b) < 0
}

// HasPrefix reports whether s starts with prefix under this order.
func (o Order) HasPrefix(s, prefix string) bool {
	if o.CaseSensitive {
		return strings.HasPrefix(s, prefix)
	}
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

// SortStrings sorts a slice in place under this order.
func (o Order) SortStrings(s []string) {
	sort.Slice(s, func(i, j int) bool { return o.Less(s[i], s[j]) })
}
