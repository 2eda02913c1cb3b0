package explorer

import (
	"sort"
	"strings"
)

// FilterSpec restricts listings to a set of bundles. An empty filter applies no filtering.
type FilterSpec struct {
	Bundles []string `json:"bundles,omitempty"`
}

// NewFilterSpec trims, de-duplicates and sorts the given bundles so that
// equal filters always produce equal cache keys.
func NewFilterSpec(bundles ...string) FilterSpec {
	seen := make(map[string]struct{}, len(bundles))
	out := make([]string, 0, len(bundles))
	for _, b := range bundles {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return FilterSpec{}
	}
	return FilterSpec{Bundles: out}
}

// ParseFilterSpec parses a comma separated bundle list ("image,document").
func ParseFilterSpec(raw string) FilterSpec {
	if raw == "" {
		return FilterSpec{}
	}
	return NewFilterSpec(strings.Split(raw, ",")...)
}

// IsEmpty reports whether the filter lets every bundle through.
func (f FilterSpec) IsEmpty() bool {
	return len(f.Bundles) == 0
}

// Allows reports whether a file with the given bundle passes the filter.
func (f FilterSpec) Allows(bundle string) bool {
	if f.IsEmpty() {
		return true
	}
	for _, b := range f.Bundles {
		if b == bundle {
			return true
		}
	}
	return false
}

// Key is the canonical form used in cache keys.
func (f FilterSpec) Key() string {
	if f.IsEmpty() {
		return "*"
	}
	return strings.Join(NewFilterSpec(f.Bundles...).Bundles, ",")
}
