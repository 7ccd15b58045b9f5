package core

import (
	"net/url"
	"slices"
	"strings"
)

// Filter narrows the record list. Zero value matches everything.
type Filter struct {
	From       string // inclusive YYYY-MM-DD, empty for no lower bound
	To         string // inclusive YYYY-MM-DD, empty for no upper bound
	Categories []string
}

// Matches reports whether r passes the filter. Category comparison is exact.
func (f Filter) Matches(r Record) bool {
	if f.From != "" && r.Date < f.From {
		return false
	}
	if f.To != "" && r.Date > f.To {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, r.Category) {
		return false
	}
	return true
}

// WithoutCategories returns the filter with only its date bounds.
func (f Filter) WithoutCategories() Filter {
	return Filter{From: f.From, To: f.To}
}

// ActiveCount is the number of active constraints, as shown on the filter button.
func (f Filter) ActiveCount() int {
	n := len(f.Categories)
	if f.From != "" {
		n++
	}
	if f.To != "" {
		n++
	}
	return n
}

// IsZero reports whether the filter has no constraints.
func (f Filter) IsZero() bool {
	return f.ActiveCount() == 0
}

// Clone returns a copy that does not share the categories slice.
func (f Filter) Clone() Filter {
	f.Categories = slices.Clone(f.Categories)
	return f
}

// HasCategory reports whether name is one of the selected categories.
func (f Filter) HasCategory(name string) bool {
	return slices.Contains(f.Categories, name)
}

// Query encodes the filter as from, to and repeated category parameters.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	for _, c := range f.Categories {
		q.Add("category", c)
	}
	return q
}

// FilterFromQuery is the inverse of Query. Dates not shaped YYYY-MM-DD and blank
// categories are dropped. Bounds compare lexically, so "2025-02-30" is kept. Duplicate categories are collapsed, keeping first occurrence order.
func FilterFromQuery(q url.Values) Filter {
	var f Filter
	if from := strings.TrimSpace(q.Get("from")); IsISODate(from) {
		f.From = from
	}
	if to := strings.TrimSpace(q.Get("to")); IsISODate(to) {
		f.To = to
	}
	for _, c := range q["category"] {
		c = strings.TrimSpace(c)
		if c == "" || slices.Contains(f.Categories, c) {
			continue
		}
		f.Categories = append(f.Categories, c)
	}
	return f
}
