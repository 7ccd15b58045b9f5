package core

import "strings"

// Style describes how a category is rendered.
type Style struct {
	Icon         string // lucide icon name
	IconColor    string
	BadgeClasses string
}

type categoryEntry struct {
	name  string
	style Style
}

// Registry order is the order shown in pickers.
var categoryRegistry = []categoryEntry{
	{IncomeCategory, Style{"wallet", "text-emerald-700", "border-emerald-200/60 bg-emerald-50 text-emerald-700"}},
	{"Food & Dining", Style{"utensils-crossed", "text-orange-700", "border-orange-200/60 bg-orange-50 text-orange-700"}},
	{"Clothing", Style{"shirt", "text-amber-700", "border-amber-200/60 bg-amber-50 text-amber-700"}},
	{"Groceries", Style{"shopping-cart", "text-sky-700", "border-sky-200/60 bg-sky-50 text-sky-700"}},
	{"Transport", Style{"car", "text-indigo-700", "border-indigo-200/60 bg-indigo-50 text-indigo-700"}},
	{"Entertainment", Style{"music-4", "text-violet-700", "border-violet-200/60 bg-violet-50 text-violet-700"}},
	{"Bills & Utilities", Style{"credit-card", "text-rose-700", "border-rose-200/60 bg-rose-50 text-rose-700"}},
	{OthersCategory, Style{"archive", "text-slate-700", "border-slate-200/60 bg-slate-50 text-slate-700"}},
}

// OthersCategory is the fallback style for unknown expense categories.
const OthersCategory = "Others"

var categoryIndex = func() map[string]Style {
	m := make(map[string]Style, len(categoryRegistry))
	for _, e := range categoryRegistry {
		m[strings.ToLower(e.name)] = e.style
	}
	return m
}()

// CategoryStyle returns the style for name. Income records always get the
// income style; unknown expense categories fall back to Others.
func CategoryStyle(name string, kind Kind) Style {
	if kind == KindIncome {
		return categoryIndex[strings.ToLower(IncomeCategory)]
	}
	if s, ok := categoryIndex[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s
	}
	return categoryIndex[strings.ToLower(OthersCategory)]
}

// IsKnownCategory reports whether name is in the registry, ignoring case.
func IsKnownCategory(name string) bool {
	_, ok := categoryIndex[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// CategoryNames lists registry names in display order.
func CategoryNames() []string {
	names := make([]string, 0, len(categoryRegistry))
	for _, e := range categoryRegistry {
		names = append(names, e.name)
	}
	return names
}

// ExpenseCategoryNames lists registry names except Income.
func ExpenseCategoryNames() []string {
	names := make([]string, 0, len(categoryRegistry)-1)
	for _, e := range categoryRegistry {
		if e.name != IncomeCategory {
			names = append(names, e.name)
		}
	}
	return names
}
