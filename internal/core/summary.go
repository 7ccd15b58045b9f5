package core

import (
	"sort"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// MonthSummary covers the calendar month containing a reference time.
type MonthSummary struct {
	From       string // first day of month
	To         string // last day of month
	Income     decimal.Decimal
	Spent      decimal.Decimal
	Net        decimal.Decimal
	ByCategory []CategoryAmount // expenses only, largest first
}

// DateGroup is a run of records sharing one date.
type DateGroup struct {
	Date    string
	Records []Record
	Income  decimal.Decimal
	Spent   decimal.Decimal
}

// Summarize totals the records falling in the month of ref.
func Summarize(records []Record, ref time.Time) MonthSummary {
	n := now.With(ref)
	s := MonthSummary{
		From:   ISODate(n.BeginningOfMonth()),
		To:     ISODate(n.EndOfMonth()),
		Income: decimal.Zero,
		Spent:  decimal.Zero,
	}
	byCat := map[string]decimal.Decimal{}
	for _, r := range records {
		if r.Date < s.From || r.Date > s.To {
			continue
		}
		if r.Kind == KindIncome {
			s.Income = s.Income.Add(r.Amount)
			continue
		}
		s.Spent = s.Spent.Add(r.Amount)
		byCat[r.Category] = byCat[r.Category].Add(r.Amount)
	}
	s.Net = s.Income.Sub(s.Spent)
	for name, amt := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if c := s.ByCategory[i].Amount.Cmp(s.ByCategory[j].Amount); c != 0 {
			return c > 0
		}
		return s.ByCategory[i].Name < s.ByCategory[j].Name
	})
	return s
}

// SortRecords orders records by date desc, then createdAt desc.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}

// GroupByDate returns the records grouped by date descending, newest first within a day.
// The input slice is not modified.
func GroupByDate(records []Record) []DateGroup {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	SortRecords(sorted)

	var groups []DateGroup
	for _, r := range sorted {
		if len(groups) == 0 || groups[len(groups)-1].Date != r.Date {
			groups = append(groups, DateGroup{Date: r.Date, Income: decimal.Zero, Spent: decimal.Zero})
		}
		g := &groups[len(groups)-1]
		g.Records = append(g.Records, r)
		if r.Kind == KindIncome {
			g.Income = g.Income.Add(r.Amount)
		} else {
			g.Spent = g.Spent.Add(r.Amount)
		}
	}
	return groups
}
