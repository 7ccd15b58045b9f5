package core

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestISODateUsesLocalFields(t *testing.T) {
	zone := time.FixedZone("UTC+11", 11*60*60)
	ts := time.Date(2025, 11, 14, 0, 30, 0, 0, zone)
	if got := ISODate(ts); got != "2025-11-14" {
		t.Fatalf("ISODate = %q, want 2025-11-14", got)
	}
	if got := ISODate(time.Date(7, 1, 2, 0, 0, 0, 0, time.UTC)); got != "0007-01-02" {
		t.Fatalf("ISODate pads year, got %q", got)
	}
}

func TestIsValidISODate(t *testing.T) {
	cases := map[string]bool{
		"2025-11-14": true,
		"2024-02-29": true,
		"2025-02-29": false,
		"2025-13-01": false,
		"2025-1-01":  false,
		"":           false,
		"14/11/2025": false,
	}
	for in, want := range cases {
		if got := IsValidISODate(in); got != want {
			t.Fatalf("IsValidISODate(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFormValuesValidate(t *testing.T) {
	date := time.Date(2025, 11, 14, 12, 0, 0, 0, time.Local)

	d, err := FormValues{Amount: "24.5", Date: date, Category: " Food & Dining "}.Validate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Kind != KindExpense || d.Amount.StringFixed(2) != "24.50" || d.Date != "2025-11-14" || d.Category != "Food & Dining" {
		t.Fatalf("unexpected draft: %+v", d)
	}

	d, err = FormValues{Kind: KindIncome, Amount: "100", Date: date, Category: "Groceries"}.Validate()
	if err != nil || d.Category != IncomeCategory {
		t.Fatalf("income must force category, got %+v (err=%v)", d, err)
	}

	cases := []struct {
		name  string
		in    FormValues
		field string
		err   error
	}{
		{"precision", FormValues{Amount: "12.345", Date: date, Category: "Groceries"}, "amount", ErrAmountPrecision},
		{"zero", FormValues{Amount: "0", Date: date, Category: "Groceries"}, "amount", ErrAmountNotPositive},
		{"no date", FormValues{Amount: "1", Category: "Groceries"}, "date", ErrMissingDate},
		{"no category", FormValues{Amount: "1", Date: date, Category: "  "}, "category", ErrEmptyCategory},
		{"bad kind", FormValues{Kind: "transfer", Amount: "1", Date: date, Category: "x"}, "type", ErrInvalidKind},
	}
	for _, tc := range cases {
		_, err := tc.in.Validate()
		var ve *ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field || !errors.Is(err, tc.err) {
			t.Fatalf("%s: got %v", tc.name, err)
		}
	}
}

func TestRecordPatchApplyTo(t *testing.T) {
	created := time.Now()
	r := Record{ID: "r1", Amount: decimal.RequireFromString("5"), Date: "2025-01-01", Category: "Groceries", Kind: KindExpense, CreatedAt: created}
	kind := KindIncome
	note := "salary"
	got := RecordPatch{Kind: &kind, Note: &note}.ApplyTo(r)
	if got.Category != IncomeCategory || got.Note != "salary" || got.Amount.StringFixed(2) != "5.00" || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected patch result: %+v", got)
	}

	bad := decimal.RequireFromString("1.234")
	if err := (RecordPatch{Amount: &bad}).Validate(); !errors.Is(err, ErrAmountPrecision) {
		t.Fatalf("expected precision error, got %v", err)
	}
}

func TestFilterMatchesAndQuery(t *testing.T) {
	f := Filter{From: "2025-11-01", To: "2025-11-30", Categories: []string{"Groceries"}}
	if !f.Matches(Record{Date: "2025-11-14", Category: "Groceries"}) {
		t.Fatal("expected match")
	}
	if f.Matches(Record{Date: "2025-11-14", Category: "groceries"}) {
		t.Fatal("category match must be exact")
	}
	if f.Matches(Record{Date: "2025-12-01", Category: "Groceries"}) {
		t.Fatal("date outside range must not match")
	}
	if f.ActiveCount() != 3 {
		t.Fatalf("ActiveCount = %d", f.ActiveCount())
	}

	back := FilterFromQuery(f.Query())
	if !reflect.DeepEqual(back, f) {
		t.Fatalf("query round trip: got %+v, want %+v", back, f)
	}

	q := url.Values{"from": {"nope"}, "category": {"", " Transport ", "Transport"}}
	got := FilterFromQuery(q)
	if got.From != "" || !reflect.DeepEqual(got.Categories, []string{"Transport"}) {
		t.Fatalf("unexpected filter: %+v", got)
	}

	// shape only: an impossible day still bounds the range lexically
	got = FilterFromQuery(url.Values{"from": {"2025-02-30"}, "to": {"2025-2-3"}})
	if got.From != "2025-02-30" || got.To != "" {
		t.Fatalf("unexpected filter: %+v", got)
	}
	if !got.Matches(Record{Date: "2025-03-01"}) || got.Matches(Record{Date: "2025-02-28"}) {
		t.Fatalf("lexical bound not applied: %+v", got)
	}
}

func TestCategoryStyle(t *testing.T) {
	if s := CategoryStyle("Groceries", KindIncome); s.Icon != "wallet" {
		t.Fatalf("income must use income style, got %+v", s)
	}
	if s := CategoryStyle("groceries", KindExpense); s.Icon != "shopping-cart" {
		t.Fatalf("lookup must ignore case, got %+v", s)
	}
	if s := CategoryStyle("Pets", KindExpense); s.Icon != "archive" {
		t.Fatalf("unknown category must use Others, got %+v", s)
	}
	if names := CategoryNames(); len(names) != 8 || names[0] != IncomeCategory {
		t.Fatalf("unexpected registry: %v", names)
	}
}

func TestSummarizeAndGroup(t *testing.T) {
	ref := time.Date(2025, 11, 20, 10, 0, 0, 0, time.Local)
	base := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: "a", Date: "2025-11-14", Kind: KindExpense, Category: "Groceries", Amount: decimal.RequireFromString("20.50"), CreatedAt: base},
		{ID: "b", Date: "2025-11-14", Kind: KindExpense, Category: "Transport", Amount: decimal.RequireFromString("4.50"), CreatedAt: base.Add(time.Hour)},
		{ID: "c", Date: "2025-11-02", Kind: KindIncome, Category: IncomeCategory, Amount: decimal.RequireFromString("100"), CreatedAt: base},
		{ID: "d", Date: "2025-10-31", Kind: KindExpense, Category: "Groceries", Amount: decimal.RequireFromString("999"), CreatedAt: base},
	}

	s := Summarize(records, ref)
	if s.Income.StringFixed(2) != "100.00" || s.Spent.StringFixed(2) != "25.00" || s.Net.StringFixed(2) != "75.00" {
		t.Fatalf("unexpected summary: income=%s spent=%s net=%s", s.Income, s.Spent, s.Net)
	}
	if s.From != "2025-11-01" || s.To != "2025-11-30" {
		t.Fatalf("unexpected month bounds %s..%s", s.From, s.To)
	}
	if len(s.ByCategory) != 2 || s.ByCategory[0].Name != "Groceries" {
		t.Fatalf("unexpected breakdown: %+v", s.ByCategory)
	}

	groups := GroupByDate(records)
	if len(groups) != 3 || groups[0].Date != "2025-11-14" || groups[0].Records[0].ID != "b" {
		t.Fatalf("unexpected grouping: %+v", groups)
	}
	if records[0].ID != "a" {
		t.Fatal("GroupByDate must not reorder its input")
	}
}

func TestProfileNames(t *testing.T) {
	if !(Profile{FirstName: "Ada", LastName: "  "}).NeedsNameCompletion() {
		t.Fatal("blank last name needs completion")
	}
	first, last, err := NormalizeNames(" Ada ", " Lovelace ")
	if err != nil || first != "Ada" || last != "Lovelace" {
		t.Fatalf("got %q %q %v", first, last, err)
	}
	if _, _, err := NormalizeNames("Ada", ""); !errors.Is(err, ErrLastNameRequired) {
		t.Fatalf("expected last name error, got %v", err)
	}
}
