package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"id": "123", "name": "test", "amount": 42.5}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if id := parser.Get("id"); id != "123" {
		t.Errorf("Get('id') = %q, want '123'", id)
	}

	if name := parser.Get("name"); name != "test" {
		t.Errorf("Get('name') = %q, want 'test'", name)
	}

	if amount := parser.Get("amount"); amount != "42.5" {
		t.Errorf("Get('amount') = %q, want '42.5'", amount)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "id=456&name=form+test&value=100"
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if id := parser.Get("id"); id != "456" {
		t.Errorf("Get('id') = %q, want '456'", id)
	}

	if name := parser.Get("name"); name != "form test" {
		t.Errorf("Get('name') = %q, want 'form test'", name)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	err := parser.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_StripsControlCharacters(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("note=%00lunch%07+with+team+"))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("note"); got != "lunch with team" {
		t.Errorf("Get('note') = %q, want 'lunch with team'", got)
	}
}

func TestParseRecordForm(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantKind core.Kind
		wantDate string
	}{
		{"expense defaults", "amount=24.5&date=2025-11-14&category=Groceries", core.KindExpense, "2025-11-14"},
		{"income", "kind=INCOME&amount=1000&date=2025-11-01", core.KindIncome, "2025-11-01"},
		{"bad date left empty", "amount=1&date=14/11/2025&category=Groceries", core.KindExpense, ""},
		{"json body", `{"kind":"expense","amount":12.3,"date":"2025-10-02","category":"Transport"}`, core.KindExpense, "2025-10-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/personal/records", strings.NewReader(tt.body))
			parser := NewRequestBodyParser(req)
			if err := parser.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			form := ParseRecordForm(parser)
			if form.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", form.Kind, tt.wantKind)
			}
			gotDate := ""
			if !form.Date.IsZero() {
				gotDate = core.ISODate(form.Date)
			}
			if gotDate != tt.wantDate {
				t.Errorf("Date = %q, want %q", gotDate, tt.wantDate)
			}
		})
	}
}

func TestParseRecordForm_Validates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/personal/records", strings.NewReader("amount=24.5&date=2025-11-14&category=Food+%26+Dining"))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	draft, err := ParseRecordForm(parser).Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if draft.Amount.StringFixed(2) != "24.50" || draft.Category != "Food & Dining" {
		t.Errorf("draft = %+v", draft)
	}
}

func TestParseFilter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/personal?from=2025-11-01&to=bogus&category=Groceries&category=+&category=Groceries&category=Transport", nil)
	f := ParseFilter(req)
	if f.From != "2025-11-01" || f.To != "" {
		t.Errorf("dates = %q..%q", f.From, f.To)
	}
	if len(f.Categories) != 2 || f.Categories[0] != "Groceries" || f.Categories[1] != "Transport" {
		t.Errorf("Categories = %v", f.Categories)
	}
}
