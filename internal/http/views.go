package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

// templateFuncs are shared by every page and partial.
func templateFuncs(currency string) template.FuncMap {
	return template.FuncMap{
		"money": func(d decimal.Decimal) string {
			return core.FormatCurrency(currency, d)
		},
		"signed": func(kind core.Kind, d decimal.Decimal) string {
			return core.FormatSigned(currency, kind, d)
		},
		"plain": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		"style": core.CategoryStyle,
		"dayLabel": func(date string) string {
			t, err := core.ParseISODate(date)
			if err != nil {
				return date
			}
			return t.Format("Mon, Jan 2 2006")
		},
		"isIncome": func(k core.Kind) bool { return k == core.KindIncome },
		// filterURL keeps the active filter on record writes
		"filterURL": func(path, query string) template.URL {
			if query == "" {
				return template.URL(path)
			}
			return template.URL(path + "?" + query)
		},
	}
}

func parseTemplates(fsys fs.FS, currency string) (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs(currency)).ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// authPage is the sign-in page.
type authPage struct {
	Error       string
	Description string
}

// profilePage backs both the profile page and the name completion form.
type profilePage struct {
	User     *auth.User
	Profile  core.Profile
	Activity []storage.AuditEntry
	Error    string
	Saved    bool
}

// recordsView is the list partial: summary, filters, record groups and the form.
type recordsView struct {
	Summary           core.MonthSummary
	Groups            []core.DateGroup
	Filter            core.Filter
	FilterQuery       string
	KnownCategories   []string
	ExpenseCategories []string
	Today             string
	LoadError         string
}

func (v recordsView) Empty() bool {
	return len(v.Groups) == 0
}

// personalPage is the full personal page.
type personalPage struct {
	User    *auth.User
	Profile core.Profile
	Records recordsView
}

func newRecordsView(ws *workspace, now time.Time, loadErr error) recordsView {
	f := ws.ledger.Filter()
	v := recordsView{
		Summary:           ws.ledger.Summary(now),
		Groups:            ws.ledger.Groups(),
		Filter:            f,
		FilterQuery:       f.Query().Encode(),
		KnownCategories:   ws.ledger.KnownCategories(),
		ExpenseCategories: core.ExpenseCategoryNames(),
		Today:             core.ISODate(now),
	}
	if loadErr != nil {
		v.LoadError = "Could not load your records: " + loadErr.Error()
	}
	return v
}

// render executes name into a buffer so template errors never leave a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderBuilder executes name into the body of an HTMX response.
func (s *Server) renderBuilder(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if s.templates == nil {
		InternalServerError("templates not loaded").Write(w)
		return
	}
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		InternalServerError("Template error").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}
