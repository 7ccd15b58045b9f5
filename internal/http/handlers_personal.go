package http

import (
	"errors"
	"net/http"

	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"
)

// handlePersonal renders the records page. A full page load always reloads the
// list; htmx filter requests reload only when the filter changed.
func (s *Server) handlePersonal(w http.ResponseWriter, r *http.Request, ws *workspace) {
	ctx := r.Context()
	filter := ParseFilter(r)

	loadErr := ws.ensureLoaded(ctx, filter, !isHTMX(r))
	if loadErr != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load records",
			log.FieldOperation, log.OpLoad,
			log.FieldError, loadErr)
	}
	view := newRecordsView(ws, s.now(), loadErr)

	if isHTMX(r) {
		s.render(w, r, http.StatusOK, "records", view)
		return
	}

	profile, err := s.profiles.Profile(ctx, ws.state.UserID())
	if err == nil && profile.NeedsNameCompletion() {
		http.Redirect(w, r, "/auth/complete-profile", http.StatusSeeOther)
		return
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.FromContext(ctx).ErrorContext(ctx, "Failed to load profile", log.FieldError, err)
	}
	s.render(w, r, http.StatusOK, "personal.html", personalPage{
		User:    ws.state.User(),
		Profile: profile,
		Records: view,
	})
}

// prepare makes sure the list a write is applied to is the one the browser shows.
// The browser sends its active filter in the query string.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request, ws *workspace) (*RequestBodyParser, bool) {
	if err := ws.ensureLoaded(r.Context(), ParseFilter(r), false); err != nil {
		s.writeError(w, r, log.OpLoad, err)
		return nil, false
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return nil, false
	}
	return p, true
}

func (s *Server) writeRecords(w http.ResponseWriter, r *http.Request, ws *workspace, b *HTMXResponseBuilder) {
	s.renderBuilder(w, r, b, "records", newRecordsView(ws, s.now(), nil))
}

func createdMessage(k core.Kind) string {
	if k == core.KindIncome {
		return "Income added"
	}
	return "Expense added"
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request, ws *workspace) {
	p, ok := s.prepare(w, r, ws)
	if !ok {
		return
	}
	rec, err := ws.ledger.Create(r.Context(), ParseRecordForm(p))
	if err != nil {
		s.writeError(w, r, log.OpCreate, err)
		return
	}
	s.writeRecords(w, r, ws, NewHTMXResponse().
		TriggerRecordsChanged(log.OpCreate, rec.ID).
		TriggerFormReset().
		TriggerSuccessNotification(createdMessage(rec.Kind)))
}

func (s *Server) handleEditRecord(w http.ResponseWriter, r *http.Request, ws *workspace) {
	p, ok := s.prepare(w, r, ws)
	if !ok {
		return
	}
	rec, err := ws.ledger.Edit(r.Context(), r.PathValue("id"), ParseRecordForm(p))
	if err != nil {
		s.writeError(w, r, log.OpUpdate, err)
		return
	}
	s.writeRecords(w, r, ws, NewHTMXResponse().
		TriggerRecordsChanged(log.OpUpdate, rec.ID).
		TriggerSuccessNotification("Record updated"))
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request, ws *workspace) {
	if err := ws.ensureLoaded(r.Context(), ParseFilter(r), false); err != nil {
		s.writeError(w, r, log.OpLoad, err)
		return
	}
	id := r.PathValue("id")
	if err := ws.ledger.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, log.OpDelete, err)
		return
	}
	s.writeRecords(w, r, ws, NewHTMXResponse().
		TriggerRecordsChanged(log.OpDelete, id).
		TriggerSuccessNotification("Expense deleted"))
}

// handleListRecordsAPI returns the stored rows matching the query filter.
func (s *Server) handleListRecordsAPI(w http.ResponseWriter, r *http.Request, ws *workspace) {
	records, err := s.records.ListRecords(r.Context(), ws.state.UserID(), ParseFilter(r))
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to list records",
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not list records"})
		return
	}
	rows := make([]storage.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, storage.RecordToRow(rec))
	}
	writeJSON(w, http.StatusOK, rows)
}
