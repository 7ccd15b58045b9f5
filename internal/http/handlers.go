package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/ledger"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/storage"
)

const (
	sessionCookieName = "tally_session"
	stateCookieName   = "tally_oauth_state"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.started).Round(time.Second).String(),
	})
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	for name, check := range s.ready {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":     status,
		"checks":     checks,
		"workspaces": s.workspaces.size(),
		"timestamp":  s.now().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// handleIndex sends the browser to the records page or the sign-in page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if ws := s.currentWorkspace(r); ws != nil {
		http.Redirect(w, r, "/personal", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/auth", http.StatusSeeOther)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// redirect navigates the browser, through HX-Redirect for htmx requests.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(location).Write(w)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

func secureRequest(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sess *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   secureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, r *http.Request, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// currentWorkspace returns the signed-in workspace of the request, or nil.
func (s *Server) currentWorkspace(r *http.Request) *workspace {
	sid := sessionID(r)
	if sid == "" {
		return nil
	}
	ws := s.workspaces.get(r.Context(), sid)
	if ws.state.Status() != auth.StatusAuthenticated {
		return nil
	}
	return ws
}

type workspaceHandler func(w http.ResponseWriter, r *http.Request, ws *workspace)

// requireAuth sends signed-out browsers to the sign-in page.
func (s *Server) requireAuth(next workspaceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := s.currentWorkspace(r)
		if ws == nil {
			clearCookie(w, r, sessionCookieName, "/")
			redirect(w, r, "/auth")
			return
		}
		r = r.WithContext(log.WithContext(r.Context(), log.FromContext(r.Context()).With(log.FieldUserID, ws.state.UserID())))
		next(w, r, ws)
	}
}

// requireAPIAuth answers signed-out API calls with 401.
func (s *Server) requireAPIAuth(next workspaceHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws := s.currentWorkspace(r)
		if ws == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
			return
		}
		next(w, r, ws)
	}
}

// errorStatus maps a write error onto an HTTP status.
func errorStatus(err error) int {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, services.ErrConstraint):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrRecordNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrNotAuthenticated), errors.Is(err, storage.ErrUnauthenticated):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers a failed write with the error text as notification and inline message.
// A lost session sends the browser back to sign-in.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := errorStatus(err)
	if status == http.StatusUnauthorized {
		redirect(w, r, "/auth")
		return
	}
	logger := log.FromContext(r.Context())
	switch status {
	case http.StatusNotFound:
		logger.InfoContext(r.Context(), "Record write rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, status,
			log.FieldError, err)
		NotFoundError(err.Error()).Write(w)
	case http.StatusUnprocessableEntity:
		logger.InfoContext(r.Context(), "Record write rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, status,
			log.FieldError, err)
		UnprocessableEntityError(err.Error()).Write(w)
	default:
		log.NewStructuredLogger(logger).LogError(r.Context(), "Record write failed", err, log.ComponentRecords, op, nil)
		InternalServerError(err.Error()).Write(w)
	}
}
