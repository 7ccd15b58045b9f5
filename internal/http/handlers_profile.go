package http

import (
	"net/http"

	"tally/internal/log"
	"tally/internal/storage"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, ws *workspace) {
	profile, err := s.profiles.Profile(r.Context(), ws.state.UserID())
	page := profilePage{User: ws.state.User(), Profile: profile}
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load profile", log.FieldError, err)
		page.Error = "Could not load your profile."
	}
	page.Activity = s.recentActivity(r, ws)
	s.render(w, r, http.StatusOK, "profile.html", page)
}

// recentActivity is best effort; the page renders without it.
func (s *Server) recentActivity(r *http.Request, ws *workspace) []storage.AuditEntry {
	entries, err := s.profiles.RecentActivity(r.Context(), ws.state.UserID())
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Failed to load recent activity", log.FieldError, err)
		return nil
	}
	return entries
}

// handleUpdateProfile saves the names and shows the page again.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, ws *workspace) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	first, last := p.Get("first_name"), p.Get("last_name")
	profile, err := s.profiles.CompleteProfile(r.Context(), ws.state.UserID(), first, last)
	if err != nil {
		status := errorStatus(err)
		if status >= http.StatusInternalServerError {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to update profile", log.FieldError, err)
		}
		if current, lookupErr := s.profiles.Profile(r.Context(), ws.state.UserID()); lookupErr == nil {
			profile = current
		}
		profile.FirstName, profile.LastName = first, last
		s.render(w, r, status, "profile.html", profilePage{
			User: ws.state.User(), Profile: profile, Activity: s.recentActivity(r, ws), Error: err.Error(),
		})
		return
	}
	s.render(w, r, http.StatusOK, "profile.html", profilePage{
		User: ws.state.User(), Profile: profile, Activity: s.recentActivity(r, ws), Saved: true,
	})
}
