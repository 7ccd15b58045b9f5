package http

import (
	"crypto/subtle"
	"net/http"
	"net/url"

	"tally/internal/auth"
	"tally/internal/log"
)

// handleAuthPage shows the sign-in page, with the provider error when the callback failed.
func (s *Server) handleAuthPage(w http.ResponseWriter, r *http.Request) {
	if ws := s.currentWorkspace(r); ws != nil {
		http.Redirect(w, r, "/personal", http.StatusSeeOther)
		return
	}
	q := r.URL.Query()
	s.render(w, r, http.StatusOK, "auth.html", authPage{
		Error:       sanitizeInput(q.Get("error")),
		Description: sanitizeInput(q.Get("error_description")),
	})
}

// handleLogin starts the OAuth flow.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewOAuthState()
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to create OAuth state", log.FieldError, err)
		http.Error(w, "Sign-in is unavailable", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.auth.AuthCodeURL(state), http.StatusFound)
}

func authError(code, description string) string {
	q := url.Values{}
	q.Set("error", code)
	if description != "" {
		q.Set("error_description", description)
	}
	return "/auth?" + q.Encode()
}

// handleCallback finishes the OAuth flow: checks state, exchanges the code,
// signs in and stores the profile.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	q := r.URL.Query()

	if code := q.Get("error"); code != "" {
		logger.WarnContext(ctx, "OAuth provider returned an error",
			log.FieldErrorType, log.ErrorTypeAuth,
			log.FieldError, code)
		http.Redirect(w, r, authError(code, q.Get("error_description")), http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookieName)
	clearCookie(w, r, stateCookieName, "/auth")
	if err != nil || cookie.Value == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(q.Get("state"))) != 1 {
		logger.WarnContext(ctx, "OAuth state mismatch", log.FieldErrorType, log.ErrorTypeAuth)
		http.Redirect(w, r, authError("invalid_state", "The sign-in request expired. Please try again."), http.StatusSeeOther)
		return
	}

	user, err := s.auth.Exchange(ctx, q.Get("code"))
	if err != nil {
		logger.ErrorContext(ctx, "OAuth exchange failed",
			log.FieldErrorType, log.ErrorTypeAuth,
			log.FieldError, err)
		http.Redirect(w, r, authError("exchange_failed", "Sign-in could not be completed."), http.StatusSeeOther)
		return
	}

	sess, err := s.auth.SignIn(ctx, user)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create session", log.FieldError, err)
		http.Redirect(w, r, authError("session_failed", "Sign-in could not be completed."), http.StatusSeeOther)
		return
	}
	s.setSessionCookie(w, r, sess)

	profile, err := s.profiles.EnsureProfile(ctx, user)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to store profile",
			log.FieldUserID, user.ID,
			log.FieldError, err)
		http.Redirect(w, r, "/personal", http.StatusSeeOther)
		return
	}
	if profile.NeedsNameCompletion() {
		http.Redirect(w, r, "/auth/complete-profile", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/personal", http.StatusSeeOther)
}

func (s *Server) handleCompleteProfileForm(w http.ResponseWriter, r *http.Request, ws *workspace) {
	profile, err := s.profiles.Profile(r.Context(), ws.state.UserID())
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to load profile", log.FieldError, err)
	}
	if err == nil && !profile.NeedsNameCompletion() {
		http.Redirect(w, r, "/personal", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "complete_profile.html", profilePage{User: ws.state.User(), Profile: profile})
}

func (s *Server) handleCompleteProfile(w http.ResponseWriter, r *http.Request, ws *workspace) {
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
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to complete profile", log.FieldError, err)
		}
		profile.FirstName, profile.LastName = first, last
		s.render(w, r, status, "complete_profile.html", profilePage{User: ws.state.User(), Profile: profile, Error: err.Error()})
		return
	}
	redirect(w, r, "/personal")
}

// handleSignOut ends the session and drops its workspace.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if sid := sessionID(r); sid != "" {
		if err := s.auth.SignOut(r.Context(), sid); err != nil {
			log.FromContext(r.Context()).ErrorContext(r.Context(), "Sign-out failed", log.FieldError, err)
		}
		s.workspaces.remove(sid)
	}
	clearCookie(w, r, sessionCookieName, "/")
	redirect(w, r, "/auth")
}
