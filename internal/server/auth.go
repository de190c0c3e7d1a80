package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"statshot/internal/auth"
	"statshot/internal/store"
)

// handleLogin sends the browser to Strava's authorization page with a
// fresh CSRF state held in a short-lived cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline), http.StatusFound)
}

// handleCallback verifies the CSRF state, exchanges the code and
// creates the session row the cookie will point at.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		writeError(w, http.StatusBadRequest, "state mismatch")
		return
	}
	clearCookie(w, stateCookie)

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		writeError(w, http.StatusBadRequest, "authorization denied: "+errMsg)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "no authorization code")
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("token exchange failed: %v", err)
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	athlete := auth.ExtractAthlete(token)
	sess := &store.Session{
		ID:           uuid.NewString(),
		AthleteID:    athlete.ID,
		AthleteName:  athlete.Name,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}
	if err := s.store.SaveSession(sess); err != nil {
		log.Printf("saving session: %v", err)
		writeError(w, http.StatusInternalServerError, "saving session failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Printf("athlete %d signed in", athlete.ID)
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout deletes the session row and its runtime state.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}

	if err := s.store.DeleteSession(cookie.Value); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		log.Printf("deleting session: %v", err)
	}
	s.dropState(cookie.Value)
	clearCookie(w, SessionCookie)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
