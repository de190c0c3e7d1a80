package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"statshot/internal/auth"
	"statshot/internal/config"
	"statshot/internal/editor"
	"statshot/internal/overlay"
	"statshot/internal/store"
	"statshot/internal/strava"
)

const (
	// SessionCookie carries the opaque session id.
	SessionCookie = "statshot_session"
	// stateCookie carries the OAuth CSRF state between login and callback.
	stateCookie = "statshot_oauth_state"

	// Sessions untouched for this long are purged on startup.
	sessionMaxIdle = 30 * 24 * time.Hour
)

// Server is the HTTP surface: OAuth flow, Strava proxy endpoints and
// the editor commands. Each signed-in session gets one editor and one
// API client, created lazily and kept in memory; the token triple
// behind them lives in the store.
type Server struct {
	cfg   *config.Config
	store *store.Store
	oauth *oauth2.Config
	comp  *overlay.Compositor
	mux   *http.ServeMux

	// httpClient fetches remote photos for the byte proxy.
	httpClient *http.Client

	// stravaBaseURL overrides the API root on new clients, for tests.
	stravaBaseURL string

	mu       sync.Mutex
	sessions map[string]*sessionState
}

// sessionState is the in-memory side of one session: the editing
// state and the token-refreshing Strava client.
type sessionState struct {
	editor *editor.Session
	client *strava.Client
}

// New creates the server and registers its routes.
func New(cfg *config.Config, st *store.Store, comp *overlay.Compositor) *Server {
	s := &Server{
		cfg:   cfg,
		store: st,
		oauth: auth.NewOAuthConfig(auth.Config{
			ClientID:     cfg.Strava.ClientID,
			ClientSecret: cfg.Strava.ClientSecret,
			RedirectURL:  cfg.Server.BaseURL + "/auth/callback",
		}),
		comp:       comp,
		mux:        http.NewServeMux(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sessions:   make(map[string]*sessionState),
	}
	s.routes()

	if n, err := st.DeleteStaleSessions(sessionMaxIdle); err != nil {
		log.Printf("purging stale sessions: %v", err)
	} else if n > 0 {
		log.Printf("purged %d stale sessions", n)
	}

	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /auth/callback", s.handleCallback)
	s.mux.HandleFunc("POST /auth/logout", s.handleLogout)

	s.mux.HandleFunc("GET /api/athlete", s.withSession(s.handleAthlete))
	s.mux.HandleFunc("GET /api/activities", s.withSession(s.handleActivities))
	s.mux.HandleFunc("GET /api/activities/{id}", s.withSession(s.handleActivityDetail))
	s.mux.HandleFunc("GET /api/activities/{id}/photos", s.withSession(s.handleActivityPhotos))
	s.mux.HandleFunc("GET /api/photo", s.withSession(s.handlePhotoProxy))

	s.mux.HandleFunc("POST /api/editor/background", s.withSession(s.handleBackground))
	s.mux.HandleFunc("POST /api/editor/activity", s.withSession(s.handleSetActivity))
	s.mux.HandleFunc("POST /api/editor/params", s.withSession(s.handleParams))
	s.mux.HandleFunc("POST /api/editor/pointer", s.withSession(s.handlePointer))
	s.mux.HandleFunc("POST /api/editor/preset", s.withSession(s.handlePreset))
	s.mux.HandleFunc("GET /api/editor/layout", s.withSession(s.handleLayout))
	s.mux.HandleFunc("GET /api/editor/preview", s.withSession(s.handlePreview))
	s.mux.HandleFunc("GET /api/editor/export", s.withSession(s.handleExport))
}

// Handler returns the root handler for http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// sessionHandler is a handler with the session row and runtime state
// already resolved.
type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *store.Session, st *sessionState)

// withSession resolves the session cookie to a store row plus runtime
// state, answering 401 when either is missing.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not signed in")
			return
		}

		sess, err := s.store.GetSession(cookie.Value)
		if err != nil {
			s.dropState(cookie.Value)
			clearCookie(w, SessionCookie)
			writeError(w, http.StatusUnauthorized, "session expired")
			return
		}

		h(w, r, sess, s.stateFor(sess))
	}
}

// stateFor returns the runtime state for a session, creating the
// editor and client on first use.
func (s *Server) stateFor(sess *store.Session) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.sessions[sess.ID]; ok {
		return st
	}

	id := sess.ID
	ts := auth.NewTokenSource(s.oauth, &oauth2.Token{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		Expiry:       sess.ExpiresAt,
	}, func(tok *oauth2.Token) error {
		return s.store.UpdateSessionTokens(id, tok.AccessToken, tok.RefreshToken, tok.Expiry)
	})

	st := &sessionState{
		editor: editor.NewSession(s.comp),
		client: strava.NewClient(ts),
	}
	if s.stravaBaseURL != "" {
		st.client.BaseURL = s.stravaBaseURL
	}
	s.sessions[id] = st
	return st
}

// dropState discards a session's runtime state.
func (s *Server) dropState(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
