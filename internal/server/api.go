package server

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"statshot/internal/stats"
	"statshot/internal/store"
	"statshot/internal/strava"
)

const (
	defaultPerPage = 30
	maxPerPage     = 100

	// photoSize is the pixel size requested from Strava for photo URLs.
	photoSize = 1024

	// maxProxyBytes caps what the photo proxy will relay.
	maxProxyBytes = 30 << 20
)

// activitySummary is the list-endpoint projection of an activity, in
// display units.
type activitySummary struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	StartLocal time.Time `json:"start_date_local"`
	DistanceKm float64   `json:"distance_km"`
	MovingMin  int       `json:"moving_minutes"`
	AvgPace    string    `json:"average_pace"`
	PhotoCount int       `json:"photo_count"`
}

func (s *Server) handleAthlete(w http.ResponseWriter, _ *http.Request, sess *store.Session, _ *sessionState) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":   sess.AthleteID,
		"name": sess.AthleteName,
	})
}

func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request, sess *store.Session, st *sessionState) {
	page := intQuery(r, "page", 1)
	perPage := intQuery(r, "per_page", defaultPerPage)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	activities, err := st.client.GetActivities(r.Context(), page, perPage)
	if err != nil {
		s.stravaError(w, sess, err)
		return
	}

	summaries := make([]activitySummary, len(activities))
	for i, a := range activities {
		v := stats.FromActivity(a)
		summaries[i] = activitySummary{
			ID:         v.ID,
			Name:       v.Name,
			Type:       v.Type,
			StartLocal: v.StartLocal,
			DistanceKm: v.DistanceKm,
			MovingMin:  v.MovingMin,
			AvgPace:    v.AvgPace,
			PhotoCount: a.TotalPhotoCount,
		}
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleActivityDetail(w http.ResponseWriter, r *http.Request, sess *store.Session, st *sessionState) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	activity, err := st.client.GetActivity(r.Context(), id)
	if err != nil {
		s.stravaError(w, sess, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.FromActivity(*activity))
}

func (s *Server) handleActivityPhotos(w http.ResponseWriter, r *http.Request, sess *store.Session, st *sessionState) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	photos, err := st.client.GetActivityPhotos(r.Context(), id, photoSize)
	if err != nil {
		s.stravaError(w, sess, err)
		return
	}

	urls := make([]string, 0, len(photos))
	for _, p := range photos {
		if u := p.URL(photoSize); u != "" {
			urls = append(urls, u)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"urls": urls})
}

// handlePhotoProxy relays remote photo bytes so the browser can load
// them without tripping cross-origin restrictions.
func (s *Server) handlePhotoProxy(w http.ResponseWriter, r *http.Request, _ *store.Session, _ *sessionState) {
	raw := r.URL.Query().Get("url")
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), "GET", u.String(), nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid url")
		return
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		writeError(w, http.StatusBadGateway, "fetching photo failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		writeError(w, http.StatusBadGateway, "photo source answered "+resp.Status)
		return
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "image/") {
		writeError(w, http.StatusBadGateway, "photo source did not return an image")
		return
	}

	w.Header().Set("Content-Type", ct)
	if _, err := io.Copy(w, io.LimitReader(resp.Body, maxProxyBytes)); err != nil {
		log.Printf("relaying photo: %v", err)
	}
}

// stravaError maps a client failure onto an HTTP answer. A terminal
// unauthorized (one refresh already retried, still rejected) tears the
// session down.
func (s *Server) stravaError(w http.ResponseWriter, sess *store.Session, err error) {
	if errors.Is(err, strava.ErrUnauthorized) {
		if delErr := s.store.DeleteSession(sess.ID); delErr != nil && !errors.Is(delErr, store.ErrSessionNotFound) {
			log.Printf("deleting rejected session: %v", delErr)
		}
		s.dropState(sess.ID)
		clearCookie(w, SessionCookie)
		writeError(w, http.StatusUnauthorized, "Strava authorization expired, sign in again")
		return
	}
	log.Printf("strava request failed: %v", err)
	writeError(w, http.StatusBadGateway, "Strava request failed")
}

func intQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
