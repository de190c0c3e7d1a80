package server

import (
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"strconv"
	"time"

	"statshot/internal/editor"
	"statshot/internal/overlay"
	"statshot/internal/stats"
	"statshot/internal/store"
)

// handleBackground accepts a multipart image upload as the new
// background. A non-image or oversized file changes nothing.
func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request, _ *store.Session, st *sessionState) {
	limit := int64(s.cfg.Server.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image upload missing or too large")
		return
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is not a readable image")
		return
	}

	if err := st.editor.SetBackground(img); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("background set: %s %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())
	s.respondLayout(w, st)
}

// handleSetActivity fetches the activity detail (calories only arrive
// there) and installs it in the editor.
func (s *Server) handleSetActivity(w http.ResponseWriter, r *http.Request, sess *store.Session, st *sessionState) {
	var body struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == 0 {
		writeError(w, http.StatusBadRequest, "body must be {\"id\": <activity id>}")
		return
	}

	activity, err := st.client.GetActivity(r.Context(), body.ID)
	if err != nil {
		s.stravaError(w, sess, err)
		return
	}

	st.editor.SetActivity(stats.FromActivity(*activity))
	writeJSON(w, http.StatusOK, stats.FromActivity(*activity))
}

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request, _ *store.Session, st *sessionState) {
	var patch editor.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := st.editor.Apply(patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st.editor.Params())
}

// handlePointer feeds drag events into the position state machine.
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request, _ *store.Session, st *sessionState) {
	var ev struct {
		Type string  `json:"type"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	}
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var err error
	var hit bool
	switch ev.Type {
	case "down":
		hit, err = st.editor.PointerDown(ev.X, ev.Y)
	case "move":
		err = st.editor.PointerMove(ev.X, ev.Y)
	case "up", "leave":
		st.editor.PointerUp()
	default:
		writeError(w, http.StatusBadRequest, "type must be down, move, up or leave")
		return
	}
	if err != nil {
		s.editorError(w, err)
		return
	}

	layout, err := st.editor.Layout()
	if err != nil {
		s.editorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hit": hit, "layout": layout})
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request, _ *store.Session, st *sessionState) {
	var body struct {
		Position string `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := st.editor.Preset(body.Position); err != nil {
		s.editorError(w, err)
		return
	}
	s.respondLayout(w, st)
}

func (s *Server) handleLayout(w http.ResponseWriter, _ *http.Request, _ *store.Session, st *sessionState) {
	s.respondLayout(w, st)
}

// handlePreview renders the current state as PNG, flushing any
// pending repaint.
func (s *Server) handlePreview(w http.ResponseWriter, _ *http.Request, _ *store.Session, st *sessionState) {
	frame, err := st.editor.Render()
	if err != nil {
		s.editorError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := overlay.Encode(w, frame, "png", 0); err != nil {
		log.Printf("encoding preview: %v", err)
	}
}

// handleExport renders and delivers the final image as a download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, _ *store.Session, st *sessionState) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "jpeg"
	}
	if format != "jpeg" && format != "jpg" && format != "png" {
		writeError(w, http.StatusBadRequest, "format must be jpeg or png")
		return
	}

	frame, err := st.editor.Render()
	if err != nil {
		s.editorError(w, err)
		return
	}

	name := editor.ExportFilename(st.editor.Activity().Name, format, time.Now())
	if format == "png" {
		w.Header().Set("Content-Type", "image/png")
	} else {
		w.Header().Set("Content-Type", "image/jpeg")
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	if err := overlay.Encode(w, frame, format, s.cfg.Export.JPEGQuality); err != nil {
		log.Printf("encoding export: %v", err)
	}
}

func (s *Server) respondLayout(w http.ResponseWriter, st *sessionState) {
	layout, err := st.editor.Layout()
	if err != nil {
		s.editorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, layout)
}

func (s *Server) editorError(w http.ResponseWriter, err error) {
	if errors.Is(err, editor.ErrNoBackground) {
		writeError(w, http.StatusConflict, "upload a background image first")
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
