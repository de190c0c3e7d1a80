package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"statshot/internal/config"
	"statshot/internal/overlay"
	"statshot/internal/store"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Strava = config.StravaConfig{ClientID: "123", ClientSecret: "secret"}
	return &cfg
}

func newTestServer(t *testing.T, stravaURL string) (*Server, *store.Store) {
	t.Helper()
	st := store.NewTestStore(t)
	fonts, err := overlay.NewFontSet()
	if err != nil {
		t.Fatalf("NewFontSet: %v", err)
	}
	srv := New(testConfig(), st, overlay.NewCompositor(fonts))
	srv.stravaBaseURL = stravaURL
	return srv, st
}

// signIn plants a session row and returns its cookie.
func signIn(t *testing.T, st *store.Store) *http.Cookie {
	t.Helper()
	sess := &store.Session{
		ID:           uuid.NewString(),
		AthleteID:    42,
		AthleteName:  "Test Athlete",
		AccessToken:  "token",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	if err := st.SaveSession(sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	return &http.Cookie{Name: SessionCookie, Value: sess.ID}
}

func doJSON(t *testing.T, srv *Server, cookie *http.Cookie, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling body: %v", err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

// uploadBackground pushes a solid PNG of the given size through the
// multipart upload endpoint.
func uploadBackground(t *testing.T, srv *Server, cookie *http.Cookie, w, h int) *httptest.ResponseRecorder {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{60, 60, 60, 255}), image.Point{}, draw.Src)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "bg.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/editor/background", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t, "")

	paths := []string{
		"/api/athlete",
		"/api/activities",
		"/api/editor/layout",
		"/api/editor/preview",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			rec := doJSON(t, srv, nil, "GET", path, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestUnknownSessionClearsCookie(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := doJSON(t, srv, &http.Cookie{Name: SessionCookie, Value: "gone"}, "GET", "/api/athlete", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie && c.MaxAge < 0 {
			found = true
		}
	}
	if !found {
		t.Error("stale session cookie was not cleared")
	}
}

func TestLoginRedirect(t *testing.T) {
	srv, _ := newTestServer(t, "")

	rec := doJSON(t, srv, nil, "GET", "/auth/login", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parsing Location: %v", err)
	}
	if got := loc.Query().Get("client_id"); got != "123" {
		t.Errorf("client_id = %q, want 123", got)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("no state in authorization URL")
	}

	var stateSet bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie && c.Value == state {
			stateSet = true
		}
	}
	if !stateSet {
		t.Error("state cookie does not match the authorization URL state")
	}
}

func TestCallbackStateMismatch(t *testing.T) {
	srv, _ := newTestServer(t, "")

	req := httptest.NewRequest("GET", "/auth/callback?state=evil&code=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "good"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLogout(t *testing.T) {
	srv, st := newTestServer(t, "")
	cookie := signIn(t, st)

	rec := doJSON(t, srv, cookie, "POST", "/auth/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, srv, cookie, "GET", "/api/athlete", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("post-logout status = %d, want 401", rec.Code)
	}
}

func TestAthlete(t *testing.T) {
	srv, st := newTestServer(t, "")
	cookie := signIn(t, st)

	rec := doJSON(t, srv, cookie, "GET", "/api/athlete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.ID != 42 || body.Name != "Test Athlete" {
		t.Errorf("athlete = %+v, want id 42 name Test Athlete", body)
	}
}

// fakeStrava serves just enough of the Strava API for the proxy
// endpoints.
func fakeStrava(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/athlete/activities", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `[
			{"id": 1, "name": "Morning Run", "type": "Run", "distance": 5230,
			 "moving_time": 1680, "elapsed_time": 1800, "average_speed": 3.114,
			 "total_photo_count": 2},
			{"id": 2, "name": "Evening Ride", "type": "Ride", "distance": 20000,
			 "moving_time": 3600, "elapsed_time": 3700, "average_speed": 5.56}
		]`)
	})
	mux.HandleFunc("/activities/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 1, "name": "Morning Run", "type": "Run", "distance": 5230,
			"moving_time": 1680, "elapsed_time": 1800, "average_speed": 3.114,
			"calories": 402.5}`)
	})
	mux.HandleFunc("/activities/1/photos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"unique_id": "p1", "urls": {"1024": "https://photos.example/p1.jpg"}}]`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestActivitiesProxied(t *testing.T) {
	api := fakeStrava(t)
	srv, st := newTestServer(t, api.URL)
	cookie := signIn(t, st)

	rec := doJSON(t, srv, cookie, "GET", "/api/activities?page=1&per_page=30", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var list []activitySummary
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	first := list[0]
	if first.ID != 1 || first.Name != "Morning Run" {
		t.Errorf("first = %+v", first)
	}
	if first.DistanceKm != 5.23 {
		t.Errorf("DistanceKm = %v, want 5.23", first.DistanceKm)
	}
	if first.MovingMin != 28 {
		t.Errorf("MovingMin = %v, want 28", first.MovingMin)
	}
	if first.AvgPace != "5:21/km" {
		t.Errorf("AvgPace = %q, want 5:21/km", first.AvgPace)
	}
}

func TestActivityDetail(t *testing.T) {
	api := fakeStrava(t)
	srv, st := newTestServer(t, api.URL)
	cookie := signIn(t, st)

	rec := doJSON(t, srv, cookie, "GET", "/api/activities/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		Name     string   `json:"name"`
		Calories *float64 `json:"calories"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Name != "Morning Run" {
		t.Errorf("Name = %q", body.Name)
	}
	if body.Calories == nil || *body.Calories != 402.5 {
		t.Errorf("Calories = %v, want 402.5 from the detail shape", body.Calories)
	}

	rec = doJSON(t, srv, cookie, "GET", "/api/activities/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id status = %d, want 400", rec.Code)
	}
}

func TestActivityPhotos(t *testing.T) {
	api := fakeStrava(t)
	srv, st := newTestServer(t, api.URL)
	cookie := signIn(t, st)

	rec := doJSON(t, srv, cookie, "GET", "/api/activities/1/photos", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var body struct {
		URLs []string `json:"urls"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.URLs) != 1 || body.URLs[0] != "https://photos.example/p1.jpg" {
		t.Errorf("urls = %v", body.URLs)
	}
}

func TestPhotoProxy(t *testing.T) {
	photo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img.png":
			w.Header().Set("Content-Type", "image/png")
			img := image.NewRGBA(image.Rect(0, 0, 10, 10))
			png.Encode(w, img)
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html>")
		}
	}))
	t.Cleanup(photo.Close)

	srv, st := newTestServer(t, "")
	cookie := signIn(t, st)

	rec := doJSON(t, srv, cookie, "GET", "/api/photo?url="+url.QueryEscape(photo.URL+"/img.png"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("relayed bytes are not a PNG: %v", err)
	}

	rec = doJSON(t, srv, cookie, "GET", "/api/photo?url="+url.QueryEscape(photo.URL+"/page.html"), nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("non-image status = %d, want 502", rec.Code)
	}

	rec = doJSON(t, srv, cookie, "GET", "/api/photo?url=ftp%3A%2F%2Fexample.com%2Fx", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad scheme status = %d, want 400", rec.Code)
	}
}

func TestBackgroundUpload(t *testing.T) {
	srv, st := newTestServer(t, "")
	cookie := signIn(t, st)

	rec := uploadBackground(t, srv, cookie, 800, 600)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var layout struct {
		CanvasW int `json:"canvas_width"`
		CanvasH int `json:"canvas_height"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&layout); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if layout.CanvasW != 800 || layout.CanvasH != 600 {
		t.Errorf("canvas %dx%d, want 800x600", layout.CanvasW, layout.CanvasH)
	}
}

func TestBackgroundUploadRejectsNonImage(t *testing.T) {
	srv, st := newTestServer(t, "")
	cookie := signIn(t, st)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("image", "notes.txt")
	fmt.Fprint(part, "not an image")
	mw.Close()

	req := httptest.NewRequest("POST", "/api/editor/background", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestEditorRequiresBackground(t *testing.T) {
	srv, st := newTestServer(t, "")
	cookie := signIn(t, st)

	rec := doJSON(t, srv, cookie, "GET", "/api/editor/preview", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("preview status = %d, want 409", rec.Code)
	}
	rec = doJSON(t, srv, cookie, "POST", "/api/editor/preset", map[string]string{"position": "center"})
	if rec.Code != http.StatusConflict {
		t.Errorf("preset status = %d, want 409", rec.Code)
	}
}

func TestParamsEndpoint(t *testing.T) {
	srv, st := newTestServer(t, "")
	cookie := signIn(t, st)
	uploadBackground(t, srv, cookie, 800, 600)

	rec := doJSON(t, srv, cookie, "POST", "/api/editor/params", map[string]any{
		"aspect_ratio": "1:1",
		"text_color":   "#00ff00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var params struct {
		Ratio     string `json:"aspect_ratio"`
		TextColor string `json:"text_color"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&params); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if params.Ratio != "1:1" || params.TextColor != "#00ff00" {
		t.Errorf("params = %+v", params)
	}

	rec = doJSON(t, srv, cookie, "POST", "/api/editor/params", map[string]any{"aspect_ratio": "3:2"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad ratio status = %d, want 400", rec.Code)
	}
}

func TestPointerAndPresetFlow(t *testing.T) {
	srv, st := newTestServer(t, "")
	cookie := signIn(t, st)
	uploadBackground(t, srv, cookie, 800, 600)

	var layout struct {
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
		Padding float64 `json:"padding"`
	}
	rec := doJSON(t, srv, cookie, "GET", "/api/editor/layout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("layout status = %d", rec.Code)
	}
	json.NewDecoder(rec.Body).Decode(&layout)

	rec = doJSON(t, srv, cookie, "POST", "/api/editor/pointer", map[string]any{
		"type": "down", "x": layout.X + 5, "y": layout.Y + 5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pointer down status = %d, body %s", rec.Code, rec.Body)
	}
	var down struct {
		Hit bool `json:"hit"`
	}
	json.NewDecoder(rec.Body).Decode(&down)
	if !down.Hit {
		t.Error("pointer down inside the box reported no hit")
	}

	rec = doJSON(t, srv, cookie, "POST", "/api/editor/pointer", map[string]any{
		"type": "move", "x": layout.X + 105, "y": layout.Y + 55,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("pointer move status = %d", rec.Code)
	}
	var moved struct {
		Layout struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"layout"`
	}
	json.NewDecoder(rec.Body).Decode(&moved)
	if moved.Layout.X != layout.X+100 || moved.Layout.Y != layout.Y+50 {
		t.Errorf("box at (%v,%v), want (%v,%v)", moved.Layout.X, moved.Layout.Y, layout.X+100, layout.Y+50)
	}

	doJSON(t, srv, cookie, "POST", "/api/editor/pointer", map[string]any{"type": "up"})

	rec = doJSON(t, srv, cookie, "POST", "/api/editor/preset", map[string]string{"position": "top-left"})
	if rec.Code != http.StatusOK {
		t.Fatalf("preset status = %d, body %s", rec.Code, rec.Body)
	}
	var after struct {
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
		Padding float64 `json:"padding"`
	}
	json.NewDecoder(rec.Body).Decode(&after)
	if after.X != after.Padding || after.Y != after.Padding {
		t.Errorf("top-left preset at (%v,%v), want (%v,%v)", after.X, after.Y, after.Padding, after.Padding)
	}

	rec = doJSON(t, srv, cookie, "POST", "/api/editor/pointer", map[string]any{"type": "hover", "x": 1, "y": 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown pointer type status = %d, want 400", rec.Code)
	}
}

func TestPreviewAndExport(t *testing.T) {
	api := fakeStrava(t)
	srv, st := newTestServer(t, api.URL)
	cookie := signIn(t, st)
	uploadBackground(t, srv, cookie, 400, 300)

	rec := doJSON(t, srv, cookie, "POST", "/api/editor/activity", map[string]int64{"id": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("set activity status = %d, body %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, srv, cookie, "GET", "/api/editor/preview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preview status = %d", rec.Code)
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("preview is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Errorf("preview %dx%d, want 400x300", img.Bounds().Dx(), img.Bounds().Dy())
	}

	rec = doJSON(t, srv, cookie, "GET", "/api/editor/export?format=png", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "attachment") || !strings.Contains(cd, "morning-run-") {
		t.Errorf("Content-Disposition = %q, want attachment named after the activity", cd)
	}

	rec = doJSON(t, srv, cookie, "GET", "/api/editor/export?format=gif", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad format status = %d, want 400", rec.Code)
	}
}
