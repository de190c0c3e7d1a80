package editor

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"statshot/internal/overlay"
	"statshot/internal/stats"
)

// ErrNoBackground is returned when a render is requested before any
// background image has been set.
var ErrNoBackground = errors.New("no background image set")

// Defaults for a fresh session.
const (
	DefaultRatio           = overlay.RatioOriginal
	DefaultVerticalOffset  = 50.0
	DefaultBackgroundColor = "#000000"
	DefaultBackgroundAlpha = 0.5
	DefaultTextColor       = "#ffffff"
	DefaultCornerRadius    = 10.0
)

// DefaultStats is the stat selection a fresh session starts with.
var DefaultStats = []string{"name", "distance", "moving_time", "average_pace"}

// Params are the user-adjustable render settings. All fields are
// independent and persist across renders until explicitly changed.
type Params struct {
	Ratio           string   `json:"aspect_ratio"`
	VerticalOffset  float64  `json:"vertical_offset"`
	Background      string   `json:"background_color"`
	BackgroundAlpha float64  `json:"background_alpha"`
	TextColor       string   `json:"text_color"`
	FontRatio       float64  `json:"font_ratio"`
	CornerRadius    float64  `json:"corner_radius"`
	Stats           []string `json:"stats"`
}

// Patch is a partial Params update; nil fields are left unchanged.
// Validation is all-or-nothing: a bad field rejects the whole patch
// without touching the session.
type Patch struct {
	Ratio           *string  `json:"aspect_ratio"`
	VerticalOffset  *float64 `json:"vertical_offset"`
	Background      *string  `json:"background_color"`
	BackgroundAlpha *float64 `json:"background_alpha"`
	TextColor       *string  `json:"text_color"`
	FontRatio       *float64 `json:"font_ratio"`
	CornerRadius    *float64 `json:"corner_radius"`
	Stats           []string `json:"stats"`
}

// Layout is a read-only snapshot of the current overlay geometry, as
// served to the client for hit feedback.
type Layout struct {
	CanvasW    int     `json:"canvas_width"`
	CanvasH    int     `json:"canvas_height"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	FontSize   float64 `json:"font_size"`
	Padding    float64 `json:"padding"`
	LineHeight float64 `json:"line_height"`
	TitleLines int     `json:"title_lines"`
	Dragging   bool    `json:"dragging"`
}

// Session is one user's editing state: background, activity, render
// parameters and the overlay box. A mutex serializes handler
// goroutines so the engine itself never sees a concurrent writer.
//
// Repaint follows the dirty-flag model: every mutation recomputes the
// layout (keeping the box width and clamp current) and marks the
// cached bitmap stale; the next Render flushes. Pointer moves mutate
// the box directly without waiting for a flush.
type Session struct {
	mu sync.Mutex

	comp     *overlay.Compositor
	params   Params
	activity stats.Activity
	source   image.Image

	box     overlay.Box
	geom    overlay.Geometry
	canvasW int
	canvasH int

	frame *image.RGBA
	dirty bool
}

// NewSession creates a session with default render parameters and no
// background or activity.
func NewSession(comp *overlay.Compositor) *Session {
	sel, _ := stats.NewSelection(DefaultStats)
	return &Session{
		comp: comp,
		params: Params{
			Ratio:           DefaultRatio,
			VerticalOffset:  DefaultVerticalOffset,
			Background:      DefaultBackgroundColor,
			BackgroundAlpha: DefaultBackgroundAlpha,
			TextColor:       DefaultTextColor,
			FontRatio:       overlay.DefaultFontRatio,
			CornerRadius:    DefaultCornerRadius,
			Stats:           sel.Strings(),
		},
	}
}

// Params returns a copy of the current render parameters.
func (s *Session) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.params
	p.Stats = append([]string(nil), s.params.Stats...)
	return p
}

// SetBackground replaces the background image and re-seeds the box at
// the default corner.
func (s *Session) SetBackground(img image.Image) error {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("background has no pixels (%dx%d)", b.Dx(), b.Dy())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = img
	s.reseed()
	return nil
}

// SetActivity replaces the activity. The box re-seeds because the text
// content, and with it the box width, changes wholesale.
func (s *Session) SetActivity(act stats.Activity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity = act
	s.reseed()
}

// Activity returns the current activity.
func (s *Session) Activity() stats.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activity
}

// Apply validates and applies a parameter patch. An aspect-ratio
// change re-seeds the box; any other change re-runs the layout with
// the box position kept.
func (s *Session) Apply(p Patch) error {
	if p.Ratio != nil && !overlay.ValidRatio(*p.Ratio) {
		return fmt.Errorf("unknown aspect ratio %q", *p.Ratio)
	}
	if p.VerticalOffset != nil && (*p.VerticalOffset < 0 || *p.VerticalOffset > 100) {
		return fmt.Errorf("vertical_offset must be 0-100, got %v", *p.VerticalOffset)
	}
	if p.Background != nil {
		if _, err := overlay.ParseHexColor(*p.Background); err != nil {
			return err
		}
	}
	if p.TextColor != nil {
		if _, err := overlay.ParseHexColor(*p.TextColor); err != nil {
			return err
		}
	}
	if p.BackgroundAlpha != nil && (*p.BackgroundAlpha < 0 || *p.BackgroundAlpha > 1) {
		return fmt.Errorf("background_alpha must be 0-1, got %v", *p.BackgroundAlpha)
	}
	if p.FontRatio != nil && (*p.FontRatio <= 0 || *p.FontRatio > 25) {
		return fmt.Errorf("font_ratio must be in (0, 25], got %v", *p.FontRatio)
	}
	if p.CornerRadius != nil && *p.CornerRadius < 0 {
		return fmt.Errorf("corner_radius must not be negative, got %v", *p.CornerRadius)
	}
	var sel stats.Selection
	if p.Stats != nil {
		var err error
		if sel, err = stats.NewSelection(p.Stats); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ratioChanged := false
	if p.Ratio != nil && *p.Ratio != s.params.Ratio {
		s.params.Ratio = *p.Ratio
		ratioChanged = true
	}
	if p.VerticalOffset != nil {
		s.params.VerticalOffset = *p.VerticalOffset
	}
	if p.Background != nil {
		s.params.Background = *p.Background
	}
	if p.BackgroundAlpha != nil {
		s.params.BackgroundAlpha = *p.BackgroundAlpha
	}
	if p.TextColor != nil {
		s.params.TextColor = *p.TextColor
	}
	if p.FontRatio != nil {
		s.params.FontRatio = *p.FontRatio
	}
	if p.CornerRadius != nil {
		s.params.CornerRadius = *p.CornerRadius
		s.box.Radius = *p.CornerRadius
	}
	if p.Stats != nil {
		s.params.Stats = sel.Strings()
	}

	if ratioChanged {
		s.reseed()
	} else {
		s.relayout()
	}
	return nil
}

// PointerDown starts a drag when the pointer lands inside the box and
// reports whether it did.
func (s *Session) PointerDown(x, y float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return false, ErrNoBackground
	}
	return s.box.PointerDown(x, y, s.geom.Height), nil
}

// PointerMove repositions the box while a drag is active. Unlike
// parameter changes it applies directly, no layout re-run.
func (s *Session) PointerMove(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return ErrNoBackground
	}
	if !s.box.Dragging() {
		return nil
	}
	s.box.PointerMove(x, y, s.geom.Bounds(s.canvasW, s.canvasH))
	s.dirty = true
	return nil
}

// PointerUp ends the drag. Pointer-leave maps here too.
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.box.PointerUp()
}

// Preset places the box at a named position, overriding any drag.
func (s *Session) Preset(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return ErrNoBackground
	}
	if err := s.box.Preset(name, s.geom.Bounds(s.canvasW, s.canvasH)); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Layout returns the current geometry snapshot.
func (s *Session) Layout() (Layout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return Layout{}, ErrNoBackground
	}
	return Layout{
		CanvasW:    s.canvasW,
		CanvasH:    s.canvasH,
		X:          s.box.X,
		Y:          s.box.Y,
		Width:      s.box.Width,
		Height:     s.geom.Height,
		FontSize:   s.geom.FontSize,
		Padding:    s.geom.Padding,
		LineHeight: s.geom.LineHeight,
		TitleLines: len(s.geom.TitleLines),
		Dragging:   s.box.Dragging(),
	}, nil
}

// Render returns the current frame, flushing a full repaint when any
// mutation has landed since the last one.
func (s *Session) Render() (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.source == nil {
		return nil, ErrNoBackground
	}
	if !s.dirty && s.frame != nil {
		return s.frame, nil
	}

	frame, geom, err := s.comp.Render(s.frameInputs(), &s.box)
	if err != nil {
		return nil, err
	}
	s.frame = frame
	s.geom = geom
	s.canvasW = frame.Bounds().Dx()
	s.canvasH = frame.Bounds().Dy()
	s.dirty = false
	return frame, nil
}

// reseed re-runs the layout and drops the box back to the default
// corner. Callers must hold the lock.
func (s *Session) reseed() {
	s.box.Width = 0 // force a fresh width, bypassing the jitter guard
	s.relayout()
	s.box.Reset(s.geom.Bounds(s.canvasW, s.canvasH))
}

// relayout recomputes crop and geometry from the current state and
// re-clamps the box against the new canvas. Callers must hold the
// lock. No-op until a background exists.
func (s *Session) relayout() {
	s.dirty = true
	if s.source == nil {
		return
	}

	b := s.source.Bounds()
	crop, err := overlay.ResolveCrop(b.Dx(), b.Dy(), s.params.Ratio, s.params.VerticalOffset)
	if err != nil {
		return
	}
	s.canvasW, s.canvasH = crop.DstW, crop.DstH

	sel, _ := stats.NewSelection(s.params.Stats)
	s.geom = overlay.ResolveGeometry(s.comp.Fonts(), s.canvasW, s.canvasH, s.params.FontRatio, sel, s.activity, s.box.Width)
	s.box.Width = s.geom.Width
	s.box.Radius = s.params.CornerRadius
	s.box.Clamp(s.geom.Bounds(s.canvasW, s.canvasH))
}

func (s *Session) frameInputs() overlay.Frame {
	sel, _ := stats.NewSelection(s.params.Stats)
	return overlay.Frame{
		Source:         s.source,
		Ratio:          s.params.Ratio,
		VerticalOffset: s.params.VerticalOffset,
		FontRatio:      s.params.FontRatio,
		Style: overlay.Style{
			Background:      s.params.Background,
			BackgroundAlpha: s.params.BackgroundAlpha,
			TextColor:       s.params.TextColor,
		},
		Stats:    sel,
		Activity: s.activity,
	}
}
