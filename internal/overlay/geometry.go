package overlay

import (
	"math"
	"strings"

	"statshot/internal/stats"
)

// TextMeasurer reports the rendered pixel width of a string at a font
// size. FontSet is the production implementation.
type TextMeasurer interface {
	MeasureText(text string, size float64, bold bool) float64
}

// Layout constants, authored at the reference font size (the default
// 4% ratio on a 600px-tall canvas, i.e. 24px). All spacing scales with
// fontSize relative to that reference.
const (
	referenceHeight   = 600.0
	referenceFontSize = 24.0

	basePadding   = 20.0
	baseLineGap   = 10.0
	baseHeaderGap = 14.0

	// The title renders one step larger than the rows.
	titleSizeStep = 4.0

	// DefaultFontRatio is the starting font-size percentage.
	DefaultFontRatio = 4.0

	// widthEpsilon keeps the box width stable against text metric
	// jitter: a remeasure within this distance of the stored width is
	// not reassigned.
	widthEpsilon = 50.0
)

// Geometry is one resolved overlay layout.
type Geometry struct {
	FontSize     float64
	TitleSize    float64
	Padding      float64
	LineHeight   float64
	HeaderHeight float64
	Width        float64
	Height       float64
	TitleLines   []string
}

// FontSizeFor computes the row font size for a canvas height and ratio
// percentage. The floor against the 600px reference height keeps text
// readable on short canvases.
func FontSizeFor(canvasHeight int, ratio float64) float64 {
	byCanvas := math.Floor(float64(canvasHeight) * ratio / 100)
	byReference := math.Floor(referenceHeight * ratio / 100)
	return math.Max(byCanvas, byReference)
}

// ResolveGeometry lays out the overlay for one canvas, stat selection
// and activity. prevWidth is the currently stored box width; a new
// measurement replaces it only when it moves more than the jitter
// threshold. Pass 0 when no width has been stored yet.
func ResolveGeometry(m TextMeasurer, canvasW, canvasH int, ratio float64, sel stats.Selection, act stats.Activity, prevWidth float64) Geometry {
	g := Geometry{FontSize: FontSizeFor(canvasH, ratio)}
	g.TitleSize = g.FontSize + titleSizeStep

	scale := g.FontSize / referenceFontSize
	g.Padding = basePadding * scale
	g.LineHeight = g.FontSize + baseLineGap*scale
	g.HeaderHeight = g.TitleSize + baseHeaderGap*scale

	// Widest content line decides the box width.
	maxLine := 0.0
	if sel.HasTitle() {
		maxLine = m.MeasureText(act.Name, g.TitleSize, true)
	}
	for _, key := range sel.Rows() {
		line := key.Label() + ": " + key.Value(act)
		if w := m.MeasureText(line, g.FontSize, false); w > maxLine {
			maxLine = w
		}
	}

	width := maxLine + 2*g.Padding
	if limit := float64(canvasW) - 2*g.Padding; width > limit {
		width = limit
	}
	if prevWidth > 0 && math.Abs(width-prevWidth) <= widthEpsilon {
		width = prevWidth
	}
	g.Width = width

	if sel.HasTitle() && act.Name != "" {
		g.TitleLines = wrapLines(m, act.Name, g.TitleSize, true, g.Width-2*g.Padding)
	}

	rows := float64(len(sel.Rows()))
	titleLines := float64(len(g.TitleLines))
	g.Height = 2*g.Padding + g.HeaderHeight + rows*g.LineHeight + titleLines*g.LineHeight

	return g
}

// Bounds returns the clamp limits this layout imposes on the box.
func (g Geometry) Bounds(canvasW, canvasH int) Bounds {
	return Bounds{
		CanvasW:   float64(canvasW),
		CanvasH:   float64(canvasH),
		Padding:   g.Padding,
		BoxHeight: g.Height,
	}
}

// wrapLines splits text into greedy word-wrapped lines whose measured
// width stays within maxWidth. A single word wider than maxWidth still
// takes its own line, and the final partial line is always kept.
func wrapLines(m TextMeasurer, text string, size float64, bold bool, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if m.MeasureText(candidate, size, bold) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
