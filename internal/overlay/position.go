package overlay

import "fmt"

// Bounds are the clamp limits for one layout pass.
type Bounds struct {
	CanvasW   float64
	CanvasH   float64
	Padding   float64
	BoxHeight float64
}

// drag holds the grab point's offset from the box origin while a drag
// is active.
type drag struct {
	dx float64
	dy float64
}

// Box is the overlay's position state. Width is the single source of
// truth for backdrop fill, value alignment, hit-testing and clamping;
// it is only written through the geometry resolver's jitter guard.
// A nil drag pointer is the idle state.
type Box struct {
	X      float64
	Y      float64
	Width  float64
	Radius float64

	drag *drag
}

// Dragging reports whether a pointer currently holds the box.
func (b *Box) Dragging() bool {
	return b.drag != nil
}

// PointerDown starts a drag when the pointer lands inside the box and
// reports whether it did. boxHeight comes from the current layout.
func (b *Box) PointerDown(x, y, boxHeight float64) bool {
	if x < b.X || x > b.X+b.Width || y < b.Y || y > b.Y+boxHeight {
		return false
	}
	b.drag = &drag{dx: x - b.X, dy: y - b.Y}
	return true
}

// PointerMove repositions the box so the grab point stays under the
// pointer, clamped to the canvas. No-op while idle.
func (b *Box) PointerMove(x, y float64, bd Bounds) {
	if b.drag == nil {
		return
	}
	b.X = x - b.drag.dx
	b.Y = y - b.drag.dy
	b.Clamp(bd)
}

// PointerUp ends the drag. Also used when the pointer leaves the
// canvas.
func (b *Box) PointerUp() {
	b.drag = nil
}

// Clamp keeps the box inside the canvas: the origin never goes
// negative and the far edges keep one padding of margin.
func (b *Box) Clamp(bd Bounds) {
	b.X = clamp(b.X, 0, bd.CanvasW-b.Width-bd.Padding)
	b.Y = clamp(b.Y, 0, bd.CanvasH-bd.BoxHeight-bd.Padding)
}

// Reset re-seeds the box at the default corner and drops any active
// drag. Used when the aspect ratio or activity changes.
func (b *Box) Reset(bd Bounds) {
	b.X = bd.Padding
	b.Y = bd.Padding
	b.drag = nil
}

// Presets are the discrete box placements.
var Presets = []string{"top-left", "top-right", "bottom-left", "bottom-right", "center"}

// Preset places the box at a named position. It bypasses the drag
// machine and always overrides a manual drag in progress.
func (b *Box) Preset(name string, bd Bounds) error {
	left := bd.Padding
	right := bd.CanvasW - b.Width - bd.Padding
	top := bd.Padding
	bottom := bd.CanvasH - bd.BoxHeight - bd.Padding

	switch name {
	case "top-left":
		b.X, b.Y = left, top
	case "top-right":
		b.X, b.Y = right, top
	case "bottom-left":
		b.X, b.Y = left, bottom
	case "bottom-right":
		b.X, b.Y = right, bottom
	case "center":
		b.X = (bd.CanvasW - b.Width) / 2
		b.Y = (bd.CanvasH - bd.BoxHeight) / 2
	default:
		return fmt.Errorf("unknown preset %q", name)
	}

	b.drag = nil
	b.Clamp(bd)
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
