package overlay

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/fogleman/gg"
	xdraw "golang.org/x/image/draw"

	"statshot/internal/stats"
)

// Style is the user-adjustable paint configuration.
type Style struct {
	Background      string  // hex fill behind the stats
	BackgroundAlpha float64 // 0..1
	TextColor       string
}

// Frame bundles the inputs of one full paint.
type Frame struct {
	Source         image.Image
	Ratio          string
	VerticalOffset float64
	FontRatio      float64
	Style          Style
	Stats          stats.Selection
	Activity       stats.Activity
}

// Compositor paints complete frames: the cover-cropped background, the
// backdrop and the stat text. Every paint starts from scratch; there is
// no incremental redraw.
type Compositor struct {
	fonts *FontSet
}

// NewCompositor creates a compositor drawing with the given fonts.
func NewCompositor(fonts *FontSet) *Compositor {
	return &Compositor{fonts: fonts}
}

// Fonts exposes the font set so callers can run layout-only passes
// with the same measurements the paint will use.
func (c *Compositor) Fonts() *FontSet {
	return c.fonts
}

// Render paints one frame. It resolves the crop and the overlay layout,
// updates the box (width through the jitter guard, position re-clamped
// against the new canvas) and returns the bitmap together with the
// layout that produced it.
func (c *Compositor) Render(f Frame, box *Box) (*image.RGBA, Geometry, error) {
	srcBounds := f.Source.Bounds()
	crop, err := ResolveCrop(srcBounds.Dx(), srcBounds.Dy(), f.Ratio, f.VerticalOffset)
	if err != nil {
		return nil, Geometry{}, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, crop.DstW, crop.DstH))
	// The crop rectangle is relative to the source's own origin.
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), f.Source, crop.Src.Add(srcBounds.Min), xdraw.Src, nil)

	g := ResolveGeometry(c.fonts, crop.DstW, crop.DstH, f.FontRatio, f.Stats, f.Activity, box.Width)
	box.Width = g.Width
	box.Clamp(g.Bounds(crop.DstW, crop.DstH))

	if err := c.paintOverlay(dst, f, g, box); err != nil {
		return nil, Geometry{}, err
	}
	return dst, g, nil
}

func (c *Compositor) paintOverlay(dst *image.RGBA, f Frame, g Geometry, box *Box) error {
	bg, err := ParseHexColor(f.Style.Background)
	if err != nil {
		return fmt.Errorf("background color: %w", err)
	}
	fg, err := ParseHexColor(f.Style.TextColor)
	if err != nil {
		return fmt.Errorf("text color: %w", err)
	}

	dc := gg.NewContextForRGBA(dst)

	// Backdrop. The effective radius can never exceed half the box.
	radius := math.Min(box.Radius, math.Min(box.Width/2, g.Height/2))
	dc.SetRGBA(float64(bg.R)/255, float64(bg.G)/255, float64(bg.B)/255, f.Style.BackgroundAlpha)
	if radius > 0 {
		dc.DrawRoundedRectangle(box.X, box.Y, box.Width, g.Height, radius)
	} else {
		dc.DrawRectangle(box.X, box.Y, box.Width, g.Height)
	}
	dc.Fill()

	dc.SetRGBA(float64(fg.R)/255, float64(fg.G)/255, float64(fg.B)/255, 1)

	left := box.X + g.Padding
	right := box.X + box.Width - g.Padding
	cursor := box.Y + g.Padding

	if len(g.TitleLines) > 0 {
		face, err := c.fonts.Face(g.TitleSize, true)
		if err != nil {
			return fmt.Errorf("title face: %w", err)
		}
		dc.SetFontFace(face)
		for _, line := range g.TitleLines {
			dc.DrawString(line, left, cursor+g.TitleSize)
			cursor += g.LineHeight
		}
	}
	cursor += g.HeaderHeight

	rows := f.Stats.Rows()
	if len(rows) > 0 {
		face, err := c.fonts.Face(g.FontSize, false)
		if err != nil {
			return fmt.Errorf("row face: %w", err)
		}
		dc.SetFontFace(face)
		for _, key := range rows {
			baseline := cursor + g.FontSize
			dc.DrawString(key.Label(), left, baseline)
			dc.DrawStringAnchored(key.Value(f.Activity), right, baseline, 1, 0)
			cursor += g.LineHeight
		}
	}

	return nil
}

// Encode writes img in the named format. quality applies to JPEG only.
func Encode(w io.Writer, img image.Image, format string, quality int) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg", "jpg":
		if quality <= 0 || quality > 100 {
			quality = 90
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
