package overlay

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontSet provides regular and bold faces at arbitrary pixel sizes and
// serves as the text-measurement capability of the layout.
type FontSet struct {
	regular *opentype.Font
	bold    *opentype.Font

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

type faceKey struct {
	size float64
	bold bool
}

// NewFontSet parses the embedded Go fonts.
func NewFontSet() (*FontSet, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing bold font: %w", err)
	}
	return &FontSet{
		regular: regular,
		bold:    bold,
		faces:   make(map[faceKey]font.Face),
	}, nil
}

// Face returns a cached face at the given pixel size.
func (f *FontSet) Face(size float64, bold bool) (font.Face, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := faceKey{size: size, bold: bold}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}

	src := f.regular
	if bold {
		src = f.bold
	}
	face, err := opentype.NewFace(src, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %vpx face: %w", size, err)
	}
	f.faces[key] = face
	return face, nil
}

// MeasureText returns the rendered pixel width of text at the given
// size. It implements TextMeasurer.
func (f *FontSet) MeasureText(text string, size float64, bold bool) float64 {
	face, err := f.Face(size, bold)
	if err != nil {
		return 0
	}
	return float64(font.MeasureString(face, text).Ceil())
}
