package overlay

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// RatioOriginal keeps the source dimensions untouched.
const RatioOriginal = "original"

// Ratios are the aspect ratios offered by the editor.
var Ratios = []string{RatioOriginal, "1:1", "4:5", "16:9", "9:16"}

// ValidRatio reports whether s is one of the offered ratios.
func ValidRatio(s string) bool {
	for _, r := range Ratios {
		if r == s {
			return true
		}
	}
	return false
}

// ParseRatio parses a "W:H" ratio string. A zero or missing height
// defaults to 1 so the division below can never hit zero.
func ParseRatio(s string) (w, h int, err error) {
	parts := strings.SplitN(s, ":", 2)
	w, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid aspect ratio %q", s)
	}
	h = 1
	if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
		h, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || h < 0 {
			return 0, 0, fmt.Errorf("invalid aspect ratio %q", s)
		}
		if h == 0 {
			h = 1
		}
	}
	return w, h, nil
}

// Crop is a resolved cover crop: the source rectangle to sample and the
// destination canvas size it maps onto.
type Crop struct {
	Src  image.Rectangle
	DstW int
	DstH int
}

// ResolveCrop computes the cover crop of a srcW x srcH source for the
// given target ratio. The crop matches the target ratio exactly while
// covering as much of the source as possible: a source wider than the
// target loses width from both sides equally, a taller source loses
// height according to verticalOffset (0 keeps the top edge, 100 the
// bottom, 50 centers).
func ResolveCrop(srcW, srcH int, ratio string, verticalOffset float64) (Crop, error) {
	if srcW <= 0 || srcH <= 0 {
		return Crop{}, fmt.Errorf("source has no pixels (%dx%d)", srcW, srcH)
	}
	if ratio == RatioOriginal {
		return Crop{Src: image.Rect(0, 0, srcW, srcH), DstW: srcW, DstH: srcH}, nil
	}

	rw, rh, err := ParseRatio(ratio)
	if err != nil {
		return Crop{}, err
	}
	target := float64(rw) / float64(rh)

	if verticalOffset < 0 {
		verticalOffset = 0
	} else if verticalOffset > 100 {
		verticalOffset = 100
	}

	var cropW, cropH, x, y int
	native := float64(srcW) / float64(srcH)
	if native > target {
		// Source is wider than the target: full height, centered width.
		cropH = srcH
		cropW = int(math.Round(float64(srcH) * target))
		x = (srcW - cropW) / 2
	} else {
		// Source is taller: full width, height positioned by the offset.
		cropW = srcW
		cropH = int(math.Round(float64(srcW) / target))
		margin := srcH - cropH
		y = int(math.Round(float64(margin) * verticalOffset / 100))
	}

	// Rounding must never push the rectangle outside the source.
	if cropW > srcW {
		cropW = srcW
	}
	if cropH > srcH {
		cropH = srcH
	}
	if x+cropW > srcW {
		x = srcW - cropW
	}
	if y+cropH > srcH {
		y = srcH - cropH
	}

	return Crop{Src: image.Rect(x, y, x+cropW, y+cropH), DstW: cropW, DstH: cropH}, nil
}
