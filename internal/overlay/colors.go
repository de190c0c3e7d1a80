package overlay

import (
	"fmt"
	"image/color"
)

// ParseHexColor parses "#RGB" or "#RRGGBB" into an opaque RGBA.
func ParseHexColor(s string) (color.RGBA, error) {
	c := color.RGBA{A: 0xff}
	if len(s) == 0 || s[0] != '#' {
		return c, fmt.Errorf("invalid color %q: must start with #", s)
	}

	var err error
	switch len(s) {
	case 7:
		_, err = fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 4:
		_, err = fmt.Sscanf(s, "#%1x%1x%1x", &c.R, &c.G, &c.B)
		// Expand 4-bit channels: f -> ff
		c.R *= 17
		c.G *= 17
		c.B *= 17
	default:
		err = fmt.Errorf("unsupported length %d", len(s))
	}
	if err != nil {
		return color.RGBA{A: 0xff}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return c, nil
}
