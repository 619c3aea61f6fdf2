package progress

import (
	"fmt"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGB is an 8-bit color as drawn by the surfaces.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex renders c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// CSS renders c as rgb(r, g, b).
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

var (
	// GradientStart and GradientEnd bound the attended-lesson gradient.
	GradientStart = RGB{R: 0, G: 193, B: 255}
	GradientEnd   = RGB{R: 106, G: 0, B: 255}
	// MissedColor marks a missed lesson.
	MissedColor = RGB{R: 249, G: 115, B: 22}
	// NeutralColor marks scheduled and unscheduled lessons.
	NeutralColor = RGB{R: 55, G: 65, B: 81}
	// WidgetEmptyColor fills the unreached cells of widget bars.
	WidgetEmptyColor = RGB{R: 75, G: 85, B: 99}
)

func (c RGB) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Lerp interpolates linearly in RGB space and rounds each channel.
// ratio is clamped to [0, 1].
func Lerp(from, to RGB, ratio float64) RGB {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	r, g, b := from.colorful().BlendRgb(to.colorful(), ratio).RGB255()
	return RGB{R: r, G: g, B: b}
}

// GradientAt returns the attended color for position i of n. The ratio is
// i/(n-1), or 1 for a single-segment bar.
func GradientAt(i, n int) RGB {
	ratio := 1.0
	if n > 1 {
		ratio = float64(i) / float64(n-1)
	}
	return Lerp(GradientStart, GradientEnd, ratio)
}
