package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a display color in multiple representations.
type ColorResult struct {
	Hex   string   `json:"hex"`   // Hex format "#RRGGBB"
	RGB   RGBColor `json:"rgb"`   // RGB components
	HSL   HSLColor `json:"hsl"`   // HSL representation
	Alpha uint8    `json:"alpha"` // 0 where no layer covers the pixel
}

// SampleColor returns the display color of one pixel of a composited level.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	if !(image.Point{x, y}).In(img.Bounds()) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}
	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	res := newColorResult(colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	})
	res.Alpha = c.A
	return res, nil
}

// InkColor returns the display color of averaged process ink values, using
// the same mapping as the compositor: each display channel is 255 minus its
// complementary ink plus black, saturated.
func InkColor(c, m, y, k float64) *ColorResult {
	channel := func(ink float64) float64 {
		return 1 - math.Min(255, math.Max(0, ink+k))/255
	}
	res := newColorResult(colorful.Color{R: channel(c), G: channel(m), B: channel(y)})
	res.Alpha = 255
	return res
}

func newColorResult(cf colorful.Color) *ColorResult {
	r, g, b := cf.RGB255()
	h, s, l := cf.Hsl()
	return &ColorResult{
		Hex: fmt.Sprintf("#%02X%02X%02X", r, g, b),
		RGB: RGBColor{R: r, G: g, B: b},
		HSL: HSLColor{
			H: int(math.Round(h)) % 360,
			S: int(math.Round(s * 100)),
			L: int(math.Round(l * 100)),
		},
	}
}
