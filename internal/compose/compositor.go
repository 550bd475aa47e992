package compose

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
)

// Kind selects the accumulation algorithm of a Compositor.
type Kind int

const (
	// DirectCMYK adds an already-CMYK layer plane by plane, saturating.
	DirectCMYK Kind = iota

	// WeightedInks folds N named inks into the four planes through their
	// registry multipliers.
	WeightedInks
)

func (k Kind) String() string {
	if k == WeightedInks {
		return "weighted"
	}
	return "direct"
}

// Compositor accumulates one layer into a canvas. The zero value is the
// direct CMYK accumulator.
type Compositor struct {
	kind  Kind
	inks  []*colorconfig.Color
	table [][Planes][256]int32
}

// Direct returns the fixed four-ink accumulator: for every plane,
// target += min(source, 255-target).
func Direct() Compositor {
	return Compositor{kind: DirectCMYK}
}

// Weighted returns the accumulator for a layer whose samples are, in order,
// the given inks. Per pixel, each plane accumulator starts at the canvas
// value, gains round(sample[j] * inks[j].Multipliers[plane]) for every ink
// j, and is clamped to [0, 255].
func Weighted(inks []*colorconfig.Color) (Compositor, error) {
	if len(inks) == 0 {
		return Compositor{}, errors.New("weighted compositor needs at least one ink")
	}
	c := Compositor{kind: WeightedInks, inks: inks, table: make([][Planes][256]int32, len(inks))}
	for j, ink := range inks {
		if ink == nil {
			return Compositor{}, fmt.Errorf("ink %d is undefined", j)
		}
		for p := 0; p < Planes; p++ {
			for v := 0; v < 256; v++ {
				c.table[j][p][v] = int32(math.Round(float64(v) * ink.Multipliers[p]))
			}
		}
	}
	return c, nil
}

// Kind reports which algorithm the compositor runs.
func (c Compositor) Kind() Kind {
	return c.kind
}

// Inks returns the inks of a weighted compositor, nil for the direct one.
func (c Compositor) Inks() []*colorconfig.Color {
	return c.inks
}

// SamplesPerPixel is the number of source bytes consumed per pixel.
func (c Compositor) SamplesPerPixel() int {
	if c.kind == WeightedInks {
		return len(c.inks)
	}
	return Planes
}

// Draw accumulates the layer src, covering srcRect in presentation
// coordinates, into the part of dst it overlaps. src holds srcRect.Dy() rows
// of srcRect.Dx()*SamplesPerPixel() bytes.
//
// The destination cursor walks the overlap pixel by pixel; at the end of each
// overlap row it skips the canvas bytes outside the layer, so layers at any
// offset are drawn without a canvas-sized temporary.
func (c Compositor) Draw(dst *Canvas, src []byte, srcRect image.Rectangle) error {
	spp := c.SamplesPerPixel()
	if need := srcRect.Dx() * srcRect.Dy() * spp; len(src) < need {
		return fmt.Errorf("layer bitmap holds %d bytes, %v needs %d", len(src), srcRect, need)
	}
	clip := srcRect.Intersect(dst.Rect)
	if clip.Empty() {
		return nil
	}

	w, h := clip.Dx(), clip.Dy()
	srcStride := srcRect.Dx() * spp
	rowSkip := dst.Stride() - w*Planes

	d := dst.PixOffset(clip.Min.X, clip.Min.Y)
	for y := 0; y < h; y++ {
		s := (clip.Min.Y-srcRect.Min.Y+y)*srcStride + (clip.Min.X-srcRect.Min.X)*spp
		switch c.kind {
		case WeightedInks:
			c.weightedRow(dst.Pix[d:d+w*Planes], src[s:s+w*spp])
		default:
			directRow(dst.Pix[d:d+w*Planes], src[s:s+w*Planes])
		}
		d += w*Planes + rowSkip
	}
	return nil
}

// directRow saturating-adds src into dst byte by byte.
func directRow(dst, src []byte) {
	for i, v := range src {
		dst[i] += min(v, 255-dst[i])
	}
}

// weightedRow folds every ink sample of each pixel into its four planes.
func (c Compositor) weightedRow(dst, src []byte) {
	n := len(c.inks)
	for px := 0; px*Planes < len(dst); px++ {
		t := dst[px*Planes : px*Planes+Planes]
		acc := [Planes]int32{int32(t[0]), int32(t[1]), int32(t[2]), int32(t[3])}
		for j, v := range src[px*n : px*n+n] {
			w := &c.table[j]
			acc[0] += w[0][v]
			acc[1] += w[1][v]
			acc[2] += w[2][v]
			acc[3] += w[3][v]
		}
		for p, a := range acc {
			t[p] = uint8(max(0, min(255, a)))
		}
	}
}
