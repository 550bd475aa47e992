// Package compose accumulates layer ink values into a shared CMYK canvas and
// converts the result for display.
package compose

import (
	"image"

	"github.com/anthonynsimon/bild/parallel"
)

// Planes is the number of ink planes in a canvas pixel: C, M, Y, K.
const Planes = 4

// Canvas is a CMYK accumulation surface covering Rect in presentation
// coordinates. Pixels are interleaved C, M, Y, K bytes in row-major order.
type Canvas struct {
	Rect image.Rectangle
	Pix  []byte
}

// NewCanvas returns a zero-filled canvas covering r.
func NewCanvas(r image.Rectangle) *Canvas {
	return &Canvas{Rect: r, Pix: make([]byte, r.Dx()*r.Dy()*Planes)}
}

// Stride is the number of bytes in one canvas row.
func (c *Canvas) Stride() int {
	return c.Rect.Dx() * Planes
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (c *Canvas) PixOffset(x, y int) int {
	return (y-c.Rect.Min.Y)*c.Stride() + (x-c.Rect.Min.X)*Planes
}

// At returns the four ink bytes of pixel (x, y), or zeros outside the canvas.
func (c *Canvas) At(x, y int) [Planes]byte {
	var px [Planes]byte
	if !(image.Point{x, y}).In(c.Rect) {
		return px
	}
	copy(px[:], c.Pix[c.PixOffset(x, y):])
	return px
}

// ToRGBA writes the display colour of every canvas pixel inside r into dst,
// opaque. dst shares the canvas coordinate space. Each display channel is
// 255 minus its complementary ink plus black, saturated:
//
//	R = 255 - min(255, C+K)
//	G = 255 - min(255, M+K)
//	B = 255 - min(255, Y+K)
func (c *Canvas) ToRGBA(dst *image.RGBA, r image.Rectangle) {
	r = r.Intersect(c.Rect).Intersect(dst.Rect)
	if r.Empty() {
		return
	}
	parallel.Line(r.Dy(), func(start, end int) {
		for y := r.Min.Y + start; y < r.Min.Y+end; y++ {
			s := c.PixOffset(r.Min.X, y)
			d := dst.PixOffset(r.Min.X, y)
			for x := r.Min.X; x < r.Max.X; x++ {
				k := int(c.Pix[s+3])
				dst.Pix[d+0] = complement(int(c.Pix[s+0]) + k)
				dst.Pix[d+1] = complement(int(c.Pix[s+1]) + k)
				dst.Pix[d+2] = complement(int(c.Pix[s+2]) + k)
				dst.Pix[d+3] = 255
				s += Planes
				d += 4
			}
		}
	})
}

func complement(ink int) uint8 {
	return uint8(255 - min(255, ink))
}
