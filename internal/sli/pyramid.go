package sli

import (
	"image"

	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/sep-tools-mcp/internal/compose"
)

// MinZoom is the smallest zoom level served. Every level below it would be
// a single pixel anyway for images up to 2^30 pixels wide.
const MinZoom = -30

// LevelState is the lifecycle of one zoom level in the cache.
type LevelState int

const (
	Absent LevelState = iota
	Computing
	Cached
)

func (s LevelState) String() string {
	switch s {
	case Computing:
		return "computing"
	case Cached:
		return "cached"
	default:
		return "absent"
	}
}

// level is one cache entry. img and err are written once, before done is
// closed; readers wait on done and never see a partial bitmap.
type level struct {
	zoom  int
	state LevelState // guarded by Presentation.mu
	done  chan struct{}
	img   *image.RGBA
	err   error
}

func newLevel(zoom int) *level {
	return &level{zoom: zoom, state: Computing, done: make(chan struct{})}
}

func cachedLevel(zoom int, img *image.RGBA) *level {
	lv := &level{zoom: zoom, state: Cached, done: make(chan struct{}), img: img}
	close(lv.done)
	return lv
}

// composite folds the visible layers, in draw order, into a canvas covering
// bounds and converts it to display colours. Pixels no layer covers stay
// transparent. The returned image has its origin at bounds.Min.
func composite(bounds image.Rectangle, layers []*Layer) (*image.RGBA, error) {
	canvas := compose.NewCanvas(bounds)
	for _, l := range layers {
		if err := l.Compositor().Draw(canvas, l.Bitmap, l.Rect); err != nil {
			return nil, err
		}
	}

	img := image.NewRGBA(bounds)
	for _, l := range layers {
		canvas.ToRGBA(img, l.Rect)
	}
	img.Rect = img.Rect.Sub(bounds.Min)
	return img, nil
}

// downsample halves src with a 2x2 box filter. Odd trailing rows and columns
// average over the source pixels that exist. Channel sums are divided with
// truncation.
func downsample(src *image.RGBA) *image.RGBA {
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	w, h := (sw+1)/2, (sh+1)/2
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			y0, y1 := 2*y, min(2*y+2, sh)
			for x := 0; x < w; x++ {
				x0, x1 := 2*x, min(2*x+2, sw)
				var sum [4]int
				n := 0
				for sy := y0; sy < y1; sy++ {
					i := sy*src.Stride + x0*4
					for sx := x0; sx < x1; sx++ {
						sum[0] += int(src.Pix[i+0])
						sum[1] += int(src.Pix[i+1])
						sum[2] += int(src.Pix[i+2])
						sum[3] += int(src.Pix[i+3])
						i += 4
						n++
					}
				}
				d := y*dst.Stride + x*4
				for c := range sum {
					dst.Pix[d+c] = uint8(sum[c] / n)
				}
			}
		}
	})
	return dst
}

// levelRect maps r, given in level-0 pixels, onto zoom level zoom, rounding
// outward. Non-negative zooms use level 0 unchanged.
func levelRect(r image.Rectangle, zoom int) image.Rectangle {
	if zoom >= 0 {
		return r
	}
	s := 1 << -zoom
	return image.Rect(floorDiv(r.Min.X, s), floorDiv(r.Min.Y, s), ceilDiv(r.Max.X, s), ceilDiv(r.Max.Y, s))
}

// shownRect maps a level rectangle back to presentation pixels relative
// to the presentation origin.
func shownRect(r image.Rectangle, zoom int) image.Rectangle {
	if zoom >= 0 {
		return r
	}
	s := 1 << -zoom
	return image.Rect(r.Min.X*s, r.Min.Y*s, r.Max.X*s, r.Max.Y*s)
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
