package sli

import (
	"image"
	"testing"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
)

// cmykLayer builds a plain CMYK layer filled with one pixel value.
func cmykLayer(t *testing.T, name string, r image.Rectangle, px [4]byte) *Layer {
	t.Helper()
	bitmap := make([]byte, 0, r.Dx()*r.Dy()*4)
	for i := 0; i < r.Dx()*r.Dy(); i++ {
		bitmap = append(bitmap, px[:]...)
	}
	l, err := NewLayer(name, name, r.Min, r.Dx(), r.Dy(), 4, bitmap, nil)
	if err != nil {
		t.Fatalf("NewLayer failed: %v", err)
	}
	return l
}

// tinyCMYK is a 2x2 layer holding pure C, M, Y and K pixels.
func tinyCMYK(t *testing.T, origin image.Point) *Layer {
	t.Helper()
	bitmap := []byte{
		255, 0, 0, 0, 0, 255, 0, 0,
		0, 0, 255, 0, 0, 0, 0, 255,
	}
	l, err := NewLayer("tinycmyk", "tinycmyk.tif", origin, 2, 2, 4, bitmap, nil)
	if err != nil {
		t.Fatalf("NewLayer failed: %v", err)
	}
	return l
}

func newTestPresentation(t *testing.T, layers ...*Layer) *Presentation {
	t.Helper()
	p, err := New("test.sli", layers, Options{Registry: colorconfig.Default(), Workers: 2})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

// twoBands is a 4x4 presentation: cyan over rows 0-1, magenta over rows 2-3.
func twoBands(t *testing.T) *Presentation {
	t.Helper()
	return newTestPresentation(t,
		cmykLayer(t, "top", image.Rect(0, 0, 4, 2), [4]byte{255, 0, 0, 0}),
		cmykLayer(t, "bottom", image.Rect(0, 2, 4, 4), [4]byte{0, 200, 0, 0}),
	)
}

// recordingViewport keeps what it was handed.
type recordingViewport struct {
	img  *image.RGBA
	rect image.Rectangle
	zoom int
}

func (v *recordingViewport) Present(img *image.RGBA, rect image.Rectangle, zoom int) error {
	v.img, v.rect, v.zoom = img, rect, zoom
	return nil
}
