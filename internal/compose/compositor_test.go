package compose

import (
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
)

func solid(w, h int, px ...byte) []byte {
	out := make([]byte, 0, w*h*len(px))
	for i := 0; i < w*h; i++ {
		out = append(out, px...)
	}
	return out
}

func TestDirect_FullCyanLayer(t *testing.T) {
	canvas := NewCanvas(image.Rect(0, 0, 6, 4))
	layer := image.Rect(1, 1, 4, 3)

	if err := Direct().Draw(canvas, solid(3, 2, 255, 0, 0, 0), layer); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			want := [Planes]byte{}
			if (image.Point{x, y}).In(layer) {
				want = [Planes]byte{255, 0, 0, 0}
			}
			if got := canvas.At(x, y); got != want {
				t.Errorf("pixel (%d,%d): got %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestDirect_Saturates(t *testing.T) {
	canvas := NewCanvas(image.Rect(0, 0, 1, 1))
	copy(canvas.Pix, []byte{200, 10, 0, 255})

	if err := Direct().Draw(canvas, []byte{100, 20, 0, 1}, image.Rect(0, 0, 1, 1)); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if diff := cmp.Diff([]byte{255, 30, 0, 255}, canvas.Pix); diff != "" {
		t.Errorf("pixel mismatch (-want +got):\n%s", diff)
	}
}

func TestDraw_Offsets(t *testing.T) {
	tests := []struct {
		name  string
		layer image.Rectangle
	}{
		{"inside", image.Rect(1, 1, 3, 2)},
		{"past right edge", image.Rect(2, 1, 5, 3)},
		{"before left edge", image.Rect(-2, 0, 2, 2)},
		{"above top edge", image.Rect(0, -1, 4, 1)},
		{"outside", image.Rect(10, 10, 12, 12)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canvas := NewCanvas(image.Rect(0, 0, 4, 3))
			// Each source pixel's C byte encodes its layer coordinates.
			w, h := tt.layer.Dx(), tt.layer.Dy()
			src := make([]byte, w*h*Planes)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					src[(y*w+x)*Planes] = byte(1 + y*16 + x)
				}
			}

			if err := Direct().Draw(canvas, src, tt.layer); err != nil {
				t.Fatalf("Draw failed: %v", err)
			}

			for y := 0; y < 3; y++ {
				for x := 0; x < 4; x++ {
					var want byte
					if (image.Point{x, y}).In(tt.layer) {
						want = byte(1 + (y-tt.layer.Min.Y)*16 + (x - tt.layer.Min.X))
					}
					if got := canvas.At(x, y)[0]; got != want {
						t.Errorf("pixel (%d,%d): got %d, want %d", x, y, got, want)
					}
				}
			}
		})
	}
}

func TestDraw_ShortBitmap(t *testing.T) {
	canvas := NewCanvas(image.Rect(0, 0, 2, 2))
	if err := Direct().Draw(canvas, make([]byte, 7), image.Rect(0, 0, 2, 1)); err == nil {
		t.Error("Draw should reject a bitmap shorter than its rectangle")
	}
}

func TestWeighted(t *testing.T) {
	orange := colorconfig.NewColor("ORANGE", 0, 0.5, 1, 0)
	dark := colorconfig.NewColor("DARK", 0.5, 0, 0, 1)

	c, err := Weighted([]*colorconfig.Color{orange, dark})
	if err != nil {
		t.Fatalf("Weighted failed: %v", err)
	}
	if c.Kind() != WeightedInks || c.SamplesPerPixel() != 2 {
		t.Fatalf("got kind %v with %d samples", c.Kind(), c.SamplesPerPixel())
	}

	canvas := NewCanvas(image.Rect(0, 0, 2, 1))
	copy(canvas.Pix, []byte{0, 0, 0, 100, 0, 0, 0, 0})

	// Pixel 0: orange 101, dark 200. Pixel 1: orange 255, dark 0.
	src := []byte{101, 200, 255, 0}
	if err := c.Draw(canvas, src, image.Rect(0, 0, 2, 1)); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	want := []byte{
		100, 51, 101, 255, // K 100+200 clamps; 101*0.5 rounds half away from zero
		0, 128, 255, 0,
	}
	if diff := cmp.Diff(want, canvas.Pix); diff != "" {
		t.Errorf("canvas mismatch (-want +got):\n%s", diff)
	}
}

func TestWeighted_Rejects(t *testing.T) {
	if _, err := Weighted(nil); err == nil {
		t.Error("Weighted should reject an empty ink list")
	}
	if _, err := Weighted([]*colorconfig.Color{nil}); err == nil {
		t.Error("Weighted should reject an undefined ink")
	}
}

func TestWeighted_IdentityMatchesDirect(t *testing.T) {
	reg := colorconfig.Default()
	p := reg.Process()
	weighted, err := Weighted(p[:])
	if err != nil {
		t.Fatalf("Weighted failed: %v", err)
	}

	src := []byte{10, 20, 30, 40, 250, 250, 0, 7}
	r := image.Rect(0, 0, 2, 1)

	a := NewCanvas(r)
	copy(a.Pix, []byte{5, 5, 5, 5, 10, 10, 10, 10})
	b := NewCanvas(r)
	copy(b.Pix, a.Pix)

	if err := Direct().Draw(a, src, r); err != nil {
		t.Fatal(err)
	}
	if err := weighted.Draw(b, src, r); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(a.Pix, b.Pix); diff != "" {
		t.Errorf("identity weighted differs from direct (-direct +weighted):\n%s", diff)
	}
}

func TestToRGBA(t *testing.T) {
	canvas := NewCanvas(image.Rect(0, 0, 3, 1))
	copy(canvas.Pix, []byte{
		255, 0, 0, 0,
		100, 50, 0, 200,
		0, 0, 0, 0,
	})
	dst := image.NewRGBA(canvas.Rect)
	canvas.ToRGBA(dst, canvas.Rect)

	want := []byte{
		0, 255, 255, 255,
		0, 5, 55, 255,
		255, 255, 255, 255,
	}
	if diff := cmp.Diff(want, dst.Pix); diff != "" {
		t.Errorf("rgba mismatch (-want +got):\n%s", diff)
	}
}
