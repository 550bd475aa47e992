package sli

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/tiff"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

func grey(w, h int, v byte) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func writeTIFF(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := tiff.Encode(f, img, nil); err != nil {
		t.Fatalf("failed to encode TIFF: %v", err)
	}
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// cyanSep writes a 2x2 separation with only a full cyan channel.
func cyanSep(t *testing.T, dir string) string {
	t.Helper()
	writeTIFF(t, filepath.Join(dir, "c.tif"), grey(2, 2, 255))
	path := filepath.Join(dir, "cyan.sep")
	writeFile(t, path, "2\n2\nC: c.tif\n")
	return path
}

func orangeRegistry(t *testing.T) *colorconfig.Registry {
	t.Helper()
	reg, warnings := colorconfig.LoadReader(strings.NewReader(
		`{"colours":[{"name":"Orange","cMultiplier":0,"mMultiplier":0.5,"yMultiplier":1,"kMultiplier":0}]}`), nil)
	if len(warnings) != 0 {
		t.Fatalf("registry warnings: %v", warnings)
	}
	return reg
}

func TestOpen_Separation(t *testing.T) {
	path := cyanSep(t, t.TempDir())

	p, _, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	layers := p.Layers()
	if len(layers) != 1 || layers[0].Name != "cyan.sep" || layers[0].Compositor != "direct" {
		t.Fatalf("unexpected layers: %+v", layers)
	}
	if got, want := p.Rect(), image.Rect(0, 0, 2, 2); got != want {
		t.Errorf("Rect: got %v, want %v", got, want)
	}

	img, err := p.Get(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := pixel(img, 1, 1); got != [4]byte{0, 255, 255, 255} {
		t.Errorf("pixel: got %v, want cyan", got)
	}
}

func TestOpen_LayerList(t *testing.T) {
	dir := t.TempDir()
	cyanSep(t, dir)
	writePNG(t, filepath.Join(dir, "grey.png"), grey(2, 2, 100))
	writePNG(t, filepath.Join(dir, "spot.png"), grey(2, 1, 200))

	list := filepath.Join(dir, "page.sli")
	writeFile(t, list, strings.Join([]string{
		"Xresolution: 600",
		"Yresolution: 300",
		"cyan.sep : 0 0",
		"grey.png : 2 0",
		"spot.png : 0 2 : orange",
		"missing.sep : 0 0",
		"spot.png : 0 0 : PURPLE",
		"spot.png : 0 0 : C,M",
	}, "\n"))

	p, warnings, err := Open(list, Options{Registry: orangeRegistry(t), Workers: 1})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer p.Close()

	var got []string
	for _, l := range p.Layers() {
		got = append(got, l.Name+"/"+l.Compositor+"/"+strings.Join(l.Inks, ","))
	}
	want := []string{"cyan.sep/direct/", "grey.png/weighted/K", "spot.png/weighted/ORANGE"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("layers mismatch (-want +got):\n%s", diff)
	}

	skipped := 0
	for _, w := range warnings {
		if w.Kind == warn.DescriptorWarning && strings.Contains(w.Message, "skipped") {
			skipped++
		}
	}
	if skipped != 3 {
		t.Errorf("got %d skipped layers, want 3: %v", skipped, warnings)
	}

	if got, want := p.Rect(), image.Rect(0, 0, 4, 3); got != want {
		t.Errorf("Rect: got %v, want %v", got, want)
	}
	if x, y := p.Aspect(); x != 1 || y != 0.5 {
		t.Errorf("Aspect: got %v:%v, want 1:0.5", x, y)
	}

	img, err := p.Get(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	// Grey prints as black: 255-100. Orange 200 adds M 100 and Y 200.
	checks := map[image.Point][4]byte{
		{3, 1}: {155, 155, 155, 255},
		{1, 2}: {255, 155, 55, 255},
		{3, 2}: {0, 0, 0, 0},
	}
	for pt, want := range checks {
		if got := pixel(img, pt.X, pt.Y); got != want {
			t.Errorf("pixel %v: got %v, want %v", pt, got, want)
		}
	}

	avg := p.PixelAverages(image.Rect(0, 2, 2, 3))
	if avg[4].Name != "ORANGE" || avg[4].Value != 200 {
		t.Errorf("orange average: got %+v", avg)
	}
}

func TestOpen_NothingLoads(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "broken.sli")
	writeFile(t, list, "nope.sep : 0 0\nbad line : a b\n")

	_, warnings, err := Open(list, Options{})
	if !errors.Is(err, ErrNoLayers) {
		t.Fatalf("Open: got %v, want ErrNoLayers", err)
	}
	if len(warnings) != 2 {
		t.Errorf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
}

func TestOpen_InvalidDescriptorSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.sep")
	writeFile(t, path, "wide\n2\n")

	_, warnings, err := Open(path, Options{})
	if !errors.Is(err, ErrNoLayers) {
		t.Fatalf("Open: got %v, want ErrNoLayers", err)
	}
	if !warnings.Has(warn.DescriptorWarning) {
		t.Errorf("no descriptor warning: %v", warnings)
	}
}

func TestOpen_MissingList(t *testing.T) {
	if _, _, err := Open(filepath.Join(t.TempDir(), "none.sli"), Options{}); err == nil {
		t.Error("Open should fail for a missing layer list")
	}
}

func TestNewLayer_Validation(t *testing.T) {
	k := colorconfig.Default().Process()[colorconfig.PlaneK]

	tests := []struct {
		name   string
		w, h   int
		spp    int
		bitmap []byte
		inks   []*colorconfig.Color
	}{
		{"zero width", 0, 1, 4, nil, nil},
		{"short bitmap", 2, 2, 4, make([]byte, 15), nil},
		{"grey without inks", 1, 1, 1, []byte{0}, nil},
		{"ink count mismatch", 1, 1, 4, make([]byte, 4), []*colorconfig.Color{k}},
		{"undefined ink", 1, 1, 1, []byte{0}, []*colorconfig.Color{nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLayer("l", "l", image.Point{}, tt.w, tt.h, tt.spp, tt.bitmap, tt.inks); err == nil {
				t.Error("NewLayer should fail")
			}
		})
	}
}
