package sep

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

// writeSep writes a descriptor plus the given channel rasters into a fresh
// directory. Every channel is width x height of a single value.
func writeSep(t *testing.T, width, height int, values map[string]byte, extra string) string {
	t.Helper()
	dir := t.TempDir()
	body := []byte{}
	body = append(body, []byte(strconv.Itoa(width)+"\n"+strconv.Itoa(height)+"\n")...)
	for code, v := range values {
		name := code + ".tif"
		writeGrayTIFF(t, dir, name, width, height, filled(width*height, v), blackIsZero)
		body = append(body, []byte(code+": "+name+"\n")...)
	}
	body = append(body, []byte(extra)...)
	path := filepath.Join(dir, "image.sep")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openSource(t *testing.T, path string, chooser WhiteInkChooser) (*Source, warn.List) {
	t.Helper()
	d, _, err := ParseFile(path, chooser, nil)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	src := NewSource(d, nil)
	warnings, err := src.OpenAll()
	if err != nil {
		t.Fatalf("OpenAll failed: %v", err)
	}
	t.Cleanup(src.Close)
	return src, warnings
}

func TestSource_OpenAllTwice(t *testing.T) {
	path := writeSep(t, 2, 2, map[string]byte{"C": 10}, "")
	src, _ := openSource(t, path, nil)

	if _, err := src.OpenAll(); !errors.Is(err, ErrAlreadyOpen) {
		t.Fatalf("second OpenAll: got %v, want ErrAlreadyOpen", err)
	}

	src.Close()
	src.Close()
	if _, err := src.OpenAll(); err != nil {
		t.Fatalf("OpenAll after Close failed: %v", err)
	}
}

func TestSource_ReadBeforeOpen(t *testing.T) {
	src := NewSource(&Descriptor{Width: 1, Height: 1, Files: map[string]string{}}, nil)
	if err := src.ReadCombinedScanline(make([]byte, 4), 0); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("got %v, want ErrNotOpen", err)
	}
}

func TestSource_ReadCombinedScanline(t *testing.T) {
	path := writeSep(t, 3, 2, map[string]byte{"C": 255, "M": 10, "Y": 0, "K": 77}, "")
	src, warnings := openSource(t, path, nil)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	out := make([]byte, 3*BytesPerPixel)
	if err := src.ReadCombinedScanline(out, 1); err != nil {
		t.Fatalf("ReadCombinedScanline failed: %v", err)
	}
	want := []byte{255, 10, 0, 77, 255, 10, 0, 77, 255, 10, 0, 77}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("scanline mismatch (-want +got):\n%s", diff)
	}

	// Rows past the end read as zero.
	if err := src.ReadCombinedScanline(out, 5); err != nil {
		t.Fatalf("ReadCombinedScanline failed: %v", err)
	}
	if diff := cmp.Diff(make([]byte, 12), out); diff != "" {
		t.Errorf("out-of-range row mismatch (-want +got):\n%s", diff)
	}
}

func TestSource_MissingChannelReadsZero(t *testing.T) {
	path := writeSep(t, 2, 1, map[string]byte{"C": 200}, "M: missing.tif\n")
	src, warnings := openSource(t, path, nil)

	if len(warnings) != 1 || warnings[0].Kind != warn.ChannelIOError {
		t.Fatalf("want one channel warning, got %v", warnings)
	}

	out := make([]byte, 8)
	if err := src.ReadCombinedScanline(out, 0); err != nil {
		t.Fatalf("ReadCombinedScanline failed: %v", err)
	}
	if diff := cmp.Diff([]byte{200, 0, 0, 0, 200, 0, 0, 0}, out); diff != "" {
		t.Errorf("scanline mismatch (-want +got):\n%s", diff)
	}
}

func TestSource_WhiteInk(t *testing.T) {
	values := map[string]byte{"C": 100, "M": 101, "Y": 30, "K": 0, "W": 100}

	tests := []struct {
		mode WhiteInkMode
		want []byte
	}{
		{WhiteInkNone, []byte{100, 101, 30, 0}},
		{WhiteInkSubtractive, []byte{0, 1, 0, 0}},
		{WhiteInkMultiplicative, []byte{61, 62, 19, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			path := writeSep(t, 1, 1, values, "")
			src, _ := openSource(t, path, FixedChoice(tt.mode))
			out := make([]byte, 4)
			if err := src.ReadCombinedScanline(out, 0); err != nil {
				t.Fatalf("ReadCombinedScanline failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, out); diff != "" {
				t.Errorf("scanline mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSource_VarnishIgnored(t *testing.T) {
	path := writeSep(t, 2, 2, map[string]byte{"C": 40, "V": 255}, "")
	src, _ := openSource(t, path, nil)
	out := make([]byte, 8)
	if err := src.ReadCombinedScanline(out, 0); err != nil {
		t.Fatalf("ReadCombinedScanline failed: %v", err)
	}
	if diff := cmp.Diff([]byte{40, 0, 0, 0, 40, 0, 0, 0}, out); diff != "" {
		t.Errorf("varnish changed the output (-want +got):\n%s", diff)
	}
}

func TestSource_WhiteIsZeroChannel(t *testing.T) {
	dir := t.TempDir()
	writeGrayTIFF(t, dir, "c.tif", 2, 1, []byte{0, 200}, tiffOptions{photometric: 0})
	path := filepath.Join(dir, "a.sep")
	if err := os.WriteFile(path, []byte("2\n1\nC: c.tif\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, _ := openSource(t, path, nil)
	out := make([]byte, 8)
	if err := src.ReadCombinedScanline(out, 0); err != nil {
		t.Fatalf("ReadCombinedScanline failed: %v", err)
	}
	if out[0] != 0 || out[4] != 200 {
		t.Errorf("raw samples not preserved: got C=%d,%d want 0,200", out[0], out[4])
	}
}

func TestSource_FillTiles(t *testing.T) {
	// A 5 pixel wide image over tiles of 2 pixels: tiles 0, 1 and a half-covered tile 2.
	dir := t.TempDir()
	pix := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	writeGrayTIFF(t, dir, "c.tif", 5, 2, pix, blackIsZero)
	path := filepath.Join(dir, "a.sep")
	if err := os.WriteFile(path, []byte("5\n2\nC: c.tif\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, _ := openSource(t, path, nil)

	const tileWidth = 2
	stride := tileWidth * BytesPerPixel
	tiles := [][]byte{make([]byte, 2*stride), make([]byte, 2*stride)}
	if err := src.FillTiles(0, 2, tileWidth, 1, tiles); err != nil {
		t.Fatalf("FillTiles failed: %v", err)
	}

	wantTile1 := []byte{
		3, 0, 0, 0, 4, 0, 0, 0,
		8, 0, 0, 0, 9, 0, 0, 0,
	}
	wantTile2 := []byte{
		5, 0, 0, 0, 0, 0, 0, 0,
		10, 0, 0, 0, 0, 0, 0, 0,
	}
	if diff := cmp.Diff(wantTile1, tiles[0]); diff != "" {
		t.Errorf("tile 1 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantTile2, tiles[1]); diff != "" {
		t.Errorf("tile 2 mismatch (-want +got):\n%s", diff)
	}
}

func TestSource_FillTilesInvalid(t *testing.T) {
	path := writeSep(t, 4, 1, map[string]byte{"C": 1}, "")
	src, _ := openSource(t, path, nil)

	if err := src.FillTiles(0, 1, 0, 0, [][]byte{make([]byte, 16)}); err == nil {
		t.Error("zero tile width should fail")
	}
	if err := src.FillTiles(0, 2, 4, 0, [][]byte{make([]byte, 16)}); err == nil {
		t.Error("undersized tile should fail")
	}
}

func TestReadTIFFTags_Resolution(t *testing.T) {
	tests := []struct {
		name string
		opt  tiffOptions
		want Resolution
	}{
		{"missing", tiffOptions{photometric: 1}, Resolution{X: 1, Y: 1, Unit: ResUnitNone}},
		{"inch normalised", tiffOptions{photometric: 1, xRes: 300, yRes: 150, unit: 2}, Resolution{X: 1, Y: 0.5, Unit: ResUnitInch}},
		{"centimeter", tiffOptions{photometric: 1, xRes: 100, yRes: 400, unit: 3}, Resolution{X: 0.25, Y: 1, Unit: ResUnitCentimeter}},
		{"no unit kept raw", tiffOptions{photometric: 1, xRes: 2, yRes: 3, unit: 1}, Resolution{X: 2, Y: 3, Unit: ResUnitNone}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags, err := readTIFFTags(encodeGrayTIFF(1, 1, []byte{0}, tt.opt))
			if err != nil {
				t.Fatalf("readTIFFTags failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, tags.resolution()); diff != "" {
				t.Errorf("resolution mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := readTIFFTags([]byte("GIF89a...")); err == nil {
		t.Error("non-TIFF data should fail")
	}
}

func TestSource_ResolutionConsistency(t *testing.T) {
	dir := t.TempDir()
	writeGrayTIFF(t, dir, "c.tif", 1, 1, []byte{0}, tiffOptions{photometric: 1, xRes: 300, yRes: 300, unit: 2})
	writeGrayTIFF(t, dir, "m.tif", 1, 1, []byte{0}, tiffOptions{photometric: 1, xRes: 300, yRes: 150, unit: 2})
	path := filepath.Join(dir, "a.sep")
	if err := os.WriteFile(path, []byte("1\n1\nC: c.tif\nM: m.tif\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src, _ := openSource(t, path, nil)

	res, consistent := src.Resolution()
	if consistent {
		t.Error("differing channel resolutions should be reported")
	}
	if math.Abs(res.X-1) > 1e-9 || math.Abs(res.Y-1) > 1e-9 {
		t.Errorf("resolution should come from C: %+v", res)
	}

	empty := NewSource(&Descriptor{Files: map[string]string{}}, nil)
	if res, ok := empty.Resolution(); !ok || res != defaultResolution {
		t.Errorf("no channels: got %+v, %v", res, ok)
	}
}

func TestDecode(t *testing.T) {
	path := writeSep(t, 4, 3, map[string]byte{"C": 9, "K": 3}, "")
	dec, warnings, err := Decode(path, nil, nil)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	if len(dec.Bitmap) != 4*3*BytesPerPixel {
		t.Fatalf("bitmap holds %d bytes, want %d", len(dec.Bitmap), 4*3*BytesPerPixel)
	}
	for i := 0; i < len(dec.Bitmap); i += 4 {
		if dec.Bitmap[i] != 9 || dec.Bitmap[i+3] != 3 {
			t.Fatalf("pixel %d = %v", i/4, dec.Bitmap[i:i+4])
		}
	}
	if dec.Resolution.Unit != ResUnitNone {
		t.Errorf("unit = %s, want none", dec.Resolution.Unit)
	}
}

func TestDecode_InvalidSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.sep")
	if err := os.WriteFile(path, []byte("x\ny\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, warnings, err := Decode(path, nil, nil)
	if err == nil {
		t.Fatal("Decode should fail for an invalid size")
	}
	if !warnings.Has(warn.DescriptorWarning) {
		t.Errorf("expected a descriptor warning, got %v", warnings)
	}
}
