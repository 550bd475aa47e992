package server

import (
	"image"

	"github.com/ironsheep/sep-tools-mcp/internal/imaging"
)

// pngViewport encodes the presented region as PNG. Positive zooms magnify
// by 2^zoom. A non-nil grid is drawn over the result. shown records the
// presentation region the PNG covers.
type pngViewport struct {
	grid   *imaging.Grid
	result *imaging.CropResult
	shown  image.Rectangle
}

func (v *pngViewport) Present(img *image.RGBA, shown image.Rectangle, zoom int) error {
	scale := 1
	if zoom > 0 {
		scale = 1 << zoom
	}
	out, err := imaging.Render(img, img.Rect, scale)
	if err != nil {
		return err
	}
	if v.grid != nil {
		v.grid.Draw(out, img.Rect.Min)
	}
	res, err := imaging.EncodePNG(out)
	if err != nil {
		return err
	}
	v.result = res
	v.shown = shown
	return nil
}
