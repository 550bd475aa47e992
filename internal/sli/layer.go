package sli

import (
	"fmt"
	"image"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
	"github.com/ironsheep/sep-tools-mcp/internal/compose"
)

// BitsPerSample is the only supported sample depth.
const BitsPerSample = 8

// Layer is one decoded separation or raster placed on the presentation.
// Everything except Visible is fixed once the layer is built.
type Layer struct {
	Name string
	Path string

	// Rect is the area the layer covers, in presentation pixels.
	Rect image.Rectangle

	SamplesPerPixel int
	BitsPerSample   int

	// Bitmap holds Rect.Dy() rows of Rect.Dx()*SamplesPerPixel bytes.
	Bitmap []byte

	// Inks names the samples of a weighted layer in order. It is nil for a
	// plain CMYK layer.
	Inks []*colorconfig.Color

	// XAspect and YAspect are the pixel aspect ratio from the source
	// resolution.
	XAspect, YAspect float64

	Visible bool

	compositor compose.Compositor
}

// NewLayer places bitmap at origin and selects its compositor: inks given
// means weighted accumulation, none means the direct CMYK path, which needs
// four samples per pixel.
func NewLayer(name, path string, origin image.Point, width, height, spp int, bitmap []byte, inks []*colorconfig.Color) (*Layer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("layer %s: invalid size %dx%d", name, width, height)
	}
	if len(bitmap) < width*height*spp {
		return nil, fmt.Errorf("layer %s: bitmap holds %d bytes, need %d", name, len(bitmap), width*height*spp)
	}

	l := &Layer{
		Name:            name,
		Path:            path,
		Rect:            image.Rect(origin.X, origin.Y, origin.X+width, origin.Y+height),
		SamplesPerPixel: spp,
		BitsPerSample:   BitsPerSample,
		Bitmap:          bitmap,
		Inks:            inks,
		XAspect:         1,
		YAspect:         1,
		Visible:         true,
	}

	switch {
	case len(inks) > 0:
		if len(inks) != spp {
			return nil, fmt.Errorf("layer %s: %d inks named for %d samples per pixel", name, len(inks), spp)
		}
		c, err := compose.Weighted(inks)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", name, err)
		}
		l.compositor = c
	case spp == compose.Planes:
		l.compositor = compose.Direct()
	default:
		return nil, fmt.Errorf("layer %s: %d samples per pixel need named inks", name, spp)
	}
	return l, nil
}

// Compositor returns the algorithm that accumulates this layer.
func (l *Layer) Compositor() compose.Compositor {
	return l.compositor
}

// InkNames names each sample of a pixel. Plain CMYK layers use the
// registry's process colour names.
func (l *Layer) InkNames(reg *colorconfig.Registry) []string {
	if l.Inks != nil {
		names := make([]string, len(l.Inks))
		for i, c := range l.Inks {
			names[i] = c.Name
		}
		return names
	}
	process := reg.Process()
	names := make([]string, len(process))
	for i, c := range process {
		names[i] = c.Name
	}
	return names
}

// LayerInfo describes a layer without its bitmap.
type LayerInfo struct {
	Index           int      `json:"index"`
	Name            string   `json:"name"`
	Path            string   `json:"path"`
	X               int      `json:"x"`
	Y               int      `json:"y"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	SamplesPerPixel int      `json:"samples_per_pixel"`
	Inks            []string `json:"inks,omitempty"`
	Compositor      string   `json:"compositor"`
	Visible         bool     `json:"visible"`
	MarkedForClear  bool     `json:"marked_for_clear"`
}

func (l *Layer) info(index int, marked bool) LayerInfo {
	info := LayerInfo{
		Index:           index,
		Name:            l.Name,
		Path:            l.Path,
		X:               l.Rect.Min.X,
		Y:               l.Rect.Min.Y,
		Width:           l.Rect.Dx(),
		Height:          l.Rect.Dy(),
		SamplesPerPixel: l.SamplesPerPixel,
		Compositor:      l.compositor.Kind().String(),
		Visible:         l.Visible,
		MarkedForClear:  marked,
	}
	for _, c := range l.Inks {
		info.Inks = append(info.Inks, c.Name)
	}
	return info
}
