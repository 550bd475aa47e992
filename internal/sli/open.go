package sli

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
	"github.com/ironsheep/sep-tools-mcp/internal/imaging"
	"github.com/ironsheep/sep-tools-mcp/internal/logging"
	"github.com/ironsheep/sep-tools-mcp/internal/sep"
	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

// ErrNoLayers is returned when nothing in a presentation could be loaded.
var ErrNoLayers = errors.New("sli: no layers could be loaded")

// Options configures a presentation.
type Options struct {
	// Registry resolves ink names. Nil means colorconfig.Default().
	Registry *colorconfig.Registry

	// WhiteInk answers the blend-mode question for separations with a W
	// channel. Nil means sep.WhiteInkNone.
	WhiteInk sep.WhiteInkChooser

	// Images caches decoded raster layers. Nil means a private cache.
	Images *imaging.ImageCache

	// Pool runs cache computations. Nil means a private pool of Workers
	// goroutines, closed with the presentation.
	Pool *Pool

	// Workers sizes a private pool. Zero means runtime.NumCPU().
	Workers int

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Registry == nil {
		o.Registry = colorconfig.Default()
	}
	if o.WhiteInk == nil {
		o.WhiteInk = sep.FixedChoice(sep.WhiteInkNone)
	}
	if o.Images == nil {
		o.Images = imaging.NewImageCache()
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

// Open loads path into a presentation. A .sli file is a layer list; any
// other file becomes a one-layer presentation. Layers that fail to load are
// reported as warnings; if none loads, the error is ErrNoLayers.
func Open(path string, opts Options) (*Presentation, warn.List, error) {
	opts = opts.withDefaults()

	var entries []Entry
	var warnings warn.List
	xres, yres := 0.0, 0.0

	if strings.EqualFold(filepath.Ext(path), ".sli") {
		list, listWarnings, err := ParseListFile(path, opts.Logger)
		warnings.Merge(listWarnings)
		if err != nil {
			return nil, warnings, err
		}
		entries = list.Entries
		xres, yres = list.XResolution, list.YResolution
	} else {
		entries = []Entry{{Path: path}}
	}

	var layers []*Layer
	for _, e := range entries {
		l, layerWarnings, err := loadLayer(e, opts)
		warnings.Merge(layerWarnings)
		if err != nil {
			warnings.Addf(warn.DescriptorWarning, "layer %s skipped: %v", e.Path, err)
			logging.Warn(opts.Logger, warnings[len(warnings)-1], slog.String("path", e.Path))
			continue
		}
		layers = append(layers, l)
	}
	p, err := New(path, layers, opts)
	if err != nil {
		return nil, warnings, err
	}
	if xres > 0 && yres > 0 {
		p.xAspect, p.yAspect = normalise(xres, yres)
	}
	opts.Logger.Info("presentation opened",
		slog.String("path", path),
		slog.Int("layers", len(layers)),
		slog.String("rect", p.rect.String()))
	return p, warnings, nil
}

// New builds a presentation over layers that are already decoded. The
// layers belong to the presentation afterwards.
func New(path string, layers []*Layer, opts Options) (*Presentation, error) {
	if len(layers) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoLayers)
	}
	return newPresentation(path, layers, opts.withDefaults()), nil
}

// loadLayer decodes one entry: a .sep descriptor through the channel reader,
// anything else as a whole-image raster.
func loadLayer(e Entry, opts Options) (*Layer, warn.List, error) {
	inks, err := resolveInks(opts.Registry, e.Inks)
	if err != nil {
		return nil, nil, err
	}
	name := filepath.Base(e.Path)
	origin := image.Pt(e.X, e.Y)

	if strings.EqualFold(filepath.Ext(e.Path), ".sep") {
		d, warnings, err := sep.Decode(e.Path, opts.WhiteInk, opts.Logger)
		if err != nil {
			return nil, warnings, err
		}
		l, err := NewLayer(name, e.Path, origin, d.Descriptor.Width, d.Descriptor.Height, sep.BytesPerPixel, d.Bitmap, inks)
		if err != nil {
			return nil, warnings, err
		}
		l.XAspect, l.YAspect = d.Resolution.X, d.Resolution.Y
		return l, warnings, nil
	}

	r, err := imaging.LoadRaster(opts.Images, e.Path)
	if err != nil {
		return nil, nil, err
	}
	if inks == nil && r.SamplesPerPixel == 1 {
		// A grey raster without named inks prints in black.
		inks = []*colorconfig.Color{opts.Registry.Process()[colorconfig.PlaneK]}
	}
	l, err := NewLayer(name, e.Path, origin, r.Width, r.Height, r.SamplesPerPixel, r.Pix, inks)
	return l, nil, err
}

func resolveInks(reg *colorconfig.Registry, names []string) ([]*colorconfig.Color, error) {
	if len(names) == 0 {
		return nil, nil
	}
	inks := make([]*colorconfig.Color, len(names))
	for i, n := range names {
		c, ok := reg.Lookup(n)
		if !ok {
			return nil, fmt.Errorf("unknown ink %q", n)
		}
		inks[i] = c
	}
	return inks, nil
}

func normalise(x, y float64) (float64, float64) {
	m := max(x, y)
	return x / m, y / m
}
