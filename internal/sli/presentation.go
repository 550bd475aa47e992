package sli

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
)

var (
	// ErrLayerIndex is returned for a layer index outside the layer list.
	ErrLayerIndex = errors.New("sli: layer index out of range")

	// ErrClosed is returned by operations on a closed presentation.
	ErrClosed = errors.New("sli: presentation closed")
)

// Viewport receives the bitmap a redraw produced. img is a read-only view
// of the cached level at zoom; rect is the presentation-pixel region it
// covers, already clipped to the presentation.
type Viewport interface {
	Present(img *image.RGBA, rect image.Rectangle, zoom int) error
}

// Presentation owns a layer list and the zoom pyramid composited from it.
//
// Level 0 is the native resolution; level z < 0 is level z+1 halved. Levels
// are built lazily on the pool and cached until the next wipe. Positive
// zooms are served from level 0.
type Presentation struct {
	path     string
	registry *colorconfig.Registry
	logger   *slog.Logger
	pool     *Pool
	ownPool  bool
	rect     image.Rectangle

	xAspect, yAspect float64

	mu        sync.Mutex
	layers    []*Layer
	clearMask []bool
	levels    map[int]*level
	gen       uint64 // bumped by every wipe
	closed    bool
}

func newPresentation(path string, layers []*Layer, opts Options) *Presentation {
	p := &Presentation{
		path:      path,
		registry:  opts.Registry,
		logger:    opts.Logger.With(slog.String("presentation", path)),
		pool:      opts.Pool,
		layers:    layers,
		clearMask: make([]bool, len(layers)),
		levels:    make(map[int]*level),
		xAspect:   layers[0].XAspect,
		yAspect:   layers[0].YAspect,
	}
	if p.pool == nil {
		p.pool = NewPool(opts.Workers)
		p.ownPool = true
	}

	// The canvas always includes the origin.
	for _, l := range layers {
		p.rect = p.rect.Union(l.Rect)
	}
	p.rect.Min.X = min(p.rect.Min.X, 0)
	p.rect.Min.Y = min(p.rect.Min.Y, 0)
	return p
}

// Path is the file the presentation was opened from.
func (p *Presentation) Path() string { return p.path }

// Rect is the composited area in presentation pixels: the bounding box of
// every layer and the origin.
func (p *Presentation) Rect() image.Rectangle { return p.rect }

// Aspect is the pixel aspect ratio, normalised so the larger side is 1.
func (p *Presentation) Aspect() (x, y float64) { return p.xAspect, p.yAspect }

// Registry is the colour registry the layers were resolved against.
func (p *Presentation) Registry() *colorconfig.Registry { return p.registry }

// Layers describes every layer in draw order.
func (p *Presentation) Layers() []LayerInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]LayerInfo, len(p.layers))
	for i, l := range p.layers {
		out[i] = l.info(i, p.clearMask[i])
	}
	return out
}

// SetLayerVisible shows or hides layer i and wipes the cache.
func (p *Presentation) SetLayerVisible(i int, visible bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.layers) {
		return fmt.Errorf("%w: %d of %d", ErrLayerIndex, i, len(p.layers))
	}
	if p.layers[i].Visible != visible {
		p.layers[i].Visible = visible
		p.wipeLocked()
	}
	return nil
}

// SetClearMask marks the layers whose area ClearBottomSurface zero-fills.
// Entries beyond the layer count are ignored; missing entries are false.
func (p *Presentation) SetClearMask(mask []bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.clearMask {
		p.clearMask[i] = i < len(mask) && mask[i]
	}
}

// State reports where level zoom is in its lifecycle.
func (p *Presentation) State(zoom int) LevelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lv, ok := p.levels[min(zoom, 0)]; ok {
		return lv.state
	}
	return Absent
}

// Get returns the bitmap for zoom, computing it and any missing level above
// it on the pool. Concurrent callers share one computation per level. The
// returned image must not be modified.
func (p *Presentation) Get(ctx context.Context, zoom int) (*image.RGBA, error) {
	zoom = min(zoom, 0)
	if zoom < MinZoom {
		return nil, fmt.Errorf("zoom %d below minimum %d", zoom, MinZoom)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	lv, ok := p.levels[zoom]
	if !ok {
		lv = p.scheduleLocked(zoom)
	}
	p.mu.Unlock()

	select {
	case <-lv.done:
		return lv.img, lv.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// scheduleLocked marks zoom and every absent level between it and the
// nearest present one as Computing, then queues a single job that builds
// them in order from the top.
func (p *Presentation) scheduleLocked(zoom int) *level {
	var from *level
	var chain []*level
	for z := zoom; z <= 0; z++ {
		if lv, ok := p.levels[z]; ok {
			from = lv
			break
		}
		lv := newLevel(z)
		p.levels[z] = lv
		chain = append(chain, lv)
	}
	// Top-down: the level nearest to 0 first.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	var layers []*Layer
	if from == nil {
		layers = p.visibleLocked()
	}
	p.logger.Debug("scheduling levels", slog.Int("from", chain[0].zoom), slog.Int("to", zoom))
	if !p.pool.Submit(func() { p.build(from, chain, layers) }) {
		for _, lv := range chain {
			p.finishLocked(lv, nil, ErrClosed)
		}
	}
	return chain[len(chain)-1]
}

// build runs on the pool. from, if not nil, is the present level just above
// chain[0]; it was queued earlier, so waiting on it cannot deadlock a FIFO
// pool.
func (p *Presentation) build(from *level, chain []*level, layers []*Layer) {
	var src *image.RGBA
	var err error
	if from != nil {
		<-from.done
		src, err = from.img, from.err
	}

	for _, lv := range chain {
		start := time.Now()
		var img *image.RGBA
		switch {
		case err != nil:
		case lv.zoom == 0:
			img, err = composite(p.rect, layers)
		default:
			img = downsample(src)
		}
		p.mu.Lock()
		p.finishLocked(lv, img, err)
		p.mu.Unlock()
		if err == nil {
			p.logger.Debug("level computed",
				slog.Int("zoom", lv.zoom),
				slog.Duration("elapsed", time.Since(start)))
		}
		src = img
	}
}

// finishLocked publishes a level. A failed level is dropped from the cache
// so the next Get retries it.
func (p *Presentation) finishLocked(lv *level, img *image.RGBA, err error) {
	lv.img, lv.err = img, err
	if err != nil {
		lv.state = Absent
		if p.levels[lv.zoom] == lv {
			delete(p.levels, lv.zoom)
		}
		p.logger.Error("level failed", slog.Int("zoom", lv.zoom), slog.Any("error", err))
	} else {
		lv.state = Cached
	}
	close(lv.done)
}

func (p *Presentation) visibleLocked() []*Layer {
	var out []*Layer
	for _, l := range p.layers {
		if l.Visible {
			out = append(out, l)
		}
	}
	return out
}

// WipeCache discards every level. Nothing is recomputed until the next Get.
// Computations in flight complete into the discarded levels.
func (p *Presentation) WipeCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.wipeLocked()
}

func (p *Presentation) wipeLocked() {
	p.levels = make(map[int]*level)
	p.gen++
	p.logger.Debug("cache wiped")
}

// publishBaseLocked makes img the only cached level. It reports false and
// leaves the cache alone when a wipe happened after gen was read.
func (p *Presentation) publishBaseLocked(gen uint64, img *image.RGBA) bool {
	if p.gen != gen {
		return false
	}
	p.levels = map[int]*level{0: cachedLevel(0, img)}
	return true
}

// ClearBottomSurface zero-fills the area of every layer marked in the clear
// mask on level 0, leaving all other pixels untouched. Derived levels are
// dropped so they are rebuilt from the cleared base. The cleared area stays
// empty until Recompute.
func (p *Presentation) ClearBottomSurface(ctx context.Context) error {
	var base *image.RGBA
	for {
		p.mu.Lock()
		gen := p.gen
		p.mu.Unlock()

		var err error
		if base, err = p.Get(ctx, 0); err != nil {
			return err
		}

		p.mu.Lock()
		if p.gen == gen {
			break
		}
		// Wiped while resolving; base may predate the change.
		p.mu.Unlock()
	}
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	gen := p.gen

	cleared := &image.RGBA{
		Pix:    make([]byte, len(base.Pix)),
		Stride: base.Stride,
		Rect:   base.Rect,
	}
	copy(cleared.Pix, base.Pix)

	n := 0
	for i, l := range p.layers {
		if !p.clearMask[i] {
			continue
		}
		r := l.Rect.Sub(p.rect.Min).Intersect(cleared.Rect)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			clear(cleared.Pix[cleared.PixOffset(r.Min.X, y):cleared.PixOffset(r.Max.X, y)])
		}
		n++
	}

	p.publishBaseLocked(gen, cleared)
	p.logger.Debug("bottom surface cleared", slog.Int("layers", n))
	return nil
}

// Recompute rebuilds level 0 from the layers, restoring any cleared area,
// and drops every derived level. If the cache is wiped while compositing the
// result is discarded; the next Get rebuilds from the current layers.
func (p *Presentation) Recompute() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	layers := p.visibleLocked()
	gen := p.gen
	p.mu.Unlock()

	img, err := composite(p.rect, layers)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.publishBaseLocked(gen, img) {
		p.logger.Debug("recompute discarded after wipe")
	}
	return nil
}

// Redraw resolves the bitmap for zoom and hands the part covering rect
// (presentation pixels) to vp, together with the presentation region that
// part actually shows. Nothing is presented when rect lies outside the
// presentation.
func (p *Presentation) Redraw(ctx context.Context, vp Viewport, rect image.Rectangle, zoom int) error {
	img, err := p.Get(ctx, zoom)
	if err != nil {
		return err
	}
	r := levelRect(rect.Sub(p.rect.Min), zoom).Intersect(img.Rect)
	if r.Empty() {
		return nil
	}
	return vp.Present(img.SubImage(r).(*image.RGBA), shownRect(r, zoom).Add(p.rect.Min).Intersect(p.rect), zoom)
}

// Close discards the cache and, when the pool is private, stops it. Pending
// Get calls still complete.
func (p *Presentation) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.wipeLocked()
	p.mu.Unlock()

	if p.ownPool {
		p.pool.Close()
	}
}
