package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/anthonynsimon/bild/parallel"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// ImageCache provides thread-safe caching of decoded raster layer files.
//
// The cache stores decoded image.Image objects keyed by their file path. A
// layer list that names the same raster more than once, or a presentation
// that is reopened, decodes the file only once.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or
// Clear(). The server evicts a presentation's rasters when it is closed.
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or loads it from disk if not cached.
//
// Supported formats are TIFF, PNG, JPEG and GIF. The image is cached using the
// exact path string provided, so callers should pass cleaned absolute paths.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
// If the path is not in the cache, this method does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len reports how many images are cached.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Raster is a decoded whole-image layer as raw ink samples.
type Raster struct {
	Width  int
	Height int

	// SamplesPerPixel is 1 for grey images and 4 (C, M, Y, K) otherwise.
	SamplesPerPixel int

	// Pix holds Height rows of Width*SamplesPerPixel bytes.
	Pix []byte
}

// LoadRaster loads path through cache and converts it to ink samples.
func LoadRaster(cache *ImageCache, path string) (*Raster, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	return InkRaster(img), nil
}

// InkRaster converts img to ink samples.
//
// CMYK images keep their samples. Grey images keep one sample per pixel,
// taken as the ink amount. Every other colour model is converted with
// color.CMYKModel.
func InkRaster(img image.Image) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	switch m := img.(type) {
	case *image.CMYK:
		return copyRows(w, h, 4, m.Pix, m.Stride)
	case *image.Gray:
		return copyRows(w, h, 1, m.Pix, m.Stride)
	case *image.Gray16:
		r := &Raster{Width: w, Height: h, SamplesPerPixel: 1, Pix: make([]byte, w*h)}
		for y := 0; y < h; y++ {
			row := m.Pix[y*m.Stride:]
			for x := 0; x < w; x++ {
				r.Pix[y*w+x] = row[2*x]
			}
		}
		return r
	}

	r := &Raster{Width: w, Height: h, SamplesPerPixel: 4, Pix: make([]byte, w*h*4)}
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				c := color.CMYKModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.CMYK)
				copy(r.Pix[(y*w+x)*4:], []byte{c.C, c.M, c.Y, c.K})
			}
		}
	})
	return r
}

func copyRows(w, h, spp int, pix []byte, stride int) *Raster {
	r := &Raster{Width: w, Height: h, SamplesPerPixel: spp, Pix: make([]byte, w*h*spp)}
	for y := 0; y < h; y++ {
		copy(r.Pix[y*w*spp:(y+1)*w*spp], pix[y*stride:])
	}
	return r
}
