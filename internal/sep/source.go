package sep

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/ironsheep/sep-tools-mcp/internal/logging"
	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

// BytesPerPixel is the width of a combined scanline pixel: one byte each
// for C, M, Y and K.
const BytesPerPixel = 4

// ErrAlreadyOpen is returned by OpenAll when the source still holds open
// channels. Reopening without Close is a caller bug.
var ErrAlreadyOpen = errors.New("sep: channels already open")

// ErrNotOpen is returned by reads issued before OpenAll.
var ErrNotOpen = errors.New("sep: channels not open")

// channel is one decoded single-ink raster.
type channel struct {
	pix    []byte
	width  int
	height int
	res    Resolution
}

// openChannel decodes a single-ink TIFF into one byte per pixel.
func openChannel(path string) (*channel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	tags, err := readTIFFTags(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags of %s: %w", path, err)
	}

	b := img.Bounds()
	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	}

	c := &channel{
		pix:    make([]byte, b.Dx()*b.Dy()),
		width:  b.Dx(),
		height: b.Dy(),
		res:    tags.resolution(),
	}
	for y := 0; y < c.height; y++ {
		start := gray.PixOffset(gray.Rect.Min.X, gray.Rect.Min.Y+y)
		copy(c.pix[y*c.width:(y+1)*c.width], gray.Pix[start:start+c.width])
	}

	// The decoder inverts WhiteIsZero data to luminance; ink values are
	// the raw samples.
	if tags.photometric == photometricWhiteIsZero {
		for i, v := range c.pix {
			c.pix[i] = 255 - v
		}
	}
	return c, nil
}

// readRow copies row line into dst. Pixels outside the raster are zero.
// A nil channel reads as all zero.
func (c *channel) readRow(dst []byte, line int) {
	clear(dst)
	if c == nil || line < 0 || line >= c.height {
		return
	}
	copy(dst, c.pix[line*c.width:(line+1)*c.width])
}

// Source reads the channel rasters named by a descriptor and combines them
// into interleaved CMYK scanlines.
//
// A Source is not safe for concurrent use.
type Source struct {
	desc   *Descriptor
	logger *slog.Logger

	open     bool
	channels map[string]*channel
	lines    [len(ProcessChannels)][]byte
	white    []byte
	varnish  []byte
}

// NewSource prepares a reader for d. No file is touched until OpenAll.
func NewSource(d *Descriptor, logger *slog.Logger) *Source {
	logger = logging.OrNop(logger)
	if d.Path != "" {
		logger = logger.With(slog.String("path", d.Path))
	}
	return &Source{desc: d, logger: logger}
}

// Descriptor returns the descriptor being read.
func (s *Source) Descriptor() *Descriptor {
	return s.desc
}

// OpenAll decodes every channel with a non-empty path. A channel that cannot
// be opened is reported as a ChannelIOError warning and reads as zero. The
// only error is ErrAlreadyOpen.
func (s *Source) OpenAll() (warn.List, error) {
	if s.open {
		return nil, ErrAlreadyOpen
	}

	var warnings warn.List
	s.channels = make(map[string]*channel)
	for _, code := range []string{ChannelC, ChannelM, ChannelY, ChannelK, ChannelWhite, ChannelVarnish} {
		path := s.desc.Files[code]
		if path == "" {
			continue
		}
		c, err := openChannel(path)
		if err != nil {
			warnings.Addf(warn.ChannelIOError, "channel %s could not be opened: %v", code, err)
			logging.Warn(s.logger, warnings[len(warnings)-1], slog.String("channel", code))
			continue
		}
		if c.width != s.desc.Width || c.height != s.desc.Height {
			warnings.Addf(warn.ChannelIOError, "channel %s is %dx%d, descriptor declares %dx%d",
				code, c.width, c.height, s.desc.Width, s.desc.Height)
			logging.Warn(s.logger, warnings[len(warnings)-1], slog.String("channel", code))
		}
		s.channels[code] = c
		s.logger.Debug("channel opened", slog.String("channel", code), slog.Int("width", c.width), slog.Int("height", c.height))
	}

	width := max(s.desc.Width, 0)
	for i := range s.lines {
		s.lines[i] = make([]byte, width)
	}
	s.white = make([]byte, width)
	s.varnish = make([]byte, width)
	s.open = true
	return warnings, nil
}

// ReadCombinedScanline fills out with one C, M, Y, K quadruple per pixel of
// row line, each colour byte blended against the white channel with the
// descriptor's white-ink mode. out must hold at least Width*4 bytes.
//
// The varnish channel is read but never applied.
func (s *Source) ReadCombinedScanline(out []byte, line int) error {
	if !s.open {
		return ErrNotOpen
	}
	width := len(s.white)
	if len(out) < width*BytesPerPixel {
		return fmt.Errorf("scanline buffer holds %d bytes, need %d", len(out), width*BytesPerPixel)
	}

	for i, code := range ProcessChannels {
		s.channels[code].readRow(s.lines[i], line)
	}
	s.channels[ChannelWhite].readRow(s.white, line)
	// Varnish is decoded but has no effect on the output.
	s.channels[ChannelVarnish].readRow(s.varnish, line)

	mode := s.desc.WhiteInk
	for x := 0; x < width; x++ {
		w := s.white[x]
		o := x * BytesPerPixel
		for j := range ProcessChannels {
			out[o+j] = ApplyWhiteInk(w, s.lines[j][x], mode)
		}
	}
	return nil
}

// FillTiles reads count scanlines starting at startLine and scatters them
// over horizontally adjacent tiles. tiles[0] is tile firstTile of the row;
// each tile receives tileWidth pixels per line at a stride of tileWidth*4
// bytes. The last tile may be only partly covered by the image.
func (s *Source) FillTiles(startLine, count, tileWidth, firstTile int, tiles [][]byte) error {
	if tileWidth <= 0 || firstTile < 0 || count < 0 {
		return fmt.Errorf("invalid tile request: width %d, first tile %d, count %d", tileWidth, firstTile, count)
	}
	if len(tiles) == 0 {
		return nil
	}

	tileStride := tileWidth * BytesPerPixel
	for t, tile := range tiles {
		if len(tile) < count*tileStride {
			return fmt.Errorf("tile %d holds %d bytes, need %d", t, len(tile), count*tileStride)
		}
	}

	rowLen := len(s.white) * BytesPerPixel
	row := make([]byte, rowLen)
	for i := 0; i < count; i++ {
		if err := s.ReadCombinedScanline(row, startLine+i); err != nil {
			return err
		}
		for t, tile := range tiles {
			off := (firstTile + t) * tileStride
			if off >= rowLen {
				break
			}
			n := min(tileStride, rowLen-off)
			copy(tile[i*tileStride:i*tileStride+n], row[off:off+n])
		}
	}
	return nil
}

// Bitmap reads the whole image as Height rows of Width*4 combined bytes.
func (s *Source) Bitmap() ([]byte, error) {
	if !s.desc.Valid() {
		return nil, fmt.Errorf("descriptor has invalid size %dx%d", s.desc.Width, s.desc.Height)
	}
	rowLen := s.desc.Width * BytesPerPixel
	bitmap := make([]byte, s.desc.Height*rowLen)
	for y := 0; y < s.desc.Height; y++ {
		if err := s.ReadCombinedScanline(bitmap[y*rowLen:(y+1)*rowLen], y); err != nil {
			return nil, err
		}
	}
	return bitmap, nil
}

// Resolution reports the resolution of the C channel and whether the M, Y
// and K channels agree with it. Missing channels are skipped.
func (s *Source) Resolution() (Resolution, bool) {
	base := defaultResolution
	if c := s.channels[ChannelC]; c != nil {
		base = c.res
	}
	consistent := true
	for _, code := range ProcessChannels[1:] {
		c := s.channels[code]
		if c == nil {
			continue
		}
		if math.Abs(c.res.X-base.X) > 1e-3 || math.Abs(c.res.Y-base.Y) > 1e-3 || c.res.Unit != base.Unit {
			consistent = false
		}
	}
	return base, consistent
}

// Close releases every decoded channel. It is safe to call more than once.
func (s *Source) Close() {
	s.channels = nil
	s.open = false
}

// Decoded is a fully read separation.
type Decoded struct {
	Descriptor *Descriptor
	Bitmap     []byte
	Resolution Resolution
}

// Decode parses the descriptor at path, reads all of its channels and
// returns the combined bitmap. A descriptor with an invalid size is an
// error; unreadable channels are warnings.
func Decode(path string, chooser WhiteInkChooser, logger *slog.Logger) (*Decoded, warn.List, error) {
	d, warnings, err := ParseFile(path, chooser, logger)
	if err != nil {
		return nil, warnings, err
	}
	if !d.Valid() {
		return nil, warnings, fmt.Errorf("%s: descriptor has invalid size %dx%d", path, d.Width, d.Height)
	}

	src := NewSource(d, logger)
	openWarnings, err := src.OpenAll()
	warnings.Merge(openWarnings)
	if err != nil {
		return nil, warnings, err
	}
	defer src.Close()

	bitmap, err := src.Bitmap()
	if err != nil {
		return nil, warnings, err
	}
	res, consistent := src.Resolution()
	if !consistent {
		warnings.Addf(warn.ChannelIOError, "%s: channel resolutions differ, using the C channel's", path)
		logging.Warn(logging.OrNop(logger), warnings[len(warnings)-1], slog.String("path", path))
	}
	return &Decoded{Descriptor: d, Bitmap: bitmap, Resolution: res}, warnings, nil
}
