package sep

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/sep-tools-mcp/internal/logging"
	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

// InvalidSize marks a descriptor whose width or height could not be parsed.
// Layers built from such a descriptor fail to load.
const InvalidSize = -1

// Channel codes a descriptor may name.
const (
	ChannelC       = "C"
	ChannelM       = "M"
	ChannelY       = "Y"
	ChannelK       = "K"
	ChannelVarnish = "V"
	ChannelWhite   = "W"
)

// ProcessChannels lists the colour channels in output order.
var ProcessChannels = [4]string{ChannelC, ChannelM, ChannelY, ChannelK}

func knownChannel(code string) bool {
	switch code {
	case ChannelC, ChannelM, ChannelY, ChannelK, ChannelVarnish, ChannelWhite:
		return true
	}
	return false
}

// Descriptor is a parsed .sep file: the geometry of one separated image and
// the raster file holding each of its inks.
//
// The file format is:
//
//	600
//	400
//	C: cyan.tif
//	M: magenta.tif
//	W: white.tif
//
// Line 1 is the width, line 2 the height, and every following non-empty line
// maps a channel code (C, M, Y, K, V or W) to a path relative to the
// descriptor's directory.
type Descriptor struct {
	// Path is the descriptor file, empty when parsed from a bare reader.
	Path string `json:"path,omitempty"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Files maps channel code to absolute path. C, M, Y and K are always
	// present; an empty path is an absent channel that reads as zero.
	Files map[string]string `json:"files"`

	// WhiteInk is the blend applied against the W channel.
	WhiteInk WhiteInkMode `json:"white_ink"`
}

// Valid reports whether the geometry parsed into a usable size.
func (d *Descriptor) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// HasChannel reports whether code names a non-empty path.
func (d *Descriptor) HasChannel(code string) bool {
	return d.Files[code] != ""
}

// ParseFile reads and parses the descriptor at path. Only a failure to read
// the file is an error; content problems come back as warnings.
func ParseFile(path string, chooser WhiteInkChooser, logger *slog.Logger) (*Descriptor, warn.List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open descriptor: %w", err)
	}
	defer f.Close()

	return parse(f, path, filepath.Dir(path), chooser, logging.OrNop(logger).With(slog.String("path", path)))
}

// Parse parses descriptor text. Relative channel paths are resolved against
// baseDir. chooser is consulted only when a W channel is present; nil means
// WhiteInkNone.
func Parse(r io.Reader, baseDir string, chooser WhiteInkChooser, logger *slog.Logger) (*Descriptor, warn.List, error) {
	return parse(r, "", baseDir, chooser, logging.OrNop(logger))
}

func parse(r io.Reader, path, baseDir string, chooser WhiteInkChooser, logger *slog.Logger) (*Descriptor, warn.List, error) {
	var warnings warn.List
	report := func(format string, args ...any) {
		warnings.Addf(warn.DescriptorWarning, format, args...)
		logging.Warn(logger, warnings[len(warnings)-1])
	}

	d := &Descriptor{
		Path:  path,
		Files: map[string]string{ChannelC: "", ChannelM: "", ChannelY: "", ChannelK: ""},
	}

	scanner := bufio.NewScanner(r)

	// The first two lines carry no code: they are the width and height.
	width, okW := scanSize(scanner)
	height, okH := scanSize(scanner)
	if okW && okH {
		d.Width, d.Height = width, height
	} else {
		if okW {
			d.Width = width
		}
		d.Height = InvalidSize
		report("width or height have not been provided correctly")
	}

	lineNr := 2
	for scanner.Scan() {
		lineNr++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			report("line %d: channel has not been provided correctly: %q", lineNr, line)
			continue
		}
		code, file := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if !knownChannel(code) {
			report("line %d: unknown channel %q (not C, M, Y, K, V or W)", lineNr, code)
			continue
		}

		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		d.Files[code] = file
	}
	if err := scanner.Err(); err != nil {
		return nil, warnings, fmt.Errorf("failed to read descriptor: %w", err)
	}

	if d.HasChannel(ChannelWhite) && chooser != nil {
		mode, err := chooser.ChooseWhiteInk(path)
		if err != nil {
			logger.Warn("white ink choice unavailable, using none", slog.Any("error", err))
			mode = WhiteInkNone
		}
		d.WhiteInk = mode
	}

	return d, warnings, nil
}

// scanSize reads the next line as a non-negative integer.
func scanSize(scanner *bufio.Scanner) (int, bool) {
	if !scanner.Scan() {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
