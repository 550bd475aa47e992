package sli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
	"github.com/ironsheep/sep-tools-mcp/internal/logging"
	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

// List is a parsed layer-list (.sli) file.
type List struct {
	// XResolution and YResolution come from the optional header lines.
	// Zero means not given.
	XResolution float64
	YResolution float64

	Entries []Entry
}

// Entry is one layer line: a file placed at an offset, optionally naming
// the ink of each sample.
type Entry struct {
	Path string
	X, Y int
	Inks []string
	Line int
}

// ParseListFile reads the layer list at path. Entry paths are resolved
// against the list's directory.
func ParseListFile(path string, logger *slog.Logger) (*List, warn.List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open layer list: %w", err)
	}
	defer f.Close()
	return ParseList(f, filepath.Dir(path), logger)
}

// ParseList reads a layer list:
//
//	Xresolution: 300
//	Yresolution: 300
//	background.sep : 0 0
//	spot.tif : 120 40 : ORANGE
//
// Blank lines and lines starting with '#' are ignored. A malformed line is
// a DescriptorWarning and is skipped.
func ParseList(r io.Reader, baseDir string, logger *slog.Logger) (*List, warn.List, error) {
	logger = logging.OrNop(logger)
	var (
		list     = &List{}
		warnings warn.List
	)
	bad := func(line int, format string, args ...any) {
		warnings.Addf(warn.DescriptorWarning, "layer list line %d: "+format, append([]any{line}, args...)...)
		logging.Warn(logger, warnings[len(warnings)-1], slog.Int("line", line))
	}

	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		key := strings.TrimSpace(parts[0])
		if len(parts) == 2 && (strings.EqualFold(key, "Xresolution") || strings.EqualFold(key, "Yresolution")) {
			v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if err != nil || v <= 0 {
				bad(n, "invalid %s %q", key, strings.TrimSpace(parts[1]))
				continue
			}
			if strings.EqualFold(key, "Xresolution") {
				list.XResolution = v
			} else {
				list.YResolution = v
			}
			continue
		}

		if len(parts) > 3 || key == "" {
			bad(n, "expected \"path : x y [: inks]\", got %q", line)
			continue
		}
		e := Entry{Path: key, Line: n}
		if !filepath.IsAbs(e.Path) {
			e.Path = filepath.Join(baseDir, e.Path)
		}

		if len(parts) > 1 {
			fields := strings.Fields(parts[1])
			if len(fields) != 2 {
				bad(n, "expected an x and a y offset, got %q", strings.TrimSpace(parts[1]))
				continue
			}
			x, errX := strconv.Atoi(fields[0])
			y, errY := strconv.Atoi(fields[1])
			if errX != nil || errY != nil {
				bad(n, "invalid offset %q", strings.TrimSpace(parts[1]))
				continue
			}
			e.X, e.Y = x, y
		}

		if len(parts) == 3 {
			for _, ink := range strings.Split(parts[2], ",") {
				if ink = colorconfig.Upper(ink); ink != "" {
					e.Inks = append(e.Inks, ink)
				}
			}
			if len(e.Inks) == 0 {
				bad(n, "empty ink list")
				continue
			}
		}

		list.Entries = append(list.Entries, e)
	}
	if err := scanner.Err(); err != nil {
		return list, warnings, fmt.Errorf("failed to read layer list: %w", err)
	}
	return list, warnings, nil
}
