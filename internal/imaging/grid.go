package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
)

// DefaultGridColor is semi-transparent red.
var DefaultGridColor = color.NRGBA{255, 0, 0, 128}

// Grid draws presentation coordinate lines over a rendered viewport image.
type Grid struct {
	// Spacing is the distance between lines in presentation pixels.
	Spacing int

	// Origin is the presentation coordinate of level pixel 0,0.
	Origin image.Point

	// Zoom is the zoom level the image was rendered at.
	Zoom int

	Color  color.NRGBA
	Labels bool
}

// NewGrid returns a grid with lines every spacing presentation pixels. An
// empty or unparsable colorHex gives DefaultGridColor.
func NewGrid(spacing int, origin image.Point, zoom int, colorHex string, labels bool) (*Grid, error) {
	if spacing < 1 {
		return nil, fmt.Errorf("grid spacing must be positive, got %d", spacing)
	}
	c, err := parseHexColor(colorHex)
	if err != nil {
		c = DefaultGridColor
	}
	return &Grid{Spacing: spacing, Origin: origin, Zoom: zoom, Color: c, Labels: labels}, nil
}

type gridLine struct {
	screen int // offset into the rendered image
	coord  int // presentation coordinate
}

// Draw paints the grid onto dst, a rendering whose top-left pixel is level
// pixel levelMin.
func (g *Grid) Draw(dst *image.NRGBA, levelMin image.Point) {
	b := dst.Bounds()
	cols := g.lines(b.Dx(), g.Origin.X, levelMin.X)
	rows := g.lines(b.Dy(), g.Origin.Y, levelMin.Y)

	for _, c := range cols {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			dst.SetNRGBA(b.Min.X+c.screen, y, g.Color)
		}
	}
	for _, r := range rows {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.SetNRGBA(x, b.Min.Y+r.screen, g.Color)
		}
	}

	if g.Labels {
		labelColor := color.NRGBA{255, 255, 255, 255}
		bgColor := color.NRGBA{0, 0, 0, 180}

		for _, r := range rows {
			for _, c := range cols {
				label := fmt.Sprintf("%d,%d", c.coord, r.coord)
				drawLabel(dst, b.Min.X+c.screen+2, b.Min.Y+r.screen+2, label, labelColor, bgColor)
			}
		}
	}
}

// lines finds the positions along an axis of n rendered pixels that show a
// multiple of Spacing. Magnified pixels get a line on their first screen
// pixel only; reduced pixels get one when any presentation pixel they cover
// is on the grid.
func (g *Grid) lines(n, origin, levelMin int) []gridLine {
	var out []gridLine
	for s := 0; s < n; s++ {
		var start, width int
		if g.Zoom >= 0 {
			scale := 1 << g.Zoom
			if s%scale != 0 {
				continue
			}
			start, width = origin+levelMin+s/scale, 1
		} else {
			width = 1 << -g.Zoom
			start = origin + (levelMin+s)*width
		}
		if m := floorDiv(start+width-1, g.Spacing) * g.Spacing; m >= start {
			out = append(out, gridLine{screen: s, coord: m})
		}
	}
	return out
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.NRGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.NRGBA{R: r, G: g, B: b, A: a}, nil
}

// labelGlyphs is a 3x5 pixel font for coordinates.
var labelGlyphs = map[rune][]string{
	'0': {"111", "101", "101", "101", "111"},
	'1': {"010", "110", "010", "010", "111"},
	'2': {"111", "001", "111", "100", "111"},
	'3': {"111", "001", "111", "001", "111"},
	'4': {"101", "101", "111", "001", "001"},
	'5': {"111", "100", "111", "001", "111"},
	'6': {"111", "100", "111", "101", "111"},
	'7': {"111", "001", "001", "001", "001"},
	'8': {"111", "101", "111", "101", "111"},
	'9': {"111", "101", "111", "001", "111"},
	',': {"000", "000", "000", "010", "010"},
	'-': {"000", "000", "111", "000", "000"},
}

// drawLabel draws text with its top-left corner at x,y over a background box.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	set := func(px, py int, c color.NRGBA) {
		if (image.Point{px, py}).In(bounds) {
			img.SetNRGBA(px, py, c)
		}
	}

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			set(x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		for row, line := range labelGlyphs[ch] {
			for col, pixel := range line {
				if pixel == '1' {
					set(cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
