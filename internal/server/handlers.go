package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"github.com/ironsheep/sep-tools-mcp/internal/colorconfig"
	"github.com/ironsheep/sep-tools-mcp/internal/imaging"
	"github.com/ironsheep/sep-tools-mcp/internal/sep"
	"github.com/ironsheep/sep-tools-mcp/internal/sli"
	"github.com/ironsheep/sep-tools-mcp/internal/warn"
)

// MaxZoom is the largest magnification sep_redraw renders: 2^5 screen pixels
// per image pixel.
const MaxZoom = 5

// errNotOpen is returned for a path no sep_open call has loaded.
var errNotOpen = errors.New("presentation is not open; call sep_open first")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "sep_open", "sep_redraw").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", slog.String("tool", params.Name), slog.Any("error", err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Presentation lifecycle
	case "sep_open":
		return s.handleOpen(args)
	case "sep_close":
		return s.handleClose(args)
	case "sep_layers":
		return s.handleLayers(args)
	case "sep_set_layer_visible":
		return s.handleSetLayerVisible(args)

	// Rendering
	case "sep_redraw":
		return s.handleRedraw(ctx, args)
	case "sep_sample_color":
		return s.handleSampleColor(ctx, args)
	case "sep_pixel_averages":
		return s.handlePixelAverages(args)
	case "sep_measure":
		return s.handleMeasure(args)

	// Cache control
	case "sep_wipe_cache":
		return s.handleWipeCache(args)
	case "sep_clear_bottom_surface":
		return s.handleClearBottomSurface(ctx, args)
	case "sep_recompute":
		return s.handleRecompute(args)

	// Registry
	case "sep_colors":
		return s.handleColors()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// key normalises a presentation path so relative and absolute spellings of
// the same file share one presentation.
func key(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return abs, nil
}

func (s *Server) presentation(path string) (*sli.Presentation, error) {
	k, err := key(path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presentations[k]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, errNotOpen)
	}
	return p, nil
}

// Rect is a rectangle in presentation pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func toRect(r image.Rectangle) Rect {
	return Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// regionArgs is the x1,y1 (inclusive) to x2,y2 (exclusive) rectangle shared
// by the region tools.
type regionArgs struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (a regionArgs) rect() image.Rectangle {
	return image.Rectangle{Min: image.Pt(a.X1, a.Y1), Max: image.Pt(a.X2, a.Y2)}
}

func (a regionArgs) isZero() bool {
	return a == regionArgs{}
}

// === Presentation Lifecycle Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

type openArgs struct {
	Path     string `json:"path"`
	WhiteInk string `json:"white_ink,omitempty"`
}

// OpenResult describes a freshly opened presentation.
type OpenResult struct {
	Path     string          `json:"path"`
	Rect     Rect            `json:"rect"`
	XAspect  float64         `json:"x_aspect"`
	YAspect  float64         `json:"y_aspect"`
	Layers   []sli.LayerInfo `json:"layers"`
	Warnings []warn.Warning  `json:"warnings,omitempty"`
}

func (s *Server) handleOpen(args json.RawMessage) (interface{}, error) {
	var a openArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	k, err := key(a.Path)
	if err != nil {
		return nil, err
	}
	mode := s.whiteInk
	if a.WhiteInk != "" {
		if mode, err = sep.ParseWhiteInkMode(a.WhiteInk); err != nil {
			return nil, err
		}
	}

	p, warnings, err := sli.Open(k, sli.Options{
		Registry: s.registry,
		WhiteInk: sep.FixedChoice(mode),
		Images:   s.cache,
		Pool:     s.pool,
		Logger:   s.logger,
	})
	if err != nil {
		if len(warnings) > 0 {
			return nil, fmt.Errorf("%w\n%s", err, warnings)
		}
		return nil, err
	}

	s.mu.Lock()
	if old, ok := s.presentations[k]; ok {
		old.Close()
	}
	s.presentations[k] = p
	s.mu.Unlock()

	x, y := p.Aspect()
	return &OpenResult{
		Path:     k,
		Rect:     toRect(p.Rect()),
		XAspect:  x,
		YAspect:  y,
		Layers:   p.Layers(),
		Warnings: warnings,
	}, nil
}

func (s *Server) handleClose(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.presentations, p.Path())
	s.mu.Unlock()
	p.Close()
	for _, l := range p.Layers() {
		s.cache.Evict(l.Path)
	}
	return map[string]interface{}{"closed": p.Path()}, nil
}

func (s *Server) handleLayers(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"rect":   toRect(p.Rect()),
		"layers": p.Layers(),
	}, nil
}

type setLayerVisibleArgs struct {
	Path    string `json:"path"`
	Index   int    `json:"index"`
	Visible bool   `json:"visible"`
}

func (s *Server) handleSetLayerVisible(args json.RawMessage) (interface{}, error) {
	var a setLayerVisibleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}
	if err := p.SetLayerVisible(a.Index, a.Visible); err != nil {
		return nil, err
	}
	return p.Layers()[a.Index], nil
}

// === Rendering Handlers ===

type redrawArgs struct {
	Path string `json:"path"`
	regionArgs
	Zoom int `json:"zoom"`

	GridSpacing int    `json:"grid_spacing,omitempty"`
	GridColor   string `json:"grid_color,omitempty"`
	GridLabels  bool   `json:"grid_labels,omitempty"`
}

// RedrawResult is the PNG a viewport received for a redraw.
type RedrawResult struct {
	Rect Rect `json:"rect"`
	Zoom int  `json:"zoom"`
	*imaging.CropResult
}

func (s *Server) handleRedraw(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a redrawArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Zoom > MaxZoom || a.Zoom < sli.MinZoom {
		return nil, fmt.Errorf("zoom %d outside %d..%d", a.Zoom, sli.MinZoom, MaxZoom)
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}
	rect := a.rect()
	if a.isZero() {
		rect = p.Rect()
	}

	vp := &pngViewport{}
	if a.GridSpacing != 0 {
		if vp.grid, err = imaging.NewGrid(a.GridSpacing, p.Rect().Min, a.Zoom, a.GridColor, a.GridLabels); err != nil {
			return nil, err
		}
	}
	if err := p.Redraw(ctx, vp, rect, a.Zoom); err != nil {
		return nil, err
	}
	if vp.result == nil {
		return nil, fmt.Errorf("region %v does not overlap the presentation %v", rect, p.Rect())
	}
	return &RedrawResult{Rect: toRect(vp.shown), Zoom: a.Zoom, CropResult: vp.result}, nil
}

type sampleColorArgs struct {
	Path string `json:"path"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

func (s *Server) handleSampleColor(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a sampleColorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}
	img, err := p.Get(ctx, 0)
	if err != nil {
		return nil, err
	}
	at := image.Pt(a.X, a.Y).Sub(p.Rect().Min)
	return imaging.SampleColor(img, at.X, at.Y)
}

type pixelAveragesArgs struct {
	Path string `json:"path"`
	regionArgs
}

// PixelAveragesResult is a pipette reading.
type PixelAveragesResult struct {
	Rect     Rect                 `json:"rect"`
	Averages []sli.InkAverage     `json:"averages"`
	Display  *imaging.ColorResult `json:"display,omitempty"`
}

func (s *Server) handlePixelAverages(args json.RawMessage) (interface{}, error) {
	var a pixelAveragesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}
	rect := a.rect()
	res := &PixelAveragesResult{Rect: toRect(rect), Averages: p.PixelAverages(rect)}
	if res.Averages == nil {
		res.Averages = []sli.InkAverage{}
		return res, nil
	}

	res.Display = displayColor(p.Registry(), res.Averages)
	return res, nil
}

// displayColor renders pipette averages as one colour. The leading process
// inks map straight onto their planes; every other ink contributes its
// average times its registry multipliers. Inks the registry does not know
// are left out.
func displayColor(reg *colorconfig.Registry, averages []sli.InkAverage) *imaging.ColorResult {
	var cmyk [colorconfig.NumPlanes]float64
	for i, a := range averages {
		if i < colorconfig.NumPlanes {
			cmyk[i] += a.Value
			continue
		}
		ink, ok := reg.Lookup(a.Name)
		if !ok {
			continue
		}
		for plane, m := range ink.Multipliers {
			cmyk[plane] += a.Value * m
		}
	}
	return imaging.InkColor(cmyk[0], cmyk[1], cmyk[2], cmyk[3])
}

// MeasureResult is a distance between two presentation points.
type MeasureResult struct {
	XAspect float64 `json:"x_aspect"`
	YAspect float64 `json:"y_aspect"`
	*imaging.DistanceResult
}

func (s *Server) handleMeasure(args json.RawMessage) (interface{}, error) {
	var a pixelAveragesArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}
	x, y := p.Aspect()
	d, err := imaging.MeasureDistance(image.Pt(a.X1, a.Y1), image.Pt(a.X2, a.Y2), x, y)
	if err != nil {
		return nil, err
	}
	return &MeasureResult{XAspect: x, YAspect: y, DistanceResult: d}, nil
}

// === Cache Control Handlers ===

func (s *Server) handleWipeCache(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}
	p.WipeCache()
	return map[string]interface{}{"wiped": true}, nil
}

type clearBottomSurfaceArgs struct {
	Path   string `json:"path"`
	Layers []int  `json:"layers"`
}

func (s *Server) handleClearBottomSurface(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a clearBottomSurfaceArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}

	n := len(p.Layers())
	mask := make([]bool, n)
	for _, i := range a.Layers {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: %d of %d", sli.ErrLayerIndex, i, n)
		}
		mask[i] = true
	}
	p.SetClearMask(mask)
	if err := p.ClearBottomSurface(ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{"cleared": a.Layers}, nil
}

func (s *Server) handleRecompute(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p, err := s.presentation(a.Path)
	if err != nil {
		return nil, err
	}
	if err := p.Recompute(); err != nil {
		return nil, err
	}
	return map[string]interface{}{"recomputed": true}, nil
}

// === Registry Handlers ===

// ColorsResult lists the ink registry.
type ColorsResult struct {
	Default bool                 `json:"default"`
	Colors  []*colorconfig.Color `json:"colors"`
}

func (s *Server) handleColors() (interface{}, error) {
	return &ColorsResult{Default: s.registry.IsDefault(), Colors: s.registry.Colors()}, nil
}
