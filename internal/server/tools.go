package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// pathProperty is the presentation path argument every tool except
// sep_colors takes.
var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Path of the .sli layer list, .sep separation or raster image passed to sep_open",
}

func regionProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": pathProperty,
		"x1": map[string]interface{}{
			"type":        "integer",
			"description": "Left edge X coordinate in presentation pixels (inclusive)",
		},
		"y1": map[string]interface{}{
			"type":        "integer",
			"description": "Top edge Y coordinate in presentation pixels (inclusive)",
		},
		"x2": map[string]interface{}{
			"type":        "integer",
			"description": "Right edge X coordinate in presentation pixels (exclusive)",
		},
		"y2": map[string]interface{}{
			"type":        "integer",
			"description": "Bottom edge Y coordinate in presentation pixels (exclusive)",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Presentation lifecycle
		{
			Name:        "sep_open",
			Description: "Open a separation presentation: a .sli layer list, a single .sep separation descriptor, or a single TIFF/PNG/JPEG/GIF raster. Layers that fail to load are skipped and reported as warnings. Reopening a path replaces the previous presentation.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"white_ink": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"none", "subtractive", "multiplicative"},
						"description": "How a W (white ink) channel attenuates the colour channels. Defaults to the server setting.",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sep_layers",
			Description: "List the layers of an open presentation in draw order with their placement, inks, compositor and visibility.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sep_set_layer_visible",
			Description: "Show or hide one layer. Hiding or showing a layer discards every cached zoom level.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Layer index as returned by sep_layers",
					},
					"visible": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether the layer takes part in compositing",
					},
				},
				"required": []string{"path", "index", "visible"},
			},
		},
		{
			Name:        "sep_close",
			Description: "Close a presentation and release its layers and cached bitmaps.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Rendering
		{
			Name:        "sep_redraw",
			Description: "Render a region of the composited presentation as base64-encoded PNG. Zoom 0 is native resolution, negative zooms halve the image per step, positive zooms magnify by 2^zoom. Omit the region to render the whole presentation. Pixels no layer covers are transparent.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": regionProperties(map[string]interface{}{
					"zoom": map[string]interface{}{
						"type":        "integer",
						"description": "Zoom level, -30 to 5 (default: 0)",
						"default":     0,
					},
					"grid_spacing": map[string]interface{}{
						"type":        "integer",
						"description": "Draw coordinate grid lines every N presentation pixels (default: no grid)",
					},
					"grid_color": map[string]interface{}{
						"type":        "string",
						"description": "Grid color as hex (default: #FF000080)",
					},
					"grid_labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Label grid intersections with presentation coordinates",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "sep_sample_color",
			Description: "Get the display color of one composited pixel as hex, RGB and HSL, with alpha 0 where no layer covers it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate in presentation pixels",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate in presentation pixels",
					},
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "sep_pixel_averages",
			Description: "Pipette: average ink value per channel (C, M, Y, K, then named inks) over a rectangle, counting only pixels covered by visible layers. Also returns the display color of the averaged process inks. A zero-area rectangle returns no averages.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": regionProperties(nil),
				"required":   []string{"path", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "sep_measure",
			Description: "Measure the distance and angle from x1,y1 to x2,y2 in presentation pixels, and corrected for the pixel aspect ratio when the resolution differs between axes.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": regionProperties(nil),
				"required":   []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Cache control
		{
			Name:        "sep_wipe_cache",
			Description: "Discard every cached zoom level. Levels are rebuilt on the next redraw.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "sep_clear_bottom_surface",
			Description: "Zero-fill the areas of the given layers in the native-resolution bitmap, leaving all other pixels untouched. Cleared areas stay empty until sep_recompute.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"layers": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "Indices of the layers to clear; empty clears nothing",
					},
				},
				"required": []string{"path", "layers"},
			},
		},
		{
			Name:        "sep_recompute",
			Description: "Rebuild the native-resolution bitmap from the layers, restoring cleared areas, and discard all other cached levels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Registry
		{
			Name:        "sep_colors",
			Description: "List the ink registry: every named ink with its C, M, Y, K multipliers and aliases. 'default' is true when no registry file was loaded.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
