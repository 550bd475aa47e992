// Package server implements the MCP (Model Context Protocol) server for the
// separation compositor.
//
// This package provides a JSON-RPC 2.0 server that exposes layered colour
// separations through the MCP protocol. A client opens a presentation, asks
// for redraws of any region at any zoom, and reads back ink averages.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Presentation lifecycle:
//   - sep_open: Load a .sli layer list, a .sep descriptor or a raster file
//   - sep_layers: List layers with geometry, inks and visibility
//   - sep_set_layer_visible: Show or hide a layer
//   - sep_close: Drop a presentation
//
// Rendering:
//   - sep_redraw: Render a region at a zoom level as PNG, optionally with a
//     coordinate grid
//   - sep_sample_color: Displayed colour at one pixel
//   - sep_pixel_averages: Per-ink averages over a rectangle
//   - sep_measure: Distance between two points, corrected for pixel aspect
//
// Cache control:
//   - sep_wipe_cache: Discard every cached zoom level
//   - sep_clear_bottom_surface: Zero the marked layers' area of the base level
//   - sep_recompute: Rebuild the base level
//
// Registry:
//   - sep_colors: List the ink colours and their aliases
//
// # Presentations
//
// Presentations are keyed by absolute path. They share one raster cache and
// one worker pool; zoom levels are computed on the pool and reused until a
// visibility change or an explicit wipe.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.Options{Registry: reg, Logger: logger})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
