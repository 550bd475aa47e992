// Package imaging handles the raster side of the compositor: decoding
// whole-image layers, encoding viewport regions for display and describing
// display colors.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner.
// Regions are image.Rectangle values: Min is inclusive, Max exclusive.
//
// # Raster Layers
//
// ImageCache decodes TIFF, PNG, JPEG and GIF files once per path.
// InkRaster turns a decoded image into raw ink samples: four bytes (C, M, Y,
// K) per pixel, or one byte for grey images.
//
// # Viewport Rendering
//
// Render crops a region and magnifies it with nearest-neighbour sampling;
// EncodePNG turns the result into base64 PNG. A Grid can be drawn in between
// to mark presentation coordinates at any zoom. MeasureDistance reports
// distances corrected for non-square pixels.
//
// # Color Representation
//
// Display colors are returned as hex "#RRGGBB", 8-bit RGB components and HSL
// (hue 0-360, saturation and lightness 0-100).
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. The other functions are
// stateless and do not modify their inputs.
package imaging
