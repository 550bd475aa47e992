// Package sli composes layers into a zoomable presentation.
//
// A presentation is opened from a layer-list file (.sli), a single
// separation (.sep) or a single raster image. Each layer is decoded once into
// raw ink samples and placed at its offset; the presentation area is the
// bounding box of all layers and the origin.
//
// # Zoom pyramid
//
// Level 0 composites every visible layer at native resolution. Level z < 0
// is level z+1 halved with a 2x2 box filter. Each level moves from Absent to
// Computing to Cached. Get schedules a missing level, together with every
// missing level above it, as one job on a FIFO worker pool and waits only
// for the level it asked for. WipeCache empties the table; computations in
// flight finish into levels that are no longer reachable.
//
// # Clearing
//
// ClearBottomSurface zero-fills the marked layers' areas of level 0 and
// drops the derived levels. The cleared area stays empty until Recompute.
//
// # Pipette
//
// PixelAverages averages raw layer samples, not display colours, so named
// inks are reported separately from the process inks they print with.
package sli
