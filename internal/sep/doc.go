// Package sep reads separations: a descriptor naming one single-ink TIFF per
// channel, combined into interleaved C, M, Y, K scanlines.
//
// Parsing is forgiving. A bad size or a malformed channel line becomes a
// warning, and a channel that cannot be opened reads as all zero, so a
// damaged separation still yields a valid (if incomplete) bitmap.
//
// A W (white ink) channel attenuates the colour channels according to the
// descriptor's WhiteInkMode. A V (varnish) channel is decoded but has no
// effect on the output.
package sep
