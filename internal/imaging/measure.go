package imaging

import (
	"fmt"
	"image"
	"math"
)

// DistanceResult contains measurement information
type DistanceResult struct {
	DistancePixels float64 `json:"distance_pixels"`
	DeltaX         int     `json:"delta_x"`
	DeltaY         int     `json:"delta_y"`
	AngleDegrees   float64 `json:"angle_degrees"`

	// DistanceCorrected is the distance in units of the finer pixel pitch,
	// for presentations whose pixels are not square.
	DistanceCorrected float64 `json:"distance_corrected"`
	AngleCorrected    float64 `json:"angle_corrected_degrees"`
}

// MeasureDistance measures from a to b. xAspect and yAspect are the
// normalised resolutions of the two axes (the larger is 1); a pixel is
// 1/xAspect units wide and 1/yAspect units tall.
func MeasureDistance(a, b image.Point, xAspect, yAspect float64) (*DistanceResult, error) {
	if xAspect <= 0 || yAspect <= 0 {
		return nil, fmt.Errorf("invalid aspect ratio %g:%g", xAspect, yAspect)
	}

	d := b.Sub(a)
	dx, dy := float64(d.X), float64(d.Y)
	cx, cy := dx/xAspect, dy/yAspect

	// Angles: 0 = horizontal right, 90 = down
	return &DistanceResult{
		DistancePixels:    round(math.Hypot(dx, dy), 100),
		DeltaX:            d.X,
		DeltaY:            d.Y,
		AngleDegrees:      round(math.Atan2(dy, dx)*180/math.Pi, 10),
		DistanceCorrected: round(math.Hypot(cx, cy), 100),
		AngleCorrected:    round(math.Atan2(cy, cx)*180/math.Pi, 10),
	}, nil
}

func round(v, unit float64) float64 {
	return math.Round(v*unit) / unit
}
