package sep

import (
	"encoding/binary"
	"errors"
)

// TIFF tags and values read directly from the first IFD. The image decoder
// does not expose them.
const (
	tagPhotometric    = 262
	tagXResolution    = 282
	tagYResolution    = 283
	tagResolutionUnit = 296

	dtShort    = 3
	dtLong     = 4
	dtRational = 5

	photometricWhiteIsZero = 0
)

// ResolutionUnit is the TIFF ResolutionUnit tag value.
type ResolutionUnit uint16

const (
	ResUnitNone       ResolutionUnit = 1
	ResUnitInch       ResolutionUnit = 2
	ResUnitCentimeter ResolutionUnit = 3
)

func (u ResolutionUnit) String() string {
	switch u {
	case ResUnitNone:
		return "none"
	case ResUnitInch:
		return "inch"
	case ResUnitCentimeter:
		return "centimeter"
	default:
		return "unknown"
	}
}

// Resolution is the pixel density of a channel. When Unit is not
// ResUnitNone, X and Y are scaled so the larger of the two is 1.
type Resolution struct {
	X    float64        `json:"x"`
	Y    float64        `json:"y"`
	Unit ResolutionUnit `json:"unit"`
}

// defaultResolution is what TIFF prescribes when no resolution is recorded.
var defaultResolution = Resolution{X: 1, Y: 1, Unit: ResUnitNone}

// tiffTags holds the few first-IFD fields the channel reader needs.
type tiffTags struct {
	photometric int // -1 when absent
	xRes, yRes  float64
	unit        ResolutionUnit
	hasX, hasY  bool
	hasUnit     bool
}

var errNotTIFF = errors.New("not a TIFF file")

// readTIFFTags scans the first image file directory of a TIFF byte stream.
func readTIFFTags(data []byte) (tiffTags, error) {
	tags := tiffTags{photometric: -1}
	if len(data) < 8 {
		return tags, errNotTIFF
	}

	var bo binary.ByteOrder
	switch string(data[:4]) {
	case "II\x2A\x00":
		bo = binary.LittleEndian
	case "MM\x00\x2A":
		bo = binary.BigEndian
	default:
		return tags, errNotTIFF
	}

	ifd := int(bo.Uint32(data[4:8]))
	if ifd < 8 || ifd+2 > len(data) {
		return tags, errNotTIFF
	}
	n := int(bo.Uint16(data[ifd : ifd+2]))

	for i := 0; i < n; i++ {
		e := ifd + 2 + 12*i
		if e+12 > len(data) {
			return tags, errNotTIFF
		}
		tag := bo.Uint16(data[e : e+2])
		typ := bo.Uint16(data[e+2 : e+4])
		value := data[e+8 : e+12]

		switch tag {
		case tagPhotometric:
			if v, ok := integer(bo, typ, value); ok {
				tags.photometric = int(v)
			}
		case tagResolutionUnit:
			if v, ok := integer(bo, typ, value); ok {
				tags.unit, tags.hasUnit = ResolutionUnit(v), true
			}
		case tagXResolution:
			tags.xRes, tags.hasX = rational(bo, typ, value, data)
		case tagYResolution:
			tags.yRes, tags.hasY = rational(bo, typ, value, data)
		}
	}
	return tags, nil
}

// integer decodes the first SHORT or LONG stored inline in an IFD entry.
func integer(bo binary.ByteOrder, typ uint16, value []byte) (uint32, bool) {
	switch typ {
	case dtShort:
		return uint32(bo.Uint16(value[:2])), true
	case dtLong:
		return bo.Uint32(value), true
	}
	return 0, false
}

// rational decodes a RATIONAL whose 8 bytes live at the offset in value.
func rational(bo binary.ByteOrder, typ uint16, value, data []byte) (float64, bool) {
	if typ != dtRational {
		return 0, false
	}
	off := int(bo.Uint32(value))
	if off < 0 || off+8 > len(data) {
		return 0, false
	}
	num, den := bo.Uint32(data[off:off+4]), bo.Uint32(data[off+4:off+8])
	if den == 0 || num == 0 {
		return 0, false
	}
	return float64(num) / float64(den), true
}

// resolution derives the channel resolution from its tags. Missing metadata
// gives 1:1 with no unit.
func (t tiffTags) resolution() Resolution {
	if !t.hasX || !t.hasY || !t.hasUnit {
		return defaultResolution
	}
	r := Resolution{X: t.xRes, Y: t.yRes, Unit: t.unit}
	if r.Unit == ResUnitNone {
		return r
	}
	base := max(r.X, r.Y)
	r.X /= base
	r.Y /= base
	return r
}
