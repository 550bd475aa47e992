package sep

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// tiffOptions controls the tags written by writeGrayTIFF.
type tiffOptions struct {
	photometric uint16 // 1 = BlackIsZero, 0 = WhiteIsZero
	xRes, yRes  uint32 // 0 omits the resolution tags
	unit        uint16
}

// encodeGrayTIFF builds an uncompressed, single-strip, 8-bit grey TIFF.
func encodeGrayTIFF(width, height int, pix []byte, opt tiffOptions) []byte {
	type ifdEntry struct {
		tag, typ uint16
		value    uint32
	}

	bo := binary.LittleEndian
	data := []byte("II\x2A\x00\x00\x00\x00\x00")
	stripOffset := uint32(len(data))
	data = append(data, pix...)
	if len(data)%2 == 1 {
		data = append(data, 0)
	}

	entries := []ifdEntry{
		{256, dtShort, uint32(width)},
		{257, dtShort, uint32(height)},
		{258, dtShort, 8},
		{259, dtShort, 1},
		{tagPhotometric, dtShort, uint32(opt.photometric)},
		{273, dtLong, stripOffset},
		{277, dtShort, 1},
		{278, dtShort, uint32(height)},
		{279, dtLong, uint32(len(pix))},
	}
	if opt.xRes != 0 {
		xOff := uint32(len(data))
		data = bo.AppendUint32(data, opt.xRes)
		data = bo.AppendUint32(data, 1)
		yOff := uint32(len(data))
		data = bo.AppendUint32(data, opt.yRes)
		data = bo.AppendUint32(data, 1)
		entries = append(entries,
			ifdEntry{tagXResolution, dtRational, xOff},
			ifdEntry{tagYResolution, dtRational, yOff},
			ifdEntry{tagResolutionUnit, dtShort, uint32(opt.unit)},
		)
	}

	ifd := uint32(len(data))
	bo.PutUint32(data[4:8], ifd)
	data = bo.AppendUint16(data, uint16(len(entries)))
	for _, e := range entries {
		data = bo.AppendUint16(data, e.tag)
		data = bo.AppendUint16(data, e.typ)
		data = bo.AppendUint32(data, 1)
		if e.typ == dtShort {
			data = bo.AppendUint16(data, uint16(e.value))
			data = bo.AppendUint16(data, 0)
		} else {
			data = bo.AppendUint32(data, e.value)
		}
	}
	return bo.AppendUint32(data, 0)
}

// writeGrayTIFF writes a grey TIFF into dir and returns its path.
func writeGrayTIFF(t *testing.T, dir, name string, width, height int, pix []byte, opt tiffOptions) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, encodeGrayTIFF(width, height, pix, opt), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// filled returns n bytes of value v.
func filled(n int, v byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = v
	}
	return b
}

// blackIsZero is the usual photometric for ink channels.
var blackIsZero = tiffOptions{photometric: 1}
