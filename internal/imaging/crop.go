package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains the encoded viewport image
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts r from img and encodes it as PNG. A scale above 1 magnifies
// the region with nearest-neighbour sampling so individual pixels stay sharp.
func Crop(img image.Image, r image.Rectangle, scale int) (*CropResult, error) {
	cropped, err := Render(img, r, scale)
	if err != nil {
		return nil, err
	}
	return EncodePNG(cropped)
}

// Render is the unencoded form of Crop. The result starts at 0,0.
func Render(img image.Image, r image.Rectangle, scale int) (*image.NRGBA, error) {
	bounds := img.Bounds()

	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: region is empty", r)
	}
	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}

	cropped := imaging.Crop(img, r)
	if scale > 1 {
		cropped = imaging.Resize(cropped, r.Dx()*scale, r.Dy()*scale, imaging.NearestNeighbor)
	}
	return cropped, nil
}

// EncodePNG encodes img as base64 PNG.
func EncodePNG(img image.Image) (*CropResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
