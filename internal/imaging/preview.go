package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
)

// maxPreviewEdge bounds the longer edge of an inline preview.
const maxPreviewEdge = 2048

// Preview is an image encoded for inline transport.
type Preview struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// EncodePreview resizes img by scale and encodes it as a base64 PNG. A scale of
// zero means 1. The result is shrunk further when its longer edge would exceed
// 2048 pixels.
func EncodePreview(img image.Image, scale float64) (*Preview, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrEmptyImage
	}
	if scale < 0 {
		return nil, fmt.Errorf("invalid preview scale %g", scale)
	}
	if scale == 0 {
		scale = 1
	}
	if edge := float64(max(b.Dx(), b.Dy())) * scale; edge > maxPreviewEdge {
		scale *= maxPreviewEdge / edge
	}

	out := img
	if scale != 1 {
		w := max(int(math.Round(float64(b.Dx())*scale)), 1)
		h := max(int(math.Round(float64(b.Dy())*scale)), 1)
		// Nearest neighbour keeps single target pixels crisp when enlarging.
		filter := imaging.NearestNeighbor
		if scale < 1 {
			filter = imaging.Lanczos
		}
		out = imaging.Resize(img, w, h, filter)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode preview: %w", err)
	}

	return &Preview{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		MimeType:    "image/png",
	}, nil
}
