package imaging

import (
	"bytes"
	"fmt"
	"image"

	// Register the decoders image.Decode relies on.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Magic numbers for the formats the render providers emit. Detection inspects
// leading bytes; the declared file extension is never trusted.
var (
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47}
	magicGIF  = []byte("GIF8")
	magicRIFF = []byte("RIFF")
	magicWEBP = []byte("WEBP")
	magicBMP  = []byte("BM")
)

// DetectFormat identifies the image format from its leading bytes.
// Returns the canonical lowercase format name, or "" when unrecognized.
func DetectFormat(data []byte) string {
	switch {
	case bytes.HasPrefix(data, magicJPEG):
		return "jpeg"
	case bytes.HasPrefix(data, magicPNG):
		return "png"
	case bytes.HasPrefix(data, magicGIF):
		return "gif"
	case len(data) >= 12 && bytes.HasPrefix(data, magicRIFF) && bytes.Equal(data[8:12], magicWEBP):
		return "webp"
	case bytes.HasPrefix(data, magicBMP):
		return "bmp"
	default:
		return ""
	}
}

// Resolution decodes only the image header and returns its dimensions.
func Resolution(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Decode decodes the full image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
