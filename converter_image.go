package markitdown

import (
	"fmt"
	"io"
	"strings"

	"image"
	_ "image/jpeg"
	_ "image/png"
)

// ImageConverter handles PNG and JPEG images. Without an OCR backend the best
// markdown rendition is a short metadata summary.
type ImageConverter struct{}

// NewImageConverter creates a new ImageConverter.
func NewImageConverter() *ImageConverter {
	return &ImageConverter{}
}

func (c *ImageConverter) Accepts(info StreamInfo) bool {
	switch info.Extension {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	mime := strings.ToLower(info.MIMEType)
	return strings.HasPrefix(mime, "image/png") || strings.HasPrefix(mime, "image/jpeg")
}

func (c *ImageConverter) Convert(reader io.ReadSeeker, info StreamInfo) (*DocumentConverterResult, error) {
	cfg, format, err := image.DecodeConfig(reader)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	size, err := reader.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("seek: %w", err)
	}

	var b strings.Builder
	b.WriteString("# Image\n\n")
	if info.Filename != "" {
		fmt.Fprintf(&b, "- Filename: %s\n", info.Filename)
	}
	fmt.Fprintf(&b, "- Format: %s\n", strings.ToUpper(format))
	fmt.Fprintf(&b, "- Dimensions: %dx%d\n", cfg.Width, cfg.Height)
	fmt.Fprintf(&b, "- Size: %d bytes\n", size)

	return &DocumentConverterResult{Markdown: b.String()}, nil
}
