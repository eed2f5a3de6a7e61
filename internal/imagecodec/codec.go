// Package imagecodec re-encodes uploaded images into the single format
// avatar images are stored in.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Supported output formats.
const (
	FormatWebP = "webp"
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

const defaultQuality = 80

var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrDecode            = errors.New("failed to decode image")
)

// Codec converts raw image bytes into the canonical stored format.
type Codec interface {
	Convert(raw []byte) ([]byte, error)
	// Extension is the file extension of converted images, without a dot.
	Extension() string
	ContentType() string
}

// ImageCodec decodes PNG, JPEG, GIF, BMP, TIFF and WebP input and encodes
// the result in one output format. Dimensions are kept as uploaded.
type ImageCodec struct {
	format  string
	quality int
}

// New returns a codec for format. An empty format means webp; quality outside
// 1..100 falls back to the default.
func New(format string, quality int) (*ImageCodec, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		format = FormatWebP
	case "jpg":
		format = FormatJPEG
	case FormatWebP, FormatJPEG, FormatPNG:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if quality < 1 || quality > 100 {
		quality = defaultQuality
	}
	return &ImageCodec{format: format, quality: quality}, nil
}

// Convert decodes raw, applying EXIF orientation, and re-encodes it.
func (c *ImageCodec) Convert(raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	var buf bytes.Buffer
	if err := c.encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", c.format, err)
	}
	return buf.Bytes(), nil
}

func (c *ImageCodec) encode(buf *bytes.Buffer, img image.Image) error {
	switch c.format {
	case FormatJPEG:
		return imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(c.quality))
	case FormatPNG:
		return imaging.Encode(buf, img, imaging.PNG)
	default:
		return webp.Encode(buf, img, &webp.Options{Quality: float32(c.quality)})
	}
}

func (c *ImageCodec) Extension() string {
	return c.format
}

func (c *ImageCodec) ContentType() string {
	return "image/" + c.format
}
