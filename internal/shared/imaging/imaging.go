// Package imaging sniffs uploaded images and renders JPEG thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	ThumbnailMaxWidth = 320
	ThumbnailQuality  = 80
	ThumbnailType     = "image/jpeg"
)

var allowed = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ErrEmpty is returned for zero-length input.
var ErrEmpty = errors.New("empty image data")

// Sniff detects the content type from the first bytes of a file and reports
// whether it is an accepted image type.
func Sniff(head []byte) (string, bool) {
	ct, _, _ := strings.Cut(mimetype.Detect(head).String(), ";")
	_, ok := allowed[ct]
	return ct, ok
}

// Allowed reports whether contentType is accepted.
func Allowed(contentType string) bool {
	_, ok := allowed[contentType]
	return ok
}

// Extension returns the file extension for an accepted content type.
func Extension(contentType string) string {
	return allowed[contentType]
}

// Size decodes only the header to return image dimensions.
func Size(data []byte) (int, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrEmpty
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Thumbnail is an encoded preview.
type Thumbnail struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// MakeThumbnail decodes data, shrinks it to at most maxWidth keeping the
// aspect ratio, and encodes it as JPEG. Images are never upscaled.
func MakeThumbnail(data []byte, maxWidth, quality int) (Thumbnail, error) {
	if len(data) == 0 {
		return Thumbnail{}, ErrEmpty
	}
	if maxWidth <= 0 {
		maxWidth = ThumbnailMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = ThumbnailQuality
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > maxWidth {
		height = height * maxWidth / width
		width = maxWidth
		if height < 1 {
			height = 1
		}
	}

	// JPEG has no alpha channel; flatten onto white.
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return Thumbnail{}, fmt.Errorf("encode JPEG: %w", err)
	}
	return Thumbnail{
		Data:        buf.Bytes(),
		ContentType: ThumbnailType,
		Width:       width,
		Height:      height,
	}, nil
}
