package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSniff(t *testing.T) {
	ct, ok := Sniff(pngBytes(t, 2, 2))
	assert.True(t, ok)
	assert.Equal(t, "image/png", ct)
	assert.Equal(t, ".png", Extension(ct))

	ct, ok = Sniff([]byte("%PDF-1.7 hello"))
	assert.False(t, ok)
	assert.Equal(t, "application/pdf", ct)
}

func TestMakeThumbnailShrinks(t *testing.T) {
	data := pngBytes(t, 640, 200)
	w, h, err := Size(data)
	require.NoError(t, err)
	assert.Equal(t, 640, w)
	assert.Equal(t, 200, h)

	thumb, err := MakeThumbnail(data, ThumbnailMaxWidth, ThumbnailQuality)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", thumb.ContentType)
	assert.Equal(t, 320, thumb.Width)
	assert.Equal(t, 100, thumb.Height)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(thumb.Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 320, cfg.Width)
}

func TestMakeThumbnailNeverUpscales(t *testing.T) {
	thumb, err := MakeThumbnail(pngBytes(t, 50, 40), 320, 80)
	require.NoError(t, err)
	assert.Equal(t, 50, thumb.Width)
	assert.Equal(t, 40, thumb.Height)
}

func TestMakeThumbnailRejectsGarbage(t *testing.T) {
	_, err := MakeThumbnail([]byte("not an image"), 320, 80)
	assert.Error(t, err)
	_, err = MakeThumbnail(nil, 320, 80)
	assert.ErrorIs(t, err, ErrEmpty)
}
