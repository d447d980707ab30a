package services

import (
	"bytes"
	"image"
	"testing"

	"photo-grouper/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeFitsLongestSide(t *testing.T) {
	resizer := NewImageResizer(logger.Discard())
	data := pngBytes(t, 600, 200, red)

	out, mime := resizer.Resize(data, 300)

	assert.Equal(t, "image/jpeg", mime)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestResizeKeepsSmallImageSize(t *testing.T) {
	resizer := NewImageResizer(logger.Discard())
	data := pngBytes(t, 40, 30, blue)

	out, mime := resizer.Resize(data, 300)

	assert.Equal(t, "image/jpeg", mime)
	w, h := ImageDimensions(out)
	assert.Equal(t, 40, w)
	assert.Equal(t, 30, h)
}

func TestResizeUndecodableReturnsOriginal(t *testing.T) {
	resizer := NewImageResizer(logger.Discard())
	data := []byte("definitely not an image")

	out, mime := resizer.Resize(data, 300)

	assert.Equal(t, data, out)
	assert.Equal(t, DefaultMimeType, mime)
}

func TestImageDimensions(t *testing.T) {
	w, h := ImageDimensions(pngBytes(t, 12, 7, green))
	assert.Equal(t, 12, w)
	assert.Equal(t, 7, h)

	w, h = ImageDimensions([]byte("garbage"))
	assert.Zero(t, w)
	assert.Zero(t, h)
}
