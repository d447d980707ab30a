package services

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const DefaultMimeType = "image/jpeg"

// ImageResizer normalizes uploads for transmission to the model. It never
// fails: undecodable input is passed through with DefaultMimeType.
type ImageResizer struct {
	quality int
	log     logrus.FieldLogger
}

func NewImageResizer(log logrus.FieldLogger) *ImageResizer {
	return &ImageResizer{quality: 85, log: log}
}

// Resize fits data inside a maxDimension square and re-encodes it as JPEG.
func (r *ImageResizer) Resize(data []byte, maxDimension int) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"error": err.Error(),
			"size":  len(data),
		}).Warn("Failed to decode image, sending original bytes")
		return data, DefaultMimeType
	}

	bounds := img.Bounds()
	if maxDimension > 0 && (bounds.Dx() > maxDimension || bounds.Dy() > maxDimension) {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(r.quality)); err != nil {
		r.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Failed to encode resized image, sending original bytes")
		return data, DefaultMimeType
	}

	return buf.Bytes(), "image/jpeg"
}

// ImageDimensions reads width and height from the image header. Unknown
// formats yield 0, 0.
func ImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
