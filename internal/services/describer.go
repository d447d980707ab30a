package services

import (
	"context"
	"fmt"
	"strings"

	"photo-grouper/internal/config"
	"photo-grouper/internal/llm"
	"photo-grouper/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const describePrompt = `Describe the product in this photo for a marketplace listing.
Mention what the item is, its brand if visible, color, material and visible condition.
Answer in plain text, two or three sentences, without markdown.`

// Describer produces a free-text description of a single photo.
type Describer struct {
	client    llm.Client
	cfg       config.ProcessingConfig
	resizer   *ImageResizer
	sanitizer *TextSanitizer
	log       logrus.FieldLogger
}

func NewDescriber(client llm.Client, cfg config.ProcessingConfig, resizer *ImageResizer, sanitizer *TextSanitizer, log logrus.FieldLogger) *Describer {
	return &Describer{
		client:    client,
		cfg:       cfg,
		resizer:   resizer,
		sanitizer: sanitizer,
		log:       log,
	}
}

func (d *Describer) Describe(ctx context.Context, upload models.Upload) (*models.ImageDescription, error) {
	items, rejected := Admit([]models.Upload{upload}, d.cfg.MaxImageBytes)
	if len(items) == 0 {
		reason := "file rejected"
		if len(rejected) > 0 {
			reason = rejected[0].Error
		}
		return nil, fmt.Errorf("%w: %s", ErrNoValidItems, reason)
	}
	item := items[0]

	data, mime := d.resizer.Resize(item.Data, d.cfg.MaxDimension)
	text, err := d.client.Complete(ctx, llm.Request{
		Task:   llm.TaskDescribe,
		Images: []llm.Image{{Data: data, MimeType: mime}},
		Prompt: describePrompt,
	})
	if err != nil {
		return nil, upstreamError(err)
	}

	description := d.sanitizer.SanitizeText(d.sanitizer.Sanitize(text))
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyResponse
	}

	width, height := ImageDimensions(item.Data)
	d.log.WithFields(logrus.Fields{
		"filename": item.Filename,
		"width":    width,
		"height":   height,
		"length":   len(description),
	}).Info("Image described")

	return &models.ImageDescription{
		ID:           uuid.NewString(),
		Filename:     item.Filename,
		Description:  description,
		ImagePreview: DataURI(mime, data),
		Width:        width,
		Height:       height,
		SizeBytes:    item.Size,
	}, nil
}
