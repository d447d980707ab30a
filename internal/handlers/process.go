package handlers

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"photo-grouper/internal/config"
	"photo-grouper/internal/models"
	"photo-grouper/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// BatchProcessor runs the grouping pipeline over one batch.
type BatchProcessor interface {
	Run(ctx context.Context, uploads []models.Upload, note string) (*services.Outcome, error)
}

// ImageDescriber describes a single image.
type ImageDescriber interface {
	Describe(ctx context.Context, upload models.Upload) (*models.ImageDescription, error)
}

type ProcessHandler struct {
	pipeline  BatchProcessor
	describer ImageDescriber
	cfg       config.ProcessingConfig
	exposeRaw bool
	log       logrus.FieldLogger
}

func NewProcessHandler(pipeline BatchProcessor, describer ImageDescriber, cfg config.ProcessingConfig, exposeRaw bool, log logrus.FieldLogger) *ProcessHandler {
	return &ProcessHandler{
		pipeline:  pipeline,
		describer: describer,
		cfg:       cfg,
		exposeRaw: exposeRaw,
		log:       log,
	}
}

func (h *ProcessHandler) AnalyzeMultiple(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Invalid multipart body for /analyze-multiple")
		c.JSON(http.StatusBadRequest, models.BatchResponse{
			Results: []models.ProductResult{},
			Error:   "Invalid multipart body: " + err.Error(),
		})
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	note := ""
	if values := form.Value["description"]; len(values) > 0 {
		note = values[0]
	}

	h.log.WithFields(logrus.Fields{
		"fileCount": len(headers),
	}).Info("Received /analyze-multiple request")

	// The form is already parsed; refuse before any upload is copied or decoded.
	if len(headers) > h.cfg.MaxBatch {
		c.JSON(http.StatusBadRequest, models.BatchResponse{
			Results:    []models.ProductResult{},
			TotalFiles: len(headers),
			Error:      fmt.Sprintf("Too many files: %d uploaded, at most %d allowed", len(headers), h.cfg.MaxBatch),
		})
		return
	}

	uploads := h.readUploads(headers)

	outcome, err := h.pipeline.Run(c.Request.Context(), uploads, note)
	response := models.BatchResponse{
		Success:       err == nil,
		BatchID:       outcome.BatchID,
		Results:       outcome.Results,
		TotalFiles:    outcome.TotalFiles,
		RejectedFiles: outcome.Rejected,
	}
	if response.Results == nil {
		response.Results = []models.ProductResult{}
	}

	if err != nil {
		response.Error = err.Error()
		if h.exposeRaw {
			response.RawResponse = services.RawResponse(err)
		}
		c.JSON(services.StatusCode(err), response)
		return
	}

	response.ProcessedCount = len(outcome.Items)
	h.log.WithFields(logrus.Fields{
		"batch_id": outcome.BatchID,
		"stage":    services.StageResponded,
		"groups":   len(outcome.Results),
	}).Info("Successfully grouped images")

	c.JSON(http.StatusOK, response)
}

func (h *ProcessHandler) AnalyzeSingle(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, models.SingleResponse{
			Error: "Form field 'file' is required",
		})
		return
	}

	upload := h.readUpload(header)
	result, err := h.describer.Describe(c.Request.Context(), upload)
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"filename": header.Filename,
			"error":    err.Error(),
		}).Error("Failed to describe image")
		c.JSON(services.StatusCode(err), models.SingleResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.SingleResponse{Success: true, Result: result})
}

func (h *ProcessHandler) readUploads(headers []*multipart.FileHeader) []models.Upload {
	uploads := make([]models.Upload, 0, len(headers))
	for _, fh := range headers {
		uploads = append(uploads, h.readUpload(fh))
	}
	return uploads
}

// readUpload loads the part into memory. Oversized parts are not read; the
// declared size is enough for admission to reject them.
func (h *ProcessHandler) readUpload(fh *multipart.FileHeader) models.Upload {
	upload := models.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	}
	if fh.Size > h.cfg.MaxImageBytes {
		return upload
	}

	data, err := readFileHeader(fh, h.cfg.MaxImageBytes)
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"filename": fh.Filename,
			"error":    err.Error(),
		}).Warn("Failed to read uploaded file")
		return upload
	}
	upload.Data = data
	return upload
}

func readFileHeader(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// One byte past the limit is enough for admission to see the overflow.
	return io.ReadAll(io.LimitReader(f, limit+1))
}
