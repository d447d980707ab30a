package handlers

import (
	"context"
	"errors"
	"net/http"

	"photo-grouper/internal/archive"
	"photo-grouper/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const serviceName = "photo-grouper"

func Health(provider, model string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  serviceName,
			"provider": provider,
			"model":    model,
		})
	}
}

// BatchStore looks up archived batches.
type BatchStore interface {
	Get(ctx context.Context, batchID string) (*models.BatchRecord, error)
}

type BatchHandler struct {
	store BatchStore
	log   logrus.FieldLogger
}

// NewBatchHandler accepts a nil store; every lookup then answers 404.
func NewBatchHandler(store BatchStore, log logrus.FieldLogger) *BatchHandler {
	return &BatchHandler{store: store, log: log}
}

func (h *BatchHandler) Get(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch archive is disabled"})
		return
	}

	id := c.Param("id")
	rec, err := h.store.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, archive.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
	case err != nil:
		h.log.WithFields(logrus.Fields{
			"batch_id": id,
			"error":    err.Error(),
		}).Error("Failed to load archived batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	default:
		c.JSON(http.StatusOK, rec)
	}
}
