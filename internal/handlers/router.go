package handlers

import (
	"time"

	"photo-grouper/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Token    string
	Provider string
	Model    string
	// MaxUploadMemory bounds the multipart bytes gin keeps in memory; the
	// rest spills to temporary files.
	MaxUploadMemory int64
	Metrics         *metrics.Metrics
	Gatherer        prometheus.Gatherer
	Log             logrus.FieldLogger
}

func NewRouter(cfg RouterConfig, process *ProcessHandler, batches *BatchHandler) *gin.Engine {
	router := gin.New()
	if cfg.MaxUploadMemory > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadMemory
	}
	router.Use(RequestLogger(cfg.Log, cfg.Metrics))
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	router.GET("/health", Health(cfg.Provider, cfg.Model))
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api", AuthMiddleware(cfg.Token))
	{
		api.POST("/analyze-multiple", process.AnalyzeMultiple)
		api.POST("/analyze-single", process.AnalyzeSingle)
		api.GET("/batches/:id", batches.Get)
	}

	return router
}

// RequestLogger replaces gin's text logger with structured entries.
func RequestLogger(log logrus.FieldLogger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		m.ObserveRequest(route, status)

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   status,
			"duration": time.Since(start).String(),
			"clientIP": c.ClientIP(),
		})
		if status >= 500 {
			entry.Error("Request failed")
			return
		}
		entry.Info("Request served")
	}
}
