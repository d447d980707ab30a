package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"photo-grouper/internal/archive"
	"photo-grouper/internal/handlers"
	"photo-grouper/internal/metrics"
	"photo-grouper/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// ShutdownSignals cancel the command context and start the drain.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

func newServeCmd() *cobra.Command {
	var port, provider string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the photo grouping API.

Endpoints:
  POST /api/analyze-multiple   group a batch of photos into products
  POST /api/analyze-single     describe one photo
  GET  /api/batches/:id        archived batch outcome (needs ARCHIVE_PATH)
  GET  /health
  GET  /metrics`,
		Example: `  # Start server on the port from PORT (default 3000)
  photo-grouper serve

  # Run without a model API key
  photo-grouper serve --provider stub --port 8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(appOptions{provider: provider, port: port})
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&provider, "provider", "", "Model provider: claude, openai, gemini or stub (overrides MODEL_PROVIDER)")

	return cmd
}

func serve(ctx context.Context, a *app) error {
	if a.cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []services.PipelineOption{services.WithObserver(m)}
	var store handlers.BatchStore
	if a.cfg.ArchivePath != "" {
		s, err := archive.Open(a.cfg.ArchivePath)
		if err != nil {
			return err
		}
		defer s.Close()
		store = s
		opts = append(opts, services.WithRecorder(s))
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		Token:           a.cfg.Token,
		Provider:        a.client.Name(),
		Model:           a.client.Model(),
		MaxUploadMemory: a.cfg.Processing.MaxImageBytes,
		Metrics:         m,
		Gatherer:        reg,
		Log:             a.log,
	},
		handlers.NewProcessHandler(a.pipeline(opts...), a.describer(), a.cfg.Processing, a.cfg.ExposeRawResponse, a.log),
		handlers.NewBatchHandler(store, a.log),
	)

	addr := ":" + a.cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.WithFields(logrus.Fields{
			"addr":     addr,
			"provider": a.client.Name(),
			"model":    a.client.Model(),
			"scheme":   a.cfg.Processing.ReferenceScheme,
			"maxBatch": a.cfg.Processing.MaxBatch,
			"archive":  a.cfg.ArchivePath != "",
			"auth":     a.cfg.Token != "",
		}).Info("Service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Error("Server shutdown failed")
			return err
		}
		a.log.Info("Server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}
