package cmd

import (
	"fmt"
	"io"

	"photo-grouper/internal/config"
	"photo-grouper/internal/llm"
	"photo-grouper/internal/logger"
	"photo-grouper/internal/services"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "photo-grouper",
		Short: "Group product photos into listings with a vision model",
		Long: `Photo grouper accepts batches of product photos, asks a vision model which
photos show the same physical item, and returns one listing per product.

Every admitted photo ends up in exactly one group, whatever the model answers.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newGroupCmd())

	return cmd
}

// app holds the components shared by the serve and group commands.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	client    llm.Client
	sanitizer *services.TextSanitizer
	resizer   *services.ImageResizer
	engine    *services.GroupingEngine
	assembler *services.ResultAssembler
}

type appOptions struct {
	provider  string
	port      string
	logOutput io.Writer
	logFormat string
}

func newApp(opts appOptions) (*app, error) {
	cfg := config.Load()
	if opts.provider != "" {
		cfg.SetProvider(opts.provider)
	}
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if cfg.CategoriesFile != "" {
		categories, err := config.LoadCategories(cfg.CategoriesFile)
		if err != nil {
			return nil, err
		}
		cfg.Categories = categories
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var log *logrus.Logger
	if opts.logOutput != nil {
		log = logger.NewWithOutput(opts.logOutput, cfg.LogLevel, cfg.LogFormat)
	} else {
		log = logger.New(cfg.LogLevel, cfg.LogFormat)
	}

	client, err := llm.New(cfg.Model, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	sanitizer := services.NewTextSanitizer()
	return &app{
		cfg:       cfg,
		log:       log,
		client:    client,
		sanitizer: sanitizer,
		resizer:   services.NewImageResizer(log),
		engine:    services.NewGroupingEngine(client, cfg.Processing, cfg.Categories, sanitizer, log),
		assembler: services.NewResultAssembler(),
	}, nil
}

func (a *app) pipeline(opts ...services.PipelineOption) *services.Pipeline {
	return services.NewPipeline(a.cfg.Processing, a.client, a.engine, a.resizer, a.assembler, a.log, opts...)
}

func (a *app) describer() *services.Describer {
	return services.NewDescriber(a.client, a.cfg.Processing, a.resizer, a.sanitizer, a.log)
}
