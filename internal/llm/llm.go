package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"photo-grouper/internal/config"
)

type Task string

const (
	TaskGroup    Task = "group"
	TaskDescribe Task = "describe"
)

// Image is one picture sent to the model, already resized for transmission.
type Image struct {
	Data     []byte
	MimeType string
}

type Request struct {
	Task   Task
	Images []Image
	Prompt string
	System string
}

// Client is a vision model: given images and a prompt it returns text.
type Client interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	ErrTimeout     = errors.New("model request timed out")
	ErrRateLimited = errors.New("model rate limit exceeded")
	ErrUnavailable = errors.New("model service unavailable")
	ErrEmpty       = errors.New("model returned no content")
)

// New builds the configured provider wrapped with the bounded retry policy.
func New(cfg config.ModelConfig, log Logger) (Client, error) {
	var client Client
	switch cfg.Provider {
	case config.ProviderClaude:
		client = NewClaude(cfg.APIKey, cfg.Name, cfg.MaxTokens)
	case config.ProviderOpenAI:
		client = NewOpenAI(cfg.APIKey, cfg.Name, cfg.MaxTokens)
	case config.ProviderGemini:
		client = NewGemini(cfg.APIKey, cfg.Name, cfg.MaxTokens)
	case config.ProviderStub:
		client = NewStub()
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	return WithRetry(client, cfg.MaxRetries, cfg.RetryBackoff, cfg.Timeout, log), nil
}

// classifyStatus maps an HTTP status reported by a provider SDK onto the
// error kinds callers branch on. err stays in the chain.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case status >= 500:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return err
	}
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}
