package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.FieldLogger

// Retrying bounds every call with a per-attempt timeout and retries rate
// limits and 5xx responses a fixed number of times.
type Retrying struct {
	client     Client
	maxRetries int
	backoff    time.Duration
	timeout    time.Duration
	log        Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

func WithRetry(client Client, maxRetries int, backoff, timeout time.Duration, log Logger) *Retrying {
	return &Retrying{
		client:     client,
		maxRetries: maxRetries,
		backoff:    backoff,
		timeout:    timeout,
		log:        log,
		sleep:      sleepContext,
	}
}

func (r *Retrying) Name() string  { return r.client.Name() }
func (r *Retrying) Model() string { return r.client.Model() }

func (r *Retrying) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		text, err := r.attempt(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == r.maxRetries {
			break
		}

		wait := r.backoff * time.Duration(attempt+1)
		r.log.WithFields(logrus.Fields{
			"provider": r.client.Name(),
			"attempt":  attempt + 1,
			"wait":     wait.String(),
			"error":    err.Error(),
		}).Warn("Model call failed, retrying")

		if err := r.sleep(ctx, wait); err != nil {
			break
		}
	}
	return "", lastErr
}

func (r *Retrying) attempt(ctx context.Context, req Request) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.client.Complete(ctx, req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			return "", fmt.Errorf("%w after %s: %w", ErrTimeout, r.timeout, err)
		}
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmpty
	}
	return text, nil
}

func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
