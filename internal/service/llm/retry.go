package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
)

// RetryPolicy bounds the backoff applied to transient model failures.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  500 * time.Millisecond,
		Multiplier: 2.0,
		MaxDelay:   10 * time.Second,
	}
}

// RetryingClient wraps a ModelClient and retries transient failures
// with exponential backoff. Non-transient errors and cancellations
// propagate immediately.
type RetryingClient struct {
	inner  domainllm.ModelClient
	policy RetryPolicy
	logger *slog.Logger
}

func NewRetryingClient(inner domainllm.ModelClient, policy RetryPolicy, logger *slog.Logger) *RetryingClient {
	if policy.Multiplier <= 1 {
		policy.Multiplier = 2.0
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 10 * time.Second
	}
	return &RetryingClient{inner: inner, policy: policy, logger: logger}
}

func (c *RetryingClient) Name() string                    { return c.inner.Name() }
func (c *RetryingClient) SupportsModel(model string) bool { return c.inner.SupportsModel(model) }

func (c *RetryingClient) Invoke(ctx context.Context, req *domainllm.InvokeRequest) (string, error) {
	return c.execute(ctx, req, func() (string, error) {
		return c.inner.Invoke(ctx, req)
	})
}

// InvokeStreaming retries only failures that occur before any content
// was delivered; a stream that breaks mid-flight surfaces its error so
// the caller does not see duplicated chunks.
func (c *RetryingClient) InvokeStreaming(ctx context.Context, req *domainllm.InvokeRequest, onChunk domainllm.ChunkHandler) (string, error) {
	delivered := false
	return c.execute(ctx, req, func() (string, error) {
		result, err := c.inner.InvokeStreaming(ctx, req, func(chunk string) {
			delivered = true
			if onChunk != nil {
				onChunk(chunk)
			}
		})
		if err != nil && delivered {
			var me *domain.ModelError
			if errors.As(err, &me) {
				broke := *me
				broke.Transient = false
				return "", &broke
			}
		}
		return result, err
	})
}

func (c *RetryingClient) execute(ctx context.Context, req *domainllm.InvokeRequest, call func() (string, error)) (string, error) {
	delay := c.policy.BaseDelay
	var lastErr error

	for attempt := 0; attempt <= c.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			if c.logger != nil {
				c.logger.Warn("retrying model call",
					"provider", c.inner.Name(),
					"model", req.Model,
					"attempt", attempt,
					"delay", delay,
					"error", lastErr)
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.policy.Multiplier)
			if delay > c.policy.MaxDelay {
				delay = c.policy.MaxDelay
			}
		}

		result, err := call()
		if err == nil {
			return result, nil
		}
		if !domain.IsTransientModelError(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}
