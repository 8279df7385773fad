package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ct-jyjntc/ai-discussion/internal/domain"
	domainllm "github.com/ct-jyjntc/ai-discussion/internal/domain/services/llm"
)

type scriptedClient struct {
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	text string
	err  error
}

func (c *scriptedClient) Invoke(ctx context.Context, req *domainllm.InvokeRequest) (string, error) {
	r := c.responses[min(c.calls, len(c.responses)-1)]
	c.calls++
	return r.text, r.err
}

func (c *scriptedClient) InvokeStreaming(ctx context.Context, req *domainllm.InvokeRequest, onChunk domainllm.ChunkHandler) (string, error) {
	text, err := c.Invoke(ctx, req)
	if err == nil && onChunk != nil {
		onChunk(text)
	}
	return text, err
}

func (c *scriptedClient) Name() string              { return "scripted" }
func (c *scriptedClient) SupportsModel(string) bool { return true }

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		Multiplier: 2.0,
		MaxDelay:   5 * time.Millisecond,
	}
}

func transientErr() error {
	return &domain.ModelError{Provider: "scripted", StatusCode: 503, Message: "overloaded", Transient: true}
}

func TestRetryRecoversFromTransientErrors(t *testing.T) {
	inner := &scriptedClient{responses: []scriptedResponse{
		{err: transientErr()},
		{err: transientErr()},
		{text: "ok"},
	}}
	client := NewRetryingClient(inner, fastPolicy(), nil)

	got, err := client.Invoke(context.Background(), &domainllm.InvokeRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != "ok" || inner.calls != 3 {
		t.Errorf("got %q after %d calls, want \"ok\" after 3", got, inner.calls)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	inner := &scriptedClient{responses: []scriptedResponse{{err: transientErr()}}}
	client := NewRetryingClient(inner, fastPolicy(), nil)

	_, err := client.Invoke(context.Background(), &domainllm.InvokeRequest{Model: "m"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !domain.IsTransientModelError(err) {
		t.Errorf("final error should keep its classification, got %v", err)
	}
	if inner.calls != 4 {
		t.Errorf("calls = %d, want 4 (initial + 3 retries)", inner.calls)
	}
}

func TestRetryDoesNotRetryPermanentErrors(t *testing.T) {
	permanent := &domain.ModelError{Provider: "scripted", StatusCode: 401, Message: "bad key"}
	inner := &scriptedClient{responses: []scriptedResponse{{err: permanent}}}
	client := NewRetryingClient(inner, fastPolicy(), nil)

	_, err := client.Invoke(context.Background(), &domainllm.InvokeRequest{Model: "m"})
	if !errors.Is(err, permanent) && err != permanent {
		var me *domain.ModelError
		if !errors.As(err, &me) || me.StatusCode != 401 {
			t.Fatalf("expected permanent error passthrough, got %v", err)
		}
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	inner := &scriptedClient{responses: []scriptedResponse{{err: transientErr()}}}
	client := NewRetryingClient(inner, fastPolicy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Invoke(ctx, &domainllm.InvokeRequest{Model: "m"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries after cancellation)", inner.calls)
	}
}

func TestRetryDoesNotResumeBrokenStream(t *testing.T) {
	inner := &streamThenFailClient{}
	client := NewRetryingClient(inner, fastPolicy(), nil)

	var chunks []string
	_, err := client.InvokeStreaming(context.Background(), &domainllm.InvokeRequest{Model: "m"}, func(c string) {
		chunks = append(chunks, c)
	})
	if err == nil {
		t.Fatal("expected mid-stream error to surface")
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry after delivered chunks)", inner.calls)
	}
	if len(chunks) != 1 {
		t.Errorf("chunks = %v, want exactly one delivered chunk", chunks)
	}
}

type streamThenFailClient struct {
	calls int
}

func (c *streamThenFailClient) Invoke(ctx context.Context, req *domainllm.InvokeRequest) (string, error) {
	c.calls++
	return "", transientErr()
}

func (c *streamThenFailClient) InvokeStreaming(ctx context.Context, req *domainllm.InvokeRequest, onChunk domainllm.ChunkHandler) (string, error) {
	c.calls++
	if onChunk != nil {
		onChunk("partial")
	}
	return "", transientErr()
}

func (c *streamThenFailClient) Name() string              { return "stream-then-fail" }
func (c *streamThenFailClient) SupportsModel(string) bool { return true }
