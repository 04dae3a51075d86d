package ai

import (
	"context"
	"math/rand"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// RetryConfig bounds the retry decorators. Only errors whose classified kind
// is retriable (rate limit, unavailable) are retried; auth and quota
// failures surface immediately.
type RetryConfig struct {
	Attempts  int           `json:"attempts"`
	BaseDelay time.Duration `json:"base_delay"`
	MaxDelay  time.Duration `json:"max_delay"`
}

func (c RetryConfig) normalized() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	return c
}

func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.BaseDelay << uint(attempt)
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	// full jitter
	return time.Duration(rand.Int63n(int64(d) + 1))
}

func retryCall(ctx context.Context, cfg RetryConfig, what string, call func() error) error {
	cfg = cfg.normalized()
	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.delay(attempt - 1)):
			}
			logutil.GetLogger(ctx).Warn("retrying remote call",
				zap.String("call", what),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
		}
		lastErr = call()
		if lastErr == nil || !Retriable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

type retryEmbedder struct {
	next IEmbedder
	cfg  RetryConfig
}

// WithEmbedRetry wraps an embedder in the retry policy. Applied at wiring
// time so the adapters themselves stay single-shot.
func WithEmbedRetry(next IEmbedder, cfg RetryConfig) IEmbedder {
	if next == nil {
		return nil
	}
	return &retryEmbedder{next: next, cfg: cfg}
}

func (r *retryEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	var res []float32
	err := retryCall(ctx, r.cfg, "embed", func() error {
		var callErr error
		res, callErr = r.next.Embed(ctx, text, taskType)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *retryEmbedder) ModelName() string {
	return r.next.ModelName()
}

type retryChatModel struct {
	next IChatModel
	cfg  RetryConfig
}

// WithChatRetry wraps a chat model in the retry policy. Streaming calls are
// only retried while nothing has been emitted yet; once a fragment reached
// the consumer a retry would duplicate output.
func WithChatRetry(next IChatModel, cfg RetryConfig) IChatModel {
	if next == nil {
		return nil
	}
	return &retryChatModel{next: next, cfg: cfg}
}

func (r *retryChatModel) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	var res *CompletionResult
	err := retryCall(ctx, r.cfg, "complete", func() error {
		var callErr error
		res, callErr = r.next.Complete(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *retryChatModel) CompleteStream(ctx context.Context, req *CompletionRequest, fn StreamFunc) (*CompletionResult, error) {
	var res *CompletionResult
	emitted := false
	err := retryCall(ctx, r.cfg, "complete_stream", func() error {
		if emitted {
			return nil
		}
		var callErr error
		res, callErr = r.next.CompleteStream(ctx, req, func(delta string) error {
			emitted = true
			if fn == nil {
				return nil
			}
			return fn(delta)
		})
		if callErr != nil && emitted {
			// mid-stream failure, not retriable
			return &ProviderError{
				Provider: "stream",
				Kind:     KindUnknown,
				Message:  safeMessage(KindUnknown),
				Err:      callErr,
			}
		}
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *retryChatModel) ModelName() string {
	return r.next.ModelName()
}
