package rag

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/ai"
)

const (
	DefaultMaxSummaryTokens = 500

	// sampling temperature for summarization; kept low for determinism
	compressTemperature = 0.3

	// generated-token headroom above the summary budget
	compressTokenMargin = 100
)

// TokenEstimator approximates how many tokens a text costs. Pluggable so an
// exact tokenizer can replace the heuristic without touching control flow.
type TokenEstimator func(text string) int

// EstimateTokensByChars is the 4-characters-per-token heuristic.
func EstimateTokensByChars(text string) int {
	return len(text) / 4
}

// Compressor condenses retrieved context into a token budget via one
// summarization call. Compression is best-effort by contract: any failure
// falls back to the original text and never blocks the query.
type Compressor struct {
	chat     ai.IChatModel
	estimate TokenEstimator
}

func NewCompressor(chat ai.IChatModel, estimator TokenEstimator) *Compressor {
	if estimator == nil {
		estimator = EstimateTokensByChars
	}
	return &Compressor{chat: chat, estimate: estimator}
}

const compressSystemPrompt = `You are a context compression assistant. You condense retrieved document excerpts into a compact summary that preserves everything needed to answer the user's question.`

const compressUserPromptFmt = `Compress the context below so it stays useful for answering the question.
- Keep every piece of information relevant to the question.
- Keep concrete facts, numbers and dates exactly as written.
- Keep the per-chunk source attributions (the "[Context N] (Source: ...)" lines).
- Remove repetition and filler.
- Target roughly %d tokens.

QUESTION:
%s

CONTEXT:
%s`

// Compress returns the context unchanged when it already fits the budget,
// so short contexts never cost an extra model call.
func (c *Compressor) Compress(ctx context.Context, contextText, userQuestion string, maxSummaryTokens int) string {
	if maxSummaryTokens <= 0 {
		maxSummaryTokens = DefaultMaxSummaryTokens
	}
	estimated := c.estimate(contextText)
	if estimated <= maxSummaryTokens {
		return contextText
	}
	logger := logutil.GetLogger(ctx).With(
		zap.Int("estimated_tokens", estimated),
		zap.Int("budget", maxSummaryTokens),
	)
	if c.chat == nil {
		logger.Warn("no compression model configured, using raw context")
		return contextText
	}
	res, err := c.chat.Complete(ctx, &ai.CompletionRequest{
		Messages: []ai.Message{
			{Role: ai.MsgRoleSystem, Content: compressSystemPrompt},
			{Role: ai.MsgRoleUser, Content: fmt.Sprintf(compressUserPromptFmt, maxSummaryTokens, userQuestion, contextText)},
		},
		Temperature: compressTemperature,
		MaxTokens:   maxSummaryTokens + compressTokenMargin,
	})
	if err != nil || res.Text == "" {
		logger.Warn("context compression failed, using raw context", zap.Error(err))
		return contextText
	}
	logger.Debug("context compressed", zap.Int("summary_tokens", c.estimate(res.Text)))
	return res.Text
}
