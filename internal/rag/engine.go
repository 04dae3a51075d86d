package rag

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/model"
	"github.com/docsage/docsage/internal/vectorstore"
)

const (
	DefaultTopK = 5

	answerTemperature = 0.7
	answerMaxTokens   = 1000
)

// QueryParams is a fully validated, defaulted query. Validation happens at
// the boundary; the engine assumes sane values.
type QueryParams struct {
	Message          string
	TopK             int
	UseRAG           bool
	CompressPrompt   bool
	MaxSummaryTokens int
	History          []model.ChatMessage
}

// QueryResult is the engine's answer. Context is nil when no retrieved
// context was used.
type QueryResult struct {
	Answer     string
	Context    []model.ContextItem
	TokensUsed model.TokenUsage
}

type EventType string

const (
	EventContext EventType = "context"
	EventChunk   EventType = "chunk"
	EventDone    EventType = "done"
)

// Event is one frame of a streaming query. Context is emitted as soon as
// retrieval settles so a UI can show sources before the answer finishes;
// Chunk carries one text delta; Done repeats the full answer plus context.
type Event struct {
	Type       EventType           `json:"type"`
	Text       string              `json:"text,omitempty"`
	Answer     string              `json:"answer,omitempty"`
	Context    []model.ContextItem `json:"context,omitempty"`
	TokensUsed *model.TokenUsage   `json:"tokens_used,omitempty"`
}

// EmitFunc receives stream events in order. The engine passes deltas through
// directly, so consumer backpressure applies to the producing stream.
type EmitFunc func(Event) error

// Engine drives one query through retrieval, filtering, compression, prompt
// composition and generation. Retrieval failures degrade to general chat and
// compression failures degrade to raw context; only generation failures
// propagate, since there is no fallback answer source.
type Engine struct {
	embedder   ai.IEmbedder
	store      vectorstore.Store
	chat       ai.IChatModel
	compressor *Compressor
	threshold  float32
}

func NewEngine(embedder ai.IEmbedder, store vectorstore.Store, chat ai.IChatModel, compressor *Compressor, threshold float32) *Engine {
	if threshold == 0 {
		threshold = DefaultScoreThreshold
	}
	return &Engine{
		embedder:   embedder,
		store:      store,
		chat:       chat,
		compressor: compressor,
		threshold:  threshold,
	}
}

// retrieve runs embed+search+filter and never fails: any retrieval error is
// logged and reported as "no context" so the query proceeds in general mode.
func (e *Engine) retrieve(ctx context.Context, params *QueryParams) FilterResult {
	logger := logutil.GetLogger(ctx)
	queryVec, err := e.embedder.Embed(ctx, params.Message, ai.TaskTypeQuery)
	if err != nil {
		logger.Warn("query embedding failed, falling back to general chat", zap.Error(err))
		return FilterResult{}
	}
	topK := params.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	results, err := e.store.Search(ctx, queryVec, topK, nil)
	if err != nil {
		logger.Warn("vector search failed, falling back to general chat", zap.Error(err))
		return FilterResult{}
	}
	filtered := FilterByScore(results, e.threshold)
	logger.Debug("retrieval settled",
		zap.Int("results", len(results)),
		zap.Int("selected", len(filtered.Selected)),
		zap.Bool("use_context", filtered.UseContext),
	)
	return filtered
}

// compose turns the retrieval outcome into the final message list.
func (e *Engine) compose(ctx context.Context, params *QueryParams, filtered FilterResult) []ai.Message {
	if !filtered.UseContext {
		return buildMessages(generalSystemPrompt, params.History, params.Message)
	}
	contextText := BuildContextBlock(filtered.Selected)
	if params.CompressPrompt {
		contextText = e.compressor.Compress(ctx, contextText, params.Message, params.MaxSummaryTokens)
	}
	return buildMessages(ragSystemPrompt, params.History, buildRAGUserPrompt(contextText, params.Message))
}

// Query answers synchronously.
func (e *Engine) Query(ctx context.Context, params *QueryParams) (*QueryResult, error) {
	var filtered FilterResult
	if params.UseRAG {
		filtered = e.retrieve(ctx, params)
	}
	messages := e.compose(ctx, params, filtered)

	res, err := e.chat.Complete(ctx, &ai.CompletionRequest{
		Messages:    messages,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	out := &QueryResult{Answer: res.Text, TokensUsed: res.Usage}
	if filtered.UseContext {
		out.Context = contextItems(filtered.Selected)
	}
	return out, nil
}

// QueryStream runs the same pipeline but emits incremental events. The
// context event fires before generation starts, with an empty list when RAG
// found nothing, so consumers always know where retrieval landed.
func (e *Engine) QueryStream(ctx context.Context, params *QueryParams, emit EmitFunc) error {
	var filtered FilterResult
	if params.UseRAG {
		filtered = e.retrieve(ctx, params)
	}
	var items []model.ContextItem
	if filtered.UseContext {
		items = contextItems(filtered.Selected)
	}
	if err := emit(Event{Type: EventContext, Context: items}); err != nil {
		return err
	}

	messages := e.compose(ctx, params, filtered)
	res, err := e.chat.CompleteStream(ctx, &ai.CompletionRequest{
		Messages:    messages,
		Temperature: answerTemperature,
		MaxTokens:   answerMaxTokens,
	}, func(delta string) error {
		return emit(Event{Type: EventChunk, Text: delta})
	})
	if err != nil {
		return err
	}
	usage := res.Usage
	return emit(Event{
		Type:       EventDone,
		Answer:     res.Text,
		Context:    items,
		TokensUsed: &usage,
	})
}
