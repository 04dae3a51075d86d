package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/docsage/docsage/internal/model"
)

const (
	TaskTypeDocument = "RETRIEVAL_DOCUMENT"
	TaskTypeQuery    = "RETRIEVAL_QUERY"
)

const (
	MsgRoleSystem    = "system"
	MsgRoleUser      = "user"
	MsgRoleAssistant = "assistant"
)

// Message is one role/content turn sent to a completion provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type CompletionRequest struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type CompletionResult struct {
	Text  string
	Usage model.TokenUsage
}

// StreamFunc receives each incremental text fragment. Returning an error
// aborts the stream; providers pass fragments through directly and never
// buffer past a stalled consumer.
type StreamFunc func(delta string) error

type IChatProvider interface {
	Name() string
	Complete(ctx context.Context, modelName string, req *CompletionRequest) (*CompletionResult, error)
	CompleteStream(ctx context.Context, modelName string, req *CompletionRequest, fn StreamFunc) (*CompletionResult, error)
}

type IEmbedProvider interface {
	Name() string
	Embed(ctx context.Context, modelName string, text string, taskType string) ([]float32, error)
}

// IChatModel is an IChatProvider bound to one model name.
type IChatModel interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error)
	CompleteStream(ctx context.Context, req *CompletionRequest, fn StreamFunc) (*CompletionResult, error)
	ModelName() string
}

// IEmbedder is an IEmbedProvider bound to one model name.
type IEmbedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

type chatModel struct {
	provider IChatProvider
	model    string
}

func NewChatModel(p IChatProvider, modelName string) IChatModel {
	return &chatModel{provider: p, model: modelName}
}

func (m *chatModel) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	return m.provider.Complete(ctx, m.model, req)
}

func (m *chatModel) CompleteStream(ctx context.Context, req *CompletionRequest, fn StreamFunc) (*CompletionResult, error) {
	return m.provider.CompleteStream(ctx, m.model, req, fn)
}

func (m *chatModel) ModelName() string {
	return m.model
}

type embedder struct {
	provider IEmbedProvider
	model    string
}

func NewEmbedder(p IEmbedProvider, modelName string) IEmbedder {
	return &embedder{provider: p, model: modelName}
}

func (e *embedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return e.provider.Embed(ctx, e.model, text, taskType)
}

func (e *embedder) ModelName() string {
	return e.model
}

type ChatFactory func(args interface{}) (IChatProvider, error)

type EmbedFactory func(args interface{}) (IEmbedProvider, error)

var (
	chatRegistry  = map[string]ChatFactory{}
	embedRegistry = map[string]EmbedFactory{}
)

func Register(name string, factory ChatFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	chatRegistry[key] = factory
}

func RegisterEmbed(name string, factory EmbedFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	embedRegistry[key] = factory
}

func NewChatProvider(name string, args interface{}) (IChatProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := chatRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func NewEmbedProvider(name string, args interface{}) (IEmbedProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.embed_provider is required")
	}
	factory := embedRegistry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai embed provider: %s", name)
	}
	return factory(args)
}
