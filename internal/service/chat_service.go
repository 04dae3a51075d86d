package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docsage/docsage/internal/model"
	appErr "github.com/docsage/docsage/internal/pkg/errors"
	"github.com/docsage/docsage/internal/rag"
	"github.com/docsage/docsage/internal/repo"
)

const (
	TopKMin = 1
	TopKMax = 20

	MaxSummaryTokensMin = 100
	MaxSummaryTokensMax = 2000

	chatTitleLimit = 60
)

// ChatRequest is the user-facing query shape. Optional fields are pointers
// so "absent" and "zero" stay distinguishable: an absent field takes its
// default while an explicit out-of-range value is rejected.
type ChatRequest struct {
	ChatID           string `json:"chat_id"`
	Message          string `json:"message"`
	TopK             *int   `json:"top_k"`
	UseRAG           *bool  `json:"use_rag"`
	CompressPrompt   *bool  `json:"compress_prompt"`
	MaxSummaryTokens *int   `json:"max_summary_tokens"`
}

type ChatResponse struct {
	ChatID     string              `json:"chat_id"`
	Answer     string              `json:"answer"`
	Context    []model.ContextItem `json:"context,omitempty"`
	TokensUsed model.TokenUsage    `json:"tokens_used"`
}

// ChatService validates queries, keeps conversation state in Redis and
// drives the query engine.
type ChatService struct {
	engine *rag.Engine
	chats  *repo.ChatRepo
}

func NewChatService(engine *rag.Engine, chats *repo.ChatRepo) *ChatService {
	return &ChatService{engine: engine, chats: chats}
}

// validate rejects out-of-range values outright instead of clamping them:
// a silently clamped top_k would hide a caller bug.
func (s *ChatService) validate(req *ChatRequest) (*rag.QueryParams, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", appErr.ErrInvalid)
	}
	topK := rag.DefaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	if topK < TopKMin || topK > TopKMax {
		return nil, fmt.Errorf("%w: top_k must be between %d and %d", appErr.ErrInvalid, TopKMin, TopKMax)
	}
	maxSummaryTokens := rag.DefaultMaxSummaryTokens
	if req.MaxSummaryTokens != nil {
		maxSummaryTokens = *req.MaxSummaryTokens
	}
	if maxSummaryTokens < MaxSummaryTokensMin || maxSummaryTokens > MaxSummaryTokensMax {
		return nil, fmt.Errorf("%w: max_summary_tokens must be between %d and %d",
			appErr.ErrInvalid, MaxSummaryTokensMin, MaxSummaryTokensMax)
	}
	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}
	compress := true
	if req.CompressPrompt != nil {
		compress = *req.CompressPrompt
	}
	return &rag.QueryParams{
		Message:          message,
		TopK:             topK,
		UseRAG:           useRAG,
		CompressPrompt:   compress,
		MaxSummaryTokens: maxSummaryTokens,
	}, nil
}

// resolveChat loads the target conversation, creating one titled after the
// first message when no chat id was supplied.
func (s *ChatService) resolveChat(ctx context.Context, req *ChatRequest, params *rag.QueryParams) (string, error) {
	if req.ChatID == "" {
		summary, err := s.chats.Create(ctx, chatTitle(params.Message))
		if err != nil {
			return "", err
		}
		return summary.ID, nil
	}
	history, err := s.chats.History(ctx, req.ChatID)
	if err != nil {
		return "", err
	}
	params.History = history
	return req.ChatID, nil
}

// chatTitle truncates on rune boundaries so a multi-byte character never
// gets split at the cutoff.
func chatTitle(message string) string {
	title := []rune(strings.TrimSpace(message))
	if len(title) > chatTitleLimit {
		title = title[:chatTitleLimit]
	}
	return string(title)
}

func (s *ChatService) appendTurn(ctx context.Context, chatID string, params *rag.QueryParams, result *rag.QueryResult) error {
	now := time.Now().Unix()
	userMsg := &model.ChatMessage{Role: model.RoleUser, Content: params.Message, Timestamp: now}
	if err := s.chats.Append(ctx, chatID, userMsg); err != nil {
		return err
	}
	assistantMsg := &model.ChatMessage{
		Role:      model.RoleAssistant,
		Content:   result.Answer,
		Timestamp: time.Now().Unix(),
		Context:   result.Context,
	}
	if result.TokensUsed.Total > 0 {
		usage := result.TokensUsed
		assistantMsg.TokensUsed = &usage
	}
	return s.chats.Append(ctx, chatID, assistantMsg)
}

func (s *ChatService) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	params, err := s.validate(req)
	if err != nil {
		return nil, err
	}
	chatID, err := s.resolveChat(ctx, req, params)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Query(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := s.appendTurn(ctx, chatID, params, result); err != nil {
		return nil, err
	}
	return &ChatResponse{
		ChatID:     chatID,
		Answer:     result.Answer,
		Context:    result.Context,
		TokensUsed: result.TokensUsed,
	}, nil
}

// StreamEvent wraps engine events with the chatId frame emitted first.
type StreamEvent struct {
	Type   string     `json:"type"`
	ChatID string     `json:"chat_id,omitempty"`
	Event  *rag.Event `json:"-"`
}

// ChatStream validates and resolves the chat, emits a chatId frame, then
// relays engine events. The full turn is persisted once the stream
// completes; a failed stream stores nothing.
func (s *ChatService) ChatStream(ctx context.Context, req *ChatRequest, emit func(StreamEvent) error) error {
	params, err := s.validate(req)
	if err != nil {
		return err
	}
	chatID, err := s.resolveChat(ctx, req, params)
	if err != nil {
		return err
	}
	if err := emit(StreamEvent{Type: "chatId", ChatID: chatID}); err != nil {
		return err
	}
	var final *rag.QueryResult
	err = s.engine.QueryStream(ctx, params, func(ev rag.Event) error {
		if ev.Type == rag.EventDone {
			final = &rag.QueryResult{Answer: ev.Answer, Context: ev.Context}
			if ev.TokensUsed != nil {
				final.TokensUsed = *ev.TokensUsed
			}
		}
		return emit(StreamEvent{Type: string(ev.Type), Event: &ev})
	})
	if err != nil {
		return err
	}
	if final != nil {
		return s.appendTurn(ctx, chatID, params, final)
	}
	return nil
}

func (s *ChatService) ListChats(ctx context.Context) ([]*model.ChatSummary, error) {
	summaries, err := s.chats.ListSummaries(ctx)
	if err != nil {
		return nil, err
	}
	if summaries == nil {
		summaries = []*model.ChatSummary{}
	}
	return summaries, nil
}

type ChatDetail struct {
	Summary  *model.ChatSummary  `json:"summary"`
	Messages []model.ChatMessage `json:"messages"`
}

func (s *ChatService) GetChat(ctx context.Context, chatID string) (*ChatDetail, error) {
	summary, err := s.chats.GetSummary(ctx, chatID)
	if err != nil {
		return nil, err
	}
	messages, err := s.chats.History(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &ChatDetail{Summary: summary, Messages: messages}, nil
}

func (s *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	return s.chats.Delete(ctx, chatID)
}
