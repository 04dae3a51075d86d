package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/docsage/docsage/internal/model"
	appErr "github.com/docsage/docsage/internal/pkg/errors"
)

const (
	chatSummaryKey    = "docsage:chats"
	chatMessagePrefix = "docsage:chat:"
)

// ChatRepo keeps conversations in Redis: one list of JSON messages per chat
// plus a single hash of summaries so listing all chats is one HGETALL.
type ChatRepo struct {
	client *redis.Client
}

func NewChatRepo(client *redis.Client) *ChatRepo {
	return &ChatRepo{client: client}
}

func messagesKey(chatID string) string {
	return chatMessagePrefix + chatID + ":messages"
}

func (r *ChatRepo) Create(ctx context.Context, title string) (*model.ChatSummary, error) {
	now := time.Now().Unix()
	summary := &model.ChatSummary{
		ID:    uuid.NewString(),
		Title: title,
		Ctime: now,
		Mtime: now,
	}
	if err := r.saveSummary(ctx, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *ChatRepo) saveSummary(ctx context.Context, summary *model.ChatSummary) error {
	blob, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return r.client.HSet(ctx, chatSummaryKey, summary.ID, blob).Err()
}

func (r *ChatRepo) GetSummary(ctx context.Context, chatID string) (*model.ChatSummary, error) {
	blob, err := r.client.HGet(ctx, chatSummaryKey, chatID).Bytes()
	if err == redis.Nil {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	summary := &model.ChatSummary{}
	if err := json.Unmarshal(blob, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (r *ChatRepo) ListSummaries(ctx context.Context) ([]*model.ChatSummary, error) {
	entries, err := r.client.HGetAll(ctx, chatSummaryKey).Result()
	if err != nil {
		return nil, err
	}
	summaries := make([]*model.ChatSummary, 0, len(entries))
	for _, blob := range entries {
		summary := &model.ChatSummary{}
		if err := json.Unmarshal([]byte(blob), summary); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// Append stores one message and refreshes the chat's summary in the same
// call. The summary update is not transactional with the push; a crash in
// between leaves the count stale by one, which the next append repairs.
func (r *ChatRepo) Append(ctx context.Context, chatID string, msg *model.ChatMessage) error {
	summary, err := r.GetSummary(ctx, chatID)
	if err != nil {
		return err
	}
	blob, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	count, err := r.client.RPush(ctx, messagesKey(chatID), blob).Result()
	if err != nil {
		return err
	}
	summary.MessageCount = int(count)
	summary.Mtime = time.Now().Unix()
	return r.saveSummary(ctx, summary)
}

func (r *ChatRepo) History(ctx context.Context, chatID string) ([]model.ChatMessage, error) {
	if _, err := r.GetSummary(ctx, chatID); err != nil {
		return nil, err
	}
	blobs, err := r.client.LRange(ctx, messagesKey(chatID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	messages := make([]model.ChatMessage, 0, len(blobs))
	for _, blob := range blobs {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(blob), &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *ChatRepo) Delete(ctx context.Context, chatID string) error {
	removed, err := r.client.HDel(ctx, chatSummaryKey, chatID).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return appErr.ErrNotFound
	}
	return r.client.Del(ctx, messagesKey(chatID)).Err()
}
