package rag

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsage/docsage/internal/ai"
	"github.com/docsage/docsage/internal/model"
	"github.com/docsage/docsage/internal/vectorstore"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeStore struct {
	results   []model.SearchResult
	searchErr error
	lastTopK  int
}

func (f *fakeStore) Upsert(ctx context.Context, records []model.VectorRecord) error { return nil }

func (f *fakeStore) Search(ctx context.Context, vector []float32, topK int, filter *vectorstore.Filter) ([]model.SearchResult, error) {
	f.lastTopK = topK
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeStore) DeleteByDocumentID(ctx context.Context, documentID string) error { return nil }

func (f *fakeStore) FetchDocumentChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	return nil, nil
}

func (f *fakeStore) ListDocumentIDs(ctx context.Context) ([]string, error) { return nil, nil }

func scoredResult(id string, score float32, text string) model.SearchResult {
	return model.SearchResult{
		ID:    id,
		Score: score,
		Metadata: model.Chunk{
			Text:     text,
			Filename: "doc.txt",
		},
	}
}

func testParams() *QueryParams {
	return &QueryParams{
		Message:          "what is docsage?",
		TopK:             5,
		UseRAG:           true,
		CompressPrompt:   false,
		MaxSummaryTokens: 500,
	}
}

func newTestEngine(embedder ai.IEmbedder, store vectorstore.Store, chat ai.IChatModel) *Engine {
	return NewEngine(embedder, store, chat, NewCompressor(chat, nil), 0)
}

func TestEngineQuery_WithContext(t *testing.T) {
	chat := &fakeChatModel{completeText: "the answer"}
	store := &fakeStore{results: []model.SearchResult{scoredResult("d_chunk_0", 0.9, "docsage indexes documents")}}
	e := newTestEngine(&fakeEmbedder{vec: []float32{0.1}}, store, chat)

	res, err := e.Query(context.Background(), testParams())
	require.NoError(t, err)
	require.Equal(t, "the answer", res.Answer)
	require.Len(t, res.Context, 1)
	require.Equal(t, "docsage indexes documents", res.Context[0].Text)
	require.Equal(t, 5, store.lastTopK)

	// prompt must carry the retrieved text and the rag system prompt
	require.Equal(t, ragSystemPrompt, chat.lastReq.Messages[0].Content)
	require.Contains(t, chat.lastReq.Messages[len(chat.lastReq.Messages)-1].Content, "docsage indexes documents")
	require.Equal(t, answerTemperature, chat.lastReq.Temperature)
	require.Equal(t, answerMaxTokens, chat.lastReq.MaxTokens)
}

func TestEngineQuery_RAGDisabled(t *testing.T) {
	chat := &fakeChatModel{completeText: "general answer"}
	store := &fakeStore{results: []model.SearchResult{scoredResult("d_chunk_0", 0.9, "ignored")}}
	e := newTestEngine(&fakeEmbedder{vec: []float32{0.1}}, store, chat)

	params := testParams()
	params.UseRAG = false
	res, err := e.Query(context.Background(), params)
	require.NoError(t, err)
	require.Nil(t, res.Context)
	require.Equal(t, generalSystemPrompt, chat.lastReq.Messages[0].Content)
	require.Zero(t, store.lastTopK)
}

func TestEngineQuery_EmbedFailureDegradesToGeneralChat(t *testing.T) {
	chat := &fakeChatModel{completeText: "general answer"}
	e := newTestEngine(&fakeEmbedder{err: fmt.Errorf("embed down")}, &fakeStore{}, chat)

	res, err := e.Query(context.Background(), testParams())
	require.NoError(t, err)
	require.Equal(t, "general answer", res.Answer)
	require.Nil(t, res.Context)
	require.Equal(t, generalSystemPrompt, chat.lastReq.Messages[0].Content)
}

func TestEngineQuery_SearchFailureDegradesToGeneralChat(t *testing.T) {
	chat := &fakeChatModel{completeText: "general answer"}
	store := &fakeStore{searchErr: fmt.Errorf("index down")}
	e := newTestEngine(&fakeEmbedder{vec: []float32{0.1}}, store, chat)

	res, err := e.Query(context.Background(), testParams())
	require.NoError(t, err)
	require.Nil(t, res.Context)
	require.Equal(t, generalSystemPrompt, chat.lastReq.Messages[0].Content)
}

func TestEngineQuery_CompletionErrorPropagates(t *testing.T) {
	provErr := &ai.ProviderError{Provider: "openai", Kind: ai.KindRateLimited, Message: "rate limited"}
	chat := &fakeChatModel{completeErr: provErr}
	e := newTestEngine(&fakeEmbedder{vec: []float32{0.1}}, &fakeStore{}, chat)

	_, err := e.Query(context.Background(), testParams())
	require.ErrorIs(t, err, provErr)
}

func TestEngineQueryStream_EventOrder(t *testing.T) {
	chat := &fakeChatModel{streamDeltas: []string{"hel", "lo"}}
	store := &fakeStore{results: []model.SearchResult{scoredResult("d_chunk_0", 0.8, "context text")}}
	e := newTestEngine(&fakeEmbedder{vec: []float32{0.1}}, store, chat)

	var events []Event
	err := e.QueryStream(context.Background(), testParams(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 4)
	require.Equal(t, EventContext, events[0].Type)
	require.Len(t, events[0].Context, 1)
	require.Equal(t, EventChunk, events[1].Type)
	require.Equal(t, "hel", events[1].Text)
	require.Equal(t, EventChunk, events[2].Type)
	require.Equal(t, "lo", events[2].Text)
	require.Equal(t, EventDone, events[3].Type)
	require.Equal(t, "hello", events[3].Answer)
	require.Len(t, events[3].Context, 1)
}

func TestEngineQueryStream_EmptyContextEventStillEmitted(t *testing.T) {
	chat := &fakeChatModel{streamDeltas: []string{"hi"}}
	store := &fakeStore{results: nil}
	e := newTestEngine(&fakeEmbedder{vec: []float32{0.1}}, store, chat)

	var events []Event
	err := e.QueryStream(context.Background(), testParams(), func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, EventContext, events[0].Type)
	require.Empty(t, events[0].Context)
}

func TestEngineQueryStream_EmitErrorStops(t *testing.T) {
	chat := &fakeChatModel{streamDeltas: []string{"a", "b", "c"}}
	e := newTestEngine(&fakeEmbedder{vec: []float32{0.1}}, &fakeStore{}, chat)

	sentinel := fmt.Errorf("client went away")
	count := 0
	err := e.QueryStream(context.Background(), testParams(), func(ev Event) error {
		count++
		if count == 2 {
			return sentinel
		}
		return nil
	})
	require.Error(t, err)
	require.Equal(t, 2, count)
}
