package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/docsage/docsage/internal/model"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) client(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func geminiContents(req *CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	var contents []*genai.Content
	for _, msg := range req.Messages {
		switch msg.Role {
		case MsgRoleSystem:
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: msg.Content}},
			}
		case MsgRoleAssistant:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		default:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}
	return contents, config
}

func geminiUsage(md *genai.GenerateContentResponseUsageMetadata) model.TokenUsage {
	if md == nil {
		return model.TokenUsage{}
	}
	return model.TokenUsage{
		Prompt:     int(md.PromptTokenCount),
		Completion: int(md.CandidatesTokenCount),
		Total:      int(md.TotalTokenCount),
	}
}

func (p *geminiProvider) Complete(ctx context.Context, modelName string, req *CompletionRequest) (*CompletionResult, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	contents, config := geminiContents(req)
	resp, err := client.Models.GenerateContent(ctx, modelName, contents, config)
	if err != nil {
		return nil, classifyGeminiErr(err)
	}
	return &CompletionResult{
		Text:  strings.TrimSpace(resp.Text()),
		Usage: geminiUsage(resp.UsageMetadata),
	}, nil
}

func (p *geminiProvider) CompleteStream(ctx context.Context, modelName string, req *CompletionRequest, fn StreamFunc) (*CompletionResult, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	contents, config := geminiContents(req)
	var full strings.Builder
	var usage model.TokenUsage
	for resp, err := range client.Models.GenerateContentStream(ctx, modelName, contents, config) {
		if err != nil {
			return nil, classifyGeminiErr(err)
		}
		if resp.UsageMetadata != nil {
			usage = geminiUsage(resp.UsageMetadata)
		}
		delta := resp.Text()
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if fn != nil {
			if err := fn(delta); err != nil {
				return nil, err
			}
		}
	}
	return &CompletionResult{Text: strings.TrimSpace(full.String()), Usage: usage}, nil
}

type geminiEmbedProvider struct {
	geminiProvider
}

func (p *geminiEmbedProvider) Embed(ctx context.Context, modelName string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: taskType}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		modelName,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, classifyGeminiErr(err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return resp.Embeddings[0].Values, nil
}

func classifyGeminiErr(err error) error {
	var apiErr genai.APIError
	if ok := asGenaiAPIError(err, &apiErr); ok {
		return classifyStatus("gemini", apiErr.Code, apiErr.Message)
	}
	return classifyTransport("gemini", err)
}

func asGenaiAPIError(err error, dst *genai.APIError) bool {
	if apiErr, ok := err.(genai.APIError); ok {
		*dst = apiErr
		return true
	}
	if apiErr, ok := err.(*genai.APIError); ok && apiErr != nil {
		*dst = *apiErr
		return true
	}
	return false
}

func createGeminiFactory(args interface{}) (IChatProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}, nil
}

func createGeminiEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiEmbedProvider{geminiProvider{apiKey: strings.TrimSpace(cfg.APIKey)}}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
	RegisterEmbed("gemini", createGeminiEmbedFactory)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
