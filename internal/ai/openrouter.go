package ai

import "strings"

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openrouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// openrouter speaks the openai wire format; only the endpoint and the two
// attribution headers differ.
func openrouterHeaders(cfg *openrouterConfig) map[string]string {
	header := map[string]string{}
	if cfg.HTTPReferer != "" {
		header["HTTP-Referer"] = cfg.HTTPReferer
	}
	if cfg.XTitle != "" {
		header["X-Title"] = cfg.XTitle
	}
	return header
}

func createOpenRouterFactory(args interface{}) (IChatProvider, error) {
	cfg := &openrouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &openAIProvider{
		name:    "openrouter",
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: baseURL,
		header:  openrouterHeaders(cfg),
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
