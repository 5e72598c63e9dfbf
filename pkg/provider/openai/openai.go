// Package openai implements providers that speak the OpenAI chat
// completions protocol: OpenAI itself, xAI Grok and OpenRouter.
package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/factory/pkg/provider"
)

// Endpoint describes one chat-completions compatible backend.
type Endpoint struct {
	Name      provider.Name
	BaseURL   string
	Path      string
	Model     string
	MaxTokens int
	Headers   map[string]string
}

// Default endpoints.
var (
	OpenAIEndpoint = Endpoint{
		Name:      provider.OpenAI,
		BaseURL:   "https://api.openai.com",
		Path:      "/v1/chat/completions",
		Model:     "gpt-4o",
		MaxTokens: 2048,
	}

	GrokEndpoint = Endpoint{
		Name:      provider.Grok,
		BaseURL:   "https://api.x.ai",
		Path:      "/v1/chat/completions",
		Model:     "grok-3",
		MaxTokens: 4096,
	}

	OpenRouterEndpoint = Endpoint{
		Name:      provider.OpenRouter,
		BaseURL:   "https://openrouter.ai",
		Path:      "/api/v1/chat/completions",
		Model:     "anthropic/claude-sonnet-4",
		MaxTokens: 32768,
		Headers: map[string]string{
			"HTTP-Referer": "https://github.com/papercomputeco/factory",
			"X-Title":      "Project Factory",
		},
	}
)

// Config configures a chat-completions provider.
type Config struct {
	Endpoint Endpoint
	APIKey   string

	// BaseURL and Model override the endpoint defaults when set.
	BaseURL string
	Model   string

	Timeout    time.Duration
	HTTPClient *http.Client
}

type Provider struct {
	endpoint Endpoint
	apiKey   string
	timeout  time.Duration
	client   *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func New(cfg Config) *Provider {
	ep := cfg.Endpoint
	if cfg.BaseURL != "" {
		ep.BaseURL = cfg.BaseURL
	}
	if cfg.Model != "" {
		ep.Model = cfg.Model
	}
	ep.BaseURL = strings.TrimRight(ep.BaseURL, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Provider{
		endpoint: ep,
		apiKey:   cfg.APIKey,
		timeout:  provider.TimeoutFor(ep.Name, cfg.Timeout),
		client:   client,
	}
}

func (p *Provider) Name() provider.Name { return p.endpoint.Name }

func (p *Provider) IsConfigured() bool { return p.apiKey != "" }

func (p *Provider) Generate(ctx context.Context, prompt string) provider.Result {
	name := p.endpoint.Name
	if !p.IsConfigured() {
		return provider.NotConfigured(name)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	headers := map[string]string{"Authorization": "Bearer " + p.apiKey}
	for k, v := range p.endpoint.Headers {
		headers[k] = v
	}

	body, err := provider.PostJSON(callCtx, p.client, p.endpoint.BaseURL+p.endpoint.Path, headers, chatRequest{
		Model:       p.endpoint.Model,
		MaxTokens:   p.endpoint.MaxTokens,
		Temperature: provider.Temperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return provider.Failure(name, ctx, callCtx, err)
	}

	var out chatResponse
	_ = json.Unmarshal(body, &out)

	text := ""
	if len(out.Choices) > 0 {
		text = out.Choices[0].Message.Content
	}
	if text == "" {
		text = string(body)
	}
	return provider.OK(name, text, body)
}

var _ provider.Provider = (*Provider)(nil)
