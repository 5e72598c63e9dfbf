// Package anthropic implements the Anthropic Messages API provider.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/factory/pkg/provider"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-sonnet-4-20250514"
	APIVersion     = "2023-06-01"

	maxTokens = 4096
)

// Config configures the Anthropic provider.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Provider struct {
	apiKey  string
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func New(cfg Config) *Provider {
	p := &Provider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		timeout: provider.TimeoutFor(provider.Anthropic, cfg.Timeout),
		client:  cfg.HTTPClient,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if p.model == "" {
		p.model = DefaultModel
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	return p
}

func (p *Provider) Name() provider.Name { return provider.Anthropic }

func (p *Provider) IsConfigured() bool { return p.apiKey != "" }

func (p *Provider) Generate(ctx context.Context, prompt string) provider.Result {
	if !p.IsConfigured() {
		return provider.NotConfigured(provider.Anthropic)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := provider.PostJSON(callCtx, p.client, p.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": APIVersion,
	}, messagesRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		Temperature: provider.Temperature,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return provider.Failure(provider.Anthropic, ctx, callCtx, err)
	}

	var out messagesResponse
	_ = json.Unmarshal(body, &out)

	parts := make([]string, 0, len(out.Content))
	for _, block := range out.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		text = string(body)
	}
	return provider.OK(provider.Anthropic, text, body)
}

var _ provider.Provider = (*Provider)(nil)
