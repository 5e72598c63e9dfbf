// Package gemini implements the Gemini provider with google.golang.org/genai.
package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/papercomputeco/factory/pkg/provider"
)

const (
	DefaultModel = "gemini-2.0-flash"

	maxOutputTokens = 4096
)

// Config configures the Gemini provider. BaseURL overrides the API host,
// which tests point at an httptest server.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Provider struct {
	client  *genai.Client
	initErr error
	model   string
	timeout time.Duration
}

// New creates the provider. Client construction errors surface from
// Generate as error results.
func New(cfg Config) *Provider {
	p := &Provider{
		model:   cfg.Model,
		timeout: provider.TimeoutFor(provider.Gemini, cfg.Timeout),
	}
	if p.model == "" {
		p.model = DefaultModel
	}
	if cfg.APIKey == "" {
		return p
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(cfg.BaseURL, "/") + "/"}
	}
	p.client, p.initErr = genai.NewClient(context.Background(), cc)
	return p
}

func (p *Provider) Name() provider.Name { return provider.Gemini }

func (p *Provider) IsConfigured() bool { return p.client != nil || p.initErr != nil }

func (p *Provider) Generate(ctx context.Context, prompt string) provider.Result {
	if !p.IsConfigured() {
		return provider.NotConfigured(provider.Gemini)
	}
	if p.initErr != nil {
		return provider.Errored(provider.Gemini, p.initErr.Error(), nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Models.GenerateContent(callCtx, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](provider.Temperature),
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		return provider.Failure(provider.Gemini, ctx, callCtx, err)
	}

	raw, _ := json.Marshal(resp)
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		text = string(raw)
	}
	return provider.OK(provider.Gemini, text, raw)
}

var _ provider.Provider = (*Provider)(nil)
