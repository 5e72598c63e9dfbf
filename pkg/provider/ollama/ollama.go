// Package ollama implements the always-configured local provider on top of
// Ollama's /api/generate endpoint.
package ollama

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/utils"
)

const (
	DefaultBaseURL       = "http://localhost:11434"
	DefaultModel         = "llama3.1:70b"
	DefaultFallbackModel = "llama3.1:8b"

	numPredict         = 8192
	fallbackNumPredict = 2048

	// fallbackPromptRunes caps the prompt sent to the smaller model.
	fallbackPromptRunes = 6000
)

// Config configures the local provider.
type Config struct {
	BaseURL       string
	Model         string
	FallbackModel string

	// Timeout applies to each attempt. Zero uses the provider default.
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Provider calls a preferred model and, on failure, a smaller fallback.
type Provider struct {
	baseURL       string
	model         string
	fallbackModel string
	timeout       time.Duration
	client        *http.Client
	logger        *slog.Logger
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// New creates the local provider.
func New(cfg Config) *Provider {
	p := &Provider{
		baseURL:       cfg.BaseURL,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		timeout:       provider.TimeoutFor(provider.Local, cfg.Timeout),
		client:        cfg.HTTPClient,
		logger:        cfg.Logger,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultBaseURL
	}
	if p.model == "" {
		p.model = DefaultModel
	}
	if p.fallbackModel == "" {
		p.fallbackModel = DefaultFallbackModel
	}
	if p.client == nil {
		p.client = &http.Client{}
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	return p
}

func (p *Provider) Name() provider.Name { return provider.Local }

// IsConfigured is always true: the local model needs no credentials.
func (p *Provider) IsConfigured() bool { return true }

func (p *Provider) Generate(ctx context.Context, prompt string) provider.Result {
	res := p.attempt(ctx, p.model, prompt, numPredict)
	if res.Outcome == provider.OutcomeOK {
		return res
	}

	p.logger.Warn("local model failed, retrying with fallback",
		"model", p.model,
		"fallback", p.fallbackModel,
		"reason", res.Text,
	)

	res = p.attempt(ctx, p.fallbackModel, utils.Head(prompt, fallbackPromptRunes), fallbackNumPredict)
	if res.Outcome == provider.OutcomeTimeout {
		return provider.Errored(provider.Local, "fallback model timed out", nil)
	}
	return res
}

func (p *Provider) attempt(ctx context.Context, model, prompt string, maxTokens int) provider.Result {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	body, err := provider.PostJSON(callCtx, p.client, p.baseURL+"/api/generate", nil, generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature: provider.Temperature,
			NumPredict:  maxTokens,
		},
	})
	if err != nil {
		return provider.Failure(provider.Local, ctx, callCtx, err)
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Response == "" {
		return provider.OK(provider.Local, string(body), body)
	}
	return provider.OK(provider.Local, out.Response, body)
}

var _ provider.Provider = (*Provider)(nil)
