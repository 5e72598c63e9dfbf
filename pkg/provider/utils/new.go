// Package providerutils builds a provider.Registry from configuration.
package providerutils

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/factory/pkg/config"
	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/provider/anthropic"
	"github.com/papercomputeco/factory/pkg/provider/gemini"
	"github.com/papercomputeco/factory/pkg/provider/ollama"
	"github.com/papercomputeco/factory/pkg/provider/openai"
)

type NewRegistryOpts struct {
	Config config.ProvidersConfig

	// Keys maps provider name to API key, as returned by
	// credentials.Manager.Resolve.
	Keys map[string]string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// NewRegistry registers all six providers. Providers without a key are
// registered unconfigured so they still report NOT_CONFIGURED results.
func NewRegistry(o *NewRegistryOpts) (*provider.Registry, error) {
	timeouts := make(map[provider.Name]time.Duration, len(o.Config.Timeouts))
	for name, raw := range o.Config.Timeouts {
		n, err := provider.ParseName(name)
		if err != nil {
			return nil, fmt.Errorf("providers.timeouts: %w", err)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("providers.timeouts.%s: %w", name, err)
		}
		timeouts[n] = d
	}

	baseURL := func(n provider.Name) string {
		return o.Config.BaseURLs[string(n)]
	}
	key := func(n provider.Name) string {
		return o.Keys[string(n)]
	}

	local := o.Config.LocalTarget
	if u := baseURL(provider.Local); u != "" {
		local = u
	}

	return provider.NewRegistry(
		ollama.New(ollama.Config{
			BaseURL:       local,
			Model:         o.Config.LocalModel,
			FallbackModel: o.Config.LocalFallbackModel,
			Timeout:       timeouts[provider.Local],
			HTTPClient:    o.HTTPClient,
			Logger:        o.Logger,
		}),
		anthropic.New(anthropic.Config{
			APIKey:     key(provider.Anthropic),
			BaseURL:    baseURL(provider.Anthropic),
			Timeout:    timeouts[provider.Anthropic],
			HTTPClient: o.HTTPClient,
		}),
		openai.New(openai.Config{
			Endpoint:   openai.OpenAIEndpoint,
			APIKey:     key(provider.OpenAI),
			BaseURL:    baseURL(provider.OpenAI),
			Timeout:    timeouts[provider.OpenAI],
			HTTPClient: o.HTTPClient,
		}),
		openai.New(openai.Config{
			Endpoint:   openai.GrokEndpoint,
			APIKey:     key(provider.Grok),
			BaseURL:    baseURL(provider.Grok),
			Timeout:    timeouts[provider.Grok],
			HTTPClient: o.HTTPClient,
		}),
		openai.New(openai.Config{
			Endpoint:   openai.OpenRouterEndpoint,
			APIKey:     key(provider.OpenRouter),
			BaseURL:    baseURL(provider.OpenRouter),
			Timeout:    timeouts[provider.OpenRouter],
			HTTPClient: o.HTTPClient,
		}),
		gemini.New(gemini.Config{
			APIKey:     key(provider.Gemini),
			BaseURL:    baseURL(provider.Gemini),
			Timeout:    timeouts[provider.Gemini],
			HTTPClient: o.HTTPClient,
		}),
	), nil
}
