// Package openai implements embeddings.Embedder over the OpenAI compatible
// /v1/embeddings endpoint.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/factory/pkg/embeddings"
	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/vector"
)

const (
	DefaultBaseURL        = "https://api.openai.com"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	BaseURL string
	APIKey  string
	Model   string

	// Dimensions requests a shortened embedding when non-zero.
	Dimensions uint

	HTTPClient *http.Client
}

// Embedder calls the embeddings endpoint.
type Embedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions uint
	httpClient *http.Client
}

type embedRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions uint   `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// NewEmbedder requires an API key.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder requires OPENAI_API_KEY")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &Embedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: cfg.Dimensions,
		httpClient: client,
	}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := provider.PostJSON(ctx, e.httpClient, e.baseURL+"/v1/embeddings",
		map[string]string{"Authorization": "Bearer " + e.apiKey},
		embedRequest{Model: e.model, Input: text, Dimensions: e.dimensions},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %w", vector.ErrEmbedding, err)
	}

	var resp embedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", vector.ErrEmbedding, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}
	return resp.Data[0].Embedding, nil
}

func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
