// Package gemini implements embeddings.Embedder with the genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/papercomputeco/factory/pkg/embeddings"
	"github.com/papercomputeco/factory/pkg/vector"
)

// DefaultEmbeddingModel is used when no model is configured.
const DefaultEmbeddingModel = "gemini-embedding-001"

// EmbedderConfig holds configuration for the Gemini embedder.
type EmbedderConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions uint
	HTTPClient *http.Client
}

// Embedder calls Models.EmbedContent.
type Embedder struct {
	client     *genai.Client
	model      string
	dimensions uint
}

// NewEmbedder requires an API key.
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini embedder requires GEMINI_API_KEY")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(cfg.BaseURL, "/") + "/"}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Embedder{client: client, model: model, dimensions: cfg.Dimensions}, nil
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var cfg *genai.EmbedContentConfig
	if e.dimensions > 0 {
		cfg = &genai.EmbedContentConfig{OutputDimensionality: genai.Ptr(int32(e.dimensions))}
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", vector.ErrEmbedding, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}
	return resp.Embeddings[0].Values, nil
}

func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
