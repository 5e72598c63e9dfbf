// Package embeddingutils builds an embeddings.Embedder from configuration.
package embeddingutils

import (
	"context"
	"fmt"
	"net/http"

	"github.com/papercomputeco/factory/pkg/embeddings"
	"github.com/papercomputeco/factory/pkg/embeddings/gemini"
	"github.com/papercomputeco/factory/pkg/embeddings/hash"
	"github.com/papercomputeco/factory/pkg/embeddings/ollama"
	"github.com/papercomputeco/factory/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	Dimensions   uint

	// APIKey is used by the hosted embedders.
	APIKey     string
	HTTPClient *http.Client
}

func NewEmbedder(ctx context.Context, o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			HTTPClient: o.HTTPClient,
		})
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			BaseURL:    o.TargetURL,
			APIKey:     o.APIKey,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			HTTPClient: o.HTTPClient,
		})
	case "gemini":
		return gemini.NewEmbedder(ctx, gemini.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
			HTTPClient: o.HTTPClient,
		})
	case "hash":
		return hash.NewEmbedder(o.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}

// ModelID is the identifier recorded in memory pointers for the embedder
// built from o.
func ModelID(o *NewEmbedderOpts) string {
	if o.ProviderType == "hash" {
		return hash.ModelID
	}
	model := o.Model
	if model == "" {
		switch o.ProviderType {
		case "ollama":
			model = ollama.DefaultEmbeddingModel
		case "openai":
			model = openai.DefaultEmbeddingModel
		case "gemini":
			model = gemini.DefaultEmbeddingModel
		}
	}
	return o.ProviderType + ":" + model
}
