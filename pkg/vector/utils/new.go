// Package vectorutils builds a vector.Driver from configuration.
package vectorutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/factory/pkg/vector"
	"github.com/papercomputeco/factory/pkg/vector/chroma"
	"github.com/papercomputeco/factory/pkg/vector/inmemory"
	"github.com/papercomputeco/factory/pkg/vector/pgvector"
	"github.com/papercomputeco/factory/pkg/vector/qdrant"
	"github.com/papercomputeco/factory/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// TargetURL is a URL for chroma and qdrant, a file path for sqlite and
	// a DSN for pgvector.
	TargetURL  string
	Collection string
	Dimensions uint
	Logger     *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite":
		return sqlitevec.NewDriver(ctx, sqlitevec.Config{
			DBPath:     o.TargetURL,
			Dimensions: o.Dimensions,
			Logger:     o.Logger,
		})
	case "chroma":
		return chroma.NewDriver(ctx, chroma.Config{
			URL:        o.TargetURL,
			Collection: o.Collection,
			MaxRetries: 5,
			Logger:     o.Logger,
		})
	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:     o.TargetURL,
			Collection: o.Collection,
			Dimensions: o.Dimensions,
			Logger:     o.Logger,
		})
	case "pgvector":
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.TargetURL,
			Table:      o.Collection,
			Dimensions: o.Dimensions,
			Logger:     o.Logger,
		})
	case "memory", "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
