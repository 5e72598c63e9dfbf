// Package storageutils builds a storage.Driver from configuration.
package storageutils

import (
	"context"
	"errors"
	"fmt"

	"github.com/papercomputeco/factory/pkg/storage"
	"github.com/papercomputeco/factory/pkg/storage/inmemory"
	"github.com/papercomputeco/factory/pkg/storage/postgres"
	"github.com/papercomputeco/factory/pkg/storage/sqlite"
)

type NewDriverOpts struct {
	ProviderType string
	SQLitePath   string
	PostgresDSN  string
}

func NewDriver(ctx context.Context, o *NewDriverOpts) (storage.Driver, error) {
	switch o.ProviderType {
	case "", "sqlite":
		if o.SQLitePath == "" {
			return nil, errors.New("sqlite storage requires a database path")
		}
		return sqlite.NewDriver(ctx, o.SQLitePath)
	case "postgres":
		if o.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires a DSN")
		}
		return postgres.NewDriver(ctx, o.PostgresDSN)
	case "memory", "inmemory":
		return inmemory.NewDriver(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", o.ProviderType)
	}
}
