// Package blobutils builds a blob.Store from configuration.
package blobutils

import (
	"fmt"

	"github.com/papercomputeco/factory/pkg/blob"
	"github.com/papercomputeco/factory/pkg/blob/filesystem"
	"github.com/papercomputeco/factory/pkg/blob/inmemory"
)

type NewStoreOpts struct {
	ProviderType string
	Root         string
}

func NewStore(o *NewStoreOpts) (blob.Store, error) {
	switch o.ProviderType {
	case "", "filesystem":
		return filesystem.NewStore(o.Root)
	case "memory", "inmemory":
		return inmemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unsupported blob provider: %s", o.ProviderType)
	}
}
