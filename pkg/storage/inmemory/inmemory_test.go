package inmemory_test

import (
	"context"

	"github.com/papercomputeco/factory/pkg/storage"
	"github.com/papercomputeco/factory/pkg/storage/inmemory"
	"github.com/papercomputeco/factory/pkg/storage/storagetest"
)

var _ = storagetest.DescribeDriver("inmemory", func(context.Context) storage.Driver {
	return inmemory.NewDriver()
})
