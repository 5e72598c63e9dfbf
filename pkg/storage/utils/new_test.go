package storageutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/storage/inmemory"
	"github.com/papercomputeco/factory/pkg/storage/sqlite"
	storageutils "github.com/papercomputeco/factory/pkg/storage/utils"
)

var _ = Describe("NewDriver", func() {
	ctx := context.Background()

	It("builds the in-memory driver", func() {
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "memory"})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("builds the sqlite driver", func() {
		d, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{
			ProviderType: "sqlite",
			SQLitePath:   ":memory:",
		})
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()
		Expect(d).To(BeAssignableToTypeOf(&sqlite.Driver{}))
	})

	It("requires a sqlite path", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "sqlite"})
		Expect(err).To(MatchError(ContainSubstring("database path")))
	})

	It("requires a postgres DSN", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "postgres"})
		Expect(err).To(MatchError(ContainSubstring("DSN")))
	})

	It("rejects unknown providers", func() {
		_, err := storageutils.NewDriver(ctx, &storageutils.NewDriverOpts{ProviderType: "mongo"})
		Expect(err).To(MatchError(ContainSubstring("unsupported storage provider: mongo")))
	})
})
