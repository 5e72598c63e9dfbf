package vectorutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/vector/inmemory"
	"github.com/papercomputeco/factory/pkg/vector/sqlitevec"
	vectorutils "github.com/papercomputeco/factory/pkg/vector/utils"
)

var _ = Describe("NewVectorDriver", func() {
	ctx := context.Background()

	It("builds the in-memory driver", func() {
		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{ProviderType: "inmemory"})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
	})

	It("builds the sqlite-vec driver", func() {
		d, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
			ProviderType: "sqlite",
			TargetURL:    ":memory:",
			Dimensions:   8,
		})
		Expect(err).NotTo(HaveOccurred())
		defer d.Close()
		Expect(d).To(BeAssignableToTypeOf(&sqlitevec.Driver{}))
	})

	It("rejects unknown providers", func() {
		_, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{ProviderType: "faiss"})
		Expect(err).To(MatchError(ContainSubstring("unsupported vector store provider: faiss")))
	})
})
