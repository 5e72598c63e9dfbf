package sqlitevec_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/vector"
	"github.com/papercomputeco/factory/pkg/vector/sqlitevec"
	"github.com/papercomputeco/factory/pkg/vector/vectortest"
)

var _ = vectortest.DescribeDriver("sqlitevec", func(ctx context.Context) vector.Driver {
	driver, err := sqlitevec.NewDriver(ctx, sqlitevec.Config{
		DBPath:     ":memory:",
		Dimensions: vectortest.Dimensions,
	})
	Expect(err).NotTo(HaveOccurred())
	return driver
})

var _ = Describe("NewDriver", func() {
	ctx := context.Background()

	It("should return an error when DBPath is empty", func() {
		_, err := sqlitevec.NewDriver(ctx, sqlitevec.Config{DBPath: ""})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("database path is required"))
	})

	It("should error when dimension not specified", func() {
		_, err := sqlitevec.NewDriver(ctx, sqlitevec.Config{DBPath: ":memory:"})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("dimensions cannot be 0"))
	})

	It("should reject embeddings of the wrong width", func() {
		driver, err := sqlitevec.NewDriver(ctx, sqlitevec.Config{DBPath: ":memory:", Dimensions: 4})
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		err = driver.Add(ctx, []vector.Document{{ID: "mem:a", Embedding: []float32{1, 0}}})
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))

		_, err = driver.Query(ctx, []float32{1, 0}, 3)
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
	})
})
