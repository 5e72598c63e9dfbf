package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/vector"
	"github.com/papercomputeco/factory/pkg/vector/inmemory"
	"github.com/papercomputeco/factory/pkg/vector/vectortest"
)

var _ = vectortest.DescribeDriver("inmemory", func(context.Context) vector.Driver {
	return inmemory.NewDriver()
})

var _ = Describe("Driver", func() {
	It("rejects embeddings of a different width", func() {
		ctx := context.Background()
		d := inmemory.NewDriver()
		Expect(d.Add(ctx, []vector.Document{{ID: "a", Embedding: []float32{1, 0}}})).To(Succeed())

		err := d.Add(ctx, []vector.Document{{ID: "b", Embedding: []float32{1, 0, 0}}})
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))

		_, err = d.Query(ctx, []float32{1}, 1)
		Expect(err).To(MatchError(vector.ErrDimensionMismatch))
	})

	It("scores zero vectors as zero", func() {
		Expect(inmemory.Cosine([]float32{0, 0}, []float32{1, 0})).To(BeZero())
		Expect(inmemory.Cosine([]float32{2, 0}, []float32{1, 0})).To(BeNumerically("~", 1.0, 1e-6))
	})
})
