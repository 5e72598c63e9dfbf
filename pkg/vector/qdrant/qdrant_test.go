package qdrant_test

import (
	"context"
	"os"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/vector"
	"github.com/papercomputeco/factory/pkg/vector/qdrant"
	"github.com/papercomputeco/factory/pkg/vector/vectortest"
)

var _ = vectortest.DescribeDriver("qdrant", func(ctx context.Context) vector.Driver {
	target := os.Getenv("FACTORY_TEST_QDRANT_TARGET")
	if target == "" {
		Skip("FACTORY_TEST_QDRANT_TARGET not set, skipping Qdrant tests")
	}

	driver, err := qdrant.NewDriver(ctx, qdrant.Config{
		Target:     target,
		Collection: "factory_test",
		Dimensions: vectortest.Dimensions,
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(driver.Delete(ctx, []string{"mem:a", "mem:b", "mem:c"})).To(Succeed())
	return driver
})

var _ = Describe("PointID", func() {
	It("maps ids onto stable UUIDs", func() {
		id := qdrant.PointID("mem:abc")
		Expect(id).To(Equal(qdrant.PointID("mem:abc")))
		Expect(id).NotTo(Equal(qdrant.PointID("mem:abd")))

		parsed, err := uuid.Parse(id)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Version()).To(Equal(uuid.Version(5)))
	})
})

var _ = Describe("NewDriver", func() {
	It("requires a target and dimensions", func() {
		_, err := qdrant.NewDriver(context.Background(), qdrant.Config{Dimensions: 4})
		Expect(err).To(MatchError(ContainSubstring("target is required")))

		_, err = qdrant.NewDriver(context.Background(), qdrant.Config{Target: "localhost:6334"})
		Expect(err).To(MatchError(ContainSubstring("dimensions cannot be 0")))
	})
})
