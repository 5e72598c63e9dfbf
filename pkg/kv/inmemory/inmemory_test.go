package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/kv/inmemory"
)

var _ = Describe("Store", func() {
	It("gets, sets and deletes", func() {
		ctx := context.Background()
		s := inmemory.NewStore()

		_, ok, err := s.Get(ctx, "prompts:BRAINSTORM")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(s.Set(ctx, "prompts:BRAINSTORM", "v1")).To(Succeed())
		Expect(s.Set(ctx, "prompts:BRAINSTORM", "v2")).To(Succeed())
		v, ok, err := s.Get(ctx, "prompts:BRAINSTORM")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("v2"))

		Expect(s.Delete(ctx, "prompts:BRAINSTORM")).To(Succeed())
		Expect(s.Delete(ctx, "missing")).To(Succeed())
		_, ok, _ = s.Get(ctx, "prompts:BRAINSTORM")
		Expect(ok).To(BeFalse())
	})
})
