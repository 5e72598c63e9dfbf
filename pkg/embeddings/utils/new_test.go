package embeddingutils_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/embeddings/hash"
	"github.com/papercomputeco/factory/pkg/embeddings/ollama"
	embeddingutils "github.com/papercomputeco/factory/pkg/embeddings/utils"
)

var _ = Describe("NewEmbedder", func() {
	ctx := context.Background()

	It("builds each local embedder", func() {
		e, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "hash", Dimensions: 32})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&hash.Embedder{}))

		e, err = embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "ollama"})
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(BeAssignableToTypeOf(&ollama.Embedder{}))
	})

	It("rejects hosted embedders without keys", func() {
		_, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "openai"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := embeddingutils.NewEmbedder(ctx, &embeddingutils.NewEmbedderOpts{ProviderType: "word2vec"})
		Expect(err).To(MatchError(ContainSubstring("unsupported embedding provider")))
	})

	It("derives a model id", func() {
		Expect(embeddingutils.ModelID(&embeddingutils.NewEmbedderOpts{ProviderType: "hash"})).To(Equal(hash.ModelID))
		Expect(embeddingutils.ModelID(&embeddingutils.NewEmbedderOpts{ProviderType: "ollama"})).To(Equal("ollama:" + ollama.DefaultEmbeddingModel))
		Expect(embeddingutils.ModelID(&embeddingutils.NewEmbedderOpts{ProviderType: "openai", Model: "m"})).To(Equal("openai:m"))
	})
})
