package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/embeddings/openai"
	"github.com/papercomputeco/factory/pkg/vector"
)

var _ = Describe("Embedder", func() {
	It("requires an API key", func() {
		_, err := openai.NewEmbedder(openai.EmbedderConfig{})
		Expect(err).To(MatchError(ContainSubstring("OPENAI_API_KEY")))
	})

	It("sends the bearer token and requested dimensions", func() {
		var (
			auth string
			got  map[string]any
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/embeddings"))
			auth = r.Header.Get("Authorization")
			_ = json.NewDecoder(r.Body).Decode(&got)
			_, _ = w.Write([]byte(`{"data":[{"embedding":[1,0]}]}`))
		}))
		defer srv.Close()

		e, err := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: srv.URL, APIKey: "sk-test", Dimensions: 2})
		Expect(err).NotTo(HaveOccurred())

		emb, err := e.Embed(context.Background(), "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(emb).To(Equal([]float32{1, 0}))
		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(got).To(HaveKeyWithValue("model", openai.DefaultEmbeddingModel))
		Expect(got).To(HaveKeyWithValue("dimensions", BeNumerically("==", 2)))
	})

	It("surfaces the upstream error message", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
		}))
		defer srv.Close()

		e, _ := openai.NewEmbedder(openai.EmbedderConfig{BaseURL: srv.URL, APIKey: "bad"})
		_, err := e.Embed(context.Background(), "hello")
		Expect(err).To(MatchError(vector.ErrEmbedding))
		Expect(err.Error()).To(ContainSubstring("Incorrect API key provided"))
	})
})
