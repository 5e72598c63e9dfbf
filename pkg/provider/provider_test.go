package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/provider"
)

var _ = Describe("Name", func() {
	It("parses known names case-insensitively", func() {
		n, err := provider.ParseName(" OpenRouter ")
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(provider.OpenRouter))
	})

	It("rejects unknown names", func() {
		_, err := provider.ParseName("workers_ai")
		Expect(err).To(HaveOccurred())
		Expect(provider.Name("bogus").Valid()).To(BeFalse())
	})

	It("drops unknown names from lists", func() {
		Expect(provider.ParseNames([]string{"local", "nope", "grok"})).To(Equal([]provider.Name{provider.Local, provider.Grok}))
	})
})

var _ = Describe("Outcome", func() {
	It("marshals as a string", func() {
		data, err := json.Marshal(provider.TimedOut(provider.OpenAI))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"outcome":"timeout"`))

		var r provider.Result
		Expect(json.Unmarshal(data, &r)).To(Succeed())
		Expect(r.Outcome).To(Equal(provider.OutcomeTimeout))
	})

	It("only fails over on error or timeout", func() {
		Expect(provider.OutcomeError.Failed()).To(BeTrue())
		Expect(provider.OutcomeTimeout.Failed()).To(BeTrue())
		Expect(provider.OutcomeOK.Failed()).To(BeFalse())
		Expect(provider.OutcomeNotConfigured.Failed()).To(BeFalse())
	})
})

var _ = Describe("Sentinel results", func() {
	It("formats each outcome with the upper-case provider name", func() {
		Expect(provider.NotConfigured(provider.Grok).Text).To(Equal("GROK_NOT_CONFIGURED"))
		Expect(provider.Errored(provider.Anthropic, "boom", nil).Text).To(Equal("ANTHROPIC_ERROR: boom"))
		Expect(provider.TimedOut(provider.OpenRouter).Text).To(Equal("OPENROUTER_TIMEOUT: request took too long"))
	})

	It("keeps raw only when it is valid JSON", func() {
		Expect(provider.OK(provider.Local, "x", []byte(`{"a":1}`)).Raw).To(MatchJSON(`{"a":1}`))
		Expect(provider.OK(provider.Local, "x", []byte(`not json`)).Raw).To(BeNil())
	})
})

var _ = Describe("ErrorDetail", func() {
	It("prefers the nested error message", func() {
		Expect(provider.ErrorDetail([]byte(`{"error":{"message":"rate limited","type":"x"}}`))).To(Equal("rate limited"))
	})

	It("accepts a string error field", func() {
		Expect(provider.ErrorDetail([]byte(`{"error":"model not found"}`))).To(Equal("model not found"))
	})

	It("falls back to the raw body", func() {
		Expect(provider.ErrorDetail([]byte("bad gateway\n"))).To(Equal("bad gateway"))
	})
})

var _ = Describe("PostJSON and Failure", func() {
	It("returns an HTTPError for non-2xx responses", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
			Expect(r.Header.Get("X-Test")).To(Equal("yes"))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
		}))
		defer srv.Close()

		ctx := context.Background()
		body, err := provider.PostJSON(ctx, srv.Client(), srv.URL, map[string]string{"X-Test": "yes"}, map[string]string{"a": "b"})
		Expect(body).NotTo(BeEmpty())

		var httpErr *provider.HTTPError
		Expect(errors.As(err, &httpErr)).To(BeTrue())
		Expect(httpErr.StatusCode).To(Equal(http.StatusTooManyRequests))

		res := provider.Failure(provider.OpenAI, ctx, ctx, err)
		Expect(res.Outcome).To(Equal(provider.OutcomeError))
		Expect(res.Text).To(Equal("OPENAI_ERROR: slow down"))
		Expect(res.Raw).To(MatchJSON(`{"error":{"message":"slow down"}}`))
	})

	It("classifies its own deadline as a timeout", func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer srv.Close()
		defer close(release)

		parent := context.Background()
		callCtx, cancel := context.WithTimeout(parent, 20*time.Millisecond)
		defer cancel()

		_, err := provider.PostJSON(callCtx, srv.Client(), srv.URL, nil, struct{}{})
		Expect(err).To(HaveOccurred())
		Expect(provider.Failure(provider.Grok, parent, callCtx, err).Outcome).To(Equal(provider.OutcomeTimeout))
	})

	It("classifies a cancelled parent as an error", func() {
		parent, cancelParent := context.WithCancel(context.Background())
		cancelParent()
		callCtx, cancel := context.WithTimeout(parent, time.Second)
		defer cancel()

		res := provider.Failure(provider.Grok, parent, callCtx, context.Canceled)
		Expect(res.Outcome).To(Equal(provider.OutcomeError))
	})
})

var _ = Describe("TimeoutFor", func() {
	It("uses the per-provider default when unset", func() {
		Expect(provider.TimeoutFor(provider.OpenAI, 0)).To(Equal(25 * time.Second))
		Expect(provider.TimeoutFor(provider.OpenRouter, 0)).To(Equal(180 * time.Second))
		Expect(provider.TimeoutFor(provider.Local, 0)).To(Equal(120 * time.Second))
	})

	It("honours an explicit value", func() {
		Expect(provider.TimeoutFor(provider.Gemini, time.Second)).To(Equal(time.Second))
	})
})
