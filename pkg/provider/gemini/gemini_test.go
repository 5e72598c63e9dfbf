package gemini_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/provider/gemini"
)

var _ = Describe("Gemini provider", func() {
	It("reports not configured without a key", func() {
		p := gemini.New(gemini.Config{})
		Expect(p.IsConfigured()).To(BeFalse())
		Expect(p.Generate(context.Background(), "hi").Text).To(Equal("GEMINI_NOT_CONFIGURED"))
	})

	It("calls generateContent on the configured model", func() {
		var path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"gemini answer"}]}}]}`))
		}))
		defer srv.Close()

		res := gemini.New(gemini.Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "hi")
		Expect(res.Outcome).To(Equal(provider.OutcomeOK))
		Expect(res.Text).To(Equal("gemini answer"))
		Expect(strings.HasSuffix(path, "/models/gemini-2.0-flash:generateContent")).To(BeTrue(), path)
	})

	It("reports upstream failures as errors", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
		}))
		defer srv.Close()

		res := gemini.New(gemini.Config{APIKey: "k", BaseURL: srv.URL}).Generate(context.Background(), "hi")
		Expect(res.Outcome).To(Equal(provider.OutcomeError))
		Expect(res.Text).To(HavePrefix("GEMINI_ERROR: "))
		Expect(res.Text).To(ContainSubstring("API key not valid"))
	})
})
