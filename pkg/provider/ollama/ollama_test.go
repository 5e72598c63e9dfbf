package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/provider/ollama"
)

type generateCall struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Stream  bool   `json:"stream"`
	Options struct {
		Temperature float64 `json:"temperature"`
		NumPredict  int     `json:"num_predict"`
	} `json:"options"`
}

var _ = Describe("Local provider", func() {
	var (
		mu      sync.Mutex
		calls   []generateCall
		handler func(w http.ResponseWriter, call generateCall)
		srv     *httptest.Server
	)

	BeforeEach(func() {
		calls = nil
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/api/generate"))
			var call generateCall
			Expect(json.NewDecoder(r.Body).Decode(&call)).To(Succeed())
			mu.Lock()
			calls = append(calls, call)
			mu.Unlock()
			handler(w, call)
		}))
		DeferCleanup(srv.Close)
	})

	newProvider := func() *ollama.Provider {
		return ollama.New(ollama.Config{BaseURL: srv.URL, Model: "big", FallbackModel: "small"})
	}

	It("is always configured", func() {
		Expect(ollama.New(ollama.Config{}).IsConfigured()).To(BeTrue())
	})

	It("returns the response text from the preferred model", func() {
		handler = func(w http.ResponseWriter, _ generateCall) {
			_, _ = w.Write([]byte(`{"response":"hello","done":true}`))
		}

		res := newProvider().Generate(context.Background(), "prompt")
		Expect(res.Outcome).To(Equal(provider.OutcomeOK))
		Expect(res.Provider).To(Equal(provider.Local))
		Expect(res.Text).To(Equal("hello"))
		Expect(calls).To(HaveLen(1))
		Expect(calls[0].Model).To(Equal("big"))
		Expect(calls[0].Stream).To(BeFalse())
		Expect(calls[0].Options.NumPredict).To(Equal(8192))
		Expect(calls[0].Options.Temperature).To(Equal(0.4))
	})

	It("returns the raw body when there is no response text", func() {
		handler = func(w http.ResponseWriter, _ generateCall) {
			_, _ = w.Write([]byte(`{"done":true}`))
		}

		res := newProvider().Generate(context.Background(), "prompt")
		Expect(res.Text).To(Equal(`{"done":true}`))
	})

	It("retries once on the fallback model with a truncated prompt", func() {
		handler = func(w http.ResponseWriter, call generateCall) {
			if call.Model == "big" {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"out of memory"}`))
				return
			}
			_, _ = w.Write([]byte(`{"response":"small answer"}`))
		}

		prompt := strings.Repeat("é", 7000)
		res := newProvider().Generate(context.Background(), prompt)
		Expect(res.Outcome).To(Equal(provider.OutcomeOK))
		Expect(res.Text).To(Equal("small answer"))
		Expect(calls).To(HaveLen(2))
		Expect(calls[1].Model).To(Equal("small"))
		Expect(utf8.RuneCountInString(calls[1].Prompt)).To(Equal(6000))
		Expect(calls[1].Options.NumPredict).To(Equal(2048))
	})

	It("reports LOCAL_ERROR when both models fail", func() {
		handler = func(w http.ResponseWriter, _ generateCall) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
		}

		res := newProvider().Generate(context.Background(), "prompt")
		Expect(res.Outcome).To(Equal(provider.OutcomeError))
		Expect(res.Text).To(Equal("LOCAL_ERROR: model not loaded"))
		Expect(calls).To(HaveLen(2))
	})

	It("applies the timeout per attempt", func() {
		handler = func(w http.ResponseWriter, call generateCall) {
			if call.Model == "big" {
				time.Sleep(100 * time.Millisecond)
			}
			_, _ = w.Write([]byte(`{"response":"late but fine"}`))
		}

		p := ollama.New(ollama.Config{BaseURL: srv.URL, Model: "big", FallbackModel: "small", Timeout: 30 * time.Millisecond})
		res := p.Generate(context.Background(), "prompt")
		Expect(res.Text).To(Equal("late but fine"))
	})
})
