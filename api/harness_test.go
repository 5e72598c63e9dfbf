package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/api"
	blobinmemory "github.com/papercomputeco/factory/pkg/blob/inmemory"
	"github.com/papercomputeco/factory/pkg/embeddings/hash"
	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/prompts"
	"github.com/papercomputeco/factory/pkg/provider"
	"github.com/papercomputeco/factory/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/factory/pkg/utils/test"
)

const synthText = "```json\n" + `{
  "thesis": "small tools win",
  "memory_candidates": [{"kind": "decision", "text": "Use Go for the core"}]
}` + "\n```"

const bootstrapText = `{"files": [
  {"path": "THESIS.md", "content": "# Thesis"},
  {"path": "../escape.md", "content": "nope"},
  {"path": "docs/TASKS.md", "content": "- build it"}
]}`

type harness struct {
	store  *inmemory.Driver
	engine *memory.Engine
	server *api.Server
	mcp    *http.Request
}

func newHarness() *harness {
	h := &harness{store: inmemory.NewDriver()}

	local := testutils.NewMockProvider(provider.Local, `{"ideas": ["local"]}`)
	anthropic := testutils.NewMockProvider(provider.Anthropic, "")
	anthropic.Fn = func(_ context.Context, prompt string) provider.Result {
		if strings.Contains(prompt, "SYNTHESIZED_JSON=") {
			return provider.OK(provider.Anthropic, bootstrapText, nil)
		}
		return provider.OK(provider.Anthropic, synthText, nil)
	}
	registry := provider.NewRegistry(local, anthropic)
	loader := prompts.NewLoader(h.store)

	var err error
	h.engine, err = memory.NewEngine(memory.Config{
		Store:           h.store,
		Vectors:         testutils.NewMockVectorDriver(),
		Embedder:        hash.NewEmbedder(64),
		EmbeddingModel:  hash.ModelID,
		Registry:        registry,
		ReflectProvider: provider.Anthropic,
		Prompts:         loader,
	})
	Expect(err).NotTo(HaveOccurred())

	pipe, err := pipeline.New(pipeline.Config{
		Registry: registry,
		Store:    h.store,
		Blobs:    blobinmemory.NewStore(),
		Memory:   h.engine,
		Prompts:  loader,
	})
	Expect(err).NotTo(HaveOccurred())

	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mcp = r
		w.WriteHeader(http.StatusAccepted)
	})

	h.server, err = api.NewServer(api.Config{
		DefaultOwner: "alice",
		MCPHandler:   mcpHandler,
	}, pipe, h.engine, logger.Nop())
	Expect(err).NotTo(HaveOccurred())
	return h
}

// do sends a request through the fiber app. A nil body sends no body.
func (h *harness) do(method, path string, body any) *http.Response {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.server.App().Test(req, -1)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

// decode reads a JSON envelope and checks the status code.
func decode(resp *http.Response, status int) map[string]any {
	defer resp.Body.Close()
	Expect(resp.StatusCode).To(Equal(status))

	var out map[string]any
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	return out
}

func (h *harness) brainstorm(seed string) string {
	out := decode(h.do(http.MethodPost, "/brainstorm", map[string]any{"idea_seed": seed}), http.StatusOK)
	return out["project_id"].(string)
}
