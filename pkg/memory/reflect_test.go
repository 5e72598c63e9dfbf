package memory_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/provider"
	testutils "github.com/papercomputeco/factory/pkg/utils/test"
)

var _ = Describe("Reflect", func() {
	var (
		ctx   context.Context
		h     *harness
		local *testutils.MockProvider
	)

	BeforeEach(func() {
		ctx = context.Background()
		local = testutils.NewMockProvider(provider.Local, `[
			{"kind":"decision","text":"Ship the CLI first","tags":["roadmap"],"salience":0.8},
			{"kind":"mystery","text":"Users want offline mode"},
			{"kind":"fact","text":"Budget is small"}
		]`)
		h = newHarness(func(c *memory.Config) {
			c.Registry = provider.NewRegistry(local)
			c.ReflectMin = 3
			c.ReflectKeep = 2
		})
	})

	seed := func(n int) {
		for i := range n {
			_, err := h.engine.Remember(ctx, note("u1", "p1", fmt.Sprintf("observation %d", i)))
			Expect(err).NotTo(HaveOccurred())
		}
	}

	It("declines with too few memories", func() {
		seed(2)
		res, err := h.engine.Reflect(ctx, "u1", "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(BeEmpty())
		Expect(res.Message).To(Equal("not enough memories to reflect"))
		Expect(local.Calls()).To(BeZero())
	})

	It("stores at most ReflectKeep agent memories and keeps the originals", func() {
		seed(4)
		res, err := h.engine.Reflect(ctx, "u1", "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(HaveLen(2))

		Expect(local.Prompts()).To(HaveLen(1))
		Expect(local.Prompts()[0]).To(ContainSubstring("- (fact) observation 3"))

		items, err := h.store.GetMemories(ctx, res.Created)
		Expect(err).NotTo(HaveOccurred())
		kinds := map[memory.Kind]string{}
		for _, it := range items {
			Expect(it.Source).To(Equal(memory.SourceAgent))
			Expect(it.ProjectID).To(Equal("p1"))
			kinds[it.Kind] = it.Text
		}
		Expect(kinds).To(HaveKeyWithValue(memory.KindDecision, "Ship the CLI first"))
		Expect(kinds).To(HaveKeyWithValue(memory.KindNote, "Users want offline mode"))

		recent, err := h.store.ListRecentMemories(ctx, "u1", "p1", 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(recent).To(HaveLen(6))
	})

	It("counts entries that are not objects against ReflectKeep", func() {
		local.Response = `["noise", {"kind":"fact","text":"Budget is small"}, {"kind":"fact","text":"Beyond the window"}]`
		seed(3)

		res, err := h.engine.Reflect(ctx, "u1", "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(HaveLen(1))

		items, err := h.store.GetMemories(ctx, res.Created)
		Expect(err).NotTo(HaveOccurred())
		Expect(items[0].Text).To(Equal("Budget is small"))
	})

	It("creates nothing when the model output is not JSON", func() {
		local.Response = "I could not think of anything."
		seed(3)

		res, err := h.engine.Reflect(ctx, "u1", "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(BeEmpty())
	})

	It("creates nothing when the provider fails", func() {
		local.Fn = func(context.Context, string) provider.Result {
			return provider.TimedOut(provider.Local)
		}
		seed(3)

		res, err := h.engine.Reflect(ctx, "u1", "p1")
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Created).To(BeEmpty())
	})

	It("requires an owner", func() {
		_, err := h.engine.Reflect(ctx, "", "p1")
		Expect(err).To(MatchError(memory.ErrInvalid))
	})
})

var _ = Describe("RememberCandidates", func() {
	var (
		ctx context.Context
		h   *harness
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness()
	})

	It("skips empty and blocked candidates and honours the limit", func() {
		created, err := h.engine.RememberCandidates(ctx, "u1", "p1", []memory.Candidate{
			{Kind: "fact", Text: ""},
			{Kind: "fact", Text: "token sk-abcdefghijklmnopqrstuvwxyz0123"},
			{Kind: "preference", Text: "Prefers small PRs", Tags: []any{"process", 3}},
			{Kind: 42, Text: 17.5, Salience: "high"},
			{Kind: "fact", Text: "beyond the limit"},
		}, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(HaveLen(2))

		items, err := h.store.GetMemories(ctx, created)
		Expect(err).NotTo(HaveOccurred())
		texts := map[string]memory.Item{}
		for _, it := range items {
			texts[it.Text] = it
		}
		Expect(texts).To(HaveKey("Prefers small PRs"))
		Expect(texts["Prefers small PRs"].Tags).To(Equal([]string{"process", "3"}))
		Expect(texts).To(HaveKey("17.5"))
		Expect(texts["17.5"].Kind).To(Equal(memory.KindNote))
		Expect(texts["17.5"].Salience).To(Equal(0.7))
	})
})

var _ = Describe("CandidatesFrom", func() {
	It("keeps the position of entries that are not objects", func() {
		out := memory.CandidatesFrom([]any{
			"noise",
			map[string]any{"kind": "fact", "text": "kept", "salience": 0.9},
			nil,
		})
		Expect(out).To(HaveLen(3))
		Expect(out[0]).To(Equal(memory.Candidate{}))
		Expect(out[1].Text).To(Equal("kept"))
		Expect(out[1].Salience).To(Equal(0.9))
		Expect(out[2]).To(Equal(memory.Candidate{}))
	})

	It("yields nothing for a value that is not an array", func() {
		Expect(memory.CandidatesFrom(map[string]any{"text": "x"})).To(BeNil())
		Expect(memory.CandidatesFrom(nil)).To(BeNil())
	})
})
