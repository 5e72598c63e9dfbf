package prompts_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/kv/inmemory"
	"github.com/papercomputeco/factory/pkg/prompts"
)

type failingStore struct{ *inmemory.Store }

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("kv down")
}

var _ = Describe("Loader", func() {
	var (
		ctx    context.Context
		store  *inmemory.Store
		loader *prompts.Loader
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore()
		loader = prompts.NewLoader(store)
	})

	It("returns the default when no override exists", func() {
		tpl, err := loader.Get(ctx, prompts.Brainstorm)
		Expect(err).NotTo(HaveOccurred())
		Expect(tpl).To(Equal("Return JSON brainstorm. IDEA_SEED={{IDEA_SEED}} CONSTRAINTS_JSON={{CONSTRAINTS_JSON}}"))
	})

	It("prefers a stored override under prompts:<NAME>", func() {
		Expect(store.Set(ctx, "prompts:SYNTHESIZE", "custom {{IDEA_SEED}}")).To(Succeed())

		tpl, err := loader.Get(ctx, prompts.Synthesize)
		Expect(err).NotTo(HaveOccurred())
		Expect(tpl).To(Equal("custom {{IDEA_SEED}}"))
	})

	It("ignores an empty override", func() {
		Expect(store.Set(ctx, prompts.Key(prompts.Bootstrap), "")).To(Succeed())

		tpl, err := loader.Get(ctx, prompts.Bootstrap)
		Expect(err).NotTo(HaveOccurred())
		Expect(tpl).To(HavePrefix("Return JSON with files: [{path,content}]."))
	})

	It("sets and resets overrides", func() {
		Expect(loader.Set(ctx, "brainstorm", "mine")).To(Succeed())
		tpl, _ := loader.Get(ctx, prompts.Brainstorm)
		Expect(tpl).To(Equal("mine"))

		Expect(loader.Reset(ctx, prompts.Brainstorm)).To(Succeed())
		tpl, _ = loader.Get(ctx, prompts.Brainstorm)
		Expect(tpl).To(HavePrefix("Return JSON brainstorm."))
	})

	It("returns empty for unknown names", func() {
		tpl, err := loader.Get(ctx, "NOPE")
		Expect(err).NotTo(HaveOccurred())
		Expect(tpl).To(BeEmpty())
	})

	It("surfaces store errors", func() {
		l := prompts.NewLoader(failingStore{store})
		_, err := l.Get(ctx, prompts.Brainstorm)
		Expect(err).To(MatchError(ContainSubstring("kv down")))
	})

	It("serves defaults without a store", func() {
		tpl, err := prompts.NewLoader(nil).Get(ctx, prompts.Reflect)
		Expect(err).NotTo(HaveOccurred())
		Expect(tpl).To(HavePrefix("Summarize these memories into durable, high-signal items.\n"))
	})
})

var _ = Describe("Render", func() {
	It("replaces every occurrence literally", func() {
		out := prompts.Render("{{A}} and {{A}} then {{B}} keeps {{C}}", map[string]string{
			"A": "x",
			"B": "$1 {{A}}",
		})
		Expect(out).To(Equal("x and x then $1 {{A}} keeps {{C}}"))
	})
})

var _ = Describe("Names", func() {
	It("lists every template", func() {
		Expect(prompts.Names()).To(Equal([]string{"BOOTSTRAP", "BRAINSTORM", "REFLECT", "RESEARCH", "SYNTHESIZE"}))
	})
})
