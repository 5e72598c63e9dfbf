package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/eventstream"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/provider"
)

var _ = Describe("Brainstorm", func() {
	var (
		ctx context.Context
		h   *harness
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness()
	})

	It("rejects an empty idea seed without creating a project", func() {
		_, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{IdeaSeed: "  "})
		Expect(err).To(MatchError(pipeline.ErrValidation))
		Expect(h.local.Calls()).To(BeZero())
	})

	It("rejects constraints that are not JSON", func() {
		_, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{
			IdeaSeed:    "a thing",
			Constraints: json.RawMessage(`{nope`),
		})
		Expect(err).To(MatchError(pipeline.ErrValidation))
	})

	It("creates a project with defaults and fans out to local", func() {
		out, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{IdeaSeed: "a CLI for recipes"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Results).To(HaveLen(1))
		Expect(out.Results[0].Provider).To(Equal(provider.Local))
		Expect(h.local.Prompts()[0]).To(ContainSubstring("IDEA_SEED=a CLI for recipes"))
		Expect(h.local.Prompts()[0]).To(ContainSubstring("CONSTRAINTS_JSON={}"))

		proj, err := h.store.GetProject(ctx, out.ProjectID)
		Expect(err).NotTo(HaveOccurred())
		Expect(proj.Name).To(Equal(pipeline.DefaultProjectName))
		Expect(string(proj.Constraints)).To(Equal("{}"))
		Expect(proj.Status).To(Equal(project.StatusBrainstormed))
		Expect(proj.Owner).To(Equal(owner))

		run, err := h.store.LatestRun(ctx, out.ProjectID, project.RunBrainstorm)
		Expect(err).NotTo(HaveOccurred())
		Expect(run.ID).To(Equal(out.RunID))
		Expect(run.Status).To(Equal(project.RunOK))

		var input map[string]any
		Expect(json.Unmarshal(run.Input, &input)).To(Succeed())
		Expect(input).To(HaveKeyWithValue("idea_seed", "a CLI for recipes"))
		Expect(input).To(HaveKeyWithValue("providers", ConsistOf("local")))

		var output map[string][]provider.Result
		Expect(json.Unmarshal(run.Output, &output)).To(Succeed())
		Expect(output["results"]).To(HaveLen(1))
	})

	It("remembers the intent decision and the idea seed", func() {
		id := h.brainstorm("a CLI for recipes")
		items := h.memories(id)
		Expect(items).To(HaveLen(2))

		decision := withKind(items, memory.KindDecision)
		Expect(decision).To(HaveLen(1))
		Expect(decision[0].Salience).To(Equal(0.95))
		Expect(decision[0].Source).To(Equal(memory.SourceSystem))
		Expect(decision[0].Tags).To(Equal([]string{"project-factory", "intent"}))

		fact := withKind(items, memory.KindFact)
		Expect(fact).To(HaveLen(1))
		Expect(fact[0].Text).To(Equal("Idea seed: a CLI for recipes"))
		Expect(fact[0].Salience).To(Equal(0.85))
		Expect(fact[0].Source).To(Equal(memory.SourceUser))
	})

	It("keeps request order and drops unconfigured providers", func() {
		h.openai.Configured = false
		out, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{
			IdeaSeed:  "x",
			Providers: []provider.Name{provider.Anthropic, provider.OpenAI, provider.Local},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Results).To(HaveLen(2))
		Expect(out.Results[0].Provider).To(Equal(provider.Anthropic))
		Expect(out.Results[1].Provider).To(Equal(provider.Local))
	})

	It("uses configured default providers when none are requested", func() {
		h = newHarness(func(c *pipeline.Config) {
			c.DefaultProviders = []provider.Name{provider.OpenAI, provider.Local}
		})
		out, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{IdeaSeed: "x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Results).To(HaveLen(2))
		Expect(out.Results[0].Provider).To(Equal(provider.OpenAI))
	})

	It("records failing providers as results", func() {
		h.openai.Fn = func(context.Context, string) provider.Result {
			return provider.TimedOut(provider.OpenAI)
		}
		out, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{
			IdeaSeed:  "x",
			Providers: []provider.Name{provider.OpenAI, provider.Local},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.Results[0].Outcome).To(Equal(provider.OutcomeTimeout))
		Expect(out.Results[0].Text).To(Equal("OPENAI_TIMEOUT: request took too long"))
		Expect(out.Results[1].Outcome).To(Equal(provider.OutcomeOK))
	})

	It("returns not found for an unknown project id", func() {
		_, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{ProjectID: "ghost", IdeaSeed: "x"})
		Expect(err).To(MatchError(pipeline.ErrProjectNotFound))
	})

	It("appends a new run for an existing project", func() {
		id := h.brainstorm("first")
		out, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{ProjectID: id, IdeaSeed: "second"})
		Expect(err).NotTo(HaveOccurred())
		Expect(out.ProjectID).To(Equal(id))

		runs, err := h.store.ListRuns(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(2))
	})

	It("does not fail when the idea seed is blocked by policy", func() {
		out, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{
			IdeaSeed: "use key sk-abcdefghijklmnopqrstuvwxyz123456",
		})
		Expect(err).NotTo(HaveOccurred())

		items := h.memories(out.ProjectID)
		Expect(items).To(HaveLen(1))
		Expect(items[0].Kind).To(Equal(memory.KindDecision))
	})

	It("publishes a run event and tolerates publish failures", func() {
		id := h.brainstorm("x")
		events := h.publisher.Events()
		Expect(events).To(HaveLen(1))
		Expect(events[0].ProjectID).To(Equal(id))
		Expect(events[0].Kind).To(Equal(project.RunBrainstorm))
		Expect(events[0].EventType).To(Equal(eventstream.EventTypeRunAppended))

		h.publisher.Err = errors.New("broker down")
		_, err := h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{ProjectID: id, IdeaSeed: "y"})
		Expect(err).NotTo(HaveOccurred())
	})
})
