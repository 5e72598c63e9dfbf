package pipeline_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/provider"
)

var _ = Describe("Project lifecycle", func() {
	var (
		ctx context.Context
		h   *harness
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness()
	})

	It("never regresses status on re-runs", func() {
		id := h.synthesized("x")
		_, err := h.pipe.Bootstrap(ctx, owner, id, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.status(id)).To(Equal(project.StatusBootstrapped))

		_, err = h.pipe.Brainstorm(ctx, owner, pipeline.BrainstormInput{ProjectID: id, IdeaSeed: "again"})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.status(id)).To(Equal(project.StatusBootstrapped))

		_, err = h.pipe.Synthesize(ctx, owner, id, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(h.status(id)).To(Equal(project.StatusBootstrapped))
	})

	It("never assigns blocked", func() {
		failing := func(context.Context, string) provider.Result {
			return provider.Errored(provider.Anthropic, "down", nil)
		}

		seen := []project.Status{}
		record := func(id string) {
			seen = append(seen, h.status(id))
		}

		id := h.brainstorm("x")
		record(id)
		_, err := h.pipe.Synthesize(ctx, owner, id, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())
		record(id)
		_, err = h.pipe.Research(ctx, owner, id, pipeline.ResearchInput{Prompt: "q"})
		Expect(err).NotTo(HaveOccurred())
		record(id)
		_, err = h.pipe.Bootstrap(ctx, owner, id, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())
		record(id)

		h.anthropic.Fn = failing
		_, err = h.pipe.Synthesize(ctx, owner, id, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())
		record(id)
		_, err = h.pipe.Bootstrap(ctx, owner, id, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())
		record(id)

		Expect(seen).NotTo(ContainElement(project.StatusBlocked))
		Expect(seen).To(Equal([]project.Status{
			project.StatusBrainstormed,
			project.StatusSynthesized,
			project.StatusSynthesized,
			project.StatusBootstrapped,
			project.StatusBootstrapped,
			project.StatusBootstrapped,
		}))
	})

	It("reports the latest run of each kind", func() {
		id := h.synthesized("x")
		view, err := h.pipe.Project(ctx, id)
		Expect(err).NotTo(HaveOccurred())
		Expect(view.Project.ID).To(Equal(id))
		Expect(view.LatestRuns).To(HaveKey(project.RunBrainstorm))
		Expect(view.LatestRuns).To(HaveKey(project.RunSynthesize))
		Expect(view.LatestRuns).NotTo(HaveKey(project.RunBootstrap))

		_, err = h.pipe.Project(ctx, "ghost")
		Expect(err).To(MatchError(pipeline.ErrProjectNotFound))
	})

	It("publishes one event per run", func() {
		id := h.synthesized("x")
		_, err := h.pipe.Bootstrap(ctx, owner, id, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())

		events := h.publisher.Events()
		Expect(events).To(HaveLen(3))
		Expect(events[1].Provider).To(Equal("anthropic"))
		Expect(events[2].Kind).To(Equal(project.RunBootstrap))
	})
})
