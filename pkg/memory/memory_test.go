package memory_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/embeddings/hash"
	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/storage/inmemory"
	testutils "github.com/papercomputeco/factory/pkg/utils/test"
)

type harness struct {
	store   *inmemory.Driver
	vectors *testutils.MockVectorDriver
	engine  *memory.Engine
	clock   time.Time
	seq     int
}

func newHarness(mutate ...func(*memory.Config)) *harness {
	h := &harness{
		store:   inmemory.NewDriver(),
		vectors: testutils.NewMockVectorDriver(),
		clock:   time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	cfg := memory.Config{
		Store:          h.store,
		Vectors:        h.vectors,
		Embedder:       hash.NewEmbedder(256),
		EmbeddingModel: hash.ModelID,
		Now: func() time.Time {
			h.clock = h.clock.Add(time.Second)
			return h.clock
		},
		NewID: func() string {
			h.seq++
			return fmt.Sprintf("m%02d", h.seq)
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	engine, err := memory.NewEngine(cfg)
	Expect(err).NotTo(HaveOccurred())
	h.engine = engine
	return h
}

func note(owner, projectID, text string) memory.NewItem {
	return memory.NewItem{
		Owner:     project.Owner(owner),
		ProjectID: projectID,
		Kind:      memory.KindFact,
		Text:      text,
		Source:    memory.SourceUser,
	}
}

var _ = Describe("Engine", func() {
	var (
		ctx context.Context
		h   *harness
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness()
	})

	Describe("NewEngine", func() {
		It("requires its collaborators", func() {
			_, err := memory.NewEngine(memory.Config{})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Remember", func() {
		It("writes the row, the vector and the pointer", func() {
			id, err := h.engine.Remember(ctx, memory.NewItem{
				Owner:     "u1",
				ProjectID: "p1",
				Kind:      memory.KindPreference,
				Text:      "Prefers Go with structured logging",
				Tags:      []string{"lang"},
				Salience:  memory.Salience(0.9),
				Source:    memory.SourceUser,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("m01"))

			items, err := h.store.GetMemories(ctx, []string{id})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].Salience).To(Equal(0.9))
			Expect(items[0].Tags).To(Equal([]string{"lang"}))

			docs, err := h.vectors.Get(ctx, []string{memory.VectorID(id)})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Metadata.UserID).To(Equal("u1"))
			Expect(docs[0].Metadata.ProjectID).To(Equal("p1"))
		})

		It("defaults and clamps salience", func() {
			id, err := h.engine.Remember(ctx, note("u1", "", "default salience"))
			Expect(err).NotTo(HaveOccurred())

			in := note("u1", "", "too salient")
			in.Salience = memory.Salience(7)
			id2, err := h.engine.Remember(ctx, in)
			Expect(err).NotTo(HaveOccurred())

			items, err := h.store.GetMemories(ctx, []string{id, id2})
			Expect(err).NotTo(HaveOccurred())
			byID := map[string]float64{}
			for _, it := range items {
				byID[it.ID] = it.Salience
			}
			Expect(byID[id]).To(Equal(memory.DefaultSalience))
			Expect(byID[id2]).To(Equal(1.0))
		})

		DescribeTable("rejects invalid input",
			func(mutate func(*memory.NewItem)) {
				in := note("u1", "", "some text")
				mutate(&in)
				_, err := h.engine.Remember(ctx, in)
				Expect(err).To(MatchError(memory.ErrInvalid))
			},
			Entry("missing owner", func(in *memory.NewItem) { in.Owner = "" }),
			Entry("blank text", func(in *memory.NewItem) { in.Text = "   " }),
			Entry("unknown kind", func(in *memory.NewItem) { in.Kind = "gossip" }),
			Entry("unknown source", func(in *memory.NewItem) { in.Source = "oracle" }),
		)

		It("writes nothing when the policy blocks", func() {
			_, err := h.engine.Remember(ctx, note("u1", "", "my key is sk-abcdefghijklmnopqrstuvwxyz123456"))
			Expect(err).To(MatchError(memory.ErrPolicyBlocked))

			var pe *memory.PolicyError
			Expect(errors.As(err, &pe)).To(BeTrue())

			recent, err := h.store.ListRecentMemories(ctx, "u1", "", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(BeEmpty())
			Expect(h.vectors.Len()).To(BeZero())
		})

		It("writes nothing when embedding fails", func() {
			emb := testutils.NewMockEmbedder()
			emb.FailOn = "unembeddable"
			h = newHarness(func(c *memory.Config) { c.Embedder = emb })

			_, err := h.engine.Remember(ctx, note("u1", "", "unembeddable"))
			Expect(err).To(HaveOccurred())

			recent, err := h.store.ListRecentMemories(ctx, "u1", "", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent).To(BeEmpty())
		})
	})

	Describe("Recall", func() {
		BeforeEach(func() {
			for _, in := range []memory.NewItem{
				note("u1", "p1", "postgres database migrations run nightly"),
				note("u1", "p2", "postgres database backups are encrypted"),
				note("u1", "", "the team prefers tabs"),
			} {
				_, err := h.engine.Remember(ctx, in)
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := h.engine.Remember(ctx, note("u2", "p1", "postgres database migrations for someone else"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns only the owner's memories, best first", func() {
			hits, err := h.engine.Recall(ctx, memory.Query{Owner: "u1", Text: "postgres database migrations"})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).NotTo(BeEmpty())
			Expect(hits[0].Text).To(Equal("postgres database migrations run nightly"))
			for _, hit := range hits {
				Expect(hit.Owner).To(Equal(project.Owner("u1")))
			}
			for i := 1; i < len(hits); i++ {
				Expect(hits[i-1].Score).To(BeNumerically(">=", hits[i].Score))
			}
		})

		It("scopes to a project and honours K", func() {
			hits, err := h.engine.Recall(ctx, memory.Query{Owner: "u1", ProjectID: "p2", Text: "postgres", K: 5})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
			Expect(hits[0].ProjectID).To(Equal("p2"))

			hits, err = h.engine.Recall(ctx, memory.Query{Owner: "u1", Text: "postgres", K: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).To(HaveLen(1))
		})

		It("skips forgotten memories before reconcile", func() {
			Expect(h.engine.Forget(ctx, "m01")).To(Succeed())

			hits, err := h.engine.Recall(ctx, memory.Query{Owner: "u1", Text: "postgres database migrations"})
			Expect(err).NotTo(HaveOccurred())
			for _, hit := range hits {
				Expect(hit.ID).NotTo(Equal("m01"))
			}
		})

		It("requires an owner and query", func() {
			_, err := h.engine.Recall(ctx, memory.Query{Text: "x"})
			Expect(err).To(MatchError(memory.ErrInvalid))
			_, err = h.engine.Recall(ctx, memory.Query{Owner: "u1"})
			Expect(err).To(MatchError(memory.ErrInvalid))
		})

		It("returns an empty list when nothing matches the scope", func() {
			hits, err := h.engine.Recall(ctx, memory.Query{Owner: "nobody", Text: "postgres"})
			Expect(err).NotTo(HaveOccurred())
			Expect(hits).NotTo(BeNil())
			Expect(hits).To(BeEmpty())
		})
	})

	Describe("Forget and Reconcile", func() {
		It("reports unknown ids", func() {
			Expect(h.engine.Forget(ctx, "ghost")).To(MatchError(memory.ErrNotFound))
			Expect(h.engine.Forget(ctx, "")).To(MatchError(memory.ErrInvalid))
		})

		It("keeps the vector until reconcile removes it", func() {
			id, err := h.engine.Remember(ctx, note("u1", "", "short lived"))
			Expect(err).NotTo(HaveOccurred())
			keep, err := h.engine.Remember(ctx, note("u1", "", "long lived"))
			Expect(err).NotTo(HaveOccurred())

			Expect(h.engine.Forget(ctx, id)).To(Succeed())
			Expect(h.vectors.Len()).To(Equal(2))

			res, err := h.engine.Reconcile(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Removed).To(Equal(1))
			Expect(h.vectors.DeletedIDs()).To(Equal([]string{memory.VectorID(id)}))
			Expect(h.vectors.Len()).To(Equal(1))

			docs, err := h.vectors.Get(ctx, []string{memory.VectorID(keep)})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))

			again, err := h.engine.Reconcile(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Removed).To(BeZero())
			Expect(again.Batches).To(BeZero())
		})

		It("pages through orphans in batches", func() {
			for i := range 5 {
				id, err := h.engine.Remember(ctx, note("u1", "", fmt.Sprintf("memory %d", i)))
				Expect(err).NotTo(HaveOccurred())
				Expect(h.engine.Forget(ctx, id)).To(Succeed())
			}

			res, err := h.engine.Reconcile(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Scanned).To(Equal(5))
			Expect(res.Removed).To(Equal(5))
			Expect(res.Batches).To(Equal(3))
			Expect(h.vectors.Len()).To(BeZero())
		})

		It("keeps pointers when the vector delete fails", func() {
			id, err := h.engine.Remember(ctx, note("u1", "", "sticky"))
			Expect(err).NotTo(HaveOccurred())
			Expect(h.engine.Forget(ctx, id)).To(Succeed())

			h.vectors.DeleteErr = errors.New("index offline")
			_, err = h.engine.Reconcile(ctx, 10)
			Expect(err).To(MatchError(ContainSubstring("index offline")))

			orphans, err := h.store.ListOrphanPointers(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(orphans).To(HaveLen(1))

			h.vectors.DeleteErr = nil
			res, err := h.engine.Reconcile(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Removed).To(Equal(1))
		})
	})
})
