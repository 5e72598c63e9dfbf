// Package storagetest holds the behaviour every storage.Driver must share.
// Driver packages call DescribeDriver from their own suites.
package storagetest

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/memory"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/storage"
)

// Opener returns a fresh, empty driver.
type Opener func(ctx context.Context) storage.Driver

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newProject(id string) *project.Project {
	return &project.Project{
		ID:          id,
		Owner:       "owner-1",
		Name:        "Demo",
		IdeaSeed:    "a tool that writes tools",
		Constraints: json.RawMessage(`{"budget":"small"}`),
		Status:      project.StatusCreated,
		CreatedAt:   base,
		UpdatedAt:   base,
	}
}

func newMemory(id, projectID string, at time.Time) *memory.Item {
	return &memory.Item{
		ID:        id,
		Owner:     "owner-1",
		ProjectID: projectID,
		Kind:      memory.KindFact,
		Text:      "memory " + id,
		Tags:      []string{"t1"},
		Salience:  0.7,
		Source:    memory.SourceUser,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// DescribeDriver registers the shared driver specs under name.
func DescribeDriver(name string, open Opener) bool {
	return Describe(name+" driver", func() {
		var (
			ctx    context.Context
			driver storage.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = open(ctx)
			DeferCleanup(func() {
				Expect(driver.Close()).To(Succeed())
			})
		})

		Describe("projects", func() {
			It("round-trips a project", func() {
				Expect(driver.CreateProject(ctx, newProject("p1"))).To(Succeed())

				got, err := driver.GetProject(ctx, "p1")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Owner).To(Equal(project.Owner("owner-1")))
				Expect(got.IdeaSeed).To(Equal("a tool that writes tools"))
				Expect(got.Constraints).To(MatchJSON(`{"budget":"small"}`))
				Expect(got.Status).To(Equal(project.StatusCreated))
				Expect(got.CreatedAt.Equal(base)).To(BeTrue())
			})

			It("returns ErrNotFound for a missing project", func() {
				_, err := driver.GetProject(ctx, "nope")
				Expect(err).To(MatchError(storage.ErrNotFound))
			})

			It("only moves status forward", func() {
				Expect(driver.CreateProject(ctx, newProject("p1"))).To(Succeed())

				st, err := driver.AdvanceProjectStatus(ctx, "p1", project.StatusBootstrapped, base.Add(time.Minute))
				Expect(err).NotTo(HaveOccurred())
				Expect(st).To(Equal(project.StatusBootstrapped))

				st, err = driver.AdvanceProjectStatus(ctx, "p1", project.StatusBrainstormed, base.Add(2*time.Minute))
				Expect(err).NotTo(HaveOccurred())
				Expect(st).To(Equal(project.StatusBootstrapped))

				got, err := driver.GetProject(ctx, "p1")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Status).To(Equal(project.StatusBootstrapped))
				Expect(got.UpdatedAt.Equal(base.Add(2 * time.Minute))).To(BeTrue())
			})

			It("fails to advance a missing project", func() {
				_, err := driver.AdvanceProjectStatus(ctx, "nope", project.StatusSynthesized, base)
				Expect(err).To(MatchError(storage.ErrNotFound))
			})
		})

		Describe("runs", func() {
			BeforeEach(func() {
				Expect(driver.CreateProject(ctx, newProject("p1"))).To(Succeed())
			})

			It("returns the latest run of a kind", func() {
				for i, out := range []string{`{"n":1}`, `{"n":2}`} {
					Expect(driver.AppendRun(ctx, &project.Run{
						ID:         "r" + string(rune('a'+i)),
						ProjectID:  "p1",
						Kind:       project.RunSynthesize,
						Status:     project.RunOK,
						Input:      json.RawMessage(`{}`),
						Output:     json.RawMessage(out),
						StartedAt:  base.Add(time.Duration(i) * time.Second),
						FinishedAt: base.Add(time.Duration(i) * time.Second),
					})).To(Succeed())
				}
				Expect(driver.AppendRun(ctx, &project.Run{
					ID:         "rz",
					ProjectID:  "p1",
					Kind:       project.RunBrainstorm,
					Status:     project.RunError,
					ErrorText:  "boom",
					StartedAt:  base.Add(time.Hour),
					FinishedAt: base.Add(time.Hour),
				})).To(Succeed())

				latest, err := driver.LatestRun(ctx, "p1", project.RunSynthesize)
				Expect(err).NotTo(HaveOccurred())
				Expect(latest.ID).To(Equal("rb"))
				Expect(latest.Output).To(MatchJSON(`{"n":2}`))

				brain, err := driver.LatestRun(ctx, "p1", project.RunBrainstorm)
				Expect(err).NotTo(HaveOccurred())
				Expect(brain.ErrorText).To(Equal("boom"))
				Expect(brain.Output).To(BeEmpty())

				runs, err := driver.ListRuns(ctx, "p1")
				Expect(err).NotTo(HaveOccurred())
				Expect(runs).To(HaveLen(3))
				Expect(runs[0].ID).To(Equal("rz"))
			})

			It("returns ErrNotFound when no run of the kind exists", func() {
				_, err := driver.LatestRun(ctx, "p1", project.RunBootstrap)
				Expect(err).To(MatchError(storage.ErrNotFound))
			})

			It("rejects runs for unknown projects", func() {
				err := driver.AppendRun(ctx, &project.Run{
					ID: "r1", ProjectID: "ghost", Kind: project.RunResearch, Status: project.RunOK,
					StartedAt: base, FinishedAt: base,
				})
				Expect(err).To(HaveOccurred())
			})
		})

		Describe("artifacts", func() {
			It("upserts by project and name", func() {
				Expect(driver.CreateProject(ctx, newProject("p1"))).To(Succeed())

				a := &project.Artifact{
					ID: "a1", ProjectID: "p1", Name: "repo-pack.tar.gz", BlobKey: "k1",
					ContentType: "application/gzip", Bytes: 10, SHA256: "aa", CreatedAt: base,
				}
				Expect(driver.UpsertArtifact(ctx, a)).To(Succeed())

				a2 := *a
				a2.ID = "a2"
				a2.Bytes = 20
				a2.SHA256 = "bb"
				Expect(driver.UpsertArtifact(ctx, &a2)).To(Succeed())

				got, err := driver.ListArtifacts(ctx, "p1")
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(HaveLen(1))
				Expect(got[0].Bytes).To(Equal(int64(20)))
				Expect(got[0].SHA256).To(Equal("bb"))
			})
		})

		Describe("memories", func() {
			It("stores, lists and soft-deletes memories", func() {
				Expect(driver.InsertMemory(ctx, newMemory("m1", "p1", base))).To(Succeed())
				Expect(driver.InsertMemory(ctx, newMemory("m2", "", base.Add(time.Second)))).To(Succeed())
				Expect(driver.InsertMemory(ctx, newMemory("m3", "p1", base.Add(2*time.Second)))).To(Succeed())

				recent, err := driver.ListRecentMemories(ctx, "owner-1", "", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(recent).To(HaveLen(3))
				Expect(recent[0].ID).To(Equal("m3"))

				scoped, err := driver.ListRecentMemories(ctx, "owner-1", "p1", 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(scoped).To(HaveLen(1))
				Expect(scoped[0].ID).To(Equal("m3"))

				found, err := driver.SoftDeleteMemory(ctx, "m3", base.Add(time.Minute))
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeTrue())

				found, err = driver.SoftDeleteMemory(ctx, "m3", base.Add(time.Hour))
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeTrue())

				found, err = driver.SoftDeleteMemory(ctx, "ghost", base)
				Expect(err).NotTo(HaveOccurred())
				Expect(found).To(BeFalse())

				items, err := driver.GetMemories(ctx, []string{"m3", "m2", "ghost"})
				Expect(err).NotTo(HaveOccurred())
				Expect(items).To(HaveLen(2))
				for _, it := range items {
					if it.ID == "m3" {
						Expect(it.Deleted).To(BeTrue())
						Expect(it.DeletedAt).NotTo(BeNil())
						Expect(it.DeletedAt.Equal(base.Add(time.Minute))).To(BeTrue())
					} else {
						Expect(it.ProjectID).To(BeEmpty())
						Expect(it.Tags).To(Equal([]string{"t1"}))
						Expect(it.Salience).To(BeNumerically("~", 0.7))
					}
				}

				recent, err = driver.ListRecentMemories(ctx, "owner-1", "p1", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(recent).To(HaveLen(1))
				Expect(recent[0].ID).To(Equal("m1"))

				other, err := driver.ListRecentMemories(ctx, "owner-2", "", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(other).To(BeEmpty())
			})

			It("lists pointers of deleted and missing memories as orphans", func() {
				Expect(driver.InsertMemory(ctx, newMemory("m1", "", base))).To(Succeed())
				Expect(driver.InsertMemory(ctx, newMemory("m2", "", base))).To(Succeed())
				for _, id := range []string{"m1", "m2", "m9"} {
					Expect(driver.UpsertPointer(ctx, &memory.Pointer{
						MemoryID: id, Owner: "owner-1", VectorID: memory.VectorID(id),
						EmbeddingModel: "hash", CreatedAt: base,
					})).To(Succeed())
				}
				_, err := driver.SoftDeleteMemory(ctx, "m2", base)
				Expect(err).NotTo(HaveOccurred())

				orphans, err := driver.ListOrphanPointers(ctx, 10)
				Expect(err).NotTo(HaveOccurred())
				ids := []string{}
				for _, p := range orphans {
					ids = append(ids, p.MemoryID)
				}
				Expect(ids).To(Equal([]string{"m2", "m9"}))
				Expect(orphans[0].VectorID).To(Equal("mem:m2"))

				limited, err := driver.ListOrphanPointers(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(limited).To(HaveLen(1))

				Expect(driver.DeletePointers(ctx, ids)).To(Succeed())
				orphans, err = driver.ListOrphanPointers(ctx, 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(orphans).To(BeEmpty())
			})
		})

		Describe("key/value", func() {
			It("sets, overwrites and deletes values", func() {
				_, ok, err := driver.Get(ctx, "prompts:BRAINSTORM")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())

				Expect(driver.Set(ctx, "prompts:BRAINSTORM", "one")).To(Succeed())
				Expect(driver.Set(ctx, "prompts:BRAINSTORM", "two")).To(Succeed())
				v, ok, err := driver.Get(ctx, "prompts:BRAINSTORM")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(v).To(Equal("two"))

				Expect(driver.Delete(ctx, "prompts:BRAINSTORM")).To(Succeed())
				Expect(driver.Delete(ctx, "prompts:BRAINSTORM")).To(Succeed())
				_, ok, err = driver.Get(ctx, "prompts:BRAINSTORM")
				Expect(err).NotTo(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})
	})
}
