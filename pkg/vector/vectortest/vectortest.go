// Package vectortest holds the behaviour every vector.Driver must share.
// Drivers are opened with four dimensions.
package vectortest

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/vector"
)

// Dimensions is the embedding width the shared specs use.
const Dimensions = 4

func doc(id string, emb []float32, owner string) vector.Document {
	return vector.Document{
		ID:        id,
		Embedding: emb,
		Metadata:  vector.Metadata{UserID: owner, ProjectID: "p1", Kind: "fact", Salience: 0.5},
	}
}

// DescribeDriver registers the shared vector driver specs under name.
func DescribeDriver(name string, open func(ctx context.Context) vector.Driver) bool {
	return Describe(name+" vector driver", func() {
		var (
			ctx    context.Context
			driver vector.Driver
		)

		BeforeEach(func() {
			ctx = context.Background()
			driver = open(ctx)
			DeferCleanup(driver.Close)
		})

		It("does nothing when given empty docs", func() {
			Expect(driver.Add(ctx, nil)).To(Succeed())
			Expect(driver.Delete(ctx, nil)).To(Succeed())
			docs, err := driver.Get(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(BeEmpty())
		})

		It("returns the closest documents first with metadata", func() {
			Expect(driver.Add(ctx, []vector.Document{
				doc("mem:a", []float32{1, 0, 0, 0}, "u1"),
				doc("mem:b", []float32{0, 1, 0, 0}, "u1"),
				doc("mem:c", []float32{0.9, 0.1, 0, 0}, "u2"),
			})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("mem:a"))
			Expect(results[0].Score).To(BeNumerically("~", 1.0, 1e-3))
			Expect(results[0].Metadata.UserID).To(Equal("u1"))
			Expect(results[0].Metadata.ProjectID).To(Equal("p1"))
			Expect(results[1].ID).To(Equal("mem:c"))
			Expect(results[1].Metadata.UserID).To(Equal("u2"))
			Expect(results[0].Score).To(BeNumerically(">=", results[1].Score))
		})

		It("replaces an existing document on Add", func() {
			Expect(driver.Add(ctx, []vector.Document{doc("mem:a", []float32{1, 0, 0, 0}, "u1")})).To(Succeed())

			updated := doc("mem:a", []float32{0, 0, 1, 0}, "u1")
			updated.Metadata.Salience = 0.9
			Expect(driver.Add(ctx, []vector.Document{updated})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"mem:a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Embedding).To(Equal([]float32{0, 0, 1, 0}))
			Expect(docs[0].Metadata.Salience).To(BeNumerically("~", 0.9))

			results, err := driver.Query(ctx, []float32{0, 0, 1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("skips missing ids on Get", func() {
			Expect(driver.Add(ctx, []vector.Document{doc("mem:a", []float32{1, 0, 0, 0}, "u1")})).To(Succeed())

			docs, err := driver.Get(ctx, []string{"mem:a", "mem:missing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].ID).To(Equal("mem:a"))
		})

		It("removes documents from query results after deletion", func() {
			Expect(driver.Add(ctx, []vector.Document{
				doc("mem:a", []float32{1, 0, 0, 0}, "u1"),
				doc("mem:b", []float32{0, 1, 0, 0}, "u1"),
			})).To(Succeed())

			Expect(driver.Delete(ctx, []string{"mem:a", "mem:never"})).To(Succeed())

			results, err := driver.Query(ctx, []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].ID).To(Equal("mem:b"))
		})
	})
}
