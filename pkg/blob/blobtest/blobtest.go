// Package blobtest holds the behaviour every blob.Store must share.
package blobtest

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/blob"
)

// DescribeStore registers the shared blob store specs under name.
func DescribeStore(name string, open func() blob.Store) bool {
	return Describe(name+" blob store", func() {
		var (
			ctx   context.Context
			store blob.Store
		)

		BeforeEach(func() {
			ctx = context.Background()
			store = open()
			DeferCleanup(store.Close)
		})

		It("puts and gets an object", func() {
			Expect(store.Put(ctx, "projects/p1/repo-pack/README.md", []byte("# hi"), "text/markdown")).To(Succeed())

			obj, err := store.Get(ctx, "projects/p1/repo-pack/README.md")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(obj.Data)).To(Equal("# hi"))
			Expect(obj.ContentType).To(Equal("text/markdown"))
			Expect(obj.Key).To(Equal("projects/p1/repo-pack/README.md"))
		})

		It("overwrites in place", func() {
			Expect(store.Put(ctx, "a/b.txt", []byte("one"), "text/plain")).To(Succeed())
			Expect(store.Put(ctx, "a/b.txt", []byte("two"), "")).To(Succeed())

			obj, err := store.Get(ctx, "a/b.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(obj.Data)).To(Equal("two"))
			Expect(obj.ContentType).To(Equal(blob.DefaultContentType))
		})

		It("returns ErrNotFound for a missing key", func() {
			_, err := store.Get(ctx, "missing.txt")
			Expect(err).To(MatchError(blob.ErrNotFound))
		})

		It("lists by prefix sorted by key", func() {
			Expect(store.Put(ctx, "projects/p1/repo-pack/z.md", []byte("z"), "text/markdown")).To(Succeed())
			Expect(store.Put(ctx, "projects/p1/repo-pack/docs/a.md", []byte("aa"), "text/markdown")).To(Succeed())
			Expect(store.Put(ctx, "projects/p2/repo-pack/x.md", []byte("x"), "text/markdown")).To(Succeed())

			infos, err := store.List(ctx, "projects/p1/repo-pack/")
			Expect(err).NotTo(HaveOccurred())
			Expect(infos).To(HaveLen(2))
			Expect(infos[0].Key).To(Equal("projects/p1/repo-pack/docs/a.md"))
			Expect(infos[0].Size).To(Equal(int64(2)))
			Expect(infos[1].Key).To(Equal("projects/p1/repo-pack/z.md"))

			none, err := store.List(ctx, "projects/p9/")
			Expect(err).NotTo(HaveOccurred())
			Expect(none).To(BeEmpty())
		})

		It("deletes idempotently", func() {
			Expect(store.Put(ctx, "k.txt", []byte("v"), "text/plain")).To(Succeed())
			Expect(store.Delete(ctx, "k.txt")).To(Succeed())
			Expect(store.Delete(ctx, "k.txt")).To(Succeed())

			_, err := store.Get(ctx, "k.txt")
			Expect(err).To(MatchError(blob.ErrNotFound))
		})

		It("rejects keys that escape the store", func() {
			for _, key := range []string{"", "/etc/passwd", "../x", "a/../../x"} {
				Expect(store.Put(ctx, key, []byte("v"), "")).To(MatchError(blob.ErrInvalidKey))
			}
		})
	})
}
