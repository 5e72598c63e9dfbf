package filesystem_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/blob"
	"github.com/papercomputeco/factory/pkg/blob/blobtest"
	"github.com/papercomputeco/factory/pkg/blob/filesystem"
)

var _ = blobtest.DescribeStore("filesystem", func() blob.Store {
	store, err := filesystem.NewStore(GinkgoT().TempDir())
	Expect(err).NotTo(HaveOccurred())
	return store
})

var _ = Describe("Store", func() {
	It("lays objects out as files under the root", func() {
		root := GinkgoT().TempDir()
		store, err := filesystem.NewStore(root)
		Expect(err).NotTo(HaveOccurred())

		Expect(store.Put(context.Background(), "projects/p1/repo-pack/README.md", []byte("# hi"), "text/markdown")).To(Succeed())

		data, err := os.ReadFile(filepath.Join(root, "projects", "p1", "repo-pack", "README.md"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("# hi"))
	})

	It("requires a root", func() {
		_, err := filesystem.NewStore("")
		Expect(err).To(HaveOccurred())
	})
})
