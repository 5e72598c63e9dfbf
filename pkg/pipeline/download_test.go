package pipeline_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/pipeline"
)

func untar(b []byte) map[string]string {
	gz, err := gzip.NewReader(bytes.NewReader(b))
	Expect(err).NotTo(HaveOccurred())
	tr := tar.NewReader(gz)

	out := map[string]string{}
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		Expect(err).NotTo(HaveOccurred())
		data, err := io.ReadAll(tr)
		Expect(err).NotTo(HaveOccurred())
		out[hdr.Name] = string(data)
	}
}

var _ = Describe("Download", func() {
	var (
		ctx context.Context
		h   *harness
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = newHarness()
	})

	It("requires a project id", func() {
		Expect(h.pipe.Download(ctx, "", io.Discard)).To(MatchError(pipeline.ErrValidation))
	})

	It("archives the repo pack with relative paths", func() {
		id := h.synthesized("x")
		_, err := h.pipe.Bootstrap(ctx, owner, id, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())

		var buf bytes.Buffer
		Expect(h.pipe.Download(ctx, id, &buf)).To(Succeed())
		Expect(untar(buf.Bytes())).To(Equal(map[string]string{
			"THESIS.md":     "# Thesis",
			"docs/TASKS.md": "- build it",
		}))
	})

	It("ignores other projects", func() {
		a := h.synthesized("a")
		_, err := h.pipe.Bootstrap(ctx, owner, a, pipeline.StageOptions{})
		Expect(err).NotTo(HaveOccurred())
		b := h.brainstorm("b")

		var buf bytes.Buffer
		Expect(h.pipe.Download(ctx, b, &buf)).To(Succeed())
		Expect(untar(buf.Bytes())).To(BeEmpty())
	})

	It("produces a valid empty archive for an unknown project", func() {
		var buf bytes.Buffer
		Expect(h.pipe.Download(ctx, "nothing-here", &buf)).To(Succeed())
		Expect(untar(buf.Bytes())).To(BeEmpty())
	})
})
