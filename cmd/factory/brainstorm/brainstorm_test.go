package brainstormcmder_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	brainstormcmder "github.com/papercomputeco/factory/cmd/factory/brainstorm"
	"github.com/papercomputeco/factory/pkg/pipeline"
	"github.com/papercomputeco/factory/pkg/provider"
)

var _ = Describe("PrintResults", func() {
	It("names the outcome when a result has no text", func() {
		var buf bytes.Buffer
		brainstormcmder.PrintResults(&buf, &pipeline.BrainstormOutput{
			ProjectID: "p1",
			RunID:     "r1",
			Results: []provider.Result{
				{Provider: provider.Grok, Outcome: provider.OutcomeTimeout},
				{Provider: provider.Gemini, Outcome: provider.OutcomeError},
			},
		})

		out := buf.String()
		Expect(out).To(ContainSubstring("timeout"))
		Expect(out).To(ContainSubstring("error"))
		Expect(out).NotTo(ContainSubstring("\x03"))
	})

	It("collapses multi-line text onto one line", func() {
		var buf bytes.Buffer
		brainstormcmder.PrintResults(&buf, &pipeline.BrainstormOutput{
			ProjectID: "p1",
			RunID:     "r1",
			Results: []provider.Result{
				provider.OK(provider.Anthropic, "first line\n\nsecond   line", nil),
			},
		})
		Expect(buf.String()).To(ContainSubstring("first line second line"))
	})

	It("requires an idea", func() {
		cmd := brainstormcmder.NewBrainstormCmd()
		cmd.SetArgs([]string{})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		Expect(cmd.Execute()).To(HaveOccurred())
	})
})
