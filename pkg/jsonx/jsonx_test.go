package jsonx_test

import (
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/factory/pkg/jsonx"
)

var _ = Describe("Extract", func() {
	It("unwraps a json fence", func() {
		Expect(jsonx.Extract("```json\n{\"a\":1}\n```")).To(Equal(`{"a":1}`))
	})

	It("unwraps a bare fence with surrounding prose", func() {
		in := "Here you go:\n```\n{\"a\":1}\n```\nHope that helps."
		Expect(jsonx.Extract(in)).To(Equal(`{"a":1}`))
	})

	It("keeps nested fences inside the payload", func() {
		in := "```json\n{\"files\":[{\"path\":\"README.md\",\"content\":\"```go\\nfmt.Println()\\n```\"}]}\n```"
		Expect(jsonx.Extract(in)).To(Equal("{\"files\":[{\"path\":\"README.md\",\"content\":\"```go\\nfmt.Println()\\n```\"}]}"))
	})

	It("falls back to the brace span", func() {
		Expect(jsonx.Extract(`Sure! {"ok": true} Let me know.`)).To(Equal(`{"ok": true}`))
	})

	It("picks an array when it opens first", func() {
		Expect(jsonx.Extract(`result: [{"a":1},{"b":2}] done`)).To(Equal(`[{"a":1},{"b":2}]`))
	})

	It("returns the text unchanged when nothing looks like JSON", func() {
		Expect(jsonx.Extract("no json here")).To(Equal("no json here"))
	})

	It("ignores a fence with no line break", func() {
		Expect(jsonx.Extract("``` {\"a\":1}")).To(Equal(`{"a":1}`))
	})
})

var _ = Describe("Decode", func() {
	DescribeTable("round-trips fenced documents",
		func(doc string) {
			var want, got any
			Expect(json.Unmarshal([]byte(doc), &want)).To(Succeed())
			Expect(jsonx.Decode("```json\n"+doc+"\n```", &got)).To(Succeed())
			Expect(got).To(Equal(want))
		},
		Entry("object", `{"thesis":"x","tasks":[1,2,3]}`),
		Entry("array", `[{"kind":"fact","text":"t"}]`),
		Entry("back-ticks in strings", "{\"content\":\"```md\\n# hi\\n``` and ``` again\"}"),
		Entry("empty object", `{}`),
	)

	It("retries with the brace span when the fenced candidate is broken", func() {
		in := "```\nnot json\n``` but actually {\"a\":1}"
		var got map[string]any
		Expect(jsonx.Decode(in, &got)).To(Succeed())
		Expect(got).To(HaveKeyWithValue("a", BeNumerically("==", 1)))
	})

	It("returns ErrNoJSON when nothing parses", func() {
		var got map[string]any
		err := jsonx.Decode("I could not produce JSON today.", &got)
		Expect(errors.Is(err, jsonx.ErrNoJSON)).To(BeTrue())
	})
})

var _ = Describe("ParseFailure", func() {
	It("builds the error document", func() {
		doc := jsonx.ParseFailure(jsonx.SynthesisParseFailed, "raw text", "local")
		Expect(doc).To(Equal(map[string]any{
			"error":    "SYNTHESIS_JSON_PARSE_FAILED",
			"raw":      "raw text",
			"provider": "local",
		}))
		Expect(jsonx.HasError(doc)).To(BeTrue())
	})

	It("only reports errors on objects with an error key", func() {
		Expect(jsonx.HasError(map[string]any{"thesis": "x"})).To(BeFalse())
		Expect(jsonx.HasError([]any{})).To(BeFalse())
	})
})
