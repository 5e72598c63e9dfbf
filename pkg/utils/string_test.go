package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Head", func() {
	It("keeps the first n runes", func() {
		Expect(Head("日本語テキスト", 3)).To(Equal("日本語"))
	})

	It("returns short input unchanged", func() {
		Expect(Head("abc", 6000)).To(Equal("abc"))
	})

	It("returns empty for non-positive n", func() {
		Expect(Head("abc", 0)).To(BeEmpty())
	})
})
