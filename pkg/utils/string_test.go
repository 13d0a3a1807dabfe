package utils

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Truncate", func() {
	It("keeps strings within the limit", func() {
		Expect(Truncate("claude-sonnet-4-5", 32)).To(Equal("claude-sonnet-4-5"))
		Expect(Truncate("12345", 5)).To(Equal("12345"))
	})

	It("cuts long strings with an ellipsis", func() {
		Expect(Truncate("this is a long string", 10)).To(Equal("this is a ..."))
	})

	It("never splits a multi-byte rune", func() {
		Expect(Truncate("héllo wörld", 7)).To(Equal("héllo w..."))
	})
})

var _ = Describe("Version", func() {
	It("derives the user agent from the version", func() {
		Expect(UserAgent()).To(Equal("relay/" + Version))
	})

	It("summarizes the build", func() {
		Expect(VersionInfo()).To(ContainSubstring("Version: " + Version))
		Expect(VersionInfo()).To(ContainSubstring("Sha: " + Sha))
	})
})
