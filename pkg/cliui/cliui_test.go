package cliui_test

import (
	"bytes"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/cliui"
)

var _ = Describe("FormatDuration", func() {
	It("formats sub-second durations in milliseconds", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
	})

	It("formats longer durations in seconds", func() {
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})
})

var _ = Describe("Mark", func() {
	It("distinguishes success from failure", func() {
		Expect(cliui.Mark(nil)).To(Equal(cliui.SuccessMark))
		Expect(cliui.Mark(errors.New("boom"))).To(Equal(cliui.FailMark))
	})
})

var _ = Describe("Spinner", func() {
	It("clears its line on Stop and tolerates repeated stops", func() {
		var buf bytes.Buffer
		s := cliui.StartSpinner(&buf, "waiting")
		s.Stop()
		s.Stop()

		Expect(buf.String()).To(ContainSubstring("waiting"))
		Expect(buf.String()).To(HaveSuffix("\r\033[K"))
	})

	It("is a no-op when nil", func() {
		var s *cliui.Spinner
		Expect(s.Stop).NotTo(Panic())
	})
})

var _ = Describe("Outcome", func() {
	It("prints the mark, label and elapsed time", func() {
		var buf bytes.Buffer
		cliui.Outcome(&buf, errors.New("boom"), "OpenAI", 1500*time.Millisecond)

		Expect(buf.String()).To(ContainSubstring(cliui.FailMark))
		Expect(buf.String()).To(ContainSubstring("OpenAI"))
		Expect(buf.String()).To(ContainSubstring("1.5s"))
	})
})

var _ = Describe("IsTerminal", func() {
	It("is false for buffers", func() {
		Expect(cliui.IsTerminal(&bytes.Buffer{})).To(BeFalse())
	})
})

var _ = Describe("KeyValue", func() {
	It("renders the key and value", func() {
		line := cliui.KeyValue("server.listen", ":8080", 20)
		Expect(line).To(ContainSubstring("server.listen"))
		Expect(line).To(ContainSubstring(":8080"))
	})

	It("marks unset values", func() {
		Expect(cliui.KeyValue("storage.sqlite_path", "", 20)).To(ContainSubstring("<not set>"))
	})
})

var _ = Describe("RenderMarkdown", func() {
	It("keeps the text content", func() {
		out, err := cliui.RenderMarkdown("# Title\n\nHello **world**")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Title"))
		Expect(out).To(ContainSubstring("world"))
	})
})
