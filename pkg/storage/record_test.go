package storage_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/storage"
	"github.com/papercomputeco/relay/pkg/stream"
)

var _ = Describe("NewSessionRecord", func() {
	It("summarizes a session result", func() {
		started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
		rec := storage.NewSessionRecord(&stream.Result{
			SessionID:      "s-1",
			Provider:       "openai",
			Model:          "gpt-4o",
			Outcome:        stream.OutcomeFailed,
			FinishReason:   "length",
			Usage:          &llm.Usage{PromptTokens: 3, CompletionTokens: 9},
			Events:         map[llm.StreamEventKind]int{llm.KindTextDelta: 4, llm.KindStreamError: 1},
			DecodeFailures: 1,
			Error:          "upstream read failed: EOF",
			StartedAt:      started,
			Duration:       2 * time.Second,
		})

		Expect(rec.ID).To(Equal("s-1"))
		Expect(rec.Outcome).To(Equal("failed"))
		Expect(rec.TextDeltas).To(Equal(4))
		Expect(rec.ErrorEvents).To(Equal(1))
		Expect(rec.DecodeFailures).To(Equal(1))
		Expect(rec.PromptTokens).To(Equal(3))
		Expect(rec.CompletionTokens).To(Equal(9))
		Expect(rec.StartedAt.Location()).To(Equal(time.UTC))
		Expect(rec.StartedAt.Equal(started)).To(BeTrue())
	})

	It("formats NotFoundError with and without an ID", func() {
		Expect(storage.NotFoundError{}.Error()).To(Equal("session not found"))
		Expect(storage.NotFoundError{ID: "x"}.Error()).To(Equal("session not found: x"))
	})
})
