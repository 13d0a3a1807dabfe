package anthropic_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/llm"
	"github.com/papercomputeco/relay/pkg/llm/provider"
	"github.com/papercomputeco/relay/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/relay/pkg/sse"
)

func parse(p provider.Provider, block string) ([]llm.StreamEvent, error) {
	return p.NewStreamDecoder().Decode(sse.Block(block).Parse())
}

var _ = Describe("StreamDecoder", func() {
	var p provider.Provider

	BeforeEach(func() {
		p = anthropic.New()
	})

	It("emits a start event for message_start", func() {
		events, err := parse(p, `event: message_start
data: {"type":"message_start","message":{"id":"msg_01","model":"claude-3-5-sonnet-20241022","role":"assistant","usage":{"input_tokens":25,"output_tokens":1}}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]llm.StreamEvent{llm.Start("msg_01", "claude-3-5-sonnet-20241022")}))
	})

	It("emits a text delta for content_block_delta", func() {
		events, err := parse(p, `event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]llm.StreamEvent{llm.TextDelta("Hi")}))
	})

	It("preserves whitespace and unicode in delta text", func() {
		events, err := parse(p, `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"  héllo\n"}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Text).To(Equal("  héllo\n"))
	})

	It("ignores non-text deltas", func() {
		events, err := parse(p, `data: {"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"a\""}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(BeEmpty())
	})

	It("emits a finish event with stop reason for message_stop", func() {
		events, err := parse(p, `event: message_stop
data: {"type":"message_stop"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(llm.KindStreamFinish))
		Expect(events[0].Finish.Reason).To(Equal(llm.FinishReasonStop))
		Expect(events[0].Finish.Usage).To(BeNil())
	})

	It("attaches the usage spread over message_start and message_delta to the finish", func() {
		dec := p.NewStreamDecoder()
		var events []llm.StreamEvent
		for _, block := range []string{
			`event: message_start
data: {"type":"message_start","message":{"id":"msg_01","model":"claude-3-5-sonnet-20241022","role":"assistant","usage":{"input_tokens":25,"output_tokens":1,"cache_read_input_tokens":3}}}`,
			`event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
			`event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":15}}`,
			`event: message_stop
data: {"type":"message_stop"}`,
		} {
			got, err := dec.Decode(sse.Block(block).Parse())
			Expect(err).NotTo(HaveOccurred())
			events = append(events, got...)
		}

		want := &llm.Usage{
			PromptTokens:         28,
			CompletionTokens:     15,
			TotalTokens:          43,
			CacheReadInputTokens: 3,
		}
		Expect(events).To(HaveLen(3))
		Expect(events[2]).To(Equal(llm.Finish(llm.FinishReasonStop, want)))
		Expect(dec.Usage()).To(Equal(want))
	})

	It("keeps usage separate per decoder", func() {
		first := p.NewStreamDecoder()
		_, err := first.Decode(sse.Block(`data: {"type":"message_delta","usage":{"output_tokens":9}}`).Parse())
		Expect(err).NotTo(HaveOccurred())

		Expect(first.Usage()).NotTo(BeNil())
		Expect(p.NewStreamDecoder().Usage()).To(BeNil())
	})

	It("emits a non-fatal error event for error payloads", func() {
		events, err := parse(p, `event: error
data: {"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]llm.StreamEvent{llm.Error("Anthropic API Error Event: [overloaded_error] Overloaded")}))
	})

	DescribeTable("emits nothing for informational events",
		func(block string) {
			events, err := parse(p, block)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(BeEmpty())
		},
		Entry("ping", `event: ping
data: {"type":"ping"}`),
		Entry("content_block_start", `data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		Entry("content_block_stop", `data: {"type":"content_block_stop","index":0}`),
		Entry("message_delta", `data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":15}}`),
		Entry("unknown type", `data: {"type":"brand_new_event"}`),
		Entry("comment only", `: keep-alive`),
		Entry("empty data", `data:`),
	)

	It("returns a decode error for malformed JSON", func() {
		events, err := parse(p, `data: {not json`)
		Expect(events).To(BeEmpty())

		var decodeErr *provider.DecodeError
		Expect(errors.As(err, &decodeErr)).To(BeTrue())
		Expect(decodeErr.Provider).To(Equal("anthropic"))
		Expect(decodeErr.Payload).To(Equal("{not json"))
	})
})
