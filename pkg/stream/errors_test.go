package stream_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/stream"
)

var _ = Describe("IsFatal", func() {
	DescribeTable("classifies errors",
		func(err error, fatal bool) {
			Expect(stream.IsFatal(err)).To(Equal(fatal))
		},
		Entry("nil", nil, false),
		Entry("transport", &stream.TransportError{Op: "read", Err: errors.New("reset")}, true),
		Entry("read timeout", &stream.TransportError{Op: "read", Err: stream.ErrReadTimeout}, true),
		Entry("status", &stream.StatusError{Provider: "OpenAI", Code: 500}, true),
		Entry("emit", &stream.EmitError{Err: errors.New("closed")}, true),
		Entry("wrapped emit", fmt.Errorf("session: %w", &stream.EmitError{Err: errors.New("closed")}), true),
		Entry("cancelled", context.Canceled, false),
		Entry("deadline", context.DeadlineExceeded, false),
	)

	It("formats the status failure message", func() {
		err := &stream.StatusError{Provider: "Anthropic", Code: 401, Body: `{"error":"unauthorized"}`}
		Expect(err.Error()).To(Equal(`Anthropic API request failed with status 401: {"error":"unauthorized"}`))
	})

	It("unwraps the transport cause", func() {
		err := &stream.TransportError{Op: "read", Err: stream.ErrReadTimeout}
		Expect(errors.Is(err, stream.ErrReadTimeout)).To(BeTrue())
	})
})
