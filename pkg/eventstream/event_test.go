package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/eventstream"
	"github.com/papercomputeco/relay/pkg/storage"
)

var _ = Describe("Event", func() {
	It("marshals SessionCompletedEvent with expected top-level keys", func() {
		event := eventstream.NewSessionCompletedEvent(&storage.SessionRecord{
			ID:        "s-1",
			Provider:  "openai",
			Model:     "gpt-4.1",
			Outcome:   "completed",
			StartedAt: time.Unix(1735689600, 0).UTC(),
			Duration:  2 * time.Second,
		}, "/v1/streams/openai")

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("session"))

		session := got["session"].(map[string]any)
		Expect(session["id"]).To(Equal("s-1"))
		Expect(session["outcome"]).To(Equal("completed"))
		Expect(got["source"]).To(HaveKeyWithValue("provider", "openai"))
	})

	It("assigns a unique id to every event", func() {
		rec := &storage.SessionRecord{ID: "s-1", Provider: "anthropic"}
		first := eventstream.NewSessionCompletedEvent(rec, "")
		second := eventstream.NewSessionCompletedEvent(rec, "")
		Expect(first.EventID).NotTo(Equal(second.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeSessionCompleted).To(Equal("relay.session.completed"))
	})

	Describe("Validate", func() {
		It("accepts an event for a stored session", func() {
			event := eventstream.NewSessionCompletedEvent(&storage.SessionRecord{ID: "s-1"}, "")
			Expect(event.Validate()).To(Succeed())
		})

		It("rejects a nil event", func() {
			var event *eventstream.SessionCompletedEvent
			Expect(event.Validate()).To(MatchError(eventstream.ErrNilSessionEvent))
		})

		It("rejects an event without a session id", func() {
			event := eventstream.NewSessionCompletedEvent(&storage.SessionRecord{Provider: "openai"}, "")
			Expect(event.Validate()).To(MatchError(eventstream.ErrMissingSessionID))
		})
	})
})
