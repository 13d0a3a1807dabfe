// Package storagetest holds the behavior every storage.Driver must share,
// as ginkgo specs each driver package runs against its own backend.
package storagetest

import (
	"context"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/relay/pkg/storage"
)

// NewRecord returns a completed session record with a random ID.
func NewRecord(startedAt time.Time) *storage.SessionRecord {
	return &storage.SessionRecord{
		ID:               uuid.NewString(),
		Provider:         "anthropic",
		Model:            "claude-3-5-sonnet-20241022",
		Outcome:          "completed",
		FinishReason:     "stop",
		TextDeltas:       12,
		PromptTokens:     25,
		CompletionTokens: 40,
		StartedAt:        startedAt.UTC().Truncate(time.Millisecond),
		Duration:         1500 * time.Millisecond,
	}
}

// DescribeDriver registers the shared driver specs. newDriver is called
// before every test and the driver it returns is closed after it.
func DescribeDriver(newDriver func(ctx context.Context) storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = newDriver(ctx)
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("Put and Get", func() {
		It("stores and retrieves a record", func() {
			rec := NewRecord(time.Now())
			Expect(driver.Put(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(rec.ID))
			Expect(got.Provider).To(Equal(rec.Provider))
			Expect(got.Model).To(Equal(rec.Model))
			Expect(got.Outcome).To(Equal(rec.Outcome))
			Expect(got.FinishReason).To(Equal("stop"))
			Expect(got.TextDeltas).To(Equal(12))
			Expect(got.PromptTokens).To(Equal(25))
			Expect(got.CompletionTokens).To(Equal(40))
			Expect(got.StartedAt.Equal(rec.StartedAt)).To(BeTrue())
			Expect(got.Duration).To(Equal(1500 * time.Millisecond))
		})

		It("replaces a record with the same ID", func() {
			rec := NewRecord(time.Now())
			Expect(driver.Put(ctx, rec)).To(Succeed())

			rec.Outcome = "failed"
			rec.Error = "upstream read failed: unexpected EOF"
			Expect(driver.Put(ctx, rec)).To(Succeed())

			got, err := driver.Get(ctx, rec.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Outcome).To(Equal("failed"))
			Expect(got.Error).To(Equal("upstream read failed: unexpected EOF"))
		})

		It("returns NotFoundError for an unknown ID", func() {
			_, err := driver.Get(ctx, "missing")
			Expect(err).To(MatchError(storage.NotFoundError{ID: "missing"}))
		})

		It("rejects a nil record", func() {
			Expect(driver.Put(ctx, nil)).To(MatchError(storage.ErrNilRecord))
		})
	})

	Describe("List", func() {
		It("returns records newest first up to the limit", func() {
			base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
			oldest := NewRecord(base)
			middle := NewRecord(base.Add(time.Minute))
			newest := NewRecord(base.Add(2 * time.Minute))

			for _, rec := range []*storage.SessionRecord{middle, oldest, newest} {
				Expect(driver.Put(ctx, rec)).To(Succeed())
			}

			all, err := driver.List(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
			Expect([]string{all[0].ID, all[1].ID, all[2].ID}).To(Equal([]string{newest.ID, middle.ID, oldest.ID}))

			limited, err := driver.List(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(limited).To(HaveLen(2))
			Expect(limited[0].ID).To(Equal(newest.ID))
		})

		It("returns an empty list for an empty store", func() {
			all, err := driver.List(ctx, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(BeEmpty())
		})
	})

	Describe("Stats", func() {
		It("aggregates by provider and outcome", func() {
			base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
			failed := NewRecord(base)
			failed.Provider = "openai"
			failed.Outcome = "failed"
			failed.DecodeFailures = 2

			for _, rec := range []*storage.SessionRecord{NewRecord(base), NewRecord(base.Add(time.Second)), failed} {
				Expect(driver.Put(ctx, rec)).To(Succeed())
			}

			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(Equal(3))
			Expect(stats.ByOutcome).To(Equal(map[string]int{"completed": 2, "failed": 1}))
			Expect(stats.ByProvider).To(Equal(map[string]int{"anthropic": 2, "openai": 1}))
			Expect(stats.TextDeltas).To(Equal(36))
			Expect(stats.DecodeFailures).To(Equal(2))
			Expect(stats.PromptTokens).To(Equal(75))
			Expect(stats.CompletionTokens).To(Equal(120))
		})

		It("is zero for an empty store", func() {
			stats, err := driver.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats.Total).To(BeZero())
			Expect(stats.ByOutcome).To(BeEmpty())
		})
	})
}
