package sessionscmder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	sessionscmder "github.com/papercomputeco/relay/cmd/relay/sessions"
	"github.com/papercomputeco/relay/pkg/storage"
	"github.com/papercomputeco/relay/pkg/storage/sqlite"
	"github.com/papercomputeco/relay/pkg/storage/storagetest"
)

var _ = Describe("Sessions Command", func() {
	var (
		tmpDir string
		dbPath string
		out    *bytes.Buffer
		recs   []*storage.SessionRecord
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "relay.db")
		out = &bytes.Buffer{}

		ctx := context.Background()
		driver, err := sqlite.NewSQLiteDriver(ctx, dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer driver.Close()

		now := time.Now()
		recs = []*storage.SessionRecord{
			storagetest.NewRecord(now.Add(-2 * time.Minute)),
			storagetest.NewRecord(now.Add(-time.Minute)),
		}
		recs[1].Outcome = "failed"
		recs[1].Error = "Anthropic API request failed with status 529: overloaded"
		for _, rec := range recs {
			Expect(driver.Put(ctx, rec)).To(Succeed())
		}
	})

	newCmd := func(args ...string) *cobra.Command {
		cmd := sessionscmder.NewSessionsCmd()
		cmd.PersistentFlags().String("config-dir", "", "")
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--config-dir", tmpDir, "--sqlite", dbPath))
		return cmd
	}

	It("lists sessions newest first", func() {
		Expect(newCmd().Execute()).To(Succeed())

		listing := out.String()
		Expect(listing).To(ContainSubstring(recs[0].ID))
		Expect(listing).To(ContainSubstring(recs[1].ID))
		Expect(strings.Index(listing, recs[1].ID)).To(BeNumerically("<", strings.Index(listing, recs[0].ID)))
	})

	It("honors --limit", func() {
		Expect(newCmd("--limit", "1").Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring(recs[1].ID))
		Expect(out.String()).NotTo(ContainSubstring(recs[0].ID))
	})

	It("writes JSON lines", func() {
		Expect(newCmd("--json").Execute()).To(Succeed())

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		Expect(lines).To(HaveLen(2))

		var got storage.SessionRecord
		Expect(json.Unmarshal([]byte(lines[0]), &got)).To(Succeed())
		Expect(got.ID).To(Equal(recs[1].ID))
		Expect(got.Outcome).To(Equal("failed"))
	})

	It("shows one session in detail", func() {
		Expect(newCmd(recs[1].ID).Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("status 529"))
		Expect(out.String()).To(ContainSubstring("prompt_tokens"))
	})

	It("reports an unknown session", func() {
		Expect(newCmd("missing-session").Execute()).To(MatchError(ContainSubstring("no session")))
	})
})
