package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/relay/cmd/relay/config"
	"github.com/papercomputeco/relay/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir string
		out    *bytes.Buffer
	)

	newCmd := func(args ...string) *cobra.Command {
		cmd := configcmder.NewConfigCmd()
		cmd.PersistentFlags().String("config-dir", "", "Override path to .relay/ config directory")
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(append(args, "--config-dir", tmpDir))
		return cmd
	}

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		out = &bytes.Buffer{}
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(newCmd("set", "upstream.provider", "openai").Execute()).To(Succeed())

			_, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())

			cfger, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			value, err := cfger.GetConfigValue("upstream.provider")
			Expect(err).NotTo(HaveOccurred())
			Expect(value).To(Equal("openai"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd("set", "invalid_key", "value").Execute()).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(newCmd("set", "upstream.provider").Execute()).To(HaveOccurred())
		})

		It("rejects invalid uint values", func() {
			Expect(newCmd("set", "upstream.chunk_size", "not-a-number").Execute()).To(HaveOccurred())
		})

		It("rejects invalid durations", func() {
			Expect(newCmd("set", "upstream.read_timeout", "forever").Execute()).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(newCmd("set", "server.listen", ":9090").Execute()).To(Succeed())
			out.Reset()

			Expect(newCmd("get", "server.listen").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":9090"))
		})

		It("shows defaults for an unset file", func() {
			Expect(newCmd("get", "upstream.anthropic_url").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("https://api.anthropic.com"))
		})

		It("rejects unknown keys", func() {
			Expect(newCmd("get", "invalid_key").Execute()).To(HaveOccurred())
		})

		It("requires exactly one argument", func() {
			Expect(newCmd("get").Execute()).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(newCmd("list").Execute()).To(Succeed())
			for _, key := range config.ValidConfigKeys() {
				Expect(out.String()).To(ContainSubstring(key))
			}
		})

		It("marks unset values", func() {
			Expect(newCmd("list").Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects any arguments", func() {
			Expect(newCmd("list", "extra").Execute()).To(HaveOccurred())
		})
	})
})
