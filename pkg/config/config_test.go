package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/relay/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file", func() {
			data := `version = 0

[upstream]
provider = "openai"
openai_url = "http://localhost:9999"
read_timeout = "5s"

[storage]
sqlite_path = "/tmp/relay.db"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Upstream.Provider).To(Equal("openai"))
			Expect(cfg.Upstream.OpenAIURL).To(Equal("http://localhost:9999"))
			Expect(cfg.Upstream.ReadTimeout).To(Equal("5s"))
			Expect(cfg.Storage.SQLitePath).To(Equal("/tmp/relay.db"))
		})

		It("fills unset fields with defaults", func() {
			data := `[server]
listen = ":9090"
`
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Server.Listen).To(Equal(":9090"))
			Expect(cfg.Server.APIListen).To(Equal(defaults.Server.APIListen))
			Expect(cfg.Upstream).To(Equal(defaults.Upstream))
			Expect(cfg.EventStream.KafkaTopic).To(Equal(defaults.EventStream.KafkaTopic))
		})

		It("returns an error for invalid TOML", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[upstream\n"), 0o600)).To(Succeed())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("parsing config TOML")))
		})
	})

	Describe("SaveConfig", func() {
		It("writes a config that loads back unchanged", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Upstream.Provider = "openai"
			cfg.EventStream.KafkaBrokers = "localhost:9092"
			Expect(c.SaveConfig(cfg)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("rejects a nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})

		It("writes the file with owner-only permissions", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(config.NewDefaultConfig())).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("round-trips every string key", func() {
			values := map[string]string{
				"upstream.provider":         "openai",
				"upstream.anthropic_url":    "http://anthropic.local",
				"upstream.openai_url":       "http://openai.local",
				"server.listen":             ":7070",
				"server.api_listen":         ":7071",
				"storage.sqlite_path":       "relay.db",
				"storage.postgres_dsn":      "postgres://relay@localhost/relay",
				"eventstream.kafka_brokers": "a:9092,b:9092",
				"eventstream.kafka_topic":   "sessions",
			}

			for key, value := range values {
				Expect(c.SetConfigValue(key, value)).To(Succeed(), key)
			}
			for key, value := range values {
				got, err := c.GetConfigValue(key)
				Expect(err).NotTo(HaveOccurred())
				Expect(got).To(Equal(value), key)
			}
		})

		It("validates durations", func() {
			Expect(c.SetConfigValue("upstream.read_timeout", "90s")).To(Succeed())
			Expect(c.SetConfigValue("upstream.read_timeout", "soon")).To(MatchError(ContainSubstring("invalid value for upstream.read_timeout")))
			Expect(c.SetConfigValue("upstream.connect_timeout", "-1s")).To(MatchError(ContainSubstring("must not be negative")))

			got, err := c.GetConfigValue("upstream.read_timeout")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("90s"))
		})

		It("validates the chunk size", func() {
			Expect(c.SetConfigValue("upstream.chunk_size", "1024")).To(Succeed())
			Expect(c.SetConfigValue("upstream.chunk_size", "big")).To(HaveOccurred())

			got, err := c.GetConfigValue("upstream.chunk_size")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("1024"))
		})

		It("refuses values that leave the config invalid", func() {
			Expect(c.SetConfigValue("upstream.provider", "ollama")).To(MatchError(ContainSubstring("unsupported provider")))
			Expect(c.SetConfigValue("upstream.openai_url", "api.openai.com")).To(MatchError(ContainSubstring("not an http(s) URL")))
			Expect(c.SetConfigValue("server.api_listen", ":8080")).To(MatchError(ContainSubstring("both")))

			got, err := c.GetConfigValue("upstream.provider")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("anthropic"))
		})

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
			_, err := c.GetConfigValue("proxy.upstream")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("returns defaults for keys that were never set", func() {
			got, err := c.GetConfigValue("upstream.anthropic_url")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("https://api.anthropic.com"))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("lists every key in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(HaveLen(12))
			Expect(keys[0]).To(Equal("upstream.provider"))
			Expect(keys[len(keys)-1]).To(Equal("eventstream.kafka_topic"))

			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
			}
		})

		It("rejects unknown keys", func() {
			Expect(config.IsValidConfigKey("embedding.model")).To(BeFalse())
		})
	})
})

var _ = Describe("PresetConfig", func() {
	It("selects the provider", func() {
		cfg, err := config.PresetConfig("OpenAI")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Upstream.Provider).To(Equal("openai"))
		Expect(cfg.Upstream.OpenAIURL).To(Equal("https://api.openai.com"))
	})

	It("rejects unknown presets", func() {
		_, err := config.PresetConfig("ollama")
		Expect(err).To(MatchError(ContainSubstring("available: anthropic, openai")))
	})
})

var _ = Describe("UpstreamURL", func() {
	It("maps each provider to its base URL", func() {
		cfg := config.NewDefaultConfig()

		u, err := cfg.UpstreamURL("anthropic")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal("https://api.anthropic.com"))

		u, err = cfg.UpstreamURL("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal("https://api.openai.com"))

		_, err = cfg.UpstreamURL("ollama")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Validate", func() {
	It("accepts the defaults", func() {
		Expect(config.NewDefaultConfig().Validate()).To(Succeed())
	})

	It("accepts an empty config", func() {
		Expect((&config.Config{}).Validate()).To(Succeed())
	})

	It("reports every problem at once", func() {
		cfg := config.NewDefaultConfig()
		cfg.Upstream.Provider = "ollama"
		cfg.Upstream.AnthropicURL = "ftp://anthropic.local"
		cfg.Upstream.ReadTimeout = "later"

		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("unsupported provider")))
		Expect(err).To(MatchError(ContainSubstring("upstream.anthropic_url")))
		Expect(err).To(MatchError(ContainSubstring("upstream.read_timeout")))
	})

	It("allows both listeners on ephemeral ports", func() {
		cfg := config.NewDefaultConfig()
		cfg.Server.Listen = "127.0.0.1:0"
		cfg.Server.APIListen = "127.0.0.1:0"
		Expect(cfg.Validate()).To(Succeed())
	})
})

var _ = Describe("ParseConfigTOML", func() {
	It("rejects unsupported versions", func() {
		_, err := config.ParseConfigTOML([]byte("version = 7\n"))
		Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("upstream.provider")).To(Equal(defaults.Upstream.Provider))
		Expect(v.GetString("server.listen")).To(Equal(defaults.Server.Listen))
		Expect(v.GetDuration("upstream.read_timeout").Seconds()).To(Equal(60.0))
		Expect(v.GetInt("upstream.chunk_size")).To(Equal(4096))
	})

	It("reads config file values over defaults", func() {
		data := `[upstream]
provider = "openai"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("upstream.provider")).To(Equal("openai"))
		Expect(v.GetString("upstream.anthropic_url")).To(Equal("https://api.anthropic.com"))
	})

	It("env vars take precedence over config file values", func() {
		data := `[upstream]
provider = "anthropic"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("RELAY_UPSTREAM_PROVIDER", "openai")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("upstream.provider")).To(Equal("openai"))
	})
})

var _ = Describe("BindRegisteredFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via the registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("server.listen")).To(Equal(":7777"))
	})

	It("falls through to config when the flag is not set", func() {
		data := `[server]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.Flags, config.FlagListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.Flags, []string{config.FlagListen})

		Expect(v.GetString("server.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		config.BindRegisteredFlags(v, &cobra.Command{Use: "test"}, config.Flags, []string{"nonexistent"})
		Expect(v.GetString("server.listen")).To(Equal(":8080"))
	})

	It("AddStringFlag pulls name, shorthand, default and description from the registry", func() {
		cmd := &cobra.Command{Use: "test"}
		var provider string
		config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &provider)

		f := cmd.Flags().Lookup("provider")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("p"))
		Expect(f.DefValue).To(Equal("anthropic"))
		Expect(f.Usage).To(Equal(config.Flags[config.FlagProvider].Description))
	})

	It("AddUintFlag works for chunk-size", func() {
		cmd := &cobra.Command{Use: "test"}
		var size uint
		config.AddUintFlag(cmd, config.Flags, config.FlagChunkSize, &size)

		f := cmd.Flags().Lookup("chunk-size")
		Expect(f).NotTo(BeNil())
		Expect(f.DefValue).To(Equal("4096"))
	})
})

var _ = Describe("FromViper", func() {
	It("carries resolved values into a Config", func() {
		tmpDir := GinkgoT().TempDir()
		GinkgoT().Setenv("RELAY_EVENTSTREAM_KAFKA_BROKERS", "k1:9092, k2:9092,")
		GinkgoT().Setenv("RELAY_UPSTREAM_READ_TIMEOUT", "5s")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Upstream.Provider).To(Equal("anthropic"))
		Expect(cfg.Upstream.ChunkSize).To(Equal(uint(4096)))
		Expect(cfg.EventStream.Brokers()).To(Equal([]string{"k1:9092", "k2:9092"}))

		connect, read, err := cfg.Upstream.Timeouts()
		Expect(err).NotTo(HaveOccurred())
		Expect(connect.Seconds()).To(Equal(10.0))
		Expect(read.Seconds()).To(Equal(5.0))
	})
})

var _ = Describe("UpstreamConfig.Timeouts", func() {
	It("treats empty values as zero", func() {
		connect, read, err := config.UpstreamConfig{}.Timeouts()
		Expect(err).NotTo(HaveOccurred())
		Expect(connect).To(BeZero())
		Expect(read).To(BeZero())
	})

	It("rejects malformed durations", func() {
		_, _, err := config.UpstreamConfig{ReadTimeout: "soon"}.Timeouts()
		Expect(err).To(MatchError(ContainSubstring("upstream.read_timeout")))
	})
})

var _ = Describe("EventStreamConfig.Brokers", func() {
	It("is empty when unset", func() {
		Expect(config.EventStreamConfig{}.Brokers()).To(BeEmpty())
	})
})
