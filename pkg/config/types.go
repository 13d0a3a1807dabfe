package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent relay configuration stored as config.toml
// in the .relay/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Upstream    UpstreamConfig    `toml:"upstream"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// UpstreamConfig holds provider endpoint and transport settings.
// Durations are Go duration strings (e.g. "10s").
type UpstreamConfig struct {
	Provider       string `toml:"provider,omitempty"`
	AnthropicURL   string `toml:"anthropic_url,omitempty"`
	OpenAIURL      string `toml:"openai_url,omitempty"`
	ConnectTimeout string `toml:"connect_timeout,omitempty"`
	ReadTimeout    string `toml:"read_timeout,omitempty"`
	ChunkSize      uint   `toml:"chunk_size,omitempty"`
}

// Timeouts parses the connect and read timeouts. An empty value is zero.
func (u UpstreamConfig) Timeouts() (connect, read time.Duration, err error) {
	connect, err = parseDuration("upstream.connect_timeout", u.ConnectTimeout)
	if err != nil {
		return 0, 0, err
	}
	read, err = parseDuration("upstream.read_timeout", u.ReadTimeout)
	if err != nil {
		return 0, 0, err
	}
	return connect, read, nil
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	if err := validateDuration(key, v); err != nil {
		return 0, err
	}
	return time.ParseDuration(v)
}

// ServerConfig holds relay server settings.
type ServerConfig struct {
	Listen    string `toml:"listen,omitempty"`
	APIListen string `toml:"api_listen,omitempty"`
}

// StorageConfig holds session record storage settings. At most one backend
// is used; PostgresDSN wins over SQLitePath. With neither set, records are
// kept in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig holds completed session event publishing settings.
// Publishing is disabled while KafkaBrokers is empty.
type EventStreamConfig struct {
	// KafkaBrokers is a comma separated list of host:port addresses.
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// Brokers splits KafkaBrokers, dropping blanks.
func (e EventStreamConfig) Brokers() []string {
	var brokers []string
	for b := range strings.SplitSeq(e.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// configKey binds a user-facing dotted key name to a getter and setter on
// *Config. Keys use dotted notation matching the TOML section structure.
type configKey struct {
	name string
	get  func(c *Config) string
	set  func(c *Config, v string) error
}

func stringKey(name string, field func(c *Config) *string) configKey {
	return configKey{
		name: name,
		get:  func(c *Config) string { return *field(c) },
		set:  func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func durationKey(name string, field func(c *Config) *string) configKey {
	k := stringKey(name, field)
	k.set = func(c *Config, v string) error {
		if err := validateDuration(name, v); err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
	return k
}

// configKeys lists every supported key in TOML section order.
var configKeys = []configKey{
	stringKey("upstream.provider", func(c *Config) *string { return &c.Upstream.Provider }),
	stringKey("upstream.anthropic_url", func(c *Config) *string { return &c.Upstream.AnthropicURL }),
	stringKey("upstream.openai_url", func(c *Config) *string { return &c.Upstream.OpenAIURL }),
	durationKey("upstream.connect_timeout", func(c *Config) *string { return &c.Upstream.ConnectTimeout }),
	durationKey("upstream.read_timeout", func(c *Config) *string { return &c.Upstream.ReadTimeout }),
	{
		name: "upstream.chunk_size",
		get: func(c *Config) string {
			if c.Upstream.ChunkSize == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Upstream.ChunkSize), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for upstream.chunk_size: %w", err)
			}
			c.Upstream.ChunkSize = uint(n)
			return nil
		},
	},
	stringKey("server.listen", func(c *Config) *string { return &c.Server.Listen }),
	stringKey("server.api_listen", func(c *Config) *string { return &c.Server.APIListen }),
	stringKey("storage.sqlite_path", func(c *Config) *string { return &c.Storage.SQLitePath }),
	stringKey("storage.postgres_dsn", func(c *Config) *string { return &c.Storage.PostgresDSN }),
	stringKey("eventstream.kafka_brokers", func(c *Config) *string { return &c.EventStream.KafkaBrokers }),
	stringKey("eventstream.kafka_topic", func(c *Config) *string { return &c.EventStream.KafkaTopic }),
}

func lookupKey(name string) (configKey, bool) {
	for _, k := range configKeys {
		if k.name == name {
			return k, true
		}
	}
	return configKey{}, false
}

func validateDuration(key, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("invalid value for %s: must not be negative", key)
	}
	return nil
}
