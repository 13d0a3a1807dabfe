package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/relay/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the RELAY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (RELAY_SERVER_LISTEN, RELAY_UPSTREAM_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: RELAY_SERVER_LISTEN, RELAY_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Upstream
	v.SetDefault("upstream.provider", d.Upstream.Provider)
	v.SetDefault("upstream.anthropic_url", d.Upstream.AnthropicURL)
	v.SetDefault("upstream.openai_url", d.Upstream.OpenAIURL)
	v.SetDefault("upstream.connect_timeout", d.Upstream.ConnectTimeout)
	v.SetDefault("upstream.read_timeout", d.Upstream.ReadTimeout)
	v.SetDefault("upstream.chunk_size", d.Upstream.ChunkSize)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.api_listen", d.Server.APIListen)

	// Storage
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Event stream
	v.SetDefault("eventstream.kafka_brokers", d.EventStream.KafkaBrokers)
	v.SetDefault("eventstream.kafka_topic", d.EventStream.KafkaTopic)
}

// FromViper builds a Config from the resolved values of v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Upstream: UpstreamConfig{
			Provider:       v.GetString("upstream.provider"),
			AnthropicURL:   v.GetString("upstream.anthropic_url"),
			OpenAIURL:      v.GetString("upstream.openai_url"),
			ConnectTimeout: v.GetString("upstream.connect_timeout"),
			ReadTimeout:    v.GetString("upstream.read_timeout"),
			ChunkSize:      v.GetUint("upstream.chunk_size"),
		},
		Server: ServerConfig{
			Listen:    v.GetString("server.listen"),
			APIListen: v.GetString("server.api_listen"),
		},
		Storage: StorageConfig{
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		EventStream: EventStreamConfig{
			KafkaBrokers: v.GetString("eventstream.kafka_brokers"),
			KafkaTopic:   v.GetString("eventstream.kafka_topic"),
		},
	}
}
