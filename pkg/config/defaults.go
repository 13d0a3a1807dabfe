package config

const (
	defaultProvider       = "anthropic"
	defaultAnthropicURL   = "https://api.anthropic.com"
	defaultOpenAIURL      = "https://api.openai.com"
	defaultConnectTimeout = "10s"
	defaultReadTimeout    = "60s"
	defaultChunkSize      = 4096

	defaultServerListen = ":8080"
	defaultAPIListen    = ":8081"

	defaultKafkaTopic = "relay.sessions"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Upstream: UpstreamConfig{
			Provider:       defaultProvider,
			AnthropicURL:   defaultAnthropicURL,
			OpenAIURL:      defaultOpenAIURL,
			ConnectTimeout: defaultConnectTimeout,
			ReadTimeout:    defaultReadTimeout,
			ChunkSize:      defaultChunkSize,
		},
		Server: ServerConfig{
			Listen:    defaultServerListen,
			APIListen: defaultAPIListen,
		},
		EventStream: EventStreamConfig{
			KafkaTopic: defaultKafkaTopic,
		},
	}
}
