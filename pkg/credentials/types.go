package credentials

import "time"

// Credentials is the on-disk layout of credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential is the stored key of one upstream provider.
type ProviderCredential struct {
	APIKey    string     `toml:"api_key"`
	UpdatedAt *time.Time `toml:"updated_at,omitempty"`
}

// Entry is a stored credential as reported by Manager.Entries.
type Entry struct {
	Provider  string
	APIKey    string
	EnvVar    string
	UpdatedAt time.Time
}
