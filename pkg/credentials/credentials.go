// Package credentials stores upstream provider API keys in the .relay/
// directory and resolves the key the relay authenticates with.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/relay/pkg/dotdir"
	"github.com/papercomputeco/relay/pkg/llm/provider"
)

const (
	credentialsFile = "credentials.toml"

	currentVersion = 1
)

var (
	// ErrUnsupportedProvider is returned when storing a key for a provider
	// the relay cannot route.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrEmptyKey is returned when storing a blank key.
	ErrEmptyKey = errors.New("API key cannot be empty")
)

// Manager reads and writes credentials.toml.
type Manager struct {
	targetPath string
	now        func() time.Time
}

// NewManager creates a Manager. A non-empty override is used as the .relay/
// directory; otherwise the dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	path, err := dotdir.NewManager().Path(override, credentialsFile)
	if err != nil {
		return nil, err
	}

	return &Manager{targetPath: path, now: time.Now}, nil
}

// Load reads credentials.toml. A missing file yields empty Credentials.
func (m *Manager) Load() (*Credentials, error) {
	creds := &Credentials{Version: currentVersion}

	data, err := os.ReadFile(m.targetPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading credentials: %w", err)
	default:
		if err := toml.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", m.targetPath, err)
		}
	}

	if creds.Providers == nil {
		creds.Providers = make(map[string]ProviderCredential)
	}
	return creds, nil
}

// Save writes credentials.toml readable by the owner only.
func (m *Manager) Save(creds *Credentials) error {
	if creds == nil {
		return errors.New("cannot save nil credentials")
	}
	creds.Version = currentVersion

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(creds); err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(m.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// update loads the file, applies fn and saves the result.
func (m *Manager) update(fn func(*Credentials) error) error {
	creds, err := m.Load()
	if err != nil {
		return err
	}
	if err := fn(creds); err != nil {
		return err
	}
	return m.Save(creds)
}

// SetKey stores key for provider, replacing any previous key.
func (m *Manager) SetKey(name, key string) error {
	if !IsSupportedProvider(name) {
		return fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}

	return m.update(func(creds *Credentials) error {
		now := m.now().UTC().Truncate(time.Second)
		creds.Providers[name] = ProviderCredential{APIKey: key, UpdatedAt: &now}
		return nil
	})
}

// GetKey returns the stored key for provider, or "" when none is stored.
func (m *Manager) GetKey(name string) (string, error) {
	creds, err := m.Load()
	if err != nil {
		return "", err
	}
	return creds.Providers[name].APIKey, nil
}

// RemoveKey deletes the stored key for provider. It fails with ErrNoKey when
// nothing is stored.
func (m *Manager) RemoveKey(name string) error {
	return m.update(func(creds *Credentials) error {
		if _, ok := creds.Providers[name]; !ok {
			return fmt.Errorf("%w for %s in %s", ErrNoKey, name, m.targetPath)
		}
		delete(creds.Providers, name)
		return nil
	})
}

// Entries returns the stored credentials sorted by provider name.
func (m *Manager) Entries() ([]Entry, error) {
	creds, err := m.Load()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(creds.Providers))
	for name, pc := range creds.Providers {
		e := Entry{Provider: name, APIKey: pc.APIKey, EnvVar: EnvVarForProvider(name)}
		if pc.UpdatedAt != nil {
			e.UpdatedAt = *pc.UpdatedAt
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Provider, b.Provider)
	})
	return entries, nil
}

// GetTarget returns the resolved path to the credentials file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForProvider returns the environment variable that overrides the
// stored key, e.g. ANTHROPIC_API_KEY. Unknown providers yield "".
func EnvVarForProvider(name string) string {
	if !IsSupportedProvider(name) {
		return ""
	}
	return strings.ToUpper(name) + "_API_KEY"
}

// SupportedProviders returns the providers a key can be stored for.
func SupportedProviders() []string {
	return provider.SupportedProviders()
}

// IsSupportedProvider reports whether name is a routable provider.
func IsSupportedProvider(name string) bool {
	return provider.IsSupported(name)
}
