package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const dotEnvFile = ".env"

// ErrNoKey is returned by Resolve when neither the environment nor
// credentials.toml holds a key for the provider.
var ErrNoKey = errors.New("no API key configured")

// Resolve returns the API key for provider. The provider's environment
// variable takes precedence over the key stored in credentials.toml.
func (m *Manager) Resolve(provider string) (string, error) {
	if env := EnvVarForProvider(provider); env != "" {
		if key := strings.TrimSpace(os.Getenv(env)); key != "" {
			return key, nil
		}
	}

	key, err := m.GetKey(provider)
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%w for %s: set %s or store one in %s",
			ErrNoKey, provider, EnvVarForProvider(provider), m.targetPath)
	}

	return key, nil
}

// LoadDotEnv loads the first .env file found walking up from dir into the
// process environment. Variables that are already set are left untouched.
// It returns the path of the loaded file, or "" when none was found.
func LoadDotEnv(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}

	for {
		path := filepath.Join(dir, dotEnvFile)
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err != nil {
				return "", fmt.Errorf("loading %s: %w", path, err)
			}
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Redact returns a log-safe rendition of an API key that keeps only enough
// of it to tell keys apart.
func Redact(key string) string {
	const keep = 4

	if len(key) <= 3*keep {
		return strings.Repeat("*", len(key))
	}

	return key[:keep] + "..." + key[len(key)-keep:]
}
