package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/relay/pkg/dotdir"
	"github.com/papercomputeco/relay/pkg/llm/provider"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Configer reads and writes config.toml inside a .relay/ directory.
type Configer struct {
	targetPath string
}

// NewConfiger resolves config.toml under override, or the discovered .relay/
// directory when override is empty. The file itself need not exist yet.
func NewConfiger(override string) (*Configer, error) {
	path, err := dotdir.NewManager().Path(override, configFile)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return &Configer{targetPath: path}, nil
}

// ValidConfigKeys returns every supported key in TOML section order.
func ValidConfigKeys() []string {
	names := make([]string, len(configKeys))
	for i, k := range configKeys {
		names[i] = k.name
	}
	return names
}

// IsValidConfigKey reports whether key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := lookupKey(key)
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig reads config.toml. A missing file yields NewDefaultConfig();
// fields absent from the file take their default value.
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.targetPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewDefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults copies every default into the keys cfg leaves empty.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	for _, k := range configKeys {
		if k.get(cfg) != "" {
			continue
		}
		if v := k.get(defaults); v != "" {
			// Defaults are valid for their own setters.
			_ = k.set(cfg, v)
		}
	}
}

// SaveConfig writes cfg to config.toml with owner-only permissions.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue sets a single key and saves the file. The resulting config
// must pass Validate.
func (c *Configer) SetConfigValue(key string, value string) error {
	k, ok := lookupKey(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := k.set(cfg, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue returns the effective value of a single key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	k, ok := lookupKey(key)
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return k.get(cfg), nil
}

// PresetConfig returns the default config routed to the named provider.
func PresetConfig(name string) (*Config, error) {
	name = strings.ToLower(name)
	if !slices.Contains(ValidPresetNames(), name) {
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	cfg := NewDefaultConfig()
	cfg.Upstream.Provider = name
	return cfg, nil
}

// ValidPresetNames returns the recognized preset names, one per provider.
func ValidPresetNames() []string {
	return provider.SupportedProviders()
}

// upstreamURLKey names the config key holding a provider's base URL.
func upstreamURLKey(name string) string {
	return "upstream." + name + "_url"
}

// UpstreamURL returns the configured base URL for the named provider.
func (c *Config) UpstreamURL(name string) (string, error) {
	k, ok := lookupKey(upstreamURLKey(name))
	if !ok || !provider.IsSupported(name) {
		return "", fmt.Errorf("no upstream URL for provider %q", name)
	}
	return k.get(c), nil
}

// Validate checks the values a relay server depends on. Empty optional
// values are accepted.
func (c *Config) Validate() error {
	var errs []error

	if p := c.Upstream.Provider; p != "" && !provider.IsSupported(p) {
		errs = append(errs, fmt.Errorf("upstream.provider: unsupported provider %q", p))
	}

	for _, name := range provider.SupportedProviders() {
		raw, _ := c.UpstreamURL(name)
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: %q is not an http(s) URL", upstreamURLKey(name), raw))
		}
	}

	if _, _, err := c.Upstream.Timeouts(); err != nil {
		errs = append(errs, err)
	}

	s := c.Server
	if s.Listen != "" && s.Listen == s.APIListen && !strings.HasSuffix(s.Listen, ":0") {
		errs = append(errs, fmt.Errorf("server.listen and server.api_listen are both %q", s.Listen))
	}

	return errors.Join(errs...)
}

// ParseConfigTOML decodes raw TOML. A version other than CurrentV is
// rejected; a missing version reads as v0.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
