// Package config loads and validates the weaklog configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"weaklog/internal/provider"
)

// DefaultFileName is looked up under the vault directory when no
// explicit path is given.
const DefaultFileName = "weaklog.json"

// Timeouts bounds the two LLM call classes, in seconds on disk. Zero
// means the built-in default.
type Timeouts struct {
	EvalSeconds int `json:"eval_seconds,omitempty" validate:"min=0,max=300"`
	GenSeconds  int `json:"gen_seconds,omitempty" validate:"min=0,max=300"`
}

func (t Timeouts) Eval() time.Duration {
	if t.EvalSeconds <= 0 {
		return provider.DefaultEvalTimeout
	}
	return time.Duration(t.EvalSeconds) * time.Second
}

func (t Timeouts) Gen() time.Duration {
	if t.GenSeconds <= 0 {
		return provider.DefaultGenTimeout
	}
	return time.Duration(t.GenSeconds) * time.Second
}

// Provider mirrors provider.Config with validation tags. The API key
// may also come from the environment; the factory resolves that.
type Provider struct {
	Type     string `json:"type" validate:"required,oneof=anthropic openai gemini ollama"`
	APIKey   string `json:"api_key,omitempty"`
	Endpoint string `json:"endpoint,omitempty" validate:"omitempty,url"`
	Model    string `json:"model,omitempty"`
}

// Config is the on-disk configuration. Zero values fall back to
// defaults at load time, so a minimal file only names the provider.
type Config struct {
	VaultDir        string   `json:"vault_dir" validate:"required"`
	LogDir          string   `json:"log_dir,omitempty"`
	Debug           bool     `json:"debug,omitempty"`
	Language        string   `json:"language,omitempty" validate:"omitempty,oneof=en ja"`
	CooldownIndex   string   `json:"cooldown_index,omitempty"`
	DefaultCooldown int      `json:"default_cooldown_days,omitempty" validate:"omitempty,min=1,max=365"`
	Provider        Provider `json:"provider"`
	Timeouts        Timeouts `json:"timeouts,omitempty"`
}

// Default returns a configuration rooted at dir with the stock layout.
func Default(dir string) *Config {
	return &Config{
		VaultDir:        dir,
		LogDir:          filepath.Join(dir, "logs"),
		Language:        "en",
		CooldownIndex:   filepath.Join(dir, "cooldown-index.json"),
		DefaultCooldown: 3,
		Provider:        Provider{Type: "anthropic"},
	}
}

// Load reads a configuration file, fills defaults, applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.fillDefaults()
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault uses the file when present and the stock configuration
// otherwise.
func LoadOrDefault(path, vaultDir string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default(vaultDir)
		cfg.applyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

func (c *Config) fillDefaults() {
	if c.Language == "" {
		c.Language = "en"
	}
	if c.LogDir == "" && c.VaultDir != "" {
		c.LogDir = filepath.Join(c.VaultDir, "logs")
	}
	if c.CooldownIndex == "" && c.VaultDir != "" {
		c.CooldownIndex = filepath.Join(c.VaultDir, "cooldown-index.json")
	}
	if c.DefaultCooldown == 0 {
		c.DefaultCooldown = 3
	}
	if c.Provider.Type == "" {
		c.Provider.Type = "anthropic"
	}
}

// applyEnvOverrides lets the environment win over the file for
// deploy-specific knobs. Credentials are resolved further down by the
// provider factory, which reads its own key variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("WEAKLOG_VAULT"); v != "" {
		c.VaultDir = v
	}
	if v := os.Getenv("WEAKLOG_LANGUAGE"); v != "" {
		c.Language = v
	}
	if v := os.Getenv("WEAKLOG_PROVIDER"); v != "" {
		c.Provider.Type = v
	}
	if v := os.Getenv("WEAKLOG_MODEL"); v != "" {
		c.Provider.Model = v
	}
	if v := os.Getenv("WEAKLOG_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// Validate checks structural constraints. Provider reachability and
// credentials are verified separately by the doctor command.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return fmt.Errorf("config: field %s fails %q", f.Namespace(), f.Tag())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ProviderConfig converts to the factory's input type.
func (c *Config) ProviderConfig() provider.Config {
	return provider.Config{
		Type:     provider.Type(c.Provider.Type),
		APIKey:   c.Provider.APIKey,
		Endpoint: c.Provider.Endpoint,
		Model:    c.Provider.Model,
	}
}

// Save writes the configuration back to disk, pretty-printed.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
