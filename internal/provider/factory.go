package provider

import (
	"fmt"
	"os"
)

// Type tags a supported backend.
type Type string

const (
	TypeAnthropic Type = "anthropic"
	TypeOpenAI    Type = "openai"
	TypeGemini    Type = "gemini"
	TypeOllama    Type = "ollama"
)

// Types lists every supported provider tag.
func Types() []Type {
	return []Type{TypeAnthropic, TypeOpenAI, TypeGemini, TypeOllama}
}

// Config is the provider blob supplied by the settings layer.
type Config struct {
	Type     Type   `json:"type"`
	APIKey   string `json:"api_key,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Model    string `json:"model,omitempty"`
}

// credentialEnv maps each cloud provider to its environment override.
// An environment value takes priority over any stored configuration,
// uniformly across cloud providers. Ollama is keyed by endpoint; its
// override is OLLAMA_HOST.
var credentialEnv = map[Type]string{
	TypeAnthropic: "ANTHROPIC_API_KEY",
	TypeOpenAI:    "OPENAI_API_KEY",
	TypeGemini:    "GEMINI_API_KEY",
}

// resolve applies environment overrides to a copy of cfg.
func resolve(cfg Config) Config {
	if envVar, ok := credentialEnv[cfg.Type]; ok {
		if v := os.Getenv(envVar); v != "" {
			cfg.APIKey = v
		}
	}
	if cfg.Type == TypeOllama {
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			cfg.Endpoint = v
		}
	}
	return cfg
}

// New constructs the adapter matching cfg.Type. Callers receive the
// uniform Client and never inspect backend identity again.
func New(cfg Config) (Client, error) {
	cfg = resolve(cfg)

	switch cfg.Type {
	case TypeAnthropic:
		c := NewAnthropic(cfg.APIKey, cfg.Model)
		if cfg.Endpoint != "" {
			c.baseURL = cfg.Endpoint
		}
		return c, nil
	case TypeOpenAI:
		c := NewOpenAI(cfg.APIKey, cfg.Model)
		if cfg.Endpoint != "" {
			c.baseURL = cfg.Endpoint
		}
		return c, nil
	case TypeGemini:
		c := NewGemini(cfg.APIKey, cfg.Model)
		if cfg.Endpoint != "" {
			c.baseURL = cfg.Endpoint
		}
		return c, nil
	case TypeOllama:
		return NewOllama(cfg.Endpoint, cfg.Model), nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: anthropic, openai, gemini, ollama)", ErrUnknownProvider, cfg.Type)
	}
}
