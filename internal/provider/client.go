// Package provider implements the uniform LLM backend contract for
// weaklog: one adapter per backend (anthropic, openai, gemini, ollama)
// behind a single Client interface, a shared retry/backoff engine with a
// fixed failure taxonomy, and a factory that hides adapter identity from
// callers.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Default per-call timeouts. Evaluation calls (triage) get a longer
// budget than generation calls (synthesis questions, drafts).
const (
	DefaultEvalTimeout = 30 * time.Second
	DefaultGenTimeout  = 20 * time.Second
)

// CallOptions tunes a single completion request.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // zero means DefaultEvalTimeout
}

func (o CallOptions) withDefaults() CallOptions {
	if o.MaxTokens <= 0 {
		o.MaxTokens = 2048
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultEvalTimeout
	}
	return o
}

// Client is the uniform contract over heterogeneous LLM backends.
// Callers never branch on backend identity; construction happens once in
// the factory.
type Client interface {
	// Initialize validates the credential/endpoint configuration. It is
	// idempotent and fails fast with a config-kind Error.
	Initialize() error
	// Complete performs one logical completion request with retries.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CallOptions) (string, error)
	// TestConnection performs a minimal real request to validate
	// credentials and reachability. A nil return means the backend is
	// usable; a non-nil return is always user-actionable.
	TestConnection(ctx context.Context) error
	// AvailableModels returns model IDs, live-fetched where the backend
	// supports it. Fetch failures fall back to a static list and are
	// never propagated.
	AvailableModels(ctx context.Context) []string
	Model() string
	SetModel(id string)
	Initialized() bool
}

// ExtractJSON unmarshals a JSON object from raw model output, tolerating
// prose or code fences around the object. It locates the first '{' and
// the last '}' when the full text is not valid JSON on its own.
func ExtractJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON: %w", err)
	}
	return nil
}
