package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewByType(t *testing.T) {
	cases := []struct {
		cfg  Config
		want any
	}{
		{Config{Type: TypeAnthropic, APIKey: "k"}, &Anthropic{}},
		{Config{Type: TypeOpenAI, APIKey: "k"}, &OpenAI{}},
		{Config{Type: TypeGemini, APIKey: "k"}, &Gemini{}},
		{Config{Type: TypeOllama, Endpoint: "http://localhost:11434"}, &Ollama{}},
	}
	for _, tc := range cases {
		t.Run(string(tc.cfg.Type), func(t *testing.T) {
			client, err := New(tc.cfg)
			require.NoError(t, err)
			assert.IsType(t, tc.want, client)
		})
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Config{Type: "mystery"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestNewAppliesModelOverride(t *testing.T) {
	client, err := New(Config{Type: TypeAnthropic, APIKey: "k", Model: "claude-custom"})
	require.NoError(t, err)
	assert.Equal(t, "claude-custom", client.Model())

	client.SetModel("claude-other")
	assert.Equal(t, "claude-other", client.Model())
}

func TestEnvCredentialOverridesStoredKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	client, err := New(Config{Type: TypeAnthropic, APIKey: "stored-key"})
	require.NoError(t, err)
	assert.Equal(t, "env-key", client.(*Anthropic).apiKey)

	t.Setenv("OPENAI_API_KEY", "env-oa")
	oc, err := New(Config{Type: TypeOpenAI, APIKey: "stored"})
	require.NoError(t, err)
	assert.Equal(t, "env-oa", oc.(*OpenAI).apiKey)

	t.Setenv("GEMINI_API_KEY", "env-gm")
	gc, err := New(Config{Type: TypeGemini, APIKey: "stored"})
	require.NoError(t, err)
	assert.Equal(t, "env-gm", gc.(*Gemini).apiKey)
}

func TestEnvOverrideAbsentKeepsStoredKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	client, err := New(Config{Type: TypeAnthropic, APIKey: "stored-key"})
	require.NoError(t, err)
	assert.Equal(t, "stored-key", client.(*Anthropic).apiKey)
}

func TestOllamaHostOverride(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	client, err := New(Config{Type: TypeOllama, Endpoint: "http://localhost:11434"})
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", client.(*Ollama).endpoint)
}
