package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"weaklog/internal/logging"
)

const defaultOllamaEndpoint = "http://localhost:11434"

var ollamaFallbackModels = []string{
	"llama3.1",
	"llama3.1:70b",
	"mistral",
	"qwen2.5",
}

// Ollama implements Client against a local Ollama server. Unlike the
// cloud adapters it is keyed by endpoint, not credential.
type Ollama struct {
	endpoint    string
	model       string
	httpClient  *http.Client
	retry       retryer
	log         *zap.Logger
	initialized bool
}

func NewOllama(endpoint, model string) *Ollama {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	if model == "" {
		model = "llama3.1"
	}
	log := logging.Get(logging.CategoryProvider).With(zap.String("provider", "ollama"))
	return &Ollama{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute, // local models can be slow to load
		},
		retry: newRetryer("ollama", log),
		log:   log,
	}
}

func (c *Ollama) Initialize() error {
	if c.initialized {
		return nil
	}
	u, err := url.Parse(c.endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return newError(KindConfig, "ollama",
			fmt.Sprintf("endpoint %q is not a valid URL; expected something like %s", c.endpoint, defaultOllamaEndpoint), err)
	}
	c.initialized = true
	return nil
}

func (c *Ollama) Initialized() bool  { return c.initialized }
func (c *Ollama) Model() string      { return c.model }
func (c *Ollama) SetModel(id string) { c.model = id }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

func (c *Ollama) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CallOptions) (string, error) {
	if err := c.Initialize(); err != nil {
		return "", err
	}
	opts = opts.withDefaults()

	messages := make([]ollamaMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: userPrompt})

	reqBody := ollamaRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}
	reqBody.Options.Temperature = opts.Temperature
	reqBody.Options.NumPredict = opts.MaxTokens

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.retry.do(ctx, opts.Timeout, func(ctx context.Context) (string, error) {
		return c.doRequest(ctx, jsonData)
	})
}

func (c *Ollama) doRequest(ctx context.Context, jsonData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newError(KindNetwork, "ollama",
			fmt.Sprintf("cannot reach the server; is ollama running at %s?", c.endpoint), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(KindNetwork, "ollama", "failed to read response", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return "", newError(KindConfig, "ollama",
			fmt.Sprintf("model %q is not available; pull it with `ollama pull %s`", c.model, c.model), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("ollama", resp.StatusCode, string(body))
	}

	var parsed ollamaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newError(KindNetwork, "ollama", "failed to parse response", err)
	}
	if parsed.Error != "" {
		return "", newError(KindNetwork, "ollama", "API error", fmt.Errorf("%s", parsed.Error))
	}
	return strings.TrimSpace(parsed.Message.Content), nil
}

// TestConnection lists local models; succeeds iff the server answers.
func (c *Ollama) TestConnection(ctx context.Context) error {
	if err := c.Initialize(); err != nil {
		return err
	}
	_, err := c.fetchModels(ctx)
	return err
}

func (c *Ollama) AvailableModels(ctx context.Context) []string {
	models, err := c.fetchModels(ctx)
	if err != nil || len(models) == 0 {
		c.log.Debug("model fetch failed, using static fallback", zap.Error(err))
		fallback := make([]string, len(ollamaFallbackModels))
		copy(fallback, ollamaFallbackModels)
		return fallback
	}
	return models
}

func (c *Ollama) fetchModels(ctx context.Context) ([]string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindNetwork, "ollama",
			fmt.Sprintf("cannot reach the server; is ollama running at %s?", c.endpoint), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindNetwork, "ollama", "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("ollama", resp.StatusCode, string(body))
	}

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, newError(KindNetwork, "ollama", "failed to parse model list", err)
	}
	models := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		models = append(models, m.Name)
	}
	return models, nil
}
