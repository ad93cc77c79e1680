package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"weaklog/internal/logging"
)

// openaiFallbackModels is returned when the live model fetch fails.
var openaiFallbackModels = []string{
	"gpt-4o",
	"gpt-4o-mini",
	"gpt-4.1",
	"gpt-4.1-mini",
}

// OpenAI implements Client against the OpenAI chat completions API.
type OpenAI struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	retry       retryer
	log         *zap.Logger
	initialized bool
}

func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = "gpt-4o-mini"
	}
	log := logging.Get(logging.CategoryProvider).With(zap.String("provider", "openai"))
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		model:   model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		retry: newRetryer("openai", log),
		log:   log,
	}
}

func (c *OpenAI) Initialize() error {
	if c.initialized {
		return nil
	}
	key := strings.TrimSpace(c.apiKey)
	if key == "" {
		return newError(KindConfig, "openai", "API key is empty; set OPENAI_API_KEY or the provider api_key setting", nil)
	}
	if strings.ContainsAny(key, " \t\n") {
		return newError(KindConfig, "openai", "API key is malformed (contains whitespace)", nil)
	}
	c.apiKey = key
	c.initialized = true
	return nil
}

func (c *OpenAI) Initialized() bool  { return c.initialized }
func (c *OpenAI) Model() string      { return c.model }
func (c *OpenAI) SetModel(id string) { c.model = id }

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

func (c *OpenAI) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CallOptions) (string, error) {
	if err := c.Initialize(); err != nil {
		return "", err
	}
	opts = opts.withDefaults()

	messages := make([]openaiMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, openaiMessage{Role: "user", Content: userPrompt})

	reqBody := openaiRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.retry.do(ctx, opts.Timeout, func(ctx context.Context) (string, error) {
		return c.doRequest(ctx, jsonData)
	})
}

func (c *OpenAI) doRequest(ctx context.Context, jsonData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newError(KindNetwork, "openai", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(KindNetwork, "openai", "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.classifyBody(resp.StatusCode, body)
	}

	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newError(KindNetwork, "openai", "failed to parse response", err)
	}
	if parsed.Error != nil {
		return "", c.classifyAPIError(parsed.Error.Type, parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", newError(KindNetwork, "openai", "no completion returned", nil)
	}
	if parsed.Choices[0].FinishReason == "content_filter" {
		return "", newError(KindSafety, "openai", "completion blocked by the content filter", nil)
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func (c *OpenAI) classifyBody(status int, body []byte) *Error {
	var parsed openaiResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return c.classifyAPIError(parsed.Error.Type, parsed.Error.Code, parsed.Error.Message)
	}
	return classifyStatus("openai", status, string(body))
}

func (c *OpenAI) classifyAPIError(errType, code, message string) *Error {
	switch {
	case code == "insufficient_quota" || errType == "insufficient_quota":
		return newError(KindQuota, "openai", "quota exhausted; check your plan and billing", fmt.Errorf("%s", message))
	case errType == "invalid_api_key" || code == "invalid_api_key" || errType == "authentication_error":
		return newError(KindAuth, "openai", "credentials rejected; check your API key", fmt.Errorf("%s", message))
	case errType == "rate_limit_error" || code == "rate_limit_exceeded":
		return newError(KindRateLimit, "openai", "rate limit exceeded", fmt.Errorf("%s", message))
	case errType == "content_filter" || code == "content_filter":
		return newError(KindSafety, "openai", "request blocked by the content filter", fmt.Errorf("%s", message))
	default:
		return newError(KindNetwork, "openai", "API error", fmt.Errorf("%s: %s", errType, message))
	}
}

// TestConnection lists models, the cheapest authenticated endpoint.
func (c *OpenAI) TestConnection(ctx context.Context) error {
	if err := c.Initialize(); err != nil {
		return err
	}
	_, err := c.fetchModels(ctx)
	return err
}

func (c *OpenAI) AvailableModels(ctx context.Context) []string {
	models, err := c.fetchModels(ctx)
	if err != nil || len(models) == 0 {
		c.log.Debug("model fetch failed, using static fallback", zap.Error(err))
		fallback := make([]string, len(openaiFallbackModels))
		copy(fallback, openaiFallbackModels)
		return fallback
	}
	return models
}

func (c *OpenAI) fetchModels(ctx context.Context) ([]string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newError(KindNetwork, "openai", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindNetwork, "openai", "failed to read response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyBody(resp.StatusCode, body)
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, newError(KindNetwork, "openai", "failed to parse model list", err)
	}
	models := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if strings.HasPrefix(m.ID, "gpt-") || strings.HasPrefix(m.ID, "o") {
			models = append(models, m.ID)
		}
	}
	sort.Strings(models)
	return models, nil
}
