package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"weaklog/internal/logging"
)

const anthropicVersion = "2023-06-01"

// anthropicModels is the static fallback list; Anthropic has no public
// unauthenticated model-listing endpoint worth a live fetch here.
var anthropicModels = []string{
	"claude-sonnet-4-20250514",
	"claude-opus-4-20250514",
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
}

// Anthropic implements Client against the Anthropic Messages API.
type Anthropic struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	retry       retryer
	log         *zap.Logger
	initialized bool
}

// NewAnthropic constructs the adapter. Initialize must be called before
// Complete.
func NewAnthropic(apiKey, model string) *Anthropic {
	if model == "" {
		model = anthropicModels[0]
	}
	log := logging.Get(logging.CategoryProvider).With(zap.String("provider", "anthropic"))
	return &Anthropic{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com/v1",
		model:   model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute, // outer bound; per-call deadline is tighter
		},
		retry: newRetryer("anthropic", log),
		log:   log,
	}
}

func (c *Anthropic) Initialize() error {
	if c.initialized {
		return nil
	}
	key := strings.TrimSpace(c.apiKey)
	if key == "" {
		return newError(KindConfig, "anthropic", "API key is empty; set ANTHROPIC_API_KEY or the provider api_key setting", nil)
	}
	if strings.ContainsAny(key, " \t\n") {
		return newError(KindConfig, "anthropic", "API key is malformed (contains whitespace)", nil)
	}
	c.apiKey = key
	c.initialized = true
	return nil
}

func (c *Anthropic) Initialized() bool { return c.initialized }
func (c *Anthropic) Model() string     { return c.model }
func (c *Anthropic) SetModel(id string) {
	c.model = id
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Anthropic) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CallOptions) (string, error) {
	if err := c.Initialize(); err != nil {
		return "", err
	}
	opts = opts.withDefaults()

	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   opts.MaxTokens,
		System:      systemPrompt,
		Messages:    []anthropicMessage{{Role: "user", Content: userPrompt}},
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

func (c *Anthropic) doRequest(ctx context.Context, jsonData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newError(KindNetwork, "anthropic", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(KindNetwork, "anthropic", "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.classifyBody(resp.StatusCode, body)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newError(KindNetwork, "anthropic", "failed to parse response", err)
	}
	if parsed.Error != nil {
		return "", c.classifyAPIError(parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Content) == 0 {
		return "", newError(KindNetwork, "anthropic", "no completion returned", nil)
	}

	var result strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(result.String()), nil
}

// classifyBody prefers the structured error type when the body carries one.
func (c *Anthropic) classifyBody(status int, body []byte) *Error {
	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return c.classifyAPIError(parsed.Error.Type, parsed.Error.Message)
	}
	return classifyStatus("anthropic", status, string(body))
}

func (c *Anthropic) classifyAPIError(errType, message string) *Error {
	switch errType {
	case "authentication_error", "permission_error":
		return newError(KindAuth, "anthropic", "credentials rejected; check your API key", fmt.Errorf("%s: %s", errType, message))
	case "rate_limit_error":
		return newError(KindRateLimit, "anthropic", "rate limit exceeded", fmt.Errorf("%s", message))
	case "overloaded_error":
		return newError(KindNetwork, "anthropic", "backend overloaded", fmt.Errorf("%s", message))
	case "invalid_request_error":
		if strings.Contains(strings.ToLower(message), "credit") || strings.Contains(strings.ToLower(message), "billing") {
			return newError(KindQuota, "anthropic", "quota exhausted; check your plan and billing", fmt.Errorf("%s", message))
		}
		return newError(KindNetwork, "anthropic", "request rejected", fmt.Errorf("%s", message))
	default:
		return newError(KindNetwork, "anthropic", "API error", fmt.Errorf("%s: %s", errType, message))
	}
}

// TestConnection performs a one-token completion to prove the key works.
func (c *Anthropic) TestConnection(ctx context.Context) error {
	if err := c.Initialize(); err != nil {
		return err
	}
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := c.doRequest(attemptCtx, jsonData); err != nil {
		return err
	}
	return nil
}

func (c *Anthropic) AvailableModels(_ context.Context) []string {
	models := make([]string, len(anthropicModels))
	copy(models, anthropicModels)
	return models
}
