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

var geminiModels = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.0-flash",
	"gemini-1.5-pro",
}

// Gemini implements Client against the Generative Language REST API.
type Gemini struct {
	apiKey      string
	baseURL     string
	model       string
	httpClient  *http.Client
	retry       retryer
	log         *zap.Logger
	initialized bool
}

func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = geminiModels[0]
	}
	log := logging.Get(logging.CategoryProvider).With(zap.String("provider", "gemini"))
	return &Gemini{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		model:   model,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		retry: newRetryer("gemini", log),
		log:   log,
	}
}

func (c *Gemini) Initialize() error {
	if c.initialized {
		return nil
	}
	key := strings.TrimSpace(c.apiKey)
	if key == "" {
		return newError(KindConfig, "gemini", "API key is empty; set GEMINI_API_KEY or the provider api_key setting", nil)
	}
	if strings.ContainsAny(key, " \t\n") {
		return newError(KindConfig, "gemini", "API key is malformed (contains whitespace)", nil)
	}
	c.apiKey = key
	c.initialized = true
	return nil
}

func (c *Gemini) Initialized() bool  { return c.initialized }
func (c *Gemini) Model() string      { return c.model }
func (c *Gemini) SetModel(id string) { c.model = id }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (c *Gemini) Complete(ctx context.Context, systemPrompt, userPrompt string, opts CallOptions) (string, error) {
	if err := c.Initialize(); err != nil {
		return "", err
	}
	opts = opts.withDefaults()

	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	return c.retry.do(ctx, opts.Timeout, func(ctx context.Context) (string, error) {
		return c.doRequest(ctx, jsonData)
	})
}

func (c *Gemini) doRequest(ctx context.Context, jsonData []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newError(KindNetwork, "gemini", "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(KindNetwork, "gemini", "failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.classifyBody(resp.StatusCode, body)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", newError(KindNetwork, "gemini", "failed to parse response", err)
	}
	if parsed.Error != nil {
		return "", c.classifyAPIError(parsed.Error.Status, parsed.Error.Message)
	}
	if parsed.PromptFeedback != nil && parsed.PromptFeedback.BlockReason != "" {
		return "", newError(KindSafety, "gemini",
			fmt.Sprintf("prompt blocked (%s)", parsed.PromptFeedback.BlockReason), nil)
	}
	if len(parsed.Candidates) == 0 {
		return "", newError(KindNetwork, "gemini", "no completion returned", nil)
	}
	cand := parsed.Candidates[0]
	switch cand.FinishReason {
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "BLOCKLIST":
		return "", newError(KindSafety, "gemini",
			fmt.Sprintf("completion blocked (%s)", cand.FinishReason), nil)
	}

	var result strings.Builder
	for _, part := range cand.Content.Parts {
		result.WriteString(part.Text)
	}
	return strings.TrimSpace(result.String()), nil
}

func (c *Gemini) classifyBody(status int, body []byte) *Error {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return c.classifyAPIError(parsed.Error.Status, parsed.Error.Message)
	}
	return classifyStatus("gemini", status, string(body))
}

func (c *Gemini) classifyAPIError(status, message string) *Error {
	switch status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return newError(KindAuth, "gemini", "credentials rejected; check your API key", fmt.Errorf("%s: %s", status, message))
	case "RESOURCE_EXHAUSTED":
		if strings.Contains(strings.ToLower(message), "quota") {
			return newError(KindQuota, "gemini", "quota exhausted; check your plan and billing", fmt.Errorf("%s", message))
		}
		return newError(KindRateLimit, "gemini", "rate limit exceeded", fmt.Errorf("%s", message))
	case "DEADLINE_EXCEEDED":
		return newError(KindTimeout, "gemini", "backend deadline exceeded", fmt.Errorf("%s", message))
	default:
		return newError(KindNetwork, "gemini", "API error", fmt.Errorf("%s: %s", status, message))
	}
}

// TestConnection fetches the configured model's metadata.
func (c *Gemini) TestConnection(ctx context.Context) error {
	if err := c.Initialize(); err != nil {
		return err
	}
	attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return newError(KindNetwork, "gemini", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return c.classifyBody(resp.StatusCode, body)
	}
	return nil
}

func (c *Gemini) AvailableModels(_ context.Context) []string {
	models := make([]string, len(geminiModels))
	copy(models, geminiModels)
	return models
}
