package analysis

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sahti/patient-portal/pkg/config"
	"github.com/sahti/patient-portal/pkg/logger"
)

// ModelClient sends multimodal analysis requests to the AI endpoint.
type ModelClient interface {
	AnalyzeFile(ctx context.Context, mimeType string, data []byte, prompt string) (string, error)
}

// GeminiClient calls the generateContent endpoint over HTTP. Requests
// are single-shot; a failed call surfaces as an error with no retry,
// the caller decides whether a local fallback applies.
type GeminiClient struct {
	client *resty.Client
	config config.ModelConfig
	logger *logger.Logger
}

// generateContent request/response shapes, trimmed to the fields used.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewGeminiClient creates a new model API client
func NewGeminiClient(cfg config.ModelConfig, log *logger.Logger) *GeminiClient {
	client := resty.New().
		SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-goog-api-key", cfg.APIKey)

	return &GeminiClient{
		client: client,
		config: cfg,
		logger: log,
	}
}

// AnalyzeFile sends one file with an instruction prompt and returns the
// model's text answer.
func (c *GeminiClient) AnalyzeFile(ctx context.Context, mimeType string, data []byte, prompt string) (string, error) {
	req := generateRequest{
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: prompt},
					{InlineData: &inlineData{
						MimeType: mimeType,
						Data:     base64.StdEncoding.EncodeToString(data),
					}},
				},
			},
		},
		GenerationConfig: generationConfig{
			Temperature:     c.config.Temperature,
			TopK:            c.config.TopK,
			TopP:            c.config.TopP,
			MaxOutputTokens: c.config.MaxOutputTokens,
		},
	}

	var result generateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(c.config.Endpoint)
	if err != nil {
		return "", fmt.Errorf("model request failed: %w", err)
	}

	if resp.IsError() {
		c.logger.WithField("status", resp.StatusCode()).Error("Model API returned error status")
		return "", fmt.Errorf("model request failed: status %d", resp.StatusCode())
	}

	if result.Error != nil {
		return "", fmt.Errorf("model error %d: %s", result.Error.Code, result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("model returned no candidates")
	}

	return result.Candidates[0].Content.Parts[0].Text, nil
}
