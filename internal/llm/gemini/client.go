// Package gemini adapts the Google generative AI SDK to llm.VisionModel.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/cardscan/internal/llm"
)

const defaultModel = "gemini-1.5-flash"

// Config for the Gemini client.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// Client wraps a genai client bound to one model.
type Client struct {
	cfg    Config
	client *genai.Client
	model  *genai.GenerativeModel
	logger *slog.Logger
}

// NewClient dials the Gemini API. Close must be called when done.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.ResponseMIMEType = "application/json"

	return &Client{cfg: cfg, client: client, model: model, logger: logger}, nil
}

// Name identifies the backend in logs.
func (c *Client) Name() string { return "gemini:" + c.cfg.Model }

// Generate sends the instruction and inline image and concatenates the text parts of
// the first candidate.
func (c *Client) Generate(ctx context.Context, req llm.VisionRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", errors.New("gemini: empty image")
	}
	format := "jpeg"
	if mt := strings.TrimPrefix(req.MimeType, "image/"); mt != "" {
		format = mt
	}

	resp, err := c.model.GenerateContent(ctx, genai.Text(req.Instruction), genai.ImageData(format, req.Image))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}
