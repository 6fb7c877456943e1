package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/cardscan/internal/llm"
)

// Name identifies the backend in logs.
func (c *Client) Name() string { return "openai:" + c.cfg.Model }

// Generate sends the instruction and the image as a data URI through chat/completions
// and returns the message content.
func (c *Client) Generate(ctx context.Context, req llm.VisionRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", errors.New("openai: empty image")
	}
	mt := req.MimeType
	if mt == "" {
		mt = "image/jpeg"
	}
	dataURL := "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(req.Image)

	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "text", "text": req.Instruction},
					{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, err := llm.PostJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}
