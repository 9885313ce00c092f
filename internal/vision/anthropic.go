package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/featherlift/featherlift-go/internal/port"
)

const anthropicEndpoint = "https://api.anthropic.com/v1/messages"

const anthropicSystemPrompt = "You produce short, literal alt text without guessing identities."

// Anthropic completes vision prompts through the messages API, passing the
// image as an inline base64 source block.
type Anthropic struct {
	client httpDoer
	apiKey string
	model  string
	// endpoint is swapped out by tests.
	endpoint string
}

// compile-time check: *Anthropic must satisfy port.VisionCompleter
var _ port.VisionCompleter = (*Anthropic)(nil)

func NewAnthropic(client httpDoer, apiKey, model string) *Anthropic {
	return &Anthropic{client: client, apiKey: apiKey, model: model, endpoint: anthropicEndpoint}
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Anthropic) CompleteVision(ctx context.Context, req port.VisionRequest) (string, error) {
	if a.apiKey == "" {
		return "", fmt.Errorf("anthropic: API key missing")
	}

	body := map[string]interface{}{
		"model":      a.model,
		"max_tokens": 150,
		"system":     anthropicSystemPrompt,
		"messages": []interface{}{
			map[string]interface{}{
				"role": "user",
				"content": []interface{}{
					map[string]interface{}{"type": "text", "text": req.Prompt},
					map[string]interface{}{
						"type": "image",
						"source": map[string]string{
							"type":       "base64",
							"media_type": req.ImageMIME,
							"data":       base64.StdEncoding.EncodeToString(req.ImageData),
						},
					},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("anthropic: could not parse response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("anthropic: %s", decoded.Error.Message)
	}

	var text strings.Builder
	for _, block := range decoded.Content {
		if block.Type == "text" {
			if text.Len() > 0 {
				text.WriteString(" ")
			}
			text.WriteString(block.Text)
		}
	}
	result := strings.TrimSpace(text.String())
	if result == "" {
		return "", fmt.Errorf("anthropic: response empty")
	}
	return result, nil
}
