package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/featherlift/featherlift-go/internal/port"
)

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

const openAISystemPrompt = "You are an accessibility assistant that writes concise, literal alt text."

// OpenAI completes vision prompts through the chat-completions API, passing
// the image as a base64 data URL.
type OpenAI struct {
	client httpDoer
	apiKey string
	model  string
	// endpoint is swapped out by tests.
	endpoint string
}

// compile-time check: *OpenAI must satisfy port.VisionCompleter
var _ port.VisionCompleter = (*OpenAI)(nil)

func NewOpenAI(client httpDoer, apiKey, model string) *OpenAI {
	return &OpenAI{client: client, apiKey: apiKey, model: model, endpoint: openAIEndpoint}
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) CompleteVision(ctx context.Context, req port.VisionRequest) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("openai: API key missing")
	}

	dataURL := "data:" + req.ImageMIME + ";base64," + base64.StdEncoding.EncodeToString(req.ImageData)
	body := map[string]interface{}{
		"model": o.model,
		"messages": []interface{}{
			map[string]interface{}{"role": "system", "content": openAISystemPrompt},
			map[string]interface{}{
				"role": "user",
				"content": []interface{}{
					map[string]interface{}{"type": "text", "text": req.Prompt},
					map[string]interface{}{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
				},
			},
		},
		"max_tokens":  120,
		"temperature": 0.2,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("openai: could not parse response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("openai: %s", decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: response empty")
	}
	return decoded.Choices[0].Message.Content, nil
}
