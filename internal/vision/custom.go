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

// Custom talks to a self-hosted completion endpoint with a minimal JSON
// contract: {prompt, image:{mime_type, data}} in, {alt_text} out.
type Custom struct {
	client   httpDoer
	endpoint string
	apiKey   string
}

// compile-time check: *Custom must satisfy port.VisionCompleter
var _ port.VisionCompleter = (*Custom)(nil)

func NewCustom(client httpDoer, endpoint, apiKey string) *Custom {
	return &Custom{client: client, endpoint: endpoint, apiKey: apiKey}
}

type customResponse struct {
	AltText string `json:"alt_text"`
}

func (c *Custom) CompleteVision(ctx context.Context, req port.VisionRequest) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("vision: custom endpoint URL missing")
	}

	body := map[string]interface{}{
		"prompt": req.Prompt,
		"image": map[string]string{
			"mime_type": req.ImageMIME,
			"data":      base64.StdEncoding.EncodeToString(req.ImageData),
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("vision: custom endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded customResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("vision: could not parse custom endpoint response: %w", err)
	}
	if decoded.AltText == "" {
		return "", fmt.Errorf("vision: custom endpoint did not return alt_text")
	}
	return decoded.AltText, nil
}
