package optimiser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const tinyPNGShrinkURL = "https://api.tinify.com/shrink"

// TinyPNG compresses images through the tinify.com API: one POST of the raw
// bytes, then a GET of the result the API points at.
type TinyPNG struct {
	client httpDoer
	apiKey string
	// shrinkURL is swapped out by tests.
	shrinkURL string
}

var _ ExternalCompressor = (*TinyPNG)(nil)

func NewTinyPNG(client httpDoer, apiKey string) *TinyPNG {
	return &TinyPNG{client: client, apiKey: apiKey, shrinkURL: tinyPNGShrinkURL}
}

func (t *TinyPNG) Name() string { return "tinypng" }

type tinyPNGResponse struct {
	Output struct {
		URL string `json:"url"`
	} `json:"output"`
	Message string `json:"message"`
}

func (t *TinyPNG) Compress(mimeType string, data []byte) ([]byte, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("tinypng: API key not configured")
	}

	req, err := http.NewRequest(http.MethodPost, t.shrinkURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth("api", t.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tinypng: upload failed: %w", err)
	}
	defer resp.Body.Close()

	var shrink tinyPNGResponse
	if err := json.NewDecoder(resp.Body).Decode(&shrink); err != nil {
		return nil, fmt.Errorf("tinypng: could not parse response: %w", err)
	}
	if shrink.Output.URL == "" {
		if shrink.Message == "" {
			shrink.Message = "unknown error"
		}
		return nil, fmt.Errorf("tinypng: compression failed: %s", shrink.Message)
	}

	downloadReq, err := http.NewRequest(http.MethodGet, shrink.Output.URL, nil)
	if err != nil {
		return nil, err
	}
	downloadResp, err := t.client.Do(downloadReq)
	if err != nil {
		return nil, fmt.Errorf("tinypng: download failed: %w", err)
	}
	defer downloadResp.Body.Close()

	if downloadResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tinypng: download failed: http %d", downloadResp.StatusCode)
	}
	return io.ReadAll(downloadResp.Body)
}
