package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/featherlift/featherlift-go/internal/port"
)

func visionRequest() port.VisionRequest {
	return port.VisionRequest{
		Prompt:    "Describe the image.",
		ImageMIME: "image/jpeg",
		ImageData: []byte("raw image"),
	}
}

func TestOpenAICompleteVision(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"A red bicycle leaning on a wall."}}]}`))
	}))
	defer srv.Close()

	o := NewOpenAI(srv.Client(), "sk-key", "gpt-4o-mini")
	o.endpoint = srv.URL

	text, err := o.CompleteVision(context.Background(), visionRequest())
	if err != nil {
		t.Fatalf("CompleteVision returned error: %v", err)
	}

	if text != "A red bicycle leaning on a wall." {
		t.Errorf("unexpected completion %q", text)
	}
	if gotAuth != "Bearer sk-key" {
		t.Errorf("unexpected authorization %q", gotAuth)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("unexpected model %v", gotBody["model"])
	}
	messages := gotBody["messages"].([]interface{})
	if len(messages) != 2 {
		t.Fatalf("expected a system and a user message, got %d", len(messages))
	}
	user := messages[1].(map[string]interface{})
	content := user["content"].([]interface{})
	imagePart := content[1].(map[string]interface{})
	imageURL := imagePart["image_url"].(map[string]interface{})["url"].(string)
	wantPrefix := "data:image/jpeg;base64,"
	if !strings.HasPrefix(imageURL, wantPrefix) {
		t.Errorf("expected a data URL, got %q", imageURL)
	}
	if imageURL != wantPrefix+base64.StdEncoding.EncodeToString([]byte("raw image")) {
		t.Errorf("unexpected image payload %q", imageURL)
	}
}

func TestOpenAIErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	o := NewOpenAI(srv.Client(), "bad", "gpt-4o-mini")
	o.endpoint = srv.URL

	_, err := o.CompleteVision(context.Background(), visionRequest())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "Incorrect API key provided") {
		t.Errorf("expected the API message in the error, got %v", err)
	}
}

func TestOpenAIRequiresKey(t *testing.T) {
	o := NewOpenAI(http.DefaultClient, "", "gpt-4o-mini")

	if _, err := o.CompleteVision(context.Background(), visionRequest()); err == nil {
		t.Error("expected an error without an API key")
	}
}

func TestAnthropicCompleteVision(t *testing.T) {
	var gotKey, gotVersion string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"A quiet beach"},{"type":"text","text":"at sunset."}]}`))
	}))
	defer srv.Close()

	a := NewAnthropic(srv.Client(), "sk-ant", "claude-3-5-haiku-latest")
	a.endpoint = srv.URL

	text, err := a.CompleteVision(context.Background(), visionRequest())
	if err != nil {
		t.Fatalf("CompleteVision returned error: %v", err)
	}

	if text != "A quiet beach at sunset." {
		t.Errorf("unexpected completion %q", text)
	}
	if gotKey != "sk-ant" || gotVersion != "2023-06-01" {
		t.Errorf("unexpected headers key=%q version=%q", gotKey, gotVersion)
	}
	messages := gotBody["messages"].([]interface{})
	content := messages[0].(map[string]interface{})["content"].([]interface{})
	imagePart := content[1].(map[string]interface{})
	source := imagePart["source"].(map[string]interface{})
	if source["type"] != "base64" || source["media_type"] != "image/jpeg" {
		t.Errorf("unexpected image source %v", source)
	}
	if source["data"] != base64.StdEncoding.EncodeToString([]byte("raw image")) {
		t.Errorf("unexpected image data %v", source["data"])
	}
}

func TestAnthropicEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	a := NewAnthropic(srv.Client(), "sk-ant", "claude-3-5-haiku-latest")
	a.endpoint = srv.URL

	if _, err := a.CompleteVision(context.Background(), visionRequest()); err == nil {
		t.Error("expected an error for an empty response")
	}
}

func TestCustomCompleteVision(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"alt_text":"Two dogs running in snow."}`))
	}))
	defer srv.Close()

	c := NewCustom(srv.Client(), srv.URL, "token")

	text, err := c.CompleteVision(context.Background(), visionRequest())
	if err != nil {
		t.Fatalf("CompleteVision returned error: %v", err)
	}

	if text != "Two dogs running in snow." {
		t.Errorf("unexpected completion %q", text)
	}
	if gotAuth != "Bearer token" {
		t.Errorf("unexpected authorization %q", gotAuth)
	}
	if gotBody["prompt"] != "Describe the image." {
		t.Errorf("unexpected prompt %v", gotBody["prompt"])
	}
	image := gotBody["image"].(map[string]interface{})
	if image["mime_type"] != "image/jpeg" {
		t.Errorf("unexpected image payload %v", image)
	}
}

func TestCustomMissingAltText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewCustom(srv.Client(), srv.URL, "")

	if _, err := c.CompleteVision(context.Background(), visionRequest()); err == nil {
		t.Error("expected an error when alt_text is missing")
	}
}

func TestCustomRequiresEndpoint(t *testing.T) {
	c := NewCustom(http.DefaultClient, "", "")

	if _, err := c.CompleteVision(context.Background(), visionRequest()); err == nil {
		t.Error("expected an error without an endpoint")
	}
}
