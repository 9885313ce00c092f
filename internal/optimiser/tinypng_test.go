package optimiser

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTinyPNGCompress(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/shrink":
			gotAuth = r.Header.Get("Authorization")
			gotContentType = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"output":{"url":"http://%s/output/abc"}}`, r.Host)
		case "/output/abc":
			_, _ = w.Write([]byte("compressed bytes"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	tiny := NewTinyPNG(srv.Client(), "my-key")
	tiny.shrinkURL = srv.URL + "/shrink"

	out, err := tiny.Compress("image/png", []byte("raw bytes"))
	if err != nil {
		t.Fatalf("Compress returned error: %v", err)
	}

	if string(out) != "compressed bytes" {
		t.Errorf("unexpected output %q", out)
	}
	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("api:my-key"))
	if gotAuth != wantAuth {
		t.Errorf("expected authorization %q, got %q", wantAuth, gotAuth)
	}
	if gotContentType != "application/octet-stream" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
	if string(gotBody) != "raw bytes" {
		t.Errorf("unexpected upload body %q", gotBody)
	}
}

func TestTinyPNGCompressFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Credentials are invalid."}`))
	}))
	defer srv.Close()

	tiny := NewTinyPNG(srv.Client(), "bad-key")
	tiny.shrinkURL = srv.URL + "/shrink"

	_, err := tiny.Compress("image/png", []byte("raw"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "Credentials are invalid.") {
		t.Errorf("expected the API message in the error, got %v", err)
	}
}

func TestTinyPNGRequiresKey(t *testing.T) {
	tiny := NewTinyPNG(http.DefaultClient, "")

	if _, err := tiny.Compress("image/png", []byte("raw")); err == nil {
		t.Error("expected an error without an API key")
	}
}
