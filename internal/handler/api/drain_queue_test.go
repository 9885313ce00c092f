package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/featherlift/featherlift-go/internal/usecase/offload"
)

type mockDrainer struct {
	processed int
	err       error
	called    bool
}

func (m *mockDrainer) Drain(ctx context.Context) (int, error) {
	m.called = true
	if m.err != nil {
		return 0, m.err
	}
	return m.processed, nil
}

func TestDrainQueueHandler(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		mockSvc := &mockDrainer{processed: 12}
		h := DrainQueueHandler(mockSvc)

		req := httptest.NewRequest(http.MethodPost, "/queue/drain", nil)
		rec := httptest.NewRecorder()

		h(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		var resp DrainQueueResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if resp.Processed != 12 {
			t.Errorf("processed = %d; want 12", resp.Processed)
		}
	})

	t.Run("stack not provisioned", func(t *testing.T) {
		mockSvc := &mockDrainer{err: offload.ErrStackNotProvisioned}
		h := DrainQueueHandler(mockSvc)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/queue/drain", nil))

		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusConflict)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON error body: %v", err)
		}
		if !strings.Contains(resp.Error, "not provisioned") {
			t.Errorf("body = %q", resp.Error)
		}
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc := &mockDrainer{err: errors.New("receive failed")}
		h := DrainQueueHandler(mockSvc)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/queue/drain", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}
