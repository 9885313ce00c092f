package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/featherlift/featherlift-go/internal/port"
	"github.com/featherlift/featherlift-go/internal/usecase/offload"
)

type mockEnqueuer struct {
	jobID       int64
	uploadErr   error
	downloadErr error

	uploadIn   *port.EnqueueInput
	downloadIn *port.EnqueueInput
}

func (m *mockEnqueuer) EnqueueUpload(ctx context.Context, in port.EnqueueInput) (int64, error) {
	m.uploadIn = &in
	if m.uploadErr != nil {
		return 0, m.uploadErr
	}
	return m.jobID, nil
}

func (m *mockEnqueuer) EnqueueDownload(ctx context.Context, in port.EnqueueInput) (int64, error) {
	m.downloadIn = &in
	if m.downloadErr != nil {
		return 0, m.downloadErr
	}
	return m.jobID, nil
}

func TestEnqueueUploadHandler(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		svcErr          error
		wantStatus      int
		wantErrorMap    map[string]string
		wantBodyContain string
	}{
		{
			name:            "invalid JSON",
			body:            `{"attachment_id":`,
			wantStatus:      http.StatusBadRequest,
			wantBodyContain: "invalid request payload",
		},
		{
			name:         "validation error: missing attachment_id",
			body:         `{"source":"bulk"}`,
			wantStatus:   http.StatusBadRequest,
			wantErrorMap: map[string]string{"attachment_id": "required"},
		},
		{
			name:            "attachment not found",
			body:            `{"attachment_id":7}`,
			svcErr:          offload.ErrAttachmentNotFound,
			wantStatus:      http.StatusNotFound,
			wantBodyContain: "Attachment not found",
		},
		{
			name:            "local file missing",
			body:            `{"attachment_id":7}`,
			svcErr:          offload.ErrLocalFileMissing,
			wantStatus:      http.StatusBadRequest,
			wantBodyContain: "local file does not exist",
		},
		{
			name:            "stack not provisioned",
			body:            `{"attachment_id":7}`,
			svcErr:          offload.ErrStackNotProvisioned,
			wantStatus:      http.StatusConflict,
			wantBodyContain: "not provisioned",
		},
		{
			name:            "service error",
			body:            `{"attachment_id":7}`,
			svcErr:          errors.New("queue unreachable"),
			wantStatus:      http.StatusInternalServerError,
			wantBodyContain: "could not queue upload of attachment #7",
		},
		{
			name:       "happy path",
			body:       `{"attachment_id":7,"source":"bulk","initiator":42}`,
			wantStatus: http.StatusAccepted,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := &mockEnqueuer{jobID: 101, uploadErr: tc.svcErr}
			h := EnqueueUploadHandler(mockSvc)

			req := httptest.NewRequest(http.MethodPost, "/jobs/upload", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()

			h(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tc.wantStatus)
			}

			body := rec.Body.Bytes()
			switch {
			case tc.wantStatus == http.StatusAccepted:
				var resp EnqueueResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("invalid JSON body: %v; body=%s", err, body)
				}
				if resp.JobID != 101 {
					t.Errorf("job_id = %d; want 101", resp.JobID)
				}
				if mockSvc.uploadIn == nil {
					t.Fatal("service was not invoked")
				}
				if mockSvc.uploadIn.AttachmentID != 7 {
					t.Errorf("service got AttachmentID = %d; want 7", mockSvc.uploadIn.AttachmentID)
				}
				if mockSvc.uploadIn.Meta.Source != "bulk" || mockSvc.uploadIn.Meta.Initiator != 42 {
					t.Errorf("service got Meta = %+v", mockSvc.uploadIn.Meta)
				}
			case tc.wantErrorMap != nil:
				var errs map[string]string
				if err := json.Unmarshal(body, &errs); err != nil {
					t.Fatalf("invalid JSON error body: %v; body=%s", err, body)
				}
				for k, want := range tc.wantErrorMap {
					if v, ok := errs[k]; !ok || !strings.Contains(v, want) {
						t.Errorf("errs[%q] = %q; want to contain %q", k, v, want)
					}
				}
			default:
				var resp ErrorResponse
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("invalid JSON error body: %v; body=%s", err, body)
				}
				if !strings.Contains(resp.Error, tc.wantBodyContain) {
					t.Errorf("body = %q; want to contain %q", body, tc.wantBodyContain)
				}
			}
		})
	}
}

func TestEnqueueDownloadHandler(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		mockSvc := &mockEnqueuer{jobID: 202}
		h := EnqueueDownloadHandler(mockSvc)

		req := httptest.NewRequest(http.MethodPost, "/jobs/download", bytes.NewBufferString(`{"attachment_id":9}`))
		rec := httptest.NewRecorder()

		h(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusAccepted)
		}
		var resp EnqueueResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if resp.JobID != 202 {
			t.Errorf("job_id = %d; want 202", resp.JobID)
		}
		if mockSvc.downloadIn == nil || mockSvc.downloadIn.AttachmentID != 9 {
			t.Errorf("service got %+v", mockSvc.downloadIn)
		}
	})

	t.Run("not offloaded", func(t *testing.T) {
		mockSvc := &mockEnqueuer{downloadErr: offload.ErrNotOffloaded}
		h := EnqueueDownloadHandler(mockSvc)

		req := httptest.NewRequest(http.MethodPost, "/jobs/download", bytes.NewBufferString(`{"attachment_id":9}`))
		rec := httptest.NewRecorder()

		h(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON error body: %v", err)
		}
		if !strings.Contains(resp.Error, "not offloaded") {
			t.Errorf("body = %q", resp.Error)
		}
	})
}
