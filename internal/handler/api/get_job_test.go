package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/usecase/offload"
)

type mockInspector struct {
	job   *model.Job
	jobs  []model.Job
	stats *model.JobStats

	getErr   error
	listErr  error
	statsErr error

	gotID     int64
	gotFilter model.JobFilter
}

func (m *mockInspector) GetJob(ctx context.Context, id int64) (*model.Job, error) {
	m.gotID = id
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.job, nil
}

func (m *mockInspector) ListJobs(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	m.gotFilter = filter
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.jobs, nil
}

func (m *mockInspector) GetStats(ctx context.Context) (*model.JobStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

func TestGetJobHandler(t *testing.T) {
	tests := []struct {
		name            string
		ctxID           bool
		getErr          error
		wantStatus      int
		wantBodyContain string
	}{
		{
			name:            "missing ID",
			ctxID:           false,
			wantStatus:      http.StatusBadRequest,
			wantBodyContain: "ID is required",
		},
		{
			name:            "not found",
			ctxID:           true,
			getErr:          offload.ErrJobNotFound,
			wantStatus:      http.StatusNotFound,
			wantBodyContain: "Job not found",
		},
		{
			name:            "service error",
			ctxID:           true,
			getErr:          errors.New("db down"),
			wantStatus:      http.StatusInternalServerError,
			wantBodyContain: "could not get job #42",
		},
		{
			name:       "happy path",
			ctxID:      true,
			wantStatus: http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc := &mockInspector{job: &model.Job{ID: 42, Operation: model.OperationUpload, Status: model.JobStatusCompleted}, getErr: tc.getErr}
			h := GetJobHandler(mockSvc)

			req := httptest.NewRequest(http.MethodGet, "/jobs/42", nil)
			if tc.ctxID {
				req = req.WithContext(context.WithValue(req.Context(), IDKey, int64(42)))
			}
			rec := httptest.NewRecorder()

			h(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d; want %d", rec.Code, tc.wantStatus)
			}

			if tc.wantStatus == http.StatusOK {
				var job model.Job
				if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
					t.Fatalf("invalid JSON body: %v", err)
				}
				if job.ID != 42 || job.Status != model.JobStatusCompleted {
					t.Errorf("unexpected job %+v", job)
				}
				if mockSvc.gotID != 42 {
					t.Errorf("service got ID = %d; want 42", mockSvc.gotID)
				}
			} else {
				var resp ErrorResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("invalid JSON error body: %v", err)
				}
				if !strings.Contains(resp.Error, tc.wantBodyContain) {
					t.Errorf("body = %q; want to contain %q", resp.Error, tc.wantBodyContain)
				}
			}
		})
	}
}
