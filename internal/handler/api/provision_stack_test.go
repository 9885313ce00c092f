package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/provision"
)

type mockProvisioner struct {
	stack *model.StackDescriptor
	err   error
}

func (m *mockProvisioner) EnsureStack(ctx context.Context) (*model.StackDescriptor, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stack, nil
}

func TestProvisionStackHandler(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		mockSvc := &mockProvisioner{stack: &model.StackDescriptor{
			BucketName: "my-travel-blog-abcd1234",
			QueueURL:   "https://sqs.eu-west-3.amazonaws.com/123456789012/my-travel-blog",
		}}
		h := ProvisionStackHandler(mockSvc)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/provision", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		var resp model.StackDescriptor
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid JSON body: %v", err)
		}
		if resp != *mockSvc.stack {
			t.Errorf("response = %+v; want %+v", resp, *mockSvc.stack)
		}
	})

	t.Run("invalid bucket name", func(t *testing.T) {
		mockSvc := &mockProvisioner{err: provision.ErrInvalidBucketName}
		h := ProvisionStackHandler(mockSvc)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/provision", nil))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc := &mockProvisioner{err: errors.New("AccessDenied")}
		h := ProvisionStackHandler(mockSvc)

		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/provision", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusInternalServerError)
		}
	})
}
