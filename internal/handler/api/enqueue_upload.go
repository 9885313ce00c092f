package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
	"github.com/featherlift/featherlift-go/internal/usecase/offload"
	"github.com/featherlift/featherlift-go/internal/validation"
)

// EnqueueRequest is the shared payload for the upload and download endpoints.
type EnqueueRequest struct {
	AttachmentID int64  `json:"attachment_id" validate:"required,gt=0"`
	Source       string `json:"source,omitempty"`
	Initiator    int64  `json:"initiator,omitempty"`
	Batch        string `json:"batch,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

type EnqueueResponse struct {
	JobID int64 `json:"job_id"`
}

func (req EnqueueRequest) toInput() port.EnqueueInput {
	return port.EnqueueInput{
		AttachmentID: req.AttachmentID,
		Meta: model.JobMeta{
			Source:    req.Source,
			Initiator: req.Initiator,
			Batch:     req.Batch,
			Notes:     req.Notes,
		},
	}
}

func decodeEnqueueRequest(w http.ResponseWriter, r *http.Request) (EnqueueRequest, bool) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request payload", err)
		return req, false
	}

	if errs := validation.ValidateStruct(req); errs != nil {
		errsJSON, err := validation.ErrorsToJson(errs)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to encode validation errors", err)
			return req, false
		}
		RespondRawJSON(w, http.StatusBadRequest, []byte(errsJSON))
		log.Printf("❌  Validation failed: %s", errsJSON)
		return req, false
	}

	return req, true
}

func EnqueueUploadHandler(svc port.Enqueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeEnqueueRequest(w, r)
		if !ok {
			return
		}

		jobID, err := svc.EnqueueUpload(r.Context(), req.toInput())
		if err != nil {
			writeEnqueueError(w, "upload", req.AttachmentID, err)
			return
		}

		RespondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: jobID})
		log.Printf("✅  Queued upload of attachment #%d as job #%d", req.AttachmentID, jobID)
	}
}

func writeEnqueueError(w http.ResponseWriter, operation string, attachmentID int64, err error) {
	switch {
	case errors.Is(err, offload.ErrAttachmentNotFound):
		WriteError(w, http.StatusNotFound, "Attachment not found", nil)
	case errors.Is(err, offload.ErrLocalFileMissing):
		WriteError(w, http.StatusBadRequest, "the local file does not exist", nil)
	case errors.Is(err, offload.ErrNotOffloaded):
		WriteError(w, http.StatusBadRequest, "the attachment is not offloaded", nil)
	case errors.Is(err, offload.ErrStackNotProvisioned):
		WriteError(w, http.StatusConflict, "the AWS stack is not provisioned yet", nil)
	default:
		WriteError(w, http.StatusInternalServerError, fmt.Sprintf("could not queue %s of attachment #%d", operation, attachmentID), err)
	}
}
