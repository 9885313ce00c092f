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

type GenerateAltTextRequest struct {
	AttachmentID int64  `json:"attachment_id" validate:"required,gt=0"`
	Overwrite    bool   `json:"overwrite,omitempty"`
	Source       string `json:"source,omitempty"`
	Initiator    int64  `json:"initiator,omitempty"`
}

func GenerateAltTextHandler(svc port.AltTextGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GenerateAltTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request payload", err)
			return
		}

		if errs := validation.ValidateStruct(req); errs != nil {
			errsJSON, err := validation.ErrorsToJson(errs)
			if err != nil {
				WriteError(w, http.StatusInternalServerError, "failed to encode validation errors", err)
				return
			}
			RespondRawJSON(w, http.StatusBadRequest, []byte(errsJSON))
			log.Printf("❌  Validation failed: %s", errsJSON)
			return
		}

		input := port.AltTextInput{
			AttachmentID: req.AttachmentID,
			Overwrite:    req.Overwrite,
			Meta: model.JobMeta{
				Source:    req.Source,
				Initiator: req.Initiator,
			},
		}
		out, err := svc.GenerateAltText(r.Context(), input)
		if err != nil {
			switch {
			case errors.Is(err, offload.ErrAttachmentNotFound):
				WriteError(w, http.StatusNotFound, "Attachment not found", nil)
			case errors.Is(err, offload.ErrNotImage):
				WriteError(w, http.StatusBadRequest, "the attachment is not an image", nil)
			default:
				WriteError(w, http.StatusInternalServerError, fmt.Sprintf("could not generate alt text for attachment #%d", req.AttachmentID), err)
			}
			return
		}

		RespondJSON(w, http.StatusOK, out)
		log.Printf("✅  Generated alt text for attachment #%d (job #%d)", req.AttachmentID, out.JobID)
	}
}
