package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/featherlift/featherlift-go/internal/port"
	"github.com/featherlift/featherlift-go/internal/usecase/offload"
)

type DrainQueueResponse struct {
	Processed int `json:"processed"`
}

func DrainQueueHandler(svc port.Drainer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		processed, err := svc.Drain(r.Context())
		if err != nil {
			if errors.Is(err, offload.ErrStackNotProvisioned) {
				WriteError(w, http.StatusConflict, "the AWS stack is not provisioned yet", nil)
				return
			}
			WriteError(w, http.StatusInternalServerError, "could not drain the queue", err)
			return
		}

		RespondJSON(w, http.StatusOK, DrainQueueResponse{Processed: processed})
		log.Printf("✅  Drained %d messages from the queue", processed)
	}
}
