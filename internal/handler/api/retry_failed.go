package api

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/featherlift/featherlift-go/internal/port"
)

const defaultRetryLimit = 50

type RetryFailedRequest struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,gt=0"`
}

type RetryFailedResponse struct {
	Retried int `json:"retried"`
}

func RetryFailedHandler(svc port.Retrier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RetryFailedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			WriteError(w, http.StatusBadRequest, "invalid request payload", err)
			return
		}
		if req.Limit <= 0 {
			req.Limit = defaultRetryLimit
		}

		retried, err := svc.RetryFailed(r.Context(), req.Limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "could not retry failed jobs", err)
			return
		}

		RespondJSON(w, http.StatusOK, RetryFailedResponse{Retried: retried})
		log.Printf("✅  Re-queued %d failed jobs", retried)
	}
}
