package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/featherlift/featherlift-go/internal/port"
	"github.com/featherlift/featherlift-go/internal/usecase/offload"
)

func GetJobHandler(svc port.Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := JobIDFromContext(r.Context())
		if !ok {
			WriteError(w, http.StatusBadRequest, "ID is required", nil)
			return
		}

		job, err := svc.GetJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, offload.ErrJobNotFound) {
				WriteError(w, http.StatusNotFound, "Job not found", nil)
				return
			}
			WriteError(w, http.StatusInternalServerError, fmt.Sprintf("could not get job #%d", id), err)
			return
		}

		RespondJSON(w, http.StatusOK, job)
		log.Printf("✅  Successfully returned job #%d", id)
	}
}
