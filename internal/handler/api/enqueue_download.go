package api

import (
	"log"
	"net/http"

	"github.com/featherlift/featherlift-go/internal/port"
)

func EnqueueDownloadHandler(svc port.Enqueuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeEnqueueRequest(w, r)
		if !ok {
			return
		}

		jobID, err := svc.EnqueueDownload(r.Context(), req.toInput())
		if err != nil {
			writeEnqueueError(w, "download", req.AttachmentID, err)
			return
		}

		RespondJSON(w, http.StatusAccepted, EnqueueResponse{JobID: jobID})
		log.Printf("✅  Queued download of attachment #%d as job #%d", req.AttachmentID, jobID)
	}
}
