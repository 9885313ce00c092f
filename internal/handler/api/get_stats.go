package api

import (
	"log"
	"net/http"

	"github.com/featherlift/featherlift-go/internal/port"
)

func GetStatsHandler(svc port.Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.GetStats(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "could not compute job stats", err)
			return
		}

		RespondJSON(w, http.StatusOK, stats)
		log.Printf("✅  Successfully returned job stats")
	}
}
