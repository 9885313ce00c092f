package api

import (
	"log"
	"net/http"
	"strconv"

	"github.com/featherlift/featherlift-go/internal/model"
	"github.com/featherlift/featherlift-go/internal/port"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type ListJobsResponse struct {
	Jobs []model.Job `json:"jobs"`
}

func ListJobsHandler(svc port.Inspector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, ok := parseJobFilter(w, r)
		if !ok {
			return
		}

		jobs, err := svc.ListJobs(r.Context(), filter)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "could not list jobs", err)
			return
		}
		if jobs == nil {
			jobs = []model.Job{}
		}

		RespondJSON(w, http.StatusOK, ListJobsResponse{Jobs: jobs})
		log.Printf("✅  Listed %d jobs", len(jobs))
	}
}

func parseJobFilter(w http.ResponseWriter, r *http.Request) (model.JobFilter, bool) {
	q := r.URL.Query()
	filter := model.JobFilter{Limit: defaultListLimit}

	if s := q.Get("status"); s != "" {
		switch status := model.JobStatus(s); status {
		case model.JobStatusRequested, model.JobStatusInProgress, model.JobStatusCompleted,
			model.JobStatusFailed, model.JobStatusSkipped, model.JobStatusRetried:
			filter.Status = status
		default:
			WriteError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(s), nil)
			return filter, false
		}
	}
	if o := q.Get("operation"); o != "" {
		switch op := model.OperationType(o); op {
		case model.OperationUpload, model.OperationDownload, model.OperationAlt:
			filter.Operation = op
		default:
			WriteError(w, http.StatusBadRequest, "unknown operation "+strconv.Quote(o), nil)
			return filter, false
		}
	}
	if l := q.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer", nil)
			return filter, false
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filter.Limit = limit
	}
	if o := q.Get("offset"); o != "" {
		offset, err := strconv.Atoi(o)
		if err != nil || offset < 0 {
			WriteError(w, http.StatusBadRequest, "offset must be a non-negative integer", nil)
			return filter, false
		}
		filter.Offset = offset
	}

	return filter, true
}
