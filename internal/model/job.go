package model

import "time"

type JobStatus string

const (
	JobStatusRequested  JobStatus = "requested"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusSkipped    JobStatus = "skipped"
	JobStatusRetried    JobStatus = "retried"
)

// IsTerminal reports whether a job in this status will never transition again.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusSkipped, JobStatusRetried:
		return true
	}
	return false
}

type OperationType string

const (
	OperationUpload   OperationType = "upload"
	OperationDownload OperationType = "download"
	OperationAlt      OperationType = "alt"
)

// Job is one unit of transfer or alt-text work, persisted in the job log.
// Subject and operation are fixed at creation; only status, metadata and
// timestamps change afterwards.
type Job struct {
	ID           int64         `json:"id"`
	AttachmentID int64         `json:"attachment_id"`
	Operation    OperationType `json:"operation_type"`
	Status       JobStatus     `json:"status"`
	FileName     string        `json:"file_name"`
	FileSize     *int64        `json:"file_size,omitempty"`
	ObjectKey    *string       `json:"object_key,omitempty"`
	ErrorMessage *string       `json:"error_message,omitempty"`
	Meta         *JobMeta      `json:"meta,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// JobUpdate carries a single-row status transition. Nil optional fields leave
// the stored value untouched; Meta is merged field-level, never replaced.
type JobUpdate struct {
	Status       JobStatus
	ErrorMessage *string
	FileSize     *int64
	ObjectKey    *string
	Meta         *JobMeta
}

// JobFilter narrows List queries. Zero values mean "no filter".
type JobFilter struct {
	Status    JobStatus
	Operation OperationType
	Limit     int
	Offset    int
}

// OperationStats aggregates one operation kind across the whole job log.
type OperationStats struct {
	Count          int64 `json:"count"`
	Bytes          int64 `json:"bytes"`
	CompletedCount int64 `json:"completed_count"`
	CompletedBytes int64 `json:"completed_bytes"`
}

// JobStats is the grouped view served by the stats endpoint.
type JobStats struct {
	Overview map[OperationType]map[JobStatus]int64 `json:"overview"`
	Totals   map[OperationType]OperationStats      `json:"totals"`
}
