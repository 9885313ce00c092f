package model

// TransferMessage is the queue wire format. It carries everything a consumer
// needs to perform the work without re-querying the job log.
type TransferMessage struct {
	Operation OperationType `json:"operation"`
	JobID     int64         `json:"log_id"`
	SubjectID int64         `json:"subject_id"`
	FilePath  string        `json:"file_path,omitempty"`
	ObjectKey string        `json:"object_key,omitempty"`
	Timestamp int64         `json:"timestamp"`
}

// StackDescriptor holds the provisioned resource identifiers. Once a bucket
// name is assigned it is immutable for the life of the media corpus.
type StackDescriptor struct {
	BucketName        string `json:"bucket_name"`
	QueueURL          string `json:"queue_url"`
	CDNDomain         string `json:"cdn_domain,omitempty"`
	CDNDistributionID string `json:"cdn_distribution_id,omitempty"`
}
