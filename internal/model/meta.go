package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JobMeta is the typed job metadata record. Fixed optional fields only; a
// merge overwrites a field when the incoming value is set and keeps the
// stored one otherwise, so the record never accumulates unbounded keys.
type JobMeta struct {
	Source      string `json:"source,omitempty"`
	Initiator   int64  `json:"initiator,omitempty"`
	Batch       string `json:"batch,omitempty"`
	Notes       string `json:"notes,omitempty"`
	PreviousJob int64  `json:"previous_job,omitempty"`

	// completion details
	OriginalSize       int64   `json:"original_size,omitempty"`
	Compressed         bool    `json:"compressed,omitempty"`
	CompressionSavings float64 `json:"compression_savings,omitempty"`
	CompressionService string  `json:"compression_service,omitempty"`
	AltText            string  `json:"alt_text,omitempty"`
	Message            string  `json:"message,omitempty"`
}

// Merge returns a copy of m with every set field of other applied on top.
func (m JobMeta) Merge(other JobMeta) JobMeta {
	out := m
	if other.Source != "" {
		out.Source = other.Source
	}
	if other.Initiator != 0 {
		out.Initiator = other.Initiator
	}
	if other.Batch != "" {
		out.Batch = other.Batch
	}
	if other.Notes != "" {
		out.Notes = other.Notes
	}
	if other.PreviousJob != 0 {
		out.PreviousJob = other.PreviousJob
	}
	if other.OriginalSize != 0 {
		out.OriginalSize = other.OriginalSize
	}
	if other.Compressed {
		out.Compressed = true
	}
	if other.CompressionSavings != 0 {
		out.CompressionSavings = other.CompressionSavings
	}
	if other.CompressionService != "" {
		out.CompressionService = other.CompressionService
	}
	if other.AltText != "" {
		out.AltText = other.AltText
	}
	if other.Message != "" {
		out.Message = other.Message
	}
	return out
}

func (m JobMeta) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal JobMeta: %w", err)
	}
	return b, nil
}

func (m *JobMeta) Scan(src interface{}) error {
	if src == nil {
		*m = JobMeta{}
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("JobMeta.Scan: expected []byte, got %T", src)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("unmarshal JobMeta: %w", err)
	}
	return nil
}
