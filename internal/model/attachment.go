package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Rendition is one generated size variant of an image attachment, stored in
// the same directory as the main file.
type Rendition struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type Renditions []Rendition

func (r Renditions) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *Renditions) Scan(src interface{}) error {
	if src == nil {
		*r = nil
		return nil
	}
	data, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("Renditions.Scan: expected []byte, got %T", src)
	}
	return json.Unmarshal(data, r)
}

// Attachment mirrors the host library's media item. The pipeline reads and
// writes the object-store fields but does not own the item's lifecycle.
type Attachment struct {
	ID           int64      `json:"id"`
	Title        string     `json:"title"`
	Caption      string     `json:"caption"`
	Description  string     `json:"description"`
	FilePath     string     `json:"file_path"` // relative to the media root
	MimeType     string     `json:"mime_type"`
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	AltText      string     `json:"alt_text"`
	ObjectKey    string     `json:"object_key"`
	ObjectBucket string     `json:"object_bucket"`
	ObjectURL    string     `json:"object_url"`
	Renditions   Renditions `json:"renditions"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsImage reports whether the attachment can go through the image pipeline.
func (a *Attachment) IsImage() bool {
	switch a.MimeType {
	case "image/jpeg", "image/png", "image/webp":
		return true
	}
	return false
}
