package medicalrecord

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("medical record not found")

// ValidationError carries field-level messages for malformed record input.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// MedicalRecord is a file attachment on a journey. The file itself lives in
// the blob store; this row keeps the metadata and the serving URL.
type MedicalRecord struct {
	ID          uuid.UUID `json:"id"`
	JourneyID   uuid.UUID `json:"journeyId"`
	RecordDate  time.Time `json:"recordDate"`
	Description string    `json:"description"`
	FileURL     string    `json:"fileUrl"`
	FileName    string    `json:"fileName"`
	UploadedBy  uuid.UUID `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UploadInput is the metadata half of a record upload; the file arrives as a
// separate multipart part.
type UploadInput struct {
	RecordDate  string `json:"recordDate" form:"recordDate"`
	Description string `json:"description" form:"description"`
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func (in UploadInput) validate() (time.Time, error) {
	var msgs []string

	if strings.TrimSpace(in.Description) == "" {
		msgs = append(msgs, "description is required")
	}

	var recordDate time.Time
	if strings.TrimSpace(in.RecordDate) == "" {
		msgs = append(msgs, "recordDate is required")
	} else {
		parsed := false
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, in.RecordDate); err == nil {
				recordDate = t
				parsed = true
				break
			}
		}
		if !parsed {
			msgs = append(msgs, "recordDate must be an RFC 3339 timestamp or YYYY-MM-DD date")
		}
	}

	if len(msgs) > 0 {
		return time.Time{}, &ValidationError{Messages: msgs}
	}
	return recordDate, nil
}
