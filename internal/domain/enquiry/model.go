package enquiry

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("enquiry not found")
	ErrInvalidState = errors.New("invalid enquiry state for this operation")
)

// ValidationError carries field-level messages for malformed enquiry input.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Enquiry statuses. An enquiry moves new → assigned → contacted → in-service
// → completed; closed is reachable from any pre-service state.
const (
	StatusNew       = "new"
	StatusAssigned  = "assigned"
	StatusContacted = "contacted"
	StatusInService = "in-service"
	StatusCompleted = "completed"
	StatusClosed    = "closed"
)

var validStatuses = map[string]bool{
	StatusNew: true, StatusAssigned: true, StatusContacted: true,
	StatusInService: true, StatusCompleted: true, StatusClosed: true,
}

// Contact modes and lead sources accepted on capture.
const (
	ContactCall    = "call"
	ContactMessage = "message"
)

var validContactModes = map[string]bool{ContactCall: true, ContactMessage: true}

var validSources = map[string]bool{
	"homepage": true, "services": true, "search": true, "doctor_direct": true,
}

// Enquiry is a patient lead. AssignedPA is nil until an admin assigns it.
type Enquiry struct {
	ID               uuid.UUID  `json:"id"`
	PatientName      string     `json:"patientName"`
	Phone            string     `json:"phone"`
	ContactMode      string     `json:"contactMode"`
	Source           string     `json:"source,omitempty"`
	Country          string     `json:"country,omitempty"`
	City             string     `json:"city,omitempty"`
	MedicalProblem   string     `json:"medicalProblem,omitempty"`
	AgeOrDOB         string     `json:"ageOrDob,omitempty"`
	SpecialtyID      *uuid.UUID `json:"specialtyId,omitempty"`
	SurgeryID        *uuid.UUID `json:"surgeryId,omitempty"`
	DoctorID         *uuid.UUID `json:"doctorId,omitempty"`
	ConsultationDate *time.Time `json:"consultationDate,omitempty"`
	Status           string     `json:"status"`
	AssignedPA       *uuid.UUID `json:"assignedPA,omitempty"`
	PackageNotes     string     `json:"packageNotes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CreateInput is the public lead-capture payload.
type CreateInput struct {
	PatientName      string     `json:"patientName"`
	Phone            string     `json:"phone"`
	ContactMode      string     `json:"contactMode"`
	Source           string     `json:"source"`
	Country          string     `json:"country"`
	City             string     `json:"city"`
	MedicalProblem   string     `json:"medicalProblem"`
	AgeOrDOB         string     `json:"ageOrDob"`
	SpecialtyID      *uuid.UUID `json:"specialtyId"`
	SurgeryID        *uuid.UUID `json:"surgeryId"`
	DoctorID         *uuid.UUID `json:"doctorId"`
	ConsultationDate *time.Time `json:"consultationDate"`
}

func (in CreateInput) validate() error {
	var msgs []string
	if strings.TrimSpace(in.Phone) == "" {
		msgs = append(msgs, "phone is required")
	}
	if !validContactModes[in.ContactMode] {
		msgs = append(msgs, "contactMode must be call or message")
	}
	if in.Source != "" && !validSources[in.Source] {
		msgs = append(msgs, "unknown source: "+in.Source)
	}
	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}
