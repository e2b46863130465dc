package journey

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors surfaced by the service layer. Ownership misses and plain
// absence are deliberately indistinguishable: both map to ErrNotFound so the
// API never leaks whether a journey exists for someone else.
var (
	ErrNotFound      = errors.New("journey not found")
	ErrStageNotFound = errors.New("stage not found")
	ErrConflict      = errors.New("service journey already exists for this enquiry")
	ErrInvalidState  = errors.New("invalid state for this operation")

	// ErrConcurrentUpdate reports an optimistic-concurrency miss: another
	// request persisted the journey between our read and write.
	ErrConcurrentUpdate = errors.New("journey was modified concurrently, retry the operation")
)

// ValidationError carries field-level messages for malformed stage input.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// Journey statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validJourneyStatuses = map[string]bool{
	StatusActive: true, StatusCompleted: true, StatusCancelled: true,
}

// Stage statuses.
const (
	StagePending    = "pending"
	StageInProgress = "in-progress"
	StageCompleted  = "completed"
)

var validStageStatuses = map[string]bool{
	StagePending: true, StageInProgress: true, StageCompleted: true,
}

// FlightDetails annotates travel stages.
type FlightDetails struct {
	FlightNumber  string     `json:"flightNumber,omitempty"`
	DepartureTime *time.Time `json:"departureTime,omitempty"`
	ArrivalTime   *time.Time `json:"arrivalTime,omitempty"`
	Airline       string     `json:"airline,omitempty"`
}

// Stage is one ordered step inside a journey. Stages have no existence
// outside their parent journey; the ID is generated at insertion time so
// stages stay addressable across deletions and reorders (array positions
// shift, the ID does not).
type Stage struct {
	ID            string         `json:"id"`
	Order         int            `json:"order"`
	Title         string         `json:"title"`
	Description   string         `json:"description,omitempty"`
	Status        string         `json:"status"`
	StartDate     *time.Time     `json:"startDate,omitempty"`
	EndDate       *time.Time     `json:"endDate,omitempty"`
	FlightDetails *FlightDetails `json:"flightDetails,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	DurationHours *float64       `json:"durationHours,omitempty"`
}

// Journey maps to the journeys table. Stages persist as a JSONB column so a
// journey and its stages are always written as one row.
type Journey struct {
	ID                      uuid.UUID  `json:"id"`
	EnquiryID               uuid.UUID  `json:"enquiryId"`
	AssignedPA              uuid.UUID  `json:"assignedPA"`
	PatientID               *uuid.UUID `json:"patientId,omitempty"`
	Status                  string     `json:"status"`
	Stages                  []Stage    `json:"stages"`
	TotalDuration           int        `json:"totalDuration"`
	CurrentDay              int        `json:"currentDay"`
	ProgressPercentage      int        `json:"progressPercentage"`
	EstimatedCompletionDate *time.Time `json:"estimatedCompletionDate,omitempty"`
	Version                 int        `json:"-"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"updatedAt"`
}

// FindStage returns the index of the stage with the given id, or -1.
func (j *Journey) FindStage(stageID string) int {
	for i := range j.Stages {
		if j.Stages[i].ID == stageID {
			return i
		}
	}
	return -1
}

// FlightDetailsInput carries optional flight sub-fields. Nil pointers mean
// "not supplied"; on update only supplied sub-fields change.
type FlightDetailsInput struct {
	FlightNumber  *string `json:"flightNumber"`
	DepartureTime *string `json:"departureTime"`
	ArrivalTime   *string `json:"arrivalTime"`
	Airline       *string `json:"airline"`
}

// StageInput is the allow-list of caller-settable stage fields. Anything else
// in the request body is dropped by the JSON decoder. Dates arrive as strings
// so that empty strings can be normalized to absent instead of persisting as
// zero values.
type StageInput struct {
	Title         *string             `json:"title"`
	Description   *string             `json:"description"`
	Status        *string             `json:"status"`
	StartDate     *string             `json:"startDate"`
	EndDate       *string             `json:"endDate"`
	FlightDetails *FlightDetailsInput `json:"flightDetails"`
	Notes         *string             `json:"notes"`
	DurationHours *float64            `json:"durationHours"`
}

// dateLayouts accepted for stage date fields.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%s must be an RFC 3339 timestamp or YYYY-MM-DD date", field)
}

// newStage builds a Stage from input, validating required fields. The order
// is assigned by the caller (append position).
func newStage(in StageInput, order int) (Stage, error) {
	var msgs []string

	s := Stage{
		ID:     uuid.New().String(),
		Order:  order,
		Status: StagePending,
	}

	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		msgs = append(msgs, "title is required")
	} else {
		s.Title = strings.TrimSpace(*in.Title)
	}
	if in.Status != nil && *in.Status != "" {
		if !validStageStatuses[*in.Status] {
			msgs = append(msgs, fmt.Sprintf("invalid status: %s", *in.Status))
		} else {
			s.Status = *in.Status
		}
	}
	if in.Description != nil {
		s.Description = *in.Description
	}
	if in.Notes != nil {
		s.Notes = *in.Notes
	}
	if in.DurationHours != nil {
		s.DurationHours = in.DurationHours
	}
	if in.StartDate != nil {
		t, err := parseDate("startDate", *in.StartDate)
		if err != nil {
			msgs = append(msgs, err.Error())
		}
		s.StartDate = t
	}
	if in.EndDate != nil {
		t, err := parseDate("endDate", *in.EndDate)
		if err != nil {
			msgs = append(msgs, err.Error())
		}
		s.EndDate = t
	}
	if in.FlightDetails != nil {
		fd := &FlightDetails{}
		if err := mergeFlightDetails(fd, *in.FlightDetails); err != nil {
			msgs = append(msgs, err.Error())
		}
		s.FlightDetails = fd
	}

	if len(msgs) > 0 {
		return Stage{}, &ValidationError{Messages: msgs}
	}
	return s, nil
}

// applyStageInput merges input into an existing stage. Order is never touched
// here; reordering has its own operation. Nil pointers leave fields alone,
// empty-string dates clear them.
func applyStageInput(s *Stage, in StageInput) error {
	var msgs []string

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			msgs = append(msgs, "title cannot be empty")
		} else {
			s.Title = title
		}
	}
	if in.Status != nil && *in.Status != "" {
		if !validStageStatuses[*in.Status] {
			msgs = append(msgs, fmt.Sprintf("invalid status: %s", *in.Status))
		} else {
			s.Status = *in.Status
		}
	}
	if in.Description != nil {
		s.Description = *in.Description
	}
	if in.Notes != nil {
		s.Notes = *in.Notes
	}
	if in.DurationHours != nil {
		s.DurationHours = in.DurationHours
	}
	if in.StartDate != nil {
		t, err := parseDate("startDate", *in.StartDate)
		if err != nil {
			msgs = append(msgs, err.Error())
		} else {
			s.StartDate = t
		}
	}
	if in.EndDate != nil {
		t, err := parseDate("endDate", *in.EndDate)
		if err != nil {
			msgs = append(msgs, err.Error())
		} else {
			s.EndDate = t
		}
	}
	if in.FlightDetails != nil {
		if s.FlightDetails == nil {
			s.FlightDetails = &FlightDetails{}
		}
		if err := mergeFlightDetails(s.FlightDetails, *in.FlightDetails); err != nil {
			msgs = append(msgs, err.Error())
		}
	}

	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}

// mergeFlightDetails shallow-merges supplied sub-fields into fd.
func mergeFlightDetails(fd *FlightDetails, in FlightDetailsInput) error {
	if in.FlightNumber != nil {
		fd.FlightNumber = *in.FlightNumber
	}
	if in.Airline != nil {
		fd.Airline = *in.Airline
	}
	if in.DepartureTime != nil {
		t, err := parseDate("flightDetails.departureTime", *in.DepartureTime)
		if err != nil {
			return err
		}
		fd.DepartureTime = t
	}
	if in.ArrivalTime != nil {
		t, err := parseDate("flightDetails.arrivalTime", *in.ArrivalTime)
		if err != nil {
			return err
		}
		fd.ArrivalTime = t
	}
	return nil
}
