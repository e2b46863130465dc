package enquiry

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create captures a public lead. New enquiries always start in "new".
func (s *Service) Create(ctx context.Context, in CreateInput) (*Enquiry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	e := &Enquiry{
		PatientName:      strings.TrimSpace(in.PatientName),
		Phone:            strings.TrimSpace(in.Phone),
		ContactMode:      in.ContactMode,
		Source:           in.Source,
		Country:          in.Country,
		City:             in.City,
		MedicalProblem:   in.MedicalProblem,
		AgeOrDOB:         in.AgeOrDOB,
		SpecialtyID:      in.SpecialtyID,
		SurgeryID:        in.SurgeryID,
		DoctorID:         in.DoctorID,
		ConsultationDate: in.ConsultationDate,
		Status:           StatusNew,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Enquiry, error) {
	return s.repo.GetByID(ctx, id)
}

// GetOwned loads an enquiry and enforces assignment to the given assistant.
// Unassigned and foreign enquiries both read as not found.
func (s *Service) GetOwned(ctx context.Context, id, pa uuid.UUID) (*Enquiry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.AssignedPA == nil || *e.AssignedPA != pa {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *Service) ListForAssistant(ctx context.Context, pa uuid.UUID, status string, limit, offset int) ([]*Enquiry, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, &ValidationError{Messages: []string{"unknown status: " + status}}
	}
	return s.repo.List(ctx, Filter{AssignedPA: &pa, Status: status}, limit, offset)
}

func (s *Service) ListAll(ctx context.Context, status string, limit, offset int) ([]*Enquiry, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, &ValidationError{Messages: []string{"unknown status: " + status}}
	}
	return s.repo.List(ctx, Filter{Status: status}, limit, offset)
}

// assistantTransitions are the moves an assistant may make directly. The
// in-service and completed states are owned by the journey lifecycle and are
// only reachable through it.
var assistantTransitions = map[string][]string{
	StatusAssigned:  {StatusContacted, StatusClosed},
	StatusContacted: {StatusClosed},
}

// UpdateStatusByAssistant moves an owned enquiry along the pre-service part
// of its lifecycle.
func (s *Service) UpdateStatusByAssistant(ctx context.Context, id, pa uuid.UUID, status string) (*Enquiry, error) {
	if !validStatuses[status] {
		return nil, &ValidationError{Messages: []string{"unknown status: " + status}}
	}
	e, err := s.GetOwned(ctx, id, pa)
	if err != nil {
		return nil, err
	}

	allowed := false
	for _, next := range assistantTransitions[e.Status] {
		if next == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: cannot move enquiry from %q to %q", ErrInvalidState, e.Status, status)
	}

	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	e.Status = status
	return e, nil
}

// Assign hands an enquiry to an assistant and marks it assigned. Enquiries
// already in service stay with their journey owner.
func (s *Service) Assign(ctx context.Context, id, pa uuid.UUID) (*Enquiry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == StatusInService || e.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: enquiry is already %s", ErrInvalidState, e.Status)
	}
	if err := s.repo.SetAssignment(ctx, id, pa); err != nil {
		return nil, err
	}
	e.AssignedPA = &pa
	e.Status = StatusAssigned
	return e, nil
}

// MarkInService transitions an enquiry into service. Called by the journey
// lifecycle inside its start-service transaction.
func (s *Service) MarkInService(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStatus(ctx, id, StatusInService)
}

// MarkCompleted closes out an enquiry when its journey completes.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return s.repo.SetStatus(ctx, id, StatusCompleted)
}
