package journey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// enquiryStatusContacted is the only enquiry state a journey may start from.
const enquiryStatusContacted = "contacted"

// EnquirySummary is the slice of an enquiry the journey engine needs.
type EnquirySummary struct {
	ID          uuid.UUID
	PatientName string
	Phone       string
	Status      string
}

// EnquiryStore is the enquiry collaborator. GetOwned must return ErrNotFound
// both when the enquiry is absent and when it belongs to another assistant.
type EnquiryStore interface {
	GetOwned(ctx context.Context, id, pa uuid.UUID) (*EnquirySummary, error)
	GetByID(ctx context.Context, id uuid.UUID) (*EnquirySummary, error)
	MarkInService(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

// Provisioner resolves or creates a patient user account keyed by phone.
type Provisioner interface {
	ResolveOrCreatePatient(ctx context.Context, phone, name string) (userID uuid.UUID, created bool, err error)
}

// TxRunner executes fn as one atomic unit. In production this is db.WithTx;
// tests substitute a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Credentials are the one-time login details handed to the assistant when a
// patient account is auto-provisioned. The phone number doubles as the
// initial password; the patient is expected to change it on first login.
type Credentials struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// StartServiceResult is the outcome of starting a journey from an enquiry.
type StartServiceResult struct {
	Journey          *Journey     `json:"journey"`
	UserCreated      bool         `json:"userCreated"`
	LoginCredentials *Credentials `json:"loginCredentials,omitempty"`
}

// PatientJourney is a journey decorated with the patient display name for the
// patient-facing read.
type PatientJourney struct {
	*Journey
	PatientName string `json:"patientName,omitempty"`
}

type Service struct {
	journeys    Repository
	enquiries   EnquiryStore
	provisioner Provisioner
	tx          TxRunner
	now         func() time.Time
}

func NewService(journeys Repository, enquiries EnquiryStore, provisioner Provisioner, tx TxRunner) *Service {
	return &Service{
		journeys:    journeys,
		enquiries:   enquiries,
		provisioner: provisioner,
		tx:          tx,
		now:         time.Now,
	}
}

// SetClock overrides the service's time source. Tests use this to pin
// "today" for the duration calculator.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// StartService turns a contacted enquiry into an active journey. The patient
// account provisioning, journey insert and enquiry transition run in one
// transaction: if any step fails nothing is persisted.
func (s *Service) StartService(ctx context.Context, enquiryID, pa uuid.UUID) (*StartServiceResult, error) {
	enq, err := s.enquiries.GetOwned(ctx, enquiryID, pa)
	if err != nil {
		return nil, err
	}
	if enq.Status != enquiryStatusContacted {
		return nil, fmt.Errorf("%w: enquiry must be in %q status to start service, got %q",
			ErrInvalidState, enquiryStatusContacted, enq.Status)
	}

	if _, err := s.journeys.GetByEnquiryID(ctx, enquiryID); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	result := &StartServiceResult{}
	err = s.tx(ctx, func(ctx context.Context) error {
		patientID, created, err := s.provisioner.ResolveOrCreatePatient(ctx, enq.Phone, enq.PatientName)
		if err != nil {
			return fmt.Errorf("provision patient account: %w", err)
		}

		j := &Journey{
			EnquiryID:  enquiryID,
			AssignedPA: pa,
			PatientID:  &patientID,
			Status:     StatusActive,
			Stages:     []Stage{},
		}
		j.Recalculate(s.now())
		if err := s.journeys.Create(ctx, j); err != nil {
			return err
		}
		if err := s.enquiries.MarkInService(ctx, enquiryID); err != nil {
			return err
		}

		result.Journey = j
		result.UserCreated = created
		if created {
			result.LoginCredentials = &Credentials{Phone: enq.Phone, Password: enq.Phone}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// getOwned loads a journey and enforces assistant ownership. A journey owned
// by someone else reads as not found.
func (s *Service) getOwned(ctx context.Context, id, pa uuid.UUID) (*Journey, error) {
	j, err := s.journeys.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.AssignedPA != pa {
		return nil, ErrNotFound
	}
	return j, nil
}

func (s *Service) ListJourneys(ctx context.Context, pa uuid.UUID, limit, offset int) ([]*Journey, int, error) {
	return s.journeys.ListByAssistant(ctx, pa, limit, offset)
}

func (s *Service) GetJourney(ctx context.Context, id, pa uuid.UUID) (*Journey, error) {
	return s.getOwned(ctx, id, pa)
}

// GetPatientJourney returns the journey linked to a patient account together
// with the display name captured on the originating enquiry.
func (s *Service) GetPatientJourney(ctx context.Context, patientID uuid.UUID) (*PatientJourney, error) {
	j, err := s.journeys.GetByPatientID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	pj := &PatientJourney{Journey: j}
	if enq, err := s.enquiries.GetByID(ctx, j.EnquiryID); err == nil {
		pj.PatientName = enq.PatientName
	}
	return pj, nil
}

// AddStage appends a stage at the next order position and recomputes the
// derived fields before persisting.
func (s *Service) AddStage(ctx context.Context, journeyID, pa uuid.UUID, in StageInput) (*Journey, error) {
	j, err := s.getOwned(ctx, journeyID, pa)
	if err != nil {
		return nil, err
	}

	stage, err := newStage(in, len(j.Stages)+1)
	if err != nil {
		return nil, err
	}

	j.Stages = append(j.Stages, stage)
	j.Recalculate(s.now())
	if err := s.journeys.Update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// UpdateStage merges the supplied fields into an existing stage. The stage's
// order is immutable from this path; use ReorderStages instead.
func (s *Service) UpdateStage(ctx context.Context, journeyID uuid.UUID, stageID string, pa uuid.UUID, in StageInput) (*Journey, error) {
	j, err := s.getOwned(ctx, journeyID, pa)
	if err != nil {
		return nil, err
	}

	idx := j.FindStage(stageID)
	if idx < 0 {
		return nil, ErrStageNotFound
	}
	if err := applyStageInput(&j.Stages[idx], in); err != nil {
		return nil, err
	}

	j.Recalculate(s.now())
	if err := s.journeys.Update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// DeleteStage removes a stage and renumbers the survivors to a dense 1..N
// sequence, preserving their relative order.
func (s *Service) DeleteStage(ctx context.Context, journeyID uuid.UUID, stageID string, pa uuid.UUID) (*Journey, error) {
	j, err := s.getOwned(ctx, journeyID, pa)
	if err != nil {
		return nil, err
	}

	idx := j.FindStage(stageID)
	if idx < 0 {
		return nil, ErrStageNotFound
	}
	j.Stages = append(j.Stages[:idx], j.Stages[idx+1:]...)
	for i := range j.Stages {
		j.Stages[i].Order = i + 1
	}

	j.Recalculate(s.now())
	if err := s.journeys.Update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// ReorderStages applies a caller-supplied permutation of stage ids. The list
// must name every current stage exactly once; partial or unknown lists are
// rejected rather than leaving the sequence in a half-applied state.
func (s *Service) ReorderStages(ctx context.Context, journeyID, pa uuid.UUID, stageOrder []string) (*Journey, error) {
	j, err := s.getOwned(ctx, journeyID, pa)
	if err != nil {
		return nil, err
	}

	if err := validatePermutation(j.Stages, stageOrder); err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(stageOrder))
	for i, id := range stageOrder {
		pos[id] = i + 1
	}
	for i := range j.Stages {
		j.Stages[i].Order = pos[j.Stages[i].ID]
	}
	sort.SliceStable(j.Stages, func(a, b int) bool {
		return j.Stages[a].Order < j.Stages[b].Order
	})

	j.Recalculate(s.now())
	if err := s.journeys.Update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// validatePermutation checks that ids is a complete, duplicate-free
// permutation of the current stage ids.
func validatePermutation(stages []Stage, ids []string) error {
	if len(ids) != len(stages) {
		return &ValidationError{Messages: []string{
			fmt.Sprintf("stageOrder must list all %d stages, got %d", len(stages), len(ids)),
		}}
	}
	known := make(map[string]bool, len(stages))
	for i := range stages {
		known[stages[i].ID] = true
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return &ValidationError{Messages: []string{fmt.Sprintf("unknown stage id: %s", id)}}
		}
		if seen[id] {
			return &ValidationError{Messages: []string{fmt.Sprintf("duplicate stage id: %s", id)}}
		}
		seen[id] = true
	}
	return nil
}

// StatusUpdate is the payload for UpdateStatus. EstimatedCompletionDate is
// caller-settable and never derived.
type StatusUpdate struct {
	Status                  string     `json:"status"`
	EstimatedCompletionDate *time.Time `json:"estimatedCompletionDate"`
}

// UpdateStatus transitions the journey. Completed and cancelled are terminal;
// completing a journey cascades the linked enquiry to completed and locks the
// current-day indicator at the total duration.
func (s *Service) UpdateStatus(ctx context.Context, journeyID, pa uuid.UUID, upd StatusUpdate) (*Journey, error) {
	if !validJourneyStatuses[upd.Status] {
		return nil, fmt.Errorf("%w: invalid journey status %q", ErrInvalidState, upd.Status)
	}

	j, err := s.getOwned(ctx, journeyID, pa)
	if err != nil {
		return nil, err
	}
	if (j.Status == StatusCompleted || j.Status == StatusCancelled) && upd.Status != j.Status {
		return nil, fmt.Errorf("%w: journey is %s", ErrInvalidState, j.Status)
	}

	j.Status = upd.Status
	if upd.EstimatedCompletionDate != nil {
		j.EstimatedCompletionDate = upd.EstimatedCompletionDate
	}
	j.Recalculate(s.now())

	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.journeys.Update(ctx, j); err != nil {
			return err
		}
		if upd.Status == StatusCompleted {
			return s.enquiries.MarkCompleted(ctx, j.EnquiryID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return j, nil
}
