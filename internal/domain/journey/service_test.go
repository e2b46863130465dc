package journey

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockRepo is an in-memory Repository for service tests.
type mockRepo struct {
	journeys map[uuid.UUID]*Journey
	updates  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{journeys: make(map[uuid.UUID]*Journey)}
}

func (m *mockRepo) Create(_ context.Context, j *Journey) error {
	for _, existing := range m.journeys {
		if existing.EnquiryID == j.EnquiryID {
			return ErrConflict
		}
	}
	j.ID = uuid.New()
	j.Version = 1
	cp := *j
	m.journeys[j.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Journey, error) {
	j, ok := m.journeys[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	cp.Stages = append([]Stage(nil), j.Stages...)
	return &cp, nil
}

func (m *mockRepo) GetByEnquiryID(_ context.Context, enquiryID uuid.UUID) (*Journey, error) {
	for _, j := range m.journeys {
		if j.EnquiryID == enquiryID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByPatientID(_ context.Context, patientID uuid.UUID) (*Journey, error) {
	for _, j := range m.journeys {
		if j.PatientID != nil && *j.PatientID == patientID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListByAssistant(_ context.Context, pa uuid.UUID, limit, offset int) ([]*Journey, int, error) {
	var items []*Journey
	for _, j := range m.journeys {
		if j.AssignedPA == pa {
			cp := *j
			items = append(items, &cp)
		}
	}
	return items, len(items), nil
}

func (m *mockRepo) Update(_ context.Context, j *Journey) error {
	stored, ok := m.journeys[j.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != j.Version {
		return ErrConcurrentUpdate
	}
	j.Version++
	cp := *j
	cp.Stages = append([]Stage(nil), j.Stages...)
	m.journeys[j.ID] = &cp
	m.updates++
	return nil
}

// mockEnquiries implements EnquiryStore.
type mockEnquiries struct {
	enquiries map[uuid.UUID]*EnquirySummary
	owners    map[uuid.UUID]uuid.UUID
	inService []uuid.UUID
	completed []uuid.UUID
}

func newMockEnquiries() *mockEnquiries {
	return &mockEnquiries{
		enquiries: make(map[uuid.UUID]*EnquirySummary),
		owners:    make(map[uuid.UUID]uuid.UUID),
	}
}

func (m *mockEnquiries) add(pa uuid.UUID, status string) uuid.UUID {
	id := uuid.New()
	m.enquiries[id] = &EnquirySummary{ID: id, PatientName: "Asha Verma", Phone: "+919812345678", Status: status}
	m.owners[id] = pa
	return id
}

func (m *mockEnquiries) GetOwned(_ context.Context, id, pa uuid.UUID) (*EnquirySummary, error) {
	e, ok := m.enquiries[id]
	if !ok || m.owners[id] != pa {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *mockEnquiries) GetByID(_ context.Context, id uuid.UUID) (*EnquirySummary, error) {
	e, ok := m.enquiries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *mockEnquiries) MarkInService(_ context.Context, id uuid.UUID) error {
	m.inService = append(m.inService, id)
	return nil
}

func (m *mockEnquiries) MarkCompleted(_ context.Context, id uuid.UUID) error {
	m.completed = append(m.completed, id)
	return nil
}

// mockProvisioner implements Provisioner.
type mockProvisioner struct {
	userID  uuid.UUID
	created bool
	calls   int
}

func (m *mockProvisioner) ResolveOrCreatePatient(_ context.Context, phone, name string) (uuid.UUID, bool, error) {
	m.calls++
	return m.userID, m.created, nil
}

func passthroughTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

type fixture struct {
	svc       *Service
	repo      *mockRepo
	enquiries *mockEnquiries
	prov      *mockProvisioner
	pa        uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:      newMockRepo(),
		enquiries: newMockEnquiries(),
		prov:      &mockProvisioner{userID: uuid.New(), created: true},
		pa:        uuid.New(),
	}
	f.svc = NewService(f.repo, f.enquiries, f.prov, passthroughTx)
	f.svc.SetClock(func() time.Time { return time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC) })
	return f
}

func (f *fixture) startJourney(t *testing.T) *Journey {
	t.Helper()
	enqID := f.enquiries.add(f.pa, "contacted")
	res, err := f.svc.StartService(context.Background(), enqID, f.pa)
	if err != nil {
		t.Fatalf("StartService: %v", err)
	}
	return res.Journey
}

func TestStartService(t *testing.T) {
	f := newFixture(t)
	enqID := f.enquiries.add(f.pa, "contacted")

	res, err := f.svc.StartService(context.Background(), enqID, f.pa)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Journey.Status != StatusActive {
		t.Errorf("expected active journey, got %q", res.Journey.Status)
	}
	if res.Journey.PatientID == nil || *res.Journey.PatientID != f.prov.userID {
		t.Error("expected journey linked to provisioned patient")
	}
	if !res.UserCreated {
		t.Error("expected userCreated true")
	}
	if res.LoginCredentials == nil || res.LoginCredentials.Phone != "+919812345678" {
		t.Error("expected login credentials for the new account")
	}
	if len(f.enquiries.inService) != 1 || f.enquiries.inService[0] != enqID {
		t.Error("expected enquiry marked in-service")
	}
}

func TestStartService_ExistingPatientNoCredentials(t *testing.T) {
	f := newFixture(t)
	f.prov.created = false
	enqID := f.enquiries.add(f.pa, "contacted")

	res, err := f.svc.StartService(context.Background(), enqID, f.pa)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.UserCreated {
		t.Error("expected userCreated false for existing account")
	}
	if res.LoginCredentials != nil {
		t.Error("credentials must not be echoed for an existing account")
	}
}

func TestStartService_WrongStatus(t *testing.T) {
	f := newFixture(t)
	enqID := f.enquiries.add(f.pa, "new")

	_, err := f.svc.StartService(context.Background(), enqID, f.pa)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if f.prov.calls != 0 {
		t.Error("no patient account may be provisioned for a rejected start")
	}
}

func TestStartService_NotOwned(t *testing.T) {
	f := newFixture(t)
	enqID := f.enquiries.add(uuid.New(), "contacted") // someone else's enquiry

	_, err := f.svc.StartService(context.Background(), enqID, f.pa)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign enquiry, got %v", err)
	}
}

func TestStartService_Duplicate(t *testing.T) {
	f := newFixture(t)
	enqID := f.enquiries.add(f.pa, "contacted")

	if _, err := f.svc.StartService(context.Background(), enqID, f.pa); err != nil {
		t.Fatalf("first start: %v", err)
	}
	_, err := f.svc.StartService(context.Background(), enqID, f.pa)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second start, got %v", err)
	}
}

func TestAddStage_AppendsInOrder(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)

	for _, title := range []string{"Arrival", "Consultation", "Surgery"} {
		var err error
		j, err = f.svc.AddStage(context.Background(), j.ID, f.pa, StageInput{Title: strp(title)})
		if err != nil {
			t.Fatalf("AddStage(%s): %v", title, err)
		}
	}

	if len(j.Stages) != 3 {
		t.Fatalf("expected 3 stages, got %d", len(j.Stages))
	}
	for i, s := range j.Stages {
		if s.Order != i+1 {
			t.Errorf("stage %d: expected order %d, got %d", i, i+1, s.Order)
		}
	}
}

func TestAddStage_RecomputesDerivedFields(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)

	j, err := f.svc.AddStage(context.Background(), j.ID, f.pa, StageInput{
		Title:     strp("Treatment"),
		Status:    strp(StageCompleted),
		StartDate: strp("2024-01-01"),
		EndDate:   strp("2024-01-03"),
	})
	if err != nil {
		t.Fatalf("AddStage: %v", err)
	}

	if j.TotalDuration != 3 {
		t.Errorf("expected totalDuration 3, got %d", j.TotalDuration)
	}
	if j.CurrentDay != 2 { // clock pinned to 2024-01-02
		t.Errorf("expected currentDay 2, got %d", j.CurrentDay)
	}
	if j.ProgressPercentage != 100 {
		t.Errorf("expected 100%% with the only stage completed, got %d", j.ProgressPercentage)
	}
}

func TestDeleteStage_Renumbers(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)
	for _, title := range []string{"A", "B", "C"} {
		var err error
		j, err = f.svc.AddStage(context.Background(), j.ID, f.pa, StageInput{Title: strp(title)})
		if err != nil {
			t.Fatalf("AddStage: %v", err)
		}
	}

	j, err := f.svc.DeleteStage(context.Background(), j.ID, j.Stages[1].ID, f.pa)
	if err != nil {
		t.Fatalf("DeleteStage: %v", err)
	}

	if len(j.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(j.Stages))
	}
	if j.Stages[0].Title != "A" || j.Stages[1].Title != "C" {
		t.Errorf("unexpected surviving stages: %q, %q", j.Stages[0].Title, j.Stages[1].Title)
	}
	if j.Stages[0].Order != 1 || j.Stages[1].Order != 2 {
		t.Errorf("expected dense 1..N orders, got %d, %d", j.Stages[0].Order, j.Stages[1].Order)
	}
}

func TestUpdateStage_UnknownStage(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)

	_, err := f.svc.UpdateStage(context.Background(), j.ID, "nope", f.pa, StageInput{Notes: strp("x")})
	if !errors.Is(err, ErrStageNotFound) {
		t.Fatalf("expected ErrStageNotFound, got %v", err)
	}
}

func TestReorderStages(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)
	for _, title := range []string{"A", "B", "C"} {
		var err error
		j, err = f.svc.AddStage(context.Background(), j.ID, f.pa, StageInput{Title: strp(title)})
		if err != nil {
			t.Fatalf("AddStage: %v", err)
		}
	}

	order := []string{j.Stages[2].ID, j.Stages[0].ID, j.Stages[1].ID}
	j, err := f.svc.ReorderStages(context.Background(), j.ID, f.pa, order)
	if err != nil {
		t.Fatalf("ReorderStages: %v", err)
	}

	titles := []string{j.Stages[0].Title, j.Stages[1].Title, j.Stages[2].Title}
	if titles[0] != "C" || titles[1] != "A" || titles[2] != "B" {
		t.Errorf("unexpected order after reorder: %v", titles)
	}
	for i, s := range j.Stages {
		if s.Order != i+1 {
			t.Errorf("stage %d: expected order %d, got %d", i, i+1, s.Order)
		}
	}
}

func TestReorderStages_RejectsBadPermutations(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)
	for _, title := range []string{"A", "B"} {
		var err error
		j, err = f.svc.AddStage(context.Background(), j.ID, f.pa, StageInput{Title: strp(title)})
		if err != nil {
			t.Fatalf("AddStage: %v", err)
		}
	}
	a := j.Stages[0].ID

	tests := []struct {
		name  string
		order []string
	}{
		{"partial", []string{a}},
		{"duplicate", []string{a, a}},
		{"unknown id", []string{a, "ghost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ReorderStages(context.Background(), j.ID, f.pa, tt.order)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestJourneyOwnership(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)

	stranger := uuid.New()
	if _, err := f.svc.GetJourney(context.Background(), j.ID, stranger); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign assistant, got %v", err)
	}
	if _, err := f.svc.AddStage(context.Background(), j.ID, stranger, StageInput{Title: strp("X")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on foreign AddStage, got %v", err)
	}
}

func TestUpdateStatus_CompleteCascades(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)

	j, err := f.svc.UpdateStatus(context.Background(), j.ID, f.pa, StatusUpdate{Status: StatusCompleted})
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if j.Status != StatusCompleted {
		t.Errorf("expected completed, got %q", j.Status)
	}
	if len(f.enquiries.completed) != 1 || f.enquiries.completed[0] != j.EnquiryID {
		t.Error("expected linked enquiry marked completed")
	}
}

func TestUpdateStatus_TerminalStates(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)

	if _, err := f.svc.UpdateStatus(context.Background(), j.ID, f.pa, StatusUpdate{Status: StatusCancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	_, err := f.svc.UpdateStatus(context.Background(), j.ID, f.pa, StatusUpdate{Status: StatusActive})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState reactivating a cancelled journey, got %v", err)
	}
}

func TestUpdateStatus_InvalidValue(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)

	_, err := f.svc.UpdateStatus(context.Background(), j.ID, f.pa, StatusUpdate{Status: "paused"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for unknown status, got %v", err)
	}
}

func TestGetPatientJourney(t *testing.T) {
	f := newFixture(t)
	j := f.startJourney(t)

	pj, err := f.svc.GetPatientJourney(context.Background(), f.prov.userID)
	if err != nil {
		t.Fatalf("GetPatientJourney: %v", err)
	}
	if pj.ID != j.ID {
		t.Error("expected the patient's own journey")
	}
	if pj.PatientName != "Asha Verma" {
		t.Errorf("expected enquiry name attached, got %q", pj.PatientName)
	}
}

func TestGetPatientJourney_None(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetPatientJourney(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
