package medicalrecord

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/futurxteam/MedTour-backend/internal/platform/blobstore"
)

// JourneyAccess is the journey collaborator. CheckOwned must return
// ErrNotFound for absent and foreign journeys alike; PatientJourneyID
// resolves a patient user to their journey.
type JourneyAccess interface {
	CheckOwned(ctx context.Context, journeyID, pa uuid.UUID) error
	PatientJourneyID(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
}

type Service struct {
	repo     Repository
	journeys JourneyAccess
	files    blobstore.Store
}

func NewService(repo Repository, journeys JourneyAccess, files blobstore.Store) *Service {
	return &Service{repo: repo, journeys: journeys, files: files}
}

// Upload stores the file in the blob store and the metadata row in the
// database. Journey ownership is checked first so an assistant can only
// attach records to their own journeys.
func (s *Service) Upload(ctx context.Context, journeyID, pa uuid.UUID, in UploadInput,
	fileName, contentType string, content io.Reader) (*MedicalRecord, error) {

	if err := s.journeys.CheckOwned(ctx, journeyID, pa); err != nil {
		return nil, err
	}
	recordDate, err := in.validate()
	if err != nil {
		return nil, err
	}

	obj, err := s.files.Save(ctx, fileName, contentType, content)
	if err != nil {
		return nil, err
	}

	m := &MedicalRecord{
		JourneyID:   journeyID,
		RecordDate:  recordDate,
		Description: in.Description,
		FileURL:     obj.URL,
		FileName:    fileName,
		UploadedBy:  pa,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		// best effort cleanup of the orphaned blob
		_ = s.files.Remove(ctx, obj.Key)
		return nil, err
	}
	return m, nil
}

// ListByJourney returns an assistant's view of a journey's records.
func (s *Service) ListByJourney(ctx context.Context, journeyID, pa uuid.UUID) ([]*MedicalRecord, error) {
	if err := s.journeys.CheckOwned(ctx, journeyID, pa); err != nil {
		return nil, err
	}
	return s.repo.ListByJourney(ctx, journeyID)
}

// ListForPatient returns the records attached to the patient's own journey.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	journeyID, err := s.journeys.PatientJourneyID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByJourney(ctx, journeyID)
}
