package medicalrecord

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]*MedicalRecord, error)
}
