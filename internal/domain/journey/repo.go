package journey

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists journeys. A journey row always carries its full stage
// collection; there is no separate stage store.
type Repository interface {
	Create(ctx context.Context, j *Journey) error
	GetByID(ctx context.Context, id uuid.UUID) (*Journey, error)
	GetByEnquiryID(ctx context.Context, enquiryID uuid.UUID) (*Journey, error)
	GetByPatientID(ctx context.Context, patientID uuid.UUID) (*Journey, error)
	ListByAssistant(ctx context.Context, pa uuid.UUID, limit, offset int) ([]*Journey, int, error)
	// Update performs an optimistic write guarded by the journey's version;
	// it returns ErrConcurrentUpdate when the stored version has moved on.
	Update(ctx context.Context, j *Journey) error
}
