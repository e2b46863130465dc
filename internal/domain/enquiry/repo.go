package enquiry

import (
	"context"

	"github.com/google/uuid"
)

// Filter narrows enquiry listings. Zero values mean "any".
type Filter struct {
	AssignedPA *uuid.UUID
	Status     string
}

type Repository interface {
	Create(ctx context.Context, e *Enquiry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Enquiry, error)
	List(ctx context.Context, f Filter, limit, offset int) ([]*Enquiry, int, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	SetAssignment(ctx context.Context, id, pa uuid.UUID) error
}
