package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error)

	// Related persons
	CreateRelated(ctx context.Context, r *RelatedPerson) error
	GetRelatedByID(ctx context.Context, id uuid.UUID) (*RelatedPerson, error)
	GetRelatedByFHIRID(ctx context.Context, fhirID string) (*RelatedPerson, error)
	UpdateRelated(ctx context.Context, r *RelatedPerson) error
	DeleteRelated(ctx context.Context, id uuid.UUID) error
	ListRelated(ctx context.Context, limit, offset int) ([]*RelatedPerson, int, error)
	ListRelatedByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RelatedPerson, int, error)
	SearchRelated(ctx context.Context, params map[string]string, limit, offset int) ([]*RelatedPerson, int, error)
}
