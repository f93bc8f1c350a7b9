package practitioner

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Practitioner) error
	GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Practitioner, error)
	Update(ctx context.Context, p *Practitioner) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Practitioner, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Practitioner, int, error)

	// Roles
	CreateRole(ctx context.Context, r *PractitionerRole) error
	GetRoleByID(ctx context.Context, id uuid.UUID) (*PractitionerRole, error)
	GetRoleByFHIRID(ctx context.Context, fhirID string) (*PractitionerRole, error)
	UpdateRole(ctx context.Context, r *PractitionerRole) error
	DeleteRole(ctx context.Context, id uuid.UUID) error
	ListRoles(ctx context.Context, limit, offset int) ([]*PractitionerRole, int, error)
	ListRolesByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*PractitionerRole, int, error)
	SearchRoles(ctx context.Context, params map[string]string, limit, offset int) ([]*PractitionerRole, int, error)
}
