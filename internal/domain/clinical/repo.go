package clinical

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateCondition(ctx context.Context, c *Condition) error
	GetConditionByID(ctx context.Context, id uuid.UUID) (*Condition, error)
	GetConditionByFHIRID(ctx context.Context, fhirID string) (*Condition, error)
	UpdateCondition(ctx context.Context, c *Condition) error
	DeleteCondition(ctx context.Context, id uuid.UUID) error
	ListConditions(ctx context.Context, limit, offset int) ([]*Condition, int, error)
	ListConditionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Condition, int, error)
	SearchConditions(ctx context.Context, params map[string]string, limit, offset int) ([]*Condition, int, error)

	CreateAllergy(ctx context.Context, a *AllergyIntolerance) error
	GetAllergyByID(ctx context.Context, id uuid.UUID) (*AllergyIntolerance, error)
	GetAllergyByFHIRID(ctx context.Context, fhirID string) (*AllergyIntolerance, error)
	UpdateAllergy(ctx context.Context, a *AllergyIntolerance) error
	DeleteAllergy(ctx context.Context, id uuid.UUID) error
	ListAllergies(ctx context.Context, limit, offset int) ([]*AllergyIntolerance, int, error)
	ListAllergiesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*AllergyIntolerance, int, error)
	SearchAllergies(ctx context.Context, params map[string]string, limit, offset int) ([]*AllergyIntolerance, int, error)
}
