package directory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	CreateLocation(ctx context.Context, l *Location) error
	GetLocationByID(ctx context.Context, id uuid.UUID) (*Location, error)
	GetLocationByFHIRID(ctx context.Context, fhirID string) (*Location, error)
	UpdateLocation(ctx context.Context, l *Location) error
	DeleteLocation(ctx context.Context, id uuid.UUID) error
	ListLocations(ctx context.Context, limit, offset int) ([]*Location, int, error)
	SearchLocations(ctx context.Context, params map[string]string, limit, offset int) ([]*Location, int, error)

	CreateService(ctx context.Context, hs *HealthcareService) error
	GetServiceByID(ctx context.Context, id uuid.UUID) (*HealthcareService, error)
	GetServiceByFHIRID(ctx context.Context, fhirID string) (*HealthcareService, error)
	UpdateService(ctx context.Context, hs *HealthcareService) error
	DeleteService(ctx context.Context, id uuid.UUID) error
	ListServices(ctx context.Context, limit, offset int) ([]*HealthcareService, int, error)
	SearchServices(ctx context.Context, params map[string]string, limit, offset int) ([]*HealthcareService, int, error)

	CreateEndpoint(ctx context.Context, e *Endpoint) error
	GetEndpointByID(ctx context.Context, id uuid.UUID) (*Endpoint, error)
	GetEndpointByFHIRID(ctx context.Context, fhirID string) (*Endpoint, error)
	UpdateEndpoint(ctx context.Context, e *Endpoint) error
	DeleteEndpoint(ctx context.Context, id uuid.UUID) error
	ListEndpoints(ctx context.Context, limit, offset int) ([]*Endpoint, int, error)
	SearchEndpoints(ctx context.Context, params map[string]string, limit, offset int) ([]*Endpoint, int, error)
}
