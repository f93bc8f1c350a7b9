package directory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

type Service struct {
	repo Repository
	vt   *fhir.VersionTracker
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetVersionTracker attaches an optional VersionTracker to the service.
func (s *Service) SetVersionTracker(vt *fhir.VersionTracker) {
	s.vt = vt
}

// VersionTracker returns the service's VersionTracker (may be nil).
func (s *Service) VersionTracker() *fhir.VersionTracker {
	return s.vt
}

var validLocationStatuses = map[string]bool{
	"active":    true,
	"suspended": true,
	"inactive":  true,
}

var validLocationModes = map[string]bool{
	"instance": true,
	"kind":     true,
}

var validEndpointStatuses = map[string]bool{
	"active":           true,
	"suspended":        true,
	"error":            true,
	"off":              true,
	"entered-in-error": true,
}

func validateLocation(l *Location) error {
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if l.Status != nil && !validLocationStatuses[*l.Status] {
		return fmt.Errorf("invalid status: %s", *l.Status)
	}
	if l.Mode != nil && !validLocationModes[*l.Mode] {
		return fmt.Errorf("invalid mode: %s", *l.Mode)
	}
	if (l.PositionLongitude == nil) != (l.PositionLatitude == nil) {
		return fmt.Errorf("position requires both longitude and latitude")
	}
	return nil
}

func validateService(hs *HealthcareService) error {
	if hs.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func validateEndpoint(e *Endpoint) error {
	if e.Status == "" {
		return fmt.Errorf("status is required")
	}
	if !validEndpointStatuses[e.Status] {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	if e.Address == "" {
		return fmt.Errorf("address is required")
	}
	if e.PeriodStart != nil && e.PeriodEnd != nil && e.PeriodEnd.Before(*e.PeriodStart) {
		return fmt.Errorf("period end cannot precede period start")
	}
	return nil
}

// -- Location --

func (s *Service) CreateLocation(ctx context.Context, l *Location) error {
	if err := validateLocation(l); err != nil {
		return err
	}
	if err := s.repo.CreateLocation(ctx, l); err != nil {
		return err
	}
	l.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Location", l.FHIRID, l.ToFHIR())
	}
	return nil
}

func (s *Service) GetLocation(ctx context.Context, id uuid.UUID) (*Location, error) {
	return s.repo.GetLocationByID(ctx, id)
}

func (s *Service) GetLocationByFHIRID(ctx context.Context, fhirID string) (*Location, error) {
	return s.repo.GetLocationByFHIRID(ctx, fhirID)
}

func (s *Service) UpdateLocation(ctx context.Context, l *Location) error {
	if err := validateLocation(l); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Location", l.FHIRID, l.VersionID, l.ToFHIR())
		if err == nil {
			l.VersionID = newVer
		}
	}
	return s.repo.UpdateLocation(ctx, l)
}

func (s *Service) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		l, err := s.repo.GetLocationByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "Location", l.FHIRID, l.VersionID)
		}
	}
	return s.repo.DeleteLocation(ctx, id)
}

func (s *Service) ListLocations(ctx context.Context, limit, offset int) ([]*Location, int, error) {
	return s.repo.ListLocations(ctx, limit, offset)
}

func (s *Service) SearchLocations(ctx context.Context, params map[string]string, limit, offset int) ([]*Location, int, error) {
	return s.repo.SearchLocations(ctx, params, limit, offset)
}

// -- HealthcareService --

func (s *Service) CreateService(ctx context.Context, hs *HealthcareService) error {
	if err := validateService(hs); err != nil {
		return err
	}
	if err := s.repo.CreateService(ctx, hs); err != nil {
		return err
	}
	hs.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "HealthcareService", hs.FHIRID, hs.ToFHIR())
	}
	return nil
}

func (s *Service) GetService(ctx context.Context, id uuid.UUID) (*HealthcareService, error) {
	return s.repo.GetServiceByID(ctx, id)
}

func (s *Service) GetServiceByFHIRID(ctx context.Context, fhirID string) (*HealthcareService, error) {
	return s.repo.GetServiceByFHIRID(ctx, fhirID)
}

func (s *Service) UpdateService(ctx context.Context, hs *HealthcareService) error {
	if err := validateService(hs); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "HealthcareService", hs.FHIRID, hs.VersionID, hs.ToFHIR())
		if err == nil {
			hs.VersionID = newVer
		}
	}
	return s.repo.UpdateService(ctx, hs)
}

func (s *Service) DeleteService(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		hs, err := s.repo.GetServiceByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "HealthcareService", hs.FHIRID, hs.VersionID)
		}
	}
	return s.repo.DeleteService(ctx, id)
}

func (s *Service) ListServices(ctx context.Context, limit, offset int) ([]*HealthcareService, int, error) {
	return s.repo.ListServices(ctx, limit, offset)
}

func (s *Service) SearchServices(ctx context.Context, params map[string]string, limit, offset int) ([]*HealthcareService, int, error) {
	return s.repo.SearchServices(ctx, params, limit, offset)
}

// -- Endpoint --

func (s *Service) CreateEndpoint(ctx context.Context, e *Endpoint) error {
	if err := validateEndpoint(e); err != nil {
		return err
	}
	if err := s.repo.CreateEndpoint(ctx, e); err != nil {
		return err
	}
	e.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Endpoint", e.FHIRID, e.ToFHIR())
	}
	return nil
}

func (s *Service) GetEndpoint(ctx context.Context, id uuid.UUID) (*Endpoint, error) {
	return s.repo.GetEndpointByID(ctx, id)
}

func (s *Service) GetEndpointByFHIRID(ctx context.Context, fhirID string) (*Endpoint, error) {
	return s.repo.GetEndpointByFHIRID(ctx, fhirID)
}

func (s *Service) UpdateEndpoint(ctx context.Context, e *Endpoint) error {
	if err := validateEndpoint(e); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Endpoint", e.FHIRID, e.VersionID, e.ToFHIR())
		if err == nil {
			e.VersionID = newVer
		}
	}
	return s.repo.UpdateEndpoint(ctx, e)
}

func (s *Service) DeleteEndpoint(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		e, err := s.repo.GetEndpointByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "Endpoint", e.FHIRID, e.VersionID)
		}
	}
	return s.repo.DeleteEndpoint(ctx, id)
}

func (s *Service) ListEndpoints(ctx context.Context, limit, offset int) ([]*Endpoint, int, error) {
	return s.repo.ListEndpoints(ctx, limit, offset)
}

func (s *Service) SearchEndpoints(ctx context.Context, params map[string]string, limit, offset int) ([]*Endpoint, int, error) {
	return s.repo.SearchEndpoints(ctx, params, limit, offset)
}
