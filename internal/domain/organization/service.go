package organization

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

func validateOrganization(o *Organization) error {
	hasName := o.Name != nil && *o.Name != ""
	hasIdentifier := o.IdentifierValue != nil && *o.IdentifierValue != ""
	if !hasName && !hasIdentifier {
		return fmt.Errorf("organization requires a name or an identifier")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, o *Organization) error {
	if err := validateOrganization(o); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return err
	}
	o.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Organization", o.FHIRID, o.ToFHIR())
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByFHIRID(ctx context.Context, fhirID string) (*Organization, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) Update(ctx context.Context, o *Organization) error {
	if err := validateOrganization(o); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Organization", o.FHIRID, o.VersionID, o.ToFHIR())
		if err == nil {
			o.VersionID = newVer
		}
	}
	return s.repo.Update(ctx, o)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		o, err := s.repo.GetByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "Organization", o.FHIRID, o.VersionID)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Organization, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
