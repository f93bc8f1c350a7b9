package practitioner

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

var validGenders = map[string]bool{
	"male":    true,
	"female":  true,
	"other":   true,
	"unknown": true,
}

func (s *Service) CreatePractitioner(ctx context.Context, p *Practitioner) error {
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	p.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Practitioner", p.FHIRID, p.ToFHIR())
	}
	return nil
}

func (s *Service) GetPractitioner(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPractitionerByFHIRID(ctx context.Context, fhirID string) (*Practitioner, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) UpdatePractitioner(ctx context.Context, p *Practitioner) error {
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Practitioner", p.FHIRID, p.VersionID, p.ToFHIR())
		if err == nil {
			p.VersionID = newVer
		}
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeletePractitioner(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		p, err := s.repo.GetByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "Practitioner", p.FHIRID, p.VersionID)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPractitioners(ctx context.Context, limit, offset int) ([]*Practitioner, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) SearchPractitioners(ctx context.Context, params map[string]string, limit, offset int) ([]*Practitioner, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) CreateRole(ctx context.Context, r *PractitionerRole) error {
	if r.PractitionerID == uuid.Nil {
		return fmt.Errorf("practitioner_id is required")
	}
	if r.PeriodStart != nil && r.PeriodEnd != nil && r.PeriodEnd.Before(*r.PeriodStart) {
		return fmt.Errorf("period_end must not precede period_start")
	}
	if err := s.repo.CreateRole(ctx, r); err != nil {
		return err
	}
	r.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "PractitionerRole", r.FHIRID, r.ToFHIR())
	}
	return nil
}

func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*PractitionerRole, error) {
	return s.repo.GetRoleByID(ctx, id)
}

func (s *Service) GetRoleByFHIRID(ctx context.Context, fhirID string) (*PractitionerRole, error) {
	return s.repo.GetRoleByFHIRID(ctx, fhirID)
}

func (s *Service) UpdateRole(ctx context.Context, r *PractitionerRole) error {
	if r.PeriodStart != nil && r.PeriodEnd != nil && r.PeriodEnd.Before(*r.PeriodStart) {
		return fmt.Errorf("period_end must not precede period_start")
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "PractitionerRole", r.FHIRID, r.VersionID, r.ToFHIR())
		if err == nil {
			r.VersionID = newVer
		}
	}
	return s.repo.UpdateRole(ctx, r)
}

func (s *Service) DeleteRole(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		r, err := s.repo.GetRoleByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "PractitionerRole", r.FHIRID, r.VersionID)
		}
	}
	return s.repo.DeleteRole(ctx, id)
}

func (s *Service) ListRoles(ctx context.Context, limit, offset int) ([]*PractitionerRole, int, error) {
	return s.repo.ListRoles(ctx, limit, offset)
}

func (s *Service) ListRolesByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*PractitionerRole, int, error) {
	return s.repo.ListRolesByPractitioner(ctx, practitionerID, limit, offset)
}

func (s *Service) SearchRoles(ctx context.Context, params map[string]string, limit, offset int) ([]*PractitionerRole, int, error) {
	return s.repo.SearchRoles(ctx, params, limit, offset)
}
