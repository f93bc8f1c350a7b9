package medication

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

var validStatuses = map[string]bool{
	"active":           true,
	"inactive":         true,
	"entered-in-error": true,
}

func validateMedication(m *Medication) error {
	if m.Code == "" {
		return fmt.Errorf("code is required")
	}
	if m.Status != nil && !validStatuses[*m.Status] {
		return fmt.Errorf("invalid status: %s", *m.Status)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, m *Medication) error {
	if err := validateMedication(m); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return err
	}
	m.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Medication", m.FHIRID, m.ToFHIR())
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByFHIRID(ctx context.Context, fhirID string) (*Medication, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) Update(ctx context.Context, m *Medication) error {
	if err := validateMedication(m); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Medication", m.FHIRID, m.VersionID, m.ToFHIR())
		if err == nil {
			m.VersionID = newVer
		}
	}
	return s.repo.Update(ctx, m)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		m, err := s.repo.GetByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "Medication", m.FHIRID, m.VersionID)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Medication, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
