package encounter

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
	"planned":          true,
	"in-progress":      true,
	"on-hold":          true,
	"discharged":       true,
	"completed":        true,
	"cancelled":        true,
	"discontinued":     true,
	"entered-in-error": true,
	"unknown":          true,
}

func validateEncounter(e *Encounter) error {
	if !validStatuses[e.Status] {
		return fmt.Errorf("invalid status: %s", e.Status)
	}
	if e.ClassCode == "" {
		return fmt.Errorf("class is required")
	}
	if e.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if e.PlannedStart != nil && e.PlannedEnd != nil && e.PlannedEnd.Before(*e.PlannedStart) {
		return fmt.Errorf("planned_end must not precede planned_start")
	}
	if e.ActualStart != nil && e.ActualEnd != nil && e.ActualEnd.Before(*e.ActualStart) {
		return fmt.Errorf("actual_end must not precede actual_start")
	}
	if (e.Status == "completed" || e.Status == "discharged") && e.ActualStart == nil {
		return fmt.Errorf("%s encounter requires an actual period", e.Status)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, e *Encounter) error {
	if err := validateEncounter(e); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}
	e.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Encounter", e.FHIRID, e.ToFHIR())
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByFHIRID(ctx context.Context, fhirID string) (*Encounter, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) Update(ctx context.Context, e *Encounter) error {
	if err := validateEncounter(e); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Encounter", e.FHIRID, e.VersionID, e.ToFHIR())
		if err == nil {
			e.VersionID = newVer
		}
	}
	return s.repo.Update(ctx, e)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		e, err := s.repo.GetByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "Encounter", e.FHIRID, e.VersionID)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Encounter, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
