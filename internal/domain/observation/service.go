package observation

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
	"registered":       true,
	"preliminary":      true,
	"final":            true,
	"amended":          true,
	"corrected":        true,
	"cancelled":        true,
	"entered-in-error": true,
	"unknown":          true,
}

func validateObservation(o *Observation) error {
	if !validStatuses[o.Status] {
		return fmt.Errorf("invalid status: %s", o.Status)
	}
	if o.Code == "" {
		return fmt.Errorf("code is required")
	}
	if o.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if n := o.valueCount(); n > 1 {
		return fmt.Errorf("at most one value variant is allowed, got %d", n)
	}
	if o.DataAbsentReason != nil && o.hasValue() {
		return fmt.Errorf("data_absent_reason is only allowed when no value is present")
	}
	if o.RefRangeLow != nil && o.RefRangeHigh != nil && *o.RefRangeHigh < *o.RefRangeLow {
		return fmt.Errorf("ref_range_high must not be below ref_range_low")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, o *Observation) error {
	if err := validateObservation(o); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return err
	}
	o.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Observation", o.FHIRID, o.ToFHIR())
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Observation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByFHIRID(ctx context.Context, fhirID string) (*Observation, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) Update(ctx context.Context, o *Observation) error {
	if err := validateObservation(o); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Observation", o.FHIRID, o.VersionID, o.ToFHIR())
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
			_ = s.vt.RecordDelete(ctx, "Observation", o.FHIRID, o.VersionID)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Observation, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Observation, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Observation, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}
