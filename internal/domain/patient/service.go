package patient

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

func validatePatient(p *Patient) error {
	if p.Gender != nil && !validGenders[*p.Gender] {
		return fmt.Errorf("invalid gender: %s", *p.Gender)
	}
	// deceased[x] and multipleBirth[x] are choice types
	if p.DeceasedBoolean != nil && p.DeceasedDateTime != nil {
		return fmt.Errorf("deceased_boolean and deceased_datetime are exclusive")
	}
	if p.MultipleBirthBoolean != nil && p.MultipleBirthInteger != nil {
		return fmt.Errorf("multiple_birth_boolean and multiple_birth_integer are exclusive")
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}
	p.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Patient", p.FHIRID, p.ToFHIR())
	}
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetPatientByFHIRID(ctx context.Context, fhirID string) (*Patient, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Patient", p.FHIRID, p.VersionID, p.ToFHIR())
		if err == nil {
			p.VersionID = newVer
		}
	}
	return s.repo.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		p, err := s.repo.GetByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "Patient", p.FHIRID, p.VersionID)
		}
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) SearchPatients(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) CreateRelatedPerson(ctx context.Context, rp *RelatedPerson) error {
	if rp.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if rp.Gender != nil && !validGenders[*rp.Gender] {
		return fmt.Errorf("invalid gender: %s", *rp.Gender)
	}
	if err := s.repo.CreateRelated(ctx, rp); err != nil {
		return err
	}
	rp.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "RelatedPerson", rp.FHIRID, rp.ToFHIR())
	}
	return nil
}

func (s *Service) GetRelatedPerson(ctx context.Context, id uuid.UUID) (*RelatedPerson, error) {
	return s.repo.GetRelatedByID(ctx, id)
}

func (s *Service) GetRelatedPersonByFHIRID(ctx context.Context, fhirID string) (*RelatedPerson, error) {
	return s.repo.GetRelatedByFHIRID(ctx, fhirID)
}

func (s *Service) UpdateRelatedPerson(ctx context.Context, rp *RelatedPerson) error {
	if rp.Gender != nil && !validGenders[*rp.Gender] {
		return fmt.Errorf("invalid gender: %s", *rp.Gender)
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "RelatedPerson", rp.FHIRID, rp.VersionID, rp.ToFHIR())
		if err == nil {
			rp.VersionID = newVer
		}
	}
	return s.repo.UpdateRelated(ctx, rp)
}

func (s *Service) DeleteRelatedPerson(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		rp, err := s.repo.GetRelatedByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "RelatedPerson", rp.FHIRID, rp.VersionID)
		}
	}
	return s.repo.DeleteRelated(ctx, id)
}

func (s *Service) ListRelatedPersons(ctx context.Context, limit, offset int) ([]*RelatedPerson, int, error) {
	return s.repo.ListRelated(ctx, limit, offset)
}

func (s *Service) ListRelatedPersonsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RelatedPerson, int, error) {
	return s.repo.ListRelatedByPatient(ctx, patientID, limit, offset)
}

func (s *Service) SearchRelatedPersons(ctx context.Context, params map[string]string, limit, offset int) ([]*RelatedPerson, int, error) {
	return s.repo.SearchRelated(ctx, params, limit, offset)
}
