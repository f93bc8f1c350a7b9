package clinical

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

var validConditionStatuses = map[string]bool{
	"active":     true,
	"recurrence": true,
	"relapse":    true,
	"inactive":   true,
	"remission":  true,
	"resolved":   true,
	"unknown":    true,
}

// abatementStatuses are the clinical statuses under which an abatement
// date may be recorded.
var abatementStatuses = map[string]bool{
	"inactive":  true,
	"remission": true,
	"resolved":  true,
}

var validAllergyStatuses = map[string]bool{
	"active":   true,
	"inactive": true,
	"resolved": true,
}

var validAllergyTypes = map[string]bool{
	"allergy":     true,
	"intolerance": true,
}

var validAllergyCategories = map[string]bool{
	"food":        true,
	"medication":  true,
	"environment": true,
	"biologic":    true,
}

var validCriticalities = map[string]bool{
	"low":              true,
	"high":             true,
	"unable-to-assess": true,
}

var validReactionSeverities = map[string]bool{
	"mild":     true,
	"moderate": true,
	"severe":   true,
}

func validateCondition(c *Condition) error {
	if !validConditionStatuses[c.ClinicalStatus] {
		return fmt.Errorf("invalid clinical_status: %s", c.ClinicalStatus)
	}
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if c.AbatementDateTime != nil && !abatementStatuses[c.ClinicalStatus] {
		return fmt.Errorf("abatement requires an inactive, remission, or resolved status")
	}
	if c.OnsetDateTime != nil && c.AbatementDateTime != nil && c.AbatementDateTime.Before(*c.OnsetDateTime) {
		return fmt.Errorf("abatement_datetime must not precede onset_datetime")
	}
	return nil
}

func validateAllergy(a *AllergyIntolerance) error {
	if !validAllergyStatuses[a.ClinicalStatus] {
		return fmt.Errorf("invalid clinical_status: %s", a.ClinicalStatus)
	}
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.Type != nil && !validAllergyTypes[*a.Type] {
		return fmt.Errorf("invalid type: %s", *a.Type)
	}
	if a.Category != nil && !validAllergyCategories[*a.Category] {
		return fmt.Errorf("invalid category: %s", *a.Category)
	}
	if a.Criticality != nil && !validCriticalities[*a.Criticality] {
		return fmt.Errorf("invalid criticality: %s", *a.Criticality)
	}
	if a.ReactionSeverity != nil && !validReactionSeverities[*a.ReactionSeverity] {
		return fmt.Errorf("invalid reaction_severity: %s", *a.ReactionSeverity)
	}
	return nil
}

// -- Condition --

func (s *Service) CreateCondition(ctx context.Context, c *Condition) error {
	if err := validateCondition(c); err != nil {
		return err
	}
	if err := s.repo.CreateCondition(ctx, c); err != nil {
		return err
	}
	c.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "Condition", c.FHIRID, c.ToFHIR())
	}
	return nil
}

func (s *Service) GetCondition(ctx context.Context, id uuid.UUID) (*Condition, error) {
	return s.repo.GetConditionByID(ctx, id)
}

func (s *Service) GetConditionByFHIRID(ctx context.Context, fhirID string) (*Condition, error) {
	return s.repo.GetConditionByFHIRID(ctx, fhirID)
}

func (s *Service) UpdateCondition(ctx context.Context, c *Condition) error {
	if err := validateCondition(c); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "Condition", c.FHIRID, c.VersionID, c.ToFHIR())
		if err == nil {
			c.VersionID = newVer
		}
	}
	return s.repo.UpdateCondition(ctx, c)
}

func (s *Service) DeleteCondition(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		c, err := s.repo.GetConditionByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "Condition", c.FHIRID, c.VersionID)
		}
	}
	return s.repo.DeleteCondition(ctx, id)
}

func (s *Service) ListConditions(ctx context.Context, limit, offset int) ([]*Condition, int, error) {
	return s.repo.ListConditions(ctx, limit, offset)
}

func (s *Service) ListConditionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Condition, int, error) {
	return s.repo.ListConditionsByPatient(ctx, patientID, limit, offset)
}

func (s *Service) SearchConditions(ctx context.Context, params map[string]string, limit, offset int) ([]*Condition, int, error) {
	return s.repo.SearchConditions(ctx, params, limit, offset)
}

// -- AllergyIntolerance --

func (s *Service) CreateAllergy(ctx context.Context, a *AllergyIntolerance) error {
	if err := validateAllergy(a); err != nil {
		return err
	}
	if err := s.repo.CreateAllergy(ctx, a); err != nil {
		return err
	}
	a.VersionID = 1
	if s.vt != nil {
		_ = s.vt.RecordCreate(ctx, "AllergyIntolerance", a.FHIRID, a.ToFHIR())
	}
	return nil
}

func (s *Service) GetAllergy(ctx context.Context, id uuid.UUID) (*AllergyIntolerance, error) {
	return s.repo.GetAllergyByID(ctx, id)
}

func (s *Service) GetAllergyByFHIRID(ctx context.Context, fhirID string) (*AllergyIntolerance, error) {
	return s.repo.GetAllergyByFHIRID(ctx, fhirID)
}

func (s *Service) UpdateAllergy(ctx context.Context, a *AllergyIntolerance) error {
	if err := validateAllergy(a); err != nil {
		return err
	}
	if s.vt != nil {
		newVer, err := s.vt.RecordUpdate(ctx, "AllergyIntolerance", a.FHIRID, a.VersionID, a.ToFHIR())
		if err == nil {
			a.VersionID = newVer
		}
	}
	return s.repo.UpdateAllergy(ctx, a)
}

func (s *Service) DeleteAllergy(ctx context.Context, id uuid.UUID) error {
	if s.vt != nil {
		a, err := s.repo.GetAllergyByID(ctx, id)
		if err == nil {
			_ = s.vt.RecordDelete(ctx, "AllergyIntolerance", a.FHIRID, a.VersionID)
		}
	}
	return s.repo.DeleteAllergy(ctx, id)
}

func (s *Service) ListAllergies(ctx context.Context, limit, offset int) ([]*AllergyIntolerance, int, error) {
	return s.repo.ListAllergies(ctx, limit, offset)
}

func (s *Service) ListAllergiesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*AllergyIntolerance, int, error) {
	return s.repo.ListAllergiesByPatient(ctx, patientID, limit, offset)
}

func (s *Service) SearchAllergies(ctx context.Context, params map[string]string, limit, offset int) ([]*AllergyIntolerance, int, error) {
	return s.repo.SearchAllergies(ctx, params, limit, offset)
}
