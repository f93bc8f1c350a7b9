package clinical

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Condition maps to the condition table.
type Condition struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	FHIRID             string     `db:"fhir_id" json:"fhir_id"`
	ClinicalStatus     string     `db:"clinical_status" json:"clinical_status"`
	VerificationStatus *string    `db:"verification_status" json:"verification_status,omitempty"`
	CategoryCode       *string    `db:"category_code" json:"category_code,omitempty"`
	SeverityCode       *string    `db:"severity_code" json:"severity_code,omitempty"`
	CodeSystem         *string    `db:"code_system" json:"code_system,omitempty"`
	Code               *string    `db:"code" json:"code,omitempty"`
	CodeDisplay        *string    `db:"code_display" json:"code_display,omitempty"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	EncounterID        *uuid.UUID `db:"encounter_id" json:"encounter_id,omitempty"`
	OnsetDateTime      *time.Time `db:"onset_datetime" json:"onset_datetime,omitempty"`
	AbatementDateTime  *time.Time `db:"abatement_datetime" json:"abatement_datetime,omitempty"`
	RecordedDate       *time.Time `db:"recorded_date" json:"recorded_date,omitempty"`
	Note               *string    `db:"note" json:"note,omitempty"`
	VersionID          int        `db:"version_id" json:"version_id"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt          *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (c *Condition) GetVersionID() int  { return c.VersionID }
func (c *Condition) SetVersionID(v int) { c.VersionID = v }

func (c *Condition) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Condition",
		"id":           c.FHIRID,
		"clinicalStatus": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/condition-clinical",
				Code:   c.ClinicalStatus,
			}},
		},
		"subject": fhir.Reference{
			Reference: fhir.FormatReference("Patient", c.PatientID.String()),
		},
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", c.VersionID),
			LastUpdated: c.UpdatedAt,
		},
	}

	if c.VerificationStatus != nil {
		result["verificationStatus"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/condition-ver-status",
				Code:   *c.VerificationStatus,
			}},
		}
	}
	if c.CategoryCode != nil {
		result["category"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/condition-category",
				Code:   *c.CategoryCode,
			}}},
		}
	}
	if c.SeverityCode != nil {
		result["severity"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: "http://snomed.info/sct", Code: *c.SeverityCode}},
		}
	}

	if c.Code != nil {
		system := "http://snomed.info/sct"
		if c.CodeSystem != nil {
			system = *c.CodeSystem
		}
		result["code"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: system, Code: *c.Code, Display: strPtrVal(c.CodeDisplay)}},
		}
	}

	if c.EncounterID != nil {
		result["encounter"] = fhir.Reference{
			Reference: fhir.FormatReference("Encounter", c.EncounterID.String()),
		}
	}

	if c.OnsetDateTime != nil {
		result["onsetDateTime"] = c.OnsetDateTime.Format(time.RFC3339)
	}
	if c.AbatementDateTime != nil {
		result["abatementDateTime"] = c.AbatementDateTime.Format(time.RFC3339)
	}
	if c.RecordedDate != nil {
		result["recordedDate"] = c.RecordedDate.Format(time.RFC3339)
	}

	if c.Note != nil {
		result["note"] = []map[string]interface{}{{"text": *c.Note}}
	}

	return result
}

// AllergyIntolerance maps to the allergy_intolerance table. A single
// reaction is flattened into the reaction_* columns.
type AllergyIntolerance struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	FHIRID                string     `db:"fhir_id" json:"fhir_id"`
	ClinicalStatus        string     `db:"clinical_status" json:"clinical_status"`
	VerificationStatus    *string    `db:"verification_status" json:"verification_status,omitempty"`
	Type                  *string    `db:"type" json:"type,omitempty"`
	Category              *string    `db:"category" json:"category,omitempty"`
	Criticality           *string    `db:"criticality" json:"criticality,omitempty"`
	CodeSystem            *string    `db:"code_system" json:"code_system,omitempty"`
	Code                  *string    `db:"code" json:"code,omitempty"`
	CodeDisplay           *string    `db:"code_display" json:"code_display,omitempty"`
	PatientID             uuid.UUID  `db:"patient_id" json:"patient_id"`
	OnsetDateTime         *time.Time `db:"onset_datetime" json:"onset_datetime,omitempty"`
	RecordedDate          *time.Time `db:"recorded_date" json:"recorded_date,omitempty"`
	ReactionManifestation *string    `db:"reaction_manifestation_code" json:"reaction_manifestation_code,omitempty"`
	ReactionDisplay       *string    `db:"reaction_manifestation_display" json:"reaction_manifestation_display,omitempty"`
	ReactionSeverity      *string    `db:"reaction_severity" json:"reaction_severity,omitempty"`
	Note                  *string    `db:"note" json:"note,omitempty"`
	VersionID             int        `db:"version_id" json:"version_id"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt             *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (a *AllergyIntolerance) GetVersionID() int  { return a.VersionID }
func (a *AllergyIntolerance) SetVersionID(v int) { a.VersionID = v }

func (a *AllergyIntolerance) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "AllergyIntolerance",
		"id":           a.FHIRID,
		"clinicalStatus": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/allergyintolerance-clinical",
				Code:   a.ClinicalStatus,
			}},
		},
		"patient": fhir.Reference{
			Reference: fhir.FormatReference("Patient", a.PatientID.String()),
		},
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", a.VersionID),
			LastUpdated: a.UpdatedAt,
		},
	}

	if a.VerificationStatus != nil {
		result["verificationStatus"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/allergyintolerance-verification",
				Code:   *a.VerificationStatus,
			}},
		}
	}
	if a.Type != nil {
		result["type"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://hl7.org/fhir/allergy-intolerance-type",
				Code:   *a.Type,
			}},
		}
	}
	if a.Category != nil {
		result["category"] = []string{*a.Category}
	}
	if a.Criticality != nil {
		result["criticality"] = *a.Criticality
	}

	if a.Code != nil {
		system := "http://snomed.info/sct"
		if a.CodeSystem != nil {
			system = *a.CodeSystem
		}
		result["code"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: system, Code: *a.Code, Display: strPtrVal(a.CodeDisplay)}},
		}
	}

	if a.OnsetDateTime != nil {
		result["onsetDateTime"] = a.OnsetDateTime.Format(time.RFC3339)
	}
	if a.RecordedDate != nil {
		result["recordedDate"] = a.RecordedDate.Format(time.RFC3339)
	}

	if a.ReactionManifestation != nil {
		reaction := map[string]interface{}{
			"manifestation": []fhir.CodeableReference{
				{Concept: &fhir.CodeableConcept{
					Coding: []fhir.Coding{{
						System:  "http://snomed.info/sct",
						Code:    *a.ReactionManifestation,
						Display: strPtrVal(a.ReactionDisplay),
					}},
				}},
			},
		}
		if a.ReactionSeverity != nil {
			reaction["severity"] = *a.ReactionSeverity
		}
		result["reaction"] = []map[string]interface{}{reaction}
	}

	if a.Note != nil {
		result["note"] = []map[string]interface{}{{"text": *a.Note}}
	}

	return result
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
