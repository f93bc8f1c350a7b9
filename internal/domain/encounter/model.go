package encounter

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Encounter maps to the encounter table.
type Encounter struct {
	ID                       uuid.UUID  `db:"id" json:"id"`
	FHIRID                   string     `db:"fhir_id" json:"fhir_id"`
	Status                   string     `db:"status" json:"status"`
	ClassCode                string     `db:"class_code" json:"class_code"`
	ClassDisplay             *string    `db:"class_display" json:"class_display,omitempty"`
	TypeCode                 *string    `db:"type_code" json:"type_code,omitempty"`
	TypeDisplay              *string    `db:"type_display" json:"type_display,omitempty"`
	PriorityCode             *string    `db:"priority_code" json:"priority_code,omitempty"`
	PatientID                uuid.UUID  `db:"patient_id" json:"patient_id"`
	PractitionerID           *uuid.UUID `db:"practitioner_id" json:"practitioner_id,omitempty"`
	ServiceProviderID        *uuid.UUID `db:"service_provider_id" json:"service_provider_id,omitempty"`
	LocationID               *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	PlannedStart             *time.Time `db:"planned_start" json:"planned_start,omitempty"`
	PlannedEnd               *time.Time `db:"planned_end" json:"planned_end,omitempty"`
	ActualStart              *time.Time `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd                *time.Time `db:"actual_end" json:"actual_end,omitempty"`
	ReasonText               *string    `db:"reason_text" json:"reason_text,omitempty"`
	DischargeDispositionCode *string    `db:"discharge_disposition_code" json:"discharge_disposition_code,omitempty"`
	VersionID                int        `db:"version_id" json:"version_id"`
	CreatedAt                time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt                *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// GetVersionID returns the current version.
func (e *Encounter) GetVersionID() int { return e.VersionID }

// SetVersionID sets the current version.
func (e *Encounter) SetVersionID(v int) { e.VersionID = v }

func (e *Encounter) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Encounter",
		"id":           e.FHIRID,
		"status":       e.Status,
		"class": []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/v3-ActCode",
				Code:    e.ClassCode,
				Display: strPtrVal(e.ClassDisplay),
			}}},
		},
		"subject": fhir.Reference{
			Reference: fhir.FormatReference("Patient", e.PatientID.String()),
		},
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", e.VersionID),
			LastUpdated: e.UpdatedAt,
		},
	}

	if e.TypeCode != nil {
		result["type"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System:  "http://snomed.info/sct",
				Code:    *e.TypeCode,
				Display: strPtrVal(e.TypeDisplay),
			}}},
		}
	}

	if e.PriorityCode != nil {
		result["priority"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/v3-ActPriority",
				Code:   *e.PriorityCode,
			}},
		}
	}

	if e.PractitionerID != nil {
		result["participant"] = []map[string]interface{}{
			{"actor": fhir.Reference{
				Reference: fhir.FormatReference("Practitioner", e.PractitionerID.String()),
			}},
		}
	}
	if e.ServiceProviderID != nil {
		result["serviceProvider"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", e.ServiceProviderID.String()),
		}
	}
	if e.LocationID != nil {
		result["location"] = []map[string]interface{}{
			{"location": fhir.Reference{
				Reference: fhir.FormatReference("Location", e.LocationID.String()),
			}},
		}
	}

	if e.PlannedStart != nil {
		result["plannedStartDate"] = e.PlannedStart.Format(time.RFC3339)
	}
	if e.PlannedEnd != nil {
		result["plannedEndDate"] = e.PlannedEnd.Format(time.RFC3339)
	}
	if e.ActualStart != nil || e.ActualEnd != nil {
		result["actualPeriod"] = fhir.Period{Start: e.ActualStart, End: e.ActualEnd}
	}

	if e.ReasonText != nil {
		result["reason"] = []map[string]interface{}{
			{"value": []fhir.CodeableReference{
				{Concept: &fhir.CodeableConcept{Text: *e.ReasonText}},
			}},
		}
	}

	if e.DischargeDispositionCode != nil {
		result["admission"] = map[string]interface{}{
			"dischargeDisposition": fhir.CodeableConcept{
				Coding: []fhir.Coding{{
					System: "http://terminology.hl7.org/CodeSystem/discharge-disposition",
					Code:   *e.DischargeDispositionCode,
				}},
			},
		}
	}

	return result
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
