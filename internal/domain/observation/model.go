package observation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Observation maps to the observation table. The value[x] choice is
// flattened into one column per supported variant.
type Observation struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FHIRID            string     `db:"fhir_id" json:"fhir_id"`
	Status            string     `db:"status" json:"status"`
	CategoryCode      *string    `db:"category_code" json:"category_code,omitempty"`
	CodeSystem        *string    `db:"code_system" json:"code_system,omitempty"`
	Code              string     `db:"code" json:"code"`
	CodeDisplay       *string    `db:"code_display" json:"code_display,omitempty"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	EncounterID       *uuid.UUID `db:"encounter_id" json:"encounter_id,omitempty"`
	PerformerID       *uuid.UUID `db:"performer_id" json:"performer_id,omitempty"`
	EffectiveDateTime *time.Time `db:"effective_datetime" json:"effective_datetime,omitempty"`
	ValueQuantity     *float64   `db:"value_quantity" json:"value_quantity,omitempty"`
	ValueUnit         *string    `db:"value_unit" json:"value_unit,omitempty"`
	ValueSystem       *string    `db:"value_system" json:"value_system,omitempty"`
	ValueCode         *string    `db:"value_code" json:"value_code,omitempty"`
	ValueString       *string    `db:"value_string" json:"value_string,omitempty"`
	ValueBoolean      *bool      `db:"value_boolean" json:"value_boolean,omitempty"`
	ValueConceptCode  *string    `db:"value_concept_code" json:"value_concept_code,omitempty"`
	ValueConceptText  *string    `db:"value_concept_text" json:"value_concept_text,omitempty"`
	DataAbsentReason  *string    `db:"data_absent_reason" json:"data_absent_reason,omitempty"`
	Interpretation    *string    `db:"interpretation_code" json:"interpretation_code,omitempty"`
	RefRangeLow       *float64   `db:"ref_range_low" json:"ref_range_low,omitempty"`
	RefRangeHigh      *float64   `db:"ref_range_high" json:"ref_range_high,omitempty"`
	Note              *string    `db:"note" json:"note,omitempty"`
	VersionID         int        `db:"version_id" json:"version_id"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (o *Observation) GetVersionID() int  { return o.VersionID }
func (o *Observation) SetVersionID(v int) { o.VersionID = v }

// hasValue reports whether any value[x] variant is populated.
func (o *Observation) hasValue() bool {
	return o.ValueQuantity != nil || o.ValueString != nil || o.ValueBoolean != nil || o.ValueConceptCode != nil
}

// valueCount counts populated value[x] variants.
func (o *Observation) valueCount() int {
	n := 0
	if o.ValueQuantity != nil {
		n++
	}
	if o.ValueString != nil {
		n++
	}
	if o.ValueBoolean != nil {
		n++
	}
	if o.ValueConceptCode != nil {
		n++
	}
	return n
}

func (o *Observation) ToFHIR() map[string]interface{} {
	codeSystem := "http://loinc.org"
	if o.CodeSystem != nil {
		codeSystem = *o.CodeSystem
	}

	result := map[string]interface{}{
		"resourceType": "Observation",
		"id":           o.FHIRID,
		"status":       o.Status,
		"code": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System:  codeSystem,
				Code:    o.Code,
				Display: strPtrVal(o.CodeDisplay),
			}},
		},
		"subject": fhir.Reference{
			Reference: fhir.FormatReference("Patient", o.PatientID.String()),
		},
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", o.VersionID),
			LastUpdated: o.UpdatedAt,
		},
	}

	if o.CategoryCode != nil {
		result["category"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/observation-category",
				Code:   *o.CategoryCode,
			}}},
		}
	}

	if o.EncounterID != nil {
		result["encounter"] = fhir.Reference{
			Reference: fhir.FormatReference("Encounter", o.EncounterID.String()),
		}
	}
	if o.PerformerID != nil {
		result["performer"] = []fhir.Reference{
			{Reference: fhir.FormatReference("Practitioner", o.PerformerID.String())},
		}
	}

	if o.EffectiveDateTime != nil {
		result["effectiveDateTime"] = o.EffectiveDateTime.Format(time.RFC3339)
	}

	switch {
	case o.ValueQuantity != nil:
		result["valueQuantity"] = fhir.Quantity{
			Value:  o.ValueQuantity,
			Unit:   strPtrVal(o.ValueUnit),
			System: valueSystemOrUCUM(o.ValueSystem),
			Code:   strPtrVal(o.ValueCode),
		}
	case o.ValueString != nil:
		result["valueString"] = *o.ValueString
	case o.ValueBoolean != nil:
		result["valueBoolean"] = *o.ValueBoolean
	case o.ValueConceptCode != nil:
		result["valueCodeableConcept"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{System: "http://snomed.info/sct", Code: *o.ValueConceptCode}},
			Text:   strPtrVal(o.ValueConceptText),
		}
	}

	if o.DataAbsentReason != nil {
		result["dataAbsentReason"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/data-absent-reason",
				Code:   *o.DataAbsentReason,
			}},
		}
	}

	if o.Interpretation != nil {
		result["interpretation"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation",
				Code:   *o.Interpretation,
			}}},
		}
	}

	if o.RefRangeLow != nil || o.RefRangeHigh != nil {
		rr := map[string]interface{}{}
		if o.RefRangeLow != nil {
			rr["low"] = fhir.Quantity{Value: o.RefRangeLow, Unit: strPtrVal(o.ValueUnit)}
		}
		if o.RefRangeHigh != nil {
			rr["high"] = fhir.Quantity{Value: o.RefRangeHigh, Unit: strPtrVal(o.ValueUnit)}
		}
		result["referenceRange"] = []map[string]interface{}{rr}
	}

	if o.Note != nil {
		result["note"] = []map[string]interface{}{{"text": *o.Note}}
	}

	return result
}

func valueSystemOrUCUM(s *string) string {
	if s != nil {
		return *s
	}
	return "http://unitsofmeasure.org"
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
