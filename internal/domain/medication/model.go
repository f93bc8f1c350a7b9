package medication

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Medication maps to the medication table. A single ingredient is
// flattened into the ingredient_* columns.
type Medication struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	FHIRID             string     `db:"fhir_id" json:"fhir_id"`
	Status             *string    `db:"status" json:"status,omitempty"`
	CodeSystem         *string    `db:"code_system" json:"code_system,omitempty"`
	Code               string     `db:"code" json:"code"`
	CodeDisplay        *string    `db:"code_display" json:"code_display,omitempty"`
	DoseFormCode       *string    `db:"dose_form_code" json:"dose_form_code,omitempty"`
	DoseFormDisplay    *string    `db:"dose_form_display" json:"dose_form_display,omitempty"`
	TotalVolumeValue   *float64   `db:"total_volume_value" json:"total_volume_value,omitempty"`
	TotalVolumeUnit    *string    `db:"total_volume_unit" json:"total_volume_unit,omitempty"`
	IngredientCode     *string    `db:"ingredient_code" json:"ingredient_code,omitempty"`
	IngredientDisplay  *string    `db:"ingredient_display" json:"ingredient_display,omitempty"`
	IngredientStrength *string    `db:"ingredient_strength" json:"ingredient_strength,omitempty"`
	LotNumber          *string    `db:"lot_number" json:"lot_number,omitempty"`
	ExpirationDate     *time.Time `db:"expiration_date" json:"expiration_date,omitempty"`
	VersionID          int        `db:"version_id" json:"version_id"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt          *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (m *Medication) GetVersionID() int  { return m.VersionID }
func (m *Medication) SetVersionID(v int) { m.VersionID = v }

func (m *Medication) ToFHIR() map[string]interface{} {
	codeSystem := "http://www.nlm.nih.gov/research/umls/rxnorm"
	if m.CodeSystem != nil {
		codeSystem = *m.CodeSystem
	}

	result := map[string]interface{}{
		"resourceType": "Medication",
		"id":           m.FHIRID,
		"code": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System:  codeSystem,
				Code:    m.Code,
				Display: strPtrVal(m.CodeDisplay),
			}},
		},
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", m.VersionID),
			LastUpdated: m.UpdatedAt,
		},
	}

	if m.Status != nil {
		result["status"] = *m.Status
	}

	if m.DoseFormCode != nil {
		result["doseForm"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System:  "http://snomed.info/sct",
				Code:    *m.DoseFormCode,
				Display: strPtrVal(m.DoseFormDisplay),
			}},
		}
	}

	if m.TotalVolumeValue != nil {
		result["totalVolume"] = fhir.Quantity{
			Value:  m.TotalVolumeValue,
			Unit:   strPtrVal(m.TotalVolumeUnit),
			System: "http://unitsofmeasure.org",
		}
	}

	if m.IngredientCode != nil {
		ingredient := map[string]interface{}{
			"item": fhir.CodeableReference{
				Concept: &fhir.CodeableConcept{
					Coding: []fhir.Coding{{
						System:  "http://www.nlm.nih.gov/research/umls/rxnorm",
						Code:    *m.IngredientCode,
						Display: strPtrVal(m.IngredientDisplay),
					}},
				},
			},
			"isActive": true,
		}
		if m.IngredientStrength != nil {
			ingredient["strengthCodeableConcept"] = fhir.CodeableConcept{Text: *m.IngredientStrength}
		}
		result["ingredient"] = []map[string]interface{}{ingredient}
	}

	if m.LotNumber != nil || m.ExpirationDate != nil {
		batch := map[string]interface{}{}
		if m.LotNumber != nil {
			batch["lotNumber"] = *m.LotNumber
		}
		if m.ExpirationDate != nil {
			batch["expirationDate"] = m.ExpirationDate.Format("2006-01-02")
		}
		result["batch"] = batch
	}

	return result
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
