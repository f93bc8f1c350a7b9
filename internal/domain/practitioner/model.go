package practitioner

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Practitioner maps to the practitioner table.
type Practitioner struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	FHIRID               string     `db:"fhir_id" json:"fhir_id"`
	Active               bool       `db:"active" json:"active"`
	IdentifierSystem     *string    `db:"identifier_system" json:"identifier_system,omitempty"`
	IdentifierValue      *string    `db:"identifier_value" json:"identifier_value,omitempty"`
	FamilyName           *string    `db:"family_name" json:"family_name,omitempty"`
	GivenName            *string    `db:"given_name" json:"given_name,omitempty"`
	Prefix               *string    `db:"prefix" json:"prefix,omitempty"`
	Gender               *string    `db:"gender" json:"gender,omitempty"`
	BirthDate            *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone                *string    `db:"phone" json:"phone,omitempty"`
	Email                *string    `db:"email" json:"email,omitempty"`
	QualificationCode    *string    `db:"qualification_code" json:"qualification_code,omitempty"`
	QualificationDisplay *string    `db:"qualification_display" json:"qualification_display,omitempty"`
	VersionID            int        `db:"version_id" json:"version_id"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt            *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (p *Practitioner) GetVersionID() int  { return p.VersionID }
func (p *Practitioner) SetVersionID(v int) { p.VersionID = v }

func (p *Practitioner) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Practitioner",
		"id":           p.FHIRID,
		"active":       p.Active,
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", p.VersionID),
			LastUpdated: p.UpdatedAt,
		},
	}

	if p.IdentifierValue != nil {
		result["identifier"] = []fhir.Identifier{
			{System: strPtrVal(p.IdentifierSystem), Value: *p.IdentifierValue, Use: "official"},
		}
	}

	if p.FamilyName != nil || p.GivenName != nil {
		name := fhir.HumanName{Use: "official", Family: strPtrVal(p.FamilyName)}
		if p.GivenName != nil {
			name.Given = []string{*p.GivenName}
		}
		if p.Prefix != nil {
			name.Prefix = []string{*p.Prefix}
		}
		result["name"] = []fhir.HumanName{name}
	}

	if p.Gender != nil {
		result["gender"] = *p.Gender
	}
	if p.BirthDate != nil {
		result["birthDate"] = p.BirthDate.Format("2006-01-02")
	}

	var telecom []fhir.ContactPoint
	if p.Phone != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: *p.Phone, Use: "work"})
	}
	if p.Email != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: *p.Email, Use: "work"})
	}
	if len(telecom) > 0 {
		result["telecom"] = telecom
	}

	if p.QualificationCode != nil {
		result["qualification"] = []map[string]interface{}{
			{
				"code": fhir.CodeableConcept{
					Coding: []fhir.Coding{{
						System:  "http://terminology.hl7.org/CodeSystem/v2-0360",
						Code:    *p.QualificationCode,
						Display: strPtrVal(p.QualificationDisplay),
					}},
				},
			},
		}
	}

	return result
}

// PractitionerRole maps to the practitioner_role table.
type PractitionerRole struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	FHIRID           string     `db:"fhir_id" json:"fhir_id"`
	Active           bool       `db:"active" json:"active"`
	PractitionerID   uuid.UUID  `db:"practitioner_id" json:"practitioner_id"`
	OrganizationID   *uuid.UUID `db:"organization_id" json:"organization_id,omitempty"`
	LocationID       *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	RoleCode         *string    `db:"role_code" json:"role_code,omitempty"`
	RoleDisplay      *string    `db:"role_display" json:"role_display,omitempty"`
	SpecialtyCode    *string    `db:"specialty_code" json:"specialty_code,omitempty"`
	SpecialtyDisplay *string    `db:"specialty_display" json:"specialty_display,omitempty"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Email            *string    `db:"email" json:"email,omitempty"`
	PeriodStart      *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd        *time.Time `db:"period_end" json:"period_end,omitempty"`
	VersionID        int        `db:"version_id" json:"version_id"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (r *PractitionerRole) GetVersionID() int  { return r.VersionID }
func (r *PractitionerRole) SetVersionID(v int) { r.VersionID = v }

func (r *PractitionerRole) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "PractitionerRole",
		"id":           r.FHIRID,
		"active":       r.Active,
		"practitioner": fhir.Reference{
			Reference: fhir.FormatReference("Practitioner", r.PractitionerID.String()),
		},
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", r.VersionID),
			LastUpdated: r.UpdatedAt,
		},
	}

	if r.OrganizationID != nil {
		result["organization"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", r.OrganizationID.String()),
		}
	}
	if r.LocationID != nil {
		result["location"] = []fhir.Reference{
			{Reference: fhir.FormatReference("Location", r.LocationID.String())},
		}
	}

	if r.RoleCode != nil {
		result["code"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/practitioner-role",
				Code:    *r.RoleCode,
				Display: strPtrVal(r.RoleDisplay),
			}}},
		}
	}
	if r.SpecialtyCode != nil {
		result["specialty"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System:  "http://snomed.info/sct",
				Code:    *r.SpecialtyCode,
				Display: strPtrVal(r.SpecialtyDisplay),
			}}},
		}
	}

	var telecom []fhir.ContactPoint
	if r.Phone != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: *r.Phone, Use: "work"})
	}
	if r.Email != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: *r.Email, Use: "work"})
	}
	if len(telecom) > 0 {
		result["telecom"] = telecom
	}

	if r.PeriodStart != nil || r.PeriodEnd != nil {
		result["period"] = fhir.Period{Start: r.PeriodStart, End: r.PeriodEnd}
	}

	return result
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
