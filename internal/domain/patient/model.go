package patient

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Patient maps to the patient table.
type Patient struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	FHIRID                 string     `db:"fhir_id" json:"fhir_id"`
	Active                 bool       `db:"active" json:"active"`
	IdentifierSystem       *string    `db:"identifier_system" json:"identifier_system,omitempty"`
	IdentifierValue        *string    `db:"identifier_value" json:"identifier_value,omitempty"`
	FamilyName             *string    `db:"family_name" json:"family_name,omitempty"`
	GivenName              *string    `db:"given_name" json:"given_name,omitempty"`
	Prefix                 *string    `db:"prefix" json:"prefix,omitempty"`
	Gender                 *string    `db:"gender" json:"gender,omitempty"`
	BirthDate              *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	DeceasedBoolean        *bool      `db:"deceased_boolean" json:"deceased_boolean,omitempty"`
	DeceasedDateTime       *time.Time `db:"deceased_datetime" json:"deceased_datetime,omitempty"`
	MultipleBirthBoolean   *bool      `db:"multiple_birth_boolean" json:"multiple_birth_boolean,omitempty"`
	MultipleBirthInteger   *int       `db:"multiple_birth_integer" json:"multiple_birth_integer,omitempty"`
	Phone                  *string    `db:"phone" json:"phone,omitempty"`
	Email                  *string    `db:"email" json:"email,omitempty"`
	AddressLine            *string    `db:"address_line" json:"address_line,omitempty"`
	AddressCity            *string    `db:"address_city" json:"address_city,omitempty"`
	AddressState           *string    `db:"address_state" json:"address_state,omitempty"`
	AddressPostalCode      *string    `db:"address_postal_code" json:"address_postal_code,omitempty"`
	AddressCountry         *string    `db:"address_country" json:"address_country,omitempty"`
	MaritalStatusCode      *string    `db:"marital_status_code" json:"marital_status_code,omitempty"`
	ManagingOrganizationID *uuid.UUID `db:"managing_organization_id" json:"managing_organization_id,omitempty"`
	GeneralPractitionerID  *uuid.UUID `db:"general_practitioner_id" json:"general_practitioner_id,omitempty"`
	VersionID              int        `db:"version_id" json:"version_id"`
	CreatedAt              time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt              *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (p *Patient) GetVersionID() int  { return p.VersionID }
func (p *Patient) SetVersionID(v int) { p.VersionID = v }

func (p *Patient) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Patient",
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

	// deceased[x] is a choice type
	if p.DeceasedDateTime != nil {
		result["deceasedDateTime"] = p.DeceasedDateTime.Format(time.RFC3339)
	} else if p.DeceasedBoolean != nil {
		result["deceasedBoolean"] = *p.DeceasedBoolean
	}

	// multipleBirth[x] is a choice type
	if p.MultipleBirthInteger != nil {
		result["multipleBirthInteger"] = *p.MultipleBirthInteger
	} else if p.MultipleBirthBoolean != nil {
		result["multipleBirthBoolean"] = *p.MultipleBirthBoolean
	}

	if telecom := buildTelecom(p.Phone, p.Email); len(telecom) > 0 {
		result["telecom"] = telecom
	}

	if addr := buildAddress(p.AddressLine, p.AddressCity, p.AddressState, p.AddressPostalCode, p.AddressCountry); addr != nil {
		result["address"] = []fhir.Address{*addr}
	}

	if p.MaritalStatusCode != nil {
		result["maritalStatus"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/v3-MaritalStatus",
				Code:   *p.MaritalStatusCode,
			}},
		}
	}

	if p.ManagingOrganizationID != nil {
		result["managingOrganization"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", p.ManagingOrganizationID.String()),
		}
	}
	if p.GeneralPractitionerID != nil {
		result["generalPractitioner"] = []fhir.Reference{
			{Reference: fhir.FormatReference("Practitioner", p.GeneralPractitionerID.String())},
		}
	}

	return result
}

// RelatedPerson maps to the related_person table.
type RelatedPerson struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	FHIRID              string     `db:"fhir_id" json:"fhir_id"`
	Active              bool       `db:"active" json:"active"`
	PatientID           uuid.UUID  `db:"patient_id" json:"patient_id"`
	RelationshipCode    *string    `db:"relationship_code" json:"relationship_code,omitempty"`
	RelationshipDisplay *string    `db:"relationship_display" json:"relationship_display,omitempty"`
	FamilyName          *string    `db:"family_name" json:"family_name,omitempty"`
	GivenName           *string    `db:"given_name" json:"given_name,omitempty"`
	Gender              *string    `db:"gender" json:"gender,omitempty"`
	BirthDate           *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Phone               *string    `db:"phone" json:"phone,omitempty"`
	Email               *string    `db:"email" json:"email,omitempty"`
	PeriodStart         *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd           *time.Time `db:"period_end" json:"period_end,omitempty"`
	VersionID           int        `db:"version_id" json:"version_id"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (r *RelatedPerson) GetVersionID() int  { return r.VersionID }
func (r *RelatedPerson) SetVersionID(v int) { r.VersionID = v }

func (r *RelatedPerson) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "RelatedPerson",
		"id":           r.FHIRID,
		"active":       r.Active,
		"patient": fhir.Reference{
			Reference: fhir.FormatReference("Patient", r.PatientID.String()),
		},
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", r.VersionID),
			LastUpdated: r.UpdatedAt,
		},
	}

	if r.RelationshipCode != nil {
		result["relationship"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/v3-RoleCode",
				Code:    *r.RelationshipCode,
				Display: strPtrVal(r.RelationshipDisplay),
			}}},
		}
	}

	if r.FamilyName != nil || r.GivenName != nil {
		name := fhir.HumanName{Family: strPtrVal(r.FamilyName)}
		if r.GivenName != nil {
			name.Given = []string{*r.GivenName}
		}
		result["name"] = []fhir.HumanName{name}
	}

	if r.Gender != nil {
		result["gender"] = *r.Gender
	}
	if r.BirthDate != nil {
		result["birthDate"] = r.BirthDate.Format("2006-01-02")
	}

	if telecom := buildTelecom(r.Phone, r.Email); len(telecom) > 0 {
		result["telecom"] = telecom
	}

	if r.PeriodStart != nil || r.PeriodEnd != nil {
		result["period"] = fhir.Period{Start: r.PeriodStart, End: r.PeriodEnd}
	}

	return result
}

func buildTelecom(phone, email *string) []fhir.ContactPoint {
	var telecom []fhir.ContactPoint
	if phone != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: *phone})
	}
	if email != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: *email})
	}
	return telecom
}

func buildAddress(line, city, state, postalCode, country *string) *fhir.Address {
	if line == nil && city == nil && state == nil && postalCode == nil && country == nil {
		return nil
	}
	addr := &fhir.Address{
		City:       strPtrVal(city),
		State:      strPtrVal(state),
		PostalCode: strPtrVal(postalCode),
		Country:    strPtrVal(country),
	}
	if line != nil {
		addr.Line = []string{*line}
	}
	return addr
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
