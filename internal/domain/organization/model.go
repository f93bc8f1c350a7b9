package organization

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Organization maps to the organization table.
type Organization struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FHIRID            string     `db:"fhir_id" json:"fhir_id"`
	Active            bool       `db:"active" json:"active"`
	Name              *string    `db:"name" json:"name,omitempty"`
	Alias             *string    `db:"alias" json:"alias,omitempty"`
	TypeCode          *string    `db:"type_code" json:"type_code,omitempty"`
	TypeDisplay       *string    `db:"type_display" json:"type_display,omitempty"`
	IdentifierSystem  *string    `db:"identifier_system" json:"identifier_system,omitempty"`
	IdentifierValue   *string    `db:"identifier_value" json:"identifier_value,omitempty"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	Email             *string    `db:"email" json:"email,omitempty"`
	AddressLine       *string    `db:"address_line" json:"address_line,omitempty"`
	AddressCity       *string    `db:"address_city" json:"address_city,omitempty"`
	AddressState      *string    `db:"address_state" json:"address_state,omitempty"`
	AddressPostalCode *string    `db:"address_postal_code" json:"address_postal_code,omitempty"`
	AddressCountry    *string    `db:"address_country" json:"address_country,omitempty"`
	PartOfID          *uuid.UUID `db:"part_of_id" json:"part_of_id,omitempty"`
	VersionID         int        `db:"version_id" json:"version_id"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (o *Organization) GetVersionID() int  { return o.VersionID }
func (o *Organization) SetVersionID(v int) { o.VersionID = v }

func (o *Organization) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Organization",
		"id":           o.FHIRID,
		"active":       o.Active,
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", o.VersionID),
			LastUpdated: o.UpdatedAt,
		},
	}

	if o.Name != nil {
		result["name"] = *o.Name
	}
	if o.Alias != nil {
		result["alias"] = []string{*o.Alias}
	}

	if o.IdentifierValue != nil {
		result["identifier"] = []fhir.Identifier{
			{System: strPtrVal(o.IdentifierSystem), Value: *o.IdentifierValue, Use: "official"},
		}
	}

	if o.TypeCode != nil {
		result["type"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/organization-type",
				Code:    *o.TypeCode,
				Display: strPtrVal(o.TypeDisplay),
			}}},
		}
	}

	var telecom []fhir.ContactPoint
	if o.Phone != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: *o.Phone, Use: "work"})
	}
	if o.Email != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: *o.Email, Use: "work"})
	}

	hasAddress := o.AddressLine != nil || o.AddressCity != nil || o.AddressState != nil ||
		o.AddressPostalCode != nil || o.AddressCountry != nil

	// R5 folds telecom and address into Organization.contact.
	if len(telecom) > 0 || hasAddress {
		contact := map[string]interface{}{}
		if len(telecom) > 0 {
			contact["telecom"] = telecom
		}
		if hasAddress {
			addr := fhir.Address{
				City:       strPtrVal(o.AddressCity),
				State:      strPtrVal(o.AddressState),
				PostalCode: strPtrVal(o.AddressPostalCode),
				Country:    strPtrVal(o.AddressCountry),
			}
			if o.AddressLine != nil {
				addr.Line = []string{*o.AddressLine}
			}
			contact["address"] = addr
		}
		result["contact"] = []map[string]interface{}{contact}
	}

	if o.PartOfID != nil {
		result["partOf"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", o.PartOfID.String()),
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
