package directory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Location maps to the location table.
type Location struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FHIRID            string     `db:"fhir_id" json:"fhir_id"`
	Status            *string    `db:"status" json:"status,omitempty"`
	Name              string     `db:"name" json:"name"`
	Description       *string    `db:"description" json:"description,omitempty"`
	Mode              *string    `db:"mode" json:"mode,omitempty"`
	TypeCode          *string    `db:"type_code" json:"type_code,omitempty"`
	TypeDisplay       *string    `db:"type_display" json:"type_display,omitempty"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	Email             *string    `db:"email" json:"email,omitempty"`
	AddressLine       *string    `db:"address_line" json:"address_line,omitempty"`
	AddressCity       *string    `db:"address_city" json:"address_city,omitempty"`
	AddressState      *string    `db:"address_state" json:"address_state,omitempty"`
	AddressPostalCode *string    `db:"address_postal_code" json:"address_postal_code,omitempty"`
	AddressCountry    *string    `db:"address_country" json:"address_country,omitempty"`
	FormCode          *string    `db:"form_code" json:"form_code,omitempty"`
	FormDisplay       *string    `db:"form_display" json:"form_display,omitempty"`
	PositionLongitude *float64   `db:"position_longitude" json:"position_longitude,omitempty"`
	PositionLatitude  *float64   `db:"position_latitude" json:"position_latitude,omitempty"`
	ManagingOrgID     *uuid.UUID `db:"managing_org_id" json:"managing_org_id,omitempty"`
	PartOfID          *uuid.UUID `db:"part_of_id" json:"part_of_id,omitempty"`
	VersionID         int        `db:"version_id" json:"version_id"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (l *Location) GetVersionID() int  { return l.VersionID }
func (l *Location) SetVersionID(v int) { l.VersionID = v }

func (l *Location) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Location",
		"id":           l.FHIRID,
		"name":         l.Name,
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", l.VersionID),
			LastUpdated: l.UpdatedAt,
		},
	}

	if l.Status != nil {
		result["status"] = *l.Status
	}
	if l.Description != nil {
		result["description"] = *l.Description
	}
	if l.Mode != nil {
		result["mode"] = *l.Mode
	}
	if l.TypeCode != nil {
		result["type"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/v3-RoleCode",
				Code:    *l.TypeCode,
				Display: strPtrVal(l.TypeDisplay),
			}}},
		}
	}

	var telecom []fhir.ContactPoint
	if l.Phone != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: *l.Phone, Use: "work"})
	}
	if l.Email != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: *l.Email, Use: "work"})
	}
	// R5 folds telecom into Location.contact.
	if len(telecom) > 0 {
		result["contact"] = []map[string]interface{}{{"telecom": telecom}}
	}

	if l.AddressLine != nil || l.AddressCity != nil || l.AddressState != nil ||
		l.AddressPostalCode != nil || l.AddressCountry != nil {
		addr := fhir.Address{
			City:       strPtrVal(l.AddressCity),
			State:      strPtrVal(l.AddressState),
			PostalCode: strPtrVal(l.AddressPostalCode),
			Country:    strPtrVal(l.AddressCountry),
		}
		if l.AddressLine != nil {
			addr.Line = []string{*l.AddressLine}
		}
		result["address"] = addr
	}

	if l.FormCode != nil {
		result["form"] = fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/location-physical-type",
				Code:    *l.FormCode,
				Display: strPtrVal(l.FormDisplay),
			}},
		}
	}
	if l.PositionLongitude != nil && l.PositionLatitude != nil {
		result["position"] = map[string]interface{}{
			"longitude": *l.PositionLongitude,
			"latitude":  *l.PositionLatitude,
		}
	}
	if l.ManagingOrgID != nil {
		result["managingOrganization"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", l.ManagingOrgID.String()),
		}
	}
	if l.PartOfID != nil {
		result["partOf"] = fhir.Reference{
			Reference: fhir.FormatReference("Location", l.PartOfID.String()),
		}
	}

	return result
}

// HealthcareService maps to the healthcare_service table.
type HealthcareService struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	FHIRID              string     `db:"fhir_id" json:"fhir_id"`
	Active              bool       `db:"active" json:"active"`
	Name                string     `db:"name" json:"name"`
	Comment             *string    `db:"comment" json:"comment,omitempty"`
	CategoryCode        *string    `db:"category_code" json:"category_code,omitempty"`
	CategoryDisplay     *string    `db:"category_display" json:"category_display,omitempty"`
	TypeCode            *string    `db:"type_code" json:"type_code,omitempty"`
	TypeDisplay         *string    `db:"type_display" json:"type_display,omitempty"`
	ProvidedByOrgID     *uuid.UUID `db:"provided_by_org_id" json:"provided_by_org_id,omitempty"`
	LocationID          *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Phone               *string    `db:"phone" json:"phone,omitempty"`
	Email               *string    `db:"email" json:"email,omitempty"`
	AppointmentRequired bool       `db:"appointment_required" json:"appointment_required"`
	VersionID           int        `db:"version_id" json:"version_id"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt           *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (hs *HealthcareService) GetVersionID() int  { return hs.VersionID }
func (hs *HealthcareService) SetVersionID(v int) { hs.VersionID = v }

func (hs *HealthcareService) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType":        "HealthcareService",
		"id":                  hs.FHIRID,
		"active":              hs.Active,
		"name":                hs.Name,
		"appointmentRequired": hs.AppointmentRequired,
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", hs.VersionID),
			LastUpdated: hs.UpdatedAt,
		},
	}

	if hs.Comment != nil {
		result["comment"] = *hs.Comment
	}
	if hs.CategoryCode != nil {
		result["category"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{Code: *hs.CategoryCode, Display: strPtrVal(hs.CategoryDisplay)}}},
		}
	}
	if hs.TypeCode != nil {
		result["type"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{Code: *hs.TypeCode, Display: strPtrVal(hs.TypeDisplay)}}},
		}
	}
	if hs.ProvidedByOrgID != nil {
		result["providedBy"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", hs.ProvidedByOrgID.String()),
		}
	}
	if hs.LocationID != nil {
		result["location"] = []fhir.Reference{
			{Reference: fhir.FormatReference("Location", hs.LocationID.String())},
		}
	}

	var telecom []fhir.ContactPoint
	if hs.Phone != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "phone", Value: *hs.Phone, Use: "work"})
	}
	if hs.Email != nil {
		telecom = append(telecom, fhir.ContactPoint{System: "email", Value: *hs.Email, Use: "work"})
	}
	if len(telecom) > 0 {
		result["contact"] = []map[string]interface{}{{"telecom": telecom}}
	}

	return result
}

// Endpoint maps to the endpoint table.
type Endpoint struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	FHIRID                string     `db:"fhir_id" json:"fhir_id"`
	Status                string     `db:"status" json:"status"`
	Name                  *string    `db:"name" json:"name,omitempty"`
	Description           *string    `db:"description" json:"description,omitempty"`
	ConnectionTypeCode    *string    `db:"connection_type_code" json:"connection_type_code,omitempty"`
	ConnectionTypeDisplay *string    `db:"connection_type_display" json:"connection_type_display,omitempty"`
	ManagingOrgID         *uuid.UUID `db:"managing_org_id" json:"managing_org_id,omitempty"`
	ContactPhone          *string    `db:"contact_phone" json:"contact_phone,omitempty"`
	PeriodStart           *time.Time `db:"period_start" json:"period_start,omitempty"`
	PeriodEnd             *time.Time `db:"period_end" json:"period_end,omitempty"`
	PayloadTypeCode       *string    `db:"payload_type_code" json:"payload_type_code,omitempty"`
	PayloadMimeType       *string    `db:"payload_mime_type" json:"payload_mime_type,omitempty"`
	Address               string     `db:"address" json:"address"`
	Header                *string    `db:"header" json:"header,omitempty"`
	VersionID             int        `db:"version_id" json:"version_id"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt             *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (e *Endpoint) GetVersionID() int  { return e.VersionID }
func (e *Endpoint) SetVersionID(v int) { e.VersionID = v }

func (e *Endpoint) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Endpoint",
		"id":           e.FHIRID,
		"status":       e.Status,
		"address":      e.Address,
		"meta": fhir.Meta{
			VersionID:   fmt.Sprintf("%d", e.VersionID),
			LastUpdated: e.UpdatedAt,
		},
	}

	if e.Name != nil {
		result["name"] = *e.Name
	}
	if e.Description != nil {
		result["description"] = *e.Description
	}
	if e.ConnectionTypeCode != nil {
		result["connectionType"] = []fhir.CodeableConcept{
			{Coding: []fhir.Coding{{
				System:  "http://terminology.hl7.org/CodeSystem/endpoint-connection-type",
				Code:    *e.ConnectionTypeCode,
				Display: strPtrVal(e.ConnectionTypeDisplay),
			}}},
		}
	}
	if e.ManagingOrgID != nil {
		result["managingOrganization"] = fhir.Reference{
			Reference: fhir.FormatReference("Organization", e.ManagingOrgID.String()),
		}
	}
	if e.ContactPhone != nil {
		result["contact"] = []fhir.ContactPoint{
			{System: "phone", Value: *e.ContactPhone, Use: "work"},
		}
	}
	if e.PeriodStart != nil || e.PeriodEnd != nil {
		result["period"] = fhir.Period{Start: e.PeriodStart, End: e.PeriodEnd}
	}
	if e.PayloadTypeCode != nil {
		payload := map[string]interface{}{
			"type": []fhir.CodeableConcept{{Coding: []fhir.Coding{{Code: *e.PayloadTypeCode}}}},
		}
		if e.PayloadMimeType != nil {
			payload["mimeType"] = []string{*e.PayloadMimeType}
		}
		result["payload"] = []map[string]interface{}{payload}
	} else if e.PayloadMimeType != nil {
		result["payload"] = []map[string]interface{}{{"mimeType": []string{*e.PayloadMimeType}}}
	}
	if e.Header != nil {
		result["header"] = []string{*e.Header}
	}

	return result
}

func strPtrVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
