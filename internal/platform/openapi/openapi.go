package openapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/fhir"
)

// Generator builds an OpenAPI 3.0 document from the resources registered on
// the CapabilityBuilder, so the API surface and the CapabilityStatement never
// drift apart.
type Generator struct {
	capBuilder *fhir.CapabilityBuilder
	version    string
	baseURL    string
}

func NewGenerator(capBuilder *fhir.CapabilityBuilder, version, baseURL string) *Generator {
	return &Generator{capBuilder: capBuilder, version: version, baseURL: baseURL}
}

// GenerateSpec produces the OpenAPI 3.0 document as a JSON-ready map.
func (g *Generator) GenerateSpec() map[string]interface{} {
	resources := g.capBuilder.Resources()

	paths := make(map[string]interface{})
	resourceTypes := make([]string, 0, len(resources))

	for _, res := range resources {
		resourceTypes = append(resourceTypes, res.Type)
		addResourcePaths(paths, res)
	}

	return map[string]interface{}{
		"openapi": "3.0.3",
		"info": map[string]interface{}{
			"title":       "medrec FHIR R5 API",
			"version":     g.version,
			"description": "FHIR R5 compliant medical records API",
		},
		"servers": []map[string]string{
			{"url": g.baseURL},
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": buildComponentSchemas(resourceTypes),
			"securitySchemes": map[string]interface{}{
				"bearerAuth": map[string]interface{}{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
		},
		"security": []map[string]interface{}{
			{"bearerAuth": []interface{}{}},
		},
	}
}

func addResourcePaths(paths map[string]interface{}, res fhir.ResourceCapability) {
	rt := res.Type

	paths["/fhir/"+rt] = map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     "Search " + rt,
			"operationId": "search" + rt,
			"tags":        []string{rt},
			"parameters":  buildSearchParameters(res.SearchParams),
			"responses": map[string]interface{}{
				"200": responseWithSchema("Search results Bundle", "#/components/schemas/Bundle"),
			},
		},
		"post": map[string]interface{}{
			"summary":     "Create " + rt,
			"operationId": "create" + rt,
			"tags":        []string{rt},
			"requestBody": requestBody(rt),
			"responses": map[string]interface{}{
				"201": responseWithSchema("Created", "#/components/schemas/"+rt),
				"400": responseWithSchema("Validation failure", "#/components/schemas/OperationOutcome"),
			},
		},
	}

	paths["/fhir/"+rt+"/{id}"] = map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     "Read " + rt,
			"operationId": "read" + rt,
			"tags":        []string{rt},
			"parameters":  idPathParam(),
			"responses": map[string]interface{}{
				"200": responseWithSchema("Success", "#/components/schemas/"+rt),
				"404": responseWithSchema("Not Found", "#/components/schemas/OperationOutcome"),
			},
		},
		"put": map[string]interface{}{
			"summary":     "Update " + rt,
			"operationId": "update" + rt,
			"tags":        []string{rt},
			"parameters":  idPathParam(),
			"requestBody": requestBody(rt),
			"responses": map[string]interface{}{
				"200": responseWithSchema("Updated", "#/components/schemas/"+rt),
				"404": responseWithSchema("Not Found", "#/components/schemas/OperationOutcome"),
			},
		},
		"patch": map[string]interface{}{
			"summary":     "Patch " + rt,
			"operationId": "patch" + rt,
			"tags":        []string{rt},
			"parameters":  idPathParam(),
			"requestBody": map[string]interface{}{
				"required": true,
				"content": map[string]interface{}{
					"application/json-patch+json": map[string]interface{}{
						"schema": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "object"}},
					},
					"application/merge-patch+json": map[string]interface{}{
						"schema": map[string]interface{}{"type": "object"},
					},
				},
			},
			"responses": map[string]interface{}{
				"200": responseWithSchema("Patched", "#/components/schemas/"+rt),
				"404": responseWithSchema("Not Found", "#/components/schemas/OperationOutcome"),
			},
		},
		"delete": map[string]interface{}{
			"summary":     "Delete " + rt,
			"operationId": "delete" + rt,
			"tags":        []string{rt},
			"parameters":  idPathParam(),
			"responses": map[string]interface{}{
				"204": map[string]interface{}{"description": "Deleted"},
				"404": responseWithSchema("Not Found", "#/components/schemas/OperationOutcome"),
			},
		},
	}

	paths["/fhir/"+rt+"/{id}/_history"] = map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     rt + " version history",
			"operationId": "history" + rt,
			"tags":        []string{rt},
			"parameters":  idPathParam(),
			"responses": map[string]interface{}{
				"200": responseWithSchema("History Bundle", "#/components/schemas/Bundle"),
			},
		},
	}

	paths["/fhir/"+rt+"/{id}/_history/{vid}"] = map[string]interface{}{
		"get": map[string]interface{}{
			"summary":     "Read a specific " + rt + " version",
			"operationId": "vread" + rt,
			"tags":        []string{rt},
			"parameters": append(idPathParam(), map[string]interface{}{
				"name": "vid", "in": "path", "required": true,
				"schema": map[string]interface{}{"type": "integer", "minimum": 1},
			}),
			"responses": map[string]interface{}{
				"200": responseWithSchema("Success", "#/components/schemas/"+rt),
				"404": responseWithSchema("Not Found", "#/components/schemas/OperationOutcome"),
			},
		},
	}
}

func idPathParam() []map[string]interface{} {
	return []map[string]interface{}{
		{"name": "id", "in": "path", "required": true, "schema": map[string]interface{}{"type": "string"}},
	}
}

// buildSearchParameters builds the parameter array for a search operation,
// combining resource-specific params with the common paging and sort params.
func buildSearchParameters(params []fhir.SearchParam) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(params)+3)

	for _, p := range params {
		entry := map[string]interface{}{
			"name":   p.Name,
			"in":     "query",
			"schema": searchParamSchema(p.Type),
		}
		if p.Documentation != "" {
			entry["description"] = p.Documentation
		}
		result = append(result, entry)
	}

	common := []struct {
		name   string
		schema map[string]interface{}
		desc   string
	}{
		{"_count", map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100}, "Number of results per page"},
		{"_offset", map[string]interface{}{"type": "integer", "minimum": 0}, "Starting index for results"},
		{"_sort", map[string]interface{}{"type": "string"}, "Sort order (prefix with - for descending)"},
	}
	for _, cp := range common {
		result = append(result, map[string]interface{}{
			"name":        cp.name,
			"in":          "query",
			"schema":      cp.schema,
			"description": cp.desc,
		})
	}

	return result
}

// searchParamSchema maps a FHIR search parameter type to an OpenAPI schema.
// Date and number params stay strings because they carry FHIR prefixes (ge, le).
func searchParamSchema(fhirType string) map[string]interface{} {
	switch fhirType {
	case "uri":
		return map[string]interface{}{"type": "string", "format": "uri"}
	default:
		return map[string]interface{}{"type": "string"}
	}
}

func requestBody(resType string) map[string]interface{} {
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"application/fhir+json": map[string]interface{}{
				"schema": map[string]interface{}{
					"$ref": "#/components/schemas/" + resType,
				},
			},
		},
	}
}

func responseWithSchema(description, schemaRef string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/fhir+json": map[string]interface{}{
				"schema": map[string]interface{}{
					"$ref": schemaRef,
				},
			},
		},
	}
}

func buildComponentSchemas(resourceTypes []string) map[string]interface{} {
	schemas := map[string]interface{}{
		"Meta":             metaSchema(),
		"Coding":           codingSchema(),
		"CodeableConcept":  codeableConceptSchema(),
		"Reference":        referenceSchema(),
		"Identifier":       identifierSchema(),
		"HumanName":        humanNameSchema(),
		"Address":          addressSchema(),
		"ContactPoint":     contactPointSchema(),
		"Period":           periodSchema(),
		"Quantity":         quantitySchema(),
		"Bundle":           bundleSchema(),
		"BundleEntry":      bundleEntrySchema(),
		"OperationOutcome": operationOutcomeSchema(),
	}

	for _, rt := range resourceTypes {
		if _, exists := schemas[rt]; !exists {
			schemas[rt] = resourceSchema(rt)
		}
	}

	return schemas
}

func metaSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"versionId":   map[string]interface{}{"type": "string"},
			"lastUpdated": map[string]interface{}{"type": "string", "format": "date-time"},
			"profile": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string", "format": "uri"},
			},
		},
	}
}

func codingSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"system":  map[string]interface{}{"type": "string", "format": "uri"},
			"code":    map[string]interface{}{"type": "string"},
			"display": map[string]interface{}{"type": "string"},
		},
	}
}

func codeableConceptSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"coding": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"$ref": "#/components/schemas/Coding"},
			},
			"text": map[string]interface{}{"type": "string"},
		},
	}
}

func referenceSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"reference": map[string]interface{}{"type": "string"},
			"type":      map[string]interface{}{"type": "string"},
			"display":   map[string]interface{}{"type": "string"},
		},
	}
}

func identifierSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"use":    map[string]interface{}{"type": "string", "enum": []string{"usual", "official", "temp", "secondary", "old"}},
			"type":   map[string]interface{}{"$ref": "#/components/schemas/CodeableConcept"},
			"system": map[string]interface{}{"type": "string", "format": "uri"},
			"value":  map[string]interface{}{"type": "string"},
			"period": map[string]interface{}{"$ref": "#/components/schemas/Period"},
		},
	}
}

func humanNameSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"use":    map[string]interface{}{"type": "string", "enum": []string{"usual", "official", "temp", "nickname", "anonymous", "old", "maiden"}},
			"text":   map[string]interface{}{"type": "string"},
			"family": map[string]interface{}{"type": "string"},
			"given": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"prefix": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"suffix": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
		},
	}
}

func addressSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"use":  map[string]interface{}{"type": "string", "enum": []string{"home", "work", "temp", "old", "billing"}},
			"type": map[string]interface{}{"type": "string", "enum": []string{"postal", "physical", "both"}},
			"text": map[string]interface{}{"type": "string"},
			"line": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string"},
			},
			"city":       map[string]interface{}{"type": "string"},
			"district":   map[string]interface{}{"type": "string"},
			"state":      map[string]interface{}{"type": "string"},
			"postalCode": map[string]interface{}{"type": "string"},
			"country":    map[string]interface{}{"type": "string"},
		},
	}
}

func contactPointSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"system": map[string]interface{}{"type": "string", "enum": []string{"phone", "fax", "email", "pager", "url", "sms", "other"}},
			"value":  map[string]interface{}{"type": "string"},
			"use":    map[string]interface{}{"type": "string", "enum": []string{"home", "work", "temp", "old", "mobile"}},
			"rank":   map[string]interface{}{"type": "integer", "minimum": 1},
		},
	}
}

func periodSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"start": map[string]interface{}{"type": "string", "format": "date-time"},
			"end":   map[string]interface{}{"type": "string", "format": "date-time"},
		},
	}
}

func quantitySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"value":      map[string]interface{}{"type": "number"},
			"comparator": map[string]interface{}{"type": "string", "enum": []string{"<", "<=", ">=", ">"}},
			"unit":       map[string]interface{}{"type": "string"},
			"system":     map[string]interface{}{"type": "string", "format": "uri"},
			"code":       map[string]interface{}{"type": "string"},
		},
	}
}

func bundleSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"resourceType": map[string]interface{}{"type": "string", "enum": []string{"Bundle"}},
			"id":           map[string]interface{}{"type": "string"},
			"type": map[string]interface{}{
				"type": "string",
				"enum": []string{"searchset", "history", "collection"},
			},
			"total": map[string]interface{}{"type": "integer", "minimum": 0},
			"link": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"relation": map[string]interface{}{"type": "string"},
						"url":      map[string]interface{}{"type": "string", "format": "uri"},
					},
				},
			},
			"entry": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"$ref": "#/components/schemas/BundleEntry"},
			},
		},
	}
}

func bundleEntrySchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"fullUrl":  map[string]interface{}{"type": "string", "format": "uri"},
			"resource": map[string]interface{}{"type": "object"},
			"search": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"mode": map[string]interface{}{"type": "string", "enum": []string{"match", "include", "outcome"}},
				},
			},
		},
	}
}

func operationOutcomeSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"resourceType": map[string]interface{}{"type": "string", "enum": []string{"OperationOutcome"}},
			"issue": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"severity": map[string]interface{}{
							"type": "string",
							"enum": []string{"fatal", "error", "warning", "information"},
						},
						"code":        map[string]interface{}{"type": "string"},
						"diagnostics": map[string]interface{}{"type": "string"},
						"expression": map[string]interface{}{
							"type":  "array",
							"items": map[string]interface{}{"type": "string"},
						},
					},
					"required": []string{"severity", "code"},
				},
			},
		},
		"required": []string{"resourceType", "issue"},
	}
}

// resourceSchema builds the schema for one resource type: the base properties
// shared by every resource plus any detailed definition from
// resourceSchemaDefinitions.
func resourceSchema(resourceType string) map[string]interface{} {
	props := map[string]interface{}{
		"resourceType": map[string]interface{}{"type": "string", "enum": []string{resourceType}},
		"id":           map[string]interface{}{"type": "string", "format": "uuid"},
		"meta":         map[string]interface{}{"$ref": "#/components/schemas/Meta"},
	}
	for k, v := range resourceSchemaDefinitions[resourceType] {
		props[k] = v
	}

	return map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
}

// resourceSchemaDefinitions holds the detailed property definitions for the
// served resource types. Resources not listed here get only base properties.
var resourceSchemaDefinitions = map[string]map[string]interface{}{
	"Patient": {
		"active":     map[string]interface{}{"type": "boolean"},
		"identifier": refArray("Identifier"),
		"name":       refArray("HumanName"),
		"telecom":    refArray("ContactPoint"),
		"gender":     map[string]interface{}{"type": "string", "enum": []string{"male", "female", "other", "unknown"}},
		"birthDate":  map[string]interface{}{"type": "string", "format": "date"},
		"deceasedBoolean":  map[string]interface{}{"type": "boolean"},
		"deceasedDateTime": map[string]interface{}{"type": "string", "format": "date-time"},
		"address":          refArray("Address"),
		"multipleBirthBoolean": map[string]interface{}{"type": "boolean"},
		"multipleBirthInteger": map[string]interface{}{"type": "integer"},
		"generalPractitioner":  refArray("Reference"),
		"managingOrganization": ref("Reference"),
	},
	"RelatedPerson": {
		"active":       map[string]interface{}{"type": "boolean"},
		"identifier":   refArray("Identifier"),
		"patient":      ref("Reference"),
		"relationship": refArray("CodeableConcept"),
		"name":         refArray("HumanName"),
		"telecom":      refArray("ContactPoint"),
		"gender":       map[string]interface{}{"type": "string", "enum": []string{"male", "female", "other", "unknown"}},
		"birthDate":    map[string]interface{}{"type": "string", "format": "date"},
		"address":      refArray("Address"),
		"period":       ref("Period"),
	},
	"Practitioner": {
		"active":     map[string]interface{}{"type": "boolean"},
		"identifier": refArray("Identifier"),
		"name":       refArray("HumanName"),
		"telecom":    refArray("ContactPoint"),
		"gender":     map[string]interface{}{"type": "string", "enum": []string{"male", "female", "other", "unknown"}},
		"birthDate":  map[string]interface{}{"type": "string", "format": "date"},
		"address":    refArray("Address"),
		"qualification": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"identifier": refArray("Identifier"),
					"code":       ref("CodeableConcept"),
					"period":     ref("Period"),
					"issuer":     ref("Reference"),
				},
				"required": []string{"code"},
			},
		},
	},
	"PractitionerRole": {
		"active":       map[string]interface{}{"type": "boolean"},
		"identifier":   refArray("Identifier"),
		"period":       ref("Period"),
		"practitioner": ref("Reference"),
		"organization": ref("Reference"),
		"code":         refArray("CodeableConcept"),
		"specialty":    refArray("CodeableConcept"),
		"location":     refArray("Reference"),
		"telecom":      refArray("ContactPoint"),
	},
	"Organization": {
		"active":     map[string]interface{}{"type": "boolean"},
		"identifier": refArray("Identifier"),
		"type":       refArray("CodeableConcept"),
		"name":       map[string]interface{}{"type": "string"},
		"alias": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"telecom": refArray("ContactPoint"),
		"address": refArray("Address"),
		"partOf":  ref("Reference"),
	},
	"Encounter": {
		"status": map[string]interface{}{
			"type": "string",
			"enum": []string{"planned", "in-progress", "on-hold", "discharged", "completed", "cancelled", "discontinued", "entered-in-error", "unknown"},
		},
		"class":           refArray("CodeableConcept"),
		"type":            refArray("CodeableConcept"),
		"priority":        ref("CodeableConcept"),
		"subject":         ref("Reference"),
		"serviceProvider": ref("Reference"),
		"actualPeriod":    ref("Period"),
		"plannedStartDate": map[string]interface{}{"type": "string", "format": "date-time"},
		"plannedEndDate":   map[string]interface{}{"type": "string", "format": "date-time"},
		"reason":           refArray("CodeableConcept"),
	},
	"Observation": {
		"status": map[string]interface{}{
			"type": "string",
			"enum": []string{"registered", "preliminary", "final", "amended", "corrected", "cancelled", "entered-in-error", "unknown"},
		},
		"category":          refArray("CodeableConcept"),
		"code":              ref("CodeableConcept"),
		"subject":           ref("Reference"),
		"encounter":         ref("Reference"),
		"effectiveDateTime": map[string]interface{}{"type": "string", "format": "date-time"},
		"effectivePeriod":   ref("Period"),
		"issued":            map[string]interface{}{"type": "string", "format": "date-time"},
		"valueQuantity":     ref("Quantity"),
		"valueCodeableConcept": ref("CodeableConcept"),
		"valueString":          map[string]interface{}{"type": "string"},
		"valueBoolean":         map[string]interface{}{"type": "boolean"},
		"dataAbsentReason":     ref("CodeableConcept"),
		"interpretation":       refArray("CodeableConcept"),
		"referenceRange": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"low":  ref("Quantity"),
					"high": ref("Quantity"),
					"type": ref("CodeableConcept"),
					"text": map[string]interface{}{"type": "string"},
				},
			},
		},
	},
	"Condition": {
		"clinicalStatus":     ref("CodeableConcept"),
		"verificationStatus": ref("CodeableConcept"),
		"category":           refArray("CodeableConcept"),
		"severity":           ref("CodeableConcept"),
		"code":               ref("CodeableConcept"),
		"bodySite":           refArray("CodeableConcept"),
		"subject":            ref("Reference"),
		"encounter":          ref("Reference"),
		"onsetDateTime":      map[string]interface{}{"type": "string", "format": "date-time"},
		"abatementDateTime":  map[string]interface{}{"type": "string", "format": "date-time"},
		"recordedDate":       map[string]interface{}{"type": "string", "format": "date-time"},
		"note":               map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "object"}},
	},
	"AllergyIntolerance": {
		"clinicalStatus":     ref("CodeableConcept"),
		"verificationStatus": ref("CodeableConcept"),
		"type":               ref("CodeableConcept"),
		"category": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string", "enum": []string{"food", "medication", "environment", "biologic"}},
		},
		"criticality":  map[string]interface{}{"type": "string", "enum": []string{"low", "high", "unable-to-assess"}},
		"code":         ref("CodeableConcept"),
		"patient":      ref("Reference"),
		"encounter":    ref("Reference"),
		"recordedDate": map[string]interface{}{"type": "string", "format": "date-time"},
		"reaction": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"substance":     ref("CodeableConcept"),
					"manifestation": refArray("CodeableConcept"),
					"severity":      map[string]interface{}{"type": "string", "enum": []string{"mild", "moderate", "severe"}},
				},
			},
		},
	},
	"Medication": {
		"identifier": refArray("Identifier"),
		"code":       ref("CodeableConcept"),
		"status":     map[string]interface{}{"type": "string", "enum": []string{"active", "inactive", "entered-in-error"}},
		"doseForm":   ref("CodeableConcept"),
		"ingredient": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"isActive": map[string]interface{}{"type": "boolean"},
					"strengthQuantity": ref("Quantity"),
				},
			},
		},
	},
	"Location": {
		"identifier": refArray("Identifier"),
		"status":     map[string]interface{}{"type": "string", "enum": []string{"active", "suspended", "inactive"}},
		"name":       map[string]interface{}{"type": "string"},
		"alias": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
		"description":          map[string]interface{}{"type": "string"},
		"mode":                 map[string]interface{}{"type": "string", "enum": []string{"instance", "kind"}},
		"type":                 refArray("CodeableConcept"),
		"address":              ref("Address"),
		"managingOrganization": ref("Reference"),
		"partOf":               ref("Reference"),
	},
	"HealthcareService": {
		"active":             map[string]interface{}{"type": "boolean"},
		"identifier":         refArray("Identifier"),
		"providedBy":         ref("Reference"),
		"category":           refArray("CodeableConcept"),
		"type":               refArray("CodeableConcept"),
		"specialty":          refArray("CodeableConcept"),
		"location":           refArray("Reference"),
		"name":               map[string]interface{}{"type": "string"},
		"comment":            map[string]interface{}{"type": "string"},
		"appointmentRequired": map[string]interface{}{"type": "boolean"},
	},
	"Endpoint": {
		"identifier":     refArray("Identifier"),
		"status":         map[string]interface{}{"type": "string", "enum": []string{"active", "suspended", "error", "off", "entered-in-error"}},
		"connectionType": refArray("CodeableConcept"),
		"name":           map[string]interface{}{"type": "string"},
		"managingOrganization": ref("Reference"),
		"payloadType":          refArray("CodeableConcept"),
		"address":              map[string]interface{}{"type": "string", "format": "uri"},
		"header": map[string]interface{}{
			"type":  "array",
			"items": map[string]interface{}{"type": "string"},
		},
	},
}

func ref(schema string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/components/schemas/" + schema}
}

func refArray(schema string) map[string]interface{} {
	return map[string]interface{}{
		"type":  "array",
		"items": ref(schema),
	}
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>medrec FHIR R5 API - Swagger UI</title>
  <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" >
  <style>
    html { box-sizing: border-box; overflow-y: scroll; }
    *, *:before, *:after { box-sizing: inherit; }
    body { margin: 0; background: #fafafa; }
  </style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/openapi.json",
      dom_id: '#swagger-ui',
      deepLinking: true,
      presets: [
        SwaggerUIBundle.presets.apis,
        SwaggerUIBundle.SwaggerUIStandalonePreset
      ],
      layout: "BaseLayout"
    })
  </script>
</body>
</html>`

// RegisterRoutes mounts the OpenAPI document and the Swagger UI.
func (g *Generator) RegisterRoutes(e *echo.Echo) {
	e.GET("/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, g.GenerateSpec())
	})
	e.GET("/docs", func(c echo.Context) error {
		return c.HTML(http.StatusOK, swaggerUIHTML)
	})
}
