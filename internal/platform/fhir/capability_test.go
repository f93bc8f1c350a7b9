package fhir

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestCapabilityBuilder_AddResourceMerges(t *testing.T) {
	b := NewCapabilityBuilder("http://localhost:8000/fhir", "1.0.0")

	b.AddResource("Patient", []string{"read", "create"}, []SearchParam{
		{Name: "name", Type: "string"},
	})
	b.AddResource("Patient", []string{"create", "update"}, []SearchParam{
		{Name: "name", Type: "string"},
		{Name: "gender", Type: "token"},
	})

	resources := b.Resources()
	if len(resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(resources))
	}
	p := resources[0]
	if len(p.Interactions) != 3 {
		t.Errorf("expected 3 deduplicated interactions, got %v", p.Interactions)
	}
	if len(p.SearchParams) != 2 {
		t.Errorf("expected 2 deduplicated params, got %v", p.SearchParams)
	}
}

func TestCapabilityBuilder_ResourcesSorted(t *testing.T) {
	b := NewCapabilityBuilder("http://localhost:8000/fhir", "1.0.0")
	b.AddResource("Observation", DefaultInteractions(), nil)
	b.AddResource("Encounter", DefaultInteractions(), nil)
	b.AddResource("Patient", DefaultInteractions(), nil)

	resources := b.Resources()
	if resources[0].Type != "Encounter" || resources[1].Type != "Observation" || resources[2].Type != "Patient" {
		t.Errorf("expected sorted order, got %v", resources)
	}
}

func TestCapabilityBuilder_Build(t *testing.T) {
	b := NewCapabilityBuilder("http://localhost:8000/fhir", "1.0.0")
	b.AddResource("Patient", DefaultInteractions(), []SearchParam{{Name: "gender", Type: "token"}})

	stmt := b.Build()
	if stmt["resourceType"] != "CapabilityStatement" {
		t.Errorf("unexpected resourceType: %v", stmt["resourceType"])
	}
	if stmt["fhirVersion"] != "5.0.0" {
		t.Errorf("expected fhirVersion 5.0.0, got %v", stmt["fhirVersion"])
	}

	rest := stmt["rest"].([]interface{})
	server := rest[0].(map[string]interface{})
	resources := server["resource"].([]interface{})
	if len(resources) != 1 {
		t.Fatalf("expected 1 resource, got %d", len(resources))
	}
	patient := resources[0].(map[string]interface{})
	if patient["type"] != "Patient" {
		t.Errorf("unexpected type: %v", patient["type"])
	}
	if len(patient["interaction"].([]interface{})) != len(DefaultInteractions()) {
		t.Error("expected default interactions")
	}
}

func TestCapabilityHandler(t *testing.T) {
	b := NewCapabilityBuilder("http://localhost:8000/fhir", "1.0.0")
	b.AddResource("Patient", DefaultInteractions(), nil)

	e := echo.New()
	req := httptest.NewRequest("GET", "/fhir/metadata", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := CapabilityHandler(b)(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["resourceType"] != "CapabilityStatement" {
		t.Errorf("unexpected body: %v", body["resourceType"])
	}
}
