package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/fhir"
)

func testGenerator() *Generator {
	cb := fhir.NewCapabilityBuilder("http://localhost:8000/fhir", "1.0.0")
	cb.AddResource("Patient", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "name", Type: "string"},
		{Name: "birthdate", Type: "date"},
		{Name: "gender", Type: "token"},
	})
	cb.AddResource("Observation", fhir.DefaultInteractions(), []fhir.SearchParam{
		{Name: "code", Type: "token"},
		{Name: "patient", Type: "reference"},
	})
	return NewGenerator(cb, "1.0.0", "http://localhost:8000")
}

func TestGenerateSpec_Structure(t *testing.T) {
	spec := testGenerator().GenerateSpec()

	if spec["openapi"] != "3.0.3" {
		t.Errorf("openapi = %v, want 3.0.3", spec["openapi"])
	}

	paths, ok := spec["paths"].(map[string]interface{})
	if !ok {
		t.Fatal("paths missing")
	}
	for _, p := range []string{
		"/fhir/Patient",
		"/fhir/Patient/{id}",
		"/fhir/Patient/{id}/_history",
		"/fhir/Patient/{id}/_history/{vid}",
		"/fhir/Observation",
		"/fhir/Observation/{id}",
	} {
		if _, ok := paths[p]; !ok {
			t.Errorf("missing path %s", p)
		}
	}

	instance, _ := paths["/fhir/Patient/{id}"].(map[string]interface{})
	for _, method := range []string{"get", "put", "patch", "delete"} {
		if _, ok := instance[method]; !ok {
			t.Errorf("missing %s on instance path", method)
		}
	}
}

func TestGenerateSpec_Schemas(t *testing.T) {
	spec := testGenerator().GenerateSpec()

	components, _ := spec["components"].(map[string]interface{})
	schemas, ok := components["schemas"].(map[string]interface{})
	if !ok {
		t.Fatal("schemas missing")
	}

	for _, name := range []string{"Meta", "Coding", "CodeableConcept", "Reference", "Bundle", "OperationOutcome", "Patient", "Observation"} {
		if _, ok := schemas[name]; !ok {
			t.Errorf("missing schema %s", name)
		}
	}

	patient, _ := schemas["Patient"].(map[string]interface{})
	props, _ := patient["properties"].(map[string]interface{})
	if _, ok := props["birthDate"]; !ok {
		t.Error("Patient schema missing birthDate property")
	}
	if _, ok := props["meta"]; !ok {
		t.Error("Patient schema missing base meta property")
	}
}

func TestGenerateSpec_SearchParameters(t *testing.T) {
	spec := testGenerator().GenerateSpec()

	paths, _ := spec["paths"].(map[string]interface{})
	search, _ := paths["/fhir/Patient"].(map[string]interface{})
	get, _ := search["get"].(map[string]interface{})
	params, _ := get["parameters"].([]map[string]interface{})

	names := make(map[string]bool, len(params))
	for _, p := range params {
		name, _ := p["name"].(string)
		names[name] = true
	}
	for _, want := range []string{"name", "birthdate", "gender", "_count", "_offset", "_sort"} {
		if !names[want] {
			t.Errorf("missing search parameter %s", want)
		}
	}
}

func TestGenerateSpec_Serializable(t *testing.T) {
	if _, err := json.Marshal(testGenerator().GenerateSpec()); err != nil {
		t.Fatalf("spec does not marshal: %v", err)
	}
}

func TestRegisterRoutes(t *testing.T) {
	e := echo.New()
	testGenerator().RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest("GET", "/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var spec map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &spec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest("GET", "/docs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "swagger-ui") {
		t.Error("expected Swagger UI HTML")
	}
}
