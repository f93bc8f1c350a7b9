package encounter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	svc := NewService(repo)
	h := NewHandler(svc)
	e := echo.New()
	return h, repo, e
}

func seedEncounter(t *testing.T, repo *mockRepo, status string) *Encounter {
	t.Helper()
	enc := &Encounter{
		Status:    status,
		ClassCode: "AMB",
		PatientID: uuid.New(),
	}
	if status == "completed" || status == "discharged" {
		now := time.Now()
		enc.ActualStart = &now
	}
	if err := repo.Create(context.Background(), enc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	enc.VersionID = 1
	return enc
}

func TestCreateEncounterHandler(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"status":"planned","class_code":"AMB","patient_id":"` + uuid.New().String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/encounters", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
}

func TestCreateEncounterHandlerRejectsBadStatus(t *testing.T) {
	h, _, e := newTestHandler()

	body := `{"status":"started","class_code":"AMB","patient_id":"` + uuid.New().String() + `"}`
	req := httptest.NewRequest(http.MethodPost, "/encounters", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	err := h.Create(e.NewContext(req, rec))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestGetEncounterFHIR(t *testing.T) {
	h, repo, e := newTestHandler()
	enc := seedEncounter(t, repo, "in-progress")

	req := httptest.NewRequest(http.MethodGet, "/fhir/Encounter/"+enc.FHIRID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(enc.FHIRID)

	if err := h.GetFHIR(c); err != nil {
		t.Fatalf("GetFHIR: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if etag := rec.Header().Get("ETag"); etag == "" {
		t.Error("expected ETag header")
	}

	var res map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res["resourceType"] != "Encounter" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
}

func TestGetEncounterFHIRNotFound(t *testing.T) {
	h, _, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/fhir/Encounter/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.GetFHIR(c); err != nil {
		t.Fatalf("GetFHIR: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var res map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res["resourceType"] != "OperationOutcome" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
}

func TestSearchEncountersFHIR(t *testing.T) {
	h, repo, e := newTestHandler()
	seedEncounter(t, repo, "planned")
	seedEncounter(t, repo, "in-progress")

	req := httptest.NewRequest(http.MethodGet, "/fhir/Encounter", nil)
	rec := httptest.NewRecorder()

	if err := h.SearchFHIR(e.NewContext(req, rec)); err != nil {
		t.Fatalf("SearchFHIR: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var bundle map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if bundle["type"] != "searchset" {
		t.Errorf("bundle type = %v", bundle["type"])
	}
	if bundle["total"] != float64(2) {
		t.Errorf("total = %v, want 2", bundle["total"])
	}
}

func TestPatchEncounterFHIRMergePatch(t *testing.T) {
	h, repo, e := newTestHandler()
	enc := seedEncounter(t, repo, "planned")

	body := `{"status":"in-progress"}`
	req := httptest.NewRequest(http.MethodPatch, "/fhir/Encounter/"+enc.FHIRID, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/merge-patch+json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(enc.FHIRID)

	if err := h.PatchFHIR(c); err != nil {
		t.Fatalf("PatchFHIR: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if enc.Status != "in-progress" {
		t.Errorf("status = %s, want in-progress", enc.Status)
	}
}

func TestDeleteEncounterFHIR(t *testing.T) {
	h, repo, e := newTestHandler()
	enc := seedEncounter(t, repo, "planned")

	req := httptest.NewRequest(http.MethodDelete, "/fhir/Encounter/"+enc.FHIRID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(enc.FHIRID)

	if err := h.DeleteFHIR(c); err != nil {
		t.Fatalf("DeleteFHIR: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if _, err := repo.GetByFHIRID(context.Background(), enc.FHIRID); err == nil {
		t.Error("expected encounter to be gone")
	}
}
