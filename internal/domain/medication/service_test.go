package medication

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	medications map[uuid.UUID]*Medication
}

func newMockRepo() *mockRepo {
	return &mockRepo{medications: make(map[uuid.UUID]*Medication)}
}

func (m *mockRepo) Create(_ context.Context, med *Medication) error {
	med.ID = uuid.New()
	med.FHIRID = uuid.New().String()
	med.CreatedAt = time.Now()
	med.UpdatedAt = time.Now()
	m.medications[med.ID] = med
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Medication, error) {
	med, ok := m.medications[id]
	if !ok {
		return nil, fmt.Errorf("medication not found")
	}
	return med, nil
}

func (m *mockRepo) GetByFHIRID(_ context.Context, fhirID string) (*Medication, error) {
	for _, med := range m.medications {
		if med.FHIRID == fhirID {
			return med, nil
		}
	}
	return nil, fmt.Errorf("medication not found")
}

func (m *mockRepo) Update(_ context.Context, med *Medication) error {
	if _, ok := m.medications[med.ID]; !ok {
		return fmt.Errorf("medication not found")
	}
	med.UpdatedAt = time.Now()
	m.medications[med.ID] = med
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.medications, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Medication, int, error) {
	var out []*Medication
	for _, med := range m.medications {
		out = append(out, med)
	}
	return out, len(out), nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error) {
	return m.List(context.Background(), limit, offset)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestCreateMedication(t *testing.T) {
	svc := NewService(newMockRepo())

	m := &Medication{
		Status:      strPtr("active"),
		Code:        "197361",
		CodeDisplay: strPtr("Amlodipine 5 MG Oral Tablet"),
	}
	if err := svc.Create(context.Background(), m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.VersionID != 1 {
		t.Errorf("expected version 1, got %d", m.VersionID)
	}
}

func TestCreateMedicationValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	noCode := &Medication{Status: strPtr("active")}
	if err := svc.Create(ctx, noCode); err == nil {
		t.Error("expected error for missing code")
	}

	badStatus := &Medication{Code: "197361", Status: strPtr("expired")}
	if err := svc.Create(ctx, badStatus); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestDeleteMedication(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	m := &Medication{Code: "197361"}
	if err := svc.Create(ctx, m); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, m.ID); err == nil {
		t.Error("expected error after delete")
	}
}

func TestMedicationToFHIR(t *testing.T) {
	exp := time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)
	m := &Medication{
		FHIRID:             "med-1",
		Status:             strPtr("active"),
		Code:               "197361",
		CodeDisplay:        strPtr("Amlodipine 5 MG Oral Tablet"),
		DoseFormCode:       strPtr("385055001"),
		DoseFormDisplay:    strPtr("Tablet"),
		TotalVolumeValue:   floatPtr(30),
		TotalVolumeUnit:    strPtr("tablets"),
		IngredientCode:     strPtr("17767"),
		IngredientDisplay:  strPtr("Amlodipine"),
		IngredientStrength: strPtr("5 mg"),
		LotNumber:          strPtr("LOT-22841"),
		ExpirationDate:     &exp,
		VersionID:          1,
	}

	res := m.ToFHIR()
	if res["resourceType"] != "Medication" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
	if res["status"] != "active" {
		t.Errorf("status = %v", res["status"])
	}
	if _, ok := res["doseForm"]; !ok {
		t.Error("expected doseForm")
	}
	if _, ok := res["ingredient"]; !ok {
		t.Error("expected ingredient")
	}
	batch, ok := res["batch"].(map[string]interface{})
	if !ok {
		t.Fatal("expected batch")
	}
	if batch["lotNumber"] != "LOT-22841" {
		t.Errorf("lotNumber = %v", batch["lotNumber"])
	}
	if batch["expirationDate"] != "2027-01-31" {
		t.Errorf("expirationDate = %v", batch["expirationDate"])
	}

	minimal := &Medication{FHIRID: "med-2", Code: "197361"}
	mres := minimal.ToFHIR()
	if _, ok := mres["batch"]; ok {
		t.Error("did not expect batch on minimal medication")
	}
	if _, ok := mres["status"]; ok {
		t.Error("did not expect status on minimal medication")
	}
}
