package observation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	observations map[uuid.UUID]*Observation
}

func newMockRepo() *mockRepo {
	return &mockRepo{observations: make(map[uuid.UUID]*Observation)}
}

func (m *mockRepo) Create(_ context.Context, o *Observation) error {
	o.ID = uuid.New()
	o.FHIRID = uuid.New().String()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
	m.observations[o.ID] = o
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Observation, error) {
	o, ok := m.observations[id]
	if !ok {
		return nil, fmt.Errorf("observation not found")
	}
	return o, nil
}

func (m *mockRepo) GetByFHIRID(_ context.Context, fhirID string) (*Observation, error) {
	for _, o := range m.observations {
		if o.FHIRID == fhirID {
			return o, nil
		}
	}
	return nil, fmt.Errorf("observation not found")
}

func (m *mockRepo) Update(_ context.Context, o *Observation) error {
	if _, ok := m.observations[o.ID]; !ok {
		return fmt.Errorf("observation not found")
	}
	o.UpdatedAt = time.Now()
	m.observations[o.ID] = o
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.observations, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Observation, int, error) {
	var out []*Observation
	for _, o := range m.observations {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Observation, int, error) {
	var out []*Observation
	for _, o := range m.observations {
		if o.PatientID == patientID {
			out = append(out, o)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Observation, int, error) {
	return m.List(context.Background(), limit, offset)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func TestCreateObservation(t *testing.T) {
	svc := NewService(newMockRepo())

	o := &Observation{
		Status:        "final",
		Code:          "8867-4",
		CodeDisplay:   strPtr("Heart rate"),
		PatientID:     uuid.New(),
		ValueQuantity: floatPtr(72),
		ValueUnit:     strPtr("/min"),
	}
	if err := svc.Create(context.Background(), o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.VersionID != 1 {
		t.Errorf("expected version 1, got %d", o.VersionID)
	}
}

func TestCreateObservationValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		obs  Observation
	}{
		{"invalid status", Observation{Status: "done", Code: "8867-4", PatientID: uuid.New()}},
		{"missing code", Observation{Status: "final", PatientID: uuid.New()}},
		{"missing patient", Observation{Status: "final", Code: "8867-4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs := tc.obs
			if err := svc.Create(ctx, &obs); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestObservationSingleValueRule(t *testing.T) {
	svc := NewService(newMockRepo())

	o := &Observation{
		Status:        "final",
		Code:          "8867-4",
		PatientID:     uuid.New(),
		ValueQuantity: floatPtr(72),
		ValueString:   strPtr("seventy-two"),
	}
	if err := svc.Create(context.Background(), o); err == nil {
		t.Fatal("expected error for two value variants")
	}
}

func TestObservationDataAbsentReasonExcludesValue(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	withBoth := &Observation{
		Status:           "final",
		Code:             "8867-4",
		PatientID:        uuid.New(),
		ValueQuantity:    floatPtr(72),
		DataAbsentReason: strPtr("error"),
	}
	if err := svc.Create(ctx, withBoth); err == nil {
		t.Fatal("expected error when value and data_absent_reason coexist")
	}

	absentOnly := &Observation{
		Status:           "final",
		Code:             "8867-4",
		PatientID:        uuid.New(),
		DataAbsentReason: strPtr("not-performed"),
	}
	if err := svc.Create(ctx, absentOnly); err != nil {
		t.Fatalf("Create with data_absent_reason only: %v", err)
	}
}

func TestObservationReferenceRangeOrdering(t *testing.T) {
	svc := NewService(newMockRepo())

	o := &Observation{
		Status:       "final",
		Code:         "718-7",
		PatientID:    uuid.New(),
		RefRangeLow:  floatPtr(12.0),
		RefRangeHigh: floatPtr(4.0),
	}
	if err := svc.Create(context.Background(), o); err == nil {
		t.Fatal("expected error when ref_range_high is below ref_range_low")
	}
}

func TestListObservationsByPatient(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()
	patientID := uuid.New()

	for i := 0; i < 2; i++ {
		o := &Observation{Status: "final", Code: "8867-4", PatientID: patientID, ValueQuantity: floatPtr(70 + float64(i))}
		if err := svc.Create(ctx, o); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	other := &Observation{Status: "final", Code: "8867-4", PatientID: uuid.New()}
	if err := svc.Create(ctx, other); err != nil {
		t.Fatalf("Create: %v", err)
	}

	observations, total, err := svc.ListByPatient(ctx, patientID, 20, 0)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if total != 2 || len(observations) != 2 {
		t.Errorf("expected 2 observations, got total=%d len=%d", total, len(observations))
	}
}

func TestObservationToFHIRQuantity(t *testing.T) {
	encID := uuid.New()
	effective := time.Date(2026, 4, 12, 10, 30, 0, 0, time.UTC)
	o := &Observation{
		FHIRID:            "obs-1",
		Status:            "final",
		CategoryCode:      strPtr("vital-signs"),
		Code:              "8867-4",
		CodeDisplay:       strPtr("Heart rate"),
		PatientID:         uuid.New(),
		EncounterID:       &encID,
		EffectiveDateTime: &effective,
		ValueQuantity:     floatPtr(72),
		ValueUnit:         strPtr("/min"),
		Interpretation:    strPtr("N"),
		RefRangeLow:       floatPtr(60),
		RefRangeHigh:      floatPtr(100),
		VersionID:         1,
	}

	res := o.ToFHIR()
	if res["resourceType"] != "Observation" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
	if res["status"] != "final" {
		t.Errorf("status = %v", res["status"])
	}
	if _, ok := res["valueQuantity"]; !ok {
		t.Error("expected valueQuantity")
	}
	if _, ok := res["valueString"]; ok {
		t.Error("did not expect valueString alongside valueQuantity")
	}
	if _, ok := res["category"]; !ok {
		t.Error("expected category")
	}
	if _, ok := res["encounter"]; !ok {
		t.Error("expected encounter reference")
	}
	if _, ok := res["referenceRange"]; !ok {
		t.Error("expected referenceRange")
	}
	if res["effectiveDateTime"] != "2026-04-12T10:30:00Z" {
		t.Errorf("effectiveDateTime = %v", res["effectiveDateTime"])
	}
}

func TestObservationToFHIRChoiceVariants(t *testing.T) {
	boolean := &Observation{
		FHIRID: "obs-2", Status: "final", Code: "82810-3", PatientID: uuid.New(),
		ValueBoolean: boolPtr(true),
	}
	res := boolean.ToFHIR()
	if res["valueBoolean"] != true {
		t.Errorf("valueBoolean = %v", res["valueBoolean"])
	}
	if _, ok := res["valueQuantity"]; ok {
		t.Error("did not expect valueQuantity")
	}

	absent := &Observation{
		FHIRID: "obs-3", Status: "final", Code: "8867-4", PatientID: uuid.New(),
		DataAbsentReason: strPtr("not-performed"),
	}
	ares := absent.ToFHIR()
	if _, ok := ares["dataAbsentReason"]; !ok {
		t.Error("expected dataAbsentReason")
	}
	if _, ok := ares["valueQuantity"]; ok {
		t.Error("did not expect a value")
	}
}
