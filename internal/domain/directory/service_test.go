package directory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	locations map[uuid.UUID]*Location
	services  map[uuid.UUID]*HealthcareService
	endpoints map[uuid.UUID]*Endpoint
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		locations: make(map[uuid.UUID]*Location),
		services:  make(map[uuid.UUID]*HealthcareService),
		endpoints: make(map[uuid.UUID]*Endpoint),
	}
}

func (m *mockRepo) CreateLocation(_ context.Context, l *Location) error {
	l.ID = uuid.New()
	l.FHIRID = uuid.New().String()
	l.CreatedAt = time.Now()
	l.UpdatedAt = time.Now()
	m.locations[l.ID] = l
	return nil
}

func (m *mockRepo) GetLocationByID(_ context.Context, id uuid.UUID) (*Location, error) {
	l, ok := m.locations[id]
	if !ok {
		return nil, fmt.Errorf("location not found")
	}
	return l, nil
}

func (m *mockRepo) GetLocationByFHIRID(_ context.Context, fhirID string) (*Location, error) {
	for _, l := range m.locations {
		if l.FHIRID == fhirID {
			return l, nil
		}
	}
	return nil, fmt.Errorf("location not found")
}

func (m *mockRepo) UpdateLocation(_ context.Context, l *Location) error {
	if _, ok := m.locations[l.ID]; !ok {
		return fmt.Errorf("location not found")
	}
	l.UpdatedAt = time.Now()
	m.locations[l.ID] = l
	return nil
}

func (m *mockRepo) DeleteLocation(_ context.Context, id uuid.UUID) error {
	delete(m.locations, id)
	return nil
}

func (m *mockRepo) ListLocations(_ context.Context, limit, offset int) ([]*Location, int, error) {
	var out []*Location
	for _, l := range m.locations {
		out = append(out, l)
	}
	return out, len(out), nil
}

func (m *mockRepo) SearchLocations(ctx context.Context, params map[string]string, limit, offset int) ([]*Location, int, error) {
	return m.ListLocations(ctx, limit, offset)
}

func (m *mockRepo) CreateService(_ context.Context, hs *HealthcareService) error {
	hs.ID = uuid.New()
	hs.FHIRID = uuid.New().String()
	hs.CreatedAt = time.Now()
	hs.UpdatedAt = time.Now()
	m.services[hs.ID] = hs
	return nil
}

func (m *mockRepo) GetServiceByID(_ context.Context, id uuid.UUID) (*HealthcareService, error) {
	hs, ok := m.services[id]
	if !ok {
		return nil, fmt.Errorf("healthcare service not found")
	}
	return hs, nil
}

func (m *mockRepo) GetServiceByFHIRID(_ context.Context, fhirID string) (*HealthcareService, error) {
	for _, hs := range m.services {
		if hs.FHIRID == fhirID {
			return hs, nil
		}
	}
	return nil, fmt.Errorf("healthcare service not found")
}

func (m *mockRepo) UpdateService(_ context.Context, hs *HealthcareService) error {
	if _, ok := m.services[hs.ID]; !ok {
		return fmt.Errorf("healthcare service not found")
	}
	hs.UpdatedAt = time.Now()
	m.services[hs.ID] = hs
	return nil
}

func (m *mockRepo) DeleteService(_ context.Context, id uuid.UUID) error {
	delete(m.services, id)
	return nil
}

func (m *mockRepo) ListServices(_ context.Context, limit, offset int) ([]*HealthcareService, int, error) {
	var out []*HealthcareService
	for _, hs := range m.services {
		out = append(out, hs)
	}
	return out, len(out), nil
}

func (m *mockRepo) SearchServices(ctx context.Context, params map[string]string, limit, offset int) ([]*HealthcareService, int, error) {
	return m.ListServices(ctx, limit, offset)
}

func (m *mockRepo) CreateEndpoint(_ context.Context, e *Endpoint) error {
	e.ID = uuid.New()
	e.FHIRID = uuid.New().String()
	e.CreatedAt = time.Now()
	e.UpdatedAt = time.Now()
	m.endpoints[e.ID] = e
	return nil
}

func (m *mockRepo) GetEndpointByID(_ context.Context, id uuid.UUID) (*Endpoint, error) {
	e, ok := m.endpoints[id]
	if !ok {
		return nil, fmt.Errorf("endpoint not found")
	}
	return e, nil
}

func (m *mockRepo) GetEndpointByFHIRID(_ context.Context, fhirID string) (*Endpoint, error) {
	for _, e := range m.endpoints {
		if e.FHIRID == fhirID {
			return e, nil
		}
	}
	return nil, fmt.Errorf("endpoint not found")
}

func (m *mockRepo) UpdateEndpoint(_ context.Context, e *Endpoint) error {
	if _, ok := m.endpoints[e.ID]; !ok {
		return fmt.Errorf("endpoint not found")
	}
	e.UpdatedAt = time.Now()
	m.endpoints[e.ID] = e
	return nil
}

func (m *mockRepo) DeleteEndpoint(_ context.Context, id uuid.UUID) error {
	delete(m.endpoints, id)
	return nil
}

func (m *mockRepo) ListEndpoints(_ context.Context, limit, offset int) ([]*Endpoint, int, error) {
	var out []*Endpoint
	for _, e := range m.endpoints {
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *mockRepo) SearchEndpoints(ctx context.Context, params map[string]string, limit, offset int) ([]*Endpoint, int, error) {
	return m.ListEndpoints(ctx, limit, offset)
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func TestCreateLocation(t *testing.T) {
	svc := NewService(newMockRepo())

	l := &Location{Name: "Main Building", Status: strPtr("active")}
	if err := svc.CreateLocation(context.Background(), l); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if l.VersionID != 1 {
		t.Errorf("expected version 1, got %d", l.VersionID)
	}
}

func TestCreateLocationValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		loc  Location
	}{
		{"missing name", Location{Status: strPtr("active")}},
		{"invalid status", Location{Name: "Ward A", Status: strPtr("open")}},
		{"invalid mode", Location{Name: "Ward A", Mode: strPtr("virtual")}},
		{"longitude without latitude", Location{Name: "Ward A", PositionLongitude: floatPtr(-71.05)}},
	}
	for _, tc := range cases {
		loc := tc.loc
		if err := svc.CreateLocation(ctx, &loc); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestCreateEndpointValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	noStatus := &Endpoint{Address: "https://hl7.example.org/fhir"}
	if err := svc.CreateEndpoint(ctx, noStatus); err == nil {
		t.Error("expected error for missing status")
	}

	noAddress := &Endpoint{Status: "active"}
	if err := svc.CreateEndpoint(ctx, noAddress); err == nil {
		t.Error("expected error for missing address")
	}

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)
	badPeriod := &Endpoint{Status: "active", Address: "https://hl7.example.org/fhir", PeriodStart: &start, PeriodEnd: &end}
	if err := svc.CreateEndpoint(ctx, badPeriod); err == nil {
		t.Error("expected error for period end before start")
	}

	ok := &Endpoint{Status: "active", Address: "https://hl7.example.org/fhir"}
	if err := svc.CreateEndpoint(ctx, ok); err != nil {
		t.Fatalf("CreateEndpoint: %v", err)
	}
	if ok.VersionID != 1 {
		t.Errorf("expected version 1, got %d", ok.VersionID)
	}
}

func TestCreateServiceRequiresName(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	if err := svc.CreateService(ctx, &HealthcareService{Active: true}); err == nil {
		t.Error("expected error for missing name")
	}
	hs := &HealthcareService{Active: true, Name: "Cardiology Clinic"}
	if err := svc.CreateService(ctx, hs); err != nil {
		t.Fatalf("CreateService: %v", err)
	}
}

func TestDeleteLocation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	l := &Location{Name: "Main Building"}
	if err := svc.CreateLocation(ctx, l); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if err := svc.DeleteLocation(ctx, l.ID); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}
	if _, err := svc.GetLocation(ctx, l.ID); err == nil {
		t.Error("expected error after delete")
	}
}

func TestLocationToFHIR(t *testing.T) {
	orgID := uuid.New()
	l := &Location{
		FHIRID:            "loc-1",
		Status:            strPtr("active"),
		Name:              "Main Building",
		Mode:              strPtr("instance"),
		TypeCode:          strPtr("HOSP"),
		TypeDisplay:       strPtr("Hospital"),
		Phone:             strPtr("555-0100"),
		AddressLine:       strPtr("100 Main St"),
		AddressCity:       strPtr("Boston"),
		PositionLongitude: floatPtr(-71.0589),
		PositionLatitude:  floatPtr(42.3601),
		ManagingOrgID:     &orgID,
		VersionID:         1,
	}

	res := l.ToFHIR()
	if res["resourceType"] != "Location" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
	if res["name"] != "Main Building" {
		t.Errorf("name = %v", res["name"])
	}
	if res["status"] != "active" {
		t.Errorf("status = %v", res["status"])
	}
	if _, ok := res["position"]; !ok {
		t.Error("expected position")
	}
	if _, ok := res["managingOrganization"]; !ok {
		t.Error("expected managingOrganization")
	}
	if _, ok := res["contact"]; !ok {
		t.Error("expected contact")
	}

	minimal := &Location{FHIRID: "loc-2", Name: "Ward A"}
	mres := minimal.ToFHIR()
	if _, ok := mres["position"]; ok {
		t.Error("did not expect position on minimal location")
	}
	if _, ok := mres["status"]; ok {
		t.Error("did not expect status on minimal location")
	}
}

func TestEndpointToFHIR(t *testing.T) {
	e := &Endpoint{
		FHIRID:             "ep-1",
		Status:             "active",
		Name:               strPtr("FHIR sync"),
		ConnectionTypeCode: strPtr("hl7-fhir-rest"),
		PayloadTypeCode:    strPtr("urn:ihe:pcc:xds-ms:2007"),
		PayloadMimeType:    strPtr("application/fhir+json"),
		Address:            "https://hl7.example.org/fhir",
		VersionID:          1,
	}

	res := e.ToFHIR()
	if res["resourceType"] != "Endpoint" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
	if res["address"] != "https://hl7.example.org/fhir" {
		t.Errorf("address = %v", res["address"])
	}
	payload, ok := res["payload"].([]map[string]interface{})
	if !ok || len(payload) != 1 {
		t.Fatalf("expected one payload entry, got %v", res["payload"])
	}
	if _, ok := payload[0]["mimeType"]; !ok {
		t.Error("expected payload mimeType")
	}
}
