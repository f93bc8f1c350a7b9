package patient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repository --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
	related  map[uuid.UUID]*RelatedPerson
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		patients: make(map[uuid.UUID]*Patient),
		related:  make(map[uuid.UUID]*RelatedPerson),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return p, nil
}

func (m *mockRepo) GetByFHIRID(_ context.Context, fhirID string) (*Patient, error) {
	for _, p := range m.patients {
		if p.FHIRID == fhirID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	return m.List(context.Background(), limit, offset)
}

func (m *mockRepo) CreateRelated(_ context.Context, r *RelatedPerson) error {
	r.ID = uuid.New()
	if r.FHIRID == "" {
		r.FHIRID = r.ID.String()
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	m.related[r.ID] = r
	return nil
}

func (m *mockRepo) GetRelatedByID(_ context.Context, id uuid.UUID) (*RelatedPerson, error) {
	r, ok := m.related[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

func (m *mockRepo) GetRelatedByFHIRID(_ context.Context, fhirID string) (*RelatedPerson, error) {
	for _, r := range m.related {
		if r.FHIRID == fhirID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (m *mockRepo) UpdateRelated(_ context.Context, r *RelatedPerson) error {
	m.related[r.ID] = r
	return nil
}

func (m *mockRepo) DeleteRelated(_ context.Context, id uuid.UUID) error {
	delete(m.related, id)
	return nil
}

func (m *mockRepo) ListRelated(_ context.Context, limit, offset int) ([]*RelatedPerson, int, error) {
	var result []*RelatedPerson
	for _, r := range m.related {
		result = append(result, r)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListRelatedByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*RelatedPerson, int, error) {
	var result []*RelatedPerson
	for _, r := range m.related {
		if r.PatientID == patientID {
			result = append(result, r)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) SearchRelated(_ context.Context, params map[string]string, limit, offset int) ([]*RelatedPerson, int, error) {
	return m.ListRelated(context.Background(), limit, offset)
}

// -- Tests --

func newTestService() *Service {
	return NewService(newMockRepo())
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
func intPtr(i int) *int       { return &i }

func TestCreatePatient(t *testing.T) {
	svc := newTestService()

	p := &Patient{
		Active:     true,
		FamilyName: strPtr("Smith"),
		GivenName:  strPtr("Jane"),
		Gender:     strPtr("female"),
	}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be set")
	}
	if p.FHIRID == "" {
		t.Error("expected FHIR ID to be set")
	}
	if p.VersionID != 1 {
		t.Errorf("expected version 1, got %d", p.VersionID)
	}
}

func TestCreatePatient_InvalidGender(t *testing.T) {
	svc := newTestService()

	p := &Patient{Gender: strPtr("bogus")}
	if err := svc.CreatePatient(context.Background(), p); err == nil {
		t.Error("expected error for invalid gender")
	}
}

func TestCreatePatient_DeceasedExclusive(t *testing.T) {
	svc := newTestService()

	now := time.Now()
	p := &Patient{
		DeceasedBoolean:  boolPtr(true),
		DeceasedDateTime: &now,
	}
	if err := svc.CreatePatient(context.Background(), p); err == nil {
		t.Error("expected error when both deceased forms are set")
	}
}

func TestCreatePatient_MultipleBirthExclusive(t *testing.T) {
	svc := newTestService()

	p := &Patient{
		MultipleBirthBoolean: boolPtr(true),
		MultipleBirthInteger: intPtr(2),
	}
	if err := svc.CreatePatient(context.Background(), p); err == nil {
		t.Error("expected error when both multipleBirth forms are set")
	}
}

func TestGetPatientByFHIRID(t *testing.T) {
	svc := newTestService()

	p := &Patient{FamilyName: strPtr("Doe")}
	svc.CreatePatient(context.Background(), p)

	fetched, err := svc.GetPatientByFHIRID(context.Background(), p.FHIRID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetched.ID != p.ID {
		t.Error("expected same patient")
	}
}

func TestDeletePatient(t *testing.T) {
	svc := newTestService()

	p := &Patient{}
	svc.CreatePatient(context.Background(), p)

	if err := svc.DeletePatient(context.Background(), p.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetPatient(context.Background(), p.ID); err == nil {
		t.Error("expected error after deletion")
	}
}

func TestCreateRelatedPerson(t *testing.T) {
	svc := newTestService()

	rp := &RelatedPerson{
		PatientID:        uuid.New(),
		RelationshipCode: strPtr("MTH"),
		FamilyName:       strPtr("Smith"),
	}
	if err := svc.CreateRelatedPerson(context.Background(), rp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rp.FHIRID == "" {
		t.Error("expected FHIR ID to be set")
	}
}

func TestCreateRelatedPerson_PatientRequired(t *testing.T) {
	svc := newTestService()

	rp := &RelatedPerson{RelationshipCode: strPtr("MTH")}
	if err := svc.CreateRelatedPerson(context.Background(), rp); err == nil {
		t.Error("expected error for missing patient_id")
	}
}

func TestListRelatedPersonsByPatient(t *testing.T) {
	svc := newTestService()

	patientID := uuid.New()
	svc.CreateRelatedPerson(context.Background(), &RelatedPerson{PatientID: patientID})
	svc.CreateRelatedPerson(context.Background(), &RelatedPerson{PatientID: patientID})
	svc.CreateRelatedPerson(context.Background(), &RelatedPerson{PatientID: uuid.New()})

	_, total, err := svc.ListRelatedPersonsByPatient(context.Background(), patientID, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2, got %d", total)
	}
}

func TestPatientToFHIR(t *testing.T) {
	birth := time.Date(1980, 5, 20, 0, 0, 0, 0, time.UTC)
	orgID := uuid.New()

	p := &Patient{
		FHIRID:                 "pat-1",
		Active:                 true,
		IdentifierSystem:       strPtr("http://hospital.example.org/mrn"),
		IdentifierValue:        strPtr("MRN-1234"),
		FamilyName:             strPtr("Smith"),
		GivenName:              strPtr("Jane"),
		Gender:                 strPtr("female"),
		BirthDate:              &birth,
		Phone:                  strPtr("+1-555-0100"),
		Email:                  strPtr("jane@example.org"),
		AddressCity:            strPtr("Springfield"),
		ManagingOrganizationID: &orgID,
		VersionID:              3,
		UpdatedAt:              time.Now(),
	}

	res := p.ToFHIR()

	if res["resourceType"] != "Patient" {
		t.Errorf("expected Patient, got %v", res["resourceType"])
	}
	if res["id"] != "pat-1" {
		t.Errorf("expected pat-1, got %v", res["id"])
	}
	if res["gender"] != "female" {
		t.Errorf("expected female, got %v", res["gender"])
	}
	if res["birthDate"] != "1980-05-20" {
		t.Errorf("expected 1980-05-20, got %v", res["birthDate"])
	}
	if res["identifier"] == nil {
		t.Error("expected identifier")
	}
	if res["name"] == nil {
		t.Error("expected name")
	}
	if res["telecom"] == nil {
		t.Error("expected telecom")
	}
	if res["address"] == nil {
		t.Error("expected address")
	}
	if res["managingOrganization"] == nil {
		t.Error("expected managingOrganization")
	}
}

func TestPatientToFHIR_DeceasedChoice(t *testing.T) {
	now := time.Now()
	p := &Patient{FHIRID: "pat-2", DeceasedDateTime: &now, UpdatedAt: now}

	res := p.ToFHIR()
	if res["deceasedDateTime"] == nil {
		t.Error("expected deceasedDateTime")
	}
	if _, ok := res["deceasedBoolean"]; ok {
		t.Error("deceasedBoolean must not appear with deceasedDateTime")
	}
}

func TestPatientToFHIR_Minimal(t *testing.T) {
	p := &Patient{FHIRID: "pat-3", UpdatedAt: time.Now()}

	res := p.ToFHIR()
	if res["name"] != nil {
		t.Error("expected no name for minimal patient")
	}
	if res["identifier"] != nil {
		t.Error("expected no identifier for minimal patient")
	}
	if res["address"] != nil {
		t.Error("expected no address for minimal patient")
	}
}

func TestRelatedPersonToFHIR(t *testing.T) {
	rp := &RelatedPerson{
		FHIRID:              "rel-1",
		Active:              true,
		PatientID:           uuid.New(),
		RelationshipCode:    strPtr("MTH"),
		RelationshipDisplay: strPtr("mother"),
		FamilyName:          strPtr("Smith"),
		UpdatedAt:           time.Now(),
	}

	res := rp.ToFHIR()
	if res["resourceType"] != "RelatedPerson" {
		t.Errorf("expected RelatedPerson, got %v", res["resourceType"])
	}
	if res["patient"] == nil {
		t.Error("expected patient reference")
	}
	if res["relationship"] == nil {
		t.Error("expected relationship")
	}
}
