package practitioner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	practitioners map[uuid.UUID]*Practitioner
	roles         map[uuid.UUID]*PractitionerRole
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		practitioners: make(map[uuid.UUID]*Practitioner),
		roles:         make(map[uuid.UUID]*PractitionerRole),
	}
}

func (m *mockRepo) Create(_ context.Context, p *Practitioner) error {
	p.ID = uuid.New()
	p.FHIRID = uuid.New().String()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.practitioners[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Practitioner, error) {
	p, ok := m.practitioners[id]
	if !ok {
		return nil, fmt.Errorf("practitioner not found")
	}
	return p, nil
}

func (m *mockRepo) GetByFHIRID(_ context.Context, fhirID string) (*Practitioner, error) {
	for _, p := range m.practitioners {
		if p.FHIRID == fhirID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("practitioner not found")
}

func (m *mockRepo) Update(_ context.Context, p *Practitioner) error {
	if _, ok := m.practitioners[p.ID]; !ok {
		return fmt.Errorf("practitioner not found")
	}
	p.UpdatedAt = time.Now()
	m.practitioners[p.ID] = p
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.practitioners, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Practitioner, int, error) {
	var out []*Practitioner
	for _, p := range m.practitioners {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Practitioner, int, error) {
	return m.List(context.Background(), limit, offset)
}

func (m *mockRepo) CreateRole(_ context.Context, r *PractitionerRole) error {
	r.ID = uuid.New()
	r.FHIRID = uuid.New().String()
	r.CreatedAt = time.Now()
	r.UpdatedAt = time.Now()
	m.roles[r.ID] = r
	return nil
}

func (m *mockRepo) GetRoleByID(_ context.Context, id uuid.UUID) (*PractitionerRole, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, fmt.Errorf("practitioner role not found")
	}
	return r, nil
}

func (m *mockRepo) GetRoleByFHIRID(_ context.Context, fhirID string) (*PractitionerRole, error) {
	for _, r := range m.roles {
		if r.FHIRID == fhirID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("practitioner role not found")
}

func (m *mockRepo) UpdateRole(_ context.Context, r *PractitionerRole) error {
	if _, ok := m.roles[r.ID]; !ok {
		return fmt.Errorf("practitioner role not found")
	}
	r.UpdatedAt = time.Now()
	m.roles[r.ID] = r
	return nil
}

func (m *mockRepo) DeleteRole(_ context.Context, id uuid.UUID) error {
	delete(m.roles, id)
	return nil
}

func (m *mockRepo) ListRoles(_ context.Context, limit, offset int) ([]*PractitionerRole, int, error) {
	var out []*PractitionerRole
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListRolesByPractitioner(_ context.Context, practitionerID uuid.UUID, limit, offset int) ([]*PractitionerRole, int, error) {
	var out []*PractitionerRole
	for _, r := range m.roles {
		if r.PractitionerID == practitionerID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) SearchRoles(_ context.Context, params map[string]string, limit, offset int) ([]*PractitionerRole, int, error) {
	return m.ListRoles(context.Background(), limit, offset)
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestCreatePractitioner(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Practitioner{
		Active:     true,
		FamilyName: strPtr("Chen"),
		GivenName:  strPtr("Laura"),
		Gender:     strPtr("female"),
	}
	if err := svc.CreatePractitioner(context.Background(), p); err != nil {
		t.Fatalf("CreatePractitioner: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if p.FHIRID == "" {
		t.Error("expected FHIR ID to be assigned")
	}
	if p.VersionID != 1 {
		t.Errorf("expected version 1, got %d", p.VersionID)
	}
}

func TestCreatePractitionerInvalidGender(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Practitioner{Gender: strPtr("robot")}
	if err := svc.CreatePractitioner(context.Background(), p); err == nil {
		t.Fatal("expected error for invalid gender")
	}
}

func TestGetPractitionerByFHIRID(t *testing.T) {
	svc := NewService(newMockRepo())

	p := &Practitioner{FamilyName: strPtr("Okafor")}
	if err := svc.CreatePractitioner(context.Background(), p); err != nil {
		t.Fatalf("CreatePractitioner: %v", err)
	}

	got, err := svc.GetPractitionerByFHIRID(context.Background(), p.FHIRID)
	if err != nil {
		t.Fatalf("GetPractitionerByFHIRID: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected %s, got %s", p.ID, got.ID)
	}

	if _, err := svc.GetPractitionerByFHIRID(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown FHIR ID")
	}
}

func TestCreateRoleRequiresPractitioner(t *testing.T) {
	svc := NewService(newMockRepo())

	r := &PractitionerRole{RoleCode: strPtr("doctor")}
	if err := svc.CreateRole(context.Background(), r); err == nil {
		t.Fatal("expected error when practitioner_id is missing")
	}
}

func TestCreateRolePeriodOrdering(t *testing.T) {
	svc := NewService(newMockRepo())

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, -1, 0)
	r := &PractitionerRole{
		PractitionerID: uuid.New(),
		PeriodStart:    timePtr(start),
		PeriodEnd:      timePtr(end),
	}
	if err := svc.CreateRole(context.Background(), r); err == nil {
		t.Fatal("expected error when period_end precedes period_start")
	}

	r.PeriodEnd = timePtr(start.AddDate(0, 6, 0))
	if err := svc.CreateRole(context.Background(), r); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
}

func TestListRolesByPractitioner(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	p := &Practitioner{FamilyName: strPtr("Ivanova")}
	if err := svc.CreatePractitioner(ctx, p); err != nil {
		t.Fatalf("CreatePractitioner: %v", err)
	}

	for i := 0; i < 2; i++ {
		r := &PractitionerRole{PractitionerID: p.ID, RoleCode: strPtr("doctor")}
		if err := svc.CreateRole(ctx, r); err != nil {
			t.Fatalf("CreateRole: %v", err)
		}
	}
	other := &PractitionerRole{PractitionerID: uuid.New()}
	if err := svc.CreateRole(ctx, other); err != nil {
		t.Fatalf("CreateRole: %v", err)
	}

	roles, total, err := svc.ListRolesByPractitioner(ctx, p.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListRolesByPractitioner: %v", err)
	}
	if total != 2 || len(roles) != 2 {
		t.Errorf("expected 2 roles, got total=%d len=%d", total, len(roles))
	}
}

func TestDeletePractitioner(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	p := &Practitioner{FamilyName: strPtr("Reyes")}
	if err := svc.CreatePractitioner(ctx, p); err != nil {
		t.Fatalf("CreatePractitioner: %v", err)
	}
	if err := svc.DeletePractitioner(ctx, p.ID); err != nil {
		t.Fatalf("DeletePractitioner: %v", err)
	}
	if _, err := svc.GetPractitioner(ctx, p.ID); err == nil {
		t.Error("expected error after delete")
	}
}

func TestPractitionerToFHIR(t *testing.T) {
	birth := time.Date(1980, 6, 15, 0, 0, 0, 0, time.UTC)
	p := &Practitioner{
		FHIRID:               "prac-1",
		Active:               true,
		IdentifierSystem:     strPtr("http://hl7.org/fhir/sid/us-npi"),
		IdentifierValue:      strPtr("1234567890"),
		FamilyName:           strPtr("Chen"),
		GivenName:            strPtr("Laura"),
		Prefix:               strPtr("Dr."),
		Gender:               strPtr("female"),
		BirthDate:            &birth,
		Phone:                strPtr("555-0101"),
		Email:                strPtr("lchen@example.org"),
		QualificationCode:    strPtr("MD"),
		QualificationDisplay: strPtr("Doctor of Medicine"),
		VersionID:            3,
	}

	res := p.ToFHIR()
	if res["resourceType"] != "Practitioner" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
	if res["id"] != "prac-1" {
		t.Errorf("id = %v", res["id"])
	}
	if res["gender"] != "female" {
		t.Errorf("gender = %v", res["gender"])
	}
	if res["birthDate"] != "1980-06-15" {
		t.Errorf("birthDate = %v", res["birthDate"])
	}
	if _, ok := res["identifier"]; !ok {
		t.Error("expected identifier")
	}
	if _, ok := res["qualification"]; !ok {
		t.Error("expected qualification")
	}
}

func TestPractitionerRoleToFHIR(t *testing.T) {
	orgID := uuid.New()
	r := &PractitionerRole{
		FHIRID:         "role-1",
		Active:         true,
		PractitionerID: uuid.New(),
		OrganizationID: &orgID,
		RoleCode:       strPtr("doctor"),
		SpecialtyCode:  strPtr("394802001"),
		PeriodStart:    timePtr(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		VersionID:      1,
	}

	res := r.ToFHIR()
	if res["resourceType"] != "PractitionerRole" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
	if _, ok := res["practitioner"]; !ok {
		t.Error("expected practitioner reference")
	}
	if _, ok := res["organization"]; !ok {
		t.Error("expected organization reference")
	}
	if _, ok := res["code"]; !ok {
		t.Error("expected role code")
	}
	if _, ok := res["specialty"]; !ok {
		t.Error("expected specialty")
	}
	if _, ok := res["period"]; !ok {
		t.Error("expected period")
	}

	minimal := &PractitionerRole{FHIRID: "role-2", PractitionerID: uuid.New()}
	mres := minimal.ToFHIR()
	if _, ok := mres["organization"]; ok {
		t.Error("did not expect organization on minimal role")
	}
	if _, ok := mres["period"]; ok {
		t.Error("did not expect period on minimal role")
	}
}
