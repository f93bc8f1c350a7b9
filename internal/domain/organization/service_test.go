package organization

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	orgs map[uuid.UUID]*Organization
}

func newMockRepo() *mockRepo {
	return &mockRepo{orgs: make(map[uuid.UUID]*Organization)}
}

func (m *mockRepo) Create(_ context.Context, o *Organization) error {
	o.ID = uuid.New()
	o.FHIRID = uuid.New().String()
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
	m.orgs[o.ID] = o
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Organization, error) {
	o, ok := m.orgs[id]
	if !ok {
		return nil, fmt.Errorf("organization not found")
	}
	return o, nil
}

func (m *mockRepo) GetByFHIRID(_ context.Context, fhirID string) (*Organization, error) {
	for _, o := range m.orgs {
		if o.FHIRID == fhirID {
			return o, nil
		}
	}
	return nil, fmt.Errorf("organization not found")
}

func (m *mockRepo) Update(_ context.Context, o *Organization) error {
	if _, ok := m.orgs[o.ID]; !ok {
		return fmt.Errorf("organization not found")
	}
	o.UpdatedAt = time.Now()
	m.orgs[o.ID] = o
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.orgs, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Organization, int, error) {
	var out []*Organization
	for _, o := range m.orgs {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Organization, int, error) {
	return m.List(context.Background(), limit, offset)
}

func strPtr(s string) *string { return &s }

func TestCreateOrganization(t *testing.T) {
	svc := NewService(newMockRepo())

	o := &Organization{Active: true, Name: strPtr("General Hospital")}
	if err := svc.Create(context.Background(), o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if o.VersionID != 1 {
		t.Errorf("expected version 1, got %d", o.VersionID)
	}
}

func TestCreateOrganizationRequiresNameOrIdentifier(t *testing.T) {
	svc := NewService(newMockRepo())

	if err := svc.Create(context.Background(), &Organization{Active: true}); err == nil {
		t.Fatal("expected error when name and identifier are both absent")
	}

	withIdentifier := &Organization{
		Active:           true,
		IdentifierSystem: strPtr("http://example.org/org-ids"),
		IdentifierValue:  strPtr("ORG-42"),
	}
	if err := svc.Create(context.Background(), withIdentifier); err != nil {
		t.Fatalf("Create with identifier only: %v", err)
	}
}

func TestUpdateOrganizationValidates(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	o := &Organization{Active: true, Name: strPtr("Clinic North")}
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}

	o.Name = nil
	if err := svc.Update(ctx, o); err == nil {
		t.Fatal("expected error when update removes both name and identifier")
	}
}

func TestDeleteOrganization(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	o := &Organization{Active: true, Name: strPtr("Clinic South")}
	if err := svc.Create(ctx, o); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, o.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, o.ID); err == nil {
		t.Error("expected error after delete")
	}
}

func TestOrganizationToFHIR(t *testing.T) {
	parent := uuid.New()
	o := &Organization{
		FHIRID:           "org-1",
		Active:           true,
		Name:             strPtr("General Hospital"),
		Alias:            strPtr("GH"),
		TypeCode:         strPtr("prov"),
		TypeDisplay:      strPtr("Healthcare Provider"),
		IdentifierSystem: strPtr("http://example.org/org-ids"),
		IdentifierValue:  strPtr("ORG-1"),
		Phone:            strPtr("555-0100"),
		AddressCity:      strPtr("Springfield"),
		PartOfID:         &parent,
		VersionID:        2,
	}

	res := o.ToFHIR()
	if res["resourceType"] != "Organization" {
		t.Errorf("resourceType = %v", res["resourceType"])
	}
	if res["name"] != "General Hospital" {
		t.Errorf("name = %v", res["name"])
	}
	if _, ok := res["identifier"]; !ok {
		t.Error("expected identifier")
	}
	if _, ok := res["type"]; !ok {
		t.Error("expected type")
	}
	if _, ok := res["contact"]; !ok {
		t.Error("expected contact with telecom and address")
	}
	if _, ok := res["partOf"]; !ok {
		t.Error("expected partOf reference")
	}

	minimal := &Organization{FHIRID: "org-2", Active: true, Name: strPtr("Solo Practice")}
	mres := minimal.ToFHIR()
	if _, ok := mres["contact"]; ok {
		t.Error("did not expect contact on minimal organization")
	}
	if _, ok := mres["partOf"]; ok {
		t.Error("did not expect partOf on minimal organization")
	}
}
