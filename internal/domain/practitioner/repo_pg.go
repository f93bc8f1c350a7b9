package practitioner

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medrec/medrec/internal/platform/db"
	"github.com/medrec/medrec/internal/platform/fhir"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const practitionerCols = `id, fhir_id, active, identifier_system, identifier_value,
	family_name, given_name, prefix, gender, birth_date, phone, email,
	qualification_code, qualification_display, version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Practitioner) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO practitioner (
			id, fhir_id, active, identifier_system, identifier_value,
			family_name, given_name, prefix, gender, birth_date, phone, email,
			qualification_code, qualification_display
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.FHIRID, p.Active, p.IdentifierSystem, p.IdentifierValue,
		p.FamilyName, p.GivenName, p.Prefix, p.Gender, p.BirthDate, p.Phone, p.Email,
		p.QualificationCode, p.QualificationDisplay,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Practitioner, error) {
	return scanPractitioner(r.conn(ctx).QueryRow(ctx,
		`SELECT `+practitionerCols+` FROM practitioner WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Practitioner, error) {
	return scanPractitioner(r.conn(ctx).QueryRow(ctx,
		`SELECT `+practitionerCols+` FROM practitioner WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) Update(ctx context.Context, p *Practitioner) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE practitioner SET
			active=$2, identifier_system=$3, identifier_value=$4,
			family_name=$5, given_name=$6, prefix=$7, gender=$8, birth_date=$9,
			phone=$10, email=$11, qualification_code=$12, qualification_display=$13,
			version_id=$14, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.Active, p.IdentifierSystem, p.IdentifierValue,
		p.FamilyName, p.GivenName, p.Prefix, p.Gender, p.BirthDate,
		p.Phone, p.Email, p.QualificationCode, p.QualificationDisplay,
		p.VersionID,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE practitioner SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Practitioner, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM practitioner WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+practitionerCols+` FROM practitioner WHERE deleted_at IS NULL ORDER BY family_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPractitioners(rows, total)
}

var practitionerSearchParams = map[string]fhir.SearchParamConfig{
	"name":       {Type: fhir.SearchParamString, Column: "family_name"},
	"family":     {Type: fhir.SearchParamString, Column: "family_name"},
	"given":      {Type: fhir.SearchParamString, Column: "given_name"},
	"gender":     {Type: fhir.SearchParamToken, Column: "gender"},
	"identifier": {Type: fhir.SearchParamToken, Column: "identifier_value", SysColumn: "identifier_system"},
	"active":     {Type: fhir.SearchParamToken, Column: "active"},
	"email":      {Type: fhir.SearchParamToken, Column: "email"},
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Practitioner, int, error) {
	qb := fhir.NewSearchQuery("practitioner", practitionerCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, practitionerSearchParams)
	qb.OrderBy("family_name")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPractitioners(rows, total)
}

func scanPractitioner(row pgx.Row) (*Practitioner, error) {
	var p Practitioner
	err := row.Scan(
		&p.ID, &p.FHIRID, &p.Active, &p.IdentifierSystem, &p.IdentifierValue,
		&p.FamilyName, &p.GivenName, &p.Prefix, &p.Gender, &p.BirthDate, &p.Phone, &p.Email,
		&p.QualificationCode, &p.QualificationDisplay, &p.VersionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPractitioners(rows pgx.Rows, total int) ([]*Practitioner, int, error) {
	var practitioners []*Practitioner
	for rows.Next() {
		p, err := scanPractitioner(rows)
		if err != nil {
			return nil, 0, err
		}
		practitioners = append(practitioners, p)
	}
	return practitioners, total, nil
}

const roleCols = `id, fhir_id, active, practitioner_id, organization_id, location_id,
	role_code, role_display, specialty_code, specialty_display, phone, email,
	period_start, period_end, version_id, created_at, updated_at`

func (r *repoPG) CreateRole(ctx context.Context, role *PractitionerRole) error {
	role.ID = uuid.New()
	if role.FHIRID == "" {
		role.FHIRID = role.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO practitioner_role (
			id, fhir_id, active, practitioner_id, organization_id, location_id,
			role_code, role_display, specialty_code, specialty_display, phone, email,
			period_start, period_end
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		role.ID, role.FHIRID, role.Active, role.PractitionerID, role.OrganizationID, role.LocationID,
		role.RoleCode, role.RoleDisplay, role.SpecialtyCode, role.SpecialtyDisplay, role.Phone, role.Email,
		role.PeriodStart, role.PeriodEnd,
	)
	return err
}

func (r *repoPG) GetRoleByID(ctx context.Context, id uuid.UUID) (*PractitionerRole, error) {
	return scanRole(r.conn(ctx).QueryRow(ctx,
		`SELECT `+roleCols+` FROM practitioner_role WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetRoleByFHIRID(ctx context.Context, fhirID string) (*PractitionerRole, error) {
	return scanRole(r.conn(ctx).QueryRow(ctx,
		`SELECT `+roleCols+` FROM practitioner_role WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) UpdateRole(ctx context.Context, role *PractitionerRole) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE practitioner_role SET
			active=$2, organization_id=$3, location_id=$4,
			role_code=$5, role_display=$6, specialty_code=$7, specialty_display=$8,
			phone=$9, email=$10, period_start=$11, period_end=$12,
			version_id=$13, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		role.ID, role.Active, role.OrganizationID, role.LocationID,
		role.RoleCode, role.RoleDisplay, role.SpecialtyCode, role.SpecialtyDisplay,
		role.Phone, role.Email, role.PeriodStart, role.PeriodEnd,
		role.VersionID,
	)
	return err
}

func (r *repoPG) DeleteRole(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE practitioner_role SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) ListRoles(ctx context.Context, limit, offset int) ([]*PractitionerRole, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM practitioner_role WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roleCols+` FROM practitioner_role WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectRoles(rows, total)
}

func (r *repoPG) ListRolesByPractitioner(ctx context.Context, practitionerID uuid.UUID, limit, offset int) ([]*PractitionerRole, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM practitioner_role WHERE practitioner_id = $1 AND deleted_at IS NULL`,
		practitionerID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roleCols+` FROM practitioner_role WHERE practitioner_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		practitionerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectRoles(rows, total)
}

var roleSearchParams = map[string]fhir.SearchParamConfig{
	"practitioner": {Type: fhir.SearchParamReference, Column: "practitioner_id"},
	"organization": {Type: fhir.SearchParamReference, Column: "organization_id"},
	"role":         {Type: fhir.SearchParamToken, Column: "role_code"},
	"specialty":    {Type: fhir.SearchParamToken, Column: "specialty_code"},
	"active":       {Type: fhir.SearchParamToken, Column: "active"},
}

func (r *repoPG) SearchRoles(ctx context.Context, params map[string]string, limit, offset int) ([]*PractitionerRole, int, error) {
	qb := fhir.NewSearchQuery("practitioner_role", roleCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, roleSearchParams)
	qb.OrderBy("created_at DESC")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectRoles(rows, total)
}

func scanRole(row pgx.Row) (*PractitionerRole, error) {
	var role PractitionerRole
	err := row.Scan(
		&role.ID, &role.FHIRID, &role.Active, &role.PractitionerID, &role.OrganizationID, &role.LocationID,
		&role.RoleCode, &role.RoleDisplay, &role.SpecialtyCode, &role.SpecialtyDisplay, &role.Phone, &role.Email,
		&role.PeriodStart, &role.PeriodEnd, &role.VersionID, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func collectRoles(rows pgx.Rows, total int) ([]*PractitionerRole, int, error) {
	var roles []*PractitionerRole
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, 0, err
		}
		roles = append(roles, role)
	}
	return roles, total, nil
}
