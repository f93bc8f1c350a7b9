package organization

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

const organizationCols = `id, fhir_id, active, name, alias, type_code, type_display,
	identifier_system, identifier_value, phone, email,
	address_line, address_city, address_state, address_postal_code, address_country,
	part_of_id, version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, o *Organization) error {
	o.ID = uuid.New()
	if o.FHIRID == "" {
		o.FHIRID = o.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO organization (
			id, fhir_id, active, name, alias, type_code, type_display,
			identifier_system, identifier_value, phone, email,
			address_line, address_city, address_state, address_postal_code, address_country,
			part_of_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		o.ID, o.FHIRID, o.Active, o.Name, o.Alias, o.TypeCode, o.TypeDisplay,
		o.IdentifierSystem, o.IdentifierValue, o.Phone, o.Email,
		o.AddressLine, o.AddressCity, o.AddressState, o.AddressPostalCode, o.AddressCountry,
		o.PartOfID,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	return scanOrganization(r.conn(ctx).QueryRow(ctx,
		`SELECT `+organizationCols+` FROM organization WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Organization, error) {
	return scanOrganization(r.conn(ctx).QueryRow(ctx,
		`SELECT `+organizationCols+` FROM organization WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) Update(ctx context.Context, o *Organization) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE organization SET
			active=$2, name=$3, alias=$4, type_code=$5, type_display=$6,
			identifier_system=$7, identifier_value=$8, phone=$9, email=$10,
			address_line=$11, address_city=$12, address_state=$13,
			address_postal_code=$14, address_country=$15, part_of_id=$16,
			version_id=$17, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		o.ID, o.Active, o.Name, o.Alias, o.TypeCode, o.TypeDisplay,
		o.IdentifierSystem, o.IdentifierValue, o.Phone, o.Email,
		o.AddressLine, o.AddressCity, o.AddressState,
		o.AddressPostalCode, o.AddressCountry, o.PartOfID,
		o.VersionID,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE organization SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Organization, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM organization WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+organizationCols+` FROM organization WHERE deleted_at IS NULL ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectOrganizations(rows, total)
}

var organizationSearchParams = map[string]fhir.SearchParamConfig{
	"name":       {Type: fhir.SearchParamString, Column: "name"},
	"identifier": {Type: fhir.SearchParamToken, Column: "identifier_value", SysColumn: "identifier_system"},
	"type":       {Type: fhir.SearchParamToken, Column: "type_code"},
	"active":     {Type: fhir.SearchParamToken, Column: "active"},
	"partof":     {Type: fhir.SearchParamReference, Column: "part_of_id"},
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Organization, int, error) {
	qb := fhir.NewSearchQuery("organization", organizationCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, organizationSearchParams)
	qb.OrderBy("name")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectOrganizations(rows, total)
}

func scanOrganization(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(
		&o.ID, &o.FHIRID, &o.Active, &o.Name, &o.Alias, &o.TypeCode, &o.TypeDisplay,
		&o.IdentifierSystem, &o.IdentifierValue, &o.Phone, &o.Email,
		&o.AddressLine, &o.AddressCity, &o.AddressState, &o.AddressPostalCode, &o.AddressCountry,
		&o.PartOfID, &o.VersionID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOrganizations(rows pgx.Rows, total int) ([]*Organization, int, error) {
	var orgs []*Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, o)
	}
	return orgs, total, nil
}
