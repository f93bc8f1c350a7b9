package patient

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

const patientCols = `id, fhir_id, active, identifier_system, identifier_value,
	family_name, given_name, prefix, gender, birth_date,
	deceased_boolean, deceased_datetime, multiple_birth_boolean, multiple_birth_integer,
	phone, email, address_line, address_city, address_state, address_postal_code, address_country,
	marital_status_code, managing_organization_id, general_practitioner_id,
	version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (
			id, fhir_id, active, identifier_system, identifier_value,
			family_name, given_name, prefix, gender, birth_date,
			deceased_boolean, deceased_datetime, multiple_birth_boolean, multiple_birth_integer,
			phone, email, address_line, address_city, address_state, address_postal_code, address_country,
			marital_status_code, managing_organization_id, general_practitioner_id
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24
		)`,
		p.ID, p.FHIRID, p.Active, p.IdentifierSystem, p.IdentifierValue,
		p.FamilyName, p.GivenName, p.Prefix, p.Gender, p.BirthDate,
		p.DeceasedBoolean, p.DeceasedDateTime, p.MultipleBirthBoolean, p.MultipleBirthInteger,
		p.Phone, p.Email, p.AddressLine, p.AddressCity, p.AddressState, p.AddressPostalCode, p.AddressCountry,
		p.MaritalStatusCode, p.ManagingOrganizationID, p.GeneralPractitionerID,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			active=$2, identifier_system=$3, identifier_value=$4,
			family_name=$5, given_name=$6, prefix=$7, gender=$8, birth_date=$9,
			deceased_boolean=$10, deceased_datetime=$11, multiple_birth_boolean=$12, multiple_birth_integer=$13,
			phone=$14, email=$15, address_line=$16, address_city=$17, address_state=$18,
			address_postal_code=$19, address_country=$20,
			marital_status_code=$21, managing_organization_id=$22, general_practitioner_id=$23,
			version_id=$24, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.Active, p.IdentifierSystem, p.IdentifierValue,
		p.FamilyName, p.GivenName, p.Prefix, p.Gender, p.BirthDate,
		p.DeceasedBoolean, p.DeceasedDateTime, p.MultipleBirthBoolean, p.MultipleBirthInteger,
		p.Phone, p.Email, p.AddressLine, p.AddressCity, p.AddressState,
		p.AddressPostalCode, p.AddressCountry,
		p.MaritalStatusCode, p.ManagingOrganizationID, p.GeneralPractitionerID,
		p.VersionID,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE patient SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientCols+` FROM patient WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectPatients(rows, total)
}

var patientSearchParams = map[string]fhir.SearchParamConfig{
	"name":       {Type: fhir.SearchParamString, Column: "family_name"},
	"family":     {Type: fhir.SearchParamString, Column: "family_name"},
	"given":      {Type: fhir.SearchParamString, Column: "given_name"},
	"gender":     {Type: fhir.SearchParamToken, Column: "gender"},
	"birthdate":  {Type: fhir.SearchParamDate, Column: "birth_date"},
	"identifier": {Type: fhir.SearchParamToken, Column: "identifier_value", SysColumn: "identifier_system"},
	"active":     {Type: fhir.SearchParamToken, Column: "active"},
	"email":      {Type: fhir.SearchParamToken, Column: "email"},
	"phone":      {Type: fhir.SearchParamToken, Column: "phone"},
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	qb := fhir.NewSearchQuery("patient", patientCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, patientSearchParams)
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
	return collectPatients(rows, total)
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FHIRID, &p.Active, &p.IdentifierSystem, &p.IdentifierValue,
		&p.FamilyName, &p.GivenName, &p.Prefix, &p.Gender, &p.BirthDate,
		&p.DeceasedBoolean, &p.DeceasedDateTime, &p.MultipleBirthBoolean, &p.MultipleBirthInteger,
		&p.Phone, &p.Email, &p.AddressLine, &p.AddressCity, &p.AddressState, &p.AddressPostalCode, &p.AddressCountry,
		&p.MaritalStatusCode, &p.ManagingOrganizationID, &p.GeneralPractitionerID,
		&p.VersionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, nil
}

const relatedCols = `id, fhir_id, active, patient_id, relationship_code, relationship_display,
	family_name, given_name, gender, birth_date, phone, email,
	period_start, period_end, version_id, created_at, updated_at`

func (r *repoPG) CreateRelated(ctx context.Context, rp *RelatedPerson) error {
	rp.ID = uuid.New()
	if rp.FHIRID == "" {
		rp.FHIRID = rp.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO related_person (
			id, fhir_id, active, patient_id, relationship_code, relationship_display,
			family_name, given_name, gender, birth_date, phone, email,
			period_start, period_end
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		rp.ID, rp.FHIRID, rp.Active, rp.PatientID, rp.RelationshipCode, rp.RelationshipDisplay,
		rp.FamilyName, rp.GivenName, rp.Gender, rp.BirthDate, rp.Phone, rp.Email,
		rp.PeriodStart, rp.PeriodEnd,
	)
	return err
}

func (r *repoPG) GetRelatedByID(ctx context.Context, id uuid.UUID) (*RelatedPerson, error) {
	return scanRelated(r.conn(ctx).QueryRow(ctx,
		`SELECT `+relatedCols+` FROM related_person WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetRelatedByFHIRID(ctx context.Context, fhirID string) (*RelatedPerson, error) {
	return scanRelated(r.conn(ctx).QueryRow(ctx,
		`SELECT `+relatedCols+` FROM related_person WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) UpdateRelated(ctx context.Context, rp *RelatedPerson) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE related_person SET
			active=$2, relationship_code=$3, relationship_display=$4,
			family_name=$5, given_name=$6, gender=$7, birth_date=$8,
			phone=$9, email=$10, period_start=$11, period_end=$12,
			version_id=$13, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		rp.ID, rp.Active, rp.RelationshipCode, rp.RelationshipDisplay,
		rp.FamilyName, rp.GivenName, rp.Gender, rp.BirthDate,
		rp.Phone, rp.Email, rp.PeriodStart, rp.PeriodEnd,
		rp.VersionID,
	)
	return err
}

func (r *repoPG) DeleteRelated(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE related_person SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) ListRelated(ctx context.Context, limit, offset int) ([]*RelatedPerson, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM related_person WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+relatedCols+` FROM related_person WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectRelated(rows, total)
}

func (r *repoPG) ListRelatedByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*RelatedPerson, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM related_person WHERE patient_id = $1 AND deleted_at IS NULL`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+relatedCols+` FROM related_person WHERE patient_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectRelated(rows, total)
}

var relatedSearchParams = map[string]fhir.SearchParamConfig{
	"patient":      {Type: fhir.SearchParamReference, Column: "patient_id"},
	"name":         {Type: fhir.SearchParamString, Column: "family_name"},
	"relationship": {Type: fhir.SearchParamToken, Column: "relationship_code"},
	"birthdate":    {Type: fhir.SearchParamDate, Column: "birth_date"},
	"active":       {Type: fhir.SearchParamToken, Column: "active"},
}

func (r *repoPG) SearchRelated(ctx context.Context, params map[string]string, limit, offset int) ([]*RelatedPerson, int, error) {
	qb := fhir.NewSearchQuery("related_person", relatedCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, relatedSearchParams)
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
	return collectRelated(rows, total)
}

func scanRelated(row pgx.Row) (*RelatedPerson, error) {
	var rp RelatedPerson
	err := row.Scan(
		&rp.ID, &rp.FHIRID, &rp.Active, &rp.PatientID, &rp.RelationshipCode, &rp.RelationshipDisplay,
		&rp.FamilyName, &rp.GivenName, &rp.Gender, &rp.BirthDate, &rp.Phone, &rp.Email,
		&rp.PeriodStart, &rp.PeriodEnd, &rp.VersionID, &rp.CreatedAt, &rp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rp, nil
}

func collectRelated(rows pgx.Rows, total int) ([]*RelatedPerson, int, error) {
	var related []*RelatedPerson
	for rows.Next() {
		rp, err := scanRelated(rows)
		if err != nil {
			return nil, 0, err
		}
		related = append(related, rp)
	}
	return related, total, nil
}
