package medication

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

const medicationCols = `id, fhir_id, status, code_system, code, code_display,
	dose_form_code, dose_form_display, total_volume_value, total_volume_unit,
	ingredient_code, ingredient_display, ingredient_strength,
	lot_number, expiration_date, version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	if m.FHIRID == "" {
		m.FHIRID = m.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medication (
			id, fhir_id, status, code_system, code, code_display,
			dose_form_code, dose_form_display, total_volume_value, total_volume_unit,
			ingredient_code, ingredient_display, ingredient_strength,
			lot_number, expiration_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		m.ID, m.FHIRID, m.Status, m.CodeSystem, m.Code, m.CodeDisplay,
		m.DoseFormCode, m.DoseFormDisplay, m.TotalVolumeValue, m.TotalVolumeUnit,
		m.IngredientCode, m.IngredientDisplay, m.IngredientStrength,
		m.LotNumber, m.ExpirationDate,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicationCols+` FROM medication WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Medication, error) {
	return scanMedication(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicationCols+` FROM medication WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication SET
			status=$2, code_system=$3, code=$4, code_display=$5,
			dose_form_code=$6, dose_form_display=$7, total_volume_value=$8, total_volume_unit=$9,
			ingredient_code=$10, ingredient_display=$11, ingredient_strength=$12,
			lot_number=$13, expiration_date=$14,
			version_id=$15, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		m.ID, m.Status, m.CodeSystem, m.Code, m.CodeDisplay,
		m.DoseFormCode, m.DoseFormDisplay, m.TotalVolumeValue, m.TotalVolumeUnit,
		m.IngredientCode, m.IngredientDisplay, m.IngredientStrength,
		m.LotNumber, m.ExpirationDate,
		m.VersionID,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE medication SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Medication, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medication WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medicationCols+` FROM medication WHERE deleted_at IS NULL ORDER BY code LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectMedications(rows, total)
}

var medicationSearchParams = map[string]fhir.SearchParamConfig{
	"status":     {Type: fhir.SearchParamToken, Column: "status"},
	"code":       {Type: fhir.SearchParamToken, Column: "code", SysColumn: "code_system"},
	"form":       {Type: fhir.SearchParamToken, Column: "dose_form_code"},
	"ingredient": {Type: fhir.SearchParamToken, Column: "ingredient_code"},
	"lot-number": {Type: fhir.SearchParamToken, Column: "lot_number"},
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error) {
	qb := fhir.NewSearchQuery("medication", medicationCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, medicationSearchParams)
	qb.OrderBy("code")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectMedications(rows, total)
}

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(
		&m.ID, &m.FHIRID, &m.Status, &m.CodeSystem, &m.Code, &m.CodeDisplay,
		&m.DoseFormCode, &m.DoseFormDisplay, &m.TotalVolumeValue, &m.TotalVolumeUnit,
		&m.IngredientCode, &m.IngredientDisplay, &m.IngredientStrength,
		&m.LotNumber, &m.ExpirationDate, &m.VersionID, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collectMedications(rows pgx.Rows, total int) ([]*Medication, int, error) {
	var medications []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		medications = append(medications, m)
	}
	return medications, total, nil
}
