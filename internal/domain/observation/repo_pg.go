package observation

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

const observationCols = `id, fhir_id, status, category_code, code_system, code, code_display,
	patient_id, encounter_id, performer_id, effective_datetime,
	value_quantity, value_unit, value_system, value_code,
	value_string, value_boolean, value_concept_code, value_concept_text,
	data_absent_reason, interpretation_code, ref_range_low, ref_range_high, note,
	version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, o *Observation) error {
	o.ID = uuid.New()
	if o.FHIRID == "" {
		o.FHIRID = o.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO observation (
			id, fhir_id, status, category_code, code_system, code, code_display,
			patient_id, encounter_id, performer_id, effective_datetime,
			value_quantity, value_unit, value_system, value_code,
			value_string, value_boolean, value_concept_code, value_concept_text,
			data_absent_reason, interpretation_code, ref_range_low, ref_range_high, note
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24
		)`,
		o.ID, o.FHIRID, o.Status, o.CategoryCode, o.CodeSystem, o.Code, o.CodeDisplay,
		o.PatientID, o.EncounterID, o.PerformerID, o.EffectiveDateTime,
		o.ValueQuantity, o.ValueUnit, o.ValueSystem, o.ValueCode,
		o.ValueString, o.ValueBoolean, o.ValueConceptCode, o.ValueConceptText,
		o.DataAbsentReason, o.Interpretation, o.RefRangeLow, o.RefRangeHigh, o.Note,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Observation, error) {
	return scanObservation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+observationCols+` FROM observation WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Observation, error) {
	return scanObservation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+observationCols+` FROM observation WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) Update(ctx context.Context, o *Observation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE observation SET
			status=$2, category_code=$3, code_system=$4, code=$5, code_display=$6,
			encounter_id=$7, performer_id=$8, effective_datetime=$9,
			value_quantity=$10, value_unit=$11, value_system=$12, value_code=$13,
			value_string=$14, value_boolean=$15, value_concept_code=$16, value_concept_text=$17,
			data_absent_reason=$18, interpretation_code=$19, ref_range_low=$20, ref_range_high=$21, note=$22,
			version_id=$23, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		o.ID, o.Status, o.CategoryCode, o.CodeSystem, o.Code, o.CodeDisplay,
		o.EncounterID, o.PerformerID, o.EffectiveDateTime,
		o.ValueQuantity, o.ValueUnit, o.ValueSystem, o.ValueCode,
		o.ValueString, o.ValueBoolean, o.ValueConceptCode, o.ValueConceptText,
		o.DataAbsentReason, o.Interpretation, o.RefRangeLow, o.RefRangeHigh, o.Note,
		o.VersionID,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE observation SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Observation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM observation WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+observationCols+` FROM observation WHERE deleted_at IS NULL ORDER BY effective_datetime DESC NULLS LAST LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectObservations(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Observation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM observation WHERE patient_id = $1 AND deleted_at IS NULL`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+observationCols+` FROM observation WHERE patient_id = $1 AND deleted_at IS NULL
		 ORDER BY effective_datetime DESC NULLS LAST LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectObservations(rows, total)
}

var observationSearchParams = map[string]fhir.SearchParamConfig{
	"status":         {Type: fhir.SearchParamToken, Column: "status"},
	"category":       {Type: fhir.SearchParamToken, Column: "category_code"},
	"code":           {Type: fhir.SearchParamToken, Column: "code", SysColumn: "code_system"},
	"patient":        {Type: fhir.SearchParamReference, Column: "patient_id"},
	"subject":        {Type: fhir.SearchParamReference, Column: "patient_id"},
	"encounter":      {Type: fhir.SearchParamReference, Column: "encounter_id"},
	"performer":      {Type: fhir.SearchParamReference, Column: "performer_id"},
	"date":           {Type: fhir.SearchParamDate, Column: "effective_datetime"},
	"value-quantity": {Type: fhir.SearchParamNumber, Column: "value_quantity"},
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Observation, int, error) {
	qb := fhir.NewSearchQuery("observation", observationCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, observationSearchParams)
	qb.OrderBy("effective_datetime DESC NULLS LAST")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.CountArgs()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(limit, offset), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectObservations(rows, total)
}

func scanObservation(row pgx.Row) (*Observation, error) {
	var o Observation
	err := row.Scan(
		&o.ID, &o.FHIRID, &o.Status, &o.CategoryCode, &o.CodeSystem, &o.Code, &o.CodeDisplay,
		&o.PatientID, &o.EncounterID, &o.PerformerID, &o.EffectiveDateTime,
		&o.ValueQuantity, &o.ValueUnit, &o.ValueSystem, &o.ValueCode,
		&o.ValueString, &o.ValueBoolean, &o.ValueConceptCode, &o.ValueConceptText,
		&o.DataAbsentReason, &o.Interpretation, &o.RefRangeLow, &o.RefRangeHigh, &o.Note,
		&o.VersionID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectObservations(rows pgx.Rows, total int) ([]*Observation, int, error) {
	var observations []*Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, 0, err
		}
		observations = append(observations, o)
	}
	return observations, total, nil
}
