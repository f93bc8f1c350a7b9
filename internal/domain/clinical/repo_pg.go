package clinical

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

const conditionCols = `id, fhir_id, clinical_status, verification_status, category_code, severity_code,
	code_system, code, code_display, patient_id, encounter_id,
	onset_datetime, abatement_datetime, recorded_date, note,
	version_id, created_at, updated_at`

func (r *repoPG) CreateCondition(ctx context.Context, c *Condition) error {
	c.ID = uuid.New()
	if c.FHIRID == "" {
		c.FHIRID = c.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO condition (
			id, fhir_id, clinical_status, verification_status, category_code, severity_code,
			code_system, code, code_display, patient_id, encounter_id,
			onset_datetime, abatement_datetime, recorded_date, note
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		c.ID, c.FHIRID, c.ClinicalStatus, c.VerificationStatus, c.CategoryCode, c.SeverityCode,
		c.CodeSystem, c.Code, c.CodeDisplay, c.PatientID, c.EncounterID,
		c.OnsetDateTime, c.AbatementDateTime, c.RecordedDate, c.Note,
	)
	return err
}

func (r *repoPG) GetConditionByID(ctx context.Context, id uuid.UUID) (*Condition, error) {
	return scanCondition(r.conn(ctx).QueryRow(ctx,
		`SELECT `+conditionCols+` FROM condition WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetConditionByFHIRID(ctx context.Context, fhirID string) (*Condition, error) {
	return scanCondition(r.conn(ctx).QueryRow(ctx,
		`SELECT `+conditionCols+` FROM condition WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) UpdateCondition(ctx context.Context, c *Condition) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE condition SET
			clinical_status=$2, verification_status=$3, category_code=$4, severity_code=$5,
			code_system=$6, code=$7, code_display=$8, encounter_id=$9,
			onset_datetime=$10, abatement_datetime=$11, recorded_date=$12, note=$13,
			version_id=$14, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		c.ID, c.ClinicalStatus, c.VerificationStatus, c.CategoryCode, c.SeverityCode,
		c.CodeSystem, c.Code, c.CodeDisplay, c.EncounterID,
		c.OnsetDateTime, c.AbatementDateTime, c.RecordedDate, c.Note,
		c.VersionID,
	)
	return err
}

func (r *repoPG) DeleteCondition(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE condition SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) ListConditions(ctx context.Context, limit, offset int) ([]*Condition, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM condition WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+conditionCols+` FROM condition WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectConditions(rows, total)
}

func (r *repoPG) ListConditionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Condition, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM condition WHERE patient_id = $1 AND deleted_at IS NULL`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+conditionCols+` FROM condition WHERE patient_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectConditions(rows, total)
}

var conditionSearchParams = map[string]fhir.SearchParamConfig{
	"clinical-status":     {Type: fhir.SearchParamToken, Column: "clinical_status"},
	"verification-status": {Type: fhir.SearchParamToken, Column: "verification_status"},
	"category":            {Type: fhir.SearchParamToken, Column: "category_code"},
	"severity":            {Type: fhir.SearchParamToken, Column: "severity_code"},
	"code":                {Type: fhir.SearchParamToken, Column: "code", SysColumn: "code_system"},
	"patient":             {Type: fhir.SearchParamReference, Column: "patient_id"},
	"subject":             {Type: fhir.SearchParamReference, Column: "patient_id"},
	"encounter":           {Type: fhir.SearchParamReference, Column: "encounter_id"},
	"onset-date":          {Type: fhir.SearchParamDate, Column: "onset_datetime"},
	"recorded-date":       {Type: fhir.SearchParamDate, Column: "recorded_date"},
}

func (r *repoPG) SearchConditions(ctx context.Context, params map[string]string, limit, offset int) ([]*Condition, int, error) {
	qb := fhir.NewSearchQuery("condition", conditionCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, conditionSearchParams)
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
	return collectConditions(rows, total)
}

func scanCondition(row pgx.Row) (*Condition, error) {
	var c Condition
	err := row.Scan(
		&c.ID, &c.FHIRID, &c.ClinicalStatus, &c.VerificationStatus, &c.CategoryCode, &c.SeverityCode,
		&c.CodeSystem, &c.Code, &c.CodeDisplay, &c.PatientID, &c.EncounterID,
		&c.OnsetDateTime, &c.AbatementDateTime, &c.RecordedDate, &c.Note,
		&c.VersionID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func collectConditions(rows pgx.Rows, total int) ([]*Condition, int, error) {
	var conditions []*Condition
	for rows.Next() {
		c, err := scanCondition(rows)
		if err != nil {
			return nil, 0, err
		}
		conditions = append(conditions, c)
	}
	return conditions, total, nil
}

const allergyCols = `id, fhir_id, clinical_status, verification_status, type, category, criticality,
	code_system, code, code_display, patient_id, onset_datetime, recorded_date,
	reaction_manifestation_code, reaction_manifestation_display, reaction_severity, note,
	version_id, created_at, updated_at`

func (r *repoPG) CreateAllergy(ctx context.Context, a *AllergyIntolerance) error {
	a.ID = uuid.New()
	if a.FHIRID == "" {
		a.FHIRID = a.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO allergy_intolerance (
			id, fhir_id, clinical_status, verification_status, type, category, criticality,
			code_system, code, code_display, patient_id, onset_datetime, recorded_date,
			reaction_manifestation_code, reaction_manifestation_display, reaction_severity, note
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		a.ID, a.FHIRID, a.ClinicalStatus, a.VerificationStatus, a.Type, a.Category, a.Criticality,
		a.CodeSystem, a.Code, a.CodeDisplay, a.PatientID, a.OnsetDateTime, a.RecordedDate,
		a.ReactionManifestation, a.ReactionDisplay, a.ReactionSeverity, a.Note,
	)
	return err
}

func (r *repoPG) GetAllergyByID(ctx context.Context, id uuid.UUID) (*AllergyIntolerance, error) {
	return scanAllergy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+allergyCols+` FROM allergy_intolerance WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetAllergyByFHIRID(ctx context.Context, fhirID string) (*AllergyIntolerance, error) {
	return scanAllergy(r.conn(ctx).QueryRow(ctx,
		`SELECT `+allergyCols+` FROM allergy_intolerance WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) UpdateAllergy(ctx context.Context, a *AllergyIntolerance) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE allergy_intolerance SET
			clinical_status=$2, verification_status=$3, type=$4, category=$5, criticality=$6,
			code_system=$7, code=$8, code_display=$9, onset_datetime=$10, recorded_date=$11,
			reaction_manifestation_code=$12, reaction_manifestation_display=$13, reaction_severity=$14, note=$15,
			version_id=$16, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		a.ID, a.ClinicalStatus, a.VerificationStatus, a.Type, a.Category, a.Criticality,
		a.CodeSystem, a.Code, a.CodeDisplay, a.OnsetDateTime, a.RecordedDate,
		a.ReactionManifestation, a.ReactionDisplay, a.ReactionSeverity, a.Note,
		a.VersionID,
	)
	return err
}

func (r *repoPG) DeleteAllergy(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE allergy_intolerance SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) ListAllergies(ctx context.Context, limit, offset int) ([]*AllergyIntolerance, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM allergy_intolerance WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+allergyCols+` FROM allergy_intolerance WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectAllergies(rows, total)
}

func (r *repoPG) ListAllergiesByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*AllergyIntolerance, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM allergy_intolerance WHERE patient_id = $1 AND deleted_at IS NULL`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+allergyCols+` FROM allergy_intolerance WHERE patient_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectAllergies(rows, total)
}

var allergySearchParams = map[string]fhir.SearchParamConfig{
	"clinical-status": {Type: fhir.SearchParamToken, Column: "clinical_status"},
	"type":            {Type: fhir.SearchParamToken, Column: "type"},
	"category":        {Type: fhir.SearchParamToken, Column: "category"},
	"criticality":     {Type: fhir.SearchParamToken, Column: "criticality"},
	"code":            {Type: fhir.SearchParamToken, Column: "code", SysColumn: "code_system"},
	"patient":         {Type: fhir.SearchParamReference, Column: "patient_id"},
	"date":            {Type: fhir.SearchParamDate, Column: "recorded_date"},
}

func (r *repoPG) SearchAllergies(ctx context.Context, params map[string]string, limit, offset int) ([]*AllergyIntolerance, int, error) {
	qb := fhir.NewSearchQuery("allergy_intolerance", allergyCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, allergySearchParams)
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
	return collectAllergies(rows, total)
}

func scanAllergy(row pgx.Row) (*AllergyIntolerance, error) {
	var a AllergyIntolerance
	err := row.Scan(
		&a.ID, &a.FHIRID, &a.ClinicalStatus, &a.VerificationStatus, &a.Type, &a.Category, &a.Criticality,
		&a.CodeSystem, &a.Code, &a.CodeDisplay, &a.PatientID, &a.OnsetDateTime, &a.RecordedDate,
		&a.ReactionManifestation, &a.ReactionDisplay, &a.ReactionSeverity, &a.Note,
		&a.VersionID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAllergies(rows pgx.Rows, total int) ([]*AllergyIntolerance, int, error) {
	var allergies []*AllergyIntolerance
	for rows.Next() {
		a, err := scanAllergy(rows)
		if err != nil {
			return nil, 0, err
		}
		allergies = append(allergies, a)
	}
	return allergies, total, nil
}
