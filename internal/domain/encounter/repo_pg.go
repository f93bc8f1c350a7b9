package encounter

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

const encounterCols = `id, fhir_id, status, class_code, class_display, type_code, type_display,
	priority_code, patient_id, practitioner_id, service_provider_id, location_id,
	planned_start, planned_end, actual_start, actual_end,
	reason_text, discharge_disposition_code,
	version_id, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, e *Encounter) error {
	e.ID = uuid.New()
	if e.FHIRID == "" {
		e.FHIRID = e.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO encounter (
			id, fhir_id, status, class_code, class_display, type_code, type_display,
			priority_code, patient_id, practitioner_id, service_provider_id, location_id,
			planned_start, planned_end, actual_start, actual_end,
			reason_text, discharge_disposition_code
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,
			$11,$12,$13,$14,$15,$16,$17,$18
		)`,
		e.ID, e.FHIRID, e.Status, e.ClassCode, e.ClassDisplay, e.TypeCode, e.TypeDisplay,
		e.PriorityCode, e.PatientID, e.PractitionerID, e.ServiceProviderID, e.LocationID,
		e.PlannedStart, e.PlannedEnd, e.ActualStart, e.ActualEnd,
		e.ReasonText, e.DischargeDispositionCode,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	return scanEncounter(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encounterCols+` FROM encounter WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Encounter, error) {
	return scanEncounter(r.conn(ctx).QueryRow(ctx,
		`SELECT `+encounterCols+` FROM encounter WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) Update(ctx context.Context, e *Encounter) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE encounter SET
			status=$2, class_code=$3, class_display=$4, type_code=$5, type_display=$6,
			priority_code=$7, practitioner_id=$8, service_provider_id=$9, location_id=$10,
			planned_start=$11, planned_end=$12, actual_start=$13, actual_end=$14,
			reason_text=$15, discharge_disposition_code=$16,
			version_id=$17, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		e.ID, e.Status, e.ClassCode, e.ClassDisplay, e.TypeCode, e.TypeDisplay,
		e.PriorityCode, e.PractitionerID, e.ServiceProviderID, e.LocationID,
		e.PlannedStart, e.PlannedEnd, e.ActualStart, e.ActualEnd,
		e.ReasonText, e.DischargeDispositionCode,
		e.VersionID,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE encounter SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+encounterCols+` FROM encounter WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectEncounters(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Encounter, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM encounter WHERE patient_id = $1 AND deleted_at IS NULL`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+encounterCols+` FROM encounter WHERE patient_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectEncounters(rows, total)
}

var encounterSearchParams = map[string]fhir.SearchParamConfig{
	"status":           {Type: fhir.SearchParamToken, Column: "status"},
	"class":            {Type: fhir.SearchParamToken, Column: "class_code"},
	"type":             {Type: fhir.SearchParamToken, Column: "type_code"},
	"patient":          {Type: fhir.SearchParamReference, Column: "patient_id"},
	"subject":          {Type: fhir.SearchParamReference, Column: "patient_id"},
	"practitioner":     {Type: fhir.SearchParamReference, Column: "practitioner_id"},
	"service-provider": {Type: fhir.SearchParamReference, Column: "service_provider_id"},
	"location":         {Type: fhir.SearchParamReference, Column: "location_id"},
	"date":             {Type: fhir.SearchParamDate, Column: "actual_start"},
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Encounter, int, error) {
	qb := fhir.NewSearchQuery("encounter", encounterCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, encounterSearchParams)
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
	return collectEncounters(rows, total)
}

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var e Encounter
	err := row.Scan(
		&e.ID, &e.FHIRID, &e.Status, &e.ClassCode, &e.ClassDisplay, &e.TypeCode, &e.TypeDisplay,
		&e.PriorityCode, &e.PatientID, &e.PractitionerID, &e.ServiceProviderID, &e.LocationID,
		&e.PlannedStart, &e.PlannedEnd, &e.ActualStart, &e.ActualEnd,
		&e.ReasonText, &e.DischargeDispositionCode,
		&e.VersionID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEncounters(rows pgx.Rows, total int) ([]*Encounter, int, error) {
	var encounters []*Encounter
	for rows.Next() {
		e, err := scanEncounter(rows)
		if err != nil {
			return nil, 0, err
		}
		encounters = append(encounters, e)
	}
	return encounters, total, nil
}
