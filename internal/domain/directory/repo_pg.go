package directory

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

// -- Location --

const locationCols = `id, fhir_id, status, name, description, mode,
	type_code, type_display, phone, email,
	address_line, address_city, address_state, address_postal_code, address_country,
	form_code, form_display, position_longitude, position_latitude,
	managing_org_id, part_of_id, version_id, created_at, updated_at`

func (r *repoPG) CreateLocation(ctx context.Context, l *Location) error {
	l.ID = uuid.New()
	if l.FHIRID == "" {
		l.FHIRID = l.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO location (
			id, fhir_id, status, name, description, mode,
			type_code, type_display, phone, email,
			address_line, address_city, address_state, address_postal_code, address_country,
			form_code, form_display, position_longitude, position_latitude,
			managing_org_id, part_of_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		l.ID, l.FHIRID, l.Status, l.Name, l.Description, l.Mode,
		l.TypeCode, l.TypeDisplay, l.Phone, l.Email,
		l.AddressLine, l.AddressCity, l.AddressState, l.AddressPostalCode, l.AddressCountry,
		l.FormCode, l.FormDisplay, l.PositionLongitude, l.PositionLatitude,
		l.ManagingOrgID, l.PartOfID,
	)
	return err
}

func (r *repoPG) GetLocationByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	return scanLocation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+locationCols+` FROM location WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetLocationByFHIRID(ctx context.Context, fhirID string) (*Location, error) {
	return scanLocation(r.conn(ctx).QueryRow(ctx,
		`SELECT `+locationCols+` FROM location WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) UpdateLocation(ctx context.Context, l *Location) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE location SET
			status=$2, name=$3, description=$4, mode=$5,
			type_code=$6, type_display=$7, phone=$8, email=$9,
			address_line=$10, address_city=$11, address_state=$12, address_postal_code=$13, address_country=$14,
			form_code=$15, form_display=$16, position_longitude=$17, position_latitude=$18,
			managing_org_id=$19, part_of_id=$20,
			version_id=$21, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		l.ID, l.Status, l.Name, l.Description, l.Mode,
		l.TypeCode, l.TypeDisplay, l.Phone, l.Email,
		l.AddressLine, l.AddressCity, l.AddressState, l.AddressPostalCode, l.AddressCountry,
		l.FormCode, l.FormDisplay, l.PositionLongitude, l.PositionLatitude,
		l.ManagingOrgID, l.PartOfID,
		l.VersionID,
	)
	return err
}

func (r *repoPG) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE location SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) ListLocations(ctx context.Context, limit, offset int) ([]*Location, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM location WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+locationCols+` FROM location WHERE deleted_at IS NULL ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectLocations(rows, total)
}

var locationSearchParams = map[string]fhir.SearchParamConfig{
	"name":         {Type: fhir.SearchParamString, Column: "name"},
	"status":       {Type: fhir.SearchParamToken, Column: "status"},
	"type":         {Type: fhir.SearchParamToken, Column: "type_code"},
	"address-city": {Type: fhir.SearchParamString, Column: "address_city"},
	"organization": {Type: fhir.SearchParamReference, Column: "managing_org_id"},
	"partof":       {Type: fhir.SearchParamReference, Column: "part_of_id"},
}

func (r *repoPG) SearchLocations(ctx context.Context, params map[string]string, limit, offset int) ([]*Location, int, error) {
	qb := fhir.NewSearchQuery("location", locationCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, locationSearchParams)
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
	return collectLocations(rows, total)
}

func scanLocation(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(
		&l.ID, &l.FHIRID, &l.Status, &l.Name, &l.Description, &l.Mode,
		&l.TypeCode, &l.TypeDisplay, &l.Phone, &l.Email,
		&l.AddressLine, &l.AddressCity, &l.AddressState, &l.AddressPostalCode, &l.AddressCountry,
		&l.FormCode, &l.FormDisplay, &l.PositionLongitude, &l.PositionLatitude,
		&l.ManagingOrgID, &l.PartOfID, &l.VersionID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLocations(rows pgx.Rows, total int) ([]*Location, int, error) {
	var locations []*Location
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, 0, err
		}
		locations = append(locations, l)
	}
	return locations, total, nil
}

// -- HealthcareService --

const serviceCols = `id, fhir_id, active, name, comment,
	category_code, category_display, type_code, type_display,
	provided_by_org_id, location_id, phone, email, appointment_required,
	version_id, created_at, updated_at`

func (r *repoPG) CreateService(ctx context.Context, hs *HealthcareService) error {
	hs.ID = uuid.New()
	if hs.FHIRID == "" {
		hs.FHIRID = hs.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO healthcare_service (
			id, fhir_id, active, name, comment,
			category_code, category_display, type_code, type_display,
			provided_by_org_id, location_id, phone, email, appointment_required
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		hs.ID, hs.FHIRID, hs.Active, hs.Name, hs.Comment,
		hs.CategoryCode, hs.CategoryDisplay, hs.TypeCode, hs.TypeDisplay,
		hs.ProvidedByOrgID, hs.LocationID, hs.Phone, hs.Email, hs.AppointmentRequired,
	)
	return err
}

func (r *repoPG) GetServiceByID(ctx context.Context, id uuid.UUID) (*HealthcareService, error) {
	return scanService(r.conn(ctx).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM healthcare_service WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetServiceByFHIRID(ctx context.Context, fhirID string) (*HealthcareService, error) {
	return scanService(r.conn(ctx).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM healthcare_service WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) UpdateService(ctx context.Context, hs *HealthcareService) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE healthcare_service SET
			active=$2, name=$3, comment=$4,
			category_code=$5, category_display=$6, type_code=$7, type_display=$8,
			provided_by_org_id=$9, location_id=$10, phone=$11, email=$12, appointment_required=$13,
			version_id=$14, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		hs.ID, hs.Active, hs.Name, hs.Comment,
		hs.CategoryCode, hs.CategoryDisplay, hs.TypeCode, hs.TypeDisplay,
		hs.ProvidedByOrgID, hs.LocationID, hs.Phone, hs.Email, hs.AppointmentRequired,
		hs.VersionID,
	)
	return err
}

func (r *repoPG) DeleteService(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE healthcare_service SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) ListServices(ctx context.Context, limit, offset int) ([]*HealthcareService, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM healthcare_service WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+serviceCols+` FROM healthcare_service WHERE deleted_at IS NULL ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectServices(rows, total)
}

var serviceSearchParams = map[string]fhir.SearchParamConfig{
	"name":             {Type: fhir.SearchParamString, Column: "name"},
	"active":           {Type: fhir.SearchParamToken, Column: "active"},
	"service-category": {Type: fhir.SearchParamToken, Column: "category_code"},
	"service-type":     {Type: fhir.SearchParamToken, Column: "type_code"},
	"organization":     {Type: fhir.SearchParamReference, Column: "provided_by_org_id"},
	"location":         {Type: fhir.SearchParamReference, Column: "location_id"},
}

func (r *repoPG) SearchServices(ctx context.Context, params map[string]string, limit, offset int) ([]*HealthcareService, int, error) {
	qb := fhir.NewSearchQuery("healthcare_service", serviceCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, serviceSearchParams)
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
	return collectServices(rows, total)
}

func scanService(row pgx.Row) (*HealthcareService, error) {
	var hs HealthcareService
	err := row.Scan(
		&hs.ID, &hs.FHIRID, &hs.Active, &hs.Name, &hs.Comment,
		&hs.CategoryCode, &hs.CategoryDisplay, &hs.TypeCode, &hs.TypeDisplay,
		&hs.ProvidedByOrgID, &hs.LocationID, &hs.Phone, &hs.Email, &hs.AppointmentRequired,
		&hs.VersionID, &hs.CreatedAt, &hs.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &hs, nil
}

func collectServices(rows pgx.Rows, total int) ([]*HealthcareService, int, error) {
	var services []*HealthcareService
	for rows.Next() {
		hs, err := scanService(rows)
		if err != nil {
			return nil, 0, err
		}
		services = append(services, hs)
	}
	return services, total, nil
}

// -- Endpoint --

const endpointCols = `id, fhir_id, status, name, description,
	connection_type_code, connection_type_display, managing_org_id, contact_phone,
	period_start, period_end, payload_type_code, payload_mime_type,
	address, header, version_id, created_at, updated_at`

func (r *repoPG) CreateEndpoint(ctx context.Context, e *Endpoint) error {
	e.ID = uuid.New()
	if e.FHIRID == "" {
		e.FHIRID = e.ID.String()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO endpoint (
			id, fhir_id, status, name, description,
			connection_type_code, connection_type_display, managing_org_id, contact_phone,
			period_start, period_end, payload_type_code, payload_mime_type,
			address, header
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		e.ID, e.FHIRID, e.Status, e.Name, e.Description,
		e.ConnectionTypeCode, e.ConnectionTypeDisplay, e.ManagingOrgID, e.ContactPhone,
		e.PeriodStart, e.PeriodEnd, e.PayloadTypeCode, e.PayloadMimeType,
		e.Address, e.Header,
	)
	return err
}

func (r *repoPG) GetEndpointByID(ctx context.Context, id uuid.UUID) (*Endpoint, error) {
	return scanEndpoint(r.conn(ctx).QueryRow(ctx,
		`SELECT `+endpointCols+` FROM endpoint WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r *repoPG) GetEndpointByFHIRID(ctx context.Context, fhirID string) (*Endpoint, error) {
	return scanEndpoint(r.conn(ctx).QueryRow(ctx,
		`SELECT `+endpointCols+` FROM endpoint WHERE fhir_id = $1 AND deleted_at IS NULL`, fhirID))
}

func (r *repoPG) UpdateEndpoint(ctx context.Context, e *Endpoint) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE endpoint SET
			status=$2, name=$3, description=$4,
			connection_type_code=$5, connection_type_display=$6, managing_org_id=$7, contact_phone=$8,
			period_start=$9, period_end=$10, payload_type_code=$11, payload_mime_type=$12,
			address=$13, header=$14,
			version_id=$15, updated_at=NOW()
		WHERE id = $1 AND deleted_at IS NULL`,
		e.ID, e.Status, e.Name, e.Description,
		e.ConnectionTypeCode, e.ConnectionTypeDisplay, e.ManagingOrgID, e.ContactPhone,
		e.PeriodStart, e.PeriodEnd, e.PayloadTypeCode, e.PayloadMimeType,
		e.Address, e.Header,
		e.VersionID,
	)
	return err
}

func (r *repoPG) DeleteEndpoint(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE endpoint SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func (r *repoPG) ListEndpoints(ctx context.Context, limit, offset int) ([]*Endpoint, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM endpoint WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+endpointCols+` FROM endpoint WHERE deleted_at IS NULL ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectEndpoints(rows, total)
}

var endpointSearchParams = map[string]fhir.SearchParamConfig{
	"status":          {Type: fhir.SearchParamToken, Column: "status"},
	"name":            {Type: fhir.SearchParamString, Column: "name"},
	"connection-type": {Type: fhir.SearchParamToken, Column: "connection_type_code"},
	"payload-type":    {Type: fhir.SearchParamToken, Column: "payload_type_code"},
	"organization":    {Type: fhir.SearchParamReference, Column: "managing_org_id"},
}

func (r *repoPG) SearchEndpoints(ctx context.Context, params map[string]string, limit, offset int) ([]*Endpoint, int, error) {
	qb := fhir.NewSearchQuery("endpoint", endpointCols)
	qb.Add("deleted_at IS NULL")
	qb.ApplyParams(params, endpointSearchParams)
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
	return collectEndpoints(rows, total)
}

func scanEndpoint(row pgx.Row) (*Endpoint, error) {
	var e Endpoint
	err := row.Scan(
		&e.ID, &e.FHIRID, &e.Status, &e.Name, &e.Description,
		&e.ConnectionTypeCode, &e.ConnectionTypeDisplay, &e.ManagingOrgID, &e.ContactPhone,
		&e.PeriodStart, &e.PeriodEnd, &e.PayloadTypeCode, &e.PayloadMimeType,
		&e.Address, &e.Header, &e.VersionID, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func collectEndpoints(rows pgx.Rows, total int) ([]*Endpoint, int, error) {
	var endpoints []*Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, 0, err
		}
		endpoints = append(endpoints, e)
	}
	return endpoints, total, nil
}
