package fhir

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
)

// SearchParamType defines the FHIR search parameter type.
type SearchParamType int

const (
	SearchParamToken     SearchParamType = iota // status, code, category (exact or system|code)
	SearchParamDate                             // supports prefixes gt, lt, ge, le, eq, ...
	SearchParamString                           // case-insensitive prefix match, :exact, :contains
	SearchParamReference                        // "ResourceType/id" or bare id
	SearchParamNumber                           // supports prefixes
	SearchParamQuantity                         // number with unit, matched on the value column
	SearchParamURI                              // exact match
)

// SearchParamConfig maps a FHIR search parameter to its database columns.
type SearchParamConfig struct {
	Type      SearchParamType
	Column    string // primary column (code column for tokens)
	SysColumn string // system column for token params, e.g. "code_system"
}

// SearchQuery accumulates SQL WHERE clauses from FHIR search parameters. It
// encapsulates the search pattern shared by all domain repositories.
type SearchQuery struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

// NewSearchQuery creates a SearchQuery for the given table and column list.
func NewSearchQuery(table, cols string) *SearchQuery {
	return &SearchQuery{
		table: table,
		cols:  cols,
		idx:   1,
	}
}

// Idx returns the next available positional parameter index.
func (q *SearchQuery) Idx() int { return q.idx }

// Add appends a raw WHERE clause fragment (without leading "AND").
func (q *SearchQuery) Add(clause string, args ...interface{}) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
}

func (q *SearchQuery) append(clause string, args []interface{}, nextIdx int) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx = nextIdx
}

// AddToken adds a token clause handling system|code, |code, system|, or code.
func (q *SearchQuery) AddToken(sysCol, codeCol, value string) {
	q.append(TokenSearchClause(sysCol, codeCol, value, q.idx))
}

// AddDate adds a date clause with FHIR prefix support.
func (q *SearchQuery) AddDate(column, value string) {
	q.append(DateSearchClause(column, value, q.idx))
}

// AddString adds a string clause with modifier support.
func (q *SearchQuery) AddString(column, value string, modifier SearchModifier) {
	q.append(StringSearchClause(column, value, modifier, q.idx))
}

// AddRef adds a reference clause handling "ResourceType/id" or bare id.
func (q *SearchQuery) AddRef(column, value string) {
	q.append(ReferenceSearchClause(column, value, q.idx))
}

// AddNumber adds a number clause with FHIR prefix support.
func (q *SearchQuery) AddNumber(column, value string) {
	q.append(NumberSearchClause(column, value, q.idx))
}

// ApplyParam applies a single search parameter using its config.
func (q *SearchQuery) ApplyParam(config SearchParamConfig, value string, modifier SearchModifier) {
	switch config.Type {
	case SearchParamDate:
		q.AddDate(config.Column, value)
	case SearchParamToken:
		if config.SysColumn != "" {
			q.AddToken(config.SysColumn, config.Column, value)
		} else {
			q.Add(fmt.Sprintf("%s = $%d", config.Column, q.idx), value)
		}
	case SearchParamString:
		q.AddString(config.Column, value, modifier)
	case SearchParamReference:
		q.AddRef(config.Column, value)
	case SearchParamNumber, SearchParamQuantity:
		q.AddNumber(config.Column, value)
	case SearchParamURI:
		q.append(URISearchClause(config.Column, value, q.idx))
	}
}

// ApplyParams applies every parameter that has a config entry. Parameter names
// may carry a modifier suffix such as "name:exact".
func (q *SearchQuery) ApplyParams(params map[string]string, configs map[string]SearchParamConfig) {
	for name, value := range params {
		base, modifier := ParseParamModifier(name)
		if config, ok := configs[base]; ok {
			q.ApplyParam(config, value, modifier)
		}
	}
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (q *SearchQuery) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

// CountSQL returns the count query.
func (q *SearchQuery) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.table, q.where)
}

// CountArgs returns the arguments for the count query.
func (q *SearchQuery) CountArgs() []interface{} {
	return q.args
}

// DataSQL returns the data query with ORDER BY and LIMIT/OFFSET.
func (q *SearchQuery) DataSQL(limit, offset int) string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", q.cols, q.table, q.where)
	if q.orderBy != "" {
		sql += " ORDER BY " + q.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return sql
}

// DataArgs returns the arguments for the data query.
func (q *SearchQuery) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}

// ApplySort processes the _sort parameter using the config column mappings.
// The value is a comma-separated list of param names, each optionally prefixed
// with - for descending. Falls back to defaultOrder when nothing matches.
func (q *SearchQuery) ApplySort(sortParam, defaultOrder string, configs map[string]SearchParamConfig) {
	if sortParam == "" {
		q.orderBy = defaultOrder
		return
	}
	var parts []string
	for _, field := range strings.Split(sortParam, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		if desc {
			field = field[1:]
		}
		config, ok := configs[field]
		if !ok {
			continue
		}
		if desc {
			parts = append(parts, config.Column+" DESC")
		} else {
			parts = append(parts, config.Column+" ASC")
		}
	}
	if len(parts) > 0 {
		q.orderBy = strings.Join(parts, ", ")
	} else {
		q.orderBy = defaultOrder
	}
}

// ExtractSearchParams collects FHIR search parameters from the query string,
// excluding control parameters (_count, _offset, _sort, ...). Unknown params
// pass through; ApplyParams ignores ones without a config entry.
func ExtractSearchParams(c echo.Context) map[string]string {
	params := map[string]string{}
	for k, v := range c.QueryParams() {
		if len(v) == 0 || strings.HasPrefix(k, "_") {
			continue
		}
		params[k] = v[0]
	}
	return params
}
