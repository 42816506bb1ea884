// Package query builds parameterized SELECT statements over a single
// projected table.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap binds field names to alias-qualified columns of one table.
type ProjectionMap struct {
	table   string
	alias   string
	columns map[string]string
	ordered []string
}

// NewProjectionMap starts a projection over schema.table under alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		table:   fmt.Sprintf("%s.%s %s", schema, table, alias),
		alias:   alias,
		columns: make(map[string]string),
	}
}

// Project maps column to field and appends it to the select list.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.columns[field] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

// Table returns the FROM clause target, "schema.table alias".
func (p *ProjectionMap) Table() string {
	return p.table
}

// Column resolves field to its qualified column. Unknown fields pass through.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.columns[field]; ok {
		return col
	}
	return field
}

// Columns returns the select list in projection order.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}
