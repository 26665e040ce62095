// Package query builds parameterized SQL from view-level field names.
// A ProjectionMap translates those names into qualified columns and the
// Builder assembles SELECT, COUNT, and filter clauses around them.
package query

import (
	"fmt"
	"strings"
)

// ProjectionMap resolves view property names to alias-qualified column
// references for one table. Projection order is preserved so generated
// column lists stay stable.
type ProjectionMap struct {
	schema  string
	table   string
	alias   string
	byView  map[string]string
	ordered []string
}

func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema: schema,
		table:  table,
		alias:  alias,
		byView: make(map[string]string),
	}
}

// Project registers a column under the given view property name.
// It returns the map for chaining.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byView[viewName] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

func (p *ProjectionMap) Alias() string {
	return p.alias
}

// Table returns the aliased table reference (schema.table alias).
func (p *ProjectionMap) Table() string {
	return fmt.Sprintf("%s.%s %s", p.schema, p.table, p.alias)
}

// From returns the FROM clause source for this projection.
func (p *ProjectionMap) From() string {
	return p.Table()
}

// Column resolves a view property name to its qualified column.
// Unmapped names pass through unchanged.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.byView[viewName]; ok {
		return col
	}
	return viewName
}

// Columns returns the projected columns as a comma-separated list.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}

// ColumnList returns the projected columns in registration order.
func (p *ProjectionMap) ColumnList() []string {
	return p.ordered
}
