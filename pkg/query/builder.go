package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField is one ORDER BY entry. Field is the logical name resolved
// through the ProjectionMap; Descending selects DESC over ASC.
type SortField struct {
	Field      string
	Descending bool
}

// predicate is a WHERE fragment whose parameters are numbered at render
// time. expr contains one "$%d" marker per argument.
type predicate struct {
	expr string
	args []any
}

// Builder assembles SELECT statements over a ProjectionMap, numbering
// placeholders as predicates accumulate.
type Builder struct {
	projection  *ProjectionMap
	predicates  []predicate
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder; defaultSort applies when no explicit
// ordering is set.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		predicates:  make([]predicate, 0),
		defaultSort: defaultSort,
	}
}

// ParseSortFields parses a comma-separated sort expression such as
// "name,-createdAt"; a leading "-" marks a field descending. Empty
// input yields nil.
func ParseSortFields(s string) []SortField {
	if s == "" {
		return nil
	}

	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		field, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: field, Descending: desc})
	}

	return fields
}

// WhereEquals appends an equality predicate; nil values are skipped.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.where(fmt.Sprintf("%s = $%%d", b.projection.Column(field)), value)
}

// WhereContains appends a case-insensitive substring predicate; nil and
// empty values are skipped.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.where(
		fmt.Sprintf("%s ILIKE $%%d", b.projection.Column(field)),
		"%"+*value+"%",
	)
}

// WhereIn appends an IN predicate; empty slices are skipped.
func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}

	markers := make([]string, len(values))
	for i := range markers {
		markers[i] = "$%d"
	}

	expr := fmt.Sprintf("%s IN (%s)", b.projection.Column(field), strings.Join(markers, ", "))
	return b.where(expr, values...)
}

// WhereNullable appends IS NULL when val is nil, equality otherwise.
func (b *Builder) WhereNullable(column string, val any) *Builder {
	col := b.projection.Column(column)
	if isNil(val) {
		return b.where(col + " IS NULL")
	}
	return b.where(fmt.Sprintf("%s = $%%d", col), val)
}

// WhereSearch appends one OR group matching the search term against
// each of the given fields; nil or empty searches are skipped.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *search + "%"
	exprs := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		exprs[i] = fmt.Sprintf("%s ILIKE $%%d", b.projection.Column(field))
		args[i] = pattern
	}

	return b.where("("+strings.Join(exprs, " OR ")+")", args...)
}

// OrderByFields replaces the default sort with an explicit ordering.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// Build renders a SELECT with the accumulated predicates and ordering.
func (b *Builder) Build() (string, []any) {
	where, args := b.whereClause()
	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s%s",
		b.projection.Columns(),
		b.projection.From(),
		where,
		b.orderClause(),
	)
	return sql, args
}

// BuildCount renders a COUNT(*) with the accumulated predicates.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.whereClause()
	return fmt.Sprintf("SELECT COUNT(*) FROM %s%s", b.projection.From(), where), args
}

// BuildPage renders a SELECT with ordering, LIMIT, and OFFSET for the
// given 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.whereClause()
	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		b.projection.Columns(),
		b.projection.From(),
		where,
		b.orderClause(),
		pageSize,
		(page-1)*pageSize,
	)
	return sql, args
}

// BuildSingle renders a single-record lookup by the given id field.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	sql := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1",
		b.projection.Columns(),
		b.projection.From(),
		b.projection.Column(idField),
	)
	return sql, []any{id}
}

// BuildSingleOrNull renders a LIMIT 1 SELECT with the accumulated
// predicates.
func (b *Builder) BuildSingleOrNull() (string, []any) {
	where, args := b.whereClause()
	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s LIMIT 1",
		b.projection.Columns(),
		b.projection.From(),
		where,
	)
	return sql, args
}

func (b *Builder) where(expr string, args ...any) *Builder {
	b.predicates = append(b.predicates, predicate{expr: expr, args: args})
	return b
}

func (b *Builder) whereClause() (string, []any) {
	if len(b.predicates) == 0 {
		return "", nil
	}

	exprs := make([]string, 0, len(b.predicates))
	args := make([]any, 0)
	n := 1

	for _, p := range b.predicates {
		expr := p.expr
		for _, arg := range p.args {
			expr = strings.Replace(expr, "$%d", fmt.Sprintf("$%d", n), 1)
			args = append(args, arg)
			n++
		}
		exprs = append(exprs, expr)
	}

	return " WHERE " + strings.Join(exprs, " AND "), args
}

func (b *Builder) orderClause() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", b.projection.Column(f.Field), dir)
	}

	return " ORDER BY " + strings.Join(parts, ", ")
}

func isNil(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}

	return false
}
