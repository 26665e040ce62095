package query_test

import (
	"reflect"
	"testing"

	"github.com/cerina/foundry/pkg/query"
)

func projection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "sessions", "s").
		Project("id", "id").
		Project("goal", "goal").
		Project("created_at", "createdAt")
}

func ptr(s string) *string { return &s }

func assertQuery(t *testing.T, sql string, args []any, wantSQL string, wantArgs ...any) {
	t.Helper()
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(wantArgs) == 0 {
		if len(args) != 0 {
			t.Errorf("args = %v, want empty", args)
		}
		return
	}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestProjectionMap(t *testing.T) {
	p := projection()

	t.Run("table", func(t *testing.T) {
		if got := p.Table(); got != "public.sessions s" {
			t.Errorf("Table() = %q", got)
		}
	})

	t.Run("alias", func(t *testing.T) {
		if got := p.Alias(); got != "s" {
			t.Errorf("Alias() = %q", got)
		}
	})

	t.Run("columns", func(t *testing.T) {
		if got := p.Columns(); got != "s.id, s.goal, s.created_at" {
			t.Errorf("Columns() = %q", got)
		}
	})

	t.Run("column list", func(t *testing.T) {
		want := []string{"s.id", "s.goal", "s.created_at"}
		if got := p.ColumnList(); !reflect.DeepEqual(got, want) {
			t.Errorf("ColumnList() = %v, want %v", got, want)
		}
	})

	t.Run("lookup", func(t *testing.T) {
		lookups := map[string]string{
			"goal":      "s.goal",
			"createdAt": "s.created_at",
			"unknown":   "unknown",
		}
		for viewName, want := range lookups {
			if got := p.Column(viewName); got != want {
				t.Errorf("Column(%q) = %q, want %q", viewName, got, want)
			}
		}
	})
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{name: "empty string", input: "", want: nil},
		{name: "single ascending", input: "name", want: []query.SortField{{Field: "name"}}},
		{name: "single descending", input: "-createdAt", want: []query.SortField{{Field: "createdAt", Descending: true}}},
		{
			name:  "multiple mixed",
			input: "name,-createdAt",
			want:  []query.SortField{{Field: "name"}, {Field: "createdAt", Descending: true}},
		},
		{
			name:  "with spaces",
			input: " name , -createdAt ",
			want:  []query.SortField{{Field: "name"}, {Field: "createdAt", Descending: true}},
		},
		{
			name:  "empty parts skipped",
			input: "name,,createdAt",
			want:  []query.SortField{{Field: "name"}, {Field: "createdAt"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := query.ParseSortFields(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSortFields(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuilderSelects(t *testing.T) {
	const selectAll = "SELECT s.id, s.goal, s.created_at FROM public.sessions s"

	t.Run("build", func(t *testing.T) {
		sql, args := query.NewBuilder(projection()).Build()
		assertQuery(t, sql, args, selectAll)
	})

	t.Run("count", func(t *testing.T) {
		sql, args := query.NewBuilder(projection()).BuildCount()
		assertQuery(t, sql, args, "SELECT COUNT(*) FROM public.sessions s")
	})

	t.Run("page", func(t *testing.T) {
		b := query.NewBuilder(projection(), query.SortField{Field: "createdAt", Descending: true})
		sql, args := b.BuildPage(2, 10)
		assertQuery(t, sql, args, selectAll+" ORDER BY s.created_at DESC LIMIT 10 OFFSET 10")
	})

	t.Run("single", func(t *testing.T) {
		sql, args := query.NewBuilder(projection()).BuildSingle("id", "abc-123")
		assertQuery(t, sql, args, selectAll+" WHERE s.id = $1", "abc-123")
	})

	t.Run("single or null", func(t *testing.T) {
		b := query.NewBuilder(projection())
		b.WhereEquals("goal", "sleep protocol")
		sql, args := b.BuildSingleOrNull()
		assertQuery(t, sql, args, selectAll+" WHERE s.goal = $1 LIMIT 1", "sleep protocol")
	})

	t.Run("count with conditions", func(t *testing.T) {
		b := query.NewBuilder(projection())
		b.WhereEquals("goal", "sleep protocol")
		sql, args := b.BuildCount()
		assertQuery(t, sql, args, "SELECT COUNT(*) FROM public.sessions s WHERE s.goal = $1", "sleep protocol")
	})

	t.Run("page with conditions", func(t *testing.T) {
		b := query.NewBuilder(projection(), query.SortField{Field: "id"})
		b.WhereContains("goal", ptr("protocol"))
		sql, args := b.BuildPage(3, 25)
		assertQuery(t, sql, args,
			selectAll+" WHERE s.goal ILIKE $1 ORDER BY s.id ASC LIMIT 25 OFFSET 50",
			"%protocol%")
	})
}

func TestBuilderPredicates(t *testing.T) {
	const selectAll = "SELECT s.id, s.goal, s.created_at FROM public.sessions s"

	tests := []struct {
		name     string
		apply    func(b *query.Builder)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "equals",
			apply:    func(b *query.Builder) { b.WhereEquals("goal", "sleep protocol") },
			wantSQL:  selectAll + " WHERE s.goal = $1",
			wantArgs: []any{"sleep protocol"},
		},
		{
			name:    "equals nil skipped",
			apply:   func(b *query.Builder) { b.WhereEquals("goal", nil) },
			wantSQL: selectAll,
		},
		{
			name:     "contains",
			apply:    func(b *query.Builder) { b.WhereContains("goal", ptr("test")) },
			wantSQL:  selectAll + " WHERE s.goal ILIKE $1",
			wantArgs: []any{"%test%"},
		},
		{
			name:    "contains nil skipped",
			apply:   func(b *query.Builder) { b.WhereContains("goal", nil) },
			wantSQL: selectAll,
		},
		{
			name:    "contains empty skipped",
			apply:   func(b *query.Builder) { b.WhereContains("goal", ptr("")) },
			wantSQL: selectAll,
		},
		{
			name:     "in",
			apply:    func(b *query.Builder) { b.WhereIn("id", []any{"a", "b", "c"}) },
			wantSQL:  selectAll + " WHERE s.id IN ($1, $2, $3)",
			wantArgs: []any{"a", "b", "c"},
		},
		{
			name:    "in empty skipped",
			apply:   func(b *query.Builder) { b.WhereIn("id", []any{}) },
			wantSQL: selectAll,
		},
		{
			name:    "nullable nil is IS NULL",
			apply:   func(b *query.Builder) { b.WhereNullable("goal", nil) },
			wantSQL: selectAll + " WHERE s.goal IS NULL",
		},
		{
			name:     "nullable value is equals",
			apply:    func(b *query.Builder) { b.WhereNullable("goal", "sleep protocol") },
			wantSQL:  selectAll + " WHERE s.goal = $1",
			wantArgs: []any{"sleep protocol"},
		},
		{
			name:     "search spans fields",
			apply:    func(b *query.Builder) { b.WhereSearch(ptr("test"), "goal", "id") },
			wantSQL:  selectAll + " WHERE (s.goal ILIKE $1 OR s.id ILIKE $2)",
			wantArgs: []any{"%test%", "%test%"},
		},
		{
			name:    "search nil skipped",
			apply:   func(b *query.Builder) { b.WhereSearch(nil, "goal") },
			wantSQL: selectAll,
		},
		{
			name: "conditions join with AND",
			apply: func(b *query.Builder) {
				b.WhereEquals("goal", "sleep protocol")
				b.WhereContains("id", ptr("abc"))
			},
			wantSQL:  selectAll + " WHERE s.goal = $1 AND s.id ILIKE $2",
			wantArgs: []any{"sleep protocol", "%abc%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := query.NewBuilder(projection())
			tt.apply(b)
			sql, args := b.Build()
			assertQuery(t, sql, args, tt.wantSQL, tt.wantArgs...)
		})
	}
}

func TestBuilderOrdering(t *testing.T) {
	const selectAll = "SELECT s.id, s.goal, s.created_at FROM public.sessions s"

	t.Run("default sort", func(t *testing.T) {
		b := query.NewBuilder(projection(), query.SortField{Field: "createdAt", Descending: true})
		sql, _ := b.Build()
		if want := selectAll + " ORDER BY s.created_at DESC"; sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
	})

	t.Run("explicit sort replaces default", func(t *testing.T) {
		b := query.NewBuilder(projection(), query.SortField{Field: "id"})
		b.OrderByFields([]query.SortField{
			{Field: "createdAt", Descending: true},
			{Field: "goal"},
		})
		sql, _ := b.Build()
		if want := selectAll + " ORDER BY s.created_at DESC, s.goal ASC"; sql != want {
			t.Errorf("sql = %q, want %q", sql, want)
		}
	})
}
