package pagination_test

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/cerina/foundry/pkg/pagination"
	"github.com/cerina/foundry/pkg/query"
)

func cfg() pagination.Config {
	return pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
}

func TestConfigDefaults(t *testing.T) {
	c := pagination.Config{}
	if err := c.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.DefaultPageSize != 20 || c.MaxPageSize != 100 {
		t.Errorf("defaults: got %+v", c)
	}
}

func TestConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEST_PAGE_SIZE", "50")
	t.Setenv("TEST_MAX_PAGE", "200")

	c := pagination.Config{}
	err := c.Finalize(&pagination.ConfigEnv{
		DefaultPageSize: "TEST_PAGE_SIZE",
		MaxPageSize:     "TEST_MAX_PAGE",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if c.DefaultPageSize != 50 || c.MaxPageSize != 200 {
		t.Errorf("env overrides: got %+v", c)
	}
}

func TestConfigRejectsDefaultAboveMax(t *testing.T) {
	c := pagination.Config{DefaultPageSize: 200, MaxPageSize: 100}
	err := c.Finalize(nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "default_page_size cannot exceed max_page_size") {
		t.Errorf("error: %v", err)
	}
}

func TestConfigMerge(t *testing.T) {
	base := pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}
	base.Merge(&pagination.Config{DefaultPageSize: 50})

	if base.DefaultPageSize != 50 {
		t.Errorf("DefaultPageSize: got %d, want 50", base.DefaultPageSize)
	}
	if base.MaxPageSize != 100 {
		t.Errorf("MaxPageSize changed: got %d", base.MaxPageSize)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		req      pagination.PageRequest
		page     int
		pageSize int
	}{
		{name: "zero request", req: pagination.PageRequest{}, page: 1, pageSize: 20},
		{name: "negative page", req: pagination.PageRequest{Page: -1, PageSize: 10}, page: 1, pageSize: 10},
		{name: "oversized page", req: pagination.PageRequest{Page: 1, PageSize: 500}, page: 1, pageSize: 100},
		{name: "in bounds", req: pagination.PageRequest{Page: 3, PageSize: 25}, page: 3, pageSize: 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Normalize(cfg())
			if tt.req.Page != tt.page || tt.req.PageSize != tt.pageSize {
				t.Errorf("got page %d size %d, want page %d size %d",
					tt.req.Page, tt.req.PageSize, tt.page, tt.pageSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	tests := []struct {
		page, pageSize, want int
	}{
		{1, 20, 0},
		{2, 20, 20},
		{3, 10, 20},
	}
	for _, tt := range tests {
		req := pagination.PageRequest{Page: tt.page, PageSize: tt.pageSize}
		if got := req.Offset(); got != tt.want {
			t.Errorf("page %d size %d: offset %d, want %d", tt.page, tt.pageSize, got, tt.want)
		}
	}
}

func TestPageRequestFromQuery(t *testing.T) {
	values := url.Values{
		"page":      {"2"},
		"page_size": {"15"},
		"search":    {"anxiety"},
		"sort":      {"goal,-updatedAt"},
	}

	req := pagination.PageRequestFromQuery(values, cfg())

	if req.Page != 2 || req.PageSize != 15 {
		t.Errorf("page/size: got %d/%d", req.Page, req.PageSize)
	}
	if req.Search == nil || *req.Search != "anxiety" {
		t.Errorf("search: got %v", req.Search)
	}
	if len(req.Sort) != 2 ||
		req.Sort[0] != (query.SortField{Field: "goal"}) ||
		req.Sort[1] != (query.SortField{Field: "updatedAt", Descending: true}) {
		t.Errorf("sort: got %v", req.Sort)
	}
}

func TestPageRequestFromQueryEmpty(t *testing.T) {
	req := pagination.PageRequestFromQuery(url.Values{}, cfg())

	if req.Page != 1 || req.PageSize != 20 {
		t.Errorf("defaults: got page %d size %d", req.Page, req.PageSize)
	}
	if req.Search != nil {
		t.Errorf("search: got %v, want nil", req.Search)
	}
}

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		totalPages int
	}{
		{name: "exact division", total: 100, totalPages: 5},
		{name: "remainder rounds up", total: 101, totalPages: 6},
		{name: "partial single page", total: 5, totalPages: 1},
		{name: "empty", total: 0, totalPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := pagination.NewPageResult([]string{"x"}, tt.total, 1, 20)
			if result.TotalPages != tt.totalPages {
				t.Errorf("TotalPages: got %d, want %d", result.TotalPages, tt.totalPages)
			}
			if result.Total != tt.total || result.Page != 1 || result.PageSize != 20 {
				t.Errorf("metadata: got %+v", result)
			}
		})
	}
}

func TestNewPageResultNilData(t *testing.T) {
	result := pagination.NewPageResult[string](nil, 0, 1, 20)
	if result.Data == nil || len(result.Data) != 0 {
		t.Errorf("Data: got %v, want empty non-nil slice", result.Data)
	}
}

func TestSortFieldsUnmarshal(t *testing.T) {
	want := pagination.SortFields{
		{Field: "goal"},
		{Field: "updatedAt", Descending: true},
	}

	tests := []struct {
		name  string
		input string
	}{
		{name: "compact string", input: `"goal,-updatedAt"`},
		{name: "object array", input: `[{"Field":"goal","Descending":false},{"Field":"updatedAt","Descending":true}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sf pagination.SortFields
			if err := json.Unmarshal([]byte(tt.input), &sf); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(sf) != len(want) {
				t.Fatalf("length: got %d, want %d", len(sf), len(want))
			}
			for i := range want {
				if sf[i] != want[i] {
					t.Errorf("sf[%d]: got %v, want %v", i, sf[i], want[i])
				}
			}
		})
	}
}
