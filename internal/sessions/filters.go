package sessions

import (
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cerina/foundry/pkg/query"
)

// Summary is the listing projection of a session: enough for dashboards
// without deserializing the full snapshot.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	Goal           string    `json:"goal"`
	Status         Status    `json:"status"`
	ActiveRole     Role      `json:"active_role"`
	IterationCount int       `json:"iteration_count"`
	ForceEscalated bool      `json:"force_escalated"`
	SafetyScore    *float64  `json:"safety_score,omitempty"`
	ClinicalScore  *float64  `json:"clinical_score,omitempty"`
	EmpathyScore   *float64  `json:"empathy_score,omitempty"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Filters contains optional criteria for session listing queries.
// Nil fields are ignored. Goal uses case-insensitive contains matching.
type Filters struct {
	Status         *string `json:"status,omitempty"`
	Goal           *string `json:"goal,omitempty"`
	ActiveRole     *string `json:"active_role,omitempty"`
	ForceEscalated *bool   `json:"force_escalated,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Goal", f.Goal).
		WhereEquals("ActiveRole", f.ActiveRole).
		WhereEquals("ForceEscalated", f.ForceEscalated)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if g := values.Get("goal"); g != "" {
		f.Goal = &g
	}

	if r := values.Get("active_role"); r != "" {
		f.ActiveRole = &r
	}

	if fe := values.Get("force_escalated"); fe != "" {
		if v, err := strconv.ParseBool(fe); err == nil {
			f.ForceEscalated = &v
		}
	}

	return f
}
