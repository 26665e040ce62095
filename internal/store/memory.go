package store

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/checkpoints"
	"github.com/cerina/foundry/internal/sessions"
	"github.com/cerina/foundry/pkg/pagination"
)

// memory is an in-process System used by tests and local development.
// It honors the same compare-and-swap and chain-append semantics as the
// PostgreSQL store.
type memory struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]*sessions.Session
	checkpoints map[uuid.UUID]*checkpoints.Checkpoint
	chains      map[uuid.UUID][]uuid.UUID
	pagination  pagination.Config
}

// NewMemory creates an empty in-memory store.
func NewMemory(cfg pagination.Config) System {
	return &memory{
		sessions:    make(map[uuid.UUID]*sessions.Session),
		checkpoints: make(map[uuid.UUID]*checkpoints.Checkpoint),
		chains:      make(map[uuid.UUID][]uuid.UUID),
		pagination:  cfg,
	}
}

func (m *memory) Create(ctx context.Context, s *sessions.Session) (*checkpoints.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return nil, fmt.Errorf("session %s already exists", s.ID)
	}

	root, err := checkpoints.New(s, nil)
	if err != nil {
		return nil, err
	}

	m.sessions[s.ID] = s.Clone()
	m.checkpoints[root.ID] = root
	m.chains[s.ID] = []uuid.UUID{root.ID}
	return root, nil
}

func (m *memory) Load(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	return s.Clone(), nil
}

func (m *memory) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters sessions.Filters,
) (*pagination.PageResult[sessions.Summary], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page.Normalize(m.pagination)

	matched := make([]sessions.Summary, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !matchesFilters(s, page.Search, filters) {
			continue
		}
		matched = append(matched, summarize(s))
	}

	slices.SortFunc(matched, func(a, b sessions.Summary) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	total := len(matched)
	start := min(page.Offset(), total)
	end := min(start+page.PageSize, total)

	result := pagination.NewPageResult(matched[start:end], total, page.Page, page.PageSize)
	return &result, nil
}

func (m *memory) CompareAndSwap(
	ctx context.Context,
	id uuid.UUID,
	expected int64,
	updated *sessions.Session,
) (*sessions.Session, *checkpoints.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[id]
	if !ok {
		return nil, nil, sessions.ErrNotFound
	}
	if current.Version != expected {
		return nil, nil, fmt.Errorf("%w: stored version %d", sessions.ErrStaleState, current.Version)
	}

	committed := updated.Clone()
	committed.Version = expected + 1
	committed.UpdatedAt = time.Now().UTC()

	chain := m.chains[id]
	parentID := chain[len(chain)-1]

	cp, err := checkpoints.New(committed, &parentID)
	if err != nil {
		return nil, nil, err
	}

	m.sessions[id] = committed.Clone()
	m.checkpoints[cp.ID] = cp
	m.chains[id] = append(chain, cp.ID)
	return committed, cp, nil
}

func (m *memory) Latest(ctx context.Context, sessionID uuid.UUID) (*checkpoints.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chain, ok := m.chains[sessionID]
	if !ok || len(chain) == 0 {
		return nil, sessions.ErrNotFound
	}
	return m.checkpoints[chain[len(chain)-1]], nil
}

func (m *memory) Find(ctx context.Context, checkpointID uuid.UUID) (*checkpoints.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.checkpoints[checkpointID]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	return c, nil
}

func (m *memory) History(ctx context.Context, sessionID uuid.UUID) iter.Seq2[*checkpoints.Checkpoint, error] {
	return func(yield func(*checkpoints.Checkpoint, error) bool) {
		chain, err := m.fullChain(sessionID)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, c := range chain {
			if !yield(c, nil) {
				return
			}
		}
	}
}

// fullChain walks backward from the chain head through parent links,
// crossing into ancestor sessions at fork points, then reverses to
// oldest-first order.
func (m *memory) fullChain(sessionID uuid.UUID) ([]*checkpoints.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chain, ok := m.chains[sessionID]
	if !ok || len(chain) == 0 {
		return nil, sessions.ErrNotFound
	}

	var result []*checkpoints.Checkpoint
	next := &chain[len(chain)-1]
	for next != nil {
		c, ok := m.checkpoints[*next]
		if !ok {
			return nil, fmt.Errorf("%w: missing checkpoint %s", sessions.ErrCheckpointCorrupt, *next)
		}
		result = append(result, c)
		next = c.ParentID
	}

	slices.Reverse(result)
	return result, nil
}

func (m *memory) Fork(ctx context.Context, checkpointID uuid.UUID) (*sessions.Session, *checkpoints.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.checkpoints[checkpointID]
	if !ok {
		return nil, nil, sessions.ErrNotFound
	}

	forked, err := source.Restore()
	if err != nil {
		return nil, nil, err
	}

	forked.ID = uuid.New()
	forked.UpdatedAt = time.Now().UTC()

	root, err := checkpoints.New(forked, &source.ID)
	if err != nil {
		return nil, nil, err
	}

	m.sessions[forked.ID] = forked.Clone()
	m.checkpoints[root.ID] = root
	m.chains[forked.ID] = []uuid.UUID{root.ID}
	return forked, root, nil
}

func (m *memory) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.sessions[id]
	if !ok {
		return sessions.ErrNotFound
	}

	failed := current.Clone()
	failed.Status = sessions.StatusFailed
	failed.FailureReason = reason
	failed.Version++
	failed.UpdatedAt = time.Now().UTC()

	chain := m.chains[id]
	parentID := chain[len(chain)-1]

	cp, err := checkpoints.New(failed, &parentID)
	if err != nil {
		return err
	}

	m.sessions[id] = failed
	m.checkpoints[cp.ID] = cp
	m.chains[id] = append(chain, cp.ID)
	return nil
}

func matchesFilters(s *sessions.Session, search *string, f sessions.Filters) bool {
	if search != nil && *search != "" &&
		!strings.Contains(strings.ToLower(s.Goal), strings.ToLower(*search)) {
		return false
	}
	if f.Status != nil && string(s.Status) != *f.Status {
		return false
	}
	if f.Goal != nil && !strings.Contains(strings.ToLower(s.Goal), strings.ToLower(*f.Goal)) {
		return false
	}
	if f.ActiveRole != nil && string(s.ActiveRole) != *f.ActiveRole {
		return false
	}
	if f.ForceEscalated != nil && s.ForceEscalated != *f.ForceEscalated {
		return false
	}
	return true
}

func summarize(s *sessions.Session) sessions.Summary {
	safety, clinical, empathy := scoreColumns(s)
	return sessions.Summary{
		ID:             s.ID,
		Goal:           s.Goal,
		Status:         s.Status,
		ActiveRole:     s.ActiveRole,
		IterationCount: s.IterationCount,
		ForceEscalated: s.ForceEscalated,
		SafetyScore:    safety,
		ClinicalScore:  clinical,
		EmpathyScore:   empathy,
		Version:        s.Version,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}
