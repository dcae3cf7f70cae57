package assessment

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory FormRepository useful for tests and early
// development. It enforces the same optimistic-version contract as the
// Postgres implementation.
//
// NOTE: not intended for production; replace with PostgresRepo.

type MemoryRepo struct {
	mu    sync.Mutex
	forms map[string]Form
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{forms: make(map[string]Form)}
}

func cloneForm(f Form) Form {
	out := f
	out.Hazards = make([]HazardRow, len(f.Hazards))
	copy(out.Hazards, f.Hazards)
	return out
}

func (r *MemoryRepo) Create(ctx context.Context, f Form) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.forms[f.ID]; exists {
		return ErrConcurrencyConflict
	}
	r.forms[f.ID] = cloneForm(f)
	return nil
}

func (r *MemoryRepo) Load(ctx context.Context, id string) (Form, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.forms[id]
	if !ok {
		return Form{}, ErrNotFound
	}
	return cloneForm(f), nil
}

func (r *MemoryRepo) Save(ctx context.Context, f Form) (Form, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.forms[f.ID]
	if !ok {
		return Form{}, ErrNotFound
	}
	if stored.Version != f.Version {
		return Form{}, ErrConcurrencyConflict
	}
	f.Version++
	r.forms[f.ID] = cloneForm(f)
	return cloneForm(f), nil
}

func (r *MemoryRepo) List(ctx context.Context, flt Filters) ([]Form, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Form
	for _, f := range r.forms {
		if flt.IncidentID != "" && f.IncidentID != flt.IncidentID {
			continue
		}
		if flt.Type != "" && f.Type != flt.Type {
			continue
		}
		if flt.Status != "" && f.Status != flt.Status {
			continue
		}
		if flt.HighestResidualRisk != "" && f.HighestResidualRisk != flt.HighestResidualRisk {
			continue
		}
		out = append(out, cloneForm(f))
	}
	return out, nil
}

func (r *MemoryRepo) ListSupplements(ctx context.Context, parentID string) ([]Form, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Form
	for _, f := range r.forms {
		if f.ParentID == parentID && f.Type.Supplemental() {
			out = append(out, cloneForm(f))
		}
	}
	return out, nil
}
