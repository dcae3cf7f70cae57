package catalog

import "context"

// Repository is the read-only template lookup contract. No write methods:
// catalog management belongs to the owning collaborator.

type Repository interface {
	Find(ctx context.Context, id string) (Template, bool, error)
	List(ctx context.Context) ([]Template, error)
}

// MemoryRepo is a simple in-memory catalog useful for tests and early
// development.
type MemoryRepo struct {
	Templates []Template
}

func (r *MemoryRepo) Find(ctx context.Context, id string) (Template, bool, error) {
	_ = ctx
	for _, t := range r.Templates {
		if t.ID == id {
			return t, true, nil
		}
	}
	return Template{}, false, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Template, error) {
	_ = ctx
	out := make([]Template, len(r.Templates))
	copy(out, r.Templates)
	return out, nil
}
