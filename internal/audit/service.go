package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only. No Update/Delete methods are provided by design.
// ListByForm exists only to serve the audit-trail read endpoint.

type Repository interface {
	Append(ctx context.Context, e Entry) error
	ListByForm(ctx context.Context, formID string) ([]Entry, error)
}

// Service records compliance-relevant actions.
//
// IMPORTANT: callers must treat a Record error as a failure of the
// triggering operation. Approval gating without an audit trail is not a
// valid outcome.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

func (s *Service) Record(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.FormID == "" {
		return ErrInvalidEntry
	}
	if e.Action == "" {
		return ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Trail returns the recorded history of one form, oldest first.
func (s *Service) Trail(ctx context.Context, formID string) ([]Entry, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	if formID == "" {
		return nil, ErrInvalidEntry
	}
	return s.repo.ListByForm(ctx, formID)
}
