package audit

import (
	"context"
	"errors"
	"testing"
)

func TestService_RecordRequiresFormAndAction(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Record(context.Background(), Entry{Action: ActionCreate}); err == nil {
		t.Fatalf("expected error without form id")
	}
	if err := svc.Record(context.Background(), Entry{FormID: "f1"}); err == nil {
		t.Fatalf("expected error without action")
	}
}

func TestService_RecordStampsIDAndTime(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	err := svc.Record(context.Background(), Entry{
		IncidentID: "inc-1",
		FormID:     "f1",
		Action:     ActionApproveBlocked,
		ActorID:    "u1",
		Detail:     "highest residual risk H",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	entries := repo.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.ID == "" || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp stamped: %+v", e)
	}
	if e.Action != ActionApproveBlocked {
		t.Fatalf("expected approve_blocked, got %q", e.Action)
	}
}

func TestService_RecordPropagatesRepoFailure(t *testing.T) {
	repo := NewMemoryRepo()
	repo.FailAppend = errors.New("disk full")
	svc := NewService(repo)

	if err := svc.Record(context.Background(), Entry{FormID: "f1", Action: ActionApprove}); err == nil {
		t.Fatalf("expected repo failure to propagate")
	}
}

func TestService_TrailFiltersByForm(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	ctx := context.Background()
	_ = svc.Record(ctx, Entry{FormID: "f1", Action: ActionCreate})
	_ = svc.Record(ctx, Entry{FormID: "f2", Action: ActionCreate})
	_ = svc.Record(ctx, Entry{FormID: "f1", Action: ActionHazardAdd})

	trail, err := svc.Trail(ctx, "f1")
	if err != nil {
		t.Fatalf("trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected 2 entries for f1, got %d", len(trail))
	}
}
