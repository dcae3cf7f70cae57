package catalog

import (
	"context"
	"testing"
)

func TestMemoryRepoFind(t *testing.T) {
	repo := &MemoryRepo{Templates: []Template{
		{ID: "t1", Title: "Ramp operations", Description: "prop/rotor strike", DefaultControls: "marshaller present"},
		{ID: "t2", Title: "Ground search", Description: "rough terrain", DefaultControls: "buddy pairs"},
	}}

	tpl, ok, err := repo.Find(context.Background(), "t2")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if tpl.Title != "Ground search" {
		t.Fatalf("unexpected template: %+v", tpl)
	}

	if _, ok, _ := repo.Find(context.Background(), "missing"); ok {
		t.Fatalf("expected miss")
	}
}

func TestCachedRepoFallsThroughWithoutRedis(t *testing.T) {
	repo := &CachedRepo{Next: &MemoryRepo{Templates: []Template{{ID: "t1", Title: "Ramp"}}}}

	tpl, ok, err := repo.Find(context.Background(), "t1")
	if err != nil || !ok || tpl.Title != "Ramp" {
		t.Fatalf("expected fall-through hit, got ok=%v err=%v tpl=%+v", ok, err, tpl)
	}

	list, err := repo.List(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("expected 1 template, got %d err %v", len(list), err)
	}
}
