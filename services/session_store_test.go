package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ultraintel/counselor-api/model"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := &model.InterviewSession{
		ID:             "abc",
		SubjectID:      1,
		Phase:          model.PhaseGreeting,
		LastActivityAt: time.Now().UTC(),
	}
	session.AppendTurn(model.TurnRoleAssistant, "hello")

	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SubjectID != 1 || got.Phase != model.PhaseGreeting || len(got.History) != 1 {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestMemoryStoreMissingSession(t *testing.T) {
	store := NewMemorySessionStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

// Mutations on a fetched session must not leak into the store until Put.
func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := &model.InterviewSession{ID: "abc", Phase: model.PhaseGreeting}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, _ := store.Get(ctx, "abc")
	got.Phase = model.PhaseCompleted

	again, _ := store.Get(ctx, "abc")
	if again.Phase != model.PhaseGreeting {
		t.Fatal("mutating a fetched session leaked into the store")
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	store.Put(ctx, &model.InterviewSession{ID: "abc"})
	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "abc"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestMemoryStoreStale(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	now := time.Now().UTC()

	store.Put(ctx, &model.InterviewSession{ID: "old", LastActivityAt: now.Add(-3 * time.Hour)})
	store.Put(ctx, &model.InterviewSession{ID: "fresh", LastActivityAt: now})

	stale, err := store.Stale(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "old" {
		t.Fatalf("expected only the old session, got %+v", stale)
	}
}
