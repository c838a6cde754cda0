package session

import (
	"context"
	"testing"

	"github.com/finnri/finnri/internal/api"
	"github.com/finnri/finnri/internal/logging"
)

func TestHydrateEmptyStorage(t *testing.T) {
	store := NewStore(NewMemoryStorage(), logging.Discard())
	if !store.Loading() {
		t.Fatalf("expected loading before hydrate")
	}

	if err := store.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	if store.Loading() {
		t.Fatalf("expected loading cleared after hydrate")
	}
	if store.Authenticated() {
		t.Fatalf("expected no session from empty storage")
	}
}

func TestHydrateCorruptUserKeepsToken(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	if err := storage.Save(ctx, "t1", []byte("{not json")); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	store := NewStore(storage, logging.Discard())
	if err := store.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	if got := store.Token(); got != "t1" {
		t.Fatalf("expected token kept, got %q", got)
	}
	if _, ok := store.User(); ok {
		t.Fatalf("expected corrupt user discarded")
	}

	// The corrupt fragment must also be gone from storage.
	token, user, err := storage.Load(ctx)
	if err != nil {
		t.Fatalf("load storage: %v", err)
	}
	if token != "t1" || user != nil {
		t.Fatalf("expected token kept and user dropped, got token=%q user=%q", token, user)
	}
}

func TestEstablishWritesThrough(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := NewStore(storage, logging.Discard())

	user := api.User{ID: 7, UUID: "u-7", Username: "ada", Email: "ada@x.com"}
	if err := store.Establish(ctx, "t7", user); err != nil {
		t.Fatalf("establish: %v", err)
	}

	restored := NewStore(storage, logging.Discard())
	if err := restored.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if got := restored.Token(); got != "t7" {
		t.Fatalf("expected token t7, got %q", got)
	}
	got, ok := restored.User()
	if !ok {
		t.Fatalf("expected user restored")
	}
	if got.UUID != user.UUID || got.Email != user.Email {
		t.Fatalf("restored user mismatch: %+v", got)
	}
}

func TestTeardownIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	store := NewStore(storage, logging.Discard())

	if err := store.Establish(ctx, "t1", api.User{UUID: "u-1"}); err != nil {
		t.Fatalf("establish: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := store.Teardown(ctx); err != nil {
			t.Fatalf("teardown %d: %v", i, err)
		}
		if store.Authenticated() {
			t.Fatalf("expected no session after teardown %d", i)
		}
		if _, ok := store.User(); ok {
			t.Fatalf("expected no user after teardown %d", i)
		}
		token, user, err := storage.Load(ctx)
		if err != nil {
			t.Fatalf("load storage: %v", err)
		}
		if token != "" || user != nil {
			t.Fatalf("expected empty storage after teardown %d", i)
		}
	}
}

func TestGuestUUID(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), logging.Discard())

	if got := store.GuestUUID(); got != "" {
		t.Fatalf("expected empty guest uuid without session, got %q", got)
	}

	if err := store.Establish(ctx, "t1", api.User{UUID: "g-1", IsGuest: true}); err != nil {
		t.Fatalf("establish guest: %v", err)
	}
	if got := store.GuestUUID(); got != "g-1" {
		t.Fatalf("expected guest uuid g-1, got %q", got)
	}

	if err := store.Establish(ctx, "t2", api.User{UUID: "u-2", IsGuest: false}); err != nil {
		t.Fatalf("establish user: %v", err)
	}
	if got := store.GuestUUID(); got != "" {
		t.Fatalf("expected empty guest uuid for full account, got %q", got)
	}
}
