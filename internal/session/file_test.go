package session

import (
	"context"
	"testing"
)

func TestFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new file storage: %v", err)
	}

	token, user, err := storage.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if token != "" || user != nil {
		t.Fatalf("expected empty state, got token=%q user=%q", token, user)
	}

	if err := storage.Save(ctx, "t1", []byte(`{"uuid":"u-1"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	token, user, err = storage.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "t1" || string(user) != `{"uuid":"u-1"}` {
		t.Fatalf("round trip mismatch: token=%q user=%q", token, user)
	}
}

func TestFileStorageDropUserKeepsToken(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new file storage: %v", err)
	}

	if err := storage.Save(ctx, "t1", []byte(`{"uuid":"u-1"}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := storage.Save(ctx, "t1", nil); err != nil {
		t.Fatalf("save with nil user: %v", err)
	}

	token, user, err := storage.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "t1" {
		t.Fatalf("expected token kept, got %q", token)
	}
	if user != nil {
		t.Fatalf("expected user dropped, got %q", user)
	}
}

func TestFileStorageClear(t *testing.T) {
	ctx := context.Background()
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("new file storage: %v", err)
	}

	if err := storage.Save(ctx, "t1", []byte(`{}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := storage.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	// Clearing an already empty store is fine.
	if err := storage.Clear(ctx); err != nil {
		t.Fatalf("clear empty: %v", err)
	}

	token, user, err := storage.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if token != "" || user != nil {
		t.Fatalf("expected empty state after clear, got token=%q user=%q", token, user)
	}
}
