package docstore_test

import (
	"context"
	"errors"
	"testing"

	"hunter/src/core/docstore"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store, err := docstore.NewMemoryStore()
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}

	first, err := store.Add(ctx, "France", "Paris is the capital of France.")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	second, err := store.Add(ctx, "Colors", "Red and blue are primary colors.")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if first.ID == second.ID {
		t.Error("document IDs must be unique")
	}

	got, err := store.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "France" || got.Content != first.Content {
		t.Errorf("Get() = %+v, want the stored document", got)
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("List() returned %d documents, want 2", len(docs))
	}
	if docs[0].ID > docs[1].ID {
		t.Error("List() must be ordered by ID")
	}

	// The listing is a snapshot; mutating it must not touch the store.
	docs[0].Title = "scribbled over"
	fresh, err := store.Get(ctx, docs[0].ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fresh.Title == "scribbled over" {
		t.Error("mutating the listed slice leaked into the store")
	}
}

func TestMemoryStoreRejectsEmptyContent(t *testing.T) {
	store, err := docstore.NewMemoryStore()
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	if _, err := store.Add(context.Background(), "empty", "   "); err == nil {
		t.Error("Add() should reject empty content")
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store, err := docstore.NewMemoryStore()
	if err != nil {
		t.Fatalf("NewMemoryStore() error = %v", err)
	}
	if _, err := store.Get(context.Background(), 12345); !errors.Is(err, docstore.ErrDocumentNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrDocumentNotFound", err)
	}
}
