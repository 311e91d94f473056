package storage

import (
	"errors"
	"strings"
	"testing"
)

func TestNewStoreMemory(t *testing.T) {
	store, err := NewStore(BackendMemory, "")
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	if _, ok := store.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", store)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close memory store: %v", err)
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore(BackendSQLite, "plans.db")
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("expected *SQLiteStore, got %T", store)
	}
}

func TestNewStoreUnsupported(t *testing.T) {
	_, err := NewStore("redis", "")
	if !errors.Is(err, ErrUnsupportedBackend) {
		t.Fatalf("expected ErrUnsupportedBackend, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "storage: ") || !strings.Contains(err.Error(), `"redis"`) {
		t.Fatalf("unexpected error text %q", err)
	}
}

func TestNewStoreNormalizesBackendName(t *testing.T) {
	for _, name := range []string{"", " Memory ", "MEMORY"} {
		store, err := NewStore(name, "")
		if err != nil {
			t.Fatalf("new store %q: %v", name, err)
		}
		if _, ok := store.(*MemoryStore); !ok {
			t.Fatalf("%q: expected *MemoryStore, got %T", name, store)
		}
	}
}
