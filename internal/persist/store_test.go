package persist

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

type testBlob struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := testBlob{Name: "aria", Count: 3, Tags: []string{"fantasy", "friendly"}}
	if err := s.Put(ctx, "test.blob", in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var out testBlob
	found, err := s.Get(ctx, "test.blob", &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() found = false, want true")
	}
	if out.Name != in.Name || out.Count != in.Count || len(out.Tags) != 2 {
		t.Fatalf("Get() = %+v, want %+v", out, in)
	}
}

func TestGetMissingBlob(t *testing.T) {
	s := openTestStore(t)

	var out testBlob
	found, err := s.Get(context.Background(), "never.written", &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Fatal("Get() found = true for missing blob")
	}
}

func TestGetMalformedBlobFallsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (name, data, updated_at) VALUES (?, ?, ?)`,
		"test.broken", `{"name": [not json`, time.Now().UTC())
	if err != nil {
		t.Fatalf("seeding malformed blob: %v", err)
	}

	out := testBlob{Name: "default"}
	found, err := s.Get(ctx, "test.broken", &out)
	if err != nil {
		t.Fatalf("Get() error = %v, want fallback without error", err)
	}
	if found {
		t.Fatal("Get() found = true for malformed blob")
	}
	if out.Name != "default" {
		t.Fatalf("Get() mutated out on malformed blob: %+v", out)
	}
}

func TestPutReplacesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "test.blob", testBlob{Count: 1}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Put(ctx, "test.blob", testBlob{Count: 2}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var out testBlob
	if _, err := s.Get(ctx, "test.blob", &out); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out.Count != 2 {
		t.Fatalf("Get() count = %d, want 2", out.Count)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, "test.blob", testBlob{Count: 1}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := s.Delete(ctx, "test.blob"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	var out testBlob
	found, err := s.Get(ctx, "test.blob", &out)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Fatal("Get() found = true after Delete()")
	}

	// Deleting again is a no-op.
	if err := s.Delete(ctx, "test.blob"); err != nil {
		t.Fatalf("Delete() second call error = %v", err)
	}
}
