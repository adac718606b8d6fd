package sqlite_test

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/schemata/adapters/clock"
	"github.com/artpar/schemata/adapters/sqlite"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "schemata-test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	versions, err := db.Versions(ctx)
	if err != nil {
		t.Fatalf("Versions failed: %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_documents" {
		t.Errorf("Versions() = %v, want [001_documents]", versions)
	}
}

func TestDocuments_WriteAndRead(t *testing.T) {
	db := setupTestDB(t)
	fake := clock.NewFake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	store := sqlite.NewDocuments(db, fake)
	ctx := context.Background()

	if err := store.WriteFile(ctx, "people/ann.json", []byte(`{"name": "ann"}`)); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	got, err := store.ReadFile(ctx, "people/ann.json")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != `{"name": "ann"}` {
		t.Errorf("ReadFile() = %s", got)
	}

	fake.Advance(time.Hour)
	if err := store.WriteFile(ctx, "people/ann.json", []byte(`{}`)); err != nil {
		t.Fatalf("WriteFile(overwrite) failed: %v", err)
	}
	got, _ = store.ReadFile(ctx, "people/ann.json")
	if string(got) != `{}` {
		t.Errorf("ReadFile() after overwrite = %s, want {}", got)
	}

	docs, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("List() returned %d documents, want 1", len(docs))
	}
	if !docs[0].UpdatedAt.Equal(fake.Now()) {
		t.Errorf("UpdatedAt = %v, want %v", docs[0].UpdatedAt, fake.Now())
	}
	if docs[0].Size != 2 {
		t.Errorf("Size = %d, want 2", docs[0].Size)
	}
}

func TestDocuments_ReadMissing(t *testing.T) {
	store := sqlite.NewDocuments(setupTestDB(t), clock.Real{})

	_, err := store.ReadFile(context.Background(), "nope.json")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadFile() error = %v, want fs.ErrNotExist", err)
	}
}

func TestDocuments_ListPrefix(t *testing.T) {
	store := sqlite.NewDocuments(setupTestDB(t), clock.Real{})
	ctx := context.Background()

	for _, p := range []string{"people/bob.json", "people/ann.json", "cars/honda.json", "People/upper.json"} {
		if err := store.WriteFile(ctx, p, []byte("{}")); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}

	docs, err := store.List(ctx, "people/")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 2 || docs[0].Path != "people/ann.json" || docs[1].Path != "people/bob.json" {
		t.Errorf("List(people/) = %v", docs)
	}

	n, err := store.Count(ctx, "people/")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Count(people/) = %d, want 2", n)
	}

	if err := store.Delete(ctx, "people/bob.json"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n, _ := store.Count(ctx, ""); n != 3 {
		t.Errorf("Count() after delete = %d, want 3", n)
	}
}
