package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/models"
)

// testDB connects to the database named by SKILLPATH_TEST_POSTGRES_DSN and
// skips the test when it is unset.
func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("SKILLPATH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SKILLPATH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := db.pool.Exec(ctx, `TRUNCATE courses`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func TestConnect_EmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestUpsertListDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first := models.Course{Topic: "X", Skills: []models.EnrichedSkill{{Skill: models.Skill{Name: "a"}}}}
	id, err := db.Upsert(ctx, first)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second := models.Course{Topic: "X", Skills: []models.EnrichedSkill{{Skill: models.Skill{Name: "b"}}}}
	id2, err := db.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id != id2 {
		t.Errorf("ids differ: %d vs %d", id, id2)
	}

	recs, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 || recs[0].Data.Skills[0].Name != "b" {
		t.Fatalf("recs = %+v", recs)
	}

	if err := db.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	recs, _ = db.List(ctx)
	if len(recs) != 0 {
		t.Errorf("len = %d after delete", len(recs))
	}
}

func TestGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := db.Upsert(ctx, models.Course{Topic: "X", Skills: []models.EnrichedSkill{}})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	rec, err := db.Get(ctx, id)
	if err != nil || rec.Topic != "X" {
		t.Fatalf("Get = %+v, %v", rec, err)
	}
	if _, err := db.Get(ctx, id+1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}
