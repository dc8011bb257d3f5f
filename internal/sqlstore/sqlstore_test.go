package sqlstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "skillpath-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func course(topic string, skills ...string) models.Course {
	c := models.Course{Topic: topic, Skills: []models.EnrichedSkill{}, GeneratedAt: time.Now().UTC()}
	for _, s := range skills {
		c.Skills = append(c.Skills, models.EnrichedSkill{Skill: models.Skill{Name: s, SearchTerms: models.SearchTerms{s + " basics"}}})
	}
	return c
}

func TestOpenAndPing(t *testing.T) {
	db := testDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestUpsertRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, err := db.Upsert(ctx, course("X", "a"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	recs, err := db.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len = %d, want 1", len(recs))
	}
	r := recs[0]
	if r.ID != id || r.Topic != "X" || r.Data.Topic != "X" {
		t.Errorf("rec = %+v", r)
	}
	if len(r.Data.Skills) != 1 || r.Data.Skills[0].SearchTerms[0] != "a basics" {
		t.Errorf("skills = %+v", r.Data.Skills)
	}
	if r.CreatedAt.IsZero() || r.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestUpsertReplaces(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id1, _ := db.Upsert(ctx, course("X", "a"))
	id2, err := db.Upsert(ctx, course("X", "b", "c"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("ids differ: %d vs %d", id1, id2)
	}
	recs, _ := db.List(ctx)
	if len(recs) != 1 {
		t.Fatalf("len = %d, want 1 (no duplicate)", len(recs))
	}
	if len(recs[0].Data.Skills) != 2 || recs[0].Data.Skills[0].Name != "b" {
		t.Errorf("payload not replaced: %+v", recs[0].Data.Skills)
	}
	if recs[0].UpdatedAt.Before(recs[0].CreatedAt) {
		t.Error("updated_at before created_at")
	}
}

func TestListMostRecentFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, _ = db.Upsert(ctx, course("A"))
	time.Sleep(5 * time.Millisecond)
	_, _ = db.Upsert(ctx, course("B"))
	time.Sleep(5 * time.Millisecond)
	_, _ = db.Upsert(ctx, course("A", "again"))

	recs, _ := db.List(ctx)
	if len(recs) != 2 || recs[0].Topic != "A" || recs[1].Topic != "B" {
		t.Errorf("order wrong: %+v", recs)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, _ := db.Upsert(ctx, course("X"))
	if err := db.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	recs, _ := db.List(ctx)
	if len(recs) != 0 {
		t.Errorf("len = %d after delete", len(recs))
	}
	if err := db.Delete(ctx, id); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestGet(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	id, _ := db.Upsert(ctx, course("X", "a"))
	rec, err := db.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.ID != id || rec.Topic != "X" || rec.Data.Skills[0].Name != "a" {
		t.Errorf("rec = %+v", rec)
	}
	if _, err := db.Get(ctx, id+1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}

func TestDiagnosticsNotPersisted(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	c := course("X")
	c.Debug = &models.GenerationDiagnostics{TotalSearches: 10}
	_, _ = db.Upsert(ctx, c)

	recs, _ := db.List(ctx)
	if recs[0].Data.Debug != nil {
		t.Error("diagnostics were persisted")
	}
}
