package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/models"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fs.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return fs
}

func course(topic string, skills ...string) models.Course {
	c := models.Course{Topic: topic, Skills: []models.EnrichedSkill{}}
	for _, s := range skills {
		c.Skills = append(c.Skills, models.EnrichedSkill{Skill: models.Skill{Name: s}})
	}
	return c
}

func TestUpsertAndList(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	id, err := s.Upsert(ctx, course("X", "a"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id != LocalIDBase+1 {
		t.Errorf("id = %d, want %d", id, LocalIDBase+1)
	}
	recs, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 || recs[0].Topic != "X" || recs[0].Data.Skills[0].Name != "a" {
		t.Fatalf("recs = %+v", recs)
	}
}

func TestUpsertReplacesByTopic(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	id1, _ := s.Upsert(ctx, course("X", "a"))
	first, _ := s.List(ctx)
	id2, err := s.Upsert(ctx, course("X", "b", "c"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id1 != id2 {
		t.Errorf("id changed on re-save: %d → %d", id1, id2)
	}
	recs, _ := s.List(ctx)
	if len(recs) != 1 {
		t.Fatalf("len = %d, want 1", len(recs))
	}
	if len(recs[0].Data.Skills) != 2 || recs[0].Data.Skills[0].Name != "b" {
		t.Errorf("data not replaced: %+v", recs[0].Data)
	}
	if !recs[0].UpdatedAt.After(first[0].UpdatedAt) {
		t.Error("updated_at not bumped")
	}
	if !recs[0].CreatedAt.Equal(first[0].CreatedAt) {
		t.Error("created_at changed")
	}
}

func TestListOrder(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	_, _ = s.Upsert(ctx, course("A"))
	_, _ = s.Upsert(ctx, course("B"))
	_, _ = s.Upsert(ctx, course("A", "again"))

	recs, _ := s.List(ctx)
	if len(recs) != 2 || recs[0].Topic != "A" || recs[1].Topic != "B" {
		t.Errorf("order = %v", []string{recs[0].Topic, recs[1].Topic})
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	id, _ := s.Upsert(ctx, course("X"))
	_, _ = s.Upsert(ctx, course("Y"))

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	recs, _ := s.List(ctx)
	if len(recs) != 1 || recs[0].Topic != "Y" {
		t.Errorf("recs = %+v", recs)
	}
	if err := s.Delete(ctx, 999); err != nil {
		t.Errorf("Delete missing id: %v", err)
	}
}

func TestIDsNotReusedWhileLive(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	a, _ := s.Upsert(ctx, course("A"))
	b, _ := s.Upsert(ctx, course("B"))
	if a == b {
		t.Fatalf("duplicate ids %d", a)
	}
}

func TestGet(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()

	id, _ := s.Upsert(ctx, course("X", "a"))
	rec, err := s.Get(ctx, id)
	if err != nil || rec.Topic != "X" || rec.Data.Skills[0].Name != "a" {
		t.Fatalf("Get = %+v, %v", rec, err)
	}
	if _, err := s.Get(ctx, id+1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get missing = %v", err)
	}
}

func TestIDsAboveLocalBase(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	for _, topic := range []string{"A", "B", "C"} {
		id, err := s.Upsert(ctx, course(topic))
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}
		if id <= LocalIDBase {
			t.Errorf("%s: id %d not above local base", topic, id)
		}
	}

	// A store-issued id never matches a local record.
	if err := s.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if recs, _ := s.List(ctx); len(recs) != 3 {
		t.Errorf("len = %d, want 3", len(recs))
	}
}

func TestPayloadStripsIdentity(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	c := course("X")
	c.ID = 42
	c.Debug = &models.GenerationDiagnostics{TotalSearches: 3}
	_, _ = s.Upsert(ctx, c)

	recs, _ := s.List(ctx)
	if recs[0].Data.ID != 0 || recs[0].Data.Debug != nil {
		t.Errorf("payload kept identity or diagnostics: %+v", recs[0].Data)
	}
}

func TestTopicWithPathCharacters(t *testing.T) {
	s := tempStore(t)
	ctx := context.Background()
	if _, err := s.Upsert(ctx, course("../../etc/passwd")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".json" {
		t.Errorf("entries = %v", entries)
	}
}

func TestPing(t *testing.T) {
	s := tempStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	_ = os.RemoveAll(s.Root())
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping should fail when directory is gone")
	}
}
