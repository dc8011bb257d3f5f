// Package testutil provides shared test helpers: temporary stores and fake collaborators.
package testutil

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/sqlstore"
	"github.com/starford/skillpath/internal/storage"
	"github.com/starford/skillpath/internal/youtube"
)

// TestDB creates a temporary SQLite course store that is automatically cleaned up.
func TestDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "skillpath-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sqlstore.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLocal creates a local fallback store in a temporary directory.
func TestLocal(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// FakeSearcher answers searches from a handler and records every query.
type FakeSearcher struct {
	mu      sync.Mutex
	queries []string
	Handle  func(query string) ([]models.VideoResult, error)
}

var _ youtube.Searcher = (*FakeSearcher)(nil)

// Search implements youtube.Searcher.
func (f *FakeSearcher) Search(_ context.Context, query string, _ int) ([]models.VideoResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.Handle == nil {
		return nil, nil
	}
	return f.Handle(query)
}

// Queries returns the queries received so far.
func (f *FakeSearcher) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// VideoFor returns a deterministic video for a query, useful as a Handle.
func VideoFor(query string) ([]models.VideoResult, error) {
	id := strings.ReplaceAll(query, " ", "_")
	return []models.VideoResult{{
		ID:           id,
		Title:        "Video " + query,
		Thumbnail:    "https://img.example/" + id + ".jpg",
		ChannelTitle: "Channel",
	}}, nil
}

// FakeCompleter returns a fixed response and records prompts.
type FakeCompleter struct {
	mu       sync.Mutex
	Response string
	Err      error
	Prompts  []string
}

// Complete implements llm.Completer.
func (f *FakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	return f.Response, f.Err
}

// Course builds a course with the given number of videos per skill.
func Course(topic string, videosPerSkill ...int) models.Course {
	c := models.Course{Topic: topic, Skills: []models.EnrichedSkill{}}
	for i, n := range videosPerSkill {
		name := "Skill " + string(rune('A'+i))
		s := models.EnrichedSkill{
			Skill: models.Skill{
				Name:        name,
				Description: "Learn " + name,
			},
			Videos: []models.VideoResult{},
		}
		for j := 0; j < n; j++ {
			term := name + " term " + string(rune('0'+j))
			s.SearchTerms = append(s.SearchTerms, term)
			s.Videos = append(s.Videos, models.VideoResult{
				ID:         strings.ReplaceAll(term, " ", "_"),
				Title:      "Video " + term,
				Thumbnail:  "https://img.example/" + term + ".jpg",
				SearchTerm: term,
			})
		}
		c.Skills = append(c.Skills, s)
	}
	return c
}
