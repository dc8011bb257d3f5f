package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/checksum"
	"github.com/starford/skillpath/internal/models"
)

const fileExt = ".json"

// LocalIDBase offsets ids allocated by FS so they never collide with ids
// handed out by a relational store.
const LocalIDBase int64 = 1_000_000_000_000

// FS implements Provider with one JSON file per topic under a directory.
// It is the fallback used when the relational store is unreachable.
type FS struct {
	root string // absolute path to the course directory
	mu   sync.Mutex
	now  func() time.Time
}

var _ Provider = (*FS)(nil)

// NewFS creates a new FS provider rooted at the given directory, creating it
// if needed.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: mkdir root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, now: time.Now}, nil
}

// Root returns the absolute directory path.
func (f *FS) Root() string { return f.root }

// pathFor maps a topic to its file. Topics are hashed so any string is a
// safe file name and lookup by topic needs no scan.
func (f *FS) pathFor(topic string) string {
	return filepath.Join(f.root, checksum.Key(topic)+fileExt)
}

// Ping checks the directory is still present.
func (f *FS) Ping(_ context.Context) error {
	info, err := os.Stat(f.root)
	if err != nil {
		return fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage: root is not a directory: %s", f.root)
	}
	return nil
}

// List returns all records, most recently updated first.
func (f *FS) List(_ context.Context) ([]models.StoredCourse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readAll()
}

// Get returns the record with id.
func (f *FS) Get(_ context.Context, id int64) (models.StoredCourse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	recs, err := f.readAll()
	if err != nil {
		return models.StoredCourse{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return models.StoredCourse{}, fmt.Errorf("storage: course %d: %w", id, apperr.ErrNotFound)
}

// Upsert writes the course to its topic file, keeping id and created_at of
// an existing record.
func (f *FS) Upsert(_ context.Context, course models.Course) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now().UTC()
	path := f.pathFor(course.Topic)

	rec, err := f.readFile(path)
	switch {
	case err == nil:
		rec.Data = course.Payload()
		rec.UpdatedAt = now
	case errors.Is(err, os.ErrNotExist):
		id, err := f.nextID()
		if err != nil {
			return 0, err
		}
		rec = models.StoredCourse{
			ID:        id,
			Topic:     course.Topic,
			Data:      course.Payload(),
			CreatedAt: now,
			UpdatedAt: now,
		}
	default:
		return 0, err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("storage: encode %q: %w", course.Topic, err)
	}
	if err := f.write(path, data); err != nil {
		return 0, err
	}
	return rec.ID, nil
}

// Delete removes the record with id, if any.
func (f *FS) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	recs, err := f.readAll()
	if err != nil {
		return err
	}
	for _, r := range recs {
		if r.ID != id {
			continue
		}
		if err := os.Remove(f.pathFor(r.Topic)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("storage: delete %d: %w", id, err)
		}
	}
	return nil
}

func (f *FS) nextID() (int64, error) {
	recs, err := f.readAll()
	if err != nil {
		return 0, err
	}
	max := LocalIDBase
	for _, r := range recs {
		if r.ID > max {
			max = r.ID
		}
	}
	return max + 1, nil
}

func (f *FS) readAll() ([]models.StoredCourse, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := make([]models.StoredCourse, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		rec, err := f.readFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (f *FS) readFile(path string) (models.StoredCourse, error) {
	var rec models.StoredCourse
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("storage: decode %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

// write atomically writes content: tmp file → fsync → rename.
func (f *FS) write(abs string, content []byte) error {
	tmp, err := os.CreateTemp(f.root, ".skillpath-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
