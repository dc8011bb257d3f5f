package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/storage"
)

var _ storage.Provider = (*DB)(nil)

// Upsert inserts the course or replaces the payload of the row with the same
// topic, bumping updated_at.
func (db *DB) Upsert(ctx context.Context, course models.Course) (int64, error) {
	data, err := json.Marshal(course.Payload())
	if err != nil {
		return 0, fmt.Errorf("sqlstore: encode course: %w", err)
	}
	now := time.Now().UTC()

	var id int64
	err = db.conn.QueryRowContext(ctx, `
		INSERT INTO courses (topic, data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(topic) DO UPDATE SET
			data       = excluded.data,
			updated_at = excluded.updated_at
		RETURNING id
	`, course.Topic, string(data), now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: upsert course: %w", err)
	}
	return id, nil
}

// List returns every course, most recently updated first.
func (db *DB) List(ctx context.Context) ([]models.StoredCourse, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, topic, data, created_at, updated_at
		FROM courses
		ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list courses: %w", err)
	}
	defer rows.Close()

	var out []models.StoredCourse
	for rows.Next() {
		var (
			rec  models.StoredCourse
			data string
		)
		if err := rows.Scan(&rec.ID, &rec.Topic, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scan course: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
			return nil, fmt.Errorf("sqlstore: decode course %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns the course with id.
func (db *DB) Get(ctx context.Context, id int64) (models.StoredCourse, error) {
	var (
		rec  models.StoredCourse
		data string
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, topic, data, created_at, updated_at
		FROM courses
		WHERE id = ?
	`, id).Scan(&rec.ID, &rec.Topic, &data, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, fmt.Errorf("sqlstore: course %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("sqlstore: get course: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &rec.Data); err != nil {
		return rec, fmt.Errorf("sqlstore: decode course %d: %w", id, err)
	}
	return rec, nil
}

// Delete removes the course with id. Deleting a missing id is not an error.
func (db *DB) Delete(ctx context.Context, id int64) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlstore: delete course: %w", err)
	}
	return nil
}
