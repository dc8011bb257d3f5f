// Package pgstore persists courses in PostgreSQL through a pgx pool.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS courses (
	id         BIGSERIAL PRIMARY KEY,
	topic      TEXT NOT NULL UNIQUE,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_courses_updated_at ON courses (updated_at DESC);
`

// DB holds the pgx connection pool for course storage.
type DB struct {
	pool *pgxpool.Pool
}

var _ storage.Provider = (*DB)(nil)

// Connect creates a pgx pool and applies the schema.
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	if databaseURL == "" {
		return nil, errors.New("pgstore: database url is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse database url: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("pgstore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: apply schema: %w", err)
	}

	slog.Info("postgres connected", slog.String("addr", config.ConnConfig.Host))
	return &DB{pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Ping checks a pooled connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Upsert inserts the course or replaces the payload of the row with the same topic.
func (db *DB) Upsert(ctx context.Context, course models.Course) (int64, error) {
	data, err := json.Marshal(course.Payload())
	if err != nil {
		return 0, fmt.Errorf("pgstore: encode course: %w", err)
	}
	var id int64
	err = db.pool.QueryRow(ctx, `
		INSERT INTO courses (topic, data)
		VALUES ($1, $2)
		ON CONFLICT (topic) DO UPDATE SET
			data       = EXCLUDED.data,
			updated_at = now()
		RETURNING id
	`, course.Topic, data).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("pgstore: upsert course: %w", err)
	}
	return id, nil
}

// List returns every course, most recently updated first.
func (db *DB) List(ctx context.Context) ([]models.StoredCourse, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, topic, data, created_at, updated_at
		FROM courses
		ORDER BY updated_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("pgstore: list courses: %w", err)
	}
	defer rows.Close()

	var out []models.StoredCourse
	for rows.Next() {
		var (
			rec  models.StoredCourse
			data []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Topic, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgstore: scan course: %w", err)
		}
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			return nil, fmt.Errorf("pgstore: decode course %d: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Get returns the course with id.
func (db *DB) Get(ctx context.Context, id int64) (models.StoredCourse, error) {
	var (
		rec  models.StoredCourse
		data []byte
	)
	err := db.pool.QueryRow(ctx, `
		SELECT id, topic, data, created_at, updated_at
		FROM courses
		WHERE id = $1
	`, id).Scan(&rec.ID, &rec.Topic, &data, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, fmt.Errorf("pgstore: course %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return rec, fmt.Errorf("pgstore: get course: %w", err)
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return rec, fmt.Errorf("pgstore: decode course %d: %w", id, err)
	}
	return rec, nil
}

// Delete removes the course with id. Deleting a missing id is not an error.
func (db *DB) Delete(ctx context.Context, id int64) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgstore: delete course: %w", err)
	}
	return nil
}
