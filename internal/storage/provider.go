// Package storage defines the course store contract and the local file fallback.
package storage

import (
	"context"

	"github.com/starford/skillpath/internal/models"
)

// Provider is implemented by every course store.
type Provider interface {
	// Ping reports whether the store can serve requests.
	Ping(ctx context.Context) error
	// List returns every stored course, most recently updated first.
	List(ctx context.Context) ([]models.StoredCourse, error)
	// Get returns the record with id, or an error matching apperr.ErrNotFound.
	Get(ctx context.Context, id int64) (models.StoredCourse, error)
	// Upsert stores course under its topic, replacing any previous payload,
	// and returns the record id.
	Upsert(ctx context.Context, course models.Course) (int64, error)
	// Delete removes the record with id. A missing id is not an error.
	Delete(ctx context.Context, id int64) error
}
