// Package gateway routes course persistence to the relational store or, when
// that store is unreachable, to the local fallback store.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/metrics"
	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/storage"
)

// Mode names the store currently serving requests.
type Mode string

const (
	ModeStore Mode = "store"
	ModeLocal Mode = "local"
)

// UseLocalStorage reports whether the fallback store is active.
func (m Mode) UseLocalStorage() bool { return m == ModeLocal }

// Gateway owns the storage mode. Every operation returns the mode it ran in.
type Gateway struct {
	primary storage.Provider // nil when no relational store is configured
	local   storage.Provider
	logger  *slog.Logger

	mu           sync.Mutex
	mode         Mode
	probed       bool
	onModeChange func(Mode)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithModeChange registers a callback invoked once per mode transition.
func WithModeChange(f func(Mode)) Option {
	return func(g *Gateway) { g.onModeChange = f }
}

// New creates a Gateway. primary may be nil, in which case the gateway runs
// in local mode permanently.
func New(primary, local storage.Provider, opts ...Option) *Gateway {
	g := &Gateway{
		primary: primary,
		local:   local,
		logger:  slog.Default(),
		mode:    ModeStore,
	}
	if primary == nil {
		g.mode = ModeLocal
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Mode returns the current mode without probing.
func (g *Gateway) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Probe checks the primary store and updates the mode. It never fails;
// any error counts as unavailable.
func (g *Gateway) Probe(ctx context.Context) bool {
	ok := g.primary != nil && g.primary.Ping(ctx) == nil
	if ok {
		g.setMode(ModeStore)
	} else {
		g.setMode(ModeLocal)
	}
	return ok
}

func (g *Gateway) setMode(m Mode) {
	g.mu.Lock()
	changed := !g.probed || g.mode != m
	first := !g.probed
	g.probed = true
	g.mode = m
	cb := g.onModeChange
	g.mu.Unlock()

	if !changed {
		return
	}
	if m == ModeLocal {
		metrics.StorageLocalMode.Set(1)
	} else {
		metrics.StorageLocalMode.Set(0)
	}
	// The initial store mode is the expected state and not worth reporting.
	if first && m == ModeStore {
		return
	}
	if m == ModeLocal {
		g.logger.Warn("course store unavailable, using local fallback")
	} else {
		g.logger.Info("course store available again")
	}
	if cb != nil {
		cb(m)
	}
}

// current returns the mode, probing once on first use.
func (g *Gateway) current(ctx context.Context) Mode {
	g.mu.Lock()
	probed := g.probed
	g.mu.Unlock()
	if !probed {
		g.Probe(ctx)
	}
	return g.Mode()
}

// run executes op against the active store. A store failure followed by a
// failed probe degrades to the fallback and retries there. ErrNotFound is an
// answer, not a failure.
func run[T any](ctx context.Context, g *Gateway, op func(storage.Provider) (T, error)) (T, Mode, error) {
	if g.current(ctx) == ModeStore {
		v, err := op(g.primary)
		if err == nil || errors.Is(err, apperr.ErrNotFound) {
			return v, ModeStore, err
		}
		if g.Probe(ctx) {
			return v, ModeStore, err
		}
		g.logger.Warn("course store call failed", slog.String("error", err.Error()))
	}
	v, err := op(g.local)
	if errors.Is(err, apperr.ErrNotFound) {
		return v, ModeLocal, err
	}
	if err != nil {
		return v, ModeLocal, fmt.Errorf("%w: local: %w", apperr.ErrStoreUnavailable, err)
	}
	return v, ModeLocal, nil
}

// List returns stored courses, most recently updated first, with their store
// identity attached.
func (g *Gateway) List(ctx context.Context) ([]models.Course, Mode, error) {
	recs, mode, err := run(ctx, g, func(p storage.Provider) ([]models.StoredCourse, error) {
		return p.List(ctx)
	})
	if err != nil {
		return nil, mode, fmt.Errorf("gateway: list: %w", err)
	}
	out := make([]models.Course, len(recs))
	for i, r := range recs {
		out[i] = r.Course()
	}
	return out, mode, nil
}

// Get returns the stored course with id.
func (g *Gateway) Get(ctx context.Context, id int64) (*models.Course, Mode, error) {
	rec, mode, err := run(ctx, g, func(p storage.Provider) (models.StoredCourse, error) {
		return p.Get(ctx, id)
	})
	if err != nil {
		return nil, mode, fmt.Errorf("gateway: get: %w", err)
	}
	c := rec.Course()
	return &c, mode, nil
}

// FindByTopic returns the stored course with topic.
func (g *Gateway) FindByTopic(ctx context.Context, topic string) (*models.Course, Mode, error) {
	courses, mode, err := g.List(ctx)
	if err != nil {
		return nil, mode, err
	}
	for i := range courses {
		if courses[i].Topic == topic {
			return &courses[i], mode, nil
		}
	}
	return nil, mode, fmt.Errorf("gateway: course %q: %w", topic, apperr.ErrNotFound)
}

// Upsert stores the course by topic and returns its id.
func (g *Gateway) Upsert(ctx context.Context, course models.Course) (int64, Mode, error) {
	if err := ValidateCourse(&course); err != nil {
		return 0, g.Mode(), err
	}
	id, mode, err := run(ctx, g, func(p storage.Provider) (int64, error) {
		return p.Upsert(ctx, course)
	})
	if err != nil {
		return 0, mode, fmt.Errorf("gateway: upsert: %w", err)
	}
	return id, mode, nil
}

// Delete removes the course with id. A missing id is not an error.
func (g *Gateway) Delete(ctx context.Context, id int64) (Mode, error) {
	_, mode, err := run(ctx, g, func(p storage.Provider) (struct{}, error) {
		return struct{}{}, p.Delete(ctx, id)
	})
	if err != nil {
		return mode, fmt.Errorf("gateway: delete: %w", err)
	}
	return mode, nil
}
