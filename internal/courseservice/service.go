// Package courseservice orchestrates course generation, persistence and
// export on behalf of the HTTP, MCP and CLI surfaces.
package courseservice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/enricher"
	"github.com/starford/skillpath/internal/gateway"
	"github.com/starford/skillpath/internal/graphexport"
	"github.com/starford/skillpath/internal/llm"
	"github.com/starford/skillpath/internal/metrics"
	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/parser"
	"github.com/starford/skillpath/internal/prompt"
)

// Course change kinds reported to the Notifier.
const (
	EventSaved    = "saved"
	EventDeleted  = "deleted"
	EventImported = "imported"
)

// Notifier receives course changes.
type Notifier interface {
	PublishCourseEvent(kind string, id int64, topic string)
}

// Service coordinates the LLM, video enrichment and the persistence gateway.
type Service struct {
	llm      llm.Completer
	enricher *enricher.Enricher // nil when video search is not configured
	gw       *gateway.Gateway
	notify   Notifier
	mode     prompt.Mode
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithEnricher enables video enrichment.
func WithEnricher(e *enricher.Enricher) Option {
	return func(s *Service) { s.enricher = e }
}

// WithNotifier sets the receiver of course change events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notify = n }
}

// WithDefaultMode sets the generation mode used when a request names none.
func WithDefaultMode(m prompt.Mode) Option {
	return func(s *Service) { s.mode = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(completer llm.Completer, gw *gateway.Gateway, opts ...Option) *Service {
	s := &Service{
		llm:    completer,
		gw:     gw,
		mode:   prompt.ModeFull,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchEnabled reports whether generated courses will carry videos.
func (s *Service) SearchEnabled() bool { return s.enricher != nil }

// Generate builds a course for topic. An empty mode uses the default.
// A malformed LLM answer is returned as *parser.MalformedResponseError with
// the raw text attached.
func (s *Service) Generate(ctx context.Context, topic string, mode prompt.Mode) (*models.Course, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apperr.ErrEmptyTopic
	}
	if mode == "" {
		mode = s.mode
	}

	start := time.Now()
	defer func() { metrics.GenerationDuration.Observe(time.Since(start).Seconds()) }()

	text, err := s.llm.Complete(ctx, prompt.Build(topic, mode))
	if err != nil {
		return nil, fmt.Errorf("courseservice: complete: %w", err)
	}
	structure, err := parser.ParseStructure(text)
	if err != nil {
		s.logger.Warn("llm returned malformed structure",
			slog.String("topic", topic),
			slog.Int("raw_len", len(text)),
		)
		return nil, err
	}
	if strings.TrimSpace(structure.Topic) == "" {
		structure.Topic = topic
	}

	if s.enricher == nil {
		c := Assemble(structure, bare(structure.Skills), nil, s.now())
		c.Message = NoSearchMessage
		return c, nil
	}

	enriched, diag, err := s.enricher.Enrich(ctx, topic, structure.Skills)
	if err != nil {
		return nil, fmt.Errorf("courseservice: enrich: %w", err)
	}
	c := Assemble(structure, enriched, &diag, s.now())

	s.logger.Info("course generated",
		slog.String("topic", c.Topic),
		slog.Int("skills", len(c.Skills)),
		slog.Int("searches", diag.TotalSearches),
		slog.Int("found", diag.SuccessfulSearches),
	)
	return c, nil
}

// ListCourses returns stored courses, most recently updated first, and
// whether the local fallback served them.
func (s *Service) ListCourses(ctx context.Context) ([]models.Course, gateway.Mode, error) {
	courses, mode, err := s.gw.List(ctx)
	if err != nil {
		return nil, mode, err
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return courses, mode, nil
}

// GetCourse returns the stored course with id.
func (s *Service) GetCourse(ctx context.Context, id int64) (*models.Course, error) {
	c, _, err := s.gw.Get(ctx, id)
	return c, err
}

// FindCourse returns the stored course for topic.
func (s *Service) FindCourse(ctx context.Context, topic string) (*models.Course, error) {
	c, _, err := s.gw.FindByTopic(ctx, strings.TrimSpace(topic))
	return c, err
}

// SaveCourse upserts course by topic.
func (s *Service) SaveCourse(ctx context.Context, course models.Course) (int64, gateway.Mode, error) {
	return s.save(ctx, course, EventSaved)
}

// ImportCourse validates raw course JSON and upserts it.
func (s *Service) ImportCourse(ctx context.Context, raw []byte) (*models.Course, int64, gateway.Mode, error) {
	course, err := gateway.DecodeCourse(raw)
	if err != nil {
		return nil, 0, s.gw.Mode(), err
	}
	id, mode, err := s.save(ctx, *course, EventImported)
	if err != nil {
		return nil, 0, mode, err
	}
	return course, id, mode, nil
}

func (s *Service) save(ctx context.Context, course models.Course, kind string) (int64, gateway.Mode, error) {
	id, mode, err := s.gw.Upsert(ctx, course)
	if err != nil {
		return 0, mode, err
	}
	s.publish(kind, id, course.Topic)
	return id, mode, nil
}

// DeleteCourse removes the stored course with id.
func (s *Service) DeleteCourse(ctx context.Context, id int64) (gateway.Mode, error) {
	mode, err := s.gw.Delete(ctx, id)
	if err != nil {
		return mode, err
	}
	s.publish(EventDeleted, id, "")
	return mode, nil
}

// ExportGraph converts course into an entity graph.
func (s *Service) ExportGraph(course *models.Course) (*graphexport.EntityGraph, error) {
	return graphexport.Export(course, graphexport.WithClock(s.now))
}

// StorageMode returns the gateway's current mode.
func (s *Service) StorageMode() gateway.Mode { return s.gw.Mode() }

// ProbeStorage re-checks the primary store.
func (s *Service) ProbeStorage(ctx context.Context) bool { return s.gw.Probe(ctx) }

func (s *Service) publish(kind string, id int64, topic string) {
	if s.notify != nil {
		s.notify.PublishCourseEvent(kind, id, topic)
	}
}
