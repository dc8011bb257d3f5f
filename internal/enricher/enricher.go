// Package enricher attaches instructional videos to each skill of a curriculum.
package enricher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/skillpath/internal/metrics"
	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/youtube"
)

// QuerySuffix is appended to every search query.
const QuerySuffix = "tutorial"

// Enricher runs video searches for a list of skills.
type Enricher struct {
	search      youtube.Searcher
	concurrency int
	perTerm     int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithConcurrency bounds how many skills are searched at once.
// Values below 1 mean one skill at a time.
func WithConcurrency(n int) Option {
	return func(e *Enricher) { e.concurrency = n }
}

// WithResultsPerTerm sets how many results each search requests.
func WithResultsPerTerm(n int) Option {
	return func(e *Enricher) { e.perTerm = n }
}

// WithSearchTimeout bounds each individual search. Zero means no bound.
func WithSearchTimeout(d time.Duration) Option {
	return func(e *Enricher) { e.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Enricher) { e.logger = l }
}

// New creates an Enricher over the given search capability.
func New(search youtube.Searcher, opts ...Option) *Enricher {
	e := &Enricher{
		search:      search,
		concurrency: 1,
		perTerm:     1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	if e.perTerm < 1 {
		e.perTerm = 1
	}
	return e
}

// Query builds the search query for one term.
func Query(term, topic string) string {
	return term + " " + topic + " " + QuerySuffix
}

// Enrich searches videos for every skill and returns them in input order with
// the merged diagnostics. Skills may be searched concurrently; the terms of a
// single skill are always searched in order, and a quota failure stops the
// remaining terms of that skill.
func (e *Enricher) Enrich(ctx context.Context, topic string, skills []models.Skill) ([]models.EnrichedSkill, models.GenerationDiagnostics, error) {
	out := make([]models.EnrichedSkill, len(skills))
	diags := make([]models.GenerationDiagnostics, len(skills))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, skill := range skills {
		g.Go(func() error {
			videos, d, err := e.enrichSkill(gCtx, topic, skill)
			if err != nil {
				return err
			}
			out[i] = models.EnrichedSkill{Skill: skill, Videos: videos}
			diags[i] = d
			return nil
		})
	}

	var total models.GenerationDiagnostics
	total.Errors = []models.SearchError{}
	if err := g.Wait(); err != nil {
		return nil, total, err
	}
	for _, d := range diags {
		total.Merge(d)
	}

	e.logger.Info("enrichment finished",
		slog.String("topic", topic),
		slog.Int("skills", len(skills)),
		slog.Int("total_searches", total.TotalSearches),
		slog.Int("successful_searches", total.SuccessfulSearches),
		slog.Int("failed_searches", total.FailedSearches))
	return out, total, nil
}

func (e *Enricher) searchOne(ctx context.Context, query string) ([]models.VideoResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	return e.search.Search(ctx, query, e.perTerm)
}

// enrichSkill searches the terms of one skill sequentially. The only error it
// returns is context cancellation; search failures land in the diagnostics.
func (e *Enricher) enrichSkill(ctx context.Context, topic string, skill models.Skill) ([]models.VideoResult, models.GenerationDiagnostics, error) {
	var d models.GenerationDiagnostics
	videos := []models.VideoResult{}

	for _, term := range skill.SearchTerms {
		if err := ctx.Err(); err != nil {
			return nil, d, err
		}
		d.TotalSearches++

		results, err := e.searchOne(ctx, Query(term, topic))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, d, ctxErr
			}
			d.FailedSearches++
			if stop := e.recordFailure(&d, skill.Name, term, err); stop {
				break
			}
			continue
		}
		if len(results) == 0 {
			d.FailedSearches++
			metrics.VideoSearchesTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
			continue
		}

		v := results[0]
		v.SearchTerm = term
		videos = append(videos, v)
		d.SuccessfulSearches++
		metrics.VideoSearchesTotal.WithLabelValues(metrics.OutcomeSuccess).Inc()
	}
	return videos, d, nil
}

// recordFailure classifies a search error and reports whether the rest of
// the skill's terms must be skipped.
func (e *Enricher) recordFailure(d *models.GenerationDiagnostics, skill, term string, err error) bool {
	var se *youtube.SearchError
	if !errors.As(err, &se) {
		se = &youtube.SearchError{Kind: youtube.KindTransport, Code: youtube.CodeTransport, Message: err.Error()}
	}
	d.AddError(models.SearchError{
		Term:    term,
		Code:    se.Code,
		Message: se.Message,
		Reason:  se.Reason,
	})

	switch se.Kind {
	case youtube.KindQuota:
		metrics.VideoSearchesTotal.WithLabelValues(metrics.OutcomeQuota).Inc()
		e.logger.Warn("search quota exhausted, skipping remaining terms",
			slog.String("skill", skill),
			slog.String("term", term),
			slog.String("reason", se.Reason))
		return true
	case youtube.KindTransport:
		metrics.VideoSearchesTotal.WithLabelValues(metrics.OutcomeTransport).Inc()
	default:
		metrics.VideoSearchesTotal.WithLabelValues(metrics.OutcomeService).Inc()
	}
	e.logger.Debug("search failed",
		slog.String("skill", skill),
		slog.String("term", term),
		slog.String("error", se.Error()))
	return false
}
