package courseservice

import (
	"time"

	"github.com/starford/skillpath/internal/models"
)

// Messages attached to generated courses.
const (
	NoSearchMessage = "Video search is not configured; showing the course structure without videos."
	NoVideosWarning = "No videos could be found for this course. Video search may be unavailable or over quota."
)

// Assemble merges the parsed structure and enriched skills into a Course.
// diag may be nil when enrichment was skipped.
func Assemble(structure *models.Structure, enriched []models.EnrichedSkill, diag *models.GenerationDiagnostics, now time.Time) *models.Course {
	c := &models.Course{
		Topic:       structure.Topic,
		Skills:      enriched,
		GeneratedAt: now.UTC(),
		Debug:       diag,
	}
	if diag != nil && diag.TotalSearches > 0 && diag.SuccessfulSearches == 0 {
		c.Warning = NoVideosWarning
	}
	return c
}

// bare wraps skills without running any searches. Videos stay nil.
func bare(skills []models.Skill) []models.EnrichedSkill {
	out := make([]models.EnrichedSkill, len(skills))
	for i, s := range skills {
		out[i] = models.EnrichedSkill{Skill: s}
	}
	return out
}
