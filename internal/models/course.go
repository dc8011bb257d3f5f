// Package models defines the domain types for skillpath.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Difficulty labels, easiest first.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Levels lists the difficulty labels in progression order.
var Levels = []string{LevelBeginner, LevelIntermediate, LevelAdvanced}

// SearchTerms is an ordered list of search queries, easiest first.
//
// It decodes from either a JSON array or an object keyed by difficulty label
// ({"beginner": ..., "intermediate": ..., "advanced": ...}). It always encodes
// as an array.
type SearchTerms []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *SearchTerms) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if len(data) > 0 && data[0] == '{' {
		var labeled map[string]string
		if err := json.Unmarshal(data, &labeled); err != nil {
			return fmt.Errorf("search terms: %w", err)
		}
		out := make(SearchTerms, 0, len(Levels))
		for _, lvl := range Levels {
			if term, ok := labeled[lvl]; ok && term != "" {
				out = append(out, term)
			}
		}
		*t = out
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("search terms: %w", err)
	}
	*t = list
	return nil
}

// Skill is one curriculum unit produced by the LLM.
type Skill struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	SearchTerms SearchTerms `json:"searchTerms"`
}

// Structure is the decomposition returned by the LLM before enrichment.
type Structure struct {
	Topic  string  `json:"topic"`
	Skills []Skill `json:"skills"`
}

// VideoResult is the single best video found for one search term.
type VideoResult struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	SearchTerm   string `json:"searchTerm"`
}

// EnrichedSkill is a Skill plus the videos found for its terms.
// Videos is nil when enrichment was skipped entirely.
type EnrichedSkill struct {
	Skill
	Videos []VideoResult `json:"videos"`
}

// SearchError describes one failed search in GenerationDiagnostics.
type SearchError struct {
	Term    string `json:"term"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// MaxDiagnosticErrors caps GenerationDiagnostics.Errors across a whole run.
const MaxDiagnosticErrors = 5

// GenerationDiagnostics summarises the searches of one generation call.
// It is advisory and never persisted.
type GenerationDiagnostics struct {
	TotalSearches      int           `json:"totalSearches"`
	SuccessfulSearches int           `json:"successfulSearches"`
	FailedSearches     int           `json:"failedSearches"`
	Errors             []SearchError `json:"errors"`
}

// AddError appends e unless the cap has been reached.
func (d *GenerationDiagnostics) AddError(e SearchError) {
	if len(d.Errors) >= MaxDiagnosticErrors {
		return
	}
	d.Errors = append(d.Errors, e)
}

// Merge folds o into d, keeping d's errors first.
func (d *GenerationDiagnostics) Merge(o GenerationDiagnostics) {
	d.TotalSearches += o.TotalSearches
	d.SuccessfulSearches += o.SuccessfulSearches
	d.FailedSearches += o.FailedSearches
	for _, e := range o.Errors {
		d.AddError(e)
	}
}

// Course is a generated curriculum. ID and SavedAt are set only when the
// course was loaded from a store.
type Course struct {
	ID          int64                  `json:"id,omitempty"`
	Topic       string                 `json:"topic"`
	Skills      []EnrichedSkill        `json:"skills"`
	GeneratedAt time.Time              `json:"generatedAt"`
	SavedAt     *time.Time             `json:"savedAt,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Warning     string                 `json:"warning,omitempty"`
	Debug       *GenerationDiagnostics `json:"_debug,omitempty"`
}

// Payload returns the persisted form of c: no store identity and no
// diagnostics.
func (c Course) Payload() Course {
	c.ID = 0
	c.SavedAt = nil
	c.Debug = nil
	return c
}

// VideoCount returns the number of videos across all skills.
func (c *Course) VideoCount() int {
	n := 0
	for _, s := range c.Skills {
		n += len(s.Videos)
	}
	return n
}

// StoredCourse is the persisted record shape.
type StoredCourse struct {
	ID        int64     `json:"id"`
	Topic     string    `json:"topic"`
	Data      Course    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course returns the stored payload with its store identity attached.
func (s StoredCourse) Course() Course {
	c := s.Data
	c.ID = s.ID
	updated := s.UpdatedAt
	c.SavedAt = &updated
	if c.Topic == "" {
		c.Topic = s.Topic
	}
	return c
}
