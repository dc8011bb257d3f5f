// Package graphexport reshapes a course into a root → section → video entity
// tree for import into external knowledge-graph systems.
package graphexport

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/starford/skillpath/internal/models"
)

// Source identifies this exporter in the graph header.
const Source = "skillpath"

// StatusPublic is the only status the exporter emits.
const StatusPublic = "public"

// WatchURLPrefix is joined with a video id to form its canonical URL.
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// EntityType is the role of an entity in the tree.
type EntityType string

const (
	TypeRoot    EntityType = "root"
	TypeSection EntityType = "section"
	TypeVideo   EntityType = "video"
)

// Entity is one node of the exported graph.
type Entity struct {
	ID         string            `json:"id"`
	Type       EntityType        `json:"type"`
	Status     string            `json:"status"`
	Labels     []string          `json:"labels"`
	Children   []string          `json:"children"`
	Attributes map[string]string `json:"attributes"`
}

// EntityGraph is the exported tree. It is not modified after Export returns.
type EntityGraph struct {
	Root       string    `json:"root"`
	Entities   []Entity  `json:"entities"`
	ExportedAt time.Time `json:"exportedAt"`
	Source     string    `json:"source"`
}

// Count returns the number of entities in the graph.
func (g *EntityGraph) Count() int { return len(g.Entities) }

// IDFunc produces candidate identifiers.
type IDFunc func() string

// Option configures an export.
type Option func(*exporter)

// WithIDFunc replaces the uuid generator.
func WithIDFunc(f IDFunc) Option {
	return func(e *exporter) { e.newID = f }
}

// WithClock replaces time.Now for the exportedAt stamp.
func WithClock(now func() time.Time) Option {
	return func(e *exporter) { e.now = now }
}

type exporter struct {
	newID IDFunc
	now   func() time.Time
	seen  map[string]struct{}
}

// maxIDAttempts bounds retries when the generator repeats itself.
const maxIDAttempts = 16

var errIDExhausted = errors.New("graphexport: id generator keeps returning duplicates")

func (e *exporter) id() (string, error) {
	for range maxIDAttempts {
		id := e.newID()
		if _, dup := e.seen[id]; dup || id == "" {
			continue
		}
		e.seen[id] = struct{}{}
		return id, nil
	}
	return "", errIDExhausted
}

// RootDescription is the templated description of the root entity.
func RootDescription(topic string) string {
	return fmt.Sprintf("A structured learning path for mastering %s, from fundamentals to advanced techniques.", topic)
}

// Level maps a video's position among its skill's videos to a difficulty band.
func Level(index, total int) string {
	if total <= 0 {
		return models.LevelBeginner
	}
	pos := float64(index) / float64(total)
	switch {
	case pos < 0.33:
		return models.LevelBeginner
	case pos < 0.66:
		return models.LevelIntermediate
	default:
		return models.LevelAdvanced
	}
}

// Export builds the entity graph of a course. Identifiers are unique within
// the returned graph.
func Export(course *models.Course, opts ...Option) (*EntityGraph, error) {
	e := &exporter{
		newID: uuid.NewString,
		now:   time.Now,
		seen:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	rootID, err := e.id()
	if err != nil {
		return nil, err
	}

	var (
		sections   = make([]Entity, 0, len(course.Skills))
		videos     []Entity
		sectionIDs = make([]string, 0, len(course.Skills))
	)
	for _, skill := range course.Skills {
		sectionID, err := e.id()
		if err != nil {
			return nil, err
		}
		sectionIDs = append(sectionIDs, sectionID)

		children := make([]string, 0, len(skill.Videos))
		for i, v := range skill.Videos {
			videoID, err := e.id()
			if err != nil {
				return nil, err
			}
			children = append(children, videoID)
			videos = append(videos, videoEntity(videoID, course.Topic, skill, i, v))
		}

		sections = append(sections, Entity{
			ID:       sectionID,
			Type:     TypeSection,
			Status:   StatusPublic,
			Labels:   []string{course.Topic},
			Children: children,
			Attributes: map[string]string{
				"title":       skill.Name,
				"description": skill.Description,
			},
		})
	}

	root := Entity{
		ID:       rootID,
		Type:     TypeRoot,
		Status:   StatusPublic,
		Labels:   []string{},
		Children: sectionIDs,
		Attributes: map[string]string{
			"title":       course.Topic,
			"description": RootDescription(course.Topic),
		},
	}

	entities := make([]Entity, 0, 1+len(sections)+len(videos))
	entities = append(entities, root)
	entities = append(entities, sections...)
	entities = append(entities, videos...)

	return &EntityGraph{
		Root:       rootID,
		Entities:   entities,
		ExportedAt: e.now().UTC(),
		Source:     Source,
	}, nil
}

func videoEntity(id, topic string, skill models.EnrichedSkill, index int, v models.VideoResult) Entity {
	desc := v.SearchTerm
	if desc == "" {
		desc = skill.Description
	}
	return Entity{
		ID:       id,
		Type:     TypeVideo,
		Status:   StatusPublic,
		Labels:   []string{topic, skill.Name},
		Children: []string{},
		Attributes: map[string]string{
			"title":       v.Title,
			"description": desc,
			"url":         WatchURLPrefix + v.ID,
			"level":       Level(index, len(skill.Videos)),
			"thumbnail":   v.Thumbnail,
		},
	}
}

// Validate checks the tree invariants: one root, unique ids, every child
// resolves to exactly one entity, no entity has two parents, video entities
// have no children, and every entity is reachable from the root.
func (g *EntityGraph) Validate() error {
	byID := make(map[string]*Entity, len(g.Entities))
	roots := 0
	for i := range g.Entities {
		ent := &g.Entities[i]
		if _, dup := byID[ent.ID]; dup {
			return fmt.Errorf("graphexport: duplicate id %s", ent.ID)
		}
		byID[ent.ID] = ent
		if ent.Type == TypeRoot {
			roots++
		}
		if ent.Type == TypeVideo && len(ent.Children) > 0 {
			return fmt.Errorf("graphexport: video %s has children", ent.ID)
		}
	}
	if roots != 1 {
		return fmt.Errorf("graphexport: %d root entities", roots)
	}
	root, ok := byID[g.Root]
	if !ok || root.Type != TypeRoot {
		return fmt.Errorf("graphexport: root %s not found", g.Root)
	}

	parent := make(map[string]string, len(g.Entities))
	for _, ent := range g.Entities {
		for _, child := range ent.Children {
			if _, ok := byID[child]; !ok {
				return fmt.Errorf("graphexport: orphaned child id %s", child)
			}
			if child == g.Root {
				return fmt.Errorf("graphexport: root listed as child of %s", ent.ID)
			}
			if p, dup := parent[child]; dup {
				return fmt.Errorf("graphexport: %s has parents %s and %s", child, p, ent.ID)
			}
			parent[child] = ent.ID
		}
	}
	visited := 0
	queue := []string{g.Root}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		queue = append(queue, byID[id].Children...)
	}
	if visited != len(g.Entities) {
		return fmt.Errorf("graphexport: %d entities unreachable from root", len(g.Entities)-visited)
	}
	return nil
}
