// Package prompt builds the curriculum decomposition request sent to the LLM.
package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

// Mode selects how many search terms each skill carries.
type Mode string

const (
	// ModeStructure asks for three labeled terms per skill.
	ModeStructure Mode = "structure"
	// ModeFull asks for ten ordered terms per skill, used for video enrichment.
	ModeFull Mode = "full"
)

// TermsPerSkill returns the number of search terms the mode asks for.
func (m Mode) TermsPerSkill() int {
	if m == ModeStructure {
		return 3
	}
	return 10
}

// ParseMode converts a request or config value into a Mode.
// The empty string selects ModeFull.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFull:
		return ModeFull, nil
	case ModeStructure:
		return ModeStructure, nil
	}
	return "", fmt.Errorf("prompt: unknown mode %q", s)
}

const header = `You are a curriculum designer. Break down the topic "%s" into 8-12 distinct skills a learner must master, ordered from foundational to advanced.

For each skill provide:
- "name": a short skill name (2-5 words)
- "description": one sentence describing the skill
`

const structureTerms = `- "searchTerms": an object with exactly three YouTube search phrases keyed "beginner", "intermediate" and "advanced"
`

const fullTerms = `- "searchTerms": an array of exactly 10 YouTube search phrases ordered from easiest (first) to hardest (last)
`

const footer = `
Respond with a single JSON object and nothing else, shaped like:
%s`

// Build returns the prompt for topic in the given mode.
func Build(topic string, mode Mode) string {
	topic = sanitize(topic)

	var b strings.Builder
	fmt.Fprintf(&b, header, topic)
	if mode == ModeStructure {
		b.WriteString(structureTerms)
	} else {
		b.WriteString(fullTerms)
	}
	fmt.Fprintf(&b, footer, example(topic, mode))
	return b.String()
}

// example renders the expected response shape with the topic JSON-escaped.
func example(topic string, mode Mode) string {
	var terms any
	if mode == ModeStructure {
		terms = map[string]string{
			"beginner":     "...",
			"intermediate": "...",
			"advanced":     "...",
		}
	} else {
		list := make([]string, mode.TermsPerSkill())
		for i := range list {
			list[i] = "..."
		}
		terms = list
	}
	shape := map[string]any{
		"topic": topic,
		"skills": []map[string]any{{
			"name":        "...",
			"description": "...",
			"searchTerms": terms,
		}},
	}
	out, _ := json.MarshalIndent(shape, "", "  ")
	return string(out)
}

// sanitize trims the topic and collapses control characters into spaces so
// the topic cannot break the prompt's line structure.
func sanitize(topic string) string {
	topic = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, topic)
	return strings.Join(strings.Fields(topic), " ")
}
