// Package parser extracts the structured curriculum embedded in free-form LLM output.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/models"
)

var (
	errNoObject = errors.New("no JSON object found")
	errInvalid  = errors.New("object span is not valid JSON")
)

// MalformedResponseError reports LLM output that did not contain parseable
// structured data. Raw always carries the full original text.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Cause)
}

// Unwrap exposes the cause to errors.Is/As.
func (e *MalformedResponseError) Unwrap() error { return e.Cause }

// Is matches apperr.ErrMalformedResponse.
func (e *MalformedResponseError) Is(target error) bool {
	return target == apperr.ErrMalformedResponse
}

// ExtractObject returns the outermost JSON object in text: the span from the
// first '{' to the last '}'. Prose before and after the object is ignored.
func ExtractObject(text string) ([]byte, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, &MalformedResponseError{Raw: text, Cause: errNoObject}
	}
	span := []byte(text[start : end+1])
	if !json.Valid(span) {
		return nil, &MalformedResponseError{Raw: text, Cause: errInvalid}
	}
	return span, nil
}

// ParseStructure extracts and decodes the {topic, skills} object from text.
// No schema validation is applied beyond decoding.
func ParseStructure(text string) (*models.Structure, error) {
	span, err := ExtractObject(text)
	if err != nil {
		return nil, err
	}
	var s models.Structure
	dec := json.NewDecoder(bytes.NewReader(span))
	if err := dec.Decode(&s); err != nil {
		return nil, &MalformedResponseError{Raw: text, Cause: err}
	}
	return &s, nil
}
