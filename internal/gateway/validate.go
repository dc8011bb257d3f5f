package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/models"
)

var (
	errNotString = errors.New("must be a non-empty string")
	errNotArray  = errors.New("must be an array")
	errNotObject = errors.New("course must be a JSON object")
)

func nonEmptyString(value any) error {
	s, ok := value.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return errNotString
	}
	return nil
}

func isArray(value any) error {
	if _, ok := value.([]any); !ok {
		return errNotArray
	}
	return nil
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalidCourseStructure, err)
}

// ValidateCourse checks the minimal course shape: a non-empty topic and a
// skills list.
func ValidateCourse(c *models.Course) error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.Topic, validation.Required, validation.By(nonEmptyString)),
		validation.Field(&c.Skills, validation.NotNil),
	)
	if err != nil {
		return invalid(err)
	}
	return nil
}

// DecodeCourse validates externally supplied course JSON against the
// minimal shape {topic: non-empty string, skills: array} and decodes it.
func DecodeCourse(raw []byte) (*models.Course, error) {
	var shape map[string]any
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, invalid(err)
	}
	if shape == nil {
		return nil, invalid(errNotObject)
	}
	err := validation.Validate(shape, validation.Map(
		validation.Key("topic", validation.NotNil, validation.By(nonEmptyString)),
		validation.Key("skills", validation.NotNil, validation.By(isArray)),
	).AllowExtraKeys())
	if err != nil {
		return nil, invalid(err)
	}

	var c models.Course
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, invalid(err)
	}
	if err := ValidateCourse(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
