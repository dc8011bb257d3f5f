package api

import (
	"encoding/json"
	"time"

	"github.com/starford/skillpath/internal/gateway"
	"github.com/starford/skillpath/internal/models"
)

// GenerateRequest is the request body for generating a course.
type GenerateRequest struct {
	Topic string `json:"topic" example:"Kubernetes" validate:"required"`
	Mode  string `json:"mode,omitempty" example:"full" enums:"full,structure"`
}

// SaveCourseRequest wraps a course to persist. A bare course object is also
// accepted.
type SaveCourseRequest struct {
	Course json.RawMessage `json:"course" swaggertype:"object"`
}

// Course is the course payload (aliased from the domain layer).
type Course = models.Course

// CourseListResponse lists stored courses.
type CourseListResponse struct {
	Courses         []Course `json:"courses" validate:"required"`
	UseLocalStorage bool     `json:"useLocalStorage" example:"false"`
}

// SaveCourseResponse is returned after a save or import.
type SaveCourseResponse struct {
	Success         bool   `json:"success" example:"true"`
	ID              int64  `json:"id" example:"12"`
	Topic           string `json:"topic,omitempty" example:"Kubernetes"`
	UseLocalStorage bool   `json:"useLocalStorage" example:"false"`
}

// DeleteCourseResponse is returned after a delete.
type DeleteCourseResponse struct {
	Success         bool `json:"success" example:"true"`
	UseLocalStorage bool `json:"useLocalStorage" example:"false"`
}

// HealthResponse reports service and storage status.
type HealthResponse struct {
	Status          string       `json:"status" example:"ok"`
	Timestamp       time.Time    `json:"timestamp"`
	Storage         gateway.Mode `json:"storage" example:"store"`
	UseLocalStorage bool         `json:"useLocalStorage" example:"false"`
	VideoSearch     bool         `json:"videoSearch" example:"true"`
}

// Export formats.
const (
	FormatCourse = "course"
	FormatGraph  = "graph"
)
