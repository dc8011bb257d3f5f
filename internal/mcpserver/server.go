// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes skillpath course tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/courseservice"
	"github.com/starford/skillpath/internal/gateway"
	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/parser"
	"github.com/starford/skillpath/internal/prompt"
)

// Server wraps the MCP server with course tools.
type Server struct {
	mcp *server.MCPServer
	svc *courseservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *courseservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Skillpath",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("generate_course",
		mcp.WithDescription("Decompose a topic into 8-12 skills and attach one YouTube tutorial per search term. "+
			"The course is returned but not saved; call save_course to keep it."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Topic to learn, e.g. \"Kubernetes\"")),
		mcp.WithString("mode", mcp.Description("\"full\" (10 search terms per skill, default) or \"structure\" (3 labeled terms)")),
	), s.generateCourse)

	s.mcp.AddTool(mcp.NewTool("list_courses",
		mcp.WithDescription("List saved courses, most recently updated first, as id, topic and counts."),
	), s.listCourses)

	s.mcp.AddTool(mcp.NewTool("get_course",
		mcp.WithDescription("Return the full JSON of a saved course."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Course id from list_courses")),
	), s.getCourse)

	s.mcp.AddTool(mcp.NewTool("save_course",
		mcp.WithDescription("Save a course. A course with the same topic is replaced. "+
			"Read the format first via get_course_contract or the "+CourseFormatURI+" resource."),
		mcp.WithString("course", mcp.Required(), mcp.Description("Course JSON object as a string")),
	), s.saveCourse)

	s.mcp.AddTool(mcp.NewTool("delete_course",
		mcp.WithDescription("Delete a saved course by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Course id from list_courses")),
	), s.deleteCourse)

	s.mcp.AddTool(mcp.NewTool("export_course_graph",
		mcp.WithDescription("Export a saved course as a root/section/video entity graph."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Course id from list_courses")),
	), s.exportCourseGraph)

	s.mcp.AddTool(mcp.NewTool("import_course_url",
		mcp.WithDescription("Download a course JSON file from an http(s) or data: URL and save it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:application/json;base64,... URI")),
	), s.importCourseURL)

	s.mcp.AddTool(mcp.NewTool("get_course_contract",
		mcp.WithDescription("Returns the course JSON format accepted by save_course."),
	), s.getCourseContract)

	s.mcp.AddResource(
		mcp.NewResource(CourseFormatURI, "Course Format",
			mcp.WithResourceDescription("JSON format of a skillpath course."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readCourseFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) generateCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var mode prompt.Mode
	if raw := req.GetString("mode", ""); raw != "" {
		if mode, err = prompt.ParseMode(raw); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	course, err := s.svc.Generate(ctx, topic, mode)
	if err != nil {
		var malformed *parser.MalformedResponseError
		if errors.As(err, &malformed) {
			return mcp.NewToolResultError(fmt.Sprintf("LLM response could not be parsed:\n%s", malformed.Raw)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(course), nil
}

type courseSummary struct {
	ID     int64  `json:"id"`
	Topic  string `json:"topic"`
	Skills int    `json:"skills"`
	Videos int    `json:"videos"`
}

func (s *Server) listCourses(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	courses, mode, err := s.svc.ListCourses(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items := make([]courseSummary, len(courses))
	for i := range courses {
		items[i] = courseSummary{
			ID:     courses[i].ID,
			Topic:  courses[i].Topic,
			Skills: len(courses[i].Skills),
			Videos: courses[i].VideoCount(),
		}
	}
	return jsonResult(map[string]any{
		"courses":         items,
		"useLocalStorage": mode.UseLocalStorage(),
	}), nil
}

func (s *Server) storedCourse(ctx context.Context, req mcp.CallToolRequest) (*models.Course, *mcp.CallToolResult) {
	id, err := req.RequireInt("id")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	course, err := s.svc.GetCourse(ctx, int64(id))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, mcp.NewToolResultError(fmt.Sprintf("course %d not found", id))
		}
		return nil, mcp.NewToolResultError(err.Error())
	}
	return course, nil
}

func (s *Server) getCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	course, fail := s.storedCourse(ctx, req)
	if fail != nil {
		return fail, nil
	}
	return jsonResult(course), nil
}

func (s *Server) saveCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("course")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	course, err := gateway.DecodeCourse([]byte(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, mode, err := s.svc.SaveCourse(ctx, *course)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(savedText(id, course.Topic, mode)), nil
}

func savedText(id int64, topic string, mode gateway.Mode) string {
	return fmt.Sprintf("saved: %q (id %d, storage %s)", topic, id, mode)
}

func (s *Server) deleteCourse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.DeleteCourse(ctx, int64(id)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", id)), nil
}

func (s *Server) exportCourseGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	course, fail := s.storedCourse(ctx, req)
	if fail != nil {
		return fail, nil
	}
	graph, err := s.svc.ExportGraph(course)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(graph), nil
}

func (s *Server) getCourseContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(CourseFormatContract), nil
}

func (s *Server) readCourseFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      CourseFormatURI,
			MIMEType: "text/markdown",
			Text:     CourseFormatContract,
		},
	}, nil
}
