package courseservice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/skillpath/internal/apperr"
	"github.com/starford/skillpath/internal/enricher"
	"github.com/starford/skillpath/internal/gateway"
	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/parser"
	"github.com/starford/skillpath/internal/prompt"
	"github.com/starford/skillpath/internal/testutil"
	"github.com/starford/skillpath/internal/youtube"
)

const llmAnswer = `Here is your curriculum:
{"topic":"Go","skills":[
 {"name":"Basics","description":"Syntax.","searchTerms":["go syntax","go types"]},
 {"name":"Concurrency","description":"Goroutines.","searchTerms":["goroutines"]}
]}
Enjoy!`

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) PublishCourseEvent(kind string, _ int64, topic string) {
	r.mu.Lock()
	r.events = append(r.events, kind+":"+topic)
	r.mu.Unlock()
}

var fixed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, completer *testutil.FakeCompleter, search youtube.Searcher, opts ...Option) *Service {
	t.Helper()
	_, local := testutil.TestLocal(t)
	gw := gateway.New(testutil.TestDB(t), local)
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	if search != nil {
		opts = append(opts, WithEnricher(enricher.New(search, enricher.WithConcurrency(2))))
	}
	return New(completer, gw, opts...)
}

func TestGenerate(t *testing.T) {
	fc := &testutil.FakeCompleter{Response: llmAnswer}
	fs := &testutil.FakeSearcher{Handle: testutil.VideoFor}
	svc := newService(t, fc, fs)

	c, err := svc.Generate(context.Background(), "  Go  ", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Topic != "Go" || len(c.Skills) != 2 {
		t.Fatalf("course = %+v", c)
	}
	if !c.GeneratedAt.Equal(fixed) {
		t.Errorf("generatedAt = %v", c.GeneratedAt)
	}
	if len(c.Skills[0].Videos) != 2 || c.Skills[0].Videos[0].SearchTerm != "go syntax" {
		t.Errorf("videos = %+v", c.Skills[0].Videos)
	}
	if c.Debug == nil || c.Debug.TotalSearches != 3 || c.Debug.SuccessfulSearches != 3 {
		t.Errorf("diagnostics = %+v", c.Debug)
	}
	if c.Warning != "" || c.Message != "" {
		t.Errorf("unexpected warning/message: %q %q", c.Warning, c.Message)
	}
	if len(fc.Prompts) != 1 || !strings.Contains(fc.Prompts[0], "Go") {
		t.Errorf("prompts = %v", fc.Prompts)
	}
	if !strings.Contains(fc.Prompts[0], "10") {
		t.Error("default mode should request the full term list")
	}
}

func TestGenerateStructureMode(t *testing.T) {
	fc := &testutil.FakeCompleter{Response: llmAnswer}
	svc := newService(t, fc, nil)
	if _, err := svc.Generate(context.Background(), "Go", prompt.ModeStructure); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fc.Prompts[0] != prompt.Build("Go", prompt.ModeStructure) {
		t.Error("structure mode prompt not used")
	}
}

func TestGenerateEmptyTopic(t *testing.T) {
	fc := &testutil.FakeCompleter{Response: llmAnswer}
	svc := newService(t, fc, nil)
	_, err := svc.Generate(context.Background(), "   ", "")
	if !errors.Is(err, apperr.ErrEmptyTopic) {
		t.Fatalf("err = %v", err)
	}
	if len(fc.Prompts) != 0 {
		t.Error("LLM must not be called for an empty topic")
	}
}

func TestGenerateMalformed(t *testing.T) {
	fc := &testutil.FakeCompleter{Response: "I cannot help with that."}
	svc := newService(t, fc, nil)
	_, err := svc.Generate(context.Background(), "Go", "")
	var me *parser.MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MalformedResponseError", err)
	}
	if me.Raw != "I cannot help with that." {
		t.Errorf("raw = %q", me.Raw)
	}
}

func TestGenerateLLMFailure(t *testing.T) {
	fc := &testutil.FakeCompleter{Err: errors.New("connection reset")}
	svc := newService(t, fc, nil)
	_, err := svc.Generate(context.Background(), "Go", "")
	if err == nil || errors.Is(err, apperr.ErrMalformedResponse) {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateWithoutSearch(t *testing.T) {
	svc := newService(t, &testutil.FakeCompleter{Response: llmAnswer}, nil)
	c, err := svc.Generate(context.Background(), "Go", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Message != NoSearchMessage {
		t.Errorf("message = %q", c.Message)
	}
	for _, s := range c.Skills {
		if s.Videos != nil {
			t.Errorf("skill %s has videos %v, want nil", s.Name, s.Videos)
		}
	}
	if c.Debug != nil {
		t.Error("diagnostics attached without searches")
	}
}

func TestGenerateAllSearchesFailWarns(t *testing.T) {
	fs := &testutil.FakeSearcher{Handle: func(string) ([]models.VideoResult, error) {
		return nil, &youtube.SearchError{Kind: youtube.KindService, Code: "403", Reason: "forbidden", Message: "no"}
	}}
	svc := newService(t, &testutil.FakeCompleter{Response: llmAnswer}, fs)
	c, err := svc.Generate(context.Background(), "Go", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Warning != NoVideosWarning {
		t.Errorf("warning = %q", c.Warning)
	}
	if c.Debug.FailedSearches != 3 || len(c.Debug.Errors) != 3 {
		t.Errorf("diagnostics = %+v", c.Debug)
	}
}

func TestGenerateTopicFallsBackToRequest(t *testing.T) {
	fc := &testutil.FakeCompleter{Response: `{"skills":[]}`}
	svc := newService(t, fc, nil)
	c, err := svc.Generate(context.Background(), "Rust", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if c.Topic != "Rust" {
		t.Errorf("topic = %q", c.Topic)
	}
}

func TestSaveListDeleteNotifies(t *testing.T) {
	rec := &recorder{}
	svc := newService(t, &testutil.FakeCompleter{}, nil, WithNotifier(rec))
	ctx := context.Background()

	id, mode, err := svc.SaveCourse(ctx, testutil.Course("Go", 1))
	if err != nil {
		t.Fatalf("SaveCourse: %v", err)
	}
	if mode != gateway.ModeStore {
		t.Errorf("mode = %s", mode)
	}
	courses, _, err := svc.ListCourses(ctx)
	if err != nil || len(courses) != 1 || courses[0].ID != id {
		t.Fatalf("ListCourses = %+v, %v", courses, err)
	}
	got, err := svc.FindCourse(ctx, " Go ")
	if err != nil || got.ID != id {
		t.Fatalf("FindCourse = %+v, %v", got, err)
	}
	if _, err := svc.DeleteCourse(ctx, id); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
	courses, _, _ = svc.ListCourses(ctx)
	if courses == nil || len(courses) != 0 {
		t.Errorf("courses = %#v, want empty non-nil", courses)
	}
	want := []string{"saved:Go", "deleted:"}
	if strings.Join(rec.events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v", rec.events)
	}
}

func TestImportCourse(t *testing.T) {
	rec := &recorder{}
	svc := newService(t, &testutil.FakeCompleter{}, nil, WithNotifier(rec))
	ctx := context.Background()

	if _, _, _, err := svc.ImportCourse(ctx, []byte(`{"topic":"","skills":[]}`)); !errors.Is(err, apperr.ErrInvalidCourseStructure) {
		t.Errorf("empty topic: %v", err)
	}
	c, id, _, err := svc.ImportCourse(ctx, []byte(`{"topic":"Go","skills":[]}`))
	if err != nil {
		t.Fatalf("ImportCourse: %v", err)
	}
	if c.Topic != "Go" || id == 0 {
		t.Errorf("course = %+v, id = %d", c, id)
	}
	if len(rec.events) != 1 || rec.events[0] != "imported:Go" {
		t.Errorf("events = %v", rec.events)
	}
}

func TestExportGraph(t *testing.T) {
	svc := newService(t, &testutil.FakeCompleter{}, nil)
	c := testutil.Course("Go", 2, 1)
	g, err := svc.ExportGraph(&c)
	if err != nil {
		t.Fatalf("ExportGraph: %v", err)
	}
	if g.Count() != 1+2+3 {
		t.Errorf("count = %d", g.Count())
	}
	if !g.ExportedAt.Equal(fixed) {
		t.Errorf("exportedAt = %v", g.ExportedAt)
	}
}

func TestAssemble(t *testing.T) {
	s := &models.Structure{Topic: "Go", Skills: []models.Skill{{Name: "A"}}}
	c := Assemble(s, bare(s.Skills), &models.GenerationDiagnostics{}, fixed)
	if c.Warning != "" {
		t.Error("no searches attempted should not warn")
	}
	c = Assemble(s, bare(s.Skills), &models.GenerationDiagnostics{TotalSearches: 2, SuccessfulSearches: 1, FailedSearches: 1}, fixed)
	if c.Warning != "" {
		t.Error("partial success should not warn")
	}
	c = Assemble(s, bare(s.Skills), &models.GenerationDiagnostics{TotalSearches: 2, FailedSearches: 2}, fixed)
	if c.Warning == "" {
		t.Error("zero successes should warn")
	}
}
