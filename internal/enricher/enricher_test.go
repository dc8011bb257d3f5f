package enricher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/skillpath/internal/models"
	"github.com/starford/skillpath/internal/testutil"
	"github.com/starford/skillpath/internal/youtube"
)

func skill(name string, terms ...string) models.Skill {
	return models.Skill{Name: name, Description: name + " description", SearchTerms: terms}
}

func TestEnrich_AllSuccess(t *testing.T) {
	fs := &testutil.FakeSearcher{Handle: testutil.VideoFor}
	e := New(fs, WithConcurrency(4))

	skills := []models.Skill{skill("A", "a1", "a2"), skill("B", "b1"), skill("C", "c1", "c2", "c3")}
	out, d, err := e.Enrich(context.Background(), "Go", skills)
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d", len(out))
	}
	for i, s := range out {
		if s.Name != skills[i].Name || s.Description != skills[i].Description {
			t.Errorf("skill %d fields changed: %+v", i, s.Skill)
		}
		if len(s.Videos) != len(skills[i].SearchTerms) {
			t.Errorf("skill %s videos = %d, want %d", s.Name, len(s.Videos), len(skills[i].SearchTerms))
		}
		for j, v := range s.Videos {
			if v.SearchTerm != skills[i].SearchTerms[j] {
				t.Errorf("video %d searchTerm = %q, want %q", j, v.SearchTerm, skills[i].SearchTerms[j])
			}
		}
	}
	if d.TotalSearches != 6 || d.SuccessfulSearches != 6 || d.FailedSearches != 0 {
		t.Errorf("diagnostics = %+v", d)
	}
	if d.Errors == nil || len(d.Errors) != 0 {
		t.Errorf("errors = %#v, want empty", d.Errors)
	}
}

func TestEnrich_QueryFormat(t *testing.T) {
	fs := &testutil.FakeSearcher{Handle: testutil.VideoFor}
	_, _, err := New(fs).Enrich(context.Background(), "Rust", []models.Skill{skill("A", "ownership basics")})
	if err != nil {
		t.Fatal(err)
	}
	q := fs.Queries()
	if len(q) != 1 || q[0] != "ownership basics Rust tutorial" {
		t.Errorf("queries = %q", q)
	}
}

func TestEnrich_QuotaStopsSkill(t *testing.T) {
	fs := &testutil.FakeSearcher{Handle: func(q string) ([]models.VideoResult, error) {
		if strings.HasPrefix(q, "t2 ") {
			return nil, &youtube.SearchError{Kind: youtube.KindQuota, Code: "403", Reason: "quotaExceeded", Message: "quota"}
		}
		return testutil.VideoFor(q)
	}}
	out, d, err := New(fs).Enrich(context.Background(), "Go", []models.Skill{skill("A", "t1", "t2", "t3")})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(out[0].Videos) != 1 || out[0].Videos[0].SearchTerm != "t1" {
		t.Errorf("videos = %+v, want only t1", out[0].Videos)
	}
	if d.TotalSearches != 2 || d.SuccessfulSearches != 1 || d.FailedSearches != 1 {
		t.Errorf("diagnostics = %+v", d)
	}
	for _, q := range fs.Queries() {
		if strings.HasPrefix(q, "t3 ") {
			t.Error("t3 must not be searched after quota exhaustion")
		}
	}
	if len(d.Errors) != 1 || d.Errors[0].Term != "t2" || d.Errors[0].Reason != "quotaExceeded" || d.Errors[0].Code != "403" {
		t.Errorf("errors = %+v", d.Errors)
	}
}

func TestEnrich_QuotaDoesNotCancelOtherSkills(t *testing.T) {
	fs := &testutil.FakeSearcher{Handle: func(q string) ([]models.VideoResult, error) {
		if strings.HasPrefix(q, "a1 ") {
			return nil, &youtube.SearchError{Kind: youtube.KindQuota, Code: "403", Reason: "quotaExceeded"}
		}
		return testutil.VideoFor(q)
	}}
	out, d, err := New(fs).Enrich(context.Background(), "Go",
		[]models.Skill{skill("A", "a1", "a2"), skill("B", "b1", "b2")})
	if err != nil {
		t.Fatal(err)
	}
	if len(out[0].Videos) != 0 {
		t.Errorf("skill A videos = %d, want 0", len(out[0].Videos))
	}
	if len(out[1].Videos) != 2 {
		t.Errorf("skill B videos = %d, want 2", len(out[1].Videos))
	}
	if d.TotalSearches != 3 || d.SuccessfulSearches != 2 || d.FailedSearches != 1 {
		t.Errorf("diagnostics = %+v", d)
	}
}

func TestEnrich_FailureKinds(t *testing.T) {
	fs := &testutil.FakeSearcher{Handle: func(q string) ([]models.VideoResult, error) {
		switch {
		case strings.HasPrefix(q, "empty "):
			return nil, nil
		case strings.HasPrefix(q, "service "):
			return nil, &youtube.SearchError{Kind: youtube.KindService, Code: "400", Reason: "badRequest", Message: "bad"}
		case strings.HasPrefix(q, "net "):
			return nil, errors.New("connection reset")
		}
		return testutil.VideoFor(q)
	}}
	out, d, err := New(fs).Enrich(context.Background(), "Go",
		[]models.Skill{skill("A", "empty", "service", "net", "ok")})
	if err != nil {
		t.Fatal(err)
	}
	if len(out[0].Videos) != 1 || out[0].Videos[0].SearchTerm != "ok" {
		t.Errorf("videos = %+v", out[0].Videos)
	}
	if d.TotalSearches != 4 || d.SuccessfulSearches != 1 || d.FailedSearches != 3 {
		t.Errorf("diagnostics = %+v", d)
	}
	if len(d.Errors) != 2 {
		t.Fatalf("errors = %+v, want service + transport only", d.Errors)
	}
	if d.Errors[0].Term != "service" || d.Errors[0].Code != "400" {
		t.Errorf("first error = %+v", d.Errors[0])
	}
	if d.Errors[1].Term != "net" || d.Errors[1].Code != youtube.CodeTransport {
		t.Errorf("second error = %+v", d.Errors[1])
	}
}

func TestEnrich_ErrorListCapped(t *testing.T) {
	fs := &testutil.FakeSearcher{Handle: func(string) ([]models.VideoResult, error) {
		return nil, &youtube.SearchError{Kind: youtube.KindService, Code: "500", Message: "boom"}
	}}
	skills := []models.Skill{
		skill("A", "a1", "a2", "a3", "a4"),
		skill("B", "b1", "b2", "b3", "b4"),
	}
	_, d, err := New(fs, WithConcurrency(2)).Enrich(context.Background(), "Go", skills)
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalSearches != 8 || d.FailedSearches != 8 {
		t.Errorf("diagnostics = %+v", d)
	}
	if len(d.Errors) != models.MaxDiagnosticErrors {
		t.Fatalf("len(errors) = %d, want %d", len(d.Errors), models.MaxDiagnosticErrors)
	}
	want := []string{"a1", "a2", "a3", "a4", "b1"}
	for i, e := range d.Errors {
		if e.Term != want[i] {
			t.Errorf("errors[%d].term = %q, want %q", i, e.Term, want[i])
		}
	}
}

func TestEnrich_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs := &testutil.FakeSearcher{Handle: testutil.VideoFor}
	_, _, err := New(fs).Enrich(ctx, "Go", []models.Skill{skill("A", "a1")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestEnrich_NoTerms(t *testing.T) {
	fs := &testutil.FakeSearcher{Handle: testutil.VideoFor}
	out, d, err := New(fs).Enrich(context.Background(), "Go", []models.Skill{skill("A")})
	if err != nil {
		t.Fatal(err)
	}
	if out[0].Videos == nil || len(out[0].Videos) != 0 {
		t.Errorf("videos = %#v, want empty non-nil", out[0].Videos)
	}
	if d.TotalSearches != 0 {
		t.Errorf("total = %d", d.TotalSearches)
	}
}

type slowSearcher struct{}

func (slowSearcher) Search(ctx context.Context, _ string, _ int) ([]models.VideoResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestEnrich_SearchTimeout(t *testing.T) {
	e := New(slowSearcher{}, WithSearchTimeout(10*time.Millisecond))
	out, d, err := e.Enrich(context.Background(), "Go", []models.Skill{skill("A", "a1", "a2")})
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(out) != 1 || len(out[0].Videos) != 0 {
		t.Errorf("out = %+v", out)
	}
	if d.TotalSearches != 2 || d.FailedSearches != 2 {
		t.Errorf("diagnostics = %+v", d)
	}
}
