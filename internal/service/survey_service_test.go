package service

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/ident"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/models"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/repository"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

func TestCreateGeneratesSurveyID(t *testing.T) {
	database := store.NewMemory()
	svc := NewSurveyService(repository.NewSurveyRepo(database), ident.Random{}, zap.NewNop())

	s, err := svc.Create(context.Background(), "", []map[string]any{versionPayload(float64(1), "")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !regexp.MustCompile(`^[1-9][0-9]{3}$`).MatchString(s.SurveyID) {
		t.Fatalf("surveyId %q is not four digits", s.SurveyID)
	}
	if len(s.Versions) != 1 || s.Versions[0].VersionID != s.SurveyID+"v1" {
		t.Fatalf("unexpected versions %#v", s.Versions)
	}
	if !s.Versions[0].Timestamp.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp = %v", s.Versions[0].Timestamp)
	}
	if s.CreatedAt.Location() != time.UTC || s.CreatedAt.Nanosecond()%int(time.Millisecond) != 0 {
		t.Fatalf("createdAt %v is not UTC millisecond precision", s.CreatedAt)
	}

	got, err := svc.Get(context.Background(), s.SurveyID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(s.CreatedAt) {
		t.Fatalf("stored createdAt %v, returned %v", got.CreatedAt, s.CreatedAt)
	}
}

func TestCreateSkipsTakenGeneratedIDs(t *testing.T) {
	f := newFixture(t, "1111", "1111", "2222")
	mustCreate(t, f, "1111", versionPayload(1, ""))

	s, err := f.surveys.Create(context.Background(), "", []map[string]any{versionPayload(1, "")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if s.SurveyID != "2222" {
		t.Fatalf("surveyId = %q, want 2222", s.SurveyID)
	}
}

func TestCreateFailsWhenIDsExhausted(t *testing.T) {
	f := newFixture(t, "1111")
	mustCreate(t, f, "1111", versionPayload(1, ""))

	_, err := f.surveys.Create(context.Background(), "", []map[string]any{versionPayload(1, "")})
	var se *StoreError
	if !errors.As(err, &se) || !errors.Is(err, errIDSpaceExhausted) {
		t.Fatalf("expected exhausted StoreError, got %v", err)
	}
}

func TestCreateReplacesAndKeepsCreatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.surveys.Create(ctx, "5000", []map[string]any{versionPayload(1, "a"), versionPayload(2, "b")})
	if err != nil {
		t.Fatal(err)
	}
	second, err := f.surveys.Create(ctx, "5000", []map[string]any{versionPayload(3, "c")})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("createdAt changed from %v to %v", first.CreatedAt, second.CreatedAt)
	}

	got, _ := f.surveys.Get(ctx, "5000")
	if len(got.Versions) != 1 || got.Versions[0].Version != 3 {
		t.Fatalf("versions were merged instead of replaced: %#v", got.Versions)
	}
	if _, total, _ := f.surveys.List(ctx, 0, 100); total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
}

func TestCreateValidationWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreate(t, f, "5000", versionPayload(1, "kept"))

	bad := versionPayload(2, "")
	bad["config"] = map[string]any{"sections": []any{map[string]any{"id": "s", "questions": []any{map[string]any{"id": "q", "type": "bogus", "label": "L"}}}}}
	_, err := f.surveys.Create(ctx, "5000", []map[string]any{versionPayload(1, "new"), bad})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Index != 1 {
		t.Fatalf("expected validation error at index 1, got %v", err)
	}

	got, _ := f.surveys.Get(ctx, "5000")
	if title := got.Versions[0].Config.Title; title == nil || *title != "kept" {
		t.Fatalf("survey was modified by a failed create: %#v", got.Versions)
	}
	if _, err := f.surveys.Create(ctx, "6000", []map[string]any{bad}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := f.surveys.Get(ctx, "6000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("failed create left a survey behind: %v", err)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.surveys.Update(ctx, "404", []map[string]any{versionPayload(1, "")}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update of missing survey: %v", err)
	}
	if _, err := f.surveys.Get(ctx, "404"); !errors.Is(err, ErrNotFound) {
		t.Fatal("update created a survey")
	}

	created, _ := f.surveys.Create(ctx, "5000", []map[string]any{versionPayload(1, "a")})
	updated, err := f.surveys.Update(ctx, "5000", []map[string]any{versionPayload(1, "a"), versionPayload(2, "b")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("createdAt changed on update")
	}
	if len(updated.Versions) != 2 || updated.Versions[1].VersionID != "5000v2" {
		t.Fatalf("versions = %#v", updated.Versions)
	}

	bad := versionPayload(3, "")
	delete(bad, "config")
	if _, err := f.surveys.Update(ctx, "5000", []map[string]any{bad}); err == nil {
		t.Fatal("expected validation error")
	}
	got, _ := f.surveys.Get(ctx, "5000")
	if len(got.Versions) != 2 {
		t.Fatalf("failed update changed the survey: %#v", got.Versions)
	}
}

func TestGetVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreate(t, f, "5000", versionPayload(1, "first"), versionPayload(2, "second"), versionPayload(1, "duplicate"))

	v, err := f.surveys.GetVersion(ctx, "5000", 1)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if *v.Config.Title != "first" {
		t.Fatalf("expected the first stored entry, got %q", *v.Config.Title)
	}

	got, _ := f.surveys.Get(ctx, "5000")
	if len(got.Versions) != 3 {
		t.Fatalf("duplicate version numbers were collapsed: %d entries", len(got.Versions))
	}

	if _, err := f.surveys.GetVersion(ctx, "5000", 9); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("missing version: %v", err)
	}
	if _, err := f.surveys.GetVersion(ctx, "9999", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing survey: %v", err)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreate(t, f, "5000", versionPayload(1, ""))

	if err := f.surveys.Delete(ctx, "5000"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := f.surveys.Delete(ctx, "5000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := f.surveys.Get(ctx, "5000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"1234", "2341", "9999", "AbC1"} {
		mustCreate(t, f, id, versionPayload(1, ""))
	}

	got, err := f.surveys.Search(ctx, "34")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].SurveyID != "2341" || got[1].SurveyID != "1234" {
		t.Fatalf("expected newest first [2341 1234], got %v", ids(got))
	}

	if got, _ := f.surveys.Search(ctx, "abc"); len(got) != 1 || got[0].SurveyID != "AbC1" {
		t.Fatalf("case-insensitive search failed: %v", ids(got))
	}
	if got, _ := f.surveys.Search(ctx, ".*"); len(got) != 0 {
		t.Fatalf("fragment was treated as a pattern: %v", ids(got))
	}
	if got, err := f.surveys.Search(ctx, "zzz"); err != nil || got == nil || len(got) != 0 {
		t.Fatalf("empty search: %v, %v", got, err)
	}
}

func TestSearchLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < SearchLimit+5; i++ {
		mustCreate(t, f, "s"+strconv.Itoa(i), versionPayload(1, ""))
	}
	got, err := f.surveys.Search(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != SearchLimit {
		t.Fatalf("got %d results, want %d", len(got), SearchLimit)
	}
}

func TestListPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"1000", "2000", "3000", "4000"} {
		mustCreate(t, f, id, versionPayload(1, ""))
	}

	page, total, err := f.surveys.List(ctx, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 {
		t.Fatalf("total = %d", total)
	}
	if got := ids(page); len(got) != 2 || got[0] != "3000" || got[1] != "2000" {
		t.Fatalf("page = %v", got)
	}

	all, _, _ := f.surveys.List(ctx, 0, 100)
	for i := 1; i < len(all); i++ {
		if all[i].CreatedAt.After(all[i-1].CreatedAt) {
			t.Fatalf("list not ordered by createdAt descending: %v", ids(all))
		}
	}

	if page, total, _ := f.surveys.List(ctx, 10, 100); len(page) != 0 || total != 4 {
		t.Fatalf("past the end: %v total %d", ids(page), total)
	}
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mustCreate(t, f, "1000", versionPayload(1, ""))
	mustCreate(t, f, "2000", versionPayload(1, ""))

	n, err := f.surveys.Clear(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Clear = %d, %v", n, err)
	}
	if _, total, _ := f.surveys.List(ctx, 0, 100); total != 0 {
		t.Fatalf("total after clear = %d", total)
	}
	if n, _ := f.surveys.Clear(ctx); n != 0 {
		t.Fatalf("second clear = %d", n)
	}
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	f := newFixtureWithDB(t, brokenDB{})
	ctx := context.Background()

	_, err := f.surveys.Get(ctx, "1234")
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("expected StoreError, got %v", err)
	}
	if se.Op != "find survey" || se.Target != "1234" || !errors.Is(err, errBackendDown) {
		t.Fatalf("unexpected StoreError %+v", se)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("store failure reported as not found")
	}

	if _, err := f.surveys.Create(ctx, "1", []map[string]any{versionPayload(1, "")}); !errors.As(err, &se) {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.surveys.Clear(ctx); !errors.As(err, &se) {
		t.Fatalf("clear: %v", err)
	}
}

func ids(surveys []models.StoredSurvey) []string {
	out := make([]string, 0, len(surveys))
	for _, s := range surveys {
		out = append(out, s.SurveyID)
	}
	return out
}

func TestEmptyCollectionsSurviveRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	payload := map[string]any{
		"version":   1,
		"timestamp": "2024-01-01T00:00:00Z",
		"config": map[string]any{
			"meta": map[string]any{},
			"sections": []any{map[string]any{
				"id":        "s1",
				"visibleIf": map[string]any{"all": []any{}},
				"questions": []any{map[string]any{
					"id":        "q1",
					"type":      "select",
					"label":     "Pick one",
					"options":   []any{},
					"visibleIf": map[string]any{"any": []any{}},
				}},
			}},
		},
	}
	mustCreate(t, f, "4821", payload)

	got, err := f.surveys.Get(ctx, "4821")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, err := json.Marshal(got.Versions[0].Config)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("unmarshal config: %v", err)
	}

	if meta, ok := cfg["meta"].(map[string]any); !ok || len(meta) != 0 {
		t.Fatalf("meta = %#v, want {}", cfg["meta"])
	}
	section := cfg["sections"].([]any)[0].(map[string]any)
	sectionRule := section["visibleIf"].(map[string]any)
	if all, ok := sectionRule["all"].([]any); !ok || len(all) != 0 {
		t.Fatalf("section visibleIf = %#v, want all: []", sectionRule)
	}
	question := section["questions"].([]any)[0].(map[string]any)
	if opts, ok := question["options"].([]any); !ok || len(opts) != 0 {
		t.Fatalf("options = %#v, want []", question["options"])
	}
	rule := question["visibleIf"].(map[string]any)
	if anyOf, ok := rule["any"].([]any); !ok || len(anyOf) != 0 {
		t.Fatalf("question visibleIf = %#v, want any: []", rule)
	}
	for _, absent := range []string{"all", "none"} {
		if _, ok := rule[absent]; ok {
			t.Fatalf("absent clause %q appeared in %#v", absent, rule)
		}
	}
}
