package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/repository"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

// fixedIDs returns survey ids from a list, cycling, and numbered response ids.
type fixedIDs struct {
	surveyIDs []string
	next      int
	responses int
}

func (g *fixedIDs) SurveyID() string {
	id := g.surveyIDs[g.next%len(g.surveyIDs)]
	g.next++
	return id
}

func (g *fixedIDs) ResponseID() string {
	g.responses++
	return fmt.Sprintf("resp-%d", g.responses)
}

// clock advances by one second on every call.
type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	db        store.Database
	ids       *fixedIDs
	clock     *clock
	surveys   *SurveyService
	responses *ResponseService
	agg       *AggregationService
}

func newFixture(t *testing.T, surveyIDs ...string) *fixture {
	t.Helper()
	if len(surveyIDs) == 0 {
		surveyIDs = []string{"4821"}
	}
	return newFixtureWithDB(t, store.NewMemory(), surveyIDs...)
}

func newFixtureWithDB(t *testing.T, database store.Database, surveyIDs ...string) *fixture {
	t.Helper()
	surveyRepo := repository.NewSurveyRepo(database)
	responseRepo := repository.NewResponseRepo(database)
	if err := surveyRepo.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("ensure survey indexes: %v", err)
	}
	if err := responseRepo.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("ensure response indexes: %v", err)
	}

	f := &fixture{
		db:    database,
		ids:   &fixedIDs{surveyIDs: surveyIDs},
		clock: &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)},
	}
	log := zap.NewNop()
	f.surveys = NewSurveyService(surveyRepo, f.ids, log)
	f.surveys.now = f.clock.now
	f.responses = NewResponseService(responseRepo, surveyRepo, f.ids, log)
	f.responses.now = f.clock.now
	f.agg = NewAggregationService(surveyRepo, responseRepo, log)
	return f
}

func versionPayload(version any, title string) map[string]any {
	cfg := map[string]any{"sections": []any{}}
	if title != "" {
		cfg["title"] = title
	}
	return map[string]any{
		"version":   version,
		"config":    cfg,
		"timestamp": "2024-01-01T00:00:00Z",
	}
}

func mustCreate(t *testing.T, f *fixture, surveyID string, versions ...map[string]any) {
	t.Helper()
	if _, err := f.surveys.Create(context.Background(), surveyID, versions); err != nil {
		t.Fatalf("create %q: %v", surveyID, err)
	}
}

var errBackendDown = errors.New("connection refused")

// brokenDB fails every operation.
type brokenDB struct{}

func (brokenDB) Collection(string) store.Collection { return brokenCollection{} }
func (brokenDB) Ping(context.Context) error         { return errBackendDown }
func (brokenDB) Close(context.Context) error        { return nil }

type brokenCollection struct{}

func (brokenCollection) FindOne(context.Context, store.Filter) (store.Document, error) {
	return nil, errBackendDown
}
func (brokenCollection) Find(context.Context, store.Filter, store.FindOptions) ([]store.Document, error) {
	return nil, errBackendDown
}
func (brokenCollection) Count(context.Context, store.Filter) (int64, error) {
	return 0, errBackendDown
}
func (brokenCollection) Insert(context.Context, store.Document) error { return errBackendDown }
func (brokenCollection) Replace(context.Context, store.Filter, store.Document, bool) (int64, error) {
	return 0, errBackendDown
}
func (brokenCollection) DeleteOne(context.Context, store.Filter) (int64, error) {
	return 0, errBackendDown
}
func (brokenCollection) DeleteMany(context.Context, store.Filter) (int64, error) {
	return 0, errBackendDown
}
func (brokenCollection) EnsureIndex(context.Context, string, bool) error { return nil }
