package repository

import (
	"context"
	"errors"
	"time"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/models"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

const SurveysCollection = "surveys"

// CreatedAtLayout is the fixed-width form createdAt is stored in, so that
// ordering the raw value matches chronological order on every backend.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

type SurveyRepo struct {
	coll store.Collection
}

func NewSurveyRepo(database store.Database) *SurveyRepo {
	return &SurveyRepo{coll: database.Collection(SurveysCollection)}
}

func (r *SurveyRepo) EnsureIndexes(ctx context.Context) error {
	if err := r.coll.EnsureIndex(ctx, "surveyId", true); err != nil {
		return err
	}
	if err := r.coll.EnsureIndex(ctx, "createdAt", false); err != nil {
		return err
	}
	return r.coll.EnsureIndex(ctx, "versions.version", false)
}

// FindByID returns nil, nil when no survey has the id.
func (r *SurveyRepo) FindByID(ctx context.Context, surveyID string) (*models.StoredSurvey, error) {
	doc, err := r.coll.FindOne(ctx, store.Eq("surveyId", surveyID))
	if errors.Is(err, store.ErrNoDocument) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return docToSurvey(doc)
}

func (r *SurveyRepo) Exists(ctx context.Context, surveyID string) (bool, error) {
	n, err := r.coll.Count(ctx, store.Eq("surveyId", surveyID))
	return n > 0, err
}

// Upsert replaces the survey with the same id or inserts it.
func (r *SurveyRepo) Upsert(ctx context.Context, s *models.StoredSurvey) error {
	doc, err := surveyToDoc(s)
	if err != nil {
		return err
	}
	_, err = r.coll.Replace(ctx, store.Eq("surveyId", s.SurveyID), doc, true)
	return err
}

// Replace overwrites an existing survey and reports whether one matched.
func (r *SurveyRepo) Replace(ctx context.Context, s *models.StoredSurvey) (bool, error) {
	doc, err := surveyToDoc(s)
	if err != nil {
		return false, err
	}
	n, err := r.coll.Replace(ctx, store.Eq("surveyId", s.SurveyID), doc, false)
	return n > 0, err
}

func (r *SurveyRepo) Delete(ctx context.Context, surveyID string) (bool, error) {
	n, err := r.coll.DeleteOne(ctx, store.Eq("surveyId", surveyID))
	return n > 0, err
}

// Search matches surveyId against fragment, newest first.
func (r *SurveyRepo) Search(ctx context.Context, fragment string, limit int) ([]models.StoredSurvey, error) {
	docs, err := r.coll.Find(ctx, store.Like("surveyId", fragment), store.FindOptions{
		SortDesc: "createdAt",
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	return docsToSurveys(docs)
}

// List pages through all surveys, newest first, and returns the total count.
func (r *SurveyRepo) List(ctx context.Context, skip, limit int) ([]models.StoredSurvey, int64, error) {
	total, err := r.coll.Count(ctx, store.All())
	if err != nil {
		return nil, 0, err
	}
	docs, err := r.coll.Find(ctx, store.All(), store.FindOptions{
		SortDesc: "createdAt",
		Skip:     skip,
		Limit:    limit,
	})
	if err != nil {
		return nil, 0, err
	}
	surveys, err := docsToSurveys(docs)
	return surveys, total, err
}

// FindAll returns every survey in storage order.
func (r *SurveyRepo) FindAll(ctx context.Context) ([]models.StoredSurvey, error) {
	docs, err := r.coll.Find(ctx, store.All(), store.FindOptions{})
	if err != nil {
		return nil, err
	}
	return docsToSurveys(docs)
}

func (r *SurveyRepo) Clear(ctx context.Context) (int64, error) {
	return r.coll.DeleteMany(ctx, store.All())
}

func surveyToDoc(s *models.StoredSurvey) (store.Document, error) {
	doc, err := toDoc(s)
	if err != nil {
		return nil, err
	}
	doc["createdAt"] = s.CreatedAt.UTC().Truncate(time.Millisecond).Format(CreatedAtLayout)
	return doc, nil
}

func docToSurvey(doc store.Document) (*models.StoredSurvey, error) {
	var s models.StoredSurvey
	if err := fromDoc(doc, &s); err != nil {
		return nil, err
	}
	if s.Versions == nil {
		s.Versions = []models.StoredVersion{}
	}
	return &s, nil
}

func docsToSurveys(docs []store.Document) ([]models.StoredSurvey, error) {
	surveys := make([]models.StoredSurvey, 0, len(docs))
	for _, d := range docs {
		s, err := docToSurvey(d)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, *s)
	}
	return surveys, nil
}
