package repository

import (
	"context"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/models"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

const ResponsesCollection = "responses"

type ResponseRepo struct {
	coll store.Collection
}

func NewResponseRepo(database store.Database) *ResponseRepo {
	return &ResponseRepo{coll: database.Collection(ResponsesCollection)}
}

func (r *ResponseRepo) EnsureIndexes(ctx context.Context) error {
	return r.coll.EnsureIndex(ctx, "surveyId", false)
}

func (r *ResponseRepo) Create(ctx context.Context, resp *models.UserSurveyResponse) error {
	doc, err := toDoc(resp)
	if err != nil {
		return err
	}
	return r.coll.Insert(ctx, doc)
}

// FindBySurveyID returns the survey's responses in insertion order.
func (r *ResponseRepo) FindBySurveyID(ctx context.Context, surveyID string) ([]models.UserSurveyResponse, error) {
	docs, err := r.coll.Find(ctx, store.Eq("surveyId", surveyID), store.FindOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSurveyResponse, 0, len(docs))
	for _, d := range docs {
		var resp models.UserSurveyResponse
		if err := fromDoc(d, &resp); err != nil {
			return nil, err
		}
		if resp.Answers == nil {
			resp.Answers = map[string]any{}
		}
		out = append(out, resp)
	}
	return out, nil
}
