package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/ident"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/models"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/repository"
)

// SubmitInput is a respondent's submission before it is stored.
type SubmitInput struct {
	SurveyID       string
	VersionID      string
	RespondentInfo map[string]any
	Answers        map[string]any
	CompletionTime *float64
}

type ResponseService struct {
	responses *repository.ResponseRepo
	surveys   *repository.SurveyRepo
	ids       ident.Generator
	now       func() time.Time
	log       *zap.Logger
}

func NewResponseService(responses *repository.ResponseRepo, surveys *repository.SurveyRepo, ids ident.Generator, log *zap.Logger) *ResponseService {
	return &ResponseService{responses: responses, surveys: surveys, ids: ids, now: time.Now, log: log}
}

// Submit records a response to an existing survey. Answers are stored as
// given; the version id is not checked against the survey.
func (s *ResponseService) Submit(ctx context.Context, in SubmitInput) (*models.UserSurveyResponse, error) {
	exists, err := s.surveys.Exists(ctx, in.SurveyID)
	if err != nil {
		return nil, storeErr("find survey", in.SurveyID, err)
	}
	if !exists {
		return nil, surveyNotFound(in.SurveyID)
	}

	answers := in.Answers
	if answers == nil {
		answers = map[string]any{}
	}
	resp := &models.UserSurveyResponse{
		ResponseID:     s.ids.ResponseID(),
		SurveyID:       in.SurveyID,
		VersionID:      in.VersionID,
		RespondentInfo: in.RespondentInfo,
		Answers:        answers,
		SubmittedAt:    s.now().UTC(),
		CompletionTime: in.CompletionTime,
	}
	if err := s.responses.Create(ctx, resp); err != nil {
		return nil, storeErr("save response", resp.ResponseID, err)
	}

	s.log.Info("response submitted",
		zap.String("surveyId", resp.SurveyID),
		zap.String("versionId", resp.VersionID),
		zap.String("responseId", resp.ResponseID),
	)
	return resp, nil
}

// ListForSurvey returns every response collected for surveyID in storage
// order.
func (s *ResponseService) ListForSurvey(ctx context.Context, surveyID string) ([]models.UserSurveyResponse, error) {
	out, err := s.responses.FindBySurveyID(ctx, surveyID)
	if err != nil {
		return nil, storeErr("list responses", surveyID, err)
	}
	return out, nil
}
