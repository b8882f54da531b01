package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/ident"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/models"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/repository"
)

const (
	// SearchLimit caps the number of surveys a search returns.
	SearchLimit = 100
	// maxIDAttempts bounds the search for an unused generated survey id.
	maxIDAttempts = 1000
)

var errIDSpaceExhausted = errors.New("no unused survey id found")

type SurveyService struct {
	surveys    *repository.SurveyRepo
	translator *VersionTranslator
	ids        ident.Generator
	now        func() time.Time
	log        *zap.Logger
}

func NewSurveyService(surveys *repository.SurveyRepo, ids ident.Generator, log *zap.Logger) *SurveyService {
	return &SurveyService{
		surveys:    surveys,
		translator: NewVersionTranslator(),
		ids:        ids,
		now:        time.Now,
		log:        log,
	}
}

// Create stores versions under surveyID, generating an id when it is empty.
// An existing survey with the id is replaced as a whole but keeps its
// createdAt.
func (s *SurveyService) Create(ctx context.Context, surveyID string, versions []map[string]any) (*models.StoredSurvey, error) {
	if surveyID == "" {
		id, err := s.generateID(ctx)
		if err != nil {
			return nil, err
		}
		surveyID = id
	}

	existing, err := s.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, storeErr("find survey", surveyID, err)
	}
	createdAt := s.now().UTC().Truncate(time.Millisecond)
	if existing != nil {
		createdAt = existing.CreatedAt
	}

	stored, err := s.translator.TranslateAll(surveyID, versions)
	if err != nil {
		return nil, err
	}

	survey := &models.StoredSurvey{
		SurveyID:  surveyID,
		CreatedAt: createdAt,
		Versions:  stored,
	}
	if err := s.surveys.Upsert(ctx, survey); err != nil {
		return nil, storeErr("save survey", surveyID, err)
	}

	s.log.Info("survey saved",
		zap.String("surveyId", surveyID),
		zap.Int("versions", len(stored)),
		zap.Bool("created", existing == nil),
	)
	return survey, nil
}

// Update replaces the versions of an existing survey.
func (s *SurveyService) Update(ctx context.Context, surveyID string, versions []map[string]any) (*models.StoredSurvey, error) {
	existing, err := s.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, storeErr("find survey", surveyID, err)
	}
	if existing == nil {
		return nil, surveyNotFound(surveyID)
	}

	stored, err := s.translator.TranslateAll(surveyID, versions)
	if err != nil {
		return nil, err
	}

	survey := &models.StoredSurvey{
		SurveyID:  surveyID,
		CreatedAt: existing.CreatedAt,
		Versions:  stored,
	}
	matched, err := s.surveys.Replace(ctx, survey)
	if err != nil {
		return nil, storeErr("update survey", surveyID, err)
	}
	// Deleted between the lookup and the write.
	if !matched {
		return nil, surveyNotFound(surveyID)
	}

	s.log.Info("survey updated", zap.String("surveyId", surveyID), zap.Int("versions", len(stored)))
	return survey, nil
}

func (s *SurveyService) Get(ctx context.Context, surveyID string) (*models.StoredSurvey, error) {
	survey, err := s.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, storeErr("find survey", surveyID, err)
	}
	if survey == nil {
		return nil, surveyNotFound(surveyID)
	}
	return survey, nil
}

// GetVersion returns the first stored entry numbered version.
func (s *SurveyService) GetVersion(ctx context.Context, surveyID string, version int) (*models.StoredVersion, error) {
	survey, err := s.Get(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	v, ok := survey.FindVersion(version)
	if !ok {
		return nil, fmt.Errorf("version %d %w for survey %s", version, ErrVersionNotFound, surveyID)
	}
	return v, nil
}

func (s *SurveyService) Delete(ctx context.Context, surveyID string) error {
	deleted, err := s.surveys.Delete(ctx, surveyID)
	if err != nil {
		return storeErr("delete survey", surveyID, err)
	}
	if !deleted {
		return surveyNotFound(surveyID)
	}
	s.log.Info("survey deleted", zap.String("surveyId", surveyID))
	return nil
}

// Search finds surveys whose id contains fragment, ignoring case.
func (s *SurveyService) Search(ctx context.Context, fragment string) ([]models.StoredSurvey, error) {
	surveys, err := s.surveys.Search(ctx, fragment, SearchLimit)
	if err != nil {
		return nil, storeErr("search surveys", fragment, err)
	}
	return surveys, nil
}

func (s *SurveyService) List(ctx context.Context, skip, limit int) ([]models.StoredSurvey, int64, error) {
	surveys, total, err := s.surveys.List(ctx, skip, limit)
	if err != nil {
		return nil, 0, storeErr("list surveys", "", err)
	}
	return surveys, total, nil
}

// Clear deletes every survey and returns how many were removed.
func (s *SurveyService) Clear(ctx context.Context) (int64, error) {
	n, err := s.surveys.Clear(ctx)
	if err != nil {
		return 0, storeErr("clear surveys", "", err)
	}
	s.log.Warn("all surveys cleared", zap.Int64("deleted", n))
	return n, nil
}

func (s *SurveyService) generateID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.ids.SurveyID()
		taken, err := s.surveys.Exists(ctx, id)
		if err != nil {
			return "", storeErr("check survey id", id, err)
		}
		if !taken {
			return id, nil
		}
	}
	return "", storeErr("generate survey id", "", fmt.Errorf("%w after %d attempts", errIDSpaceExhausted, maxIDAttempts))
}

func surveyNotFound(surveyID string) error {
	return fmt.Errorf("survey %s %w", surveyID, ErrNotFound)
}
