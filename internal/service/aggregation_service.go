package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/models"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/repository"
)

// MaxHistoricalSurveys is the most surveys one analysis may cover.
const MaxHistoricalSurveys = 5

type AggregationService struct {
	surveys   *repository.SurveyRepo
	responses *repository.ResponseRepo
	log       *zap.Logger
}

func NewAggregationService(surveys *repository.SurveyRepo, responses *repository.ResponseRepo, log *zap.Logger) *AggregationService {
	return &AggregationService{surveys: surveys, responses: responses, log: log}
}

// StorageStats summarises every stored survey. The size is the length of
// the compact JSON encoding of all surveys.
func (s *AggregationService) StorageStats(ctx context.Context) (*models.StorageStats, error) {
	surveys, err := s.surveys.FindAll(ctx)
	if err != nil {
		return nil, storeErr("load surveys", "", err)
	}

	encoded, err := encodeJSON(surveys, "")
	if err != nil {
		return nil, fmt.Errorf("encode surveys: %w", err)
	}

	stats := &models.StorageStats{
		TotalSurveys:     len(surveys),
		StorageSizeBytes: len(encoded),
		StorageSizeMB:    fmt.Sprintf("%.2f", float64(len(encoded))/(1024*1024)),
		Surveys:          make([]models.SurveySummary, 0, len(surveys)),
	}
	for i := range surveys {
		sv := &surveys[i]
		stats.TotalVersions += len(sv.Versions)
		stats.Surveys = append(stats.Surveys, models.SurveySummary{
			SurveyID:     sv.SurveyID,
			VersionCount: len(sv.Versions),
			CreatedAt:    sv.CreatedAt,
			Title:        sv.Title(),
		})
	}
	return stats, nil
}

// ExportSurvey renders the survey as indented JSON and names the file it
// should be saved as.
func (s *AggregationService) ExportSurvey(ctx context.Context, surveyID string) (data []byte, filename string, err error) {
	survey, err := s.surveys.FindByID(ctx, surveyID)
	if err != nil {
		return nil, "", storeErr("find survey", surveyID, err)
	}
	if survey == nil {
		return nil, "", surveyNotFound(surveyID)
	}
	data, err = encodeJSON(survey, "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encode survey %s: %w", surveyID, err)
	}
	return data, "survey_" + surveyID + ".json", nil
}

// AnalyzeHistorical loads up to MaxHistoricalSurveys surveys named in a
// comma-separated list together with their responses. Unknown ids are
// skipped; it fails only when none resolve.
func (s *AggregationService) AnalyzeHistorical(ctx context.Context, csv string) ([]models.SurveyBundle, error) {
	ids := ParseSurveyIDs(csv)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: at least one survey id is required", ErrBadRequest)
	}
	if len(ids) > MaxHistoricalSurveys {
		return nil, fmt.Errorf("%w: at most %d survey ids are allowed, got %d", ErrBadRequest, MaxHistoricalSurveys, len(ids))
	}

	found := make([]*models.SurveyBundle, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			survey, err := s.surveys.FindByID(gctx, id)
			if err != nil {
				return storeErr("find survey", id, err)
			}
			if survey == nil {
				return nil
			}
			responses, err := s.responses.FindBySurveyID(gctx, id)
			if err != nil {
				return storeErr("list responses", id, err)
			}
			found[i] = &models.SurveyBundle{Survey: *survey, Responses: responses}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bundles := make([]models.SurveyBundle, 0, len(ids))
	for _, b := range found {
		if b != nil {
			bundles = append(bundles, *b)
		}
	}
	if len(bundles) == 0 {
		return nil, fmt.Errorf("surveys %s %w", strings.Join(ids, ", "), ErrNotFound)
	}
	if skipped := len(ids) - len(bundles); skipped > 0 {
		s.log.Debug("historical analysis skipped unknown surveys", zap.Int("skipped", skipped))
	}
	return bundles, nil
}

// encodeJSON is json.Marshal without HTML escaping, so stored text is
// measured and exported byte for byte.
func encodeJSON(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ParseSurveyIDs splits a comma-separated list, trimming blanks and
// dropping empty entries. Repeated ids are kept and counted.
func ParseSurveyIDs(csv string) []string {
	var ids []string
	for _, part := range strings.Split(csv, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
