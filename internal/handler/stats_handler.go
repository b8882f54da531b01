package handler

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/service"
)

type StatsHandler struct {
	agg *service.AggregationService
	log *zap.Logger
}

func NewStatsHandler(agg *service.AggregationService, log *zap.Logger) *StatsHandler {
	return &StatsHandler{agg: agg, log: log}
}

func (h *StatsHandler) Storage(w http.ResponseWriter, r *http.Request) {
	stats, err := h.agg.StorageStats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, "get storage stats", err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

func (h *StatsHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.agg.ExportSurvey(r.Context(), chi.URLParam(r, "surveyId"))
	if err != nil {
		writeServiceError(w, r, h.log, "export survey", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *StatsHandler) AnalyzeHistorical(w http.ResponseWriter, r *http.Request) {
	bundles, err := h.agg.AnalyzeHistorical(r.Context(), r.URL.Query().Get("survey_ids"))
	if err != nil {
		writeServiceError(w, r, h.log, "analyze surveys", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"surveys": bundles,
		"count":   len(bundles),
	})
}
