package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/models"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/service"
)

const defaultListLimit = 100

type SurveyHandler struct {
	svc *service.SurveyService
	log *zap.Logger
}

func NewSurveyHandler(svc *service.SurveyService, log *zap.Logger) *SurveyHandler {
	return &SurveyHandler{svc: svc, log: log}
}

type surveyResponse struct {
	Success bool                 `json:"success"`
	Survey  *models.StoredSurvey `json:"survey"`
	Message string               `json:"message,omitempty"`
}

type surveysResponse struct {
	Success bool                  `json:"success"`
	Surveys []models.StoredSurvey `json:"surveys"`
	Total   int64                 `json:"total"`
}

func (h *SurveyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SurveyID *string          `json:"surveyId"`
		Versions []map[string]any `json:"versions" validate:"required"`
	}
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	var surveyID string
	if req.SurveyID != nil {
		surveyID = *req.SurveyID
	}
	survey, err := h.svc.Create(r.Context(), surveyID, req.Versions)
	if err != nil {
		writeServiceError(w, r, h.log, "save survey", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, surveyResponse{
		Success: true,
		Survey:  survey,
		Message: fmt.Sprintf("Survey %s saved successfully", survey.SurveyID),
	})
}

func (h *SurveyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "surveyId")
	var req struct {
		Versions []map[string]any `json:"versions" validate:"required"`
	}
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	survey, err := h.svc.Update(r.Context(), id, req.Versions)
	if err != nil {
		writeServiceError(w, r, h.log, "update survey", err)
		return
	}
	writeJSON(w, r, http.StatusOK, surveyResponse{
		Success: true,
		Survey:  survey,
		Message: fmt.Sprintf("Survey %s updated successfully", id),
	})
}

func (h *SurveyHandler) Get(w http.ResponseWriter, r *http.Request) {
	survey, err := h.svc.Get(r.Context(), chi.URLParam(r, "surveyId"))
	if err != nil {
		writeServiceError(w, r, h.log, "retrieve survey", err)
		return
	}
	writeJSON(w, r, http.StatusOK, surveyResponse{Success: true, Survey: survey})
}

func (h *SurveyHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "version")
	version, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("version must be an integer, got %q", raw))
		return
	}
	v, err := h.svc.GetVersion(r.Context(), chi.URLParam(r, "surveyId"), version)
	if err != nil {
		writeServiceError(w, r, h.log, "retrieve version", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "version": v})
}

func (h *SurveyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "surveyId")
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, "delete survey", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Survey %s deleted successfully", id),
	})
}

func (h *SurveyHandler) Search(w http.ResponseWriter, r *http.Request) {
	surveys, err := h.svc.Search(r.Context(), chi.URLParam(r, "query"))
	if err != nil {
		writeServiceError(w, r, h.log, "search surveys", err)
		return
	}
	writeJSON(w, r, http.StatusOK, surveysResponse{Success: true, Surveys: surveys, Total: int64(len(surveys))})
}

func (h *SurveyHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	surveys, total, err := h.svc.List(r.Context(), skip, limit)
	if err != nil {
		writeServiceError(w, r, h.log, "retrieve surveys", err)
		return
	}
	writeJSON(w, r, http.StatusOK, surveysResponse{Success: true, Surveys: surveys, Total: total})
}

func (h *SurveyHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Clear(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, "clear surveys", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":      true,
		"message":      fmt.Sprintf("Deleted %d surveys", n),
		"deletedCount": n,
	})
}

// queryInt reads a non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, raw)
	}
	return n, nil
}
