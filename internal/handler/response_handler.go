package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/service"
)

type ResponseHandler struct {
	svc *service.ResponseService
	log *zap.Logger
}

func NewResponseHandler(svc *service.ResponseService, log *zap.Logger) *ResponseHandler {
	return &ResponseHandler{svc: svc, log: log}
}

func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SurveyID       string         `json:"surveyId" validate:"required"`
		VersionID      string         `json:"versionId" validate:"required"`
		RespondentInfo map[string]any `json:"respondentInfo"`
		Answers        map[string]any `json:"answers" validate:"required"`
		CompletionTime *float64       `json:"completionTime" validate:"omitempty,gte=0"`
	}
	if err := readJSON(r, &req); err != nil {
		writeBodyError(w, r, err)
		return
	}
	resp, err := h.svc.Submit(r.Context(), service.SubmitInput{
		SurveyID:       req.SurveyID,
		VersionID:      req.VersionID,
		RespondentInfo: req.RespondentInfo,
		Answers:        req.Answers,
		CompletionTime: req.CompletionTime,
	})
	if err != nil {
		writeServiceError(w, r, h.log, "submit response", err)
		return
	}
	writeJSON(w, r, http.StatusCreated, map[string]any{
		"success":    true,
		"responseId": resp.ResponseID,
		"response":   resp,
		"message":    "Response submitted successfully",
	})
}

func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	responses, err := h.svc.ListForSurvey(r.Context(), chi.URLParam(r, "surveyId"))
	if err != nil {
		writeServiceError(w, r, h.log, "retrieve responses", err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":   true,
		"responses": responses,
		"total":     len(responses),
	})
}
