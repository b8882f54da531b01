package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/service"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		level  zapcore.Level
	}{
		{"validation", &service.ValidationError{Index: 0, Field: "version", Reason: "is required"}, http.StatusBadRequest, CodeValidation, zapcore.DebugLevel},
		{"not found", fmt.Errorf("survey 1 %w", service.ErrNotFound), http.StatusNotFound, CodeNotFound, zapcore.DebugLevel},
		{"version not found", fmt.Errorf("version 2 %w for survey 1", service.ErrVersionNotFound), http.StatusNotFound, CodeVersionNotFound, zapcore.DebugLevel},
		{"bad request", fmt.Errorf("%w: too many ids", service.ErrBadRequest), http.StatusBadRequest, CodeBadRequest, zapcore.DebugLevel},
		{"store", &service.StoreError{Op: "find survey", Target: "1", Err: errors.New("dial tcp: refused")}, http.StatusInternalServerError, CodeStore, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		core, logs := observer.New(zapcore.DebugLevel)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		writeServiceError(rec, req, zap.New(core), "retrieve survey", tt.err)

		if rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.status)
		}
		var body errorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", tt.name, err)
		}
		if body.Success || body.Code != tt.code || body.Error == "" {
			t.Errorf("%s: body = %+v", tt.name, body)
		}
		if entries := logs.All(); len(entries) != 1 || entries[0].Level != tt.level {
			t.Errorf("%s: log entries = %v", tt.name, entries)
		}
	}
}

func TestStoreErrorTextIsNotReturned(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &service.StoreError{Op: "save survey", Target: "1", Err: errors.New("mongo: secret host 10.0.0.7")}
	writeServiceError(rec, httptest.NewRequest(http.MethodPost, "/", nil), zap.NewNop(), "save survey", err)
	if strings.Contains(rec.Body.String(), "10.0.0.7") {
		t.Fatalf("store error leaked: %s", rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "Failed to save survey") {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestReadJSONValidates(t *testing.T) {
	var req struct {
		SurveyID string `json:"surveyId" validate:"required"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"surveyId": ""}`))
	err := readJSON(r, &req)
	var fe *fieldError
	if !errors.As(err, &fe) || fe.Field != "surveyId" || fe.Tag != "required" {
		t.Fatalf("expected surveyId field error, got %v", err)
	}
	rec := httptest.NewRecorder()
	writeBodyError(rec, r, err)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), CodeValidation) {
		t.Fatalf("field error answered %d %s", rec.Code, rec.Body)
	}

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	err = readJSON(r, &req)
	if err == nil || errors.As(err, &fe) {
		t.Fatalf("expected decode error, got %v", err)
	}
	rec = httptest.NewRecorder()
	writeBodyError(rec, r, err)
	if !strings.Contains(rec.Body.String(), CodeBadRequest) {
		t.Fatalf("decode error answered %s", rec.Body)
	}
}
