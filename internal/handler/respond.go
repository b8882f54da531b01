package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/service"
)

// Error codes returned alongside the message in error bodies.
const (
	CodeNotFound        = "survey.not_found"
	CodeVersionNotFound = "survey.version_not_found"
	CodeValidation      = "request.validation"
	CodeBadRequest      = "request.bad_request"
	CodeStore           = "store.error"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// fieldError is a body that decoded but failed its validate tags.
type fieldError struct {
	Field string
	Tag   string
}

func (e *fieldError) Error() string { return e.Field + " is " + e.Tag }

// readJSON decodes the body into v and checks its validate tags.
func readJSON(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		var fes validator.ValidationErrors
		if errors.As(err, &fes) && len(fes) > 0 {
			return &fieldError{Field: fes[0].Field(), Tag: fes[0].Tag()}
		}
		return err
	}
	return nil
}

// writeBodyError answers a readJSON failure: request.validation for a field
// that broke its rules, request.bad_request for an unreadable body.
func writeBodyError(w http.ResponseWriter, r *http.Request, err error) {
	code := CodeBadRequest
	var fe *fieldError
	if errors.As(err, &fe) {
		code = CodeValidation
	}
	writeError(w, r, http.StatusBadRequest, code, err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, errorBody{Success: false, Error: msg, Code: code})
}

// writeServiceError maps a service error onto a status and error code.
// action names what failed for the generic 500 message.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, action string, err error) {
	reqID := zap.String("requestId", middleware.GetReqID(r.Context()))

	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		log.Debug("validation failed", reqID, zap.Int("index", ve.Index), zap.String("field", ve.Field), zap.String("reason", ve.Reason))
		writeError(w, r, http.StatusBadRequest, CodeValidation, ve.Error())
	case errors.Is(err, service.ErrVersionNotFound):
		log.Debug("version not found", reqID, zap.Error(err))
		writeError(w, r, http.StatusNotFound, CodeVersionNotFound, err.Error())
	case errors.Is(err, service.ErrNotFound):
		log.Debug("not found", reqID, zap.Error(err))
		writeError(w, r, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, service.ErrBadRequest):
		log.Debug("bad request", reqID, zap.Error(err))
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
	default:
		fields := []zap.Field{reqID, zap.Error(err)}
		var se *service.StoreError
		if errors.As(err, &se) {
			fields = append(fields, zap.String("op", se.Op), zap.String("target", se.Target))
		}
		log.Error("failed to "+action, fields...)
		writeError(w, r, http.StatusInternalServerError, CodeStore, "Failed to "+action)
	}
}
