package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/ident"
	"github.com/parisxmas/OxiDB/OxiSurvey/internal/models"
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
// 2e10 seconds is in the year 2603.
const epochMillisThreshold = 2e10

// offset-less layouts are read as UTC.
var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// VersionTranslator turns the loosely typed version payloads sent by the
// survey builder into StoredVersion records.
type VersionTranslator struct {
	validate *validator.Validate
}

func NewVersionTranslator() *VersionTranslator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &VersionTranslator{validate: v}
}

// TranslateAll translates payloads in order and stops at the first failure.
func (t *VersionTranslator) TranslateAll(surveyID string, payloads []map[string]any) ([]models.StoredVersion, error) {
	out := make([]models.StoredVersion, 0, len(payloads))
	for i, p := range payloads {
		v, err := t.Translate(surveyID, i, p)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Translate converts the payload at position index of a request.
func (t *VersionTranslator) Translate(surveyID string, index int, payload map[string]any) (models.StoredVersion, error) {
	fail := func(field, reason string) error {
		return &ValidationError{Index: index, Field: field, Reason: reason}
	}
	if payload == nil {
		return models.StoredVersion{}, fail("", "must be an object")
	}

	version, err := coerceVersion(payload["version"])
	if err != nil {
		return models.StoredVersion{}, fail("version", err.Error())
	}

	cfg, err := t.decodeConfig(payload["config"])
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Index = index
			return models.StoredVersion{}, ve
		}
		return models.StoredVersion{}, fail("config", err.Error())
	}

	var prompt *string
	switch p := payload["prompt"].(type) {
	case nil:
	case string:
		prompt = &p
	default:
		return models.StoredVersion{}, fail("prompt", fmt.Sprintf("must be a string, got %s", jsonKind(p)))
	}

	ts, err := parseTimestamp(payload["timestamp"])
	if err != nil {
		return models.StoredVersion{}, fail("timestamp", err.Error())
	}

	return models.StoredVersion{
		Version:   version,
		VersionID: ident.VersionID(surveyID, version),
		Config:    cfg,
		Prompt:    prompt,
		Timestamp: ts,
	}, nil
}

func (t *VersionTranslator) decodeConfig(raw any) (models.SurveyConfig, error) {
	var cfg models.SurveyConfig
	if raw == nil {
		return cfg, errors.New("is required")
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return cfg, fmt.Errorf("cannot be encoded: %v", err)
	}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&cfg); err != nil {
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			field := "config"
			if te.Field != "" {
				field += "." + te.Field
			}
			return cfg, &ValidationError{Field: field, Reason: fmt.Sprintf("must be %s, got %s", jsonTypeName(te.Type), te.Value)}
		}
		return cfg, err
	}
	if err := t.validate.Struct(cfg); err != nil {
		var fes validator.ValidationErrors
		if errors.As(err, &fes) && len(fes) > 0 {
			fe := fes[0]
			return cfg, &ValidationError{Field: configPath(fe.Namespace()), Reason: validationReason(fe)}
		}
		return cfg, err
	}
	return cfg, nil
}

// configPath replaces the struct name at the head of a validator namespace.
func configPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return "config." + rest
	}
	return "config"
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// coerceVersion accepts integral numbers and decimal numeric strings.
func coerceVersion(v any) (int, error) {
	var (
		i   int
		err error
	)
	switch n := v.(type) {
	case nil:
		return 0, errors.New("is required")
	case bool:
		return 0, errors.New("must be an integer, got boolean")
	case string:
		if i, err = strconv.Atoi(strings.TrimSpace(n)); err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", n)
		}
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n != math.Trunc(n) {
			return 0, fmt.Errorf("must be an integer, got %v", n)
		}
		i = int(n)
	default:
		if i, err = cast.ToIntE(v); err != nil {
			return 0, fmt.Errorf("must be an integer, got %s", jsonKind(v))
		}
	}
	if i < 1 {
		return 0, fmt.Errorf("must be at least 1, got %d", i)
	}
	return i, nil
}

// parseTimestamp reads ISO-8601 strings, Unix epochs (seconds, or
// milliseconds above epochMillisThreshold) and time.Time values.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, errors.New("is required")
	case time.Time:
		return t.UTC(), nil
	case bool:
		return time.Time{}, errors.New("must be a date-time string or epoch number, got boolean")
	case string:
		s := strings.TrimSpace(t)
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return ts.UTC(), nil
		}
		for _, layout := range localLayouts {
			if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as a date-time", t)
	}

	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("must be a date-time string or epoch number, got %s", jsonKind(v))
	}
	if math.Abs(f) > epochMillisThreshold {
		f /= 1000
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC(), nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if _, err := cast.ToFloat64E(v); err == nil {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func jsonTypeName(t reflect.Type) string {
	if t == nil {
		return "a valid value"
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice, reflect.Array:
		return "an array"
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.Ptr:
		return jsonTypeName(t.Elem())
	}
	return t.String()
}
