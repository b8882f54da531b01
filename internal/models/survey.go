package models

import "time"

// QuestionType enumerates the input widgets a question can render as.
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
	QuestionNumber   QuestionType = "number"
	QuestionSelect   QuestionType = "select"
	QuestionRadio    QuestionType = "radio"
	QuestionCheckbox QuestionType = "checkbox"
	QuestionRating   QuestionType = "rating"
	QuestionDate     QuestionType = "date"
)

// ConditionOperator is the comparison a Condition applies to an answer.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "notEquals"
	OpIn          ConditionOperator = "in"
	OpNotIn       ConditionOperator = "notIn"
	OpGt          ConditionOperator = "gt"
	OpLt          ConditionOperator = "lt"
	OpContains    ConditionOperator = "contains"
	OpNotContains ConditionOperator = "notContains"
	OpIsTruthy    ConditionOperator = "isTruthy"
	OpIsFalsy     ConditionOperator = "isFalsy"
)

// Condition references another question's answer. Conditions are stored for
// the front end and never evaluated server side.
type Condition struct {
	QuestionID string            `json:"questionId" validate:"required"`
	Operator   ConditionOperator `json:"operator" validate:"required,oneof=equals notEquals in notIn gt lt contains notContains isTruthy isFalsy"`
	Value      any               `json:"value,omitempty"`
}

// VisibilityRule combines conditions: all (and), any (or), none (nor).
// An empty clause is kept distinct from an absent one.
type VisibilityRule struct {
	All  []Condition `json:"all,omitzero" validate:"omitempty,dive"`
	Any  []Condition `json:"any,omitzero" validate:"omitempty,dive"`
	None []Condition `json:"none,omitzero" validate:"omitempty,dive"`
}

type ValidationRules struct {
	Required    *bool    `json:"required,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
	Pattern     *string  `json:"pattern,omitempty"`
	MinSelected *int     `json:"minSelected,omitempty"`
	MaxSelected *int     `json:"maxSelected,omitempty"`
	MaxStars    *int     `json:"maxStars,omitempty"`
}

type OptionItem struct {
	Value string `json:"value" validate:"required"`
	Label string `json:"label" validate:"required"`
}

type Question struct {
	ID           string           `json:"id" validate:"required"`
	Type         QuestionType     `json:"type" validate:"required,oneof=text textarea number select radio checkbox rating date"`
	Label        string           `json:"label" validate:"required"`
	Description  *string          `json:"description,omitempty"`
	Placeholder  *string          `json:"placeholder,omitempty"`
	DefaultValue any              `json:"defaultValue,omitempty"`
	VisibleIf    *VisibilityRule  `json:"visibleIf,omitempty"`
	Validation   *ValidationRules `json:"validation,omitempty"`
	Options      []OptionItem     `json:"options,omitzero" validate:"omitempty,dive"`
}

type Section struct {
	ID          string          `json:"id" validate:"required"`
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	VisibleIf   *VisibilityRule `json:"visibleIf,omitempty"`
	Questions   []Question      `json:"questions" validate:"required,dive"`
}

// SurveyConfig is one snapshot of a survey's question layout.
type SurveyConfig struct {
	Title       *string        `json:"title,omitempty"`
	Description *string        `json:"description,omitempty"`
	Meta        map[string]any `json:"meta,omitzero"`
	Sections    []Section      `json:"sections" validate:"required,dive"`
}

// StoredVersion is a translated, immutable version of a survey.
type StoredVersion struct {
	Version   int          `json:"version"`
	VersionID string       `json:"versionId"`
	Config    SurveyConfig `json:"config"`
	Prompt    *string      `json:"prompt,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// StoredSurvey is the aggregate persisted under a unique SurveyID.
// Versions keep submission order and may repeat a version number.
type StoredSurvey struct {
	SurveyID  string          `json:"surveyId"`
	CreatedAt time.Time       `json:"createdAt"`
	Versions  []StoredVersion `json:"versions"`
}

// FindVersion returns the first stored entry numbered version.
func (s *StoredSurvey) FindVersion(version int) (*StoredVersion, bool) {
	for i := range s.Versions {
		if s.Versions[i].Version == version {
			return &s.Versions[i], true
		}
	}
	return nil, false
}

// Title is the title of the last stored version, "Untitled" when the
// survey holds no versions and nil when that version has no title.
func (s *StoredSurvey) Title() *string {
	if len(s.Versions) == 0 {
		untitled := "Untitled"
		return &untitled
	}
	return s.Versions[len(s.Versions)-1].Config.Title
}
