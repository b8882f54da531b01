package models

import "time"

// UserSurveyResponse is one respondent's answers to a survey version.
// Responses are append-only.
type UserSurveyResponse struct {
	ResponseID     string         `json:"responseId"`
	SurveyID       string         `json:"surveyId"`
	VersionID      string         `json:"versionId"`
	RespondentInfo map[string]any `json:"respondentInfo,omitempty"`
	Answers        map[string]any `json:"answers"`
	SubmittedAt    time.Time      `json:"submittedAt"`
	CompletionTime *float64       `json:"completionTime,omitempty"`
}

// SurveyBundle pairs a survey with every response collected for it.
type SurveyBundle struct {
	Survey    StoredSurvey         `json:"survey"`
	Responses []UserSurveyResponse `json:"responses"`
}
