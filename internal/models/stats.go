package models

import "time"

type SurveySummary struct {
	SurveyID     string    `json:"surveyId"`
	VersionCount int       `json:"versionCount"`
	CreatedAt    time.Time `json:"createdAt"`
	Title        *string   `json:"title"`
}

type StorageStats struct {
	TotalSurveys     int             `json:"totalSurveys"`
	TotalVersions    int             `json:"totalVersions"`
	StorageSizeBytes int             `json:"storageSizeBytes"`
	StorageSizeMB    string          `json:"storageSizeMB"`
	Surveys          []SurveySummary `json:"surveys"`
}
