// Package ident produces survey, version and response identifiers.
package ident

import (
	"math/rand/v2"
	"strconv"

	"github.com/google/uuid"
)

const (
	minSurveyID = 1000
	maxSurveyID = 9999
)

// Generator hands out fresh identifiers. Uniqueness of survey ids is not
// guaranteed here; callers check them against the store.
type Generator interface {
	SurveyID() string
	ResponseID() string
}

// Random is the default Generator.
type Random struct{}

func (Random) SurveyID() string   { return NewSurveyID() }
func (Random) ResponseID() string { return NewResponseID() }

// NewSurveyID returns a uniformly chosen 4-digit number as a string.
func NewSurveyID() string {
	return strconv.Itoa(minSurveyID + rand.IntN(maxSurveyID-minSurveyID+1))
}

// VersionID derives the identifier of one version of a survey, e.g. "1232v1".
func VersionID(surveyID string, version int) string {
	return surveyID + "v" + strconv.Itoa(version)
}

// NewResponseID returns a random UUID string.
func NewResponseID() string {
	return uuid.NewString()
}
