package analysis

import (
	"strings"
	"time"
)

// AnalysisRequest tracks one attempt to analyze a photo.
type AnalysisRequest struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	PhotoID        string         `json:"photoId"`
	Status         Status         `json:"status"`
	AnalysisID     string         `json:"analysisId,omitempty"`
	ErrorMessage   string         `json:"errorMessage,omitempty"`
	AdditionalData map[string]any `json:"additionalData,omitempty"`
	CompletedAt    *time.Time     `json:"completedAt,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Metric is a named bounded measurement attached to an analysis.
type Metric struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	MaxValue float64 `json:"max_value"`
	Unit     string  `json:"unit"`
}

// Result is the structured output of the analysis engine.
type Result struct {
	SkinCondition map[string]float64 `json:"skinCondition"`
	Metrics       []Metric           `json:"metrics"`
	Issues        []string           `json:"skinIssues"`
}

// Analysis is a stored, immutable engine result for one photo.
type Analysis struct {
	ID        string    `json:"id"`
	PhotoID   string    `json:"photoId"`
	UserID    string    `json:"userId"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"createdAt"`
}

// Metric names produced by the engine. The trends aggregator keys its
// polarity table on these.
const (
	MetricHydration   = "Hydration"
	MetricOiliness    = "Oiliness"
	MetricSensitivity = "Sensitivity"
)

// Skin condition keys inside Result.SkinCondition.
const (
	ConditionHydration   = "hydration"
	ConditionOil         = "oil"
	ConditionSensitivity = "sensitivity"
	ConditionConfidence  = "analysis_confidence"
)

// IssueVocabulary is the fixed set of labels the engine may emit.
// Declared user concerns outside this set are ignored.
var IssueVocabulary = []string{
	"Dryness",
	"Oiliness",
	"Acne",
	"Redness",
	"Pigmentation",
	"Wrinkles",
	"Blackheads",
	"Enlarged pores",
	"Uneven texture",
	"Dark circles",
}

// InVocabulary canonicalizes a label against IssueVocabulary,
// case-insensitively. Returns the canonical form and whether it matched.
func InVocabulary(label string) (string, bool) {
	for _, known := range IssueVocabulary {
		if strings.EqualFold(known, label) {
			return known, true
		}
	}
	return "", false
}
