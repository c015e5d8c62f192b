package recommendations

import "time"

// Details is the structured payload of a recommendation.
type Details struct {
	Suggestions      []string `json:"recommendations"`
	SkinIssues       []string `json:"skin_issues"`
	AvoidIngredients []string `json:"avoid_ingredients"`
}

// RecommendedProduct is a catalog reference annotated with the reason
// it was attached.
type RecommendedProduct struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Brand     string `json:"brand,omitempty"`
	Reason    string `json:"reason"`
}

// Recommendation is derived from one completed analysis. Append-only;
// a user accumulates a history of them.
type Recommendation struct {
	ID         string               `json:"id"`
	UserID     string               `json:"userId"`
	AnalysisID string               `json:"analysisId"`
	Details    Details              `json:"details"`
	Products   []RecommendedProduct `json:"products"`
	CreatedAt  time.Time            `json:"createdAt"`
}
