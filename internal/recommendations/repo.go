package recommendations

import "context"

// Repo defines persistence operations for recommendations.
type Repo interface {
	Create(ctx context.Context, rec Recommendation) error
	GetByID(ctx context.Context, userID, recID string) (Recommendation, error)
	GetByAnalysisID(ctx context.Context, userID, analysisID string) (Recommendation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Recommendation, error)
	LatestByUser(ctx context.Context, userID string) (Recommendation, error)
}
