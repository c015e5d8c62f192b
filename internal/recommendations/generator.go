package recommendations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"skincare-backend/internal/analysis"
	"skincare-backend/internal/products"
	"skincare-backend/internal/shared/telemetry"
)

// Suggestion texts attached to every recommendation.
var baseSuggestions = []string{
	"Use a moisturizing cream twice a day",
	"Avoid hot water when washing your face",
	"Drink more water",
}

var baseAvoidIngredients = []string{"alcohol", "fragrance"}

// Reason string attached to a hydrating product pick.
const drySkinReason = "Suitable for dry skin"

// Generator derives recommendations from completed analyses. Given the
// same analysis and catalog it produces the same recommendation
// content, so re-running it only appends an identical record.
type Generator struct {
	Repo     Repo
	Products products.Repo
}

var _ analysis.Recommender = (*Generator)(nil)

// GenerateForAnalysis builds and stores a recommendation for one
// completed analysis. Called by the worker right after the request
// ledger records completion.
func (g *Generator) GenerateForAnalysis(ctx context.Context, a analysis.Analysis) error {
	rec := Recommendation{
		ID:         uuid.NewString(),
		UserID:     a.UserID,
		AnalysisID: a.ID,
		Details: Details{
			Suggestions:      append([]string(nil), baseSuggestions...),
			SkinIssues:       append([]string(nil), a.Result.Issues...),
			AvoidIngredients: append([]string(nil), baseAvoidIngredients...),
		},
		CreatedAt: time.Now().UTC(),
	}

	if a.Result.SkinCondition[analysis.ConditionHydration] < 50 {
		product, err := g.Products.FindOne(ctx, products.Filter{
			SkinTypeTarget: "dry",
			SkinConcern:    "Dryness",
		})
		switch {
		case err == nil:
			rec.Products = append(rec.Products, RecommendedProduct{
				ProductID: product.ID,
				Name:      product.Name,
				Brand:     product.Brand,
				Reason:    drySkinReason,
			})
		case errors.Is(err, products.ErrNotFound):
			// Text-only recommendation when the catalog has no match.
			telemetry.Info("recommendation.no_product_match", map[string]any{
				"user_id":     a.UserID,
				"analysis_id": a.ID,
			})
		default:
			return err
		}
	}

	return g.Repo.Create(ctx, rec)
}
