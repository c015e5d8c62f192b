package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"skincare-backend/internal/analysis"
	"skincare-backend/internal/bootstrap"
	"skincare-backend/internal/photos"
	"skincare-backend/internal/products"
	"skincare-backend/internal/recommendations"
	"skincare-backend/internal/shared/config"
	"skincare-backend/internal/shared/metrics"
	"skincare-backend/internal/shared/server/middleware"
	"skincare-backend/internal/shared/server/respond"
	"skincare-backend/internal/trends"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, app *bootstrap.App) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(cfg.Env),
	)

	photoHandler := photos.NewHandler(app.Photos)
	productHandler := products.NewHandler(app.Products)
	recHandler := recommendations.NewHandler(app.Recommendations)
	trendsHandler := trends.NewHandler(app.Trends)
	analysisHandler := analysis.NewHandler(app.Analysis)
	analysisHandler.Timeline = trendsHandler.TimelineHandler
	analysisHandler.Recommendation = func(ctx context.Context, userID, analysisID string) (any, bool) {
		rec, err := app.Recommendations.GetByAnalysisID(ctx, userID, analysisID)
		if err != nil {
			return nil, false
		}
		return rec, true
	}

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())

	photoHandler.RegisterRoutes(api)
	productHandler.RegisterRoutes(api)
	recHandler.RegisterRoutes(api)
	analysisHandler.RegisterRoutes(api)
	trendsHandler.RegisterRoutes(api)

	// Status polling gets its own rate budget so a tight poll loop
	// cannot starve the rest of the API.
	polling := api.Group("")
	polling.Use(middleware.RateLimit(middleware.RateLimitConfig{
		DefaultGroup: "POLL",
		Rules: map[string]middleware.RateLimitRule{
			"POLL": {Rate: 2, Burst: 10},
		},
	}))
	analysisHandler.RegisterPollingRoutes(polling)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
