package analysis

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"skincare-backend/internal/shared/server/middleware"
	"skincare-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the analysis service.
type Handler struct {
	Svc *Service
	// Timeline serves GET /skin-analyses/timeline. It shares a path
	// segment with the :id route, so getAnalysis delegates to it.
	Timeline gin.HandlerFunc
	// Recommendation resolves the recommendation generated for an
	// analysis, if any. Kept as a function so this package does not
	// depend on the recommendations package, which implements
	// Recommender and so imports this one.
	Recommendation func(ctx context.Context, userID, analysisID string) (any, bool)
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group. The
// status endpoint is registered separately so the router can give the
// polling path its own rate budget.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/skin-photos/:id/analyze", h.startAnalysis)
	rg.GET("/skin-analyses", h.listAnalyses)
	rg.GET("/skin-analyses/:id", h.getAnalysis)
}

// RegisterPollingRoutes attaches the poll endpoint.
func (h *Handler) RegisterPollingRoutes(rg *gin.RouterGroup) {
	rg.GET("/analysis-requests/:id/status", h.requestStatus)
}

type startAnalysisRequest struct {
	SkinType     string   `json:"skinType"`
	SkinConcerns []string `json:"skinConcerns"`
}

func (h *Handler) startAnalysis(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	photoID := c.Param("id")
	if photoID == "" {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "photo id is required", nil)
		return
	}

	var body startAnalysisRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "invalid request body", nil)
			return
		}
	}
	var additional map[string]any
	if body.SkinType != "" || len(body.SkinConcerns) > 0 {
		additional = map[string]any{}
		if body.SkinType != "" {
			additional["skin_type"] = body.SkinType
		}
		if len(body.SkinConcerns) > 0 {
			additional["skin_concerns"] = body.SkinConcerns
		}
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	outcome, err := h.Svc.Create(ctx, userID, photoID, additional)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "photo not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start analysis", nil)
		}
		return
	}

	if outcome.ExistingAnalysisID != "" {
		respond.JSON(c, http.StatusOK, gin.H{
			"status":     string(StatusCompleted),
			"analysisId": outcome.ExistingAnalysisID,
			"message":    "Photo has already been analyzed",
		})
		return
	}
	if !outcome.Created {
		respond.JSON(c, http.StatusOK, gin.H{
			"requestId": outcome.Request.ID,
			"status":    string(outcome.Request.Status),
			"message":   "Analysis is already in progress for this photo",
		})
		return
	}

	respond.JSON(c, http.StatusAccepted, gin.H{
		"requestId": outcome.Request.ID,
		"status":    string(outcome.Request.Status),
	})
}

func (h *Handler) requestStatus(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	requestID := c.Param("id")
	if requestID == "" {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "request id is required", nil)
		return
	}

	view, err := h.Svc.Status(c.Request.Context(), userID, requestID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis request not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch request status", nil)
		}
		return
	}

	resp := gin.H{
		"requestId": view.RequestID,
		"status":    string(view.Status),
		"createdAt": view.CreatedAt,
	}
	if view.AnalysisID != "" {
		resp["analysisId"] = view.AnalysisID
	}
	if view.Result != nil {
		resp["result"] = view.Result
	}
	if view.Status == StatusFailed {
		resp["error"] = view.ErrorMessage
	}
	if view.CompletedAt != nil {
		resp["completedAt"] = view.CompletedAt
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) getAnalysis(c *gin.Context) {
	if c.Param("id") == "timeline" && h.Timeline != nil {
		h.Timeline(c)
		return
	}

	userID := middleware.UserIDFromContext(c)
	analysisID := c.Param("id")

	analysis, err := h.Svc.GetAnalysis(c.Request.Context(), userID, analysisID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch analysis", nil)
		}
		return
	}

	resp := toAnalysisResponse(analysis)
	h.attachRecommendation(c, userID, analysis.ID, resp)
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	analyses, err := h.Svc.ListAnalyses(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list analyses", nil)
		return
	}

	resp := make([]gin.H, 0, len(analyses))
	for _, a := range analyses {
		item := toAnalysisResponse(a)
		h.attachRecommendation(c, userID, a.ID, item)
		resp = append(resp, item)
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) attachRecommendation(c *gin.Context, userID, analysisID string, resp gin.H) {
	if h.Recommendation == nil {
		return
	}
	if rec, ok := h.Recommendation(c.Request.Context(), userID, analysisID); ok {
		resp["recommendation"] = rec
	}
}

func toAnalysisResponse(a Analysis) gin.H {
	return gin.H{
		"analysisId":    a.ID,
		"photoId":       a.PhotoID,
		"skinCondition": a.Result.SkinCondition,
		"skinIssues":    a.Result.Issues,
		"metrics":       a.Result.Metrics,
		"createdAt":     a.CreatedAt,
	}
}
