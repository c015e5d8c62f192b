package trends

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"skincare-backend/internal/analysis"
	"skincare-backend/internal/shared/server/middleware"
	"skincare-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the trends service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the compare route. The timeline shares its
// path prefix with the single-analysis route, so the analysis handler
// delegates to TimelineHandler instead of a separate registration.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/skin-analyses/compare", h.compare)
}

// TimelineHandler serves GET /skin-analyses/timeline.
func (h *Handler) TimelineHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	periods, err := h.Svc.Timeline(c.Request.Context(), userID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to build timeline", nil)
		return
	}
	if periods == nil {
		periods = []TimelinePeriod{}
	}

	respond.JSON(c, http.StatusOK, gin.H{"timeline": periods})
}

type compareRequest struct {
	AnalysisIDs []string `json:"analysisIds"`
}

func (h *Handler) compare(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "invalid request body", nil)
		return
	}
	if len(req.AnalysisIDs) < 2 {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "at least two analysisIds are required", nil)
		return
	}

	comparison, err := h.Svc.Compare(c.Request.Context(), userID, req.AnalysisIDs)
	if err != nil {
		switch {
		case errors.Is(err, analysis.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "one or more analyses were not found", nil)
		case errors.Is(err, ErrTooFewIDs):
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to compare analyses", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, comparison)
}
