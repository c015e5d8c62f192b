package photos

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"skincare-backend/internal/shared/server/middleware"
	"skincare-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches skin photo routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/skin-photos", h.upload)
	rg.GET("/skin-photos", h.list)
	rg.GET("/skin-photos/latest", h.latest)
	rg.GET("/skin-photos/:id", h.get)
	rg.PATCH("/skin-photos/:id/metadata", h.updateMetadata)
	rg.DELETE("/skin-photos/:id", h.remove)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("photo")
	if err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "photo is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "unable to read photo", nil)
		return
	}
	defer file.Close()

	takenAt := time.Time{}
	if v := c.PostForm("taken_at"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "taken_at must be RFC3339", nil)
			return
		}
		takenAt = parsed
	}

	metadata := Metadata{SkinType: c.PostForm("skin_type")}
	if v := c.PostForm("skin_concerns"); v != "" {
		if err := json.Unmarshal([]byte(v), &metadata.SkinConcerns); err != nil {
			metadata.SkinConcerns = strings.Split(v, ",")
		}
	}

	photo, err := h.Svc.Upload(c.Request.Context(), userID, fileHeader.Filename, file, takenAt, metadata)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "photo must be an image", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload photo", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toResponse(photo))
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	photo, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "photo not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch photo", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(photo))
}

func (h *Handler) latest(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	photo, err := h.Svc.Latest(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "no photos uploaded yet", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch photo", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(photo))
}

func (h *Handler) list(c *gin.Context) {
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
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	list, err := h.Svc.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list photos", nil)
		return
	}

	resp := make([]gin.H, 0, len(list))
	for _, photo := range list {
		resp = append(resp, toResponse(photo))
	}

	respond.JSON(c, http.StatusOK, resp)
}

type updateMetadataRequest struct {
	SkinType     string   `json:"skinType"`
	SkinConcerns []string `json:"skinConcerns"`
}

func (h *Handler) updateMetadata(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	var req updateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "invalid request body", nil)
		return
	}

	photo, err := h.Svc.UpdateMetadata(c.Request.Context(), userID, c.Param("id"), Metadata{
		SkinType:     req.SkinType,
		SkinConcerns: req.SkinConcerns,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "photo not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to update photo", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toResponse(photo))
}

func (h *Handler) remove(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	if err := h.Svc.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "photo not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete photo", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{"message": "Photo deleted successfully"})
}

func toResponse(p Photo) gin.H {
	return gin.H{
		"photoId":      p.ID,
		"filePath":     p.FilePath,
		"mimeType":     p.MimeType,
		"sizeBytes":    p.SizeBytes,
		"takenAt":      p.TakenAt,
		"skinType":     p.Metadata.SkinType,
		"skinConcerns": p.Metadata.SkinConcerns,
		"uploadedAt":   p.CreatedAt,
	}
}
