package products

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skincare-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the catalog repo.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterRoutes attaches product routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/products", h.list)
	rg.GET("/products/:id", h.get)
	rg.POST("/products", h.create)
}

type createProductRequest struct {
	Name               string   `json:"name"`
	Brand              string   `json:"brand"`
	ImagePath          string   `json:"imagePath"`
	Category           string   `json:"category"`
	Ingredients        []string `json:"ingredients"`
	Description        string   `json:"description"`
	Rating             float64  `json:"rating"`
	SkinTypeTarget     string   `json:"skinTypeTarget"`
	SkinConcernsTarget []string `json:"skinConcernsTarget"`
}

func (h *Handler) create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "invalid request body", nil)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "name is required", nil)
		return
	}
	if req.Rating < 0 || req.Rating > 5 {
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", "rating must be between 0 and 5", nil)
		return
	}

	product := Product{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Brand:              strings.TrimSpace(req.Brand),
		ImagePath:          req.ImagePath,
		Category:           strings.TrimSpace(req.Category),
		Ingredients:        req.Ingredients,
		Description:        req.Description,
		Rating:             req.Rating,
		SkinTypeTarget:     strings.TrimSpace(req.SkinTypeTarget),
		SkinConcernsTarget: req.SkinConcernsTarget,
		CreatedAt:          time.Now().UTC(),
	}

	if err := h.Repo.Create(c.Request.Context(), product); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create product", nil)
		return
	}

	respond.JSON(c, http.StatusCreated, product)
}

func (h *Handler) get(c *gin.Context) {
	product, err := h.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "product not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch product", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, product)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}

	list, err := h.Repo.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list products", nil)
		return
	}
	if list == nil {
		list = []Product{}
	}

	respond.JSON(c, http.StatusOK, list)
}
