package search

import (
	"net/http"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

// Handler exposes search and trending lookups.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/search", h.Search)
	rg.GET("/trending/:type", h.Trending)
}

// Search handles GET /api/search?q=&type=
func (h *Handler) Search(c *gin.Context) {
	t, err := ParseTypeFilter(c.Query("type"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	results, err := h.svc.Search(c.Request.Context(), c.Query("q"), t)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// Trending handles GET /api/trending/:type
func (h *Handler) Trending(c *gin.Context) {
	t, err := catalog.ParseMediaType(c.Param("type"))
	if err != nil {
		apperr.Respond(c, apperr.Validation("trending", "%s", err.Error()))
		return
	}
	results, err := h.svc.Trending(c.Request.Context(), t)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}
