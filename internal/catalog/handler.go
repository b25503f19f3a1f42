package catalog

import (
	"net/http"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

// Handler exposes catalog lookups over HTTP.
type Handler struct {
	resolver *Resolver
}

func NewHandler(resolver *Resolver) *Handler {
	return &Handler{resolver: resolver}
}

// Register mounts the catalog routes under rg.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/media/:id", h.GetMedia)
	rg.POST("/media/resolve", h.ResolveMedia)
}

// GetMedia handles GET /api/media/:id
func (h *Handler) GetMedia(c *gin.Context) {
	entry, err := h.resolver.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// ResolveMedia handles POST /api/media/resolve
func (h *Handler) ResolveMedia(c *gin.Context) {
	var d Descriptor
	if err := c.ShouldBindJSON(&d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media descriptor: " + err.Error()})
		return
	}
	entry, err := h.resolver.Resolve(c.Request.Context(), d)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": entry.ID, "media": entry})
}
