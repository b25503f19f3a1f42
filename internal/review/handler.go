package review

import (
	"net/http"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/user"
	"github.com/gin-gonic/gin"
)

type writeRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Content string `json:"content"`
}

// Handler exposes review endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the review routes. rg must already require a user.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/media/:id/review", h.Get)
	rg.PUT("/media/:id/review", h.Write)
	rg.POST("/media/:id/reviews/:userId/flag", user.RequireRole(user.RoleAdmin), h.Flag)
}

// Get handles GET /api/media/:id/review
func (h *Handler) Get(c *gin.Context) {
	rv, err := h.svc.Get(c.Request.Context(), user.CurrentID(c), c.Param("id"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, rv)
}

// Write handles PUT /api/media/:id/review
func (h *Handler) Write(c *gin.Context) {
	var req writeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	rv, err := h.svc.Write(c.Request.Context(), user.CurrentID(c), c.Param("id"), req.Rating, req.Content)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, rv)
}

// Flag handles POST /api/media/:id/reviews/:userId/flag
func (h *Handler) Flag(c *gin.Context) {
	if err := h.svc.Flag(c.Request.Context(), c.Param("userId"), c.Param("id")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
