package stats

import (
	"net/http"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// Handler exposes the statistics endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the routes under rg. rg must run the user middleware.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/stats", h.GetStats)
	rg.GET("/stats/streak", h.GetStreak)
}

// GetStats handles GET /api/stats
func (h *Handler) GetStats(c *gin.Context) {
	snap, err := h.svc.Stats(c.Request.Context(), user.CurrentID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetStreak handles GET /api/stats/streak
func (h *Handler) GetStreak(c *gin.Context) {
	streak, err := h.svc.Streak(c.Request.Context(), user.CurrentID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streak": streak})
}
