package tracking

import (
	"net/http"

	"github.com/SlpAus/mediashelf-backend/internal/catalog"
	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/SlpAus/mediashelf-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// --- Request models ---

type addRequest struct {
	Media   *catalog.Descriptor `json:"media"`
	MediaID string              `json:"mediaId"`
	Status  string              `json:"status"`
}

type progressRequest struct {
	Progress *int   `json:"progress" binding:"required"`
	Status   string `json:"status"`
}

type episodesRequest struct {
	Watched *int   `json:"watched" binding:"required"`
	Total   *int   `json:"total" binding:"required"`
	Status  string `json:"status"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ratingRequest struct {
	Rating *int `json:"rating" binding:"required"`
}

// Handler exposes the library API.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the library routes under rg. rg must run the user middleware.
func (h *Handler) Register(rg *gin.RouterGroup) {
	lib := rg.Group("/library")
	lib.GET("", h.List)
	lib.POST("", h.Add)
	lib.GET("/:mediaId", h.Get)
	lib.DELETE("/:mediaId", h.Remove)
	lib.PUT("/:mediaId/progress", h.SetProgress)
	lib.PUT("/:mediaId/episodes", h.SetEpisodes)
	lib.PUT("/:mediaId/status", h.SetStatus)
	lib.PUT("/:mediaId/rating", h.SetRating)
}

func parseOptionalStatus(op, raw string) (*Status, error) {
	if raw == "" {
		return nil, nil
	}
	s, err := ParseStatus(raw)
	if err != nil {
		return nil, apperr.Validation(op, "%s", err.Error())
	}
	return &s, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}

// List handles GET /api/library?status=
func (h *Handler) List(c *gin.Context) {
	status, err := parseOptionalStatus("tracking.list", c.Query("status"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	links, err := h.svc.List(c.Request.Context(), user.CurrentID(c), status)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": links})
}

// Add handles POST /api/library
func (h *Handler) Add(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status := Planned
	if req.Status != "" {
		s, err := ParseStatus(req.Status)
		if err != nil {
			apperr.Respond(c, apperr.Validation("tracking.add_to_list", "%s", err.Error()))
			return
		}
		status = s
	}

	ctx := c.Request.Context()
	userID := user.CurrentID(c)
	var (
		link *Link
		err  error
	)
	switch {
	case req.Media != nil:
		link, err = h.svc.AddToList(ctx, userID, *req.Media, status)
	case req.MediaID != "":
		link, err = h.svc.AddCatalogEntry(ctx, userID, req.MediaID, status)
	default:
		err = apperr.Validation("tracking.add_to_list", "media or mediaId is required")
	}
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// Get handles GET /api/library/:mediaId
func (h *Handler) Get(c *gin.Context) {
	link, err := h.svc.Get(c.Request.Context(), user.CurrentID(c), c.Param("mediaId"))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// Remove handles DELETE /api/library/:mediaId
func (h *Handler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), user.CurrentID(c), c.Param("mediaId")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetProgress handles PUT /api/library/:mediaId/progress
func (h *Handler) SetProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := parseOptionalStatus("tracking.set_progress", req.Status)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.respond(c)(h.svc.SetProgress(c.Request.Context(), user.CurrentID(c), c.Param("mediaId"), *req.Progress, status))
}

// SetEpisodes handles PUT /api/library/:mediaId/episodes
func (h *Handler) SetEpisodes(c *gin.Context) {
	var req episodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := parseOptionalStatus("tracking.set_episodes", req.Status)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	h.respond(c)(h.svc.SetEpisodes(c.Request.Context(), user.CurrentID(c), c.Param("mediaId"), *req.Watched, *req.Total, status))
}

// SetStatus handles PUT /api/library/:mediaId/status
func (h *Handler) SetStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	status, err := ParseStatus(req.Status)
	if err != nil {
		apperr.Respond(c, apperr.Validation("tracking.set_status", "%s", err.Error()))
		return
	}
	h.respond(c)(h.svc.SetStatus(c.Request.Context(), user.CurrentID(c), c.Param("mediaId"), status))
}

// SetRating handles PUT /api/library/:mediaId/rating
func (h *Handler) SetRating(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	h.respond(c)(h.svc.SetRating(c.Request.Context(), user.CurrentID(c), c.Param("mediaId"), *req.Rating))
}

func (h *Handler) respond(c *gin.Context) func(*Link, error) {
	return func(link *Link, err error) {
		if err != nil {
			apperr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, link)
	}
}
