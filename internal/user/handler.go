package user

import (
	"net/http"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

type signInRequest struct {
	Username string `json:"username" binding:"required"`
}

// Handler exposes session and profile endpoints.
type Handler struct {
	svc          *Service
	secureCookie bool
}

func NewHandler(svc *Service, secureCookie bool) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie}
}

// Register mounts the routes. authed must already require a user.
func (h *Handler) Register(public, authed *gin.RouterGroup) {
	public.POST("/session", h.SignIn)
	authed.GET("/me", h.Me)
	authed.PUT("/me", h.UpdateMe)
}

// SignIn handles POST /api/session
func (h *Handler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}
	sess, err := h.svc.SignIn(c.Request.Context(), req.Username)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, sess.Token, CookieMaxAge, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, sess)
}

// Me handles GET /api/me
func (h *Handler) Me(c *gin.Context) {
	u, err := h.svc.Profile(c.Request.Context(), CurrentID(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// UpdateMe handles PUT /api/me
func (h *Handler) UpdateMe(c *gin.Context) {
	var upd ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid profile: " + err.Error()})
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), CurrentID(c), upd)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
