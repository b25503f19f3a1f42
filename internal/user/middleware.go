package user

import (
	"net/http"
	"strings"
	"time"

	"github.com/SlpAus/mediashelf-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
)

const (
	CookieName   = "session"
	CookieMaxAge = int(SessionTTL / time.Second)
	UserIDKey    = "userID"
	RoleKey      = "userRole"
)

// LoadUserMiddleware reads the session from the Authorization header or the
// session cookie and stores the acting user in the gin context.
// A missing or invalid session leaves the request anonymous.
func LoadUserMiddleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			tok, _ = c.Cookie(CookieName)
		}
		if tok != "" {
			if p, err := svc.Authenticate(tok); err == nil {
				c.Set(UserIDKey, p.UserID)
				c.Set(RoleKey, Role(p.Role))
			}
		}
		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentID(c) == "" {
			apperr.Respond(c, apperr.Unauthorized(c.FullPath()))
			return
		}
		c.Next()
	}
}

// RequireRole rejects requests whose session does not carry role.
func RequireRole(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentID(c) == "" {
			apperr.Respond(c, apperr.Unauthorized(c.FullPath()))
			return
		}
		if r, _ := c.Get(RoleKey); r != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// CurrentID returns the acting user's id, or "" for anonymous requests.
func CurrentID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
