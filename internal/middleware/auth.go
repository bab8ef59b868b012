package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// Identity is the authenticated caller, resolved from the access token.
type Identity struct {
	UserID int
}

// TokenParser validates an access token and returns the user id it carries.
type TokenParser interface {
	ParseAccessToken(token string) (int, error)
}

func AuthMiddleware(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		// пропускаем preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		userID, err := parser.ParseAccessToken(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(identityKey, Identity{UserID: userID})
		c.Next()
	}
}

// WithIdentity adapts a handler that needs the caller's identity. Requests that
// reach it without one (middleware not mounted) get 401.
func WithIdentity(h func(c *gin.Context, id Identity)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(identityKey)
		id, _ := v.(Identity)
		if !ok || id.UserID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		h(c, id)
	}
}
