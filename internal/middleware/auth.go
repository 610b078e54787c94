package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/springdom/solace/pkg/response"
)

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// APIKeyAuth gates machine endpoints (webhooks) on the X-API-Key header.
// An empty configured key in development means auth is disabled.
func APIKeyAuth(apiKey string, isDev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isDev && apiKey == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			response.Unauthorized(c, "Missing API key")
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			response.Forbidden(c, "Invalid API key")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Authenticate accepts either a JWT Bearer token or the X-API-Key header.
// API-key callers act with full admin rights; the development bypass for an
// empty configured key is preserved.
func Authenticate(secret, apiKey string, isDev bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isDev && apiKey == "" {
			c.Set("role", "admin")
			c.Set("auth_mode", "dev")
			c.Next()
			return
		}

		if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				if setClaims(c, parts[1], secret) {
					c.Next()
					return
				}
			}
		}

		if provided := c.GetHeader("X-API-Key"); provided != "" {
			if apiKey != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) == 1 {
				c.Set("role", "admin")
				c.Set("auth_mode", "api_key")
				c.Next()
				return
			}
			response.Forbidden(c, "Invalid API key")
			c.Abort()
			return
		}

		response.Unauthorized(c, "Authentication required")
		c.Abort()
	}
}

func setClaims(c *gin.Context, token, secret string) bool {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return false
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return false
	}
	c.Set("user_id", userID)
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
	c.Set("auth_mode", "jwt")
	return true
}

// RequireRole allows the request only when the authenticated role is one
// of allowed.
func RequireRole(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists {
			response.Forbidden(c, "Role not found")
			c.Abort()
			return
		}
		for _, want := range allowed {
			if role.(string) == want {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "Insufficient permissions")
		c.Abort()
	}
}

// UserID returns the authenticated user's id, if any.
func UserID(c *gin.Context) *uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return &id
		}
	}
	return nil
}

// ActorName returns who is acting: the authenticated username, or
// "api-key" for key-authenticated callers.
func ActorName(c *gin.Context) string {
	if v, ok := c.Get("username"); ok {
		if name, ok := v.(string); ok && name != "" {
			return name
		}
	}
	return "api-key"
}
