package middlewares

import (
	"net/http"
	"strings"

	"github.com/geocoder89/housepoints/internal/actorctx"
	"github.com/geocoder89/housepoints/internal/auth"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

const (
	ctxUserKey   = "auth.user"
	CtxRequestID = "request_id"
)

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":      "unauthorized",
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	return raw, raw != ""
}

// SetUser stashes the session user on both the gin context and the request context,
// so services and the slog handler see the same actor.
func SetUser(c *gin.Context, u *user.User) {
	c.Set(ctxUserKey, u)
	c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), u))
}

func attach(c *gin.Context, claims *auth.Claims) {
	SetUser(c, claims.User())
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		attach(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the viewer when a valid token is sent and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		raw, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing or invalid Authorization header")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired access token")
			return
		}

		attach(c, claims)
		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func UserFromContext(c *gin.Context) (*user.User, bool) {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*user.User)
	return u, ok && u != nil
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	u, ok := UserFromContext(c)
	if !ok || u.ID == "" {
		return "", false
	}
	return u.ID, true
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	u, ok := UserFromContext(c)
	if !ok {
		return "", false
	}
	return u.Role, u.Role != ""
}

// TokenFromQuery lets browser websocket clients, which cannot set headers, pass the
// access token as a query parameter. An explicit Authorization header wins.
func TokenFromQuery(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if raw := strings.TrimSpace(c.Query(param)); raw != "" {
				c.Request.Header.Set("Authorization", "Bearer "+raw)
			}
		}
		c.Next()
	}
}
