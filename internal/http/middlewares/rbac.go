package middlewares

import (
	"net/http"
	"strconv"

	"github.com/geocoder89/housepoints/internal/access"
	"github.com/geocoder89/housepoints/internal/domain/page"
	"github.com/geocoder89/housepoints/internal/domain/user"
	"github.com/gin-gonic/gin"
)

func abortForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"error": gin.H{
			"code":      "forbidden",
			"message":   message,
			"requestId": c.GetString(CtxRequestID),
		},
	})
}

func (m *AuthMiddleware) RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}
		if role != required {
			abortForbidden(c, string(required)+" role required")
			return
		}
		c.Next()
	}
}

// RequirePageEdit gates item mutations on the :index route param. The board service checks
// again; this only turns requests away before the body is read.
func (m *AuthMiddleware) RequirePageEdit(catalog page.Catalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := UserFromContext(c)
		if !ok {
			abortUnauthorized(c, "Missing identity context")
			return
		}

		idx, err := strconv.Atoi(c.Param("index"))
		if err != nil || !catalog.Contains(idx) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": gin.H{
					"code":      "not_found",
					"message":   "Page not found",
					"requestId": c.GetString(CtxRequestID),
				},
			})
			return
		}

		if !access.CanEdit(u, idx) {
			abortForbidden(c, "Not allowed to edit this page")
			return
		}

		c.Next()
	}
}
