package middleware

import (
	"net/http"
	"strings"

	"tripbook/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	userRoleKey    = "userRole"
	userSubjectKey = "userSubject"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	ParseToken(raw string) (domain.RequestContext, error)
}

// BearerAuth requires a valid "Authorization: Bearer <token>" header and puts
// the token's subject and role on the context for RequireRoles.
func BearerAuth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "token tidak ditemukan",
				"request_id": GetRequestID(c),
			})
			return
		}
		rc, err := parser.ParseToken(strings.TrimSpace(header[7:]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      err.Error(),
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Set(userSubjectKey, rc.Subject)
		c.Set(userRoleKey, rc.Role)
		c.Next()
	}
}

// CurrentUser returns the authenticated subject and role, if any.
func CurrentUser(c *gin.Context) domain.RequestContext {
	return domain.RequestContext{Subject: c.GetString(userSubjectKey), Role: c.GetString(userRoleKey)}
}
