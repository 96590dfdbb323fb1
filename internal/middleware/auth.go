package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskify/internal/services"
)

// SubjectKey is the gin context key holding the verified owner identifier.
const SubjectKey = "user_id"

// AuthRequired verifies the bearer credential and stores its subject in the
// context. All failures are 401; the reason is never detailed beyond the two
// uniform messages, and handlers are never reached without a subject.
func AuthRequired(verifier services.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
			return
		}

		subject, err := verifier.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(SubjectKey, subject)
		c.Next()
	}
}

// Subject returns the verified owner identifier set by AuthRequired.
func Subject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}
