package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/snackpdf/pdf-api/internal/models"
	"github.com/snackpdf/pdf-api/internal/service"
	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
	"github.com/snackpdf/pdf-api/pkg/response"
)

// ContextUserKey is the gin context key storing the resolved user.
const ContextUserKey = "currentUser"

// Auth protects routes by requiring a valid bearer token backed by a live
// session.
func Auth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "Access token required"))
			c.Abort()
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// OptionalAuth resolves a user when a token is present. A missing token
// continues as guest; a present but invalid token is still rejected.
func OptionalAuth(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		user, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// CurrentUser extracts the authenticated user from the context, nil for
// guests.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
