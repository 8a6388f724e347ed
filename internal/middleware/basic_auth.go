package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
	"github.com/noah-isme/alumnos-api/pkg/logger"
	"github.com/noah-isme/alumnos-api/pkg/response"
)

// ContextUserKey is the gin context key storing the authenticated username.
const ContextUserKey = logger.UserKey

type authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// BasicAuth protects routes by requiring HTTP Basic credentials accepted by auth.
func BasicAuth(auth authenticator, realm string) gin.HandlerFunc {
	challenge := fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm)
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", challenge)
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if err := auth.Authenticate(c.Request.Context(), username, password); err != nil {
			c.Header("WWW-Authenticate", challenge)
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, username)
		c.Next()
	}
}

// CurrentUser returns the username set by BasicAuth.
func CurrentUser(c *gin.Context) string {
	return c.GetString(ContextUserKey)
}
