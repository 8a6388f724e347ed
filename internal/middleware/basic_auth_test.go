package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
)

type staticAuth struct {
	user, pass string
}

func (s staticAuth) Authenticate(ctx context.Context, username, password string) error {
	if username == s.user && password == s.pass {
		return nil
	}
	return appErrors.Clone(appErrors.ErrUnauthorized, "invalid credentials")
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BasicAuth(staticAuth{user: "admin", pass: "password123"}, "alumnos"))
	r.GET("/api/alumnos", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUser(c))
	})
	return r
}

func TestBasicAuthMissingCredentials(t *testing.T) {
	w := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/alumnos", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, `Basic realm="alumnos", charset="UTF-8"`, w.Header().Get("WWW-Authenticate"))
	assert.Contains(t, w.Body.String(), `"status":401`)
}

func TestBasicAuthWrongPassword(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/alumnos", nil)
	req.SetBasicAuth("admin", "nope")
	w := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid credentials")
	assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
}

func TestBasicAuthSuccess(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/alumnos", nil)
	req.SetBasicAuth("admin", "password123")
	w := httptest.NewRecorder()
	newAuthRouter().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin", w.Body.String())
}
