package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/alumnos-api/pkg/errors"
)

// ErrorBody is the structured payload returned for every failed request.
type ErrorBody struct {
	Timestamp        time.Time         `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Code             string            `json:"code"`
	Message          string            `json:"message"`
	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
}

// JSON sends a success response.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	status, body := Body(err)
	c.JSON(status, body)
}

// Body translates err into its HTTP status and payload.
func Body(err error) (int, ErrorBody) {
	appErr := appErrors.FromError(err)
	return appErr.Status, ErrorBody{
		Timestamp:        time.Now().UTC(),
		Status:           appErr.Status,
		Error:            appErr.Label,
		Code:             appErr.Code,
		Message:          message(appErr),
		ValidationErrors: appErr.Fields,
	}
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// message exposes the underlying cause for server-side failures.
func message(e *appErrors.Error) string {
	if e.Status >= http.StatusInternalServerError && e.Err != nil && e.Err.Error() != e.Message {
		return e.Error()
	}
	return e.Message
}
