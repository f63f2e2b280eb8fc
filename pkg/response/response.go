package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/snackpdf/pdf-api/pkg/errors"
)

// ErrorBody is the common error payload. Every error response carries at
// least the "error" string; Details holds structured context (limits,
// valid values) on 400/429 class responses.
type ErrorBody struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// JSON sends a success payload as-is.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, ErrorBody{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}
