// internal/api/response.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "blood-alert-workers/internal/common/errors"
)

// ErrorBody is the JSON shape of every failed API call.
type ErrorBody struct {
	Success bool                   `json:"success"`
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Details string                 `json:"details,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Meta    map[string]interface{} `json:"meta,omitempty"`
}

func respondError(c *gin.Context, err error) {
	stdErr := apperrors.AsStandard(err)
	body := ErrorBody{
		Success: false,
		Error:   string(stdErr.Code),
		Message: stdErr.Message,
		Details: stdErr.Details,
	}
	if f, ok := stdErr.Metadata["field"].(string); ok {
		body.Field = f
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(stdErr.Code), body)
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}
