package response

import (
	"errors"
	"net/http"

	"tradelink/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// OK sends a 200 response with the given body.
// Bodies are written as-is: callers of the signed API contract depend on
// the exact top-level shape (e.g. {"linked":true,"secretRef":"..."}).
func OK(c *gin.Context, body interface{}) {
	c.JSON(http.StatusOK, body)
}

// Error sends an error response. It checks if err is an *apperror.AppError
// and maps it accordingly, otherwise returns a generic 500.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorBody{
			ErrorCode: appErr.Code,
			Message:   appErr.Message,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorBody{
		ErrorCode: "DEP_001",
		Message:   "internal server error",
	})
}
