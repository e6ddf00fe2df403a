package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "antigravity2api-go/internal/errors"
	"antigravity2api-go/internal/httpformat"
	"antigravity2api-go/internal/upstream"
)

// WriteError renders an APIError in the envelope of the surface that
// owns the route. Errors never cross surface envelopes.
func WriteError(c *gin.Context, apiErr *apperrors.APIError) {
	payload, err := apiErr.ToJSON(httpformat.DetectFromContext(c))
	if err != nil {
		c.String(http.StatusInternalServerError, "internal error")
		return
	}
	c.Data(apiErr.HTTPStatus, "application/json", payload)
}

// MapUpstreamError 把上游调用错误换成标准错误，保留原始状态码。
func MapUpstreamError(err error) *apperrors.APIError {
	var upErr *upstream.Error
	if errors.As(err, &upErr) {
		if upErr.Status > 0 {
			return apperrors.MapHTTPError(upErr.Status, []byte(upErr.RawBody))
		}
		return apperrors.MapNetworkError(err)
	}
	return apperrors.New(http.StatusInternalServerError, "server_error", "server_error", err.Error())
}

// NoTokenError is the terminal failure when rotation exhausted every
// credential.
func NoTokenError() *apperrors.APIError {
	return apperrors.New(http.StatusInternalServerError, "no_available_token", "server_error", "no available token")
}

// ValidationError 入站请求体校验失败。
func ValidationError(msg string) *apperrors.APIError {
	return apperrors.New(http.StatusBadRequest, "invalid_request_error", "invalid_request_error", msg)
}
