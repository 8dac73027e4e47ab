package utils

import (
	"beautyhub-backend/apperrors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func RespondWithError(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// RespondWithAppError maps err onto its HTTP status and JSON body. Errors that
// are not *apperrors.Error are logged and reported as internal.
func RespondWithAppError(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
		RespondWithError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	status := apperrors.HTTPStatus(appErr)
	if status >= http.StatusInternalServerError {
		log.Error().Err(appErr).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	body := gin.H{"error": appErr.Message}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	if appErr.Timeout {
		body["timeout"] = true
	}
	if appErr.RetryAfter > 0 {
		secs := int(math.Ceil(appErr.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
		body["retry_after"] = secs
	}
	c.JSON(status, body)
}
