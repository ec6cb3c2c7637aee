package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openexcavate/fieldbook-backend/internal/clients/postgrest"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/apierr"
	"github.com/openexcavate/fieldbook-backend/internal/pkg/httpx"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// RespondUpstreamError maps a failed upstream call onto our response,
// keeping the upstream status when it is a client error.
func RespondUpstreamError(c *gin.Context, err error) {
	status := http.StatusBadGateway
	code := "data_api"
	if sc := httpx.StatusCodeOf(err); sc >= 400 && sc < 500 {
		status = sc
	}
	var appErr *apierr.Error
	if errors.As(err, &appErr) && appErr.Code != "" {
		code = appErr.Code
	}
	var pgErr *postgrest.Error
	if errors.As(err, &pgErr) && pgErr.Payload.Code != "" {
		code = pgErr.Payload.Code
	}
	RespondError(c, status, code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
