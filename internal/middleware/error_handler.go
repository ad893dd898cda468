package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"luckyDraw/domain"
	"luckyDraw/pkg/logger"

	"github.com/labstack/echo/v4"
)

type errorResponse struct {
	Message string `json:"message"`
}

// ErrorHandler maps the domain error taxonomy onto HTTP status codes.
// Unexpected errors never leak their text to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Message: message})
	}
	if err != nil {
		logger.Error("failed to write error response", "error", err)
	}
}

func classify(err error) (int, string) {
	var (
		httpErr *echo.HTTPError
		sysErr  *domain.SystemError
	)

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, fmt.Sprint(httpErr.Message)
	case domain.IsNotFound(err):
		return http.StatusNotFound, err.Error()
	case domain.IsDomainError(err):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &sysErr):
		return http.StatusInternalServerError, sysErr.Message
	default:
		return http.StatusInternalServerError, domain.GenericSystemMessage
	}
}
