package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/strata-community/internal/service"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{Error: message, Code: code}
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// errorWriter maps service errors onto HTTP responses. Internal error
// details are only exposed outside production.
type errorWriter struct {
	log        *zap.Logger
	production bool
}

func newErrorWriter(log *zap.Logger, production bool) errorWriter {
	if log == nil {
		log = zap.NewNop()
	}
	return errorWriter{log: log, production: production}
}

func (w errorWriter) fail(c echo.Context, err error, what string) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", ve.Error()))
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", what+" not found"))
	}
	w.log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	msg := "Internal server error"
	if !w.production {
		msg = err.Error()
	}
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", msg))
}
