package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/papapumpkin/lanes/internal/board"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// statusFor maps an engine error to its HTTP status code.
func statusFor(err error) int {
	switch board.KindOf(err) {
	case board.ErrNotFound:
		return http.StatusNotFound
	case board.ErrInvalidInput:
		return http.StatusBadRequest
	case board.ErrCorruptManifest:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error response.
func (s *Server) fail(c echo.Context, err error) error {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if kind := board.KindOf(err); kind != nil {
		resp.Kind = kind.Error()
	}
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithField("uri", c.Request().RequestURI).Error("request failed")
	}
	return c.JSON(status, resp)
}
