package web

// errors.go renders errors for API clients. The technical error is logged
// with the request ID; the client gets the mapped message, action and code
// from core.MapError.

import (
	"context"
	"errors"
	"net/http"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/logging"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func newErrorResponse(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{Error: msg.Message, Message: msg.Message, Action: msg.Action, Code: msg.Code}
}

// respondError logs err and writes its user-facing form.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.WithFields(r.Context(),
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
	)
	if status >= http.StatusInternalServerError {
		logger.Error("request error", "error", err)
	} else {
		logger.Warn("request rejected", "error", err)
	}

	if errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "30")
	}
	writeJSON(w, status, newErrorResponse(msg))
}

// statusFor picks the HTTP status for known errors, fallback otherwise.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, core.ErrUnknownImportType), errors.Is(err, core.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrMissingColumns):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNoFile), errors.Is(err, core.ErrEmptyFile), errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return fallback
}
