package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/ageagekun/docqueue/internal/errors"
)

// statusFor maps an application error code to its HTTP status.
func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodePathSecurity:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict, apperrors.ErrCodeStateConflict, apperrors.ErrCodeForeignKey:
		return http.StatusConflict
	case apperrors.ErrCodeResourceExceeded:
		return http.StatusRequestEntityTooLarge
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err with the status its code maps to. Server-side
// failures are logged and their detail is not sent to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		code := apperrors.ErrCodeInternal
		if errors.Is(err, context.Canceled) {
			code = apperrors.ErrCodeCanceled
		}
		appErr = apperrors.Wrap(err, code, "internal error")
	}

	status := statusFor(appErr.Code)
	body := ErrorBody{Error: appErr.Message, Code: string(appErr.Code), Field: appErr.Field}
	switch {
	case appErr.Code == apperrors.ErrCodePathSecurity:
		body.Error = "access denied"
	case status >= http.StatusInternalServerError:
		if logger != nil {
			logger.ErrorContext(r.Context(), "request failed",
				"method", r.Method, "path", r.URL.Path, "code", appErr.Code, "error", err)
		}
	}
	WriteJSON(w, status, body)
}
