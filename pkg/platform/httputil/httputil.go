package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/requestcontext"
)

var developmentMode atomic.Bool

// SetDevelopmentMode toggles exposure of internal error messages and stacks in responses.
func SetDevelopmentMode(on bool) {
	developmentMode.Store(on)
}

// Envelope is the uniform response body for every API endpoint.
type Envelope struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// ErrorBody describes a failed request. Stack is only populated in development mode.
type ErrorBody struct {
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteSuccess writes a success envelope carrying data.
func WriteSuccess(w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: now(),
	})
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	WriteErrorWithData(w, err, nil)
}

// WriteErrorWithData writes an error envelope that also carries data, e.g. per-entry batch results.
func WriteErrorWithData(w http.ResponseWriter, err error, data any) {
	body := &ErrorBody{Code: string(dErrors.CodeInternal)}
	status := http.StatusInternalServerError
	message := "internal server error"

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		status = DomainCodeToHTTPStatus(domainErr.Code)
		body.Code = string(domainErr.Code)
		body.Details = domainErr.Details
		if domainErr.Code != dErrors.CodeInternal && domainErr.Message != "" {
			message = domainErr.Message
		}
	}

	if status == http.StatusInternalServerError && developmentMode.Load() {
		if err != nil {
			message = err.Error()
		}
		body.Stack = string(debug.Stack())
	}

	WriteJSON(w, status, Envelope{
		Success:   false,
		Message:   message,
		Data:      data,
		Error:     body,
		Timestamp: now(),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RequirePrincipal extracts the authenticated caller from context.
// Handlers behind the auth middleware always have one; a missing principal is an internal error.
func RequirePrincipal(ctx context.Context, logger *slog.Logger) (requestcontext.Principal, error) {
	p, ok := requestcontext.GetPrincipal(ctx)
	if !ok || p.UserID.IsNil() {
		if logger != nil {
			logger.ErrorContext(ctx, "principal missing from context despite auth middleware",
				"request_id", requestcontext.RequestID(ctx))
		}
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return p, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
