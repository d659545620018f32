package service

import (
	"context"

	"schoolbridge/pkg/requestcontext"
)

// Observability helpers for logging, auditing, and metrics.

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

// authFailure records a rejected authentication attempt. isError marks failures caused by
// the system rather than the caller.
func (s *Service) authFailure(ctx context.Context, reason string, isError bool, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", "auth_failed", "reason", reason, "log_type", "standard")
	if isError {
		s.logger.ErrorContext(ctx, "auth_failed", args...)
	} else {
		s.logger.WarnContext(ctx, "auth_failed", args...)
	}
	s.metrics.IncrementAuthFailures(reason)
}
