package service

import (
	"context"
	"errors"

	"schoolbridge/internal/auth/device"
	"schoolbridge/internal/auth/models"
	jwttoken "schoolbridge/internal/jwt_token"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
	"schoolbridge/pkg/platform/sentinel"
	"schoolbridge/pkg/requestcontext"
	"schoolbridge/pkg/secrets"
)

func subjectOf(user *models.User) jwttoken.Subject {
	return jwttoken.Subject{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}
}

// startSession mints a token pair and persists a session holding the refresh token hash.
func (s *Service) startSession(ctx context.Context, user *models.User) (*models.AuthResult, error) {
	sessionID := id.NewSessionID()
	pair, err := s.tokens.IssuePair(ctx, subjectOf(user), sessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue tokens")
	}

	now := requesttime.Now(ctx)
	session := &models.Session{
		ID:         sessionID,
		UserID:     user.ID,
		TokenHash:  secrets.HashToken(pair.RefreshToken),
		DeviceName: device.DisplayName(requestcontext.UserAgent(ctx)),
		CreatedAt:  now,
		LastUsedAt: now,
		ExpiresAt:  pair.RefreshExpiresAt,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	s.metrics.IncrementActiveSessions(1)

	return &models.AuthResult{
		User:         models.ToProfile(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Refresh exchanges a refresh token for a new pair. The session's stored hash is swapped with
// a compare-and-set, so of several concurrent refreshes with one token exactly one succeeds.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.authFailure(ctx, "invalid_refresh_token", false)
		return nil, errInvalidRefreshToken()
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, errInvalidRefreshToken()
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, errInvalidRefreshToken()
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "user_not_found", false, "user_id", userID.String())
			return nil, errInvalidRefreshToken()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.IsActive || user.TokenVersion != claims.TokenVersion {
		s.authFailure(ctx, "session_revoked", false, "user_id", userID.String())
		return nil, errInvalidRefreshToken()
	}

	now := requesttime.Now(ctx)
	oldHash := secrets.HashToken(refreshToken)
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "session_not_found", false, "user_id", userID.String())
			return nil, errInvalidRefreshToken()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if session.UserID != user.ID || !secrets.TokenHashEqual(session.TokenHash, oldHash) || session.IsExpired(now) {
		s.authFailure(ctx, "stale_refresh_token", false, "user_id", userID.String(), "session_id", sessionID.String())
		return nil, errInvalidRefreshToken()
	}

	pair, err := s.tokens.IssuePair(ctx, subjectOf(user), sessionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue tokens")
	}
	err = s.sessions.Rotate(ctx, sessionID, oldHash, secrets.HashToken(pair.RefreshToken), now, pair.RefreshExpiresAt)
	if err != nil {
		if errors.Is(err, sentinel.ErrStale) || errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "stale_refresh_token", false, "user_id", userID.String(), "session_id", sessionID.String())
			return nil, errInvalidRefreshToken()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rotate session")
	}

	s.metrics.IncrementTokenRefreshes()
	s.logAudit(ctx, "token_refreshed", "user_id", user.ID.String(), "session_id", sessionID.String())
	return &models.AuthResult{
		User:         models.ToProfile(user),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// Logout ends the session holding refreshToken. It always succeeds; unknown tokens and
// store failures are only logged.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	err := s.sessions.DeleteByTokenHash(ctx, secrets.HashToken(refreshToken))
	switch {
	case err == nil:
		s.metrics.DecrementActiveSessions(1)
		s.logAudit(ctx, "session_ended")
	case errors.Is(err, sentinel.ErrNotFound):
	default:
		s.logger.WarnContext(ctx, "logout failed", "error", err)
	}
}

// LogoutAll deletes every session of userID and invalidates outstanding access tokens.
func (s *Service) LogoutAll(ctx context.Context, userID id.UserID) (int, error) {
	deleted, err := s.revokeAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.logAudit(ctx, "sessions_revoked", "user_id", userID.String(), "count", deleted)
	return deleted, nil
}

func (s *Service) revokeAll(ctx context.Context, userID id.UserID) (int, error) {
	deleted, err := s.sessions.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete sessions")
	}
	s.metrics.DecrementActiveSessions(deleted)
	if _, err := s.users.BumpTokenVersion(ctx, userID); err != nil {
		return deleted, translateUserWriteError(err, "failed to revoke tokens")
	}
	return deleted, nil
}

// ListSessions returns the caller's live sessions, most recently used first.
func (s *Service) ListSessions(ctx context.Context, userID id.UserID) ([]*models.SessionSummary, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	now := requesttime.Now(ctx)
	out := make([]*models.SessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		if sess.IsExpired(now) {
			continue
		}
		out = append(out, &models.SessionSummary{
			ID:         sess.ID,
			DeviceName: sess.DeviceName,
			CreatedAt:  sess.CreatedAt,
			LastUsedAt: sess.LastUsedAt,
			ExpiresAt:  sess.ExpiresAt,
		})
	}
	return out, nil
}
