package jwttoken

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/middleware/requesttime"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AccessTokenClaims are carried by short-lived bearer tokens.
type AccessTokenClaims struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	Type         string `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims identify the session a refresh token belongs to.
type RefreshTokenClaims struct {
	UserID       string `json:"user_id"`
	SessionID    string `json:"session_id"`
	TokenVersion int    `json:"token_version"`
	Type         string `json:"typ"`
	jwt.RegisteredClaims
}

// Subject is the identity a token pair is minted for.
type Subject struct {
	UserID       id.UserID
	Email        string
	Role         id.Role
	TokenVersion int
}

// TokenPair is returned to clients after login, activation, and refresh.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	ExpiresIn        int64     `json:"expiresIn"`
	RefreshExpiresAt time.Time `json:"-"`
}

// Config holds signing material and lifetimes. Access and refresh tokens use distinct secrets.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// JWTService handles JWT creation and validation
type JWTService struct {
	accessKey  []byte
	refreshKey []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTService(cfg Config) *JWTService {
	return &JWTService{
		accessKey:  []byte(cfg.AccessSecret),
		refreshKey: []byte(cfg.RefreshSecret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

// RefreshTTL is the lifetime of issued refresh tokens and therefore of sessions.
func (s *JWTService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssuePair mints an access token and a refresh token bound to sessionID.
func (s *JWTService) IssuePair(ctx context.Context, sub Subject, sessionID id.SessionID) (*TokenPair, error) {
	access, err := s.GenerateAccessToken(ctx, sub)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.GenerateRefreshToken(ctx, sub, sessionID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *JWTService) GenerateAccessToken(ctx context.Context, sub Subject) (string, error) {
	now := requesttime.Now(ctx)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessTokenClaims{
		UserID:       sub.UserID.String(),
		Email:        sub.Email,
		Role:         string(sub.Role),
		TokenVersion: sub.TokenVersion,
		Type:         tokenTypeAccess,
		RegisteredClaims: s.registered(sub.UserID, now, s.accessTTL),
	})
	signed, err := token.SignedString(s.accessKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	return signed, nil
}

func (s *JWTService) GenerateRefreshToken(ctx context.Context, sub Subject, sessionID id.SessionID) (string, time.Time, error) {
	now := requesttime.Now(ctx)
	registered := s.registered(sub.UserID, now, s.refreshTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshTokenClaims{
		UserID:           sub.UserID.String(),
		SessionID:        sessionID.String(),
		TokenVersion:     sub.TokenVersion,
		Type:             tokenTypeRefresh,
		RegisteredClaims: registered,
	})
	signed, err := token.SignedString(s.refreshKey)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign refresh token")
	}
	return signed, registered.ExpiresAt.Time, nil
}

func (s *JWTService) registered(userID id.UserID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    s.issuer,
		Audience:  []string{s.audience},
		ID:        uuid.NewString(),
	}
}

// ValidateAccessToken verifies signature, algorithm, issuer, audience, expiry and token type.
func (s *JWTService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := new(AccessTokenClaims)
	if err := s.parse(tokenString, claims, s.accessKey); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeAccess {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

// ValidateRefreshToken verifies a refresh token. Access tokens never validate here
// because they are signed with a different key.
func (s *JWTService) ValidateRefreshToken(tokenString string) (*RefreshTokenClaims, error) {
	claims := new(RefreshTokenClaims)
	if err := s.parse(tokenString, claims, s.refreshKey); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeRefresh || claims.SessionID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims, key []byte) error {
	if tokenString == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return key, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return nil
}
