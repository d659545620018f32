package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
	"schoolbridge/pkg/requestcontext"
)

// Service defines the interface for authentication operations.
type Service interface {
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	GoogleAuth(ctx context.Context, req *models.GoogleAuthRequest) (*models.AuthResult, error)
	ValidateActivationToken(ctx context.Context, token string) (*models.ActivationPreview, error)
	ActivateAccount(ctx context.Context, req *models.ActivateRequest) (*models.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error)
	Logout(ctx context.Context, refreshToken string)
	LogoutAll(ctx context.Context, userID id.UserID) (int, error)
	Me(ctx context.Context, userID id.UserID) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID id.UserID, req *models.UpdateProfileRequest) (*models.UserProfile, error)
	ListSessions(ctx context.Context, userID id.UserID) ([]*models.SessionSummary, error)
	SetUserActive(ctx context.Context, actor requestcontext.Principal, userID id.UserID, active bool) (*models.UserProfile, error)
}

// Handler serves the /auth endpoints and account administration.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// RegisterCredentialRoutes registers the unauthenticated endpoints that accept credentials.
// The parent router applies the auth rate limit.
func (h *Handler) RegisterCredentialRoutes(r chi.Router) {
	r.Post("/auth/signup", h.HandleSignup)
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/google", h.HandleGoogle)
}

// RegisterActivationRoutes registers the invitation redemption endpoints.
func (h *Handler) RegisterActivationRoutes(r chi.Router) {
	r.Get("/auth/activate/validate", h.HandleValidateActivation)
	r.Post("/auth/activate", h.HandleActivate)
}

// RegisterTokenRoutes registers refresh and logout, which carry their own credential.
func (h *Handler) RegisterTokenRoutes(r chi.Router) {
	r.Post("/auth/refresh", h.HandleRefresh)
	r.Post("/auth/logout", h.HandleLogout)
}

// RegisterAuthenticated registers the routes that need a bearer token.
// Authentication middleware must be applied by the parent router.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/auth/me", h.HandleMe)
	r.Get("/auth/validate", h.HandleMe)
	r.Patch("/auth/me", h.HandleUpdateProfile)
	r.Get("/auth/sessions", h.HandleListSessions)
	r.Post("/auth/logout-all", h.HandleLogoutAll)
}

// RegisterAdmin registers account administration. The parent router guards it by capability.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Patch("/users/{id}/status", h.HandleSetUserStatus)
}

// HandleSignup implements POST /auth/signup.
// Only visitor self-registration is accepted.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SignupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.auth.Signup(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "signup failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "account created", res)
}

// HandleLogin implements POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.auth.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "login successful", res)
}

// HandleGoogle implements POST /auth/google.
func (h *Handler) HandleGoogle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.GoogleAuthRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.auth.GoogleAuth(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "login successful", res)
}

// HandleValidateActivation implements GET /auth/activate/validate?token=.
func (h *Handler) HandleValidateActivation(w http.ResponseWriter, r *http.Request) {
	token := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("token")))
	preview, err := h.auth.ValidateActivationToken(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "activation token is valid", preview)
}

// HandleActivate implements POST /auth/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.ActivateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.auth.ActivateAccount(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "activation failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "account activated", res)
}

// HandleRefresh implements POST /auth/refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RefreshRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	if req.RefreshToken == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid refresh token"))
		return
	}
	res, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "token refreshed", res)
}

// HandleLogout implements POST /auth/logout. It succeeds even for unknown or missing tokens.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RefreshRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.auth.Logout(ctx, req.RefreshToken)
	httputil.WriteSuccess(w, http.StatusOK, "logged out", nil)
}

// HandleMe implements GET /auth/me and GET /auth/validate.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	profile, err := h.auth.Me(ctx, principal.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "session is valid", map[string]any{"user": profile})
}

// HandleUpdateProfile implements PATCH /auth/me.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateProfileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	profile, err := h.auth.UpdateProfile(ctx, principal.UserID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "profile updated", map[string]any{"user": profile})
}

// HandleListSessions implements GET /auth/sessions.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sessions, err := h.auth.ListSessions(ctx, principal.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "sessions retrieved", map[string]any{"sessions": sessions})
}

// HandleLogoutAll implements POST /auth/logout-all.
func (h *Handler) HandleLogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	deleted, err := h.auth.LogoutAll(ctx, principal.UserID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "logged out everywhere", map[string]int{"sessionsRevoked": deleted})
}

// HandleSetUserStatus implements PATCH /users/{id}/status.
func (h *Handler) HandleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	principal, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	userID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SetUserStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	profile, err := h.auth.SetUserActive(ctx, principal, userID, *req.IsActive)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "user status updated", map[string]any{"user": profile})
}
