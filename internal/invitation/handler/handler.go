package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	invmodels "schoolbridge/internal/invitation/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
	"schoolbridge/pkg/requestcontext"
)

// Service defines the invitation operations exposed over HTTP.
type Service interface {
	CreateBatch(ctx context.Context, issuer requestcontext.Principal, req *invmodels.CreateRequest) (*invmodels.BatchResult, error)
	ProvisionBatch(ctx context.Context, issuer requestcontext.Principal, req *invmodels.CreateRequest) (*invmodels.BatchResult, error)
	List(ctx context.Context, issuer requestcontext.Principal, status string) ([]*invmodels.View, error)
	Resend(ctx context.Context, issuer requestcontext.Principal, invitationID id.InvitationID) (*invmodels.View, error)
	Revoke(ctx context.Context, issuer requestcontext.Principal, invitationID id.InvitationID) (*invmodels.View, error)
	ValidateToken(ctx context.Context, token string) (*invmodels.Preview, error)
}

type Handler struct {
	invitations Service
	logger      *slog.Logger
}

func New(invitations Service, logger *slog.Logger) *Handler {
	return &Handler{invitations: invitations, logger: logger}
}

// Register registers invitation management. The parent router applies authentication and
// the invitation capability guard; per-role scoping happens in the service.
func (h *Handler) Register(r chi.Router) {
	r.Get("/invitations", h.HandleList)
	r.Post("/invitations", h.HandleCreate)
	r.Post("/invitations/{id}/resend", h.HandleResend)
	r.Delete("/invitations/{id}", h.HandleRevoke)
}

// RegisterProvisioning registers the platform provisioning endpoint. The parent router
// restricts it to SuperAdmins.
func (h *Handler) RegisterProvisioning(r chi.Router) {
	r.Post("/auth/invitations", h.HandleProvision)
}

// RegisterPublic registers the unauthenticated token check used by the activation screen.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/invitations/validate-token/{token}", h.HandleValidateToken)
}

// HandleCreate implements POST /invitations.
// Responds 201 when at least one invitation was stored, otherwise 400; both carry the
// per-entry results.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.createBatch(w, r, h.invitations.CreateBatch)
}

// HandleProvision implements POST /auth/invitations with the same response contract.
func (h *Handler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	h.createBatch(w, r, h.invitations.ProvisionBatch)
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request,
	op func(context.Context, requestcontext.Principal, *invmodels.CreateRequest) (*invmodels.BatchResult, error),
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	issuer, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[invmodels.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := op(ctx, issuer, req)
	if err != nil {
		h.logger.WarnContext(ctx, "invitation batch rejected", "error", err, "request_id", requestID)
		if result != nil {
			httputil.WriteErrorWithData(w, err, result)
			return
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "invitations processed", result)
}

// HandleList implements GET /invitations?status=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	issuer, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	views, err := h.invitations.List(ctx, issuer, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "invitations retrieved", map[string]any{"invitations": views})
}

// HandleResend implements POST /invitations/{id}/resend.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.invitations.Resend, "invitation resent")
}

// HandleRevoke implements DELETE /invitations/{id}.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.invitations.Revoke, "invitation revoked")
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request,
	op func(context.Context, requestcontext.Principal, id.InvitationID) (*invmodels.View, error), message string,
) {
	ctx := r.Context()
	issuer, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	invitationID, err := id.ParseInvitationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid invitation id"))
		return
	}
	view, err := op(ctx, issuer, invitationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, message, view)
}

// HandleValidateToken implements GET /invitations/validate-token/{token}.
func (h *Handler) HandleValidateToken(w http.ResponseWriter, r *http.Request) {
	token := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "token")))
	preview, err := h.invitations.ValidateToken(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "invitation token is valid", preview)
}
