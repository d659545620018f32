package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schoolbridge/internal/school/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
	"schoolbridge/pkg/requestcontext"
)

// Service defines the school operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, actor requestcontext.Principal, req *models.CreateSchoolRequest) (*models.School, error)
	List(ctx context.Context, actor requestcontext.Principal) ([]*models.School, error)
	Get(ctx context.Context, actor requestcontext.Principal, schoolID id.SchoolID) (*models.School, error)
	Update(ctx context.Context, actor requestcontext.Principal, schoolID id.SchoolID, req *models.UpdateSchoolRequest) (*models.School, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the school routes. Authentication is applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/schools", h.HandleCreate)
	r.Get("/schools", h.HandleList)
	r.Get("/schools/{id}", h.HandleGet)
	r.Put("/schools/{id}", h.HandleUpdate)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CreateSchoolRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	school, err := h.service.Create(ctx, actor, req)
	if err != nil {
		h.logger.WarnContext(ctx, "create school failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "school created", school)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	schools, err := h.service.List(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "schools retrieved", map[string]any{"schools": schools})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	schoolID, err := id.ParseSchoolID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}
	school, err := h.service.Get(ctx, actor, schoolID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "school retrieved", school)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	schoolID, err := id.ParseSchoolID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid school id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateSchoolRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	school, err := h.service.Update(ctx, actor, schoolID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "school updated", school)
}
