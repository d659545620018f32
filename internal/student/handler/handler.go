package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	assignmentmodels "schoolbridge/internal/assignment/models"
	authmodels "schoolbridge/internal/auth/models"
	classmodels "schoolbridge/internal/classroom/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
	"schoolbridge/pkg/requestcontext"
)

// Service defines the student read operations exposed over HTTP.
type Service interface {
	List(ctx context.Context, actor requestcontext.Principal) ([]*authmodels.UserProfile, error)
	Get(ctx context.Context, actor requestcontext.Principal, studentID id.UserID) (*authmodels.UserProfile, error)
	Classes(ctx context.Context, actor requestcontext.Principal, studentID id.UserID) ([]*classmodels.Class, error)
	Assignments(ctx context.Context, actor requestcontext.Principal, studentID id.UserID) ([]*assignmentmodels.Assignment, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the student routes. Authentication is applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/students", h.HandleList)
	r.Get("/students/{id}", h.HandleGet)
	r.Get("/students/{id}/classes", h.HandleClasses)
	r.Get("/students/{id}/assignments", h.HandleAssignments)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	students, err := h.service.List(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "students retrieved", map[string]any{"students": students})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	actor, studentID, ok := h.studentRequest(w, r)
	if !ok {
		return
	}
	student, err := h.service.Get(r.Context(), actor, studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "student retrieved", student)
}

func (h *Handler) HandleClasses(w http.ResponseWriter, r *http.Request) {
	actor, studentID, ok := h.studentRequest(w, r)
	if !ok {
		return
	}
	classes, err := h.service.Classes(r.Context(), actor, studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "classes retrieved", map[string]any{"classes": classes})
}

func (h *Handler) HandleAssignments(w http.ResponseWriter, r *http.Request) {
	actor, studentID, ok := h.studentRequest(w, r)
	if !ok {
		return
	}
	assignments, err := h.service.Assignments(r.Context(), actor, studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "assignments retrieved", map[string]any{"assignments": assignments})
}

func (h *Handler) studentRequest(w http.ResponseWriter, r *http.Request) (requestcontext.Principal, id.UserID, bool) {
	actor, err := httputil.RequirePrincipal(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return requestcontext.Principal{}, id.UserID{}, false
	}
	studentID, err := id.ParseUserID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid student id"))
		return requestcontext.Principal{}, id.UserID{}, false
	}
	return actor, studentID, true
}
