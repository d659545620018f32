package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schoolbridge/internal/assignment/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
	"schoolbridge/pkg/requestcontext"
)

// Service defines the assignment operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, req *models.CreateAssignmentRequest) (*models.Assignment, error)
	List(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID) ([]*models.Assignment, error)
	Get(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID) (*models.Assignment, error)
	Update(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID, req *models.UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID) error
	Publish(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID) (*models.Assignment, error)
	Submit(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID, req *models.SubmitRequest) (*models.Assignment, error)
	Grade(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID, assignmentID id.AssignmentID, req *models.GradeRequest) (*models.Assignment, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the assignment routes nested under their teacher.
// Authentication is applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/teachers/{teacherId}/assignments", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{assignmentId}", h.HandleGet)
		r.Put("/{assignmentId}", h.HandleUpdate)
		r.Delete("/{assignmentId}", h.HandleDelete)
		r.Post("/{assignmentId}/publish", h.HandlePublish)
		r.Post("/{assignmentId}/submissions", h.HandleSubmit)
		r.Post("/{assignmentId}/grade", h.HandleGrade)
	})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, teacherID, ok := h.teacherRequest(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CreateAssignmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Create(ctx, actor, teacherID, req)
	if err != nil {
		h.logger.WarnContext(ctx, "create assignment failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "assignment created", a)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, teacherID, ok := h.teacherRequest(w, r)
	if !ok {
		return
	}
	assignments, err := h.service.List(ctx, actor, teacherID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "assignments retrieved", map[string]any{"assignments": assignments})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, teacherID, assignmentID, ok := h.assignmentRequest(w, r)
	if !ok {
		return
	}
	a, err := h.service.Get(ctx, actor, teacherID, assignmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "assignment retrieved", a)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, teacherID, assignmentID, ok := h.assignmentRequest(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateAssignmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Update(ctx, actor, teacherID, assignmentID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "assignment updated", a)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, teacherID, assignmentID, ok := h.assignmentRequest(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, actor, teacherID, assignmentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "assignment deleted", nil)
}

func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, teacherID, assignmentID, ok := h.assignmentRequest(w, r)
	if !ok {
		return
	}
	a, err := h.service.Publish(ctx, actor, teacherID, assignmentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "assignment published", a)
}

// HandleSubmit implements POST .../{assignmentId}/submissions for enrolled students.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, teacherID, assignmentID, ok := h.assignmentRequest(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Submit(ctx, actor, teacherID, assignmentID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "assignment submitted", a)
}

func (h *Handler) HandleGrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, teacherID, assignmentID, ok := h.assignmentRequest(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.GradeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	a, err := h.service.Grade(ctx, actor, teacherID, assignmentID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "submission graded", a)
}

func (h *Handler) teacherRequest(w http.ResponseWriter, r *http.Request) (requestcontext.Principal, id.UserID, bool) {
	actor, err := httputil.RequirePrincipal(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return requestcontext.Principal{}, id.UserID{}, false
	}
	teacherID, err := id.ParseUserID(chi.URLParam(r, "teacherId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid teacher id"))
		return requestcontext.Principal{}, id.UserID{}, false
	}
	return actor, teacherID, true
}

func (h *Handler) assignmentRequest(w http.ResponseWriter, r *http.Request) (requestcontext.Principal, id.UserID, id.AssignmentID, bool) {
	actor, teacherID, ok := h.teacherRequest(w, r)
	if !ok {
		return actor, teacherID, id.AssignmentID{}, false
	}
	assignmentID, err := id.ParseAssignmentID(chi.URLParam(r, "assignmentId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assignment id"))
		return actor, teacherID, id.AssignmentID{}, false
	}
	return actor, teacherID, assignmentID, true
}
