package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"schoolbridge/internal/classroom/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/platform/httputil"
	"schoolbridge/pkg/requestcontext"
)

// Service defines the class operations exposed over HTTP.
type Service interface {
	Create(ctx context.Context, actor requestcontext.Principal, req *models.CreateClassRequest) (*models.Class, error)
	List(ctx context.Context, actor requestcontext.Principal) ([]*models.Class, error)
	Get(ctx context.Context, actor requestcontext.Principal, classID id.ClassID) (*models.Class, error)
	Update(ctx context.Context, actor requestcontext.Principal, classID id.ClassID, req *models.UpdateClassRequest) (*models.Class, error)
	Delete(ctx context.Context, actor requestcontext.Principal, classID id.ClassID) error
	AddStudents(ctx context.Context, actor requestcontext.Principal, classID id.ClassID, studentIDs []id.UserID) (*models.Class, error)
	RemoveStudent(ctx context.Context, actor requestcontext.Principal, classID id.ClassID, studentID id.UserID) (*models.Class, error)
	ListByTeacher(ctx context.Context, actor requestcontext.Principal, teacherID id.UserID) ([]*models.Class, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the class routes. Authentication is applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/classes", h.HandleList)
	r.Post("/classes", h.HandleCreate)
	r.Get("/classes/{id}", h.HandleGet)
	r.Put("/classes/{id}", h.HandleUpdate)
	r.Delete("/classes/{id}", h.HandleDelete)
	r.Post("/classes/{id}/students", h.HandleAddStudents)
	r.Delete("/classes/{id}/students/{studentId}", h.HandleRemoveStudent)
	r.Get("/teachers/{teacherId}/classes", h.HandleListByTeacher)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CreateClassRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	class, err := h.service.Create(ctx, actor, req)
	if err != nil {
		h.logger.WarnContext(ctx, "create class failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusCreated, "class created", class)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	classes, err := h.service.List(ctx, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "classes retrieved", map[string]any{"classes": classes})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, classID, ok := h.classRequest(w, r)
	if !ok {
		return
	}
	class, err := h.service.Get(ctx, actor, classID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "class retrieved", class)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, classID, ok := h.classRequest(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.UpdateClassRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	class, err := h.service.Update(ctx, actor, classID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "class updated", class)
}

// HandleDelete implements DELETE /classes/{id}. Assignments of the class go with it.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, classID, ok := h.classRequest(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, actor, classID); err != nil {
		h.logger.WarnContext(ctx, "delete class failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "class deleted", nil)
}

func (h *Handler) HandleAddStudents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actor, classID, ok := h.classRequest(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.AddStudentsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	class, err := h.service.AddStudents(ctx, actor, classID, req.IDs())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "students added", class)
}

func (h *Handler) HandleRemoveStudent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, classID, ok := h.classRequest(w, r)
	if !ok {
		return
	}
	studentID, err := id.ParseUserID(chi.URLParam(r, "studentId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid student id"))
		return
	}
	class, err := h.service.RemoveStudent(ctx, actor, classID, studentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "student removed", class)
}

// HandleListByTeacher implements GET /teachers/{teacherId}/classes.
func (h *Handler) HandleListByTeacher(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, err := httputil.RequirePrincipal(ctx, h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	teacherID, err := id.ParseUserID(chi.URLParam(r, "teacherId"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid teacher id"))
		return
	}
	classes, err := h.service.ListByTeacher(ctx, actor, teacherID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, http.StatusOK, "classes retrieved", map[string]any{"classes": classes})
}

// classRequest resolves the caller and the {id} path parameter, writing the error response
// when either is missing.
func (h *Handler) classRequest(w http.ResponseWriter, r *http.Request) (requestcontext.Principal, id.ClassID, bool) {
	actor, err := httputil.RequirePrincipal(r.Context(), h.logger)
	if err != nil {
		httputil.WriteError(w, err)
		return requestcontext.Principal{}, id.ClassID{}, false
	}
	classID, err := id.ParseClassID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid class id"))
		return requestcontext.Principal{}, id.ClassID{}, false
	}
	return actor, classID, true
}
