package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"schoolbridge/internal/assignment/handler/mocks"
	"schoolbridge/internal/assignment/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/assignment-mocks.go -package=mocks Service

func newRouter(t *testing.T) (*mocks.MockService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	r := chi.NewRouter()
	New(svc, slog.New(slog.NewJSONHandler(io.Discard, nil))).Register(r)
	return svc, r
}

func serve(router http.Handler, method, path, body string, actor *requestcontext.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), *actor))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestHandleCreate(t *testing.T) {
	teacher := &requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleTeacher}
	base := "/teachers/" + teacher.UserID.String() + "/assignments"
	classID := id.NewClassID()

	t.Run("201 with the path teacher", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Create(gomock.Any(), *teacher, teacher.UserID, gomock.Any()).DoAndReturn(
			func(_ context.Context, _ requestcontext.Principal, _ id.UserID, req *models.CreateAssignmentRequest) (*models.Assignment, error) {
				assert.Equal(t, classID, req.ParsedClassID())
				assert.Equal(t, "Essay", req.Title)
				return &models.Assignment{ID: id.NewAssignmentID(), Title: req.Title}, nil
			})

		body := `{"title":" Essay ","dueDate":"` + time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339) +
			`","classId":"` + classID.String() + `"}`
		rr := serve(router, http.MethodPost, base, body, teacher)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("400 without due date", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := serve(router, http.MethodPost, base, `{"title":"Essay","classId":"`+classID.String()+`"}`, teacher)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "due_date")
	})

	t.Run("403 when the path names another teacher", func(t *testing.T) {
		svc, router := newRouter(t)
		other := id.NewUserID()
		svc.EXPECT().Create(gomock.Any(), *teacher, other, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))

		body := `{"title":"Essay","dueDate":"2030-01-01T00:00:00Z","classId":"` + classID.String() + `"}`
		rr := serve(router, http.MethodPost, "/teachers/"+other.String()+"/assignments", body, teacher)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestHandleList(t *testing.T) {
	teacher := &requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleTeacher}
	svc, router := newRouter(t)
	svc.EXPECT().List(gomock.Any(), *teacher, teacher.UserID).Return([]*models.Assignment{}, nil)

	rr := serve(router, http.MethodGet, "/teachers/"+teacher.UserID.String()+"/assignments", "", teacher)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"assignments":[]`)

	rr = serve(router, http.MethodGet, "/teachers/nope/assignments", "", teacher)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleSubmitAndGrade(t *testing.T) {
	teacherID := id.NewUserID()
	assignmentID := id.NewAssignmentID()
	base := "/teachers/" + teacherID.String() + "/assignments/" + assignmentID.String()
	student := &requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleStudent}
	teacher := &requestcontext.Principal{UserID: teacherID, Role: id.RoleTeacher}

	t.Run("submit returns 201", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Submit(gomock.Any(), *student, teacherID, assignmentID, &models.SubmitRequest{Content: "my answer"}).
			Return(&models.Assignment{ID: assignmentID}, nil)

		rr := serve(router, http.MethodPost, base+"/submissions", `{"content":" my answer "}`, student)
		assert.Equal(t, http.StatusCreated, rr.Code)
	})

	t.Run("resubmitting graded work conflicts", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Submit(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeConflict, "submission has already been graded"))

		rr := serve(router, http.MethodPost, base+"/submissions", `{"content":"again"}`, student)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("grade requires a grade", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Grade(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := serve(router, http.MethodPost, base+"/grade", `{"studentId":"`+student.UserID.String()+`"}`, teacher)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("grade out of range is rejected by the service", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Grade(gomock.Any(), *teacher, teacherID, assignmentID, gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "grade is out of range"))

		rr := serve(router, http.MethodPost, base+"/grade", `{"studentId":"`+student.UserID.String()+`","grade":101}`, teacher)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("publish and delete", func(t *testing.T) {
		svc, router := newRouter(t)
		svc.EXPECT().Publish(gomock.Any(), *teacher, teacherID, assignmentID).
			Return(&models.Assignment{ID: assignmentID, IsPublished: true}, nil)
		svc.EXPECT().Delete(gomock.Any(), *teacher, teacherID, assignmentID).Return(nil)

		assert.Equal(t, http.StatusOK, serve(router, http.MethodPost, base+"/publish", "", teacher).Code)
		assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, base, "", teacher).Code)
	})

	t.Run("malformed assignment id", func(t *testing.T) {
		_, router := newRouter(t)
		rr := serve(router, http.MethodGet, "/teachers/"+teacherID.String()+"/assignments/xyz", "", teacher)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
