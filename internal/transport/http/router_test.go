package httptransport

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	assignmentHandler "schoolbridge/internal/assignment/handler"
	assignmentService "schoolbridge/internal/assignment/service"
	assignmentStore "schoolbridge/internal/assignment/store"
	authHandler "schoolbridge/internal/auth/handler"
	authService "schoolbridge/internal/auth/service"
	sessionStore "schoolbridge/internal/auth/store/session"
	userStore "schoolbridge/internal/auth/store/user"
	classroomHandler "schoolbridge/internal/classroom/handler"
	classroomService "schoolbridge/internal/classroom/service"
	classroomStore "schoolbridge/internal/classroom/store"
	invitationHandler "schoolbridge/internal/invitation/handler"
	invitationService "schoolbridge/internal/invitation/service"
	invitationStore "schoolbridge/internal/invitation/store"
	jwttoken "schoolbridge/internal/jwt_token"
	"schoolbridge/internal/platform/health"
	"schoolbridge/internal/platform/metrics"
	rlmiddleware "schoolbridge/internal/ratelimit/middleware"
	"schoolbridge/internal/ratelimit/models"
	"schoolbridge/internal/ratelimit/store/bucket"
	schoolHandler "schoolbridge/internal/school/handler"
	schoolService "schoolbridge/internal/school/service"
	schoolStore "schoolbridge/internal/school/store"
	studentHandler "schoolbridge/internal/student/handler"
	studentService "schoolbridge/internal/student/service"
	id "schoolbridge/pkg/domain"
	"schoolbridge/pkg/testutil"
)

// RouterSuite drives the assembled router over in-memory stores.
type RouterSuite struct {
	suite.Suite
	router http.Handler
	users  *userStore.InMemoryUserStore
	tokens atomic.Int64
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func fastHash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(hashed), err
}

func activationToken(n int64) string {
	return fmt.Sprintf("%064x", n)
}

func (s *RouterSuite) SetupTest() {
	s.router = s.build(rlmiddleware.WithLimit(models.ClassAuth, models.Limit{Requests: 50, Window: time.Minute}))
}

func (s *RouterSuite) build(limiterOpts ...rlmiddleware.Option) http.Handler {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	s.tokens.Store(0)

	s.users = userStore.New()
	sessions := sessionStore.New()
	classes := classroomStore.NewInMemory()
	assignments := assignmentStore.NewInMemory()
	tokens := jwttoken.NewJWTService(jwttoken.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		Issuer:        "schoolbridge-api",
		Audience:      "schoolbridge-app",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})

	invitations := invitationService.New(invitationStore.NewInMemory(), s.users, nil,
		func() (string, error) { return activationToken(s.tokens.Add(1)), nil },
		invitationService.WithLogger(logger),
	)
	auth := authService.New(s.users, sessions, tokens, invitations,
		authService.WithLogger(logger),
		authService.WithMetrics(m),
		authService.WithPasswordHasher(fastHash),
	)
	classSvc := classroomService.New(classes, s.users, assignments, classroomService.WithLogger(logger))
	assignmentSvc := assignmentService.New(assignments, classes, s.users, assignmentService.WithLogger(logger))
	students := studentService.New(s.users, classSvc, assignmentSvc, studentService.WithLogger(logger))

	limiterOpts = append(limiterOpts, rlmiddleware.WithLogger(logger), rlmiddleware.WithMetrics(m))

	return NewRouter(Deps{
		Logger:      logger,
		Tokens:      tokens,
		Users:       s.users,
		RateLimit:   rlmiddleware.New(bucket.NewInMemoryBucketStore(), limiterOpts...),
		Auth:        authHandler.New(auth, logger),
		Invitations: invitationHandler.New(invitations, logger),
		Schools:     schoolHandler.New(schoolService.New(schoolStore.NewInMemory()), logger),
		Classes:     classroomHandler.New(classSvc, logger),
		Assignments: assignmentHandler.New(assignmentSvc, logger),
		Students:    studentHandler.New(students, logger),
		Health:      health.New("development"),
	})
}

func (s *RouterSuite) do(method, path, body, bearer string) (int, envelope) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)

	var env envelope
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr.Code, env
}

func (s *RouterSuite) accessToken(env envelope) string {
	var res struct {
		AccessToken string `json:"accessToken"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &res))
	s.Require().NotEmpty(res.AccessToken)
	return res.AccessToken
}

func (s *RouterSuite) seedSuperAdmin() string {
	hash, err := fastHash("root-password")
	s.Require().NoError(err)
	root := testutil.NewUserBuilder().
		WithEmail("root@example.com").
		WithRole(id.RoleSuperAdmin).
		WithPasswordHash(hash).
		Build()
	s.Require().NoError(s.users.Create(s.T().Context(), root))

	status, env := s.do(http.MethodPost, "/auth/login",
		`{"email":"root@example.com","password":"root-password","role":"SuperAdmin"}`, "")
	s.Require().Equal(http.StatusOK, status, env.Message)
	return s.accessToken(env)
}

func (s *RouterSuite) activate(n int64, fullName string) string {
	status, env := s.do(http.MethodPost, "/auth/activate",
		`{"token":"`+activationToken(n)+`","fullName":"`+fullName+`","password":"new-password"}`, "")
	s.Require().Equal(http.StatusCreated, status, env.Message)
	return s.accessToken(env)
}

func (s *RouterSuite) TestInvitationToActivation() {
	root := s.seedSuperAdmin()
	school := testutil.TestIDs.SchoolID1.String()

	status, env := s.do(http.MethodPost, "/auth/invitations",
		`{"users":[{"email":"head@example.com","role":"Admin","school_id":"`+school+`"}]}`, root)
	s.Require().Equal(http.StatusCreated, status, env.Message)

	status, env = s.do(http.MethodGet, "/auth/activate/validate?token="+activationToken(1), "", "")
	s.Require().Equal(http.StatusOK, status)
	s.Contains(string(env.Data), "head@example.com")

	admin := s.activate(1, "Ada Head")

	status, _ = s.do(http.MethodGet, "/auth/activate/validate?token="+activationToken(1), "", "")
	s.Equal(http.StatusBadRequest, status, "a consumed token no longer validates")

	status, env = s.do(http.MethodPost, "/invitations",
		`{"users":[{"email":"tess@example.com","role":"Teacher"}]}`, admin)
	s.Require().Equal(http.StatusCreated, status, env.Message)

	teacher := s.activate(2, "Tess Teacher")

	status, env = s.do(http.MethodGet, "/auth/me", "", teacher)
	s.Require().Equal(http.StatusOK, status)
	s.Contains(string(env.Data), `"role":"Teacher"`)
	s.Contains(string(env.Data), school)

	status, env = s.do(http.MethodPost, "/invitations",
		`{"users":[{"email":"kid@example.com","role":"Student"}]}`, teacher)
	s.Equal(http.StatusForbidden, status)
	s.Equal("forbidden", env.Error.Code)
}

func (s *RouterSuite) TestSuperAdminProvisionsTeacher() {
	root := s.seedSuperAdmin()
	school := testutil.TestIDs.SchoolID1.String()

	status, env := s.do(http.MethodPost, "/auth/invitations",
		`{"users":[{"email":"teacher1@school.edu","role":"Teacher","school_id":"`+school+`"}]}`, root)
	s.Require().Equal(http.StatusCreated, status, env.Message)

	status, env = s.do(http.MethodGet, "/invitations/validate-token/"+activationToken(1), "", "")
	s.Require().Equal(http.StatusOK, status, env.Message)
	s.Contains(string(env.Data), "teacher1@school.edu")
	s.Contains(string(env.Data), `"role":"Teacher"`)

	teacher := s.activate(1, "Terry Teacher")

	status, env = s.do(http.MethodGet, "/auth/me", "", teacher)
	s.Require().Equal(http.StatusOK, status)
	s.Contains(string(env.Data), `"role":"Teacher"`)
	s.Contains(string(env.Data), school)

	status, _ = s.do(http.MethodGet, "/invitations/validate-token/"+activationToken(1), "", "")
	s.Equal(http.StatusBadRequest, status)
}

func (s *RouterSuite) TestProvisioningIsSuperAdminOnly() {
	root := s.seedSuperAdmin()
	school := testutil.TestIDs.SchoolID1.String()

	s.do(http.MethodPost, "/auth/invitations",
		`{"users":[{"email":"head@example.com","role":"Admin","school_id":"`+school+`"}]}`, root)
	admin := s.activate(1, "Ada Head")

	status, env := s.do(http.MethodPost, "/auth/invitations",
		`{"users":[{"email":"tess@example.com","role":"Teacher","school_id":"`+school+`"}]}`, admin)
	s.Equal(http.StatusForbidden, status)
	s.Equal("forbidden", env.Error.Code)

	status, env = s.do(http.MethodPost, "/invitations",
		`{"users":[{"email":"tess@example.com","role":"Teacher"}]}`, root)
	s.Require().Equal(http.StatusBadRequest, status)
	s.Contains(string(env.Data), "cannot invite role Teacher")
}

func (s *RouterSuite) TestTeacherCreatesClassAndAssignment() {
	root := s.seedSuperAdmin()
	school := testutil.TestIDs.SchoolID1.String()

	s.do(http.MethodPost, "/auth/invitations",
		`{"users":[{"email":"head@example.com","role":"Admin","school_id":"`+school+`"}]}`, root)
	admin := s.activate(1, "Ada Head")
	s.do(http.MethodPost, "/invitations", `{"users":[{"email":"tess@example.com","role":"Teacher"}]}`, admin)
	teacher := s.activate(2, "Tess Teacher")

	status, env := s.do(http.MethodPost, "/classes", `{"name":"Physics 9A","subject":"Physics"}`, teacher)
	s.Require().Equal(http.StatusCreated, status, env.Message)

	status, env = s.do(http.MethodGet, "/classes", "", teacher)
	s.Require().Equal(http.StatusOK, status)
	s.Contains(string(env.Data), "Physics 9A")

	status, _ = s.do(http.MethodGet, "/students", "", admin)
	s.Equal(http.StatusOK, status)
}

func (s *RouterSuite) TestAuthenticationIsRequired() {
	for _, path := range []string{"/auth/me", "/classes", "/students", "/schools", "/invitations"} {
		status, env := s.do(http.MethodGet, path, "", "")
		s.Equal(http.StatusUnauthorized, status, path)
		s.False(env.Success, path)
	}

	status, _ := s.do(http.MethodGet, "/classes", "", "not-a-jwt")
	s.Equal(http.StatusUnauthorized, status)
}

func (s *RouterSuite) TestCredentialRoutesAreRateLimited() {
	s.router = s.build(rlmiddleware.WithLimit(models.ClassAuth, models.Limit{Requests: 2, Window: time.Minute}))
	body := `{"email":"nobody@example.com","password":"pw-123456","role":"Teacher"}`

	for range 2 {
		status, _ := s.do(http.MethodPost, "/auth/login", body, "")
		s.Equal(http.StatusNotFound, status)
	}
	status, env := s.do(http.MethodPost, "/auth/login", body, "")
	s.Equal(http.StatusTooManyRequests, status)
	s.Equal("rate_limited", env.Error.Code)

	status, _ = s.do(http.MethodGet, "/auth/activate/validate?token=abc", "", "")
	s.Equal(http.StatusBadRequest, status, "activation has its own budget")
}

func (s *RouterSuite) TestOperationalEndpoints() {
	status, _ := s.do(http.MethodGet, "/health/live", "", "")
	s.Equal(http.StatusOK, status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	s.Equal(http.StatusOK, rr.Code)
}
