package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"schoolbridge/internal/auth/handler/mocks"
	"schoolbridge/internal/auth/models"
	id "schoolbridge/pkg/domain"
	dErrors "schoolbridge/pkg/domain-errors"
	"schoolbridge/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/auth-mocks.go -package=mocks Service
type AuthHandlerSuite struct {
	suite.Suite
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (s *AuthHandlerSuite) newHandler(t *testing.T) (*mocks.MockService, *chi.Mux) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	mockService := mocks.NewMockService(ctrl)
	h := New(mockService, logger)
	r := chi.NewRouter()
	h.RegisterCredentialRoutes(r)
	h.RegisterActivationRoutes(r)
	h.RegisterTokenRoutes(r)
	h.RegisterAuthenticated(r)
	h.RegisterAdmin(r)
	return mockService, r
}

func (s *AuthHandlerSuite) do(t *testing.T, router http.Handler, method, path, body string, principal *requestcontext.Principal) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if principal != nil {
		req = req.WithContext(requestcontext.WithPrincipal(req.Context(), *principal))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	return rr.Code, env
}

func authResult() *models.AuthResult {
	return &models.AuthResult{
		User:         &models.UserProfile{ID: id.NewUserID(), Email: "guest@example.com", Role: id.RoleVisitor},
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
	}
}

func (s *AuthHandlerSuite) TestSignup() {
	s.T().Run("201 - normalized request reaches the service", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Signup(gomock.Any(), &models.SignupRequest{
			Email:      "guest@example.com",
			Password:   "correct-horse",
			FullName:   "Grace Hopper",
			SignupType: "visitor",
		}).Return(authResult(), nil)

		status, env := s.do(t, router, http.MethodPost, "/auth/signup",
			`{"email":" Guest@Example.com ","password":"correct-horse","fullName":" Grace Hopper ","signupType":"Visitor"}`, nil)
		assert.Equal(t, http.StatusCreated, status)
		assert.True(t, env.Success)

		var res models.AuthResult
		require.NoError(t, json.Unmarshal(env.Data, &res))
		assert.Equal(t, "access", res.AccessToken)
		assert.Equal(t, "refresh", res.RefreshToken)
	})

	s.T().Run("400 - invalid json body", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Signup(gomock.Any(), gomock.Any()).Times(0)

		status, env := s.do(t, router, http.MethodPost, "/auth/signup", `{"email": "`, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, string(dErrors.CodeBadRequest), env.Error.Code)
	})

	s.T().Run("400 - validation details are returned per field", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Signup(gomock.Any(), gomock.Any()).Times(0)

		status, env := s.do(t, router, http.MethodPost, "/auth/signup",
			`{"email":"not-an-email","password":"short","fullName":"X","signupType":"visitor"}`, nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, string(dErrors.CodeValidation), env.Error.Code)
		assert.Contains(t, env.Error.Details, "email")
		assert.Contains(t, env.Error.Details, "password")
	})

	s.T().Run("403 - service refuses non-visitor signup", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Signup(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeForbidden, "only visitor signup is allowed"))

		status, env := s.do(t, router, http.MethodPost, "/auth/signup",
			`{"email":"t@example.com","password":"correct-horse","fullName":"T","signupType":"teacher"}`, nil)
		assert.Equal(t, http.StatusForbidden, status)
		assert.False(t, env.Success)
		assert.Equal(t, "only visitor signup is allowed", env.Message)
	})
}

func (s *AuthHandlerSuite) TestLogin() {
	s.T().Run("maps service errors to status codes", func(t *testing.T) {
		cases := []struct {
			code   dErrors.Code
			status int
		}{
			{dErrors.CodeNotFound, http.StatusNotFound},
			{dErrors.CodeForbidden, http.StatusForbidden},
			{dErrors.CodeBadRequest, http.StatusBadRequest},
			{dErrors.CodeUnauthorized, http.StatusUnauthorized},
		}
		for _, tc := range cases {
			svc, router := s.newHandler(t)
			svc.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(tc.code, "nope"))

			status, _ := s.do(t, router, http.MethodPost, "/auth/login",
				`{"email":"t@example.com","password":"pw-123456","role":"Teacher"}`, nil)
			assert.Equal(t, tc.status, status, tc.code)
		}
	})

	s.T().Run("400 - unknown role never reaches the service", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Login(gomock.Any(), gomock.Any()).Times(0)

		status, _ := s.do(t, router, http.MethodPost, "/auth/login",
			`{"email":"t@example.com","password":"pw-123456","role":"Janitor"}`, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func (s *AuthHandlerSuite) TestActivation() {
	s.T().Run("validate passes the lowercased token", func(t *testing.T) {
		svc, router := s.newHandler(t)
		tok := strings.Repeat("ab", 32)
		svc.EXPECT().ValidateActivationToken(gomock.Any(), tok).
			Return(&models.ActivationPreview{Email: "t@example.com", Role: id.RoleTeacher}, nil)

		status, env := s.do(t, router, http.MethodGet, "/auth/activate/validate?token="+strings.ToUpper(tok), "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"email":"t@example.com","role":"Teacher"}`, string(env.Data))
	})

	s.T().Run("activate returns 201", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().ActivateAccount(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, req *models.ActivateRequest) (*models.AuthResult, error) {
				assert.Equal(t, "Tess Teacher", req.FullName)
				return authResult(), nil
			})

		status, _ := s.do(t, router, http.MethodPost, "/auth/activate",
			`{"token":"`+strings.Repeat("a", 64)+`","fullName":"Tess Teacher","password":"new-password"}`, nil)
		assert.Equal(t, http.StatusCreated, status)
	})
}

func (s *AuthHandlerSuite) TestTokens() {
	s.T().Run("logout always succeeds", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Logout(gomock.Any(), "whatever")
		svc.EXPECT().Logout(gomock.Any(), "")

		status, env := s.do(t, router, http.MethodPost, "/auth/logout", `{"refreshToken":"whatever"}`, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.True(t, env.Success)

		status, _ = s.do(t, router, http.MethodPost, "/auth/logout", `{}`, nil)
		assert.Equal(t, http.StatusOK, status)
	})

	s.T().Run("refresh without a token is unauthorized", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Refresh(gomock.Any(), gomock.Any()).Times(0)

		status, _ := s.do(t, router, http.MethodPost, "/auth/refresh", `{}`, nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	s.T().Run("refresh returns the rotated pair", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Refresh(gomock.Any(), "old").Return(authResult(), nil)

		status, _ := s.do(t, router, http.MethodPost, "/auth/refresh", `{"refreshToken":"old"}`, nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func (s *AuthHandlerSuite) TestAuthenticatedRoutes() {
	principal := &requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleTeacher}

	s.T().Run("me without principal is unauthorized", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Me(gomock.Any(), gomock.Any()).Times(0)

		status, _ := s.do(t, router, http.MethodGet, "/auth/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	s.T().Run("me returns the sanitized profile", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().Me(gomock.Any(), principal.UserID).
			Return(&models.UserProfile{ID: principal.UserID, Email: "t@example.com", Role: id.RoleTeacher}, nil)

		status, env := s.do(t, router, http.MethodGet, "/auth/validate", "", principal)
		assert.Equal(t, http.StatusOK, status)
		assert.NotContains(t, string(env.Data), "password")
		assert.NotContains(t, string(env.Data), "tokenVersion")
	})

	s.T().Run("logout-all reports revoked sessions", func(t *testing.T) {
		svc, router := s.newHandler(t)
		svc.EXPECT().LogoutAll(gomock.Any(), principal.UserID).Return(3, nil)

		status, env := s.do(t, router, http.MethodPost, "/auth/logout-all", "", principal)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"sessionsRevoked":3}`, string(env.Data))
	})

	s.T().Run("set user status parses id and body", func(t *testing.T) {
		svc, router := s.newHandler(t)
		target := id.NewUserID()
		admin := &requestcontext.Principal{UserID: id.NewUserID(), Role: id.RoleAdmin}
		svc.EXPECT().SetUserActive(gomock.Any(), *admin, target, false).
			Return(&models.UserProfile{ID: target}, nil)

		status, _ := s.do(t, router, http.MethodPatch, "/users/"+target.String()+"/status", `{"isActive":false}`, admin)
		assert.Equal(t, http.StatusOK, status)

		status, _ = s.do(t, router, http.MethodPatch, "/users/not-a-uuid/status", `{"isActive":false}`, admin)
		assert.Equal(t, http.StatusBadRequest, status)

		status, _ = s.do(t, router, http.MethodPatch, "/users/"+target.String()+"/status", `{}`, admin)
		assert.Equal(t, http.StatusBadRequest, status)
	})
}
