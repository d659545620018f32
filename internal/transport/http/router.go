package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assignmentHandler "schoolbridge/internal/assignment/handler"
	authHandler "schoolbridge/internal/auth/handler"
	"schoolbridge/internal/authz"
	classroomHandler "schoolbridge/internal/classroom/handler"
	invitationHandler "schoolbridge/internal/invitation/handler"
	"schoolbridge/internal/platform/health"
	auth "schoolbridge/internal/platform/middleware/auth"
	rlmiddleware "schoolbridge/internal/ratelimit/middleware"
	"schoolbridge/internal/ratelimit/models"
	schoolHandler "schoolbridge/internal/school/handler"
	studentHandler "schoolbridge/internal/student/handler"
	id "schoolbridge/pkg/domain"
	request "schoolbridge/pkg/platform/middleware/request"
	"schoolbridge/pkg/platform/middleware/requesttime"
)

const (
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Deps holds everything the router mounts. Metrics and Health are optional.
type Deps struct {
	Logger     *slog.Logger
	TrustProxy bool

	Tokens    auth.TokenValidator
	Users     auth.UserLoader
	RateLimit *rlmiddleware.Middleware

	Auth        *authHandler.Handler
	Invitations *invitationHandler.Handler
	Schools     *schoolHandler.Handler
	Classes     *classroomHandler.Handler
	Assignments *assignmentHandler.Handler
	Students    *studentHandler.Handler

	Health  *health.Handler
	Latency *request.Metrics
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(d.Logger))
	r.Use(request.RequestID)
	r.Use(request.ClientMetadata(d.TrustProxy))
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(d.Logger))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(request.BodyLimit(maxBodyBytes))
	r.Use(request.ContentTypeJSON)
	r.Use(request.LatencyMiddleware(d.Latency, routePattern))

	if d.Health != nil {
		d.Health.Register(r)
	}
	r.Handle("/metrics", promhttp.Handler())

	requireAuth := auth.RequireAuth(d.Tokens, d.Users, d.Logger)

	// Credential endpoints share the strict budget.
	r.Group(func(r chi.Router) {
		r.Use(d.RateLimit.RateLimit(models.ClassAuth))
		d.Auth.RegisterCredentialRoutes(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(d.RateLimit.RateLimit(models.ClassActivation))
		d.Auth.RegisterActivationRoutes(r)
		d.Invitations.RegisterPublic(r)
	})

	d.Auth.RegisterTokenRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(d.RateLimit.RateLimit(models.ClassRead))

		d.Auth.RegisterAuthenticated(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCapability(authz.ManageUsers))
			d.Auth.RegisterAdmin(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireCapability(authz.ManageInvitations))
			d.Invitations.Register(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(id.RoleSuperAdmin))
			d.Invitations.RegisterProvisioning(r)
		})

		d.Schools.Register(r)
		d.Classes.Register(r)
		d.Assignments.Register(r)
		d.Students.Register(r)
	})

	return r
}

// routePattern labels latency by the matched chi pattern so IDs do not explode cardinality.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}
