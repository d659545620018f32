package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application-level Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UsersCreated       *prometheus.CounterVec
	Logins             *prometheus.CounterVec
	AuthFailures       *prometheus.CounterVec
	TokenRefreshes     prometheus.Counter
	ActiveSessions     prometheus.Gauge
	InvitationsCreated *prometheus.CounterVec
	InvitationEmails   *prometheus.CounterVec
	InvitationsCleaned prometheus.Counter
	RateLimited        *prometheus.CounterVec
	EntityChanges      *prometheus.CounterVec
}

// New creates and registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbridge_users_created_total",
			Help: "Total number of user accounts created",
		}, []string{"role", "provider"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbridge_logins_total",
			Help: "Total number of successful logins",
		}, []string{"provider"}),
		AuthFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbridge_auth_failures_total",
			Help: "Total number of authentication failures",
		}, []string{"reason"}),
		TokenRefreshes: f.NewCounter(prometheus.CounterOpts{
			Name: "schoolbridge_token_refreshes_total",
			Help: "Total number of successful refresh token rotations",
		}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "schoolbridge_active_sessions",
			Help: "Sessions created minus sessions ended since process start",
		}),
		InvitationsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbridge_invitations_created_total",
			Help: "Total number of invitations persisted",
		}, []string{"role"}),
		InvitationEmails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbridge_invitation_emails_total",
			Help: "Invitation email delivery attempts by result",
		}, []string{"result"}),
		InvitationsCleaned: f.NewCounter(prometheus.CounterOpts{
			Name: "schoolbridge_invitations_cleaned_total",
			Help: "Expired unused invitations removed by the cleanup job",
		}),
		RateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbridge_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}, []string{"class"}),
		EntityChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "schoolbridge_entity_changes_total",
			Help: "Writes to schools, classes and assignments by entity and action",
		}, []string{"entity", "action"}),
	}
}

func (m *Metrics) IncrementUsersCreated(role, provider string) {
	if m == nil {
		return
	}
	m.UsersCreated.WithLabelValues(role, provider).Inc()
}

func (m *Metrics) IncrementLogins(provider string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(provider).Inc()
}

func (m *Metrics) IncrementAuthFailures(reason string) {
	if m == nil {
		return
	}
	m.AuthFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementTokenRefreshes() {
	if m == nil {
		return
	}
	m.TokenRefreshes.Inc()
}

func (m *Metrics) IncrementActiveSessions(count int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Add(float64(count))
}

func (m *Metrics) DecrementActiveSessions(count int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Sub(float64(count))
}

func (m *Metrics) IncrementInvitationsCreated(role string) {
	if m == nil {
		return
	}
	m.InvitationsCreated.WithLabelValues(role).Inc()
}

func (m *Metrics) IncrementInvitationEmails(result string) {
	if m == nil {
		return
	}
	m.InvitationEmails.WithLabelValues(result).Inc()
}

func (m *Metrics) AddInvitationsCleaned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.InvitationsCleaned.Add(float64(n))
}

func (m *Metrics) IncrementRateLimited(class string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementEntityChanges(entity, action string) {
	if m == nil {
		return
	}
	m.EntityChanges.WithLabelValues(entity, action).Inc()
}
