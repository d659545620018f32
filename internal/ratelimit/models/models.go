package models

import (
	"time"
)

// EndpointClass groups routes that share a request budget.
type EndpointClass string

const (
	// ClassAuth covers credential endpoints: signup, login, Google sign-in.
	ClassAuth EndpointClass = "auth"
	// ClassActivation covers invitation token validation and account activation.
	ClassActivation EndpointClass = "activation"
	// ClassRead covers everything else.
	ClassRead EndpointClass = "read"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassAuth, ClassActivation, ClassRead:
		return true
	}
	return false
}

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// DefaultLimits are applied per client IP.
var DefaultLimits = map[EndpointClass]Limit{
	ClassAuth:       {Requests: 10, Window: time.Minute},
	ClassActivation: {Requests: 20, Window: time.Minute},
	ClassRead:       {Requests: 300, Window: time.Minute},
}

// Key names the bucket of one client for one class.
func Key(class EndpointClass, ip string) string {
	return "ip:" + string(class) + ":" + ip
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}
