package events

import (
	"time"

	"github.com/google/uuid"
)

// Decision is the outcome of one trip through the routing pipeline.
type Decision string

const (
	DecisionResolved      Decision = "resolved"
	DecisionNotFound      Decision = "not_found"
	DecisionReserved      Decision = "reserved"
	DecisionPassthrough   Decision = "passthrough"
	DecisionRateLimited   Decision = "rate_limited"
	DecisionLookupFailed  Decision = "lookup_failed"
	DecisionLimiterFailed Decision = "limiter_failed"
)

// RoutingEvent is emitted once per gateway request and archived by the audit
// service. It records the decision, never the request body.
type RoutingEvent struct {
	ID        string    `json:"id"`
	Decision  Decision  `json:"decision"`
	Host      string    `json:"host"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Subdomain string    `json:"subdomain,omitempty"`
	TenantID  string    `json:"tenant_id,omitempty"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRoutingEvent stamps an event with id and time.
func NewRoutingEvent(decision Decision, host, path, method string) RoutingEvent {
	return RoutingEvent{
		ID:        uuid.New().String(),
		Decision:  decision,
		Host:      host,
		Path:      path,
		Method:    method,
		Timestamp: time.Now().UTC(),
	}
}
