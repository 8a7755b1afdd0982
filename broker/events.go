package broker

import "time"

// Event types published on the service-request topic.
const (
	EventTypeRequestCreated   = "request.created"
	EventTypeRequestAccepted  = "request.accepted"
	EventTypeRequestRejected  = "request.rejected"
	EventTypeRequestCompleted = "request.completed"
	EventTypeWorkerAssigned   = "request.worker_assigned"
	EventTypePaymentSucceeded = "payment.succeeded"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentRefunded  = "payment.refunded"
)

// Event is the envelope published for lifecycle and payment side effects.
// Downstream collaborators (dashboards, notification dispatch) consume these;
// publishing never blocks or fails a state write.
type Event struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  uint      `json:"request_id"`
	Status     string    `json:"status,omitempty"`
	WorkerID   *uint     `json:"worker_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	ExternalRef string   `json:"external_ref,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}

// Publisher publishes domain events. Implementations must be safe for
// concurrent use. A nil Publisher is valid and drops events.
type Publisher interface {
	Publish(event Event)
	Close() error
}
