package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeLogin         EventType = "auth.login"
	EventTypeLoginFailed   EventType = "auth.login_failed"
	EventTypeVisitorLogin  EventType = "auth.visitor_login"
	EventTypeRefresh       EventType = "auth.refresh"
	EventTypeRefreshFailed EventType = "auth.refresh_failed"
	EventTypeRevoke        EventType = "auth.revoke"
	EventTypeTokenIssue    EventType = "auth.token_issue"
	EventTypePasswordReset EventType = "auth.password_reset"
	EventTypeEmailVerify   EventType = "auth.email_verify"

	// Authorization events
	EventTypeAccessDenied EventType = "authz.access_denied"

	// Admin events
	EventTypeBootstrapLogin EventType = "admin.bootstrap_login"
	EventTypeUserCreate     EventType = "admin.user_create"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	ActorID   string `json:"actor_id,omitempty"`
	ActorRole string `json:"actor_role,omitempty"`

	// Resource information
	Resource   string `json:"resource,omitempty"`
	ResourceID string `json:"resource_id,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}
