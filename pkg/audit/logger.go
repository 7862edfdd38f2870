package audit

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jschmidtnj/ewaab-sub000/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log logs an audit event
	Log(ctx context.Context, event *Event) error

	// Close closes the logger and flushes any buffered logs
	Close() error
}

// NoOpLogger discards all events, used when auditing is disabled
type NoOpLogger struct{}

func (NoOpLogger) Log(ctx context.Context, event *Event) error { return nil }
func (NoOpLogger) Close() error                                { return nil }

// LogrusLogger writes audit events as JSON lines through a logrus logger
type LogrusLogger struct {
	log    *logrus.Logger
	closer io.Closer
}

// NewLogrusLogger creates an audit logger writing JSON to the given writer.
// When the writer is also an io.Closer it is closed with the logger.
func NewLogrusLogger(w io.Writer) *LogrusLogger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	log.SetLevel(logrus.InfoLevel)

	closer, _ := w.(io.Closer)
	return &LogrusLogger{log: log, closer: closer}
}

// Log writes the event as one structured line
func (l *LogrusLogger) Log(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = contextkeys.GetRequestID(ctx)
	}

	fields := logrus.Fields{
		"event_type": event.EventType,
		"status":     event.Status,
		"timestamp":  event.Timestamp,
	}
	if event.ActorID != "" {
		fields["actor_id"] = event.ActorID
	}
	if event.ActorRole != "" {
		fields["actor_role"] = event.ActorRole
	}
	if event.Resource != "" {
		fields["resource"] = event.Resource
	}
	if event.ResourceID != "" {
		fields["resource_id"] = event.ResourceID
	}
	if event.IPAddress != "" {
		fields["ip_address"] = event.IPAddress
	}
	if event.UserAgent != "" {
		fields["user_agent"] = event.UserAgent
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorMessage != "" {
		fields["error_message"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	l.log.WithFields(fields).Info(event.Message)
	return nil
}

// Close flushes and closes the underlying writer when it supports closing
func (l *LogrusLogger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

// Trail wraps a Logger with typed helpers for the auth flows
type Trail struct {
	logger Logger
}

// NewTrail creates a trail over the given sink. A nil logger yields a
// no-op trail.
func NewTrail(logger Logger) *Trail {
	if logger == nil {
		logger = NoOpLogger{}
	}
	return &Trail{logger: logger}
}

// Close closes the underlying sink
func (t *Trail) Close() error {
	return t.logger.Close()
}

// LoginSucceeded records a successful credential login
func (t *Trail) LoginSucceeded(ctx context.Context, r *http.Request, accountID, role string) {
	t.emit(ctx, r, &Event{
		EventType: EventTypeLogin,
		Status:    EventStatusSuccess,
		ActorID:   accountID,
		ActorRole: role,
		Message:   "login succeeded",
	})
}

// LoginFailed records a rejected credential login. The attempted email is
// kept out of the actor field so guessed addresses do not pollute actor
// queries.
func (t *Trail) LoginFailed(ctx context.Context, r *http.Request, email string, err error) {
	event := &Event{
		EventType: EventTypeLoginFailed,
		Status:    EventStatusFailure,
		Message:   "login failed",
		Metadata:  map[string]interface{}{"email": email},
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	t.emit(ctx, r, event)
}

// VisitorLogin records a visitor code exchange
func (t *Trail) VisitorLogin(ctx context.Context, r *http.Request, codeID string, status EventStatus) {
	t.emit(ctx, r, &Event{
		EventType: EventTypeVisitorLogin,
		Status:    status,
		ActorID:   codeID,
		ActorRole: "visitor",
		Message:   "visitor code exchange",
	})
}

// Refreshed records a successful token refresh
func (t *Trail) Refreshed(ctx context.Context, r *http.Request, accountID string) {
	t.emit(ctx, r, &Event{
		EventType: EventTypeRefresh,
		Status:    EventStatusSuccess,
		ActorID:   accountID,
		Message:   "token refreshed",
	})
}

// RefreshRejected records a failed token refresh
func (t *Trail) RefreshRejected(ctx context.Context, r *http.Request, err error) {
	event := &Event{
		EventType: EventTypeRefreshFailed,
		Status:    EventStatusFailure,
		Message:   "token refresh rejected",
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	t.emit(ctx, r, event)
}

// Revoked records a session revocation
func (t *Trail) Revoked(ctx context.Context, r *http.Request, actorID, targetID string) {
	t.emit(ctx, r, &Event{
		EventType:  EventTypeRevoke,
		Status:     EventStatusSuccess,
		ActorID:    actorID,
		Resource:   "session",
		ResourceID: targetID,
		Message:    "sessions revoked",
	})
}

// TokenIssued records issuance of an action or media token
func (t *Trail) TokenIssued(ctx context.Context, r *http.Request, actorID, purpose string) {
	t.emit(ctx, r, &Event{
		EventType: EventTypeTokenIssue,
		Status:    EventStatusSuccess,
		ActorID:   actorID,
		Message:   "token issued",
		Metadata:  map[string]interface{}{"purpose": purpose},
	})
}

// EmailVerified records a consumed email-verification token
func (t *Trail) EmailVerified(ctx context.Context, r *http.Request, accountID string) {
	t.emit(ctx, r, &Event{
		EventType: EventTypeEmailVerify,
		Status:    EventStatusSuccess,
		ActorID:   accountID,
		Message:   "email verified",
	})
}

// PasswordReset records a completed password reset
func (t *Trail) PasswordReset(ctx context.Context, r *http.Request, accountID string) {
	t.emit(ctx, r, &Event{
		EventType: EventTypePasswordReset,
		Status:    EventStatusSuccess,
		ActorID:   accountID,
		Message:   "password reset",
	})
}

// AccessDenied records an authorization denial
func (t *Trail) AccessDenied(ctx context.Context, r *http.Request, actorID, role, resource, resourceID, access string) {
	t.emit(ctx, r, &Event{
		EventType:  EventTypeAccessDenied,
		Status:     EventStatusDenied,
		ActorID:    actorID,
		ActorRole:  role,
		Resource:   resource,
		ResourceID: resourceID,
		Message:    "access denied",
		Metadata:   map[string]interface{}{"access": access},
	})
}

// BootstrapLogin records a pseudo-admin bootstrap login
func (t *Trail) BootstrapLogin(ctx context.Context, r *http.Request) {
	t.emit(ctx, r, &Event{
		EventType: EventTypeBootstrapLogin,
		Status:    EventStatusSuccess,
		ActorRole: "admin",
		Message:   "bootstrap admin login while account store is empty",
	})
}

// UserCreated records account creation by an admin
func (t *Trail) UserCreated(ctx context.Context, r *http.Request, adminID, newUserID, role string) {
	t.emit(ctx, r, &Event{
		EventType:  EventTypeUserCreate,
		Status:     EventStatusSuccess,
		ActorID:    adminID,
		Resource:   "user",
		ResourceID: newUserID,
		Message:    "user created",
		Metadata:   map[string]interface{}{"role": role},
	})
}

func (t *Trail) emit(ctx context.Context, r *http.Request, event *Event) {
	event.Timestamp = time.Now().UTC()
	if r != nil {
		event.IPAddress = clientIP(r)
		event.UserAgent = r.UserAgent()
	}
	// Audit failures must never fail the request
	_ = t.logger.Log(ctx, event)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
