// Package audit provides an append-only audit trail for security-relevant
// authentication and authorization events.
//
// # Overview
//
// Every login, refresh, revocation, issued token, and denied access check
// produces an audit event. Events carry the acting account, the affected
// resource, and the request context (IP, user agent, request id) so that
// an operator can reconstruct what happened to any account after the fact.
//
// Audit writes are best-effort. A failing sink never fails the request
// that produced the event.
//
// # Usage
//
// Construct a Trail around a sink and call its typed helpers from the
// handlers and the session manager:
//
//	trail := audit.NewTrail(audit.NewLogrusLogger(os.Stdout))
//	defer trail.Close()
//
//	trail.LoginSucceeded(ctx, r, account.ID, account.Role)
//	trail.AccessDenied(ctx, r, actorID, role, "post", postID, "edit")
//
// Multiple sinks can be combined with a MultiLogger:
//
//	multi := audit.NewMultiLogger(
//		audit.NewLogrusLogger(os.Stdout),
//		audit.NewLogrusLogger(logFile),
//	)
//	trail := audit.NewTrail(multi)
//
// # Related Packages
//
//   - pkg/session: emits login, refresh, and revocation events
//   - pkg/authz: emits access-denied events
//   - pkg/api: attaches request context to events
package audit
