package authz

import (
	"context"
	"errors"
)

// AccessType is the kind of operation being authorized
type AccessType string

const (
	AccessView   AccessType = "view"
	AccessAdd    AccessType = "add"
	AccessModify AccessType = "modify"
)

// ResourceKind identifies which resource family a decision concerns
type ResourceKind string

const (
	KindPost         ResourceKind = "post"
	KindComment      ResourceKind = "comment"
	KindMessage      ResourceKind = "message"
	KindMessageGroup ResourceKind = "messageGroup"
	KindNotification ResourceKind = "notification"
)

// ResourceInfo holds the resolved attributes a decision needs. Which fields
// are populated depends on the kind:
//
//   - post: OwnerID, Subtype
//   - comment: OwnerID, ParentID, Subtype (the parent post's subtype,
//     denormalized so comment visibility never needs a second lookup)
//   - message: OwnerID (sender), RecipientID (receiving user or group)
//   - messageGroup: MemberIDs
//   - notification: TargetUserID
type ResourceInfo struct {
	OwnerID      string
	Subtype      PostSubtype
	ParentID     string
	RecipientID  string
	MemberIDs    []string
	TargetUserID string
}

// ResourceRef identifies the resource under decision. Info may be pre-filled
// by callers that already hold the record, sparing the decider its lookup.
type ResourceRef struct {
	ID   string
	Info *ResourceInfo
}

// ResourceLookup resolves resource attributes from durable storage. It is
// the decision layer's only collaborator; implementations live with the
// entity storage, outside this package.
type ResourceLookup interface {
	// LookupResource returns the attributes of the identified resource, or
	// ErrResourceNotFound if no such resource exists
	LookupResource(ctx context.Context, kind ResourceKind, id string) (*ResourceInfo, error)
}

var (
	// ErrMissingResourceID indicates a view/modify decision was requested
	// without a resource id; a caller contract violation, not a denial
	ErrMissingResourceID = errors.New("resource id required for this access type")

	// ErrResourceNotFound indicates the resource lookup missed
	ErrResourceNotFound = errors.New("resource not found")

	// ErrUnsupportedAccessType indicates an access type outside the enum;
	// unreachable through the exported constants
	ErrUnsupportedAccessType = errors.New("unsupported access type")

	// ErrUnknownResourceKind indicates a resource kind outside the enum
	ErrUnknownResourceKind = errors.New("unknown resource kind")
)
