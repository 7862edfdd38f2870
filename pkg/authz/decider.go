package authz

import (
	"context"
	"fmt"

	"github.com/jschmidtnj/ewaab-sub000/pkg/observability"
	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
)

// Decider makes allow/deny decisions for resource access. All branches are
// pure over the resolved inputs; the only I/O is at most one resource lookup
// per decision.
type Decider struct {
	lookup  ResourceLookup
	metrics *observability.Metrics
}

// NewDecider creates a decision layer backed by the given resource lookup.
// metrics may be nil.
func NewDecider(lookup ResourceLookup, metrics *observability.Metrics) *Decider {
	return &Decider{
		lookup:  lookup,
		metrics: metrics,
	}
}

// Decide reports whether the principal may perform the access on the
// referenced resource.
//
// A false result with a nil error is an ordinary denial. Errors indicate
// caller contract violations (ErrMissingResourceID, ErrUnsupportedAccessType,
// ErrUnknownResourceKind) or a lookup miss (ErrResourceNotFound).
func (d *Decider) Decide(ctx context.Context, p principal.Principal, access AccessType, kind ResourceKind, ref ResourceRef) (bool, error) {
	switch kind {
	case KindPost, KindComment, KindMessage, KindMessageGroup, KindNotification:
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownResourceKind, kind)
	}

	allowed, err := d.decide(ctx, p, access, kind, ref)
	d.count(kind, access, allowed, err)
	return allowed, err
}

func (d *Decider) decide(ctx context.Context, p principal.Principal, access AccessType, kind ResourceKind, ref ResourceRef) (bool, error) {
	// Guests are denied before anything else; no lookup, no error
	if p.IsGuest() {
		return false, nil
	}

	switch access {
	case AccessAdd:
		return d.decideAdd(p, kind, ref)
	case AccessView, AccessModify:
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedAccessType, access)
	}

	// view/modify need a concrete resource; a missing id when no attributes
	// were pre-supplied is a caller bug, not a denial
	if ref.ID == "" && ref.Info == nil {
		return false, fmt.Errorf("%w: %s %s", ErrMissingResourceID, access, kind)
	}

	if p.IsAdmin() {
		return true, nil
	}

	info := ref.Info
	if info == nil {
		resolved, err := d.lookup.LookupResource(ctx, kind, ref.ID)
		if err != nil {
			return false, err
		}
		info = resolved
	}

	switch kind {
	case KindPost:
		if access == AccessView {
			return CanViewPost(p.Role, info.Subtype), nil
		}
		return info.OwnerID == p.ID, nil

	case KindComment:
		// Comments inherit the visibility of their parent post; the lookup
		// denormalizes the parent's subtype into the comment's info
		if access == AccessView {
			return CanViewPost(p.Role, info.Subtype), nil
		}
		return info.OwnerID == p.ID, nil

	case KindMessage:
		if access == AccessView {
			return p.ID == info.OwnerID || p.ID == info.RecipientID, nil
		}
		return info.OwnerID == p.ID, nil

	case KindMessageGroup:
		// Membership grants both view and modify
		for _, member := range info.MemberIDs {
			if member == p.ID {
				return true, nil
			}
		}
		return false, nil

	case KindNotification:
		return info.TargetUserID == p.ID, nil
	}

	return false, fmt.Errorf("%w: %q", ErrUnknownResourceKind, kind)
}

// decideAdd handles creation decisions, which are purely role-based
func (d *Decider) decideAdd(p principal.Principal, kind ResourceKind, ref ResourceRef) (bool, error) {
	if p.IsAdmin() {
		return true, nil
	}

	switch kind {
	case KindPost:
		// Creating a post is gated on the category being created
		if ref.Info == nil {
			return false, fmt.Errorf("%w: post subtype required for create decisions", ErrMissingResourceID)
		}
		return CanWritePost(p.Role, ref.Info.Subtype), nil

	case KindComment:
		// Commenting requires view access to the parent post when the caller
		// supplies its attributes; otherwise any authenticated principal
		if ref.Info != nil {
			return CanViewPost(p.Role, ref.Info.Subtype), nil
		}
		return true, nil

	case KindMessage, KindMessageGroup:
		return true, nil

	case KindNotification:
		// Only the system creates notifications
		return false, nil
	}

	return false, fmt.Errorf("%w: %q", ErrUnknownResourceKind, kind)
}

func (d *Decider) count(kind ResourceKind, access AccessType, allowed bool, err error) {
	if d.metrics == nil {
		return
	}
	outcome := "deny"
	switch {
	case err != nil:
		outcome = "error"
	case allowed:
		outcome = "allow"
	}
	d.metrics.AuthzDecisionsTotal.WithLabelValues(string(kind), string(access), outcome).Inc()
}
