// Package authz implements the authorization decision layer for platform
// resources: posts, comments, messages, message groups, and notifications.
//
// # Overview
//
// Authorization is a two-tier check. Coarse role capability tables gate which
// post categories a role may view or create. Fine-grained decisions layer
// ownership and membership checks on top, with an unconditional admin bypass.
//
// # Usage Example
//
// Decide whether a principal may modify a post:
//
//	decider := authz.NewDecider(lookup, metrics)
//	allowed, err := decider.Decide(ctx, p, authz.AccessModify, authz.KindPost, authz.ResourceRef{ID: postID})
//
// A false result with a nil error is an ordinary denial; the caller picks the
// user-facing message. Errors are reserved for contract violations (missing
// resource id), lookup misses, and unknown access types.
//
// # Related Packages
//
//   - pkg/principal: the identity being authorized
//   - pkg/api: converts decisions into HTTP responses
package authz
