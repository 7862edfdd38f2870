package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jschmidtnj/ewaab-sub000/pkg/principal"
)

// fakeLookup serves canned resources and counts calls
type fakeLookup struct {
	resources map[ResourceKind]map[string]*ResourceInfo
	calls     int
}

func (f *fakeLookup) LookupResource(ctx context.Context, kind ResourceKind, id string) (*ResourceInfo, error) {
	f.calls++
	if info, ok := f.resources[kind][id]; ok {
		return info, nil
	}
	return nil, ErrResourceNotFound
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{resources: map[ResourceKind]map[string]*ResourceInfo{
		KindPost: {
			"p1": {OwnerID: "u1", Subtype: PostCommunity},
			"p2": {OwnerID: "u2", Subtype: PostJobs},
			"p3": {OwnerID: "u3", Subtype: PostMentorNews},
		},
		KindComment: {
			"c1": {OwnerID: "u1", ParentID: "p1", Subtype: PostCommunity},
			"c2": {OwnerID: "u2", ParentID: "p3", Subtype: PostMentorNews},
		},
		KindMessage: {
			"m1": {OwnerID: "u1", RecipientID: "u2"},
		},
		KindMessageGroup: {
			"g1": {MemberIDs: []string{"u1", "u2"}},
		},
		KindNotification: {
			"n1": {TargetUserID: "u1"},
		},
	}}
}

func user(id string) principal.Principal {
	return principal.Principal{ID: id, Role: principal.RoleUser, EmailVerified: true}
}

func TestDecider_GuestDeniedWithoutLookup(t *testing.T) {
	lookup := newFakeLookup()
	d := NewDecider(lookup, nil)

	// Every access type on a post is denied for guests, short-circuiting
	// before any lookup happens
	for _, access := range []AccessType{AccessView, AccessAdd, AccessModify} {
		allowed, err := d.Decide(context.Background(), principal.Guest(), access, KindPost, ResourceRef{ID: "p1"})
		require.NoError(t, err)
		assert.False(t, allowed, "access %s", access)
	}
	assert.Zero(t, lookup.calls)
}

func TestDecider_CommentOwnership(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()

	// c1 is owned by u1: the owner may modify, anyone else may not
	allowed, err := d.Decide(ctx, user("u1"), AccessModify, KindComment, ResourceRef{ID: "c1"})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = d.Decide(ctx, user("u2"), AccessModify, KindComment, ResourceRef{ID: "c1"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecider_AdminBypass(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()
	admin := principal.Principal{ID: "root", Role: principal.RoleAdmin, EmailVerified: true}

	refs := map[ResourceKind]ResourceRef{
		KindPost:         {ID: "p2"},
		KindComment:      {ID: "c2"},
		KindMessage:      {ID: "m1"},
		KindMessageGroup: {ID: "g1"},
		KindNotification: {ID: "n1"},
	}

	for kind, ref := range refs {
		for _, access := range []AccessType{AccessView, AccessModify} {
			allowed, err := d.Decide(ctx, admin, access, kind, ref)
			require.NoError(t, err, "%s %s", access, kind)
			assert.True(t, allowed, "admin %s %s", access, kind)
		}
	}
}

func TestDecider_AdminAddBypass(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	admin := principal.Principal{ID: "root", Role: principal.RoleAdmin}

	// Admin creates anything, including categories outside any write table
	// entry and notifications (which nobody else may create)
	for _, kind := range []ResourceKind{KindPost, KindComment, KindMessage, KindMessageGroup, KindNotification} {
		allowed, err := d.Decide(context.Background(), admin, AccessAdd, kind, ResourceRef{Info: &ResourceInfo{Subtype: PostJobs}})
		require.NoError(t, err)
		assert.True(t, allowed, "admin add %s", kind)
	}
}

func TestDecider_PostView(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()

	// user may view any category
	allowed, err := d.Decide(ctx, user("u9"), AccessView, KindPost, ResourceRef{ID: "p3"})
	require.NoError(t, err)
	assert.True(t, allowed)

	// mentor may not view jobs posts
	mentor := principal.Principal{ID: "u9", Role: principal.RoleMentor}
	allowed, err = d.Decide(ctx, mentor, AccessView, KindPost, ResourceRef{ID: "p2"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecider_PostModifyOwnership(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()

	allowed, err := d.Decide(ctx, user("u1"), AccessModify, KindPost, ResourceRef{ID: "p1"})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = d.Decide(ctx, user("u2"), AccessModify, KindPost, ResourceRef{ID: "p1"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecider_PostAdd(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()

	allowed, err := d.Decide(ctx, user("u1"), AccessAdd, KindPost, ResourceRef{Info: &ResourceInfo{Subtype: PostCommunity}})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = d.Decide(ctx, user("u1"), AccessAdd, KindPost, ResourceRef{Info: &ResourceInfo{Subtype: PostMentorNews}})
	require.NoError(t, err)
	assert.False(t, allowed)

	// Creating a post without saying what category is a caller bug
	_, err = d.Decide(ctx, user("u1"), AccessAdd, KindPost, ResourceRef{})
	assert.ErrorIs(t, err, ErrMissingResourceID)
}

func TestDecider_CommentViewInheritsPostVisibility(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()

	// c2 hangs off a mentorNews post: visible to mentors, not to visitors
	mentor := principal.Principal{ID: "u9", Role: principal.RoleMentor}
	allowed, err := d.Decide(ctx, mentor, AccessView, KindComment, ResourceRef{ID: "c2"})
	require.NoError(t, err)
	assert.True(t, allowed)

	visitor := principal.Principal{ID: "v1", Role: principal.RoleVisitor}
	allowed, err = d.Decide(ctx, visitor, AccessView, KindComment, ResourceRef{ID: "c2"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecider_MessageParticipants(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()

	// Sender and recipient may view, a third party may not
	for _, id := range []string{"u1", "u2"} {
		allowed, err := d.Decide(ctx, user(id), AccessView, KindMessage, ResourceRef{ID: "m1"})
		require.NoError(t, err)
		assert.True(t, allowed, "participant %s", id)
	}

	allowed, err := d.Decide(ctx, user("u3"), AccessView, KindMessage, ResourceRef{ID: "m1"})
	require.NoError(t, err)
	assert.False(t, allowed)

	// Only the sender modifies
	allowed, err = d.Decide(ctx, user("u2"), AccessModify, KindMessage, ResourceRef{ID: "m1"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

// Regression for the membership check: members are allowed, non-members are
// denied. The check must never be inverted.
func TestDecider_GroupMembership(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()

	allowed, err := d.Decide(ctx, user("u1"), AccessView, KindMessageGroup, ResourceRef{ID: "g1"})
	require.NoError(t, err)
	assert.True(t, allowed, "group member must be allowed")

	allowed, err = d.Decide(ctx, user("u5"), AccessView, KindMessageGroup, ResourceRef{ID: "g1"})
	require.NoError(t, err)
	assert.False(t, allowed, "non-member must be denied")
}

// Regression for the notification target check: the targeted user is allowed,
// everyone else is denied. The comparison must never be inverted.
func TestDecider_NotificationTarget(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)
	ctx := context.Background()

	allowed, err := d.Decide(ctx, user("u1"), AccessView, KindNotification, ResourceRef{ID: "n1"})
	require.NoError(t, err)
	assert.True(t, allowed, "notification target must be allowed")

	allowed, err = d.Decide(ctx, user("u2"), AccessView, KindNotification, ResourceRef{ID: "n1"})
	require.NoError(t, err)
	assert.False(t, allowed, "other users must be denied")
}

func TestDecider_NotificationAddAlwaysDenied(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)

	allowed, err := d.Decide(context.Background(), user("u1"), AccessAdd, KindNotification, ResourceRef{})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestDecider_MissingResourceID(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)

	_, err := d.Decide(context.Background(), user("u1"), AccessView, KindPost, ResourceRef{})
	assert.ErrorIs(t, err, ErrMissingResourceID)
}

func TestDecider_ResourceNotFound(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)

	allowed, err := d.Decide(context.Background(), user("u1"), AccessView, KindPost, ResourceRef{ID: "missing"})
	assert.ErrorIs(t, err, ErrResourceNotFound)
	assert.False(t, allowed)
}

func TestDecider_UnsupportedAccessType(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)

	_, err := d.Decide(context.Background(), user("u1"), AccessType("delete"), KindPost, ResourceRef{ID: "p1"})
	assert.ErrorIs(t, err, ErrUnsupportedAccessType)
}

func TestDecider_UnknownResourceKind(t *testing.T) {
	d := NewDecider(newFakeLookup(), nil)

	_, err := d.Decide(context.Background(), user("u1"), AccessView, ResourceKind("profile"), ResourceRef{ID: "p1"})
	assert.ErrorIs(t, err, ErrUnknownResourceKind)
}

func TestDecider_SingleLookupPerDecision(t *testing.T) {
	lookup := newFakeLookup()
	d := NewDecider(lookup, nil)

	_, err := d.Decide(context.Background(), user("u1"), AccessView, KindComment, ResourceRef{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, lookup.calls)
}

func TestDecider_PreSuppliedInfoSkipsLookup(t *testing.T) {
	lookup := newFakeLookup()
	d := NewDecider(lookup, nil)

	ref := ResourceRef{ID: "p1", Info: &ResourceInfo{OwnerID: "u1", Subtype: PostCommunity}}
	allowed, err := d.Decide(context.Background(), user("u1"), AccessModify, KindPost, ref)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, lookup.calls)
}
