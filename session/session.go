package session

import (
	"github.com/google/uuid"

	"github.com/hashim1213/soluly-business-suite-sub004/authz"
	"github.com/hashim1213/soluly-business-suite-sub004/models"
)

// Status is the lifecycle state of a session
type Status string

const (
	// StatusLoading means resolution is in flight; nothing may be
	// trusted, protected content must not render.
	StatusLoading Status = "loading"

	// StatusReady means resolution finished. The session is either
	// authenticated (identity, tenant, membership, matrix all present)
	// or unauthenticated (none of them present).
	StatusReady Status = "ready"

	// StatusError means resolution itself failed (network, backend).
	// Distinct from an absent session: recovery requires an explicit
	// retry, never a silent one.
	StatusError Status = "error"
)

// Tenant is the resolved organization for the session
type Tenant struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
}

// Snapshot is an immutable view of session state. Readers hold a
// pointer that never mutates; the provider swaps in a fresh snapshot
// on every transition, so there is no window where one tenant's slug
// pairs with another tenant's permission matrix.
type Snapshot struct {
	Status     Status             `json:"status"`
	Error      string             `json:"error,omitempty"`
	Identity   *models.User       `json:"identity,omitempty"`
	Tenant     *Tenant            `json:"tenant,omitempty"`
	Membership *models.Membership `json:"membership,omitempty"`
	Matrix     authz.Matrix       `json:"permission_matrix,omitempty"`
}

// Authenticated reports whether the snapshot is a ready, signed-in session
func (s *Snapshot) Authenticated() bool {
	return s.Status == StatusReady && s.Identity != nil
}

// AuthzState projects the snapshot into the capability gate's input.
// Anything but a ready, authenticated session yields the zero state,
// which denies every check.
func (s *Snapshot) AuthzState() authz.State {
	if !s.Authenticated() {
		return authz.State{}
	}
	state := authz.State{Ready: true, Matrix: s.Matrix}
	if s.Membership != nil {
		state.AllowedProjectIDs = s.Membership.AllowedProjectIDs
	}
	return state
}

// Resolution is what a Resolver produces for a successful attempt. An
// unauthenticated outcome has a nil Identity and nothing else set; an
// authenticated outcome has all four fields populated.
type Resolution struct {
	Identity   *models.User
	Tenant     *Tenant
	Membership *models.Membership
	Matrix     authz.Matrix
}
