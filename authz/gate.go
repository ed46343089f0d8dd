package authz

import (
	"github.com/google/uuid"
)

// State is the slice of session state the capability gate evaluates
// against. AllowedProjectIDs nil means unrestricted project access;
// a non-nil list restricts access to exactly the listed projects.
type State struct {
	Ready             bool
	Matrix            Matrix
	AllowedProjectIDs []uuid.UUID
}

// StateSource supplies the current authorization state. The session
// provider implements it; tests substitute a fixture.
type StateSource interface {
	AuthzState() State
}

// Gate answers fine-grained capability questions for the current
// session. Every check denies while the session is not ready: a
// loading or failed session must never render a protected affordance.
// No check ever panics.
type Gate struct {
	source StateSource
}

// NewGate creates a Gate bound to a session state source
func NewGate(source StateSource) *Gate {
	return &Gate{source: source}
}

// HasPermission looks up the module/action grant, deny-by-default
func (g *Gate) HasPermission(module Module, action Action) bool {
	state := g.source.AuthzState()
	if !state.Ready {
		return false
	}
	return state.Matrix.Allowed(module, action)
}

// HasProjectAccess reports whether the current membership may access
// the given project. Full access is the default; a non-nil allow-list
// is the explicit narrowing.
func (g *Gate) HasProjectAccess(projectID uuid.UUID) bool {
	state := g.source.AuthzState()
	if !state.Ready {
		return false
	}
	if state.AllowedProjectIDs == nil {
		return true
	}
	for _, id := range state.AllowedProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

// CanViewAmounts reports whether monetary values may render unmasked.
// Callers without the grant show MaskedAmount plus an explanation
// instead of the formatted value.
func (g *Gate) CanViewAmounts() bool {
	return g.HasPermission(ModuleFinance, ActionViewAmounts)
}

// CanManageOrg is the convenience check behind organization settings
func (g *Gate) CanManageOrg() bool {
	return g.HasPermission(ModuleSettings, ActionManageOrg)
}

// MaskedAmount is the placeholder rendered in place of a monetary
// value when CanViewAmounts is false.
const MaskedAmount = "***"

// MaskedAmountNote explains the masking to the viewer
const MaskedAmountNote = "You don't have permission to view amounts"
