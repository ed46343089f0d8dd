package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// fixedState is a StateSource returning a canned state
type fixedState struct {
	state State
}

func (f *fixedState) AuthzState() State { return f.state }

func readyState(matrix Matrix, allowList []uuid.UUID) *fixedState {
	return &fixedState{state: State{Ready: true, Matrix: matrix, AllowedProjectIDs: allowList}}
}

func TestGate_HasPermission(t *testing.T) {
	matrix := Matrix{
		ModuleProjects: {ActionView: true},
		ModuleSettings: {ActionManageOrg: false},
	}

	t.Run("granted permission", func(t *testing.T) {
		gate := NewGate(readyState(matrix, nil))
		assert.True(t, gate.HasPermission(ModuleProjects, ActionView))
	})

	t.Run("deny by default for unknown module", func(t *testing.T) {
		gate := NewGate(readyState(matrix, nil))
		assert.False(t, gate.HasPermission(Module("unknown_module"), ActionView))
	})

	t.Run("explicit false denies", func(t *testing.T) {
		gate := NewGate(readyState(matrix, nil))
		assert.False(t, gate.HasPermission(ModuleSettings, ActionManageOrg))
	})

	t.Run("missing key denies, never permits", func(t *testing.T) {
		gate := NewGate(readyState(Matrix{}, nil))
		assert.False(t, gate.HasPermission(ModuleSettings, ActionManageOrg))
	})

	t.Run("session not ready denies everything", func(t *testing.T) {
		gate := NewGate(&fixedState{state: State{Ready: false, Matrix: matrix}})
		assert.False(t, gate.HasPermission(ModuleProjects, ActionView))
	})
}

func TestGate_HasProjectAccess(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()

	t.Run("nil allow-list is unrestricted", func(t *testing.T) {
		gate := NewGate(readyState(Matrix{}, nil))
		assert.True(t, gate.HasProjectAccess(p1))
		assert.True(t, gate.HasProjectAccess(p2))
	})

	t.Run("allow-list restricts access", func(t *testing.T) {
		gate := NewGate(readyState(Matrix{}, []uuid.UUID{p1}))
		assert.True(t, gate.HasProjectAccess(p1))
		assert.False(t, gate.HasProjectAccess(p2))
	})

	t.Run("empty allow-list grants nothing", func(t *testing.T) {
		gate := NewGate(readyState(Matrix{}, []uuid.UUID{}))
		assert.False(t, gate.HasProjectAccess(p1))
	})

	t.Run("session not ready denies", func(t *testing.T) {
		gate := NewGate(&fixedState{state: State{Ready: false}})
		assert.False(t, gate.HasProjectAccess(p1))
	})
}

func TestGate_CanViewAmounts(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		gate := NewGate(readyState(Matrix{ModuleFinance: {ActionViewAmounts: true}}, nil))
		assert.True(t, gate.CanViewAmounts())
	})

	t.Run("denied without grant", func(t *testing.T) {
		gate := NewGate(readyState(Matrix{ModuleFinance: {ActionView: true}}, nil))
		assert.False(t, gate.CanViewAmounts())
	})
}

func TestGate_CanManageOrg(t *testing.T) {
	t.Run("granted", func(t *testing.T) {
		gate := NewGate(readyState(Matrix{ModuleSettings: {ActionManageOrg: true}}, nil))
		assert.True(t, gate.CanManageOrg())
	})

	t.Run("missing key resolves to denied", func(t *testing.T) {
		gate := NewGate(readyState(Matrix{ModuleSettings: {ActionView: true}}, nil))
		assert.False(t, gate.CanManageOrg())
	})
}
