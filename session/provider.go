package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hashim1213/soluly-business-suite-sub004/authz"
)

// Resolver resolves session state from stored credentials. token may
// be empty, which resolves to a ready unauthenticated session rather
// than an error. orgSlug is the preferred tenant; an empty slug lets
// the resolver pick the identity's default organization. Any failure,
// regardless of cause, is returned as an error and becomes
// StatusError on the provider.
type Resolver interface {
	Resolve(ctx context.Context, token, orgSlug string) (*Resolution, error)
}

// Provider owns session state: it is the single writer, everyone else
// reads immutable snapshots. Each resolution attempt is keyed by an
// epoch captured when it starts; a result arriving after a newer
// attempt, a sign-out or a tenant switch began is discarded, so a late
// response can never apply a stale tenant's state to the current
// route.
type Provider struct {
	resolver Resolver
	logger   *zap.Logger

	mu      sync.RWMutex
	snap    *Snapshot
	epoch   uint64
	token   string
	orgSlug string
}

// NewProvider creates a Provider in the loading state
func NewProvider(resolver Resolver, logger *zap.Logger) *Provider {
	return &Provider{
		resolver: resolver,
		logger:   logger,
		snap:     &Snapshot{Status: StatusLoading},
	}
}

// Current returns the current snapshot. The returned value is
// immutable; callers must not modify it.
func (p *Provider) Current() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// SetCredentials stores the bearer token used for resolution. It does
// not resolve; call Resolve afterwards.
func (p *Provider) SetCredentials(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

// Resolve runs one resolution attempt and applies the result unless a
// newer attempt superseded it. It returns the status the attempt
// produced, which is not necessarily the provider's current status.
func (p *Provider) Resolve(ctx context.Context) Status {
	epoch, token, orgSlug := p.begin()

	resolution, err := p.resolver.Resolve(ctx, token, orgSlug)
	if err != nil {
		p.logger.Warn("session resolution failed", zap.Error(err))
		p.apply(epoch, &Snapshot{Status: StatusError, Error: err.Error()})
		return StatusError
	}

	snap, ok := SnapshotFromResolution(resolution)
	if !ok {
		p.logger.Error("resolver returned inconsistent session state")
		p.apply(epoch, &Snapshot{Status: StatusError, Error: "session state is inconsistent"})
		return StatusError
	}

	p.apply(epoch, snap)
	return StatusReady
}

// Retry clears any error and re-runs resolution from scratch. A retry
// that reused stale session state would be a correctness bug, so the
// whole attempt restarts: same path as a fresh load.
func (p *Provider) Retry(ctx context.Context) Status {
	p.ClearError()
	return p.Resolve(ctx)
}

// ClearError drops an error state back to loading. It has no effect
// in other states and does not itself re-resolve.
func (p *Provider) ClearError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap.Status != StatusError {
		return
	}
	p.epoch++
	p.snap = &Snapshot{Status: StatusLoading}
}

// SignOut tears the session down to ready-unauthenticated and
// invalidates any in-flight resolution.
func (p *Provider) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	p.token = ""
	p.snap = &Snapshot{Status: StatusReady}
}

// SwitchTenant changes the preferred organization and re-resolves.
// The transition back to loading and the epoch bump happen atomically:
// readers either see the old tenant's complete state or loading, never
// a mix of tenants.
func (p *Provider) SwitchTenant(ctx context.Context, orgSlug string) Status {
	p.mu.Lock()
	p.orgSlug = orgSlug
	p.epoch++
	p.snap = &Snapshot{Status: StatusLoading}
	p.mu.Unlock()

	return p.Resolve(ctx)
}

// AuthzState implements authz.StateSource for the capability gate
func (p *Provider) AuthzState() authz.State {
	return p.Current().AuthzState()
}

// begin marks a new resolution attempt and captures the inputs it is
// keyed to.
func (p *Provider) begin() (epoch uint64, token, orgSlug string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.epoch++
	p.snap = &Snapshot{Status: StatusLoading}
	return p.epoch, p.token, p.orgSlug
}

// apply installs a snapshot only if no newer attempt has started since
// epoch was captured.
func (p *Provider) apply(epoch uint64, snap *Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epoch != epoch {
		p.logger.Debug("discarding stale session resolution",
			zap.Uint64("result_epoch", epoch),
			zap.Uint64("current_epoch", p.epoch))
		return
	}
	p.snap = snap
}

// SnapshotFromResolution validates the resolver's output against the
// session invariants and builds the ready snapshot. An authenticated
// resolution must carry tenant, membership and matrix, and the
// membership must belong to the tenant.
func SnapshotFromResolution(r *Resolution) (*Snapshot, bool) {
	if r == nil {
		return nil, false
	}
	if r.Identity == nil {
		if r.Tenant != nil || r.Membership != nil || r.Matrix != nil {
			return nil, false
		}
		return &Snapshot{Status: StatusReady}, true
	}
	if r.Tenant == nil || r.Membership == nil || r.Matrix == nil {
		return nil, false
	}
	if r.Membership.OrgID != r.Tenant.ID {
		return nil, false
	}
	return &Snapshot{
		Status:     StatusReady,
		Identity:   r.Identity,
		Tenant:     r.Tenant,
		Membership: r.Membership,
		Matrix:     r.Matrix,
	}, true
}
