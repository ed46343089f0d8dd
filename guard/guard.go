// Package guard decides whether a navigation into the organization
// subtree may proceed. The tenant slug in the URL is attacker
// controlled: anyone can type another organization's slug. The guard
// therefore never selects data by the claimed slug; it compares the
// claim against the session's resolved tenant and silently corrects a
// mismatch by redirecting to the session's own organization.
package guard

import (
	"strings"

	"github.com/hashim1213/soluly-business-suite-sub004/session"
)

// Kind classifies a guard decision
type Kind string

const (
	// KindWait: session still resolving, show a placeholder, no redirect
	KindWait Kind = "wait"

	// KindRetryScreen: session resolution failed, offer retry and escape
	KindRetryScreen Kind = "retry_screen"

	// KindSignIn: no credentials, send to the sign-in entry point
	KindSignIn Kind = "sign_in"

	// KindRedirect: claim does not match the session tenant, redirect
	// to the path rebuilt from the session's slug
	KindRedirect Kind = "redirect"

	// KindAllow: render the protected subtree
	KindAllow Kind = "allow"
)

// Decision is the outcome of evaluating one navigation attempt
type Decision struct {
	Kind Kind

	// TargetSlug is the session tenant's slug, set for KindRedirect
	TargetSlug string

	// Error carries the resolution failure message for KindRetryScreen
	Error string
}

// Evaluate maps session status and the route tenant claim to a guard
// decision. claim is the slug segment parsed from the URL; an empty
// claim means the route carries no tenant scope and only
// authentication is checked.
func Evaluate(snap *session.Snapshot, claim string) Decision {
	switch snap.Status {
	case session.StatusLoading:
		return Decision{Kind: KindWait}
	case session.StatusError:
		return Decision{Kind: KindRetryScreen, Error: snap.Error}
	}

	if !snap.Authenticated() {
		return Decision{Kind: KindSignIn}
	}

	if claim == "" || claim == snap.Tenant.Slug {
		return Decision{Kind: KindAllow}
	}

	// Stale bookmark or a typed foreign slug: substitute the session's
	// own tenant rather than erroring.
	return Decision{Kind: KindRedirect, TargetSlug: snap.Tenant.Slug}
}

// orgPrefix namespaces all tenant-scoped application paths
const orgPrefix = "/org/"

// ClaimFromPath extracts the route tenant claim from a path of the
// form /org/{slug}/... and returns "" when the path carries none.
func ClaimFromPath(path string) string {
	if !strings.HasPrefix(path, orgPrefix) {
		return ""
	}
	rest := strings.TrimPrefix(path, orgPrefix)
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

// RedirectPath rebuilds an /org/{slug}/... path with the slug segment
// replaced, preserving the remainder of the path. A path outside the
// org namespace falls back to the target tenant's root.
func RedirectPath(requestPath, targetSlug string) string {
	if !strings.HasPrefix(requestPath, orgPrefix) {
		return orgPrefix + targetSlug
	}
	rest := strings.TrimPrefix(requestPath, orgPrefix)
	if i := strings.Index(rest, "/"); i >= 0 {
		return orgPrefix + targetSlug + rest[i:]
	}
	return orgPrefix + targetSlug
}
