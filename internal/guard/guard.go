package guard

import (
	"net/http"
	"net/url"

	"github.com/driftwatch/console-core/internal/auth"
	"github.com/driftwatch/console-core/internal/session"
)

// SessionSource is the slice of the session manager gates evaluate
// against. *session.Manager satisfies it.
type SessionSource interface {
	State() session.State
	EffectiveRole() auth.Role
}

// Allowed reports whether the current effective role meets minRole.
// Anything short of an authenticated session fails.
func Allowed(src SessionSource, minRole auth.Role) bool {
	if src.State() != session.StateAuthenticated {
		return false
	}
	return auth.HasMinimumRole(src.EffectiveRole(), minRole)
}

// AllowedExact reports whether the effective role is exactly role.
func AllowedExact(src SessionSource, role auth.Role) bool {
	if src.State() != session.StateAuthenticated {
		return false
	}
	return auth.IsExactRole(src.EffectiveRole(), role)
}

// RenderGate serves allowed when the effective role meets minRole and
// fallback otherwise. A nil fallback serves an empty 204 response: the
// gated control simply does not exist for that role.
func RenderGate(src SessionSource, minRole auth.Role, allowed, fallback http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Allowed(src, minRole) {
			allowed.ServeHTTP(w, r)
			return
		}
		if fallback != nil {
			fallback.ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// RenderGateExact is RenderGate with an exact-role match instead of a
// minimum. Used for surfaces reserved for one role, such as billing.
func RenderGateExact(src SessionSource, role auth.Role, allowed, fallback http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if AllowedExact(src, role) {
			allowed.ServeHTTP(w, r)
			return
		}
		if fallback != nil {
			fallback.ServeHTTP(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// RedirectGate serves next when the effective role meets minRole;
// otherwise it redirects once to target, carrying the original path in a
// "from" query parameter. A request already at the target path is never
// redirected, so a failing check cannot bounce a client in a loop.
func RedirectGate(src SessionSource, minRole auth.Role, target string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Allowed(src, minRole) {
			next.ServeHTTP(w, r)
			return
		}

		if r.URL.Path == target {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		location := target + "?from=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, location, http.StatusSeeOther)
	})
}
