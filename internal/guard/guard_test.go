package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/driftwatch/console-core/internal/auth"
	"github.com/driftwatch/console-core/internal/session"
)

// fakeSource is a SessionSource with fixed state and role.
type fakeSource struct {
	state session.State
	role  auth.Role
}

func (f fakeSource) State() session.State     { return f.state }
func (f fakeSource) EffectiveRole() auth.Role { return f.role }

func textHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(body)) //nolint:errcheck // test handler
	})
}

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name    string
		state   session.State
		role    auth.Role
		minRole auth.Role
		want    bool
	}{
		{"exact role passes", session.StateAuthenticated, auth.RoleMember, auth.RoleMember, true},
		{"higher role passes", session.StateAuthenticated, auth.RoleOwner, auth.RoleMember, true},
		{"lower role fails", session.StateAuthenticated, auth.RoleViewer, auth.RoleMember, false},
		{"unauthenticated fails regardless of role", session.StateUnauthenticated, auth.RoleOwner, auth.RoleViewer, false},
		{"loading fails", session.StateLoading, auth.RoleOwner, auth.RoleViewer, false},
		{"empty effective role fails", session.StateAuthenticated, "", auth.RoleViewer, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := fakeSource{state: tt.state, role: tt.role}
			if got := Allowed(src, tt.minRole); got != tt.want {
				t.Errorf("Allowed(%q >= %q in %q) = %v, want %v",
					tt.role, tt.minRole, tt.state, got, tt.want)
			}
		})
	}
}

func TestRenderGate(t *testing.T) {
	gate := RenderGate(
		fakeSource{state: session.StateAuthenticated, role: auth.RoleAdmin},
		auth.RoleMember,
		textHandler("allowed"),
		textHandler("fallback"),
	)

	rec := serve(t, gate, "/catalog")
	if rec.Body.String() != "allowed" {
		t.Errorf("body = %q, want allowed", rec.Body.String())
	}
}

func TestRenderGateFallback(t *testing.T) {
	gate := RenderGate(
		fakeSource{state: session.StateAuthenticated, role: auth.RoleViewer},
		auth.RoleAdmin,
		textHandler("allowed"),
		textHandler("fallback"),
	)

	rec := serve(t, gate, "/admin-panel")
	if rec.Body.String() != "fallback" {
		t.Errorf("body = %q, want fallback", rec.Body.String())
	}
}

func TestRenderGateNoFallbackServesNothing(t *testing.T) {
	gate := RenderGate(
		fakeSource{state: session.StateAuthenticated, role: auth.RoleViewer},
		auth.RoleAdmin,
		textHandler("allowed"),
		nil,
	)

	rec := serve(t, gate, "/admin-panel")
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
}

func TestRenderGateExact(t *testing.T) {
	// Billing is owner-only: an admin does not see it even though admin
	// outranks most roles.
	src := fakeSource{state: session.StateAuthenticated, role: auth.RoleAdmin}
	gate := RenderGateExact(src, auth.RoleOwner, textHandler("billing"), textHandler("hidden"))

	rec := serve(t, gate, "/billing")
	if rec.Body.String() != "hidden" {
		t.Errorf("body = %q, want hidden", rec.Body.String())
	}

	src.role = auth.RoleOwner
	rec = serve(t, RenderGateExact(src, auth.RoleOwner, textHandler("billing"), nil), "/billing")
	if rec.Body.String() != "billing" {
		t.Errorf("body = %q, want billing", rec.Body.String())
	}
}

func TestRedirectGatePasses(t *testing.T) {
	gate := RedirectGate(
		fakeSource{state: session.StateAuthenticated, role: auth.RoleAdmin},
		auth.RoleAdmin,
		"/overview",
		textHandler("admin screen"),
	)

	rec := serve(t, gate, "/admin")
	if rec.Code != http.StatusOK || rec.Body.String() != "admin screen" {
		t.Errorf("status = %d, body = %q", rec.Code, rec.Body.String())
	}
}

func TestRedirectGateRedirectsWithFrom(t *testing.T) {
	gate := RedirectGate(
		fakeSource{state: session.StateAuthenticated, role: auth.RoleMember},
		auth.RoleAdmin,
		"/overview",
		textHandler("admin screen"),
	)

	rec := serve(t, gate, "/admin?tab=users")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	want := "/overview?from=%2Fadmin%3Ftab%3Dusers"
	if got := rec.Header().Get("Location"); got != want {
		t.Errorf("Location = %q, want %q", got, want)
	}
}

func TestRedirectGateNeverLoops(t *testing.T) {
	// A failing check at the target path must not redirect to itself.
	gate := RedirectGate(
		fakeSource{state: session.StateUnauthenticated},
		auth.RoleViewer,
		"/login",
		textHandler("screen"),
	)

	rec := serve(t, gate, "/login")
	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 (no self-redirect)", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "" {
		t.Errorf("Location = %q, want none", loc)
	}
}

func TestRedirectGateUnauthenticated(t *testing.T) {
	gate := RedirectGate(
		fakeSource{state: session.StateUnauthenticated, role: auth.RoleOwner},
		auth.RoleViewer,
		"/login",
		textHandler("screen"),
	)

	rec := serve(t, gate, "/investigations")
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
}
