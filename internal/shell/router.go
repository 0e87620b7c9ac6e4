package shell

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/driftwatch/console-core/internal/auth"
	"github.com/driftwatch/console-core/internal/guard"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Session lifecycle
		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/login", s.handleLogin)
			r.Post("/register", s.handleRegister)
			r.Post("/logout", s.handleLogout)
			r.Post("/switch-org", s.handleSwitchOrganization)
			r.Get("/me", s.handleCurrentUser)
			r.Get("/organizations", s.handleOrganizations)

			// Demo role override endpoints only exist when enabled;
			// production builds route these to 404.
			if s.demoEnabled {
				r.Put("/demo-role", s.handleSetDemoRole)
				r.Delete("/demo-role", s.handleClearDemoRole)
			}
		})

		// Session event stream for connected views
		r.Get("/ws", s.handleWebSocket)
	})

	// Gated view routes. Whole screens sit behind redirect-gates; the
	// single owner-only surface sits behind an exact-role render-gate.
	r.Handle("/views/login", s.viewHandler("login"))
	r.Handle("/views/overview",
		guard.RedirectGate(s.manager, auth.RoleViewer, "/views/login", s.viewHandler("overview")))
	r.Handle("/views/catalog",
		guard.RedirectGate(s.manager, auth.RoleMember, "/views/login", s.viewHandler("catalog")))
	r.Handle("/views/investigations",
		guard.RedirectGate(s.manager, auth.RoleMember, "/views/login", s.viewHandler("investigations")))
	r.Handle("/views/admin",
		guard.RedirectGate(s.manager, auth.RoleAdmin, "/views/overview", s.viewHandler("admin")))
	r.Handle("/views/billing",
		guard.RenderGateExact(s.manager, auth.RoleOwner, s.viewHandler("billing"), nil))

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"state":   s.manager.State(),
	})
}

// viewHandler serves a view descriptor for the named screen. The real UI
// assets live in the frontend bundle; the shell only answers which view
// the client is allowed to mount, with the effective role it should
// render for.
func (s *Server) viewHandler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"view":           name,
			"effective_role": s.manager.EffectiveRole(),
		})
	})
}
