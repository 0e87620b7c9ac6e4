package shell

import (
	"encoding/json"
	"net/http"

	"github.com/driftwatch/console-core/internal/auth"
	"github.com/driftwatch/console-core/internal/session"
)

// sessionView is the session representation handed to the UI. Tokens
// never leave the shell process; views only see who is acting, in which
// organization, and with what effective role.
type sessionView struct {
	State         session.State      `json:"state"`
	User          *auth.User         `json:"user,omitempty"`
	Organization  *auth.Organization `json:"organization,omitempty"`
	Role          auth.Role          `json:"role,omitempty"`
	EffectiveRole auth.Role          `json:"effective_role,omitempty"`
	DemoRole      auth.Role          `json:"demo_role,omitempty"`
}

// newSessionView projects a manager snapshot into the UI shape.
func newSessionView(snap session.Snapshot) sessionView {
	view := sessionView{
		State:         snap.State,
		EffectiveRole: snap.EffectiveRole,
		DemoRole:      snap.DemoRole,
	}
	if snap.Session != nil {
		view.User = &snap.Session.User
		view.Organization = &snap.Session.Organization
		view.Role = snap.Session.Role
	}
	return view
}

// handleGetSession returns the current session state.
func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newSessionView(s.manager.Snapshot()))
}

// loginRequest is the request body for POST /session/login.
type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	OrganizationID string `json:"organization_id"`
}

// handleLogin authenticates with credentials.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	if _, err := s.manager.Login(r.Context(), req.Email, req.Password, req.OrganizationID); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(s.manager.Snapshot()))
}

// registerRequest is the request body for POST /session/register.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	OrgName  string `json:"org_name"`
}

// handleRegister creates an account plus its first organization.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Password == "" || req.OrgName == "" {
		writeBadRequest(w, "email, password, and org_name are required")
		return
	}

	if _, err := s.manager.Register(r.Context(), req.Email, req.Password, req.Name, req.OrgName); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(s.manager.Snapshot()))
}

// handleLogout ends the session. Always succeeds.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.manager.Logout(r.Context())
	writeJSON(w, http.StatusOK, newSessionView(s.manager.Snapshot()))
}

// switchOrgRequest is the request body for POST /session/switch-org.
type switchOrgRequest struct {
	OrganizationID string `json:"organization_id"`
}

// handleSwitchOrganization re-scopes the session to another organization.
func (s *Server) handleSwitchOrganization(w http.ResponseWriter, r *http.Request) {
	var req switchOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.OrganizationID == "" {
		writeBadRequest(w, "organization_id is required")
		return
	}

	if _, err := s.manager.SwitchOrganization(r.Context(), req.OrganizationID); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(s.manager.Snapshot()))
}

// handleCurrentUser queries the backend identity for the held token.
func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	identity, err := s.manager.CurrentUser(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, identity)
}

// handleOrganizations lists the user's organization memberships.
func (s *Server) handleOrganizations(w http.ResponseWriter, r *http.Request) {
	memberships, err := s.manager.Organizations(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, memberships)
}

// demoRoleRequest is the request body for PUT /session/demo-role.
type demoRoleRequest struct {
	Role auth.Role `json:"role"`
}

// handleSetDemoRole activates the in-memory role override.
func (s *Server) handleSetDemoRole(w http.ResponseWriter, r *http.Request) {
	var req demoRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.manager.SetDemoRole(req.Role); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(s.manager.Snapshot()))
}

// handleClearDemoRole removes the role override.
func (s *Server) handleClearDemoRole(w http.ResponseWriter, _ *http.Request) {
	s.manager.ClearDemoRole()
	writeJSON(w, http.StatusOK, newSessionView(s.manager.Snapshot()))
}
