package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/driftwatch/console-core/internal/auth"
	"github.com/driftwatch/console-core/internal/backend"
	"github.com/driftwatch/console-core/internal/infrastructure/logging"
)

// State is the lifecycle state of the session manager.
type State string

const (
	// StateUninitialized means Resolve has not run yet.
	StateUninitialized State = "uninitialized"

	// StateLoading means startup resolution or a silent refresh is in
	// flight.
	StateLoading State = "loading"

	// StateAuthenticated means the manager holds a complete session with
	// a non-expired access token as of the last check.
	StateAuthenticated State = "authenticated"

	// StateUnauthenticated means no usable session exists.
	StateUnauthenticated State = "unauthenticated"
)

// API is the slice of the backend client the manager depends on.
// *backend.Client satisfies it.
type API interface {
	Login(ctx context.Context, email, password, orgID string) (*backend.SessionBundle, error)
	Register(ctx context.Context, email, password, name, orgName string) (*backend.SessionBundle, error)
	Refresh(ctx context.Context, refreshToken, orgID string) (*backend.RefreshResult, error)
	SwitchOrganization(ctx context.Context, refreshToken, orgID string) (*backend.RefreshResult, error)
	CurrentUser(ctx context.Context, accessToken string) (*backend.Identity, error)
	Organizations(ctx context.Context, accessToken string) ([]backend.OrgMembership, error)
}

// Snapshot is an immutable view of manager state handed to subscribers
// and guards.
type Snapshot struct {
	State State

	// Session is a copy of the current session, nil unless authenticated.
	Session *auth.Session

	// EffectiveRole is the role guards evaluate against: the demo
	// override when one is active, the real session role otherwise.
	EffectiveRole auth.Role

	// DemoRole is the active override, empty when none is set.
	DemoRole auth.Role
}

// Listener receives a snapshot after every state transition.
type Listener func(Snapshot)

// Config wires a Manager's dependencies.
type Config struct {
	Store  Store
	API    API
	Logger *logging.Logger

	// ClockSkew is the token expiry buffer; zero selects the default.
	ClockSkew time.Duration

	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Manager is the session state machine.
//
// It is constructed once at application start and torn down with the
// process; views come and go around it. Operations are serialized by a
// mutex, so two racing auth actions cannot interleave their persisted
// bundles — the store sees one atomic bundle per completed call.
type Manager struct {
	store  Store
	api    API
	logger *logging.Logger
	clock  func() time.Time
	skew   time.Duration

	// opMu serializes the mutating operations end to end, including
	// their backend calls.
	opMu sync.Mutex

	// mu guards the fields below. Reads (snapshots, guard checks) never
	// block on in-flight backend calls.
	mu        sync.RWMutex
	state     State
	session   *auth.Session
	demoRole  auth.Role
	listeners map[int]Listener
	nextSub   int
}

// NewManager creates a session manager. Resolve must be called before
// the manager reports anything other than StateUninitialized.
func NewManager(cfg Config) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = auth.DefaultClockSkew
	}
	return &Manager{
		store:     cfg.Store,
		api:       cfg.API,
		logger:    cfg.Logger,
		clock:     clock,
		skew:      skew,
		state:     StateUninitialized,
		listeners: make(map[int]Listener),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated reports whether a usable session is held.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Snapshot returns a copy of the current state for read-only consumers.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// snapshotLocked builds a snapshot. Caller holds mu.
func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{
		State:         m.state,
		Session:       m.session.Clone(),
		EffectiveRole: m.effectiveRoleLocked(),
		DemoRole:      m.demoRole,
	}
}

// EffectiveRole returns the role guards must evaluate against. It is
// computed at read time, never cached: the demo override when active,
// otherwise the real session role, otherwise empty.
func (m *Manager) EffectiveRole() auth.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.effectiveRoleLocked()
}

func (m *Manager) effectiveRoleLocked() auth.Role {
	if m.demoRole != "" {
		return m.demoRole
	}
	if m.session != nil {
		return m.session.Role
	}
	return ""
}

// SetDemoRole activates the development-only role override. The override
// lives in memory only: it is never persisted, never sent to the
// backend, and resets on process restart.
func (m *Manager) SetDemoRole(role auth.Role) error {
	if !auth.IsValidRole(role) {
		return fmt.Errorf("%w: %q", auth.ErrInvalidRole, role)
	}

	m.mu.Lock()
	m.demoRole = role
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("demo role override set", "role", role)
	m.notify(snap)
	return nil
}

// ClearDemoRole removes the override; guards fall back to the real role.
func (m *Manager) ClearDemoRole() {
	m.mu.Lock()
	m.demoRole = ""
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info("demo role override cleared")
	m.notify(snap)
}

// Subscribe registers a listener invoked after every state transition.
// The returned function unsubscribes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// notify delivers a snapshot to all listeners outside any lock.
func (m *Manager) notify(snap Snapshot) {
	m.mu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.RUnlock()

	for _, l := range listeners {
		l(snap)
	}
}

// Resolve runs startup resolution: Uninitialized → Loading →
// {Authenticated, Unauthenticated}.
//
// A persisted session with a live access token authenticates without any
// network call. An expired token with a refresh token triggers a silent
// refresh; the refreshed bundle is re-persisted before the manager
// reports Authenticated. Every failure path — missing bundle, corrupt
// bundle, refresh rejection, transport failure — fails closed to
// Unauthenticated with storage cleared. The manager never guesses that a
// session is valid when it cannot confirm so.
func (m *Manager) Resolve(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.transition(StateLoading, nil)

	sess, err := m.store.Load(ctx)
	if err != nil {
		if err == auth.ErrNoSession {
			m.logger.Info("no persisted session")
			m.transition(StateUnauthenticated, nil)
			return nil
		}
		if err == auth.ErrSessionIncomplete {
			m.logger.Warn("persisted session incomplete, clearing")
			m.clearStore(ctx)
			m.transition(StateUnauthenticated, nil)
			return nil
		}
		// Storage I/O failure: fail closed, but report it — the caller
		// may want to abort startup entirely.
		m.transition(StateUnauthenticated, nil)
		return fmt.Errorf("loading persisted session: %w", err)
	}

	if !auth.TokenExpiredAt(sess.AccessToken, m.skew, m.clock()) {
		m.logger.Info("restored session", "user_id", sess.User.ID, "org_id", sess.Organization.ID)
		m.transition(StateAuthenticated, sess)
		return nil
	}

	if sess.RefreshToken == "" {
		m.logger.Info("persisted access token expired, no refresh token")
		m.clearStore(ctx)
		m.transition(StateUnauthenticated, nil)
		return nil
	}

	result, err := m.api.Refresh(ctx, sess.RefreshToken, sess.Organization.ID)
	if err != nil {
		// An explicit 401 and a transport failure end the same way
		// during startup: fail closed.
		m.logger.Warn("silent refresh failed", "error", err)
		m.clearStore(ctx)
		m.transition(StateUnauthenticated, nil)
		return nil
	}

	refreshed := sess.Clone()
	refreshed.AccessToken = result.AccessToken
	if err := m.store.Save(ctx, refreshed); err != nil {
		m.logger.Error("persisting refreshed session failed", "error", err)
	}
	m.logger.Info("session silently refreshed", "user_id", refreshed.User.ID)
	m.transition(StateAuthenticated, refreshed)
	return nil
}

// Login authenticates with credentials. On success the full bundle is
// persisted atomically and the manager becomes Authenticated. On failure
// the previous state and storage are left untouched; the typed error is
// surfaced to the caller.
func (m *Manager) Login(ctx context.Context, email, password, orgID string) (*auth.Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	bundle, err := m.api.Login(ctx, email, password, orgID)
	if err != nil {
		return nil, err
	}
	return m.adoptBundle(ctx, bundle)
}

// Register creates an account and its first organization, then adopts
// the returned bundle exactly like Login.
func (m *Manager) Register(ctx context.Context, email, password, name, orgName string) (*auth.Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	bundle, err := m.api.Register(ctx, email, password, name, orgName)
	if err != nil {
		return nil, err
	}
	return m.adoptBundle(ctx, bundle)
}

// adoptBundle validates, persists, and installs a login/register bundle.
func (m *Manager) adoptBundle(ctx context.Context, bundle *backend.SessionBundle) (*auth.Session, error) {
	sess := &auth.Session{
		AccessToken:  bundle.AccessToken,
		RefreshToken: bundle.RefreshToken,
		User:         bundle.User,
		Organization: bundle.Org,
		Role:         bundle.Role,
	}
	if !sess.Complete() {
		return nil, fmt.Errorf("backend returned incomplete session bundle: %w", auth.ErrSessionIncomplete)
	}

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	m.logger.Info("authenticated", "user_id", sess.User.ID, "org_id", sess.Organization.ID, "role", sess.Role)
	m.transition(StateAuthenticated, sess)
	return sess.Clone(), nil
}

// Logout clears storage and transitions to Unauthenticated. It cannot
// fail and is idempotent; a storage error is logged, never surfaced.
func (m *Manager) Logout(ctx context.Context) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.clearStore(ctx)
	m.logger.Info("logged out")
	m.transition(StateUnauthenticated, nil)
}

// SwitchOrganization re-scopes the session to another organization
// without re-authentication. The new access token is decoded for the new
// role; the new token, organization, and role are persisted together
// while the user and refresh token stay untouched. Dependent views are
// invalidated through the subscriber broadcast, not a full reload.
func (m *Manager) SwitchOrganization(ctx context.Context, orgID string) (*auth.Session, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.RLock()
	current := m.session.Clone()
	state := m.state
	m.mu.RUnlock()

	if state != StateAuthenticated || current == nil {
		return nil, auth.ErrNotAuthenticated
	}
	if current.RefreshToken == "" {
		return nil, auth.ErrNoRefreshToken
	}

	result, err := m.api.SwitchOrganization(ctx, current.RefreshToken, orgID)
	if err != nil {
		if backend.IsUnauthorized(err) {
			// Revoked refresh token: the whole session is dead.
			m.logger.Warn("refresh token rejected during organization switch")
			m.clearStore(ctx)
			m.transition(StateUnauthenticated, nil)
		}
		return nil, err
	}

	claims := auth.DecodeToken(result.AccessToken)
	if claims == nil || !auth.IsValidRole(claims.Role) {
		// The old session is still valid; keep it.
		return nil, fmt.Errorf("switch-organization returned an undecodable token: %w", auth.ErrSessionIncomplete)
	}

	switched := current.Clone()
	switched.AccessToken = result.AccessToken
	switched.Organization = m.resolveOrganization(ctx, result.AccessToken, orgID)
	switched.Role = claims.Role

	if err := m.store.Save(ctx, switched); err != nil {
		return nil, fmt.Errorf("persisting switched session: %w", err)
	}

	m.logger.Info("organization switched",
		"org_id", switched.Organization.ID, "role", switched.Role)
	m.transition(StateAuthenticated, switched)
	return switched.Clone(), nil
}

// resolveOrganization fills in organization metadata for a switch from
// the membership listing. The switch does not fail when the listing is
// unavailable — the organization ID from the switch request is
// authoritative, the rest is display data.
func (m *Manager) resolveOrganization(ctx context.Context, accessToken, orgID string) auth.Organization {
	memberships, err := m.api.Organizations(ctx, accessToken)
	if err != nil {
		m.logger.Warn("organization listing unavailable after switch", "error", err)
		return auth.Organization{ID: orgID}
	}
	for _, ms := range memberships {
		if ms.Org.ID == orgID {
			return ms.Org
		}
	}
	return auth.Organization{ID: orgID}
}

// CurrentUser queries the backend identity for the held access token.
// A 401 is fatal to the session.
func (m *Manager) CurrentUser(ctx context.Context) (*backend.Identity, error) {
	token, err := m.accessToken()
	if err != nil {
		return nil, err
	}

	identity, err := m.api.CurrentUser(ctx, token)
	if err != nil {
		m.handleBearerError(ctx, err)
		return nil, err
	}
	return identity, nil
}

// Organizations lists the user's organization memberships for the
// switcher. A 401 is fatal to the session.
func (m *Manager) Organizations(ctx context.Context) ([]backend.OrgMembership, error) {
	token, err := m.accessToken()
	if err != nil {
		return nil, err
	}

	memberships, err := m.api.Organizations(ctx, token)
	if err != nil {
		m.handleBearerError(ctx, err)
		return nil, err
	}
	return memberships, nil
}

// accessToken returns the held token or ErrNotAuthenticated.
func (m *Manager) accessToken() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != StateAuthenticated || m.session == nil {
		return "", auth.ErrNotAuthenticated
	}
	return m.session.AccessToken, nil
}

// handleBearerError force-logs-out on a 401 from any bearer call.
func (m *Manager) handleBearerError(ctx context.Context, err error) {
	if !backend.IsUnauthorized(err) {
		return
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()

	// Re-check under the operation lock: a concurrent login may have
	// already replaced the session the 401 belonged to.
	if m.State() != StateAuthenticated {
		return
	}
	m.logger.Warn("bearer token rejected, ending session")
	m.clearStore(ctx)
	m.transition(StateUnauthenticated, nil)
}

// clearStore clears persisted state, logging rather than failing.
func (m *Manager) clearStore(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error("clearing session store failed", "error", err)
	}
}

// transition installs a new state and session, then notifies listeners.
func (m *Manager) transition(state State, sess *auth.Session) {
	m.mu.Lock()
	m.state = state
	m.session = sess
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.notify(snap)
}
