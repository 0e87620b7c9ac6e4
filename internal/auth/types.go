package auth

import "errors"

// User identifies the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Organization is the organization the session is currently scoped to.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Plan string `json:"plan"`
}

// Session is the authoritative client-side record of "who is acting, as
// whom, with what token".
//
// Invariant: User, Organization, and Role are either all present or the
// session is unusable — partial sessions are never persisted or exposed.
// The refresh token may legitimately be absent (short-lived sessions).
type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         User         `json:"user"`
	Organization Organization `json:"organization"`
	Role         Role         `json:"role"`
}

// Complete returns true if the session carries an access token and the
// full user/organization/role triple.
func (s *Session) Complete() bool {
	if s == nil {
		return false
	}
	return s.AccessToken != "" &&
		s.User.ID != "" &&
		s.Organization.ID != "" &&
		IsValidRole(s.Role)
}

// Clone returns a copy of the session so callers cannot mutate the
// manager's in-memory state through a snapshot.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	dup := *s
	return &dup
}

// Sentinel errors for session operations.
var (
	ErrNoSession         = errors.New("no persisted session")
	ErrSessionIncomplete = errors.New("persisted session is incomplete")
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrNoRefreshToken    = errors.New("no refresh token available")
	ErrInvalidRole       = errors.New("invalid role")
)
