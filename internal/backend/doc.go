// Package backend is the typed HTTP client for the remote auth backend.
//
// It issues the five session-lifecycle requests (login, register,
// refresh, switch-organization via refresh, identity query) plus the
// organization listing for the switcher, and translates every non-2xx
// response into a typed *APIError carrying the HTTP status and the
// backend's detail message. Callers branch on status, never on message
// text.
//
// The client is stateless: it holds no token and no session. Custody of
// tokens belongs to the session manager.
package backend
