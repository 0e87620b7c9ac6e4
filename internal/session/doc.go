// Package session owns client-side session state for Console Core.
//
// It has two halves:
//
//   - Store: the persisted session store. Each session field lives under
//     its own namespaced key in SQLite so partial corruption is
//     detectable, and every bundle is written in one transaction so a
//     load never observes fields from two different sessions.
//
//   - Manager: the session state machine. It loads the persisted session
//     at startup, silently refreshes an expired access token when a
//     refresh token is available, and exposes the login, register,
//     logout, and switch-organization operations to the shell. Guards
//     subscribe to the manager and re-evaluate on every transition.
//
// Failure semantics are fail-closed: if the manager cannot confirm that
// a session is valid during startup resolution, it clears storage and
// reports Unauthenticated. A 401 from any bearer-authenticated backend
// call is fatal to the session, regardless of which operation saw it.
package session
