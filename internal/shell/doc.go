// Package shell provides the local HTTP server backing the console UI.
//
// It exposes the session lifecycle (login, register, logout, refresh-on-
// startup, organization switch) as a small REST surface, serves the
// role-gated view routes, and pushes session change events to connected
// UI clients over a WebSocket hub so that every open view re-evaluates
// its guards the moment the session changes.
//
// The server follows the standard component lifecycle:
//
//	server, err := shell.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package shell
