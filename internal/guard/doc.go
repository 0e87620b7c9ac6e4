// Package guard provides declarative role gates for protected surfaces.
//
// Two shapes exist:
//
//   - RenderGate wraps a single control or fragment: the allowed handler
//     serves when the role check passes, the fallback otherwise. With no
//     fallback the gate serves nothing. Used to hide individual controls.
//
//   - RedirectGate protects a whole screen: a failed check issues one
//     redirect to the configured target and serves nothing else. The gate
//     never redirects a request already at the target, so a failing check
//     cannot loop.
//
// All gates evaluate the manager's effective role, never the session
// role directly, so the demo override changes gating everywhere at once
// without touching persisted state or backend calls.
package guard
