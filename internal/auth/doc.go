// Package auth provides client-side session and authorisation primitives
// for Console Core.
//
// It implements a 4-tier role model (viewer → member → admin → owner)
// with:
//   - Unverified JWT claim decoding for expiry checks and role extraction
//   - Ordinal role comparison (minimum-role and exact-role policies)
//   - The Session record: "who is acting, as whom, with what token"
//
// The decoded claim set is never trusted for authorisation beyond UI
// gating — the backend is the authority. A forged claim set can at worst
// make the console show or hide controls; it can never bypass
// server-enforced permissions.
package auth
