// Package httpapi exposes the authentication flows to browser clients as a
// small JSON API.
//
// A flow is created with POST /flows/signin or POST /flows/signup, which sets
// a signed, HttpOnly affinity cookie naming the flow instance. Every later
// action (field updates, submit, back, forgot-password, resend) reattaches
// through that cookie and answers with the flow snapshot the client should
// render. Validation failures and provider rejections are part of the
// snapshot, not HTTP errors; only usage faults (busy flow, wrong step, dead
// cookie) map onto 4xx statuses.
//
// Flows are held in memory. An idle sweeper closes and evicts instances that
// have not been touched within the configured TTL, so an abandoned tab never
// pins provider state.
//
// This package must NOT:
//   - Cache or log credentials, verification codes, or provider responses.
//   - Reach into flow internals; everything goes through the public Flow
//     surface and its snapshots.
//   - Serve the provider's session cookie. Activation happens inside the
//     engine; this API only reports where the client should navigate.
package httpapi
