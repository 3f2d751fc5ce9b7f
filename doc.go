// Package authflow implements the client-side authentication flows of the
// dialect-learning app: sign-in, the multi-step sign-up (credentials, learner
// profile, optional email verification), and password reset initiation. It
// drives a hosted identity provider through the [Provider] interface and
// never stores credentials itself.
//
// Each mounted form is one [Flow]. Flows are built by a shared [Engine] and
// own their state exclusively: transient errors, loading windows, and step
// transitions never leak between instances. Engine methods and Flow methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authflow is the public surface. It exposes [Engine], [Builder], [Flow],
// [Config], and value types (Snapshot, Attempt, MetricsSnapshot, etc.).
// Throttle plumbing lives under internal/ and is never exported; the stock
// provider client lives in the idp package; HTTP framing lives in httpapi.
//
// # What this package must NOT do
//
//   - Persist passwords, verification codes, or provider attempts. The
//     provider owns durable identity state; flows hold form state in memory
//     for the lifetime of one mounted form.
//   - Navigate before session activation has succeeded.
//   - Issue more than one provider call per flow at a time.
//
// # Concurrency contract
//
// Every flow action holds the flow mutex only around state transitions, never
// across a provider round-trip. A result resolving after [Flow.Close] is
// discarded without touching state or navigating.
package authflow
