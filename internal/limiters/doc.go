// Package limiters provides the Redis-backed fixed-window throttles used by
// the flow engine's email-sending operations.
//
// # Limiters
//
//   - [ResendLimiter] — per-sign-up-attempt + per-IP throttle for verification
//     code resends.
//   - [ResetEmailLimiter] — per-identifier + per-IP throttle for password
//     reset emails.
//
// # Architecture boundaries
//
// Each limiter owns its own Redis key namespace and error types. Policy
// thresholds come from Config structs supplied at construction time.
//
// # What this package must NOT do
//
//   - Import the root package or any sibling internal package.
//   - Make policy decisions beyond counting — the flow decides consequences.
package limiters
