// Package idp is the stock HTTP client for the hosted identity platform's
// client API. [New] returns a [Client] satisfying [authflow.Provider]; tests
// and alternative platforms supply their own implementations.
//
// Rejections (non-2xx responses) come back as [*authflow.ProviderError]
// carrying the platform's human-readable messages. Transport-level failures
// wrap [ErrRequestFailed].
//
// # What this package must NOT do
//
//   - Hold flow state. The platform owns the attempt; authflow owns the form.
//   - Retry. The flow surfaces failures to the user, who retries explicitly.
package idp
