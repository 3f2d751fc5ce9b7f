package authflow

import "errors"

var (
	// ErrFlowClosed means the flow was torn down; the action was ignored.
	ErrFlowClosed = errors.New("flow closed")
	// ErrFlowBusy means a provider call is already in flight on this flow.
	ErrFlowBusy = errors.New("flow busy")
	// ErrInvalidStep means the action is not available in the current step.
	ErrInvalidStep = errors.New("action not available in current step")
	// ErrNotSignIn means forgot-password was invoked on a sign-up flow.
	ErrNotSignIn = errors.New("forgot password requires a sign-in flow")
	// ErrNoSignUpAttempt means no provider sign-up attempt is in progress.
	ErrNoSignUpAttempt = errors.New("no sign-up attempt in progress")
	// ErrResendThrottled means the verification resend budget is exhausted.
	ErrResendThrottled = errors.New("verification resend throttled")
	// ErrResetThrottled means the reset-email budget is exhausted.
	ErrResetThrottled = errors.New("password reset throttled")
	// ErrThrottleUnavailable means the throttle backend could not be reached.
	ErrThrottleUnavailable = errors.New("throttle backend unavailable")
	// ErrSessionActivationFailed means the provider refused to activate the
	// session issued for a completed attempt.
	ErrSessionActivationFailed = errors.New("session activation failed")
)
