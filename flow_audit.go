package authflow

import (
	"context"
	"errors"
	"time"
)

const (
	eventSignInSuccess        = "signin_success"
	eventSignInFailure        = "signin_failure"
	eventSignUpCreated        = "signup_created"
	eventSignUpFailure        = "signup_failure"
	eventSignUpBlocked        = "signup_bot_blocked"
	eventVerificationSent     = "verification_sent"
	eventVerificationBypassed = "verification_bypassed"
	eventVerificationSuccess  = "verification_success"
	eventVerificationFailure  = "verification_failure"
	eventVerificationResent   = "verification_resent"
	eventResetEmailRequested  = "reset_email_requested"
	eventMetadataRepushFailed = "signup_metadata_repush_failed"
)

// AuditErrorCode is the coarse error classification attached to audit events.
// Codes are stable strings; sinks may key dashboards and alerts off them.
type AuditErrorCode string

const (
	auditErrProviderRejected    AuditErrorCode = "provider_rejected"
	auditErrThrottled           AuditErrorCode = "throttled"
	auditErrThrottleUnavailable AuditErrorCode = "throttle_unavailable"
	auditErrSessionActivation   AuditErrorCode = "session_activation_failed"
	auditErrCanceled            AuditErrorCode = "canceled"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	flowID string,
	attemptID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		FlowID:    flowID,
		AttemptID: attemptID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var pe *ProviderError
	switch {
	case errors.As(err, &pe):
		return auditErrProviderRejected
	case errors.Is(err, ErrResendThrottled),
		errors.Is(err, ErrResetThrottled):
		return auditErrThrottled
	case errors.Is(err, ErrThrottleUnavailable):
		return auditErrThrottleUnavailable
	case errors.Is(err, ErrSessionActivationFailed):
		return auditErrSessionActivation
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	default:
		return auditErrInternal
	}
}
