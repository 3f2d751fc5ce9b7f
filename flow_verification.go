package authflow

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	msgCodeRequired    = "Enter the code from your email."
	msgResendThrottled = "Too many codes requested. Please wait before asking for another."
)

// submitVerification attempts the emailed code against the pinned sign-up
// attempt. Called with f.mu held; releases it.
func (f *Flow) submitVerification(ctx context.Context) error {
	if f.signUpID == "" {
		f.mu.Unlock()
		return ErrNoSignUpAttempt
	}
	code := strings.TrimSpace(f.form.VerificationCode)
	if code == "" {
		f.errText = msgCodeRequired
		f.mu.Unlock()
		return nil
	}
	signUpID := f.signUpID
	f.beginCall()

	e := f.engine
	start := time.Now()
	att, err := e.provider.AttemptEmailVerification(ctx, signUpID, code)
	e.metricObserve(MetricVerificationLatency, time.Since(start))

	if err != nil {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, eventVerificationFailure, false, f.ID(), signUpID, err, nil)
		f.failWith(providerErrorText(err))
		return nil
	}
	if att.Status != AttemptComplete {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, eventVerificationFailure, false, f.ID(), signUpID, nil, func() map[string]string {
			return map[string]string{"reason": "unsupported_status"}
		})
		f.failWith(msgGenericFailure)
		return nil
	}
	applied, err := f.completeAuth(ctx, att.CreatedSessionID)
	if err != nil {
		e.metricInc(MetricVerificationFailure)
		e.emitAudit(ctx, eventVerificationFailure, false, f.ID(), signUpID, err, func() map[string]string {
			return map[string]string{"reason": "session_activation"}
		})
		f.failWith(providerErrorText(err))
		return nil
	}
	if applied {
		e.metricInc(MetricVerificationSuccess)
		e.emitAudit(ctx, eventVerificationSuccess, true, f.ID(), signUpID, nil, nil)
	}
	return nil
}

// Back returns from the verification step to the profile step, clearing the
// typed code and any transient error. No provider call is involved; the
// provider-side sign-up attempt stays pinned in case the learner comes
// straight back.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFlowClosed
	}
	if f.busy {
		return ErrFlowBusy
	}
	if f.step != StepVerification {
		return ErrInvalidStep
	}
	f.step = StepProfile
	f.form.VerificationCode = ""
	f.errText = ""
	f.codeResent = false
	return nil
}

// ResendCode asks the provider to email a fresh verification code for the
// pinned sign-up attempt. Available only on the verification step. The
// operation is throttled when the engine carries a Redis-backed limiter.
func (f *Flow) ResendCode(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.busy {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	if f.step != StepVerification {
		f.mu.Unlock()
		return ErrInvalidStep
	}
	if f.signUpID == "" {
		f.mu.Unlock()
		return ErrNoSignUpAttempt
	}
	signUpID := f.signUpID
	f.beginCall()

	e := f.engine
	if err := e.allowResend(ctx, signUpID); err != nil {
		reason := "throttled"
		text := msgResendThrottled
		if !errors.Is(err, ErrResendThrottled) {
			reason = "throttle_unavailable"
			text = msgGenericFailure
		}
		e.metricInc(MetricResendThrottled)
		e.emitAudit(ctx, eventVerificationResent, false, f.ID(), signUpID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		f.failWith(text)
		return nil
	}

	if err := e.provider.PrepareEmailVerification(ctx, signUpID); err != nil {
		e.emitAudit(ctx, eventVerificationResent, false, f.ID(), signUpID, err, nil)
		f.failWith(providerErrorText(err))
		return nil
	}

	e.metricInc(MetricVerificationResent)
	e.emitAudit(ctx, eventVerificationResent, true, f.ID(), signUpID, nil, nil)
	f.finish(func() { f.codeResent = true })
	return nil
}
