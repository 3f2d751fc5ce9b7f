package authflow

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	msgEmailRequired    = "Enter your email address."
	msgPasswordRequired = "Enter your password."
	msgResetEmailFirst  = "Enter your email address to reset your password."
	msgResetThrottled   = "Too many reset emails requested. Please wait before trying again."
)

// submitSignIn runs the password sign-in against the provider. Called with
// f.mu held; releases it.
func (f *Flow) submitSignIn(ctx context.Context) error {
	email := strings.TrimSpace(f.form.Email)
	password := f.form.Password
	switch {
	case email == "":
		f.errText = msgEmailRequired
		f.mu.Unlock()
		return nil
	case password == "":
		f.errText = msgPasswordRequired
		f.mu.Unlock()
		return nil
	}
	f.beginCall()

	e := f.engine
	start := time.Now()
	att, err := e.provider.CreateSignIn(ctx, SignInParams{
		Strategy:   StrategyPassword,
		Identifier: email,
		Password:   password,
	})
	e.metricObserve(MetricSignInLatency, time.Since(start))

	if err != nil {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, eventSignInFailure, false, f.ID(), "", err, nil)
		f.failWith(providerErrorText(err))
		return nil
	}
	if att.Status != AttemptComplete {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, eventSignInFailure, false, f.ID(), att.ID, nil, func() map[string]string {
			return map[string]string{"reason": "unsupported_status"}
		})
		f.failWith(msgGenericFailure)
		return nil
	}
	applied, err := f.completeAuth(ctx, att.CreatedSessionID)
	if err != nil {
		e.metricInc(MetricSignInFailure)
		e.emitAudit(ctx, eventSignInFailure, false, f.ID(), att.ID, err, func() map[string]string {
			return map[string]string{"reason": "session_activation"}
		})
		f.failWith(providerErrorText(err))
		return nil
	}
	if applied {
		e.metricInc(MetricSignInSuccess)
		e.emitAudit(ctx, eventSignInSuccess, true, f.ID(), att.ID, nil, nil)
	}
	return nil
}

// ForgotPassword asks the provider to email a password reset code to the
// address currently in the form. Sign-in flows only. The flow step never
// changes; the outcome lands in the snapshot as either the reset confirmation
// flag or a transient error.
func (f *Flow) ForgotPassword(ctx context.Context) error {
	if f.mode != ModeSignIn {
		return ErrNotSignIn
	}
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.busy {
		f.mu.Unlock()
		return ErrFlowBusy
	}
	email := strings.TrimSpace(f.form.Email)
	if email == "" {
		f.errText = msgResetEmailFirst
		f.mu.Unlock()
		return nil
	}
	f.beginCall()

	e := f.engine
	if err := e.allowResetEmail(ctx, email); err != nil {
		reason := "throttled"
		text := msgResetThrottled
		if !errors.Is(err, ErrResetThrottled) {
			reason = "throttle_unavailable"
			text = msgGenericFailure
		}
		e.metricInc(MetricResetThrottled)
		e.emitAudit(ctx, eventResetEmailRequested, false, f.ID(), "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		f.failWith(text)
		return nil
	}

	_, err := e.provider.CreateSignIn(ctx, SignInParams{
		Strategy:   StrategyResetPasswordEmailCode,
		Identifier: email,
	})
	if err != nil {
		e.metricInc(MetricResetEmailFailure)
		e.emitAudit(ctx, eventResetEmailRequested, false, f.ID(), "", err, nil)
		f.failWith(providerErrorText(err))
		return nil
	}

	e.metricInc(MetricResetEmailRequested)
	e.emitAudit(ctx, eventResetEmailRequested, true, f.ID(), "", nil, nil)
	f.finish(func() { f.resetEmailSent = true })
	return nil
}
