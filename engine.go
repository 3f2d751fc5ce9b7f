package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/abjadnlp2026-anon/arabic-dialect-hub/internal/limiters"
)

// Engine holds the collaborators shared by every flow: the identity provider,
// the navigation hook, the Redis-backed throttles, and the audit and metrics
// pipelines. One engine serves many concurrent flows; each flow still owns
// its form state exclusively.
//
// Engines are built through [New] and are safe for concurrent use once built.
type Engine struct {
	cfg       Config
	provider  Provider
	navigator Navigator

	resendLimiter *limiters.ResendLimiter
	resetLimiter  *limiters.ResetEmailLimiter

	audit   *auditDispatcher
	metrics *Metrics

	closed atomic.Bool
}

// NewSignInFlow creates a flow driving the sign-in page.
func (e *Engine) NewSignInFlow() *Flow {
	f := newFlow(e, ModeSignIn)
	if e.closed.Load() {
		f.closed = true
	}
	return f
}

// NewSignUpFlow creates a flow driving the multi-step sign-up page.
func (e *Engine) NewSignUpFlow() *Flow {
	f := newFlow(e, ModeSignUp)
	if e.closed.Load() {
		f.closed = true
	}
	return f
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.cfg)
}

// Close drains the audit dispatcher and marks the engine closed. Flows
// created afterwards are born closed; existing flows keep their usual
// teardown semantics.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.closed.Swap(true) {
		return
	}
	e.audit.Close()
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	e.metrics.Observe(id, d)
}

/*
====================================
THROTTLES
====================================
*/

// allowResend consumes one resend budget slot for the sign-up attempt.
// Without a configured limiter every request passes.
func (e *Engine) allowResend(ctx context.Context, signUpID string) error {
	if e.resendLimiter == nil {
		return nil
	}
	if err := e.resendLimiter.Check(ctx, signUpID, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrResendRateLimited) {
			return ErrResendThrottled
		}
		return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}
	return nil
}

// allowResetEmail consumes one reset-email budget slot for the identifier.
// Without a configured limiter every request passes.
func (e *Engine) allowResetEmail(ctx context.Context, identifier string) error {
	if e.resetLimiter == nil {
		return nil
	}
	if err := e.resetLimiter.Check(ctx, identifier, clientIPFromContext(ctx)); err != nil {
		if errors.Is(err, limiters.ErrResetRateLimited) {
			return ErrResetThrottled
		}
		return fmt.Errorf("%w: %v", ErrThrottleUnavailable, err)
	}
	return nil
}
