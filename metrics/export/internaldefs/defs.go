package internaldefs

import (
	authflow "github.com/abjadnlp2026-anon/arabic-dialect-hub"
)

// CounterDef binds one engine counter to its exported metric name.
type CounterDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// HistogramDef binds one engine latency histogram to its exported metric name.
type HistogramDef struct {
	ID   authflow.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter both exporters publish, in a fixed order.
var CounterDefs = []CounterDef{
	{ID: authflow.MetricSignInSuccess, Name: "authflow_signin_success_total", Help: "Completed password sign-ins."},
	{ID: authflow.MetricSignInFailure, Name: "authflow_signin_failure_total", Help: "Rejected or failed sign-in submissions."},
	{ID: authflow.MetricSignUpCreated, Name: "authflow_signup_created_total", Help: "Sign-ups completed through any path."},
	{ID: authflow.MetricSignUpFailure, Name: "authflow_signup_failure_total", Help: "Rejected or failed sign-up submissions."},
	{ID: authflow.MetricProfileStepShown, Name: "authflow_profile_step_shown_total", Help: "Sign-up flows reaching the profile step."},
	{ID: authflow.MetricBotChallengeBlocked, Name: "authflow_bot_challenge_blocked_total", Help: "Sign-ups parked on a bot challenge."},
	{ID: authflow.MetricVerificationSent, Name: "authflow_verification_sent_total", Help: "Verification emails triggered at sign-up."},
	{ID: authflow.MetricVerificationBypassed, Name: "authflow_verification_bypassed_total", Help: "Sign-ups authenticated on the early session."},
	{ID: authflow.MetricVerificationSuccess, Name: "authflow_verification_success_total", Help: "Accepted verification codes."},
	{ID: authflow.MetricVerificationFailure, Name: "authflow_verification_failure_total", Help: "Rejected verification attempts."},
	{ID: authflow.MetricVerificationResent, Name: "authflow_verification_resent_total", Help: "Re-sent verification emails."},
	{ID: authflow.MetricResendThrottled, Name: "authflow_verification_resend_throttled_total", Help: "Resend attempts stopped by the limiter."},
	{ID: authflow.MetricResetEmailRequested, Name: "authflow_reset_email_requested_total", Help: "Password reset emails triggered."},
	{ID: authflow.MetricResetEmailFailure, Name: "authflow_reset_email_failure_total", Help: "Reset requests the provider refused."},
	{ID: authflow.MetricResetThrottled, Name: "authflow_reset_email_throttled_total", Help: "Reset attempts stopped by the limiter."},
	{ID: authflow.MetricMetadataRepushFailure, Name: "authflow_metadata_repush_failure_total", Help: "Best-effort metadata re-pushes that failed."},
}

// HistogramDefs lists every latency histogram both exporters publish.
var HistogramDefs = []HistogramDef{
	{ID: authflow.MetricSignInLatency, Name: "authflow_signin_latency_seconds", Help: "Sign-in provider round-trip latency."},
	{ID: authflow.MetricSignUpLatency, Name: "authflow_signup_latency_seconds", Help: "Sign-up creation round-trip latency."},
	{ID: authflow.MetricVerificationLatency, Name: "authflow_verification_latency_seconds", Help: "Code verification round-trip latency."},
}

// HistogramBounds are the upper bucket bounds, in seconds, matching the
// engine's fixed histogram layout.
var HistogramBounds = []string{
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters safe for
// instrument names.
var HistogramBoundSuffix = []string{
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed layout.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form
// Prometheus histograms expect.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
