package authflow

import (
	"context"
	"errors"
	"testing"
)

// verificationFlow builds a sign-up flow parked on the verification step with
// the provider attempt sua_1 pinned.
func verificationFlow(t *testing.T, engine *Engine, provider *fakeProvider) *Flow {
	t.Helper()

	provider.signUpAttempt = Attempt{
		ID:                  "sua_1",
		Status:              AttemptMissingRequirements,
		MissingRequirements: []string{RequirementEmailVerification},
	}

	f := signUpFlowAtProfile(t, engine)
	setProfile(t, f, DialectEgyptian, DialectDarija, 3)
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("profile Submit failed: %v", err)
	}
	if snap := f.Snapshot(); snap.Step != StepVerification {
		t.Fatalf("expected verification step, got %v", snap.Step)
	}
	return f
}

func TestVerificationWrongCodeKeepsStep(t *testing.T) {
	provider := &fakeProvider{
		verifyErr: &ProviderError{StatusCode: 422, Messages: []string{"That code didn't match. Try again."}},
	}
	engine, nav := newFlowTestEngine(t, provider)

	f := verificationFlow(t, engine, provider)
	if err := f.SetVerificationCode("000000"); err != nil {
		t.Fatalf("SetVerificationCode failed: %v", err)
	}
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	attempts := provider.methodCalls("AttemptEmailVerification")
	if len(attempts) != 1 || attempts[0].signUpID != "sua_1" || attempts[0].code != "000000" {
		t.Fatalf("expected one verification attempt of 000000 against sua_1, got %v", attempts)
	}

	snap := f.Snapshot()
	if snap.Step != StepVerification {
		t.Fatalf("expected flow to stay on verification, got %v", snap.Step)
	}
	if snap.Error != "That code didn't match. Try again." {
		t.Fatalf("expected provider message, got %q", snap.Error)
	}
	if len(nav.visited()) != 0 {
		t.Fatal("expected no navigation on a rejected code")
	}

	// A corrected code on the same pinned attempt completes the flow.
	provider.verifyErr = nil
	provider.verifyAttempt = completeAttempt("sua_1", "sess_1")

	if err := f.SetVerificationCode("424242"); err != nil {
		t.Fatalf("SetVerificationCode failed: %v", err)
	}
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	if visited := nav.visited(); len(visited) != 1 || visited[0] != "/learn" {
		t.Fatalf("expected navigation to /learn, got %v", visited)
	}
}

func TestVerificationSuccessActivatesThenNavigates(t *testing.T) {
	provider := &fakeProvider{
		verifyAttempt: completeAttempt("sua_1", "sess_1"),
	}
	engine, nav := newFlowTestEngine(t, provider)

	f := verificationFlow(t, engine, provider)
	_ = f.SetVerificationCode(" 424242 ")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	attempts := provider.methodCalls("AttemptEmailVerification")
	if len(attempts) != 1 || attempts[0].code != "424242" {
		t.Fatalf("expected trimmed code 424242, got %v", attempts)
	}
	activations := provider.methodCalls("ActivateSession")
	if len(activations) != 1 || activations[0].session != "sess_1" {
		t.Fatalf("expected activation of sess_1, got %v", activations)
	}
	if visited := nav.visited(); len(visited) != 1 || visited[0] != "/learn" {
		t.Fatalf("expected navigation to /learn, got %v", visited)
	}
	if !f.Snapshot().Closed {
		t.Fatal("expected completed flow")
	}
}

func TestVerificationEmptyCodeValidates(t *testing.T) {
	provider := &fakeProvider{}
	engine, _ := newFlowTestEngine(t, provider)

	f := verificationFlow(t, engine, provider)
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if len(provider.methodCalls("AttemptEmailVerification")) != 0 {
		t.Fatal("expected no verification attempt for an empty code")
	}
	if snap := f.Snapshot(); snap.Error != msgCodeRequired {
		t.Fatalf("expected %q, got %q", msgCodeRequired, snap.Error)
	}
}

func TestVerificationActivationFailureKeepsStep(t *testing.T) {
	provider := &fakeProvider{
		verifyAttempt: completeAttempt("sua_1", "sess_1"),
		activateErr:   errors.New("session gone"),
	}
	engine, _ := newFlowTestEngine(t, provider)

	f := verificationFlow(t, engine, provider)
	_ = f.SetVerificationCode("424242")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	snap := f.Snapshot()
	if snap.Step != StepVerification || snap.Closed {
		t.Fatal("expected flow to stay on verification after failed activation")
	}
	if snap.Error != msgGenericFailure {
		t.Fatalf("expected generic failure, got %q", snap.Error)
	}
}

func TestVerificationWithoutPinnedAttemptRejected(t *testing.T) {
	engine, _ := newFlowTestEngine(t, &fakeProvider{})

	f := engine.NewSignUpFlow()
	f.step = StepVerification

	if err := f.Submit(context.Background()); err != ErrNoSignUpAttempt {
		t.Fatalf("expected ErrNoSignUpAttempt, got %v", err)
	}
}

func TestBackClearsCodeAndErrorThenAllowsResubmit(t *testing.T) {
	provider := &fakeProvider{
		verifyErr: &ProviderError{StatusCode: 422, Messages: []string{"That code didn't match. Try again."}},
	}
	engine, _ := newFlowTestEngine(t, provider)

	f := verificationFlow(t, engine, provider)
	_ = f.SetVerificationCode("000000")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if f.Snapshot().Error == "" {
		t.Fatal("expected an error before going back")
	}

	if err := f.Back(); err != nil {
		t.Fatalf("Back failed: %v", err)
	}

	snap := f.Snapshot()
	if snap.Step != StepProfile {
		t.Fatalf("expected profile step after back, got %v", snap.Step)
	}
	if snap.Error != "" {
		t.Fatalf("expected cleared error, got %q", snap.Error)
	}
	if f.form.VerificationCode != "" {
		t.Fatal("expected cleared verification code")
	}

	// Resubmitting the profile starts a fresh provider attempt.
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("profile resubmit failed: %v", err)
	}
	if got := len(provider.methodCalls("CreateSignUp")); got != 2 {
		t.Fatalf("expected a second sign-up attempt, got %d", got)
	}
}

func TestBackOnlyAvailableOnVerificationStep(t *testing.T) {
	engine, _ := newFlowTestEngine(t, &fakeProvider{})

	f := engine.NewSignUpFlow()
	if err := f.Back(); err != ErrInvalidStep {
		t.Fatalf("expected ErrInvalidStep on credentials, got %v", err)
	}

	_ = f.SetEmail("jane@x.com")
	_ = f.SetPassword("correct-horse")
	if err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := f.Back(); err != ErrInvalidStep {
		t.Fatalf("expected ErrInvalidStep on profile, got %v", err)
	}
}

func TestResendCodeSendsFreshEmail(t *testing.T) {
	provider := &fakeProvider{}
	engine, _ := newFlowTestEngine(t, provider)

	f := verificationFlow(t, engine, provider)
	if err := f.ResendCode(context.Background()); err != nil {
		t.Fatalf("ResendCode failed: %v", err)
	}

	// One prepare from entering the step, one from the resend.
	if got := len(provider.methodCalls("PrepareEmailVerification")); got != 2 {
		t.Fatalf("expected two prepare calls, got %d", got)
	}
	snap := f.Snapshot()
	if !snap.CodeResent {
		t.Fatal("expected resend confirmation")
	}
	if snap.Step != StepVerification || snap.Error != "" {
		t.Fatal("expected flow state to be otherwise unchanged")
	}
}

func TestResendCodeThrottledAfterLimit(t *testing.T) {
	provider := &fakeProvider{}
	engine, _ := newThrottledEngine(t, provider)

	f := verificationFlow(t, engine, provider)
	if err := f.ResendCode(context.Background()); err != nil {
		t.Fatalf("first ResendCode failed: %v", err)
	}
	if !f.Snapshot().CodeResent {
		t.Fatal("expected first resend to go through")
	}

	if err := f.ResendCode(context.Background()); err != nil {
		t.Fatalf("second ResendCode failed: %v", err)
	}

	snap := f.Snapshot()
	if snap.Error != msgResendThrottled {
		t.Fatalf("expected throttle message, got %q", snap.Error)
	}
	if snap.CodeResent {
		t.Fatal("expected throttled resend to clear the confirmation")
	}
	// Initial prepare plus the single allowed resend.
	if got := len(provider.methodCalls("PrepareEmailVerification")); got != 2 {
		t.Fatalf("expected the throttled resend to skip the provider, got %d prepares", got)
	}
}

func TestResendCodeOutsideVerificationRejected(t *testing.T) {
	engine, _ := newFlowTestEngine(t, &fakeProvider{})

	f := engine.NewSignUpFlow()
	if err := f.ResendCode(context.Background()); err != ErrInvalidStep {
		t.Fatalf("expected ErrInvalidStep, got %v", err)
	}
}
