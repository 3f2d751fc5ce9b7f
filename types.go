package authflow

import (
	"context"
	"encoding/json"
	"strings"
)

// Mode selects which page a [Flow] drives. It is fixed at flow creation:
// switching between the sign-in and sign-up pages means creating a new flow.
type Mode uint8

const (
	// ModeSignIn drives the sign-in page: credentials plus forgot-password.
	ModeSignIn Mode = iota
	// ModeSignUp drives the multi-step sign-up page.
	ModeSignUp
)

// String returns the wire/log name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSignIn:
		return "sign_in"
	case ModeSignUp:
		return "sign_up"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the mode by name.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// Step is the screen a [Flow] currently shows. Exactly one step is active at
// a time; transitions are one-directional except the explicit back navigation
// from StepVerification to StepProfile.
type Step uint8

const (
	// StepCredentials collects email and password. Initial step for both modes.
	StepCredentials Step = iota
	// StepProfile collects username, dialect pair, and avatar (sign-up only).
	StepProfile
	// StepVerification collects the emailed verification code (sign-up only).
	StepVerification
)

// String returns the wire/log name of the step.
func (s Step) String() string {
	switch s {
	case StepCredentials:
		return "credentials"
	case StepProfile:
		return "profile"
	case StepVerification:
		return "verification"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the step by name.
func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// AttemptStatus tags a provider [Attempt] result. The flow branches
// exhaustively on it; anything the provider reports outside the two named
// states collapses to AttemptUnknown and is treated as a rejection.
type AttemptStatus uint8

const (
	// AttemptUnknown covers every provider status the flow does not act on.
	AttemptUnknown AttemptStatus = iota
	// AttemptComplete means the attempt finished and a session was created.
	AttemptComplete
	// AttemptMissingRequirements means the attempt is parked until the listed
	// requirements are satisfied.
	AttemptMissingRequirements
)

// Attempt is the provider-owned sign-in/sign-up attempt as seen by the flow.
// The flow references it only through the returned ID and status and never
// persists it beyond the life of the flow instance.
type Attempt struct {
	ID     string
	Status AttemptStatus

	// CreatedSessionID is set when the provider issued a session for this
	// attempt. Some providers issue one even under missing_requirements; see
	// [ProviderCapabilities.SessionBeforeVerification].
	CreatedSessionID string

	// MissingRequirements lists the unmet requirement names when Status is
	// [AttemptMissingRequirements].
	MissingRequirements []string
}

// Requirement names reported by the provider under missing_requirements.
const (
	// RequirementEmailVerification marks an unverified email address.
	RequirementEmailVerification = "email_address"
	// RequirementBotChallenge marks an unsatisfied bot challenge. The flow
	// never attempts to satisfy it.
	RequirementBotChallenge = "captcha_challenge"
)

// SignInStrategy selects the first factor of a sign-in attempt.
type SignInStrategy string

const (
	// StrategyPassword authenticates with the identifier/password pair.
	StrategyPassword SignInStrategy = "password"
	// StrategyResetPasswordEmailCode asks the provider to email a password
	// reset code to the identifier instead of authenticating.
	StrategyResetPasswordEmailCode SignInStrategy = "reset_password_email_code"
)

// SignInParams is the payload of [Provider.CreateSignIn]. Password is empty
// for the reset-email strategy.
type SignInParams struct {
	Strategy   SignInStrategy
	Identifier string
	Password   string
}

// SignUpParams is the payload of [Provider.CreateSignUp].
type SignUpParams struct {
	EmailAddress string
	Password     string
	Username     string
	Metadata     ProfileMetadata
}

// ProfileMetadata is the learner profile pushed onto the created account. The
// avatar URL is stored alongside the numeric ID so downstream consumers do not
// rebuild it; both values come from the same constructor and always agree.
type ProfileMetadata struct {
	SourceDialect Dialect `json:"source_dialect"`
	TargetDialect Dialect `json:"target_dialect"`
	AvatarID      int     `json:"avatar_id"`
	AvatarURL     string  `json:"avatar_url"`
}

// ProviderCapabilities documents provider-specific behavior the flow must not
// hard-code.
type ProviderCapabilities struct {
	// SessionBeforeVerification reports whether the provider may issue a
	// usable session ID while email verification is still outstanding. When
	// set, the sign-up flow tries to activate that session before falling
	// back to the verification step.
	SessionBeforeVerification bool
}

// Provider is the capability set the flow consumes from the hosted identity
// platform. The idp package holds the stock HTTP implementation; tests supply
// fakes.
//
// Rejections are returned as errors: a [*ProviderError] when the provider
// reported messages, any other error for transport-level failure. A returned
// [Attempt] with a non-complete status is not an error — it is a branch the
// flow classifies.
//
// All methods except UpdateSignUpMetadata are must-succeed calls whose failure
// aborts the running action. UpdateSignUpMetadata is the single best-effort
// shape; the flow swallows its failure by contract.
type Provider interface {
	CreateSignIn(ctx context.Context, params SignInParams) (Attempt, error)
	CreateSignUp(ctx context.Context, params SignUpParams) (Attempt, error)
	PrepareEmailVerification(ctx context.Context, signUpID string) error
	AttemptEmailVerification(ctx context.Context, signUpID, code string) (Attempt, error)
	UpdateSignUpMetadata(ctx context.Context, signUpID string, metadata ProfileMetadata) error
	ActivateSession(ctx context.Context, sessionID string) error
	Capabilities() ProviderCapabilities
}

// Navigator receives the single externally observable success side effect:
// navigation to the authenticated landing route. It is invoked only after
// session activation succeeded, never before.
type Navigator interface {
	Navigate(ctx context.Context, route string)
}

// NavigatorFunc adapts a function to the [Navigator] interface.
type NavigatorFunc func(ctx context.Context, route string)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, route string) {
	f(ctx, route)
}

// ProviderError is a provider rejection carrying the human-readable messages
// from the provider's error payload. The flow surfaces only the first message.
type ProviderError struct {
	// StatusCode is the HTTP status when the rejection crossed the idp
	// transport; zero otherwise.
	StatusCode int
	Messages   []string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e == nil || len(e.Messages) == 0 {
		return "provider rejected the attempt"
	}
	return "provider rejected the attempt: " + strings.Join(e.Messages, "; ")
}

// FirstMessage returns the first provider-reported message, or empty when the
// rejection carried none.
func (e *ProviderError) FirstMessage() string {
	if e == nil || len(e.Messages) == 0 {
		return ""
	}
	return e.Messages[0]
}
