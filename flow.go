package authflow

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// msgGenericFailure covers provider rejections that carried no usable message
// and transport-level failures.
const msgGenericFailure = "Something went wrong. Please try again."

// Flow drives one mounted auth form instance. A flow owns its state
// exclusively: two flows never share fields, errors, or loading state, even
// within the same process.
//
// All methods are safe for concurrent use. State advances only through the
// exported actions; every action returns a usage fault ([ErrFlowClosed],
// [ErrFlowBusy], [ErrInvalidStep]) or nil. Domain outcomes, validation
// messages and provider rejections included, surface through [Flow.Snapshot]
// instead.
type Flow struct {
	engine *Engine
	id     uuid.UUID
	mode   Mode

	mu      sync.Mutex
	step    Step
	form    Form
	errText string
	busy    bool
	closed  bool

	resetEmailSent bool
	codeResent     bool

	// signUpID pins the provider-side sign-up attempt across the
	// verification round-trips.
	signUpID string

	navigatedTo string
}

func newFlow(e *Engine, mode Mode) *Flow {
	f := &Flow{
		engine: e,
		id:     uuid.New(),
		mode:   mode,
		step:   StepCredentials,
	}
	// The avatar picker opens with the first avatar preselected.
	f.form.AvatarID = 1
	return f
}

// ID returns the flow instance identifier.
func (f *Flow) ID() string { return f.id.String() }

// Mode returns the page this flow drives.
func (f *Flow) Mode() Mode { return f.mode }

/*
====================================
FORM INPUT
====================================
*/

// withForm applies a form mutation under the usage guards shared by all
// setters. Mutations are rejected while a provider call is in flight.
func (f *Flow) withForm(mutate func(*Form)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFlowClosed
	}
	if f.busy {
		return ErrFlowBusy
	}
	mutate(&f.form)
	return nil
}

// SetEmail records the email address typed into the form. On the sign-up page
// it also refreshes the username suggestion shown in the profile step.
func (f *Flow) SetEmail(v string) error {
	return f.withForm(func(fm *Form) { fm.setEmail(v) })
}

// SetPassword records the password typed into the form.
func (f *Flow) SetPassword(v string) error {
	return f.withForm(func(fm *Form) { fm.Password = v })
}

// SetUsername records an explicit username choice. Leaving it blank keeps the
// derived suggestion active.
func (f *Flow) SetUsername(v string) error {
	return f.withForm(func(fm *Form) { fm.Username = v })
}

// SetSourceDialect records the dialect the learner already speaks.
func (f *Flow) SetSourceDialect(d Dialect) error {
	return f.withForm(func(fm *Form) { fm.SourceDialect = d })
}

// SetTargetDialect records the dialect the learner wants to learn.
func (f *Flow) SetTargetDialect(d Dialect) error {
	return f.withForm(func(fm *Form) { fm.TargetDialect = d })
}

// SetAvatarID records the picked avatar. The value is validated at profile
// submission, not here.
func (f *Flow) SetAvatarID(id int) error {
	return f.withForm(func(fm *Form) { fm.AvatarID = id })
}

// SetVerificationCode records the code typed into the verification step.
func (f *Flow) SetVerificationCode(v string) error {
	return f.withForm(func(fm *Form) { fm.VerificationCode = v })
}

/*
====================================
ACTIONS
====================================
*/

// Submit runs the action bound to the current mode and step: sign-in,
// advancing to the profile step, creating the sign-up, or attempting email
// verification.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrFlowClosed
	}
	if f.busy {
		f.mu.Unlock()
		return ErrFlowBusy
	}

	// The submit handlers receive f.mu held and release it themselves.
	switch {
	case f.mode == ModeSignIn && f.step == StepCredentials:
		return f.submitSignIn(ctx)
	case f.mode == ModeSignUp && f.step == StepCredentials:
		return f.advanceToProfile()
	case f.mode == ModeSignUp && f.step == StepProfile:
		return f.submitProfile(ctx)
	case f.mode == ModeSignUp && f.step == StepVerification:
		return f.submitVerification(ctx)
	default:
		f.mu.Unlock()
		return ErrInvalidStep
	}
}

// Close tears the flow down, as when its form unmounts. In-flight provider
// calls are left to resolve; their results are discarded without touching
// state or navigating. Close is idempotent.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.form.Password = ""
	f.form.VerificationCode = ""
}

/*
====================================
SNAPSHOT
====================================
*/

// Snapshot is a point-in-time copy of the observable flow state, shaped for
// rendering. It deliberately omits the password and the verification code.
type Snapshot struct {
	ID   string `json:"id"`
	Mode Mode   `json:"mode"`
	Step Step   `json:"step"`

	Busy  bool   `json:"busy"`
	Error string `json:"error,omitempty"`

	Email             string  `json:"email"`
	Username          string  `json:"username,omitempty"`
	SuggestedUsername string  `json:"suggested_username,omitempty"`
	SourceDialect     Dialect `json:"source_dialect,omitempty"`
	TargetDialect     Dialect `json:"target_dialect,omitempty"`
	AvatarID          int     `json:"avatar_id"`
	AvatarURL         string  `json:"avatar_url,omitempty"`

	ResetEmailSent bool `json:"reset_email_sent,omitempty"`
	CodeResent     bool `json:"code_resent,omitempty"`

	NavigatedTo string `json:"navigated_to,omitempty"`
	Closed      bool   `json:"closed,omitempty"`
}

// Snapshot returns a copy of the observable state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := Snapshot{
		ID:                f.id.String(),
		Mode:              f.mode,
		Step:              f.step,
		Busy:              f.busy,
		Error:             f.errText,
		Email:             f.form.Email,
		Username:          f.form.Username,
		SuggestedUsername: f.form.SuggestedUsername(),
		SourceDialect:     f.form.SourceDialect,
		TargetDialect:     f.form.TargetDialect,
		AvatarID:          f.form.AvatarID,
		ResetEmailSent:    f.resetEmailSent,
		CodeResent:        f.codeResent,
		NavigatedTo:       f.navigatedTo,
		Closed:            f.closed,
	}
	if avatarIDValid(f.form.AvatarID, f.engine.cfg.Avatar.MaxID) {
		snap.AvatarURL = AvatarURL(f.engine.cfg.Avatar.URLTemplate, f.form.AvatarID)
	}
	return snap
}

/*
====================================
CALL WINDOW
====================================
*/

// beginCall flips the flow into its loading window and clears transient
// outcome state from the previous action. Caller holds f.mu and has already
// validated the submission; beginCall releases the lock.
func (f *Flow) beginCall() {
	f.busy = true
	f.errText = ""
	f.resetEmailSent = false
	f.codeResent = false
	f.mu.Unlock()
}

// finish leaves the loading window and applies the outcome, unless the flow
// was closed while the call was in flight. Reports whether the outcome was
// applied.
func (f *Flow) finish(apply func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.busy = false
	if apply != nil {
		apply()
	}
	return true
}

// failWith records a transient error and leaves the loading window.
func (f *Flow) failWith(text string) {
	f.finish(func() { f.errText = text })
}

// completeAuth activates the session and, when activation succeeds, closes
// the flow and navigates to the landing route. Runs outside f.mu. A non-nil
// error means activation failed and the caller still owns the outcome.
// applied reports whether this flow actually transitioned; it is false when
// the flow was torn down while the call was in flight.
func (f *Flow) completeAuth(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrSessionActivationFailed
	}

	// A flow torn down mid-call must not activate a session it will never
	// render.
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false, nil
	}
	f.mu.Unlock()

	if err := f.engine.provider.ActivateSession(ctx, sessionID); err != nil {
		return false, err
	}

	route := f.engine.cfg.Routes.Landing
	applied := f.finish(func() {
		f.closed = true
		f.navigatedTo = route
	})
	if applied {
		f.navigate(ctx, route)
	}
	return applied, nil
}

func (f *Flow) navigate(ctx context.Context, route string) {
	if f.engine.navigator == nil {
		return
	}
	f.engine.navigator.Navigate(ctx, route)
}

// providerErrorText maps a failed provider call to the transient form error.
// Provider rejections surface their first human-readable message; transport
// and decode failures fall back to the generic message.
func providerErrorText(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		if msg := pe.FirstMessage(); msg != "" {
			return msg
		}
	}
	return msgGenericFailure
}
