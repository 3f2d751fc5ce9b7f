package authflow

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

const (
	msgPasswordTooShort  = "Password must be at least %d characters."
	msgDialectRequired   = "Choose the dialect you speak and the one you want to learn."
	msgUnknownDialect    = "Pick dialects from the list."
	msgSameDialect       = "Choose two different dialects."
	msgAvatarInvalid     = "Pick one of the avatars."
	msgBotChallenge      = "Sign-up can't be completed automatically right now. Please try again later."
	msgUnmetRequirements = "Your sign-up still needs: %s."
)

// advanceToProfile moves a sign-up flow from the credentials step to the
// profile step. Pure transition: no provider call and no loading window.
// Called with f.mu held; releases it.
func (f *Flow) advanceToProfile() error {
	if msg := f.validateCredentials(); msg != "" {
		f.errText = msg
		f.mu.Unlock()
		return nil
	}
	f.step = StepProfile
	f.errText = ""
	f.mu.Unlock()

	f.engine.metricInc(MetricProfileStepShown)
	return nil
}

// validateCredentials checks the sign-up credential bounds. Caller holds
// f.mu. Returns the violation message, or empty when the form passes.
func (f *Flow) validateCredentials() string {
	email := strings.TrimSpace(f.form.Email)
	switch {
	case email == "":
		return msgEmailRequired
	case f.form.Password == "":
		return msgPasswordRequired
	case len(f.form.Password) < f.engine.cfg.Flow.PasswordMinLength:
		return fmt.Sprintf(msgPasswordTooShort, f.engine.cfg.Flow.PasswordMinLength)
	}
	return ""
}

// validateProfile checks the profile step inputs. Caller holds f.mu. Returns
// the violation message, or empty when the form passes.
func (f *Flow) validateProfile() string {
	allowed := f.engine.cfg.allowedDialects()
	src, dst := f.form.SourceDialect, f.form.TargetDialect
	switch {
	case src == "" || dst == "":
		return msgDialectRequired
	case !dialectAllowed(src, allowed) || !dialectAllowed(dst, allowed):
		return msgUnknownDialect
	case src == dst:
		return msgSameDialect
	case !avatarIDValid(f.form.AvatarID, f.engine.cfg.Avatar.MaxID):
		return msgAvatarInvalid
	}
	return ""
}

// submitProfile creates the provider sign-up attempt from the completed
// profile and classifies the result. Called with f.mu held; releases it.
func (f *Flow) submitProfile(ctx context.Context) error {
	if msg := f.validateCredentials(); msg != "" {
		f.errText = msg
		f.mu.Unlock()
		return nil
	}
	if msg := f.validateProfile(); msg != "" {
		f.errText = msg
		f.mu.Unlock()
		return nil
	}

	e := f.engine
	params := SignUpParams{
		EmailAddress: strings.TrimSpace(f.form.Email),
		Password:     f.form.Password,
		Username:     f.form.resolveUsername(e.cfg.Username.SuffixBound),
		Metadata: ProfileMetadata{
			SourceDialect: f.form.SourceDialect,
			TargetDialect: f.form.TargetDialect,
			AvatarID:      f.form.AvatarID,
			AvatarURL:     AvatarURL(e.cfg.Avatar.URLTemplate, f.form.AvatarID),
		},
	}
	f.beginCall()

	start := time.Now()
	att, err := e.provider.CreateSignUp(ctx, params)
	e.metricObserve(MetricSignUpLatency, time.Since(start))

	if err != nil {
		e.metricInc(MetricSignUpFailure)
		e.emitAudit(ctx, eventSignUpFailure, false, f.ID(), "", err, nil)
		f.failWith(providerErrorText(err))
		return nil
	}

	switch att.Status {
	case AttemptComplete:
		f.completeSignUp(ctx, att, params.Metadata)
	case AttemptMissingRequirements:
		f.resolveRequirements(ctx, att)
	default:
		e.metricInc(MetricSignUpFailure)
		e.emitAudit(ctx, eventSignUpFailure, false, f.ID(), att.ID, nil, func() map[string]string {
			return map[string]string{"reason": "unsupported_status"}
		})
		f.failWith(msgGenericFailure)
	}
	return nil
}

// completeSignUp finishes a sign-up the provider reported complete on the
// first round-trip. The metadata re-push is best effort: some provider
// configurations drop metadata on creation, and a failed re-push must never
// block an otherwise authenticated user.
func (f *Flow) completeSignUp(ctx context.Context, att Attempt, md ProfileMetadata) {
	e := f.engine
	if err := e.provider.UpdateSignUpMetadata(ctx, att.ID, md); err != nil {
		log.Print("authflow: sign-up metadata re-push failed: ", err)
		e.metricInc(MetricMetadataRepushFailure)
		e.emitAudit(ctx, eventMetadataRepushFailed, false, f.ID(), att.ID, err, nil)
	}

	applied, err := f.completeAuth(ctx, att.CreatedSessionID)
	if err != nil {
		e.metricInc(MetricSignUpFailure)
		e.emitAudit(ctx, eventSignUpFailure, false, f.ID(), att.ID, err, func() map[string]string {
			return map[string]string{"reason": "session_activation"}
		})
		f.failWith(providerErrorText(err))
		return
	}
	if applied {
		e.metricInc(MetricSignUpCreated)
		e.emitAudit(ctx, eventSignUpCreated, true, f.ID(), att.ID, nil, nil)
	}
}

// resolveRequirements classifies a missing_requirements result. Exactly one
// unmet requirement, email verification, routes to the verification step
// (trying the early session first when the provider hands one out). A pending
// bot challenge is a dead end for this flow. Anything else is surfaced by
// name and the flow stays on the profile step.
func (f *Flow) resolveRequirements(ctx context.Context, att Attempt) {
	e := f.engine
	reqs := att.MissingRequirements

	onlyEmail := len(reqs) == 1 && reqs[0] == RequirementEmailVerification
	if onlyEmail {
		f.startEmailVerification(ctx, att)
		return
	}

	for _, r := range reqs {
		if r == RequirementBotChallenge {
			e.metricInc(MetricBotChallengeBlocked)
			e.emitAudit(ctx, eventSignUpBlocked, false, f.ID(), att.ID, nil, func() map[string]string {
				return map[string]string{"reason": "bot_challenge"}
			})
			f.failWith(msgBotChallenge)
			return
		}
	}

	e.metricInc(MetricSignUpFailure)
	e.emitAudit(ctx, eventSignUpFailure, false, f.ID(), att.ID, nil, func() map[string]string {
		return map[string]string{"reason": "unmet_requirements", "requirements": strings.Join(reqs, ",")}
	})
	f.failWith(fmt.Sprintf(msgUnmetRequirements, strings.Join(reqs, ", ")))
}

// startEmailVerification handles the sole-email-verification branch. Some
// providers issue a usable session before the email is verified; activating
// it skips the verification step entirely. Otherwise the provider is asked to
// send the code and the flow moves to the verification step.
func (f *Flow) startEmailVerification(ctx context.Context, att Attempt) {
	e := f.engine

	if e.provider.Capabilities().SessionBeforeVerification && att.CreatedSessionID != "" {
		applied, err := f.completeAuth(ctx, att.CreatedSessionID)
		if err == nil {
			if applied {
				e.metricInc(MetricVerificationBypassed)
				e.emitAudit(ctx, eventVerificationBypassed, true, f.ID(), att.ID, nil, nil)
			}
			return
		}
		// Early session rejected; fall through to the emailed code.
	}

	if err := e.provider.PrepareEmailVerification(ctx, att.ID); err != nil {
		e.metricInc(MetricSignUpFailure)
		e.emitAudit(ctx, eventSignUpFailure, false, f.ID(), att.ID, err, func() map[string]string {
			return map[string]string{"reason": "prepare_verification"}
		})
		f.failWith(providerErrorText(err))
		return
	}

	f.finish(func() {
		f.signUpID = att.ID
		f.step = StepVerification
		f.errText = ""
	})
	e.metricInc(MetricVerificationSent)
	e.emitAudit(ctx, eventVerificationSent, true, f.ID(), att.ID, nil, nil)
}
