package authflow

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

// Form holds the user-entered fields of one flow instance plus the derived
// username suggestion. It is owned exclusively by its [Flow]; all access goes
// through the flow's setters under the flow lock.
type Form struct {
	Email            string
	Password         string
	Username         string
	SourceDialect    Dialect
	TargetDialect    Dialect
	AvatarID         int
	VerificationCode string

	suggestedUsername string
}

func (f *Form) setEmail(email string) {
	f.Email = email
	f.suggestedUsername = deriveUsernameSuggestion(email)
}

// SuggestedUsername is the derived default shown as the username placeholder.
// It is recomputed on every email change and never overwrites a username the
// user typed.
func (f *Form) SuggestedUsername() string {
	return f.suggestedUsername
}

// resolveUsername picks the username submitted to the provider: the explicit
// input when present, otherwise the suggestion with a random numeric suffix.
// The suffix only reduces collision likelihood; the provider's duplicate
// rejection is the actual uniqueness enforcement.
func (f *Form) resolveUsername(suffixBound int) string {
	if f.Username != "" {
		return f.Username
	}
	if suffixBound <= 0 {
		suffixBound = defaultUsernameSuffixBound
	}
	return f.suggestedUsername + strconv.Itoa(rand.IntN(suffixBound))
}

// deriveUsernameSuggestion lower-cases the email local part and strips every
// rune outside [a-z0-9]. An email without '@' counts entirely as local part;
// an empty email yields an empty suggestion.
func deriveUsernameSuggestion(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		local = email[:at]
	}
	local = strings.ToLower(local)

	var b strings.Builder
	b.Grow(len(local))
	for _, r := range local {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
