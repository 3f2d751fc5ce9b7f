package authflow

import (
	"errors"
	"strings"
	"time"
)

// Config tunes the flow engine. Instances are configured during
// initialization and treated as immutable afterwards; the Builder clones the
// config it is given.
type Config struct {
	Flow     FlowConfig
	Username UsernameConfig
	Avatar   AvatarConfig
	Dialects DialectConfig
	Routes   RouteConfig
	Throttle ThrottleConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
FLOW CONFIG
====================================
*/

// FlowConfig holds the validation bounds applied before any provider call.
type FlowConfig struct {
	// PasswordMinLength applies to sign-up only; sign-in accepts whatever the
	// account was created with.
	PasswordMinLength int
}

/*
====================================
USERNAME CONFIG
====================================
*/

// UsernameConfig controls the generated default username.
type UsernameConfig struct {
	// SuffixBound is the exclusive upper bound of the random numeric suffix
	// appended to a derived username. The suffix reduces collision
	// likelihood; it does not guarantee uniqueness.
	SuffixBound int
}

const defaultUsernameSuffixBound = 1000

/*
====================================
AVATAR CONFIG
====================================
*/

// AvatarConfig controls avatar reference construction.
type AvatarConfig struct {
	// URLTemplate must contain a single %d verb receiving the avatar ID and
	// must keep the seed=avatar%d query contract with the image service.
	URLTemplate string
	MaxID       int
}

/*
====================================
DIALECT CONFIG
====================================
*/

// DialectConfig optionally narrows the dialect set offered at sign-up.
type DialectConfig struct {
	// Allowed overrides [DefaultDialects] when non-empty.
	Allowed []Dialect
}

/*
====================================
ROUTE CONFIG
====================================
*/

// RouteConfig is the string-level routing contract shared with the frontend.
type RouteConfig struct {
	SignIn  string
	SignUp  string
	Landing string
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig bounds the email-sending operations (verification resend,
// reset email). Throttles are active only when the Builder received a Redis
// client.
type ThrottleConfig struct {
	Enabled          bool
	EnableIPThrottle bool

	ResendMaxAttempts int
	ResendWindow      time.Duration

	ResetMaxAttempts int
	ResetWindow      time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration a fresh [Builder] starts from.
// Callers that only need to adjust a few fields should start here rather
// than construct a Config from scratch.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Flow: FlowConfig{
			PasswordMinLength: 8,
		},
		Username: UsernameConfig{
			SuffixBound: defaultUsernameSuffixBound,
		},
		Avatar: AvatarConfig{
			URLTemplate: DefaultAvatarURLTemplate,
			MaxID:       DefaultAvatarMaxID,
		},
		Dialects: DialectConfig{},
		Routes: RouteConfig{
			SignIn:  "/login",
			SignUp:  "/signup",
			Landing: "/learn",
		},
		Throttle: ThrottleConfig{
			Enabled:           true,
			EnableIPThrottle:  true,
			ResendMaxAttempts: 3,
			ResendWindow:      10 * time.Minute,
			ResetMaxAttempts:  3,
			ResetWindow:       15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if len(cfg.Dialects.Allowed) > 0 {
		out.Dialects.Allowed = make([]Dialect, len(cfg.Dialects.Allowed))
		copy(out.Dialects.Allowed, cfg.Dialects.Allowed)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the config invariants the engine depends on. The Builder
// calls it; callers constructing a Config by hand should too.
func (c *Config) Validate() error {
	if c.Flow.PasswordMinLength <= 0 {
		return errors.New("Flow PasswordMinLength must be > 0")
	}

	if c.Username.SuffixBound <= 0 {
		return errors.New("Username SuffixBound must be > 0")
	}

	if c.Avatar.MaxID <= 0 {
		return errors.New("Avatar MaxID must be > 0")
	}
	if strings.Count(c.Avatar.URLTemplate, "%d") != 1 {
		return errors.New("Avatar URLTemplate must contain exactly one %d verb")
	}
	if !strings.Contains(c.Avatar.URLTemplate, "seed=avatar%d") {
		return errors.New("Avatar URLTemplate must keep the seed=avatar%d contract")
	}

	for _, d := range c.Dialects.Allowed {
		if _, ok := ParseDialect(string(d)); !ok {
			return errors.New("Dialects Allowed contains an unknown dialect: " + string(d))
		}
	}
	if len(c.Dialects.Allowed) == 1 {
		return errors.New("Dialects Allowed must offer at least two dialects")
	}

	if c.Routes.SignIn == "" || c.Routes.SignUp == "" || c.Routes.Landing == "" {
		return errors.New("Routes must all be set")
	}

	if c.Throttle.Enabled {
		if c.Throttle.ResendMaxAttempts <= 0 {
			return errors.New("Throttle ResendMaxAttempts must be > 0")
		}
		if c.Throttle.ResendWindow <= 0 {
			return errors.New("Throttle ResendWindow must be > 0")
		}
		if c.Throttle.ResetMaxAttempts <= 0 {
			return errors.New("Throttle ResetMaxAttempts must be > 0")
		}
		if c.Throttle.ResetWindow <= 0 {
			return errors.New("Throttle ResetWindow must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}

// allowedDialects resolves the active dialect set.
func (c *Config) allowedDialects() []Dialect {
	if len(c.Dialects.Allowed) > 0 {
		return c.Dialects.Allowed
	}
	return DefaultDialects()
}
