package authflow

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/abjadnlp2026-anon/arabic-dialect-hub/internal/limiters"
)

// Builder assembles an [Engine]. With calls refine the default configuration;
// Build wires the collaborators and validates the result. A builder is
// single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	provider  Provider
	navigator Navigator
	auditSink AuditSink

	built bool
}

// New returns a builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithProvider sets the identity provider. Required.
func (b *Builder) WithProvider(p Provider) *Builder {
	b.provider = p
	return b
}

// WithNavigator sets the navigation hook invoked after session activation.
// Optional: without one, navigation is observable only through snapshots.
func (b *Builder) WithNavigator(n Navigator) *Builder {
	b.navigator = n
	return b
}

// WithRedis sets the Redis client backing the email throttles. Required while
// Throttle.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the provider round-trip histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the collaborators, and returns the
// engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.provider == nil {
		return nil, errors.New("provider required")
	}

	if cfg.Throttle.Enabled && b.redis == nil {
		return nil, errors.New("Throttle enabled requires redis client")
	}

	engine := &Engine{
		cfg:       cfg,
		provider:  b.provider,
		navigator: b.navigator,
	}

	if cfg.Throttle.Enabled {
		engine.resendLimiter = limiters.NewResendLimiter(b.redis, limiters.ResendConfig{
			EnableIPThrottle: cfg.Throttle.EnableIPThrottle,
			Window:           cfg.Throttle.ResendWindow,
			MaxAttempts:      cfg.Throttle.ResendMaxAttempts,
		})
		engine.resetLimiter = limiters.NewResetEmailLimiter(b.redis, limiters.ResetEmailConfig{
			EnableIPThrottle: cfg.Throttle.EnableIPThrottle,
			Window:           cfg.Throttle.ResetWindow,
			MaxAttempts:      cfg.Throttle.ResetMaxAttempts,
		})
	}

	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
