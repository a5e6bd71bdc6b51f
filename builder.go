package authkit

import (
	"errors"
	"runtime"

	"github.com/allyelvis/authkit/internal/lock"
	"github.com/allyelvis/authkit/internal/rate"
	"github.com/allyelvis/authkit/jwt"
	"github.com/allyelvis/authkit/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. All dependencies are explicit: there are no
// package-level clients and nothing is shared between engines built from
// separate builders.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	credentials CredentialStore
	questions   SecurityQuestionStore
	activity    ActivityLogStore
	identity    IdentityProvider
	auditSink   AuditSink

	built bool
}

// New returns a Builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis attaches a redis client used for login throttling and cross-
// process PIN-setup locks. Optional unless the login throttle is enabled.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore attaches the durable credential accessor. Required.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.credentials = store
	return b
}

// WithSecurityQuestionStore attaches the recovery-question store. Required.
func (b *Builder) WithSecurityQuestionStore(store SecurityQuestionStore) *Builder {
	b.questions = store
	return b
}

// WithActivityLogStore attaches the append-only activity log store. Required.
func (b *Builder) WithActivityLogStore(store ActivityLogStore) *Builder {
	b.activity = store
	return b
}

// WithIdentityProvider attaches the external password system of record.
// Required.
func (b *Builder) WithIdentityProvider(provider IdentityProvider) *Builder {
	b.identity = provider
	return b
}

// WithAuditSink attaches an optional streaming mirror for activity entries,
// fed after the durable store write.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and dependencies and returns an immutable
// Engine. A builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.credentials == nil {
		return nil, errors.New("credential store required")
	}
	if b.questions == nil {
		return nil, errors.New("security question store required")
	}
	if b.activity == nil {
		return nil, errors.New("activity log store required")
	}
	if b.identity == nil {
		return nil, errors.New("identity provider required")
	}
	if cfg.Security.EnableLoginThrottle && b.redis == nil {
		return nil, errors.New("login throttle requires redis client")
	}

	hasher, err := password.New(password.Config{
		Memory:      cfg.Hash.Memory,
		Time:        cfg.Hash.Time,
		Parallelism: cfg.Hash.Parallelism,
		SaltLength:  cfg.Hash.SaltLength,
		KeyLength:   cfg.Hash.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		Secret: cfg.JWT.Secret,
		TTL:    cfg.JWT.TTL,
		Issuer: cfg.JWT.Issuer,
		Leeway: cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.Security.EnableLoginThrottle {
		limiter = rate.New(b.redis, rate.Config{
			EnableIPThrottle: cfg.Security.EnableIPThrottle,
			MaxAttempts:      cfg.Security.MaxLoginAttempts,
			Cooldown:         cfg.Security.LoginCooldown,
		})
	}

	gateSize := cfg.Hash.MaxConcurrent
	if gateSize == 0 {
		gateSize = runtime.GOMAXPROCS(0)
	}

	engine := &Engine{
		config:      cfg,
		credentials: b.credentials,
		questions:   b.questions,
		identity:    b.identity,
		rateLimiter: limiter,
		setupLocks:  lock.New(b.redis, cfg.PIN.SetupLockTimeout),
		audit:       newAuditDispatcher(cfg.Audit, b.activity, b.auditSink),
		metrics:     newMetrics(cfg.Metrics),
		hasher:      hasher,
		hashGate:    make(chan struct{}, gateSize),
		jwtManager:  jwtManager,
		activity:    b.activity,
	}

	b.built = true
	return engine, nil
}
