package authkit

import (
	"errors"
	"time"
)

// Config defines the engine configuration. Instances are intended to be
// populated before [Builder.Build] and treated as immutable afterwards.
type Config struct {
	JWT       JWTConfig
	PIN       PINConfig
	Questions QuestionConfig
	Hash      HashConfig
	Audit     AuditConfig
	Security  SecurityConfig
	Metrics   MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session token issuance and verification. A single
// secret and a single TTL apply to every token the engine issues.
type JWTConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

/*
====================================
PIN CONFIG
====================================
*/

// PINConfig configures PIN lockout policy. MaxAttempts consecutive
// mismatches lock the PIN for LockDuration; a zero MaxAttempts disables
// lockout.
type PINConfig struct {
	MaxAttempts      uint32
	LockDuration     time.Duration
	SetupLockTimeout time.Duration
}

// QuestionConfig configures security-question setup.
type QuestionConfig struct {
	MinQuestions int
}

/*
====================================
HASH CONFIG
====================================
*/

// HashConfig holds argon2id parameters for PIN and recovery-answer hashing.
// MaxConcurrent bounds simultaneous hash computations; zero means GOMAXPROCS.
type HashConfig struct {
	Memory        uint32 // in KB
	Time          uint32
	Parallelism   uint8
	SaltLength    uint32
	KeyLength     uint32
	MaxConcurrent int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig configures the activity log pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// SecurityConfig configures the optional redis-backed login throttle.
type SecurityConfig struct {
	EnableLoginThrottle bool
	EnableIPThrottle    bool
	MaxLoginAttempts    int
	LoginCooldown       time.Duration
}

// MetricsConfig configures the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the engine defaults: 24h tokens, 5-attempt PIN
// lockout for 15 minutes, 3-question minimum, audit enabled with a bounded
// non-dropping buffer.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:    24 * time.Hour,
			Leeway: 30 * time.Second,
		},
		PIN: PINConfig{
			MaxAttempts:      5,
			LockDuration:     15 * time.Minute,
			SetupLockTimeout: 5 * time.Second,
		},
		Questions: QuestionConfig{
			MinQuestions: 3,
		},
		Hash: HashConfig{
			Memory:      64 * 1024,
			Time:        2,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: false,
		},
		Security: SecurityConfig{
			EnableLoginThrottle: false,
			EnableIPThrottle:    false,
			MaxLoginAttempts:    10,
			LoginCooldown:       time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT.Secret != nil {
		out.JWT.Secret = append([]byte(nil), cfg.JWT.Secret...)
	}
	return out
}

// Validate checks the configuration for internally inconsistent or unsafe
// values. Build calls it; callers normally do not.
func (c Config) Validate() error {
	if len(c.JWT.Secret) == 0 {
		return errors.New("jwt signing secret required")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("jwt TTL must be positive")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("jwt leeway out of range")
	}
	if c.PIN.MaxAttempts > 0 && c.PIN.LockDuration <= 0 {
		return errors.New("pin lock duration must be positive when lockout is enabled")
	}
	if c.PIN.SetupLockTimeout <= 0 {
		return errors.New("pin setup lock timeout must be positive")
	}
	if c.Questions.MinQuestions < 3 {
		return errors.New("minimum security question count must be at least 3")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("login throttle requires a positive attempt budget")
		}
		if c.Security.LoginCooldown <= 0 {
			return errors.New("login throttle requires a positive cooldown")
		}
	}
	if c.Hash.MaxConcurrent < 0 {
		return errors.New("hash concurrency bound must not be negative")
	}
	return nil
}
