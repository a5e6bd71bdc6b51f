package authkit

import (
	"context"
	"time"
)

// Role is the closed set of account roles carried in session tokens.
type Role string

const (
	// RoleAdmin is an administrative account.
	RoleAdmin Role = "admin"
	// RoleManager is a manager account.
	RoleManager Role = "manager"
	// RoleUser is a regular account.
	RoleUser Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

// Credential is the account record owned by [CredentialStore]. The primary
// password hash is NOT part of this record; it belongs to the external
// identity provider and never crosses into this process.
type Credential struct {
	ID             string
	Email          string
	Name           string
	IsActive       bool
	Role           Role
	PINHash        string
	PINSet         bool
	PINAttempts    uint32
	PINLockedUntil *time.Time
	LastActive     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ProfilePatch is a partial credential update. Nil fields are left unchanged.
type ProfilePatch struct {
	Name       *string
	IsActive   *bool
	Role       *Role
	LastActive *time.Time
}

// CredentialStore is the durable accessor for account records. All operations
// are idempotent reads or single-row updates; every mutation bumps the row's
// updated-at timestamp. Store methods perform no audit logging — audit
// coverage is the caller's responsibility so it stays explicit at each call
// site.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (Credential, error)
	FindByID(ctx context.Context, id string) (Credential, error)

	// SetPINHash atomically replaces the stored PIN hash, marks the PIN as
	// set, and clears attempt/lockout bookkeeping. It reports whether a prior
	// hash existed.
	SetPINHash(ctx context.Context, userID, hash string) (existed bool, err error)

	// IncrementPINAttempts atomically bumps the failed-attempt counter and
	// returns the new value.
	IncrementPINAttempts(ctx context.Context, userID string) (uint32, error)
	LockPIN(ctx context.Context, userID string, until time.Time) error
	ResetPINAttempts(ctx context.Context, userID string) error

	UpdateProfile(ctx context.Context, userID string, patch ProfilePatch) error
}

// SecurityQuestionRecord is one stored recovery question. Answers are kept
// only as normalized argon2id hashes.
type SecurityQuestionRecord struct {
	ID         string
	UserID     string
	Question   string
	AnswerHash string
	CreatedAt  time.Time
}

// SecurityQuestionStore persists recovery questions. A user has either zero
// or at least three records at any time; ReplaceForUser must be atomic so a
// failed setup never leaves a partial set behind.
type SecurityQuestionStore interface {
	ReplaceForUser(ctx context.Context, userID string, records []SecurityQuestionRecord) error
	ListByUser(ctx context.Context, userID string) ([]SecurityQuestionRecord, error)
}

// Action is the closed set of security-relevant account events.
type Action string

const (
	// ActionLogin is an exported audit action recorded by the engine.
	ActionLogin Action = "login"
	// ActionLogout is an exported audit action recorded by the engine.
	ActionLogout Action = "logout"
	// ActionFailedLogin is an exported audit action recorded by the engine.
	ActionFailedLogin Action = "failed_login"
	// ActionPasswordReset is an exported audit action recorded by the engine.
	ActionPasswordReset Action = "password_reset"
	// ActionProfileUpdate is an exported audit action recorded by the engine.
	ActionProfileUpdate Action = "profile_update"
	// ActionPinSetup is an exported audit action recorded by the engine.
	ActionPinSetup Action = "pin_setup"
	// ActionPinUpdate is an exported audit action recorded by the engine.
	ActionPinUpdate Action = "pin_update"
	// ActionAccountLocked is an exported audit action recorded by the engine.
	ActionAccountLocked Action = "account_locked"
	// ActionAccountUnlocked is an exported audit action recorded by the engine.
	ActionAccountUnlocked Action = "account_unlocked"
	// ActionTwoFactorSetup is an exported audit action recorded by the engine.
	ActionTwoFactorSetup Action = "two_factor_setup"
	// ActionTwoFactorDisabled is an exported audit action recorded by the engine.
	ActionTwoFactorDisabled Action = "two_factor_disabled"
)

// ActivityLogEntry is one row of the append-only security activity log.
// Entries are immutable once written; the core never updates or deletes them.
type ActivityLogEntry struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Action    Action            `json:"action"`
	Details   map[string]string `json:"details,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ActivityLogStore is the durable append-only writer/reader of activity
// entries. ListByUser returns entries newest-first along with the total
// count for the user.
type ActivityLogStore interface {
	Insert(ctx context.Context, entry ActivityLogEntry) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]ActivityLogEntry, int, error)
}

// IdentityProvider is the opaque system of record for primary password
// credentials. SignIn returns nil on success; on failure the returned error's
// message is the provider's declared reason, which the engine records in the
// audit trail but never echoes to callers.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) error
}

// AuthResult is the verified claim set of a session token.
type AuthResult struct {
	UserID    string
	Email     string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login] and [Engine.LoginWithPIN].
type LoginResult struct {
	Credential Credential
	Token      string
	ExpiresAt  time.Time
}

// QuestionAnswer is one question/answer pair supplied at security-question
// setup.
type QuestionAnswer struct {
	Question string
	Answer   string
}

// AnswerAttempt is one supplied answer during recovery verification,
// referencing a stored question by id.
type AnswerAttempt struct {
	QuestionID string
	Answer     string
}
