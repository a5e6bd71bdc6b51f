package authkit

import "errors"

// Sentinel errors returned by Engine operations. Messages on the credential
// paths are deliberately generic: the same error covers unknown accounts and
// wrong secrets so responses carry no enumeration signal.
var (
	// ErrEngineNotReady is returned when the engine or a required dependency is nil.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials covers every password authentication failure.
	ErrInvalidCredentials = errors.New("Invalid email or password")
	// ErrInvalidPIN covers every PIN mismatch, including unknown accounts and unset PINs.
	ErrInvalidPIN = errors.New("Invalid PIN")
	// ErrPINFormat rejects PIN candidates that are not exactly six digits.
	ErrPINFormat = errors.New("PIN must be 6 digits")
	// ErrPINLocked is returned while the PIN lockout window is open.
	ErrPINLocked = errors.New("Account locked")
	// ErrAccountInactive is returned for deactivated accounts after the secret checked out.
	ErrAccountInactive = errors.New("Account inactive")
	// ErrQuestionCount rejects security-question setups with fewer than the required entries.
	ErrQuestionCount = errors.New("At least 3 security questions are required")
	// ErrQuestionEmpty rejects setups containing a blank question or answer.
	ErrQuestionEmpty = errors.New("security questions and answers must not be empty")
	// ErrAnswersIncorrect covers every recovery verification failure.
	ErrAnswersIncorrect = errors.New("One or more answers are incorrect")
	// ErrUserNotFound is returned when a referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenInvalid collapses all session token failures: bad signature, malformed, expired.
	ErrTokenInvalid = errors.New("invalid session token")
	// ErrNotAuthenticated is returned at the transport boundary when no valid session is presented.
	ErrNotAuthenticated = errors.New("Not authenticated")
	// ErrLoginRateLimited is returned when the login throttle budget is exhausted.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrSessionCreationFailed is returned when token signing fails.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrStoreUnavailable is returned when the credential store cannot be reached.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

// Kind buckets engine errors for transport mapping. The HTTP layer translates
// kinds to status codes; internal details never reach the client.
type Kind uint8

const (
	// KindInternal is a store or provider failure.
	KindInternal Kind = iota
	// KindValidation is malformed input.
	KindValidation
	// KindAuthentication is a wrong password, PIN, answer, or token.
	KindAuthentication
	// KindAuthorization is an inactive account or an open lockout window.
	KindAuthorization
	// KindNotFound is an unknown user or record.
	KindNotFound
)

// Classify maps an engine error to its [Kind]. Unknown errors classify as
// internal.
func Classify(err error) Kind {
	switch {
	case errors.Is(err, ErrPINFormat), errors.Is(err, ErrQuestionCount), errors.Is(err, ErrQuestionEmpty):
		return KindValidation
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidPIN),
		errors.Is(err, ErrAnswersIncorrect), errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrLoginRateLimited):
		return KindAuthentication
	case errors.Is(err, ErrAccountInactive), errors.Is(err, ErrPINLocked):
		return KindAuthorization
	case errors.Is(err, ErrUserNotFound):
		return KindNotFound
	}
	return KindInternal
}
