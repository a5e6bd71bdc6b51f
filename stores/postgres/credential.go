package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	authkit "github.com/allyelvis/authkit"
)

const credentialColumns = `id, email, name, is_active, role,
	COALESCE(pin_hash, ''), pin_set, pin_attempts, pin_locked_until,
	last_active, created_at, updated_at`

// FindByEmail implements [authkit.CredentialStore].
func (a *Adapter) FindByEmail(ctx context.Context, email string) (authkit.Credential, error) {
	q := `SELECT ` + credentialColumns + ` FROM user_credentials WHERE email = $1`
	return a.scanCredential(a.pool.QueryRow(ctx, q, email))
}

// FindByID implements [authkit.CredentialStore].
func (a *Adapter) FindByID(ctx context.Context, id string) (authkit.Credential, error) {
	q := `SELECT ` + credentialColumns + ` FROM user_credentials WHERE id = $1`
	return a.scanCredential(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) scanCredential(row pgx.Row) (authkit.Credential, error) {
	var cred authkit.Credential
	err := row.Scan(
		&cred.ID,
		&cred.Email,
		&cred.Name,
		&cred.IsActive,
		&cred.Role,
		&cred.PINHash,
		&cred.PINSet,
		&cred.PINAttempts,
		&cred.PINLockedUntil,
		&cred.LastActive,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authkit.Credential{}, authkit.ErrUserNotFound
		}
		return authkit.Credential{}, err
	}
	return cred, nil
}

// SetPINHash implements [authkit.CredentialStore]. The self-join reads the
// pre-update row so the prior pin_set flag comes back from the same atomic
// statement that replaces the hash.
func (a *Adapter) SetPINHash(ctx context.Context, userID, hash string) (bool, error) {
	q := `UPDATE user_credentials c
		SET pin_hash = $2, pin_set = TRUE, pin_attempts = 0,
			pin_locked_until = NULL, updated_at = NOW()
		FROM user_credentials old
		WHERE c.id = old.id AND c.id = $1
		RETURNING old.pin_set`

	var existed bool
	if err := a.pool.QueryRow(ctx, q, userID, hash).Scan(&existed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, authkit.ErrUserNotFound
		}
		return false, err
	}
	return existed, nil
}

// IncrementPINAttempts implements [authkit.CredentialStore].
func (a *Adapter) IncrementPINAttempts(ctx context.Context, userID string) (uint32, error) {
	q := `UPDATE user_credentials
		SET pin_attempts = pin_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING pin_attempts`

	var attempts uint32
	if err := a.pool.QueryRow(ctx, q, userID).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, authkit.ErrUserNotFound
		}
		return 0, err
	}
	return attempts, nil
}

// LockPIN implements [authkit.CredentialStore].
func (a *Adapter) LockPIN(ctx context.Context, userID string, until time.Time) error {
	q := `UPDATE user_credentials
		SET pin_locked_until = $2, updated_at = NOW()
		WHERE id = $1`

	tag, err := a.pool.Exec(ctx, q, userID, until)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authkit.ErrUserNotFound
	}
	return nil
}

// ResetPINAttempts implements [authkit.CredentialStore].
func (a *Adapter) ResetPINAttempts(ctx context.Context, userID string) error {
	q := `UPDATE user_credentials
		SET pin_attempts = 0, pin_locked_until = NULL, updated_at = NOW()
		WHERE id = $1`

	tag, err := a.pool.Exec(ctx, q, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authkit.ErrUserNotFound
	}
	return nil
}

// UpdateProfile implements [authkit.CredentialStore]. Only non-nil patch
// fields are written; updated_at moves on every call.
func (a *Adapter) UpdateProfile(ctx context.Context, userID string, patch authkit.ProfilePatch) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{userID}

	addSet := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		addSet("name", *patch.Name)
	}
	if patch.IsActive != nil {
		addSet("is_active", *patch.IsActive)
	}
	if patch.Role != nil {
		addSet("role", string(*patch.Role))
	}
	if patch.LastActive != nil {
		addSet("last_active", *patch.LastActive)
	}

	q := `UPDATE user_credentials SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := a.pool.Exec(ctx, q, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authkit.ErrUserNotFound
	}
	return nil
}
