// Package postgres implements the authkit store interfaces over a pgx
// connection pool.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	authkit "github.com/allyelvis/authkit"
)

// Adapter implements [authkit.CredentialStore], [authkit.SecurityQuestionStore],
// and [authkit.ActivityLogStore] over one pgx pool.
type Adapter struct {
	pool *pgxpool.Pool
}

var (
	_ authkit.CredentialStore       = (*Adapter)(nil)
	_ authkit.SecurityQuestionStore = (*Adapter)(nil)
	_ authkit.ActivityLogStore      = (*Adapter)(nil)
)

// New returns an Adapter over the given pool. The pool's lifecycle belongs
// to the caller.
func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}
