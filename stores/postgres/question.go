package postgres

import (
	"context"

	authkit "github.com/allyelvis/authkit"
)

// ReplaceForUser implements [authkit.SecurityQuestionStore]. Delete and
// insert run in one transaction so a failed setup never leaves a partial set.
func (a *Adapter) ReplaceForUser(ctx context.Context, userID string, records []authkit.SecurityQuestionRecord) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM security_questions WHERE user_id = $1`, userID); err != nil {
		return err
	}

	const insert = `INSERT INTO security_questions (id, user_id, question, answer_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	for _, rec := range records {
		if _, err := tx.Exec(ctx, insert, rec.ID, rec.UserID, rec.Question, rec.AnswerHash, rec.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListByUser implements [authkit.SecurityQuestionStore].
func (a *Adapter) ListByUser(ctx context.Context, userID string) ([]authkit.SecurityQuestionRecord, error) {
	q := `SELECT id, user_id, question, answer_hash, created_at
		FROM security_questions WHERE user_id = $1 ORDER BY created_at, id`

	rows, err := a.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []authkit.SecurityQuestionRecord
	for rows.Next() {
		var rec authkit.SecurityQuestionRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Question, &rec.AnswerHash, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
