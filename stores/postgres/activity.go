package postgres

import (
	"context"
	"encoding/json"

	authkit "github.com/allyelvis/authkit"
)

// Insert implements [authkit.ActivityLogStore]. The table is append-only;
// no update or delete statement exists in this package.
func (a *Adapter) Insert(ctx context.Context, entry authkit.ActivityLogEntry) error {
	var details []byte
	if len(entry.Details) > 0 {
		encoded, err := json.Marshal(entry.Details)
		if err != nil {
			return err
		}
		details = encoded
	}

	q := `INSERT INTO activity_log (id, user_id, action, details, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := a.pool.Exec(ctx, q,
		entry.ID, entry.UserID, string(entry.Action), details,
		entry.IPAddress, entry.UserAgent, entry.CreatedAt)
	return err
}

// ListByUser implements [authkit.ActivityLogStore]: newest-first with the
// total count for pagination.
func (a *Adapter) ListByUser(ctx context.Context, userID string, limit, offset int) ([]authkit.ActivityLogEntry, int, error) {
	var total int
	if err := a.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM activity_log WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT id, user_id, action, details, ip_address, user_agent, created_at
		FROM activity_log WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := a.pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []authkit.ActivityLogEntry
	for rows.Next() {
		var (
			entry   authkit.ActivityLogEntry
			details []byte
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &details,
			&entry.IPAddress, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, entry)
	}
	return out, total, rows.Err()
}
