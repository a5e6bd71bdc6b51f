package authkit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// emitAudit queues one activity entry. Fire-and-forget: it never fails the
// flow that called it.
func (e *Engine) emitAudit(ctx context.Context, userID string, action Action, details map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	entry := ActivityLogEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		IPAddress: clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		CreatedAt: time.Now().UTC(),
	}

	e.audit.Emit(ctx, entry)
}

// ActivityLog returns a user's activity entries newest-first along with the
// total entry count, for pagination.
func (e *Engine) ActivityLog(ctx context.Context, userID string, limit, offset int) ([]ActivityLogEntry, int, error) {
	if e == nil || e.activity == nil {
		return nil, 0, ErrEngineNotReady
	}
	if userID == "" {
		return nil, 0, ErrUserNotFound
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	entries, total, err := e.activity.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, ErrStoreUnavailable
	}
	return entries, total, nil
}
