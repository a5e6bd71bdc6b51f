package authkit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SetupSecurityQuestions replaces the user's full recovery question set.
// Fewer than the configured minimum (three by default) rejects with
// [ErrQuestionCount] and leaves any existing records untouched.
//
// Answers are normalized — whitespace-trimmed and case-folded — before
// hashing so recovery is tolerant of casing.
func (e *Engine) SetupSecurityQuestions(ctx context.Context, userID string, pairs []QuestionAnswer) error {
	if e == nil || e.questions == nil || e.credentials == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}
	if len(pairs) < e.config.Questions.MinQuestions {
		return ErrQuestionCount
	}
	for _, p := range pairs {
		if strings.TrimSpace(p.Question) == "" || strings.TrimSpace(p.Answer) == "" {
			return ErrQuestionEmpty
		}
	}

	if _, err := e.credentials.FindByID(ctx, userID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return ErrStoreUnavailable
	}

	now := time.Now().UTC()
	records := make([]SecurityQuestionRecord, 0, len(pairs))
	for _, p := range pairs {
		hash, err := e.hashSecret(ctx, normalizeAnswer(p.Answer))
		if err != nil {
			return err
		}
		records = append(records, SecurityQuestionRecord{
			ID:         uuid.NewString(),
			UserID:     userID,
			Question:   strings.TrimSpace(p.Question),
			AnswerHash: hash,
			CreatedAt:  now,
		})
	}

	if err := e.questions.ReplaceForUser(ctx, userID, records); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricQuestionSetup)
	e.emitAudit(ctx, userID, ActionProfileUpdate, map[string]string{
		"field": "security_questions",
		"count": strconv.Itoa(len(records)),
	})
	return nil
}

// VerifySecurityAnswers checks supplied answers against the user's stored
// questions. Every supplied answer must match its question's normalized hash;
// an unknown question id counts as a failed answer, not an error. There is no
// partial credit.
func (e *Engine) VerifySecurityAnswers(ctx context.Context, userID string, answers []AnswerAttempt) error {
	if e == nil || e.questions == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}

	stored, err := e.questions.ListByUser(ctx, userID)
	if err != nil {
		return ErrStoreUnavailable
	}
	if len(stored) == 0 || len(answers) == 0 {
		e.metricInc(MetricRecoveryFailure)
		return ErrAnswersIncorrect
	}

	byID := make(map[string]SecurityQuestionRecord, len(stored))
	for _, rec := range stored {
		byID[rec.ID] = rec
	}

	allMatch := true
	for _, attempt := range answers {
		rec, found := byID[attempt.QuestionID]
		if !found {
			allMatch = false
			continue
		}
		match, err := e.verifySecret(ctx, normalizeAnswer(attempt.Answer), rec.AnswerHash)
		if err != nil || !match {
			allMatch = false
		}
	}

	if !allMatch {
		e.metricInc(MetricRecoveryFailure)
		e.emitAudit(ctx, userID, ActionFailedLogin, map[string]string{
			"method": "security_questions",
			"reason": "answer mismatch",
		})
		return ErrAnswersIncorrect
	}

	e.metricInc(MetricRecoverySuccess)
	return nil
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
