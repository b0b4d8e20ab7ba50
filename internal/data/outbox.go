package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Outbox entry statuses.
const (
	OutboxPending  = "pending"
	OutboxRetrying = "retrying"
	OutboxDone     = "done"
	OutboxFailed   = "failed"
)

// ActionWaiverNotification is the outbox action that emails staff about a new waiver.
const ActionWaiverNotification = "waiver_notification"

var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
)

// Validate checks the entry and defaults MaxAttempts.
func (e *OutboxEntry) Validate() error {
	if e.ActionType == "" {
		return ErrEmptyActionType
	}
	if e.Payload == "" {
		return ErrEmptyPayload
	}
	if e.Status == "" {
		e.Status = OutboxPending
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = 8
	}
	return nil
}

// CanRetry reports whether another attempt is allowed.
func (e *OutboxEntry) CanRetry() bool {
	return (e.Status == OutboxPending || e.Status == OutboxRetrying) && e.Attempts < e.MaxAttempts
}

// MarkAttempt records an attempt starting now.
func (e *OutboxEntry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = &now
	e.Status = OutboxRetrying
}

// MarkSuccess marks the entry done with the provider's id.
func (e *OutboxEntry) MarkSuccess(externalID string) {
	e.Status = OutboxDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records err; the entry fails for good once attempts run out.
func (e *OutboxEntry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if e.Attempts >= e.MaxAttempts {
		e.Status = OutboxFailed
	}
}

// NextRetryDelay is base after the first attempt, doubling with each
// further attempt and capped at max.
func (e *OutboxEntry) NextRetryDelay(base, max time.Duration) time.Duration {
	n := e.Attempts - 1
	if n < 0 {
		n = 0
	}
	if n >= 30 {
		return max
	}
	delay := base * (1 << n)
	if delay > max || delay <= 0 {
		return max
	}
	return delay
}

// ScheduleRetry sets the earliest time of the next attempt.
func (e *OutboxEntry) ScheduleRetry(now time.Time, base, max time.Duration) {
	e.NextAttemptAt = now.Add(e.NextRetryDelay(base, max))
}

const outboxColumns = `id, action_type, payload, status, attempts, max_attempts, last_attempted_at,
	next_attempt_at, external_id, error_message, created_at, updated_at`

// OutboxRepository persists notification_outbox rows.
type OutboxRepository struct {
	db    *sqlx.DB
	table *Table[OutboxEntry]
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db, table: NewTable[OutboxEntry](db, "notification_outbox")}
}

// EnqueueTx validates e and inserts it inside tx. A new entry is due at once.
func (r *OutboxRepository) EnqueueTx(ctx context.Context, tx *sqlx.Tx, e *OutboxEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.NextAttemptAt.IsZero() {
		e.NextAttemptAt = time.Now().UTC()
	}
	return r.table.InsertTx(ctx, tx, e)
}

// ListPending returns up to limit pending or retrying entries whose next
// attempt is due at now, longest waiting first. Entries still backing off
// never take a slot from due ones.
func (r *OutboxRepository) ListPending(ctx context.Context, now time.Time, limit int) ([]OutboxEntry, error) {
	var entries []OutboxEntry
	query := `SELECT ` + outboxColumns + `
		FROM notification_outbox WHERE status IN (?, ?) AND next_attempt_at <= ?
		ORDER BY next_attempt_at, created_at, id LIMIT ?`
	if err := r.db.SelectContext(ctx, &entries, query, OutboxPending, OutboxRetrying, now.UTC(), limit); err != nil {
		return nil, fmt.Errorf("failed to list pending outbox entries: %w", err)
	}
	return entries, nil
}

// ListRecent returns the newest entries, newest first.
func (r *OutboxRepository) ListRecent(ctx context.Context, limit int) ([]OutboxEntry, error) {
	var entries []OutboxEntry
	query := `SELECT ` + outboxColumns + `
		FROM notification_outbox ORDER BY created_at DESC, id LIMIT ?`
	if err := r.db.SelectContext(ctx, &entries, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list outbox entries: %w", err)
	}
	return entries, nil
}

// Save writes the mutable state of e.
func (r *OutboxRepository) Save(ctx context.Context, e *OutboxEntry) error {
	_, err := r.table.Update(ctx, ByID(e.ID), Patch{
		"status":            e.Status,
		"attempts":          e.Attempts,
		"last_attempted_at": e.LastAttemptedAt,
		"next_attempt_at":   e.NextAttemptAt,
		"external_id":       e.ExternalID,
		"error_message":     e.ErrorMessage,
		"updated_at":        time.Now().UTC(),
	})
	return err
}
