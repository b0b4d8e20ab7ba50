//go:build integration

package data

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	e := &OutboxEntry{ActionType: ActionWaiverNotification, Payload: `{"fullName":"A"}`}
	require.NoError(t, WithTx(ctx, db, func(tx *sqlx.Tx) error {
		return repo.EnqueueTx(ctx, tx, e)
	}))
	assert.Equal(t, OutboxPending, e.Status)
	assert.Equal(t, 8, e.MaxAttempts)

	pending, err := repo.ListPending(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.False(t, pending[0].NextAttemptAt.IsZero())

	got := pending[0]
	got.MarkAttempt(time.Now().UTC())
	got.MarkSuccess("msg-9")
	require.NoError(t, repo.Save(ctx, &got))

	pending, err = repo.ListPending(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	recent, err := repo.ListRecent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, OutboxDone, recent[0].Status)
	assert.Equal(t, "msg-9", recent[0].ExternalID)
	require.NotNil(t, recent[0].LastAttemptedAt)
}

func TestOutboxRepository_ListPendingSkipsBackedOffEntries(t *testing.T) {
	db := setupTestDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	enqueue := func(payload string) *OutboxEntry {
		e := &OutboxEntry{ActionType: ActionWaiverNotification, Payload: payload}
		require.NoError(t, WithTx(ctx, db, func(tx *sqlx.Tx) error {
			return repo.EnqueueTx(ctx, tx, e)
		}))
		return e
	}

	for i := 0; i < 25; i++ {
		e := enqueue(`{"fullName":"old"}`)
		e.MarkAttempt(now)
		e.MarkFailed(errors.New("provider unavailable"))
		e.ScheduleRetry(now, time.Minute, time.Hour)
		require.NoError(t, repo.Save(ctx, e))
	}
	fresh := enqueue(`{"fullName":"fresh"}`)

	pending, err := repo.ListPending(ctx, now.Add(time.Second), 20)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, fresh.ID, pending[0].ID)

	pending, err = repo.ListPending(ctx, now.Add(2*time.Minute), 20)
	require.NoError(t, err)
	assert.Len(t, pending, 20)
}

func TestOutboxEntry_Validate(t *testing.T) {
	assert.ErrorIs(t, (&OutboxEntry{Payload: "x"}).Validate(), ErrEmptyActionType)
	assert.ErrorIs(t, (&OutboxEntry{ActionType: "x"}).Validate(), ErrEmptyPayload)
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	e := &OutboxEntry{Status: OutboxPending, MaxAttempts: 2}
	e.MarkAttempt(time.Now())
	e.MarkFailed(errors.New("first"))
	assert.Equal(t, OutboxRetrying, e.Status)
	assert.True(t, e.CanRetry())

	e.MarkAttempt(time.Now())
	e.MarkFailed(errors.New("second"))
	assert.Equal(t, OutboxFailed, e.Status)
	assert.False(t, e.CanRetry())
	assert.Equal(t, "second", e.ErrorMessage)
}
