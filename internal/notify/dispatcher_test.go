//go:build unit

package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valour-site/internal/data"
	"valour-site/internal/logger"
)

type mockOutboxStore struct {
	mu      sync.Mutex
	entries []data.OutboxEntry
	saved   []data.OutboxEntry
	listErr error
}

func (m *mockOutboxStore) savedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saved)
}

// ListPending mirrors the repository: due entries only, then the limit.
func (m *mockOutboxStore) ListPending(ctx context.Context, now time.Time, limit int) ([]data.OutboxEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var due []data.OutboxEntry
	for _, e := range m.entries {
		if e.CanRetry() && !e.NextAttemptAt.After(now) && len(due) < limit {
			due = append(due, e)
		}
	}
	return due, nil
}

func (m *mockOutboxStore) Save(ctx context.Context, e *data.OutboxEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *e)
	return nil
}

type mockExecutor struct {
	payloads []string
	err      error
}

func (m *mockExecutor) Execute(ctx context.Context, payload string) (string, error) {
	m.payloads = append(m.payloads, payload)
	if m.err != nil {
		return "", m.err
	}
	return "ext-1", nil
}

func newTestDispatcher(store OutboxStore, exec Executor, now time.Time) *Dispatcher {
	d := NewDispatcher(store, map[string]Executor{data.ActionWaiverNotification: exec}, logger.Nop())
	d.now = func() time.Time { return now }
	return d
}

func TestDispatcher_Success(t *testing.T) {
	store := &mockOutboxStore{entries: []data.OutboxEntry{
		{ID: "1", ActionType: data.ActionWaiverNotification, Payload: `{"fullName":"A"}`, Status: data.OutboxPending, MaxAttempts: 3},
	}}
	exec := &mockExecutor{}
	d := newTestDispatcher(store, exec, time.Now())

	require.NoError(t, d.ProcessPending(context.Background()))

	assert.Equal(t, []string{`{"fullName":"A"}`}, exec.payloads)
	require.Len(t, store.saved, 1)
	assert.Equal(t, data.OutboxDone, store.saved[0].Status)
	assert.Equal(t, "ext-1", store.saved[0].ExternalID)
	assert.Equal(t, 1, store.saved[0].Attempts)
}

func TestDispatcher_FailureKeepsRetryingUntilMaxAttempts(t *testing.T) {
	store := &mockOutboxStore{entries: []data.OutboxEntry{
		{ID: "1", ActionType: data.ActionWaiverNotification, Payload: "{}", Status: data.OutboxPending, MaxAttempts: 2},
	}}
	exec := &mockExecutor{err: errors.New("smtp down")}
	d := newTestDispatcher(store, exec, time.Now())

	require.NoError(t, d.ProcessPending(context.Background()))
	require.Len(t, store.saved, 1)
	assert.Equal(t, data.OutboxRetrying, store.saved[0].Status)
	assert.Equal(t, "smtp down", store.saved[0].ErrorMessage)
	assert.WithinDuration(t, time.Now().Add(time.Minute), store.saved[0].NextAttemptAt, 5*time.Second)

	store.entries = []data.OutboxEntry{store.saved[0]}
	d.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, d.ProcessPending(context.Background()))
	require.Len(t, store.saved, 2)
	assert.Equal(t, data.OutboxFailed, store.saved[1].Status)
	assert.Equal(t, 2, store.saved[1].Attempts)
}

func TestDispatcher_RespectsBackoff(t *testing.T) {
	now := time.Now()
	last := now.Add(-30 * time.Second)
	store := &mockOutboxStore{entries: []data.OutboxEntry{
		{ID: "1", ActionType: data.ActionWaiverNotification, Payload: "{}", Status: data.OutboxRetrying, Attempts: 1, MaxAttempts: 5,
			LastAttemptedAt: &last, NextAttemptAt: last.Add(time.Minute)},
	}}
	exec := &mockExecutor{}
	d := newTestDispatcher(store, exec, now)

	require.NoError(t, d.ProcessPending(context.Background()))
	assert.Empty(t, exec.payloads)
	assert.Empty(t, store.saved)
}

func TestDispatcher_BackedOffEntriesDoNotBlockNewOnes(t *testing.T) {
	now := time.Now()
	store := &mockOutboxStore{}
	for i := 0; i < 25; i++ {
		store.entries = append(store.entries, data.OutboxEntry{
			ID: fmt.Sprintf("old-%d", i), ActionType: data.ActionWaiverNotification, Payload: "old",
			Status: data.OutboxRetrying, Attempts: 1, MaxAttempts: 8, NextAttemptAt: now.Add(30 * time.Minute),
		})
	}
	store.entries = append(store.entries, data.OutboxEntry{
		ID: "fresh", ActionType: data.ActionWaiverNotification, Payload: "fresh", Status: data.OutboxPending, MaxAttempts: 8, NextAttemptAt: now,
	})
	exec := &mockExecutor{}
	d := newTestDispatcher(store, exec, now)

	require.NoError(t, d.ProcessPending(context.Background()))
	assert.Equal(t, []string{"fresh"}, exec.payloads)
}

func TestDispatcher_UnknownActionFailsImmediately(t *testing.T) {
	store := &mockOutboxStore{entries: []data.OutboxEntry{
		{ID: "1", ActionType: "carrier_pigeon", Payload: "{}", Status: data.OutboxPending, MaxAttempts: 5},
	}}
	d := newTestDispatcher(store, &mockExecutor{}, time.Now())

	require.NoError(t, d.ProcessPending(context.Background()))
	require.Len(t, store.saved, 1)
	assert.Equal(t, data.OutboxFailed, store.saved[0].Status)
}

func TestDispatcher_ListError(t *testing.T) {
	d := newTestDispatcher(&mockOutboxStore{listErr: errors.New("db gone")}, &mockExecutor{}, time.Now())
	assert.Error(t, d.ProcessPending(context.Background()))
}

func TestDispatcher_RunProcessesOnKick(t *testing.T) {
	store := &mockOutboxStore{entries: []data.OutboxEntry{
		{ID: "1", ActionType: data.ActionWaiverNotification, Payload: "{}", Status: data.OutboxPending, MaxAttempts: 3},
	}}
	exec := &mockExecutor{}
	d := NewDispatcher(store, map[string]Executor{data.ActionWaiverNotification: exec}, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx, time.Hour)
		close(done)
	}()

	d.Kick()
	d.Kick() // coalesced, never blocks
	assert.Eventually(t, func() bool {
		select {
		case <-done:
			return false
		default:
		}
		return store.savedCount() > 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
	assert.GreaterOrEqual(t, store.savedCount(), 1)
}

func TestOutboxEntry_NextRetryDelay(t *testing.T) {
	testCases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Minute},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{4, 8 * time.Minute},
		{10, time.Hour},
		{64, time.Hour},
	}
	for _, tc := range testCases {
		e := data.OutboxEntry{Attempts: tc.attempts}
		assert.Equal(t, tc.want, e.NextRetryDelay(time.Minute, time.Hour), "attempts=%d", tc.attempts)
	}
}
