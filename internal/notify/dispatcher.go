package notify

import (
	"context"
	"fmt"
	"time"

	"valour-site/internal/data"
	"valour-site/internal/logger"
)

// OutboxStore is the persistence the dispatcher needs.
type OutboxStore interface {
	ListPending(ctx context.Context, now time.Time, limit int) ([]data.OutboxEntry, error)
	Save(ctx context.Context, e *data.OutboxEntry) error
}

// Executor performs one kind of outbox action and returns the external id.
type Executor interface {
	Execute(ctx context.Context, payload string) (string, error)
}

// Dispatcher drains the notification outbox with exponential backoff.
type Dispatcher struct {
	store     OutboxStore
	executors map[string]Executor
	log       logger.Logger
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
	kick      chan struct{}
}

// NewDispatcher creates a Dispatcher with a one minute base delay capped at one hour.
func NewDispatcher(store OutboxStore, executors map[string]Executor, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		executors: executors,
		log:       log,
		baseDelay: time.Minute,
		maxDelay:  time.Hour,
		batchSize: 20,
		now:       time.Now,
		kick:      make(chan struct{}, 1),
	}
}

// Kick asks the running dispatcher to process the outbox now. It never blocks.
func (d *Dispatcher) Kick() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Run processes the outbox on every tick and every Kick until ctx is done.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-d.kick:
		}
		if err := d.ProcessPending(ctx); err != nil {
			d.log.Error(err, "outbox processing failed")
		}
	}
}

// ProcessPending attempts one batch of due entries once each.
func (d *Dispatcher) ProcessPending(ctx context.Context) error {
	entries, err := d.store.ListPending(ctx, d.now().UTC(), d.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}
	for i := range entries {
		d.process(ctx, &entries[i])
	}
	return nil
}

func (d *Dispatcher) process(ctx context.Context, e *data.OutboxEntry) {
	log := d.log.With(map[string]interface{}{"entry_id": e.ID, "action": e.ActionType})

	now := d.now().UTC()
	e.MarkAttempt(now)
	exec, ok := d.executors[e.ActionType]
	if !ok {
		e.Attempts = e.MaxAttempts
		e.MarkFailed(fmt.Errorf("no executor registered for action type %q", e.ActionType))
	} else if externalID, err := exec.Execute(ctx, e.Payload); err != nil {
		e.MarkFailed(err)
		e.ScheduleRetry(now, d.baseDelay, d.maxDelay)
		log.With(map[string]interface{}{"attempt": e.Attempts}).Error(err, "outbox action failed")
	} else {
		e.MarkSuccess(externalID)
		log.With(map[string]interface{}{"external_id": externalID}).Info("outbox action succeeded")
	}

	if err := d.store.Save(ctx, e); err != nil {
		log.Error(err, "failed to save outbox entry")
	}
}
