package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const calendarEventColumns = "id, day_id, title, description, `time`, start_time, end_time, location, category, order_index, created_at, updated_at"

// RideCalendarRepository handles database operations for ride days and
// their scheduled events.
type RideCalendarRepository struct {
	DB *sqlx.DB
}

// NewRideCalendarRepository creates a new RideCalendarRepository.
func NewRideCalendarRepository(db *sqlx.DB) *RideCalendarRepository {
	return &RideCalendarRepository{DB: db}
}

// ListDays retrieves all ride days by day number.
func (r *RideCalendarRepository) ListDays(ctx context.Context) ([]RideCalendarDay, error) {
	var days []RideCalendarDay
	err := r.DB.SelectContext(ctx, &days,
		"SELECT id, day_number, `date`, title, description, created_at, updated_at FROM ride_calendar_days ORDER BY day_number, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list ride days: %w", err)
	}
	return days, nil
}

// GetDay finds a day by its ID.
func (r *RideCalendarRepository) GetDay(ctx context.Context, id string) (*RideCalendarDay, error) {
	var day RideCalendarDay
	err := r.DB.GetContext(ctx, &day,
		"SELECT id, day_number, `date`, title, description, created_at, updated_at FROM ride_calendar_days WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to get ride day: %w", err)
	}
	return &day, nil
}

// NextDayNumber returns one past the highest day number, or 1 for an empty calendar.
func (r *RideCalendarRepository) NextDayNumber(ctx context.Context) (int, error) {
	var max sql.NullInt64
	if err := r.DB.GetContext(ctx, &max, "SELECT MAX(day_number) FROM ride_calendar_days"); err != nil {
		return 0, fmt.Errorf("failed to read max day number: %w", err)
	}
	if !max.Valid {
		return 1, nil
	}
	return int(max.Int64) + 1, nil
}

// ListEvents retrieves every scheduled event, grouped by day and ordered by
// start time (untimed last) then order index.
func (r *RideCalendarRepository) ListEvents(ctx context.Context) ([]RideCalendarEvent, error) {
	var events []RideCalendarEvent
	query := "SELECT " + calendarEventColumns + " FROM ride_calendar_events ORDER BY day_id, start_time IS NULL, start_time, order_index, id"
	if err := r.DB.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("failed to list ride events: %w", err)
	}
	return events, nil
}

// ListEventsByDay retrieves the events of one day in display order.
func (r *RideCalendarRepository) ListEventsByDay(ctx context.Context, dayID string) ([]RideCalendarEvent, error) {
	var events []RideCalendarEvent
	query := "SELECT " + calendarEventColumns + " FROM ride_calendar_events WHERE day_id = ? ORDER BY start_time IS NULL, start_time, order_index, id"
	if err := r.DB.SelectContext(ctx, &events, query, dayID); err != nil {
		return nil, fmt.Errorf("failed to list ride events for day: %w", err)
	}
	return events, nil
}

// GetEvent finds an event by its ID.
func (r *RideCalendarRepository) GetEvent(ctx context.Context, id string) (*RideCalendarEvent, error) {
	var event RideCalendarEvent
	err := r.DB.GetContext(ctx, &event, "SELECT "+calendarEventColumns+" FROM ride_calendar_events WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to get ride event: %w", err)
	}
	return &event, nil
}

// NextOrderIndex returns max(order_index)+1 for the day, or 0 when it has no events.
func (r *RideCalendarRepository) NextOrderIndex(ctx context.Context, dayID string) (int, error) {
	var max sql.NullInt64
	if err := r.DB.GetContext(ctx, &max, "SELECT MAX(order_index) FROM ride_calendar_events WHERE day_id = ?", dayID); err != nil {
		return 0, fmt.Errorf("failed to read max order index: %w", err)
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

// SwapOrder exchanges the order_index of two events in one transaction.
func (r *RideCalendarRepository) SwapOrder(ctx context.Context, a, b *RideCalendarEvent) error {
	return WithTx(ctx, r.DB, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE ride_calendar_events SET order_index = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", b.OrderIndex, a.ID); err != nil {
			return fmt.Errorf("failed to move ride event: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "UPDATE ride_calendar_events SET order_index = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", a.OrderIndex, b.ID); err != nil {
			return fmt.Errorf("failed to move ride event: %w", err)
		}
		return nil
	})
}
