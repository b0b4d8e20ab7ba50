//go:build integration

package data

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valour-site/internal/config"
)

// setupTestDB opens a fresh in-memory SQLite database with every migration applied.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := NewDB(config.DBConfig{Driver: "sqlite3", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, ApplyMigrations(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTable_InsertAssignsIDAndTimestamps(t *testing.T) {
	db := setupTestDB(t)
	sponsors := NewTable[Sponsor](db, "sponsors")
	ctx := context.Background()

	s := &Sponsor{Name: "Acme Co", Category: "Gold", IsActive: true}
	require.NoError(t, sponsors.Insert(ctx, s))

	assert.NotEmpty(t, s.ID)
	assert.False(t, s.CreatedAt.IsZero())

	got, err := sponsors.First(ctx, ByID(s.ID))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme Co", got.Name)
	assert.True(t, got.IsActive)
}

func TestTable_FirstReturnsNilWhenMissing(t *testing.T) {
	db := setupTestDB(t)
	sponsors := NewTable[Sponsor](db, "sponsors")

	got, err := sponsors.First(context.Background(), ByID("missing"))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTable_SelectFiltersAndOrders(t *testing.T) {
	db := setupTestDB(t)
	sponsors := NewTable[Sponsor](db, "sponsors")
	ctx := context.Background()

	for _, s := range []*Sponsor{
		{Name: "Zed", Category: "Gold", DisplayOrder: 1, IsActive: true},
		{Name: "Alpha", Category: "Gold", DisplayOrder: 1, IsActive: true},
		{Name: "First", Category: "Silver", DisplayOrder: 0, IsActive: true},
		{Name: "Hidden", Category: "Gold", DisplayOrder: 0, IsActive: false},
	} {
		require.NoError(t, sponsors.Insert(ctx, s))
	}

	rows, err := sponsors.Select(ctx, Filter{Eq("is_active", true)}, Asc("display_order"), Asc("name"), Asc("id"))
	require.NoError(t, err)

	var names []string
	for _, r := range rows {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"First", "Alpha", "Zed"}, names)
}

func TestTable_NullsLastOrdering(t *testing.T) {
	db := setupTestDB(t)
	photos := NewTable[Photo](db, "photos")
	ctx := context.Background()

	early, late := "2025-06-01", "2025-07-01"
	require.NoError(t, photos.Insert(ctx, &Photo{Title: "undated", ImageURL: "u"}))
	require.NoError(t, photos.Insert(ctx, &Photo{Title: "late", ImageURL: "u", EventDate: &late}))
	require.NoError(t, photos.Insert(ctx, &Photo{Title: "early", ImageURL: "u", EventDate: &early}))

	rows, err := photos.Select(ctx, nil, AscNullsLast("event_date"))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "early", rows[0].Title)
	assert.Equal(t, "late", rows[1].Title)
	assert.Equal(t, "undated", rows[2].Title)
	assert.Equal(t, "2025-06-01", *rows[0].EventDate)
}

func TestTable_UpdateAppliesPatch(t *testing.T) {
	db := setupTestDB(t)
	sponsors := NewTable[Sponsor](db, "sponsors")
	ctx := context.Background()

	s := &Sponsor{Name: "Acme Co", Category: "Gold"}
	require.NoError(t, sponsors.Insert(ctx, s))

	n, err := sponsors.Update(ctx, ByID(s.ID), Patch{"name": "Acme Corp"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := sponsors.First(ctx, ByID(s.ID))
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, "Gold", got.Category)
}

func TestTable_RejectsUnknownColumns(t *testing.T) {
	db := setupTestDB(t)
	sponsors := NewTable[Sponsor](db, "sponsors")
	ctx := context.Background()

	_, err := sponsors.Update(ctx, ByID("x"), Patch{"bogus": 1})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = sponsors.Select(ctx, Filter{Eq("bogus", 1)})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = sponsors.Select(ctx, nil, Asc("bogus"))
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestTable_DeleteRequiresFilter(t *testing.T) {
	db := setupTestDB(t)
	sponsors := NewTable[Sponsor](db, "sponsors")
	ctx := context.Background()

	s := &Sponsor{Name: "Gone", Category: "Gold"}
	require.NoError(t, sponsors.Insert(ctx, s))

	_, err := sponsors.Delete(ctx, nil)
	assert.Error(t, err)

	n, err := sponsors.Delete(ctx, ByID(s.ID))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	count, err := sponsors.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTable_StringListRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	days := NewTable[RideCalendarDay](db, "ride_calendar_days")
	events := NewTable[RideCalendarEvent](db, "ride_calendar_events")
	ctx := context.Background()

	day, err := days.First(ctx, Filter{Eq("day_number", 1)})
	require.NoError(t, err)
	require.NotNil(t, day)

	ev := &RideCalendarEvent{DayID: day.ID, Title: "Lunch", Category: StringList{"meal", "social"}}
	require.NoError(t, events.Insert(ctx, ev))

	got, err := events.First(ctx, ByID(ev.ID))
	require.NoError(t, err)
	assert.Equal(t, StringList{"meal", "social"}, got.Category)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	contacts := NewTable[ContactSubmission](db, "contact_submissions")
	ctx := context.Background()

	err := WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if err := contacts.InsertTx(ctx, tx, &ContactSubmission{Name: "A", Email: "a@example.com", Subject: "s", Message: "m"}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	count, err := contacts.Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestApplyMigrations_IsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, ApplyMigrations(db))
}
