//go:build integration

package data

import (
	"context"
	"testing"
)

func setupCalendarTest(t *testing.T) (*RideCalendarRepository, *Table[RideCalendarEvent]) {
	t.Helper()
	db := setupTestDB(t)
	return NewRideCalendarRepository(db), NewTable[RideCalendarEvent](db, "ride_calendar_events")
}

func TestRideCalendarRepository_ListDays(t *testing.T) {
	repo, _ := setupCalendarTest(t)

	days, err := repo.ListDays(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 5 {
		t.Fatalf("expected 5 seeded days, got %d", len(days))
	}
	for i, d := range days {
		if d.DayNumber != i+1 {
			t.Errorf("expected day %d at position %d, got %d", i+1, i, d.DayNumber)
		}
	}

	next, err := repo.NextDayNumber(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next != 6 {
		t.Errorf("expected next day number 6, got %d", next)
	}
}

func TestRideCalendarRepository_NextOrderIndex(t *testing.T) {
	repo, events := setupCalendarTest(t)
	ctx := context.Background()
	days, _ := repo.ListDays(ctx)
	dayID := days[0].ID

	idx, err := repo.NextOrderIndex(ctx, dayID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 {
		t.Errorf("expected 0 for an empty day, got %d", idx)
	}

	if err := events.Insert(ctx, &RideCalendarEvent{DayID: dayID, Title: "Depart", OrderIndex: 4, Category: StringList{"ride"}}); err != nil {
		t.Fatal(err)
	}
	idx, err = repo.NextOrderIndex(ctx, dayID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 5 {
		t.Errorf("expected 5, got %d", idx)
	}
}

func TestRideCalendarRepository_EventOrdering(t *testing.T) {
	repo, events := setupCalendarTest(t)
	ctx := context.Background()
	days, _ := repo.ListDays(ctx)
	dayID := days[0].ID

	nine, eight := "09:00", "08:00"
	for _, ev := range []*RideCalendarEvent{
		{DayID: dayID, Title: "untimed-b", OrderIndex: 2, Category: StringList{"other"}},
		{DayID: dayID, Title: "nine", StartTime: &nine, OrderIndex: 0, Category: StringList{"ride"}},
		{DayID: dayID, Title: "untimed-a", OrderIndex: 1, Category: StringList{"other"}},
		{DayID: dayID, Title: "eight", StartTime: &eight, OrderIndex: 3, Category: StringList{"meal"}},
	} {
		if err := events.Insert(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.ListEventsByDay(ctx, dayID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"eight", "nine", "untimed-a", "untimed-b"}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}
	for i, title := range want {
		if got[i].Title != title {
			t.Errorf("position %d: expected %q, got %q", i, title, got[i].Title)
		}
	}
}

func TestRideCalendarRepository_SwapOrder(t *testing.T) {
	repo, events := setupCalendarTest(t)
	ctx := context.Background()
	days, _ := repo.ListDays(ctx)
	dayID := days[0].ID

	a := &RideCalendarEvent{DayID: dayID, Title: "a", OrderIndex: 0, Category: StringList{"other"}}
	b := &RideCalendarEvent{DayID: dayID, Title: "b", OrderIndex: 1, Category: StringList{"other"}}
	for _, ev := range []*RideCalendarEvent{a, b} {
		if err := events.Insert(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	if err := repo.SwapOrder(ctx, a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gotA, _ := repo.GetEvent(ctx, a.ID)
	gotB, _ := repo.GetEvent(ctx, b.ID)
	if gotA.OrderIndex != 1 || gotB.OrderIndex != 0 {
		t.Errorf("expected swapped indexes, got a=%d b=%d", gotA.OrderIndex, gotB.OrderIndex)
	}
}

func TestRideCalendarRepository_DeleteDayCascades(t *testing.T) {
	repo, events := setupCalendarTest(t)
	ctx := context.Background()
	days, _ := repo.ListDays(ctx)
	dayID := days[0].ID

	ev := &RideCalendarEvent{DayID: dayID, Title: "x", Category: StringList{"other"}}
	if err := events.Insert(ctx, ev); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.DB.ExecContext(ctx, "DELETE FROM ride_calendar_days WHERE id = ?", dayID); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Error("expected event to be removed with its day")
	}
}
