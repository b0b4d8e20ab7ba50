package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"valour-site/internal/cache"
	"valour-site/internal/data"
	"valour-site/internal/logger"
)

// Ride calendar category tags.
const (
	CategoryRide     = "ride"
	CategoryMeal     = "meal"
	CategoryCeremony = "ceremony"
	CategorySocial   = "social"
	CategoryLodging  = "lodging"
	CategoryFuel     = "fuel"
	CategoryOther    = "other"
)

// CalendarCategories lists the known tags in display order.
var CalendarCategories = []string{CategoryRide, CategoryMeal, CategoryCeremony, CategorySocial, CategoryLodging, CategoryFuel, CategoryOther}

func knownCategory(tag string) bool {
	for _, c := range CalendarCategories {
		if c == tag {
			return true
		}
	}
	return false
}

// NormalizeCategories drops blank, duplicate and unknown tags. An empty set
// becomes ["other"], and "other" is dropped when an explicit tag is present.
func NormalizeCategories(tags []string) data.StringList {
	seen := map[string]bool{}
	out := data.StringList{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] || !knownCategory(t) {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) > 1 && seen[CategoryOther] {
		kept := out[:0]
		for _, t := range out {
			if t != CategoryOther {
				kept = append(kept, t)
			}
		}
		out = kept
	}
	if len(out) == 0 {
		return data.StringList{CategoryOther}
	}
	return out
}

// ToggleCategory adds tag to set or removes it. Removing the last tag
// reverts to ["other"]; adding to ["other"] replaces it.
func ToggleCategory(set []string, tag string) data.StringList {
	var out data.StringList
	removed := false
	for _, t := range set {
		if t == tag {
			removed = true
			continue
		}
		out = append(out, t)
	}
	if removed {
		if len(out) == 0 {
			return data.StringList{CategoryOther}
		}
		return out
	}
	if len(set) == 1 && set[0] == CategoryOther {
		return data.StringList{tag}
	}
	return append(data.StringList(append([]string{}, set...)), tag)
}

// CalendarRepository is the ride calendar query surface.
type CalendarRepository interface {
	ListDays(ctx context.Context) ([]data.RideCalendarDay, error)
	ListEvents(ctx context.Context) ([]data.RideCalendarEvent, error)
	ListEventsByDay(ctx context.Context, dayID string) ([]data.RideCalendarEvent, error)
	GetEvent(ctx context.Context, id string) (*data.RideCalendarEvent, error)
	NextDayNumber(ctx context.Context) (int, error)
	NextOrderIndex(ctx context.Context, dayID string) (int, error)
	SwapOrder(ctx context.Context, a, b *data.RideCalendarEvent) error
}

// DaySchedule is one ride day with its events in display order.
type DaySchedule struct {
	Day    data.RideCalendarDay
	Events []data.RideCalendarEvent
}

// DayForm is the editable part of a ride day.
type DayForm struct {
	Date        string `form:"date" validate:"omitempty,datetime=2006-01-02"`
	Title       string `form:"title" validate:"required"`
	Description string `form:"description"`
}

// EventForm is the editable part of a ride calendar event.
type EventForm struct {
	Title       string   `form:"title" validate:"required"`
	Description string   `form:"description"`
	Time        string   `form:"time"`
	StartTime   string   `form:"start_time"`
	EndTime     string   `form:"end_time"`
	Location    string   `form:"location"`
	Category    []string `form:"category"`
}

// EventFormFrom seeds a form from a stored event.
func EventFormFrom(e *data.RideCalendarEvent) EventForm {
	f := EventForm{
		Title:       e.Title,
		Description: e.Description,
		Time:        e.Time,
		Location:    e.Location,
		Category:    e.Category,
	}
	if e.StartTime != nil {
		f.StartTime = *e.StartTime
	}
	if e.EndTime != nil {
		f.EndTime = *e.EndTime
	}
	return f
}

// ValidateEvent normalises f and checks it.
func ValidateEvent(f *EventForm) Result {
	f.Title = strings.TrimSpace(f.Title)
	f.Time = strings.TrimSpace(f.Time)
	f.StartTime = strings.TrimSpace(f.StartTime)
	f.EndTime = strings.TrimSpace(f.EndTime)
	f.Category = NormalizeCategories(f.Category)

	res := Check(f)
	var start, end time.Time
	var err error
	if f.StartTime != "" {
		if start, err = time.Parse(TimeLayout, f.StartTime); err != nil {
			res.Add("start_time", "must be a time (HH:MM)")
		}
	}
	if f.EndTime != "" {
		if end, err = time.Parse(TimeLayout, f.EndTime); err != nil {
			res.Add("end_time", "must be a time (HH:MM)")
		} else if f.StartTime == "" {
			res.Add("start_time", "is required with an end time")
		}
	}
	if res.Error("start_time") == "" && res.Error("end_time") == "" && f.EndTime != "" && end.Before(start) {
		res.Add("end_time", "must not be before the start time")
	}
	return res
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CalendarService edits and reads the multi-day ride calendar.
type CalendarService struct {
	repo   CalendarRepository
	days   Gateway[data.RideCalendarDay]
	events Gateway[data.RideCalendarEvent]
	cache  cache.Store
	log    logger.Logger
	now    func() time.Time
}

// NewCalendarService creates a CalendarService.
func NewCalendarService(repo CalendarRepository, days Gateway[data.RideCalendarDay], events Gateway[data.RideCalendarEvent], c cache.Store, log logger.Logger) *CalendarService {
	return &CalendarService{repo: repo, days: days, events: events, cache: c, log: log, now: time.Now}
}

// Schedule returns every day with its events.
func (s *CalendarService) Schedule(ctx context.Context) ([]DaySchedule, error) {
	days, err := s.repo.ListDays(ctx)
	if err != nil {
		s.log.Error(err, "Failed to list ride days")
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx)
	if err != nil {
		s.log.Error(err, "Failed to list ride events")
		return nil, err
	}
	byDay := map[string][]data.RideCalendarEvent{}
	for _, e := range events {
		byDay[e.DayID] = append(byDay[e.DayID], e)
	}
	out := make([]DaySchedule, len(days))
	for i, d := range days {
		out[i] = DaySchedule{Day: d, Events: byDay[d.ID]}
	}
	return out, nil
}

// AddDay appends a day numbered after the last one.
func (s *CalendarService) AddDay(ctx context.Context) (*data.RideCalendarDay, error) {
	n, err := s.repo.NextDayNumber(ctx)
	if err != nil {
		return nil, err
	}
	day := &data.RideCalendarDay{DayNumber: n, Title: fmt.Sprintf("Day %d", n)}
	if err := s.days.Insert(ctx, day); err != nil {
		s.log.Error(err, "Failed to add ride day")
		return nil, err
	}
	s.invalidate(ctx)
	return day, nil
}

// UpdateDay saves a day's date, title and description.
func (s *CalendarService) UpdateDay(ctx context.Context, id string, f DayForm) (Result, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Date = strings.TrimSpace(f.Date)
	res := Check(&f)
	if !res.Valid {
		return res, nil
	}
	n, err := s.days.Update(ctx, data.ByID(id), data.Patch{
		"date":        optional(f.Date),
		"title":       f.Title,
		"description": f.Description,
		"updated_at":  s.now().UTC(),
	})
	if err != nil {
		s.log.Error(err, "Failed to update ride day")
		return res, err
	}
	if n == 0 {
		return res, ErrNotFound
	}
	s.invalidate(ctx)
	return res, nil
}

// DeleteDay removes a day and, by cascade, its events.
func (s *CalendarService) DeleteDay(ctx context.Context, id string) error {
	if _, err := s.days.Delete(ctx, data.ByID(id)); err != nil {
		s.log.Error(err, "Failed to delete ride day")
		return err
	}
	s.invalidate(ctx)
	return nil
}

// AddEvent appends an event to the end of a day.
func (s *CalendarService) AddEvent(ctx context.Context, dayID string, f EventForm) (Result, error) {
	res := ValidateEvent(&f)
	if !res.Valid {
		return res, nil
	}
	day, err := s.days.First(ctx, data.ByID(dayID))
	if err != nil {
		return res, err
	}
	if day == nil {
		return res, ErrNotFound
	}
	idx, err := s.repo.NextOrderIndex(ctx, dayID)
	if err != nil {
		return res, err
	}
	ev := &data.RideCalendarEvent{
		DayID:       dayID,
		Title:       f.Title,
		Description: f.Description,
		Time:        f.Time,
		StartTime:   optional(f.StartTime),
		EndTime:     optional(f.EndTime),
		Location:    f.Location,
		Category:    data.StringList(f.Category),
		OrderIndex:  idx,
	}
	if err := s.events.Insert(ctx, ev); err != nil {
		s.log.Error(err, "Failed to add ride event")
		return res, err
	}
	s.invalidate(ctx)
	return res, nil
}

// UpdateEvent saves an event's details. Its day and position are unchanged.
func (s *CalendarService) UpdateEvent(ctx context.Context, id string, f EventForm) (Result, error) {
	res := ValidateEvent(&f)
	if !res.Valid {
		return res, nil
	}
	n, err := s.events.Update(ctx, data.ByID(id), data.Patch{
		"title":       f.Title,
		"description": f.Description,
		"time":        f.Time,
		"start_time":  optional(f.StartTime),
		"end_time":    optional(f.EndTime),
		"location":    f.Location,
		"category":    data.StringList(f.Category),
		"updated_at":  s.now().UTC(),
	})
	if err != nil {
		s.log.Error(err, "Failed to update ride event")
		return res, err
	}
	if n == 0 {
		return res, ErrNotFound
	}
	s.invalidate(ctx)
	return res, nil
}

// DeleteEvent removes an event.
func (s *CalendarService) DeleteEvent(ctx context.Context, id string) error {
	if _, err := s.events.Delete(ctx, data.ByID(id)); err != nil {
		s.log.Error(err, "Failed to delete ride event")
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ErrTimedEventOrder is returned when moving a timed event past a neighbour
// with a different start time. Timed events are placed by their time.
var ErrTimedEventOrder = errors.New("events with a start time are ordered by it; change the time to move the event")

// MoveEvent swaps an event with its neighbour within the day. Only events
// sharing a start time (or both without one) change places; order_index
// never overrides the time. Moving past the end of an event's group is a
// no-op for untimed events and ErrTimedEventOrder for timed ones.
func (s *CalendarService) MoveEvent(ctx context.Context, id string, up bool) error {
	ev, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	if ev == nil {
		return ErrNotFound
	}
	siblings, err := s.repo.ListEventsByDay(ctx, ev.DayID)
	if err != nil {
		return err
	}
	for i := range siblings {
		if siblings[i].ID != id {
			continue
		}
		j := i + 1
		if up {
			j = i - 1
		}
		if j < 0 || j >= len(siblings) {
			return nil
		}
		a, b := siblings[i], siblings[j]
		if !sameStart(a.StartTime, b.StartTime) {
			if a.StartTime != nil {
				return ErrTimedEventOrder
			}
			return nil
		}
		if a.OrderIndex == b.OrderIndex {
			// Equal indexes would swap to the same values; spread them first.
			if up {
				a.OrderIndex++
			} else {
				b.OrderIndex++
			}
		}
		if err := s.repo.SwapOrder(ctx, &a, &b); err != nil {
			s.log.Error(err, "Failed to move ride event")
			return err
		}
		s.invalidate(ctx)
		return nil
	}
	return ErrNotFound
}

func sameStart(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *CalendarService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, PublicCachePrefix); err != nil {
		s.log.Error(err, "Failed to invalidate public cache")
	}
}
