package utils

import (
	"fmt"
	"sort"
	"time"

	"beachrental-backend/internal/domain"
)

const (
	SlotsPerDay = 48
	SlotMinutes = 30
	MaxSlots    = 3
	DateLayout  = "2006-01-02"
)

// SlotToTime maps a slot index to its wall-clock start.
func SlotToTime(slot int) (hour, minute int, err error) {
	if slot < 0 || slot >= SlotsPerDay {
		return 0, 0, domain.Validationf("slot %d is outside 0-%d", slot, SlotsPerDay-1)
	}
	return slot / 2, (slot % 2) * SlotMinutes, nil
}

// FormatSlot renders a slot start as HH:MM. Out-of-range slots render empty.
func FormatSlot(slot int) string {
	h, m, err := SlotToTime(slot)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// NormalizeSlots returns a sorted copy of slots after checking it holds 1 to
// MaxSlots consecutive, in-range indexes.
func NormalizeSlots(slots []int) ([]int, error) {
	if len(slots) == 0 {
		return nil, domain.Validationf("at least one time slot must be selected")
	}
	if len(slots) > MaxSlots {
		return nil, domain.Validationf("maximum %d consecutive slots allowed", MaxSlots)
	}
	out := append([]int(nil), slots...)
	sort.Ints(out)
	for i, s := range out {
		if s < 0 || s >= SlotsPerDay {
			return nil, domain.Validationf("slot %d is outside 0-%d", s, SlotsPerDay-1)
		}
		if i > 0 && s != out[i-1]+1 {
			return nil, domain.Validationf("time slots must be consecutive")
		}
	}
	return out, nil
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// SlotCalendar resolves reservation dates and slots against one reference
// timezone.
type SlotCalendar struct {
	loc *time.Location
}

func NewSlotCalendar(loc *time.Location) *SlotCalendar {
	if loc == nil {
		loc = time.UTC
	}
	return &SlotCalendar{loc: loc}
}

// LoadSlotCalendar builds a calendar from an IANA zone name.
func LoadSlotCalendar(name string) (*SlotCalendar, error) {
	if name == "" {
		return NewSlotCalendar(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return NewSlotCalendar(loc), nil
}

func (c *SlotCalendar) Location() *time.Location { return c.loc }

// ParseDate parses YYYY-MM-DD as midnight in the reference timezone.
func (c *SlotCalendar) ParseDate(date string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, date, c.loc)
	if err != nil {
		return time.Time{}, domain.Validationf("invalid date format %q, use YYYY-MM-DD", date)
	}
	return t, nil
}

// SlotStart returns the instant a slot begins on date.
func (c *SlotCalendar) SlotStart(date string, slot int) (time.Time, error) {
	day, err := c.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	h, m, err := SlotToTime(slot)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, c.loc), nil
}

// DateOf returns the calendar date of t in the reference timezone.
func (c *SlotCalendar) DateOf(t time.Time) string {
	return t.In(c.loc).Format(DateLayout)
}

// SameDay compares year, month and day in the reference timezone.
func (c *SlotCalendar) SameDay(a, b time.Time) bool {
	return c.DateOf(a) == c.DateOf(b)
}
