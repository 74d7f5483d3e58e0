package clock

import (
	"testing"
	"time"
)

func makeTestCalendar(t *testing.T) *Calendar {
	t.Helper()
	cal, err := NewCalendarFromHolidays("Europe/Berlin", map[string]string{
		"2026-01-01": "New Year",
		"2026-12-25": "Christmas",
	})
	if err != nil {
		t.Fatalf("NewCalendarFromHolidays: %v", err)
	}
	return cal
}

func TestCalendar_WeekdayIsTradingDay(t *testing.T) {
	cal := makeTestCalendar(t)
	monday := time.Date(2026, 2, 2, 10, 0, 0, 0, cal.Location())
	if !cal.IsTradingDay(monday) {
		t.Error("expected Monday to be a trading day")
	}
}

func TestCalendar_WeekendIsNotTradingDay(t *testing.T) {
	cal := makeTestCalendar(t)
	saturday := time.Date(2026, 2, 7, 10, 0, 0, 0, cal.Location())
	sunday := time.Date(2026, 2, 8, 10, 0, 0, 0, cal.Location())

	if cal.IsTradingDay(saturday) {
		t.Error("expected Saturday to not be a trading day")
	}
	if cal.IsTradingDay(sunday) {
		t.Error("expected Sunday to not be a trading day")
	}
}

func TestCalendar_HolidayIsNotTradingDay(t *testing.T) {
	cal := makeTestCalendar(t)
	newYear := time.Date(2026, 1, 1, 10, 0, 0, 0, cal.Location())

	if cal.IsTradingDay(newYear) {
		t.Error("expected New Year to not be a trading day")
	}
	if reason := cal.HolidayReason(newYear); reason != "New Year" {
		t.Errorf("expected 'New Year', got %q", reason)
	}
}

func TestCalendar_NextTradingDaySkipsWeekend(t *testing.T) {
	cal := makeTestCalendar(t)
	friday := time.Date(2026, 2, 6, 10, 0, 0, 0, cal.Location())
	next := cal.NextTradingDay(friday)
	if next.Weekday() != time.Monday {
		t.Errorf("expected next trading day after Friday to be Monday, got %s", next.Weekday())
	}
}

func TestCalendar_PreviousTradingDaySkipsWeekend(t *testing.T) {
	cal := makeTestCalendar(t)
	monday := time.Date(2026, 2, 9, 10, 0, 0, 0, cal.Location())
	prev := cal.PreviousTradingDay(monday)
	if prev.Weekday() != time.Friday {
		t.Errorf("expected previous trading day before Monday to be Friday, got %s", prev.Weekday())
	}
}

func TestCalendar_RejectsUnknownTimezone(t *testing.T) {
	if _, err := NewCalendar("Not/AZone", ""); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
