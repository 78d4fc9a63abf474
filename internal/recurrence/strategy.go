package recurrence

import (
	"time"

	"nexthint/internal/domain"
)

// Each strategy validates its own field ranges and computes the next fire
// instant from "now" expressed in the rule's fixed-offset zone. The comma-ok
// false result means the rule cannot produce a next fire; callers render that
// as an absent hint, never as an error.

func validClock(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

func nextMinutes(r domain.ScheduleRule, now time.Time) (time.Time, bool) {
	if r.MinutesInterval < 1 || r.MinutesInterval > 59 {
		return time.Time{}, false
	}
	// There is no persisted alignment reference on this side, so the preview
	// is interval-from-now rather than the next grid line. The stored
	// authoritative value supersedes this as soon as the refresher writes one.
	return now.Add(time.Duration(r.MinutesInterval) * time.Minute), true
}

func nextHours(r domain.ScheduleRule, now time.Time) (time.Time, bool) {
	if r.HoursInterval < 1 || r.HoursInterval > 23 || r.Minute < 0 || r.Minute > 59 {
		return time.Time{}, false
	}
	// Advancing by at least a full hour dominates any sub-hour shift from
	// rewriting the minute field, so the result is always after now.
	t := now.Add(time.Duration(r.HoursInterval) * time.Hour)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), r.Minute, 0, 0, t.Location()), true
}

func nextDays(r domain.ScheduleRule, now time.Time) (time.Time, bool) {
	if r.DaysInterval < 1 || r.DaysInterval > 31 || !validClock(r.Hour, r.Minute) {
		return time.Time{}, false
	}
	t := now.AddDate(0, 0, r.DaysInterval)
	return time.Date(t.Year(), t.Month(), t.Day(), r.Hour, r.Minute, 0, 0, t.Location()), true
}

func nextWeeks(r domain.ScheduleRule, now time.Time) (time.Time, bool) {
	if r.WeeksInterval < 1 || r.WeeksInterval > 52 || len(r.WeekDays) == 0 || !validClock(r.Hour, r.Minute) {
		return time.Time{}, false
	}
	for _, d := range r.WeekDays {
		if d < time.Sunday || d > time.Saturday {
			return time.Time{}, false
		}
	}
	// Land in the target week, roll back to its Sunday boundary, then take
	// the first configured weekday in that week.
	t := now.AddDate(0, 0, r.WeeksInterval*7)
	start := t.AddDate(0, 0, -int(t.Weekday()))
	for i := 0; i < 7; i++ {
		day := start.AddDate(0, 0, i)
		if hasWeekday(r.WeekDays, day.Weekday()) {
			return time.Date(day.Year(), day.Month(), day.Day(), r.Hour, r.Minute, 0, 0, day.Location()), true
		}
	}
	return time.Time{}, false
}

func nextMonths(r domain.ScheduleRule, now time.Time) (time.Time, bool) {
	if r.MonthsInterval < 1 || r.MonthsInterval > 24 ||
		r.DayOfMonth < 1 || r.DayOfMonth > 31 || !validClock(r.Hour, r.Minute) {
		return time.Time{}, false
	}
	// time.Date normalizes an out-of-range day into the following month
	// (day 31 of a 30-day month lands on the 1st), matching the backend's
	// calendar rollover for short months.
	return time.Date(now.Year(), now.Month()+time.Month(r.MonthsInterval), r.DayOfMonth,
		r.Hour, r.Minute, 0, 0, now.Location()), true
}

func hasWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, v := range days {
		if v == d {
			return true
		}
	}
	return false
}
