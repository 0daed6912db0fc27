// Package dates provides calendar window and bucketing utilities for the
// insight tools. Every function takes an explicit "now" so that windows
// are deterministic under test; nothing in this package reads the system
// clock.
package dates

import (
	"fmt"
	"math"
	"time"
)

// TimeRange names a semantic lookback window.
type TimeRange string

const (
	RangeToday   TimeRange = "today"
	RangeWeek    TimeRange = "week"
	RangeMonth   TimeRange = "month"
	RangeQuarter TimeRange = "quarter"
	RangeYear    TimeRange = "year"
	RangeAll     TimeRange = "all"
)

// TimeRanges lists every valid TimeRange value.
var TimeRanges = []TimeRange{RangeToday, RangeWeek, RangeMonth, RangeQuarter, RangeYear, RangeAll}

// Granularity names a bucketing resolution for timelines.
type Granularity string

const (
	GranularityHourly Granularity = "hourly"
	GranularityDaily  Granularity = "daily"
	GranularityWeekly Granularity = "weekly"
)

// Granularities lists every valid Granularity value.
var Granularities = []Granularity{GranularityHourly, GranularityDaily, GranularityWeekly}

// epochFloor is the start of the "all" window: far enough in the past to
// include all realistic user data.
var epochFloor = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Range is a half-open-feeling but inclusive [Start, End] window.
type Range struct {
	Start time.Time
	End   time.Time
}

// Window computes the [start, end] window for a TimeRange relative to now.
// End is always now. Month, quarter, and year subtraction is calendar-aware
// (day-of-month clamped, never AddDate normalization drift).
func Window(now time.Time, r TimeRange) Range {
	switch r {
	case RangeToday:
		return Range{Start: StartOfDay(now), End: now}
	case RangeWeek:
		return Range{Start: now.AddDate(0, 0, -7), End: now}
	case RangeMonth:
		return Range{Start: AddMonthsClamped(now, -1), End: now}
	case RangeQuarter:
		return Range{Start: AddMonthsClamped(now, -3), End: now}
	case RangeYear:
		return Range{Start: AddMonthsClamped(now, -12), End: now}
	case RangeAll:
		return Range{Start: epochFloor, End: now}
	default:
		// Callers validate first; an unknown range degrades to month.
		return Range{Start: AddMonthsClamped(now, -1), End: now}
	}
}

// AddMonthsClamped shifts t by the given number of calendar months,
// clamping the day-of-month to the length of the target month. Unlike
// time.AddDate, Jan 31 minus one month lands on Dec 31 and Mar 31 minus
// one month lands on Feb 28/29 — the result never spills into an
// adjacent month.
func AddMonthsClamped(t time.Time, months int) time.Time {
	year := t.Year()
	month := int(t.Month()) + months
	for month < 1 {
		month += 12
		year--
	}
	for month > 12 {
		month -= 12
		year++
	}

	day := t.Day()
	if last := daysInMonth(year, time.Month(month)); day > last {
		day = last
	}

	return time.Date(year, time.Month(month), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// StartOfDay zeroes out the time-of-day components.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay maxes out the time-of-day components.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}

// DaysBetween returns the whole-day count from a to b, using floor
// division. The sign follows the argument order: negative when b is
// before a.
func DaysBetween(a, b time.Time) int {
	return int(math.Floor(b.Sub(a).Hours() / 24))
}

// CalendarDaysBetween returns the count of calendar-day boundaries between
// a and b, ignoring time of day.
func CalendarDaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// RelativeLabel returns a human label for how long ago date was, relative
// to now: "today", "yesterday", "N days ago", "N weeks ago", "N months
// ago", or "N years ago".
func RelativeLabel(now, date time.Time) string {
	days := CalendarDaysBetween(date, now)
	switch {
	case days <= 0:
		return "today"
	case days == 1:
		return "yesterday"
	case days < 7:
		return fmt.Sprintf("%d days ago", days)
	case days < 30:
		return plural(days/7, "week")
	case days < 365:
		return plural(days/30, "month")
	default:
		return plural(days/365, "year")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// DateLabel buckets a date into "Today", "This Week", "This Month", or
// "Earlier" relative to now.
func DateLabel(now, date time.Time) string {
	days := CalendarDaysBetween(date, now)
	switch {
	case days <= 0:
		return "Today"
	case days < 7:
		return "This Week"
	case days < 30:
		return "This Month"
	default:
		return "Earlier"
	}
}

// IsOverdue reports whether date is strictly before now.
func IsOverdue(now, date time.Time) bool {
	return date.Before(now)
}

// WeekStart returns the Monday of the week containing t, at midnight.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// BucketKey returns the timeline bucket key for t at the given
// granularity: an hour string, a date string, or the week-start date
// string. Keys sort chronologically as plain strings.
func BucketKey(t time.Time, g Granularity) string {
	switch g {
	case GranularityHourly:
		return t.Format("2006-01-02 15:00")
	case GranularityWeekly:
		return WeekStart(t).Format("2006-01-02")
	default:
		return t.Format("2006-01-02")
	}
}
