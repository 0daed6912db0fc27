package dates

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestAddMonthsClamped(t *testing.T) {
	tests := []struct {
		name   string
		in     time.Time
		months int
		want   time.Time
	}{
		{"mid-month back one", date(2024, time.June, 15, 10, 30), -1, date(2024, time.May, 15, 10, 30)},
		{"jan 31 back one clamps to dec 31", date(2024, time.January, 31, 0, 0), -1, date(2023, time.December, 31, 0, 0)},
		{"mar 31 back one clamps to feb 29 leap", date(2024, time.March, 31, 12, 0), -1, date(2024, time.February, 29, 12, 0)},
		{"mar 31 back one clamps to feb 28", date(2023, time.March, 31, 12, 0), -1, date(2023, time.February, 28, 12, 0)},
		{"may 31 back three clamps to feb 29", date(2024, time.May, 31, 0, 0), -3, date(2024, time.February, 29, 0, 0)},
		{"year boundary back", date(2024, time.February, 10, 8, 0), -3, date(2023, time.November, 10, 8, 0)},
		{"back twelve", date(2024, time.February, 29, 0, 0), -12, date(2023, time.February, 28, 0, 0)},
		{"forward one from jan 31", date(2024, time.January, 31, 0, 0), 1, date(2024, time.February, 29, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AddMonthsClamped(tt.in, tt.months)
			if !got.Equal(tt.want) {
				t.Errorf("AddMonthsClamped(%v, %d) = %v, want %v", tt.in, tt.months, got, tt.want)
			}
		})
	}
}

func TestWindow(t *testing.T) {
	now := date(2024, time.March, 31, 15, 45)

	tests := []struct {
		r         TimeRange
		wantStart time.Time
	}{
		{RangeToday, date(2024, time.March, 31, 0, 0)},
		{RangeWeek, date(2024, time.March, 24, 15, 45)},
		{RangeMonth, date(2024, time.February, 29, 15, 45)},
		{RangeQuarter, date(2023, time.December, 31, 15, 45)},
		{RangeYear, date(2023, time.March, 31, 15, 45)},
		{RangeAll, epochFloor},
	}
	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			win := Window(now, tt.r)
			if !win.Start.Equal(tt.wantStart) {
				t.Errorf("Window(%s).Start = %v, want %v", tt.r, win.Start, tt.wantStart)
			}
			if !win.End.Equal(now) {
				t.Errorf("Window(%s).End = %v, want now", tt.r, win.End)
			}
			if win.Start.After(win.End) {
				t.Errorf("Window(%s) start after end", tt.r)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"exact days", date(2024, time.January, 1, 0, 0), date(2024, time.January, 4, 0, 0), 3},
		{"partial day floors", date(2024, time.January, 1, 12, 0), date(2024, time.January, 2, 6, 0), 0},
		{"negative", date(2024, time.January, 4, 0, 0), date(2024, time.January, 1, 0, 0), -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DaysBetween(tt.a, tt.b); got != tt.want {
				t.Errorf("DaysBetween = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCalendarDaysBetween(t *testing.T) {
	// 23:00 to 01:00 the next day crosses one calendar boundary even
	// though only two hours elapsed.
	a := date(2024, time.January, 1, 23, 0)
	b := date(2024, time.January, 2, 1, 0)
	if got := CalendarDaysBetween(a, b); got != 1 {
		t.Errorf("CalendarDaysBetween = %d, want 1", got)
	}
}

func TestRelativeLabel(t *testing.T) {
	now := date(2024, time.June, 15, 12, 0)

	tests := []struct {
		daysAgo int
		want    string
	}{
		{0, "today"},
		{1, "yesterday"},
		{3, "3 days ago"},
		{7, "1 week ago"},
		{20, "2 weeks ago"},
		{45, "1 month ago"},
		{100, "3 months ago"},
		{400, "1 year ago"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			d := now.AddDate(0, 0, -tt.daysAgo)
			if got := RelativeLabel(now, d); got != tt.want {
				t.Errorf("RelativeLabel(-%dd) = %q, want %q", tt.daysAgo, got, tt.want)
			}
		})
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"wednesday", date(2024, time.June, 12, 18, 0), date(2024, time.June, 10, 0, 0)},
		{"monday stays", date(2024, time.June, 10, 5, 0), date(2024, time.June, 10, 0, 0)},
		{"sunday goes back six", date(2024, time.June, 16, 5, 0), date(2024, time.June, 10, 0, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeekStart(tt.in); !got.Equal(tt.want) {
				t.Errorf("WeekStart(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBucketKey(t *testing.T) {
	ts := date(2024, time.June, 12, 18, 42)

	tests := []struct {
		g    Granularity
		want string
	}{
		{GranularityHourly, "2024-06-12 18:00"},
		{GranularityDaily, "2024-06-12"},
		{GranularityWeekly, "2024-06-10"},
	}
	for _, tt := range tests {
		if got := BucketKey(ts, tt.g); got != tt.want {
			t.Errorf("BucketKey(%s) = %q, want %q", tt.g, got, tt.want)
		}
	}
}

func TestDateLabel(t *testing.T) {
	now := date(2024, time.June, 15, 12, 0)

	tests := []struct {
		daysAgo int
		want    string
	}{
		{0, "Today"},
		{3, "This Week"},
		{10, "This Month"},
		{60, "Earlier"},
	}
	for _, tt := range tests {
		d := now.AddDate(0, 0, -tt.daysAgo)
		if got := DateLabel(now, d); got != tt.want {
			t.Errorf("DateLabel(-%dd) = %q, want %q", tt.daysAgo, got, tt.want)
		}
	}
}
