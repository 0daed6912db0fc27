package tools

import (
	"context"
	"sort"
	"time"

	"github.com/unspiral/unspiral/internal/dates"
	"github.com/unspiral/unspiral/internal/insight"
	"github.com/unspiral/unspiral/internal/store"
	"github.com/unspiral/unspiral/internal/validate"
)

// AnalyzeCompletionPatterns computes completion rate, average completion
// time, and optional per-category and mood breakdowns for items created
// in the window.
func AnalyzeCompletionPatterns(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	timeRange := dates.RangeMonth
	if v, ok := params["time_range"]; ok {
		tr, err := validate.TimeRange(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		timeRange = tr
	}

	var category *store.Category
	if v, ok := params["category_id"]; ok && v != nil {
		cat, err := validate.CategoryID(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		category = &cat
	}

	includeMood := true
	if v, ok := params["include_mood_correlation"]; ok {
		b, err := validate.Boolean(v, "include_mood_correlation")
		if err != nil {
			return failure(start, "%v", err)
		}
		includeMood = b
	}

	win := dates.Window(now, timeRange)
	filter := store.ItemFilter{CreatedAfter: &win.Start, CreatedBefore: &win.End}
	if category != nil {
		filter.Categories = []store.Category{*category}
	}

	items, err := tc.Store.ListItems(ctx, tc.UserID, filter)
	if err != nil {
		return failure(start, "query items: %v", err)
	}

	total := len(items)
	completed := 0
	type catAgg struct{ total, completed int }
	byCategory := map[store.Category]*catAgg{}
	for _, it := range items {
		agg := byCategory[it.Category]
		if agg == nil {
			agg = &catAgg{}
			byCategory[it.Category] = agg
		}
		agg.total++
		if it.Status == store.StatusCompleted {
			completed++
			agg.completed++
		}
	}

	// completion_rate is 0 for an empty window, never NaN.
	rate := 0.0
	if total > 0 {
		rate = float64(completed) / float64(total)
	}

	payload := insight.CompletionPatterns{
		TotalItems:     total,
		CompletedItems: completed,
		CompletionRate: insight.Round1(rate*100) / 100,
	}

	for cat, agg := range byCategory {
		catRate := 0.0
		if agg.total > 0 {
			catRate = float64(agg.completed) / float64(agg.total)
		}
		payload.ByCategory = append(payload.ByCategory, insight.CategoryBreakdown{
			Category:  cat.String(),
			Total:     agg.total,
			Completed: agg.completed,
			Rate:      insight.Round1(catRate*100) / 100,
		})
	}
	sort.Slice(payload.ByCategory, func(i, j int) bool {
		if payload.ByCategory[i].Total != payload.ByCategory[j].Total {
			return payload.ByCategory[i].Total > payload.ByCategory[j].Total
		}
		return payload.ByCategory[i].Category < payload.ByCategory[j].Category
	})

	logs, err := tc.Store.ListCompletions(ctx, tc.UserID, store.CompletionFilter{From: &win.Start, To: &win.End})
	if err != nil {
		return failure(start, "query completions: %v", err)
	}

	var hourSum float64
	hourCount := 0
	var beforeSum, afterSum float64
	moodCount := 0
	for _, cl := range logs {
		if cl.TimeToCompleteHours != nil {
			hourSum += *cl.TimeToCompleteHours
			hourCount++
		}
		if cl.MoodBefore != nil && cl.MoodAfter != nil {
			beforeSum += *cl.MoodBefore
			afterSum += *cl.MoodAfter
			moodCount++
		}
	}
	if hourCount > 0 {
		avg := insight.Round1(hourSum / float64(hourCount))
		payload.AvgCompletionHours = &avg
	}
	if includeMood && moodCount > 0 {
		before := insight.Round1(beforeSum / float64(moodCount))
		after := insight.Round1(afterSum / float64(moodCount))
		payload.MoodCorrelation = &insight.MoodCorrelation{
			AvgMoodBefore: before,
			AvgMoodAfter:  after,
			AvgMoodLift:   insight.Round1(after - before),
			Samples:       moodCount,
		}
	}

	return success(start, insight.FormatCompletionPatterns(payload))
}

// AnalyzeProcrastinationTrends finds pending items older than the
// threshold and optionally aggregates their delay by category.
func AnalyzeProcrastinationTrends(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	minHours := 48.0
	if v, ok := params["min_procrastination_hours"]; ok {
		n, err := validate.Number(v, "min_procrastination_hours", 1, 24*365)
		if err != nil {
			return failure(start, "%v", err)
		}
		minHours = n
	}

	includePatterns := true
	if v, ok := params["include_patterns"]; ok {
		b, err := validate.Boolean(v, "include_patterns")
		if err != nil {
			return failure(start, "%v", err)
		}
		includePatterns = b
	}

	cutoff := now.Add(-time.Duration(minHours * float64(time.Hour)))
	items, err := tc.Store.ListItems(ctx, tc.UserID, store.ItemFilter{
		Status:        store.StatusPending,
		CreatedBefore: &cutoff,
		OrderBy:       store.OrderCreatedAsc,
	})
	if err != nil {
		return failure(start, "query items: %v", err)
	}

	payload := insight.Procrastination{
		ThresholdHrs: minHours,
		TotalStalled: len(items),
		Tasks:        []insight.StalledTask{},
	}

	type delayAgg struct {
		count    int
		totalDay int
	}
	byCategory := map[store.Category]*delayAgg{}
	for _, it := range items {
		days := dates.DaysBetween(it.CreatedAt, now)
		payload.Tasks = append(payload.Tasks, insight.StalledTask{
			Title:        it.Title,
			Category:     it.Category.String(),
			DaysPending:  days,
			CreatedLabel: dates.RelativeLabel(now, it.CreatedAt),
		})
		if days > payload.OldestPending {
			payload.OldestPending = days
		}
		agg := byCategory[it.Category]
		if agg == nil {
			agg = &delayAgg{}
			byCategory[it.Category] = agg
		}
		agg.count++
		agg.totalDay += days
	}

	if includePatterns {
		for cat, agg := range byCategory {
			payload.ByCategory = append(payload.ByCategory, insight.CategoryDelay{
				Category:     cat.String(),
				Count:        agg.count,
				AvgDelayDays: insight.Round1(float64(agg.totalDay) / float64(agg.count)),
			})
		}
		sort.Slice(payload.ByCategory, func(i, j int) bool {
			if payload.ByCategory[i].Count != payload.ByCategory[j].Count {
				return payload.ByCategory[i].Count > payload.ByCategory[j].Count
			}
			return payload.ByCategory[i].Category < payload.ByCategory[j].Category
		})
	}

	return success(start, insight.FormatProcrastination(payload))
}

// AnalyzeRecurringAdherence compares expected completions against actual
// completion-log entries for every active recurring item in the window.
func AnalyzeRecurringAdherence(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	timeRange := dates.RangeMonth
	if v, ok := params["time_range"]; ok {
		tr, err := validate.TimeRange(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		timeRange = tr
	}

	win := dates.Window(now, timeRange)
	windowDays := dates.CalendarDaysBetween(win.Start, win.End)

	specs, err := tc.Store.ListRecurring(ctx, tc.UserID, true)
	if err != nil {
		return failure(start, "query recurring items: %v", err)
	}

	payload := insight.Adherence{Habits: []insight.HabitAdherence{}}
	sumExpected, sumActual := 0, 0
	for _, spec := range specs {
		expected := expectedCompletions(spec, windowDays)
		logs, err := tc.Store.ListCompletions(ctx, tc.UserID, store.CompletionFilter{
			ItemID: spec.ItemID,
			From:   &win.Start,
			To:     &win.End,
		})
		if err != nil {
			return failure(start, "query completions: %v", err)
		}
		actual := len(logs)

		// Not clamped: logging a habit more often than planned reads as
		// over 100%.
		rate := 0.0
		if expected > 0 {
			rate = float64(actual) / float64(expected)
		}
		payload.Habits = append(payload.Habits, insight.HabitAdherence{
			Title:     spec.ItemTitle,
			Frequency: spec.Frequency,
			Expected:  expected,
			Actual:    actual,
			Rate:      insight.Round1(rate*100) / 100,
		})
		sumExpected += expected
		sumActual += actual
	}

	if sumExpected > 0 {
		payload.OverallRate = insight.Round1(float64(sumActual)/float64(sumExpected)*100) / 100
	}

	return success(start, insight.FormatAdherence(payload))
}

// expectedCompletions converts a recurrence rule into the number of
// completions expected over a window of calendar days.
func expectedCompletions(spec store.RecurringSpec, windowDays int) int {
	if windowDays <= 0 {
		return 0
	}
	switch spec.Frequency {
	case store.FreqDaily:
		return windowDays
	case store.FreqWeekly:
		return windowDays / 7
	case store.FreqBiweekly:
		return windowDays / 14
	case store.FreqMonthly:
		return windowDays / 30
	case store.FreqCustom:
		if spec.TimesPerWeek != nil && *spec.TimesPerWeek > 0 {
			return windowDays * *spec.TimesPerWeek / 7
		}
		if spec.IntervalDays != nil && *spec.IntervalDays > 0 {
			return windowDays / *spec.IntervalDays
		}
	}
	return 0
}
