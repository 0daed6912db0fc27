package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/unspiral/unspiral/internal/dates"
	"github.com/unspiral/unspiral/internal/insight"
	"github.com/unspiral/unspiral/internal/store"
	"github.com/unspiral/unspiral/internal/validate"
)

// GetUpcomingDeadlines partitions dated, uncompleted items into four
// exclusive urgency buckets relative to the start of today.
func GetUpcomingDeadlines(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	daysAhead := 7
	if v, ok := params["days_ahead"]; ok {
		n, err := validate.Number(v, "days_ahead", 1, 365)
		if err != nil {
			return failure(start, "%v", err)
		}
		daysAhead = int(n)
	}

	includeOverdue := true
	if v, ok := params["include_overdue"]; ok {
		b, err := validate.Boolean(v, "include_overdue")
		if err != nil {
			return failure(start, "%v", err)
		}
		includeOverdue = b
	}

	minScore := 0.0
	if v, ok := params["min_priority_score"]; ok {
		n, err := validate.Number(v, "min_priority_score", 0, 100)
		if err != nil {
			return failure(start, "%v", err)
		}
		minScore = n
	}

	today := dates.StartOfDay(now)
	horizon := dates.EndOfDay(today.AddDate(0, 0, daysAhead))
	items, err := tc.Store.ListItems(ctx, tc.UserID, store.ItemFilter{
		HasDueDate:       true,
		ExcludeCompleted: true,
		DueBefore:        &horizon,
		OrderBy:          store.OrderDueAsc,
	})
	if err != nil {
		return failure(start, "query deadlines: %v", err)
	}

	payload := insight.Deadlines{
		Overdue:  []insight.DeadlineItem{},
		DueToday: []insight.DeadlineItem{},
		Urgent:   []insight.DeadlineItem{},
		Upcoming: []insight.DeadlineItem{},
	}

	for _, it := range items {
		// The score gate only applies when the caller asks for one; items
		// without a score pass an unset gate.
		if minScore > 0 && (it.FinalPriorityScore == nil || *it.FinalPriorityScore < minScore) {
			continue
		}

		due := dates.StartOfDay(*it.DueDate)
		daysOut := dates.CalendarDaysBetween(today, due)
		entry := insight.DeadlineItem{
			Title:         it.Title,
			Category:      it.Category.String(),
			Priority:      it.Priority,
			DueDate:       it.DueDate.Format("2006-01-02"),
			DueLabel:      dueLabel(daysOut),
			PriorityScore: it.FinalPriorityScore,
		}

		switch {
		case daysOut < 0:
			if includeOverdue {
				payload.Overdue = append(payload.Overdue, entry)
			}
		case daysOut == 0:
			payload.DueToday = append(payload.DueToday, entry)
		case daysOut <= 3:
			payload.Urgent = append(payload.Urgent, entry)
		case daysOut <= daysAhead:
			payload.Upcoming = append(payload.Upcoming, entry)
		}
	}

	return success(start, insight.FormatDeadlines(payload))
}

func dueLabel(daysOut int) string {
	switch {
	case daysOut < -1:
		return fmt.Sprintf("%d days overdue", -daysOut)
	case daysOut == -1:
		return "1 day overdue"
	case daysOut == 0:
		return "due today"
	case daysOut == 1:
		return "due tomorrow"
	default:
		return fmt.Sprintf("due in %d days", daysOut)
	}
}

// GetForgottenTasks surfaces pending items untouched past the threshold,
// oldest first, each with an archive-or-break-down suggestion.
func GetForgottenTasks(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	daysUntouched := 14
	if v, ok := params["days_untouched"]; ok {
		n, err := validate.Number(v, "days_untouched", 1, 365)
		if err != nil {
			return failure(start, "%v", err)
		}
		daysUntouched = int(n)
	}

	excludeWorries := true
	if v, ok := params["exclude_worries"]; ok {
		b, err := validate.Boolean(v, "exclude_worries")
		if err != nil {
			return failure(start, "%v", err)
		}
		excludeWorries = b
	}

	cutoff := now.AddDate(0, 0, -daysUntouched)
	filter := store.ItemFilter{
		Status:        store.StatusPending,
		UpdatedBefore: &cutoff,
		OrderBy:       store.OrderUpdatedAsc,
	}
	if excludeWorries {
		// Vault entries are parked on purpose; their age is not neglect.
		filter.ExcludeCategory = store.CategoryWorriesVault
	}

	items, err := tc.Store.ListItems(ctx, tc.UserID, filter)
	if err != nil {
		return failure(start, "query items: %v", err)
	}

	payload := insight.Forgotten{Count: len(items), Tasks: []insight.ForgottenTask{}}
	for _, it := range items {
		idle := dates.DaysBetween(it.UpdatedAt, now)
		suggestion := "break it into a smaller first step"
		if idle > 30 {
			suggestion = "archive it — a month of silence usually means it can wait or go"
		}
		payload.Tasks = append(payload.Tasks, insight.ForgottenTask{
			Title:         it.Title,
			Category:      it.Category.String(),
			DaysUntouched: idle,
			LastTouched:   dates.RelativeLabel(now, it.UpdatedAt),
			Suggestion:    suggestion,
		})
	}

	return success(start, insight.FormatForgotten(payload))
}

var multiActionRe = regexp.MustCompile(`(?i)\s+(?:and then|and|then)\s+|[,;]`)

// SuggestTaskBreakdown proposes subtask steps for high-priority top-level
// items that have none yet.
func SuggestTaskBreakdown(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()

	minScore := 60.0
	if v, ok := params["min_priority_score"]; ok {
		n, err := validate.Number(v, "min_priority_score", 0, 100)
		if err != nil {
			return failure(start, "%v", err)
		}
		minScore = n
	}

	maxResults := 5
	if v, ok := params["max_results"]; ok {
		n, err := validate.Number(v, "max_results", 1, 20)
		if err != nil {
			return failure(start, "%v", err)
		}
		maxResults = int(n)
	}

	// Over-fetch; candidates that already have subtasks are skipped below.
	items, err := tc.Store.ListItems(ctx, tc.UserID, store.ItemFilter{
		Status:           store.StatusPending,
		TopLevelOnly:     true,
		MinPriorityScore: &minScore,
		OrderBy:          store.OrderPriorityDesc,
		Limit:            maxResults * 3,
	})
	if err != nil {
		return failure(start, "query items: %v", err)
	}

	payload := insight.Breakdowns{Candidates: []insight.BreakdownSuggestion{}}
	for _, it := range items {
		if len(payload.Candidates) >= maxResults {
			break
		}
		has, err := tc.Store.HasSubtasks(ctx, tc.UserID, it.ID)
		if err != nil {
			return failure(start, "check subtasks: %v", err)
		}
		if has {
			continue
		}
		score := 0.0
		if it.FinalPriorityScore != nil {
			score = *it.FinalPriorityScore
		}
		steps, rationale := breakdownSteps(it.Title)
		payload.Candidates = append(payload.Candidates, insight.BreakdownSuggestion{
			Title:         it.Title,
			PriorityScore: score,
			Steps:         steps,
			Rationale:     rationale,
		})
	}

	return success(start, insight.FormatBreakdowns(payload))
}

// breakdownSteps derives suggested subtasks from the title's phrasing.
func breakdownSteps(title string) ([]string, string) {
	lower := strings.ToLower(title)

	if parts := splitActions(title); len(parts) > 1 {
		steps := make([]string, 0, len(parts))
		for _, p := range parts {
			steps = append(steps, strings.TrimSpace(p))
		}
		return steps, "This reads like several tasks rolled into one — each piece can be its own win."
	}

	if strings.Contains(lower, "write") || strings.Contains(lower, "create") || strings.Contains(lower, "draft") {
		return []string{
			"Outline the main points",
			"Write a rough first draft",
			"Review and polish",
		}, "Writing tasks get easier when a rough draft is allowed to be rough."
	}

	if strings.Contains(lower, "project") || strings.Contains(lower, "plan") || strings.Contains(lower, "organize") {
		return []string{
			"Define what done looks like",
			"List the pieces involved",
			"Schedule the first piece",
			"Check in after the first piece is done",
		}, "Big projects start moving once the first concrete piece is on the calendar."
	}

	return []string{
		"Identify the smallest first step",
		"Spend 15 minutes on just that step",
		"Reassess what's left",
	}, "A 15-minute start shrinks a task faster than any amount of planning."
}

// splitActions splits a multi-action title on connective words and
// punctuation, keeping only fragments substantial enough to stand alone.
func splitActions(title string) []string {
	parts := multiActionRe.Split(title, -1)
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); len(p) >= 4 {
			out = append(out, p)
		}
	}
	return out
}

// GetPriorityDistribution tallies items per priority tier.
func GetPriorityDistribution(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	includeCompleted := false
	if v, ok := params["include_completed"]; ok {
		b, err := validate.Boolean(v, "include_completed")
		if err != nil {
			return failure(start, "%v", err)
		}
		includeCompleted = b
	}

	filter := store.ItemFilter{}
	if v, ok := params["time_range"]; ok {
		tr, err := validate.TimeRange(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		win := dates.Window(now, tr)
		filter.CreatedAfter = &win.Start
		filter.CreatedBefore = &win.End
	}

	items, err := tc.Store.ListItems(ctx, tc.UserID, filter)
	if err != nil {
		return failure(start, "query items: %v", err)
	}

	counts := map[string]int{}
	total := 0
	for _, it := range items {
		switch it.Status {
		case store.StatusPending:
		case store.StatusCompleted:
			if !includeCompleted {
				continue
			}
		default:
			continue
		}
		counts[it.Priority]++
		total++
	}

	payload := insight.PriorityDistribution{
		Total:       total,
		Buckets:     []insight.PriorityBucket{},
		HighPercent: insight.Percent(counts[store.PriorityHigh], total),
	}
	for _, p := range []string{store.PriorityHigh, store.PriorityMedium, store.PriorityLow} {
		payload.Buckets = append(payload.Buckets, insight.PriorityBucket{
			Priority: p,
			Count:    counts[p],
			Percent:  insight.Percent(counts[p], total),
		})
	}

	return success(start, insight.FormatPriorityDistribution(payload))
}
