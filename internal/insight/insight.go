// Package insight turns aggregated query results into stable, structured
// payloads with a natural-language summary. Summaries branch
// deterministically on numeric thresholds; the three-tier framing per
// metric is part of the contract (completion ≥0.7/≥0.4, adherence
// ≥0.8/≥0.5, high-priority share >60%/<20%). The voice validates what the
// user is carrying — it never dismisses or scolds. Every formatter handles
// the empty case with an explicit message rather than a bare empty
// collection.
package insight

import (
	"fmt"
	"math"

	"github.com/unspiral/unspiral/internal/store"
)

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Percent returns part/total as a percentage rounded to one decimal,
// and 0 when total is 0.
func Percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round1(float64(part) / float64(total) * 100)
}

// CategoryBreakdown is a per-category completion tally.
type CategoryBreakdown struct {
	Category  string  `json:"category"`
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Rate      float64 `json:"rate"`
}

// MoodCorrelation summarizes mood readings around completions.
type MoodCorrelation struct {
	AvgMoodBefore float64 `json:"avg_mood_before"`
	AvgMoodAfter  float64 `json:"avg_mood_after"`
	AvgMoodLift   float64 `json:"avg_mood_lift"`
	Samples       int     `json:"samples"`
}

// CompletionPatterns is the payload for analyze_completion_patterns.
type CompletionPatterns struct {
	Summary            string              `json:"summary"`
	TotalItems         int                 `json:"total_items"`
	CompletedItems     int                 `json:"completed_items"`
	CompletionRate     float64             `json:"completion_rate"`
	AvgCompletionHours *float64            `json:"avg_completion_hours,omitempty"`
	ByCategory         []CategoryBreakdown `json:"by_category,omitempty"`
	MoodCorrelation    *MoodCorrelation    `json:"mood_correlation,omitempty"`
}

// FormatCompletionPatterns fills in the summary for completion stats.
func FormatCompletionPatterns(p CompletionPatterns) CompletionPatterns {
	switch {
	case p.TotalItems == 0:
		p.Summary = "No items were created in this window, so there's nothing to measure yet — that's okay, the data will build up as you keep dumping."
	case p.CompletionRate >= 0.7:
		p.Summary = fmt.Sprintf("You completed %d of %d items (%.0f%%) — that's a strong follow-through rate. Whatever you're doing is working.",
			p.CompletedItems, p.TotalItems, p.CompletionRate*100)
	case p.CompletionRate >= 0.4:
		p.Summary = fmt.Sprintf("You completed %d of %d items (%.0f%%). That's steady progress — not everything needs to get done at once.",
			p.CompletedItems, p.TotalItems, p.CompletionRate*100)
	default:
		p.Summary = fmt.Sprintf("You completed %d of %d items (%.0f%%). A lower rate usually means the list grew faster than anyone could keep up with — it says nothing about you.",
			p.CompletedItems, p.TotalItems, p.CompletionRate*100)
	}
	return p
}

// StalledTask is a pending item that has sat past the procrastination
// threshold.
type StalledTask struct {
	Title        string `json:"title"`
	Category     string `json:"category"`
	DaysPending  int    `json:"days_pending"`
	CreatedLabel string `json:"created"`
}

// CategoryDelay aggregates stalled items by category.
type CategoryDelay struct {
	Category     string  `json:"category"`
	Count        int     `json:"count"`
	AvgDelayDays float64 `json:"avg_delay_days"`
}

// Procrastination is the payload for analyze_procrastination_trends.
type Procrastination struct {
	Summary       string          `json:"summary"`
	ThresholdHrs  float64         `json:"threshold_hours"`
	TotalStalled  int             `json:"total_stalled"`
	Tasks         []StalledTask   `json:"tasks"`
	ByCategory    []CategoryDelay `json:"by_category,omitempty"`
	OldestPending int             `json:"oldest_pending_days"`
}

// FormatProcrastination fills in the summary for procrastination stats.
func FormatProcrastination(p Procrastination) Procrastination {
	switch {
	case p.TotalStalled == 0:
		p.Summary = fmt.Sprintf("Nothing has been sitting for more than %.0f hours — your list is moving. Nice.", p.ThresholdHrs)
	case p.TotalStalled <= 3:
		p.Summary = fmt.Sprintf("%d items have been waiting a while. Often a stalled task is just one that's bigger than it looks — breaking it down can help.", p.TotalStalled)
	default:
		p.Summary = fmt.Sprintf("%d items have been waiting, the oldest for %d days. That's a lot to carry — it might be worth picking just one to unstick, or archiving what no longer matters.",
			p.TotalStalled, p.OldestPending)
	}
	return p
}

// HabitAdherence compares expected and actual completions for a
// recurring item.
type HabitAdherence struct {
	Title     string  `json:"title"`
	Frequency string  `json:"frequency"`
	Expected  int     `json:"expected_completions"`
	Actual    int     `json:"actual_completions"`
	Rate      float64 `json:"adherence_rate"`
}

// Adherence is the payload for analyze_recurring_adherence.
// Rates are not clamped: completing more often than planned reads as
// over 100%.
type Adherence struct {
	Summary     string           `json:"summary"`
	OverallRate float64          `json:"overall_adherence_rate"`
	Habits      []HabitAdherence `json:"habits"`
}

// FormatAdherence fills in the summary for recurring adherence stats.
func FormatAdherence(a Adherence) Adherence {
	switch {
	case len(a.Habits) == 0:
		a.Summary = "You don't have any active recurring habits tracked yet, so there's no adherence to measure."
	case a.OverallRate >= 0.8:
		a.Summary = fmt.Sprintf("You're keeping up with your habits %.0f%% of the time — that's real consistency.", a.OverallRate*100)
	case a.OverallRate >= 0.5:
		a.Summary = fmt.Sprintf("You're hitting your habits about %.0f%% of the time. Half-or-better is a foundation, not a failure.", a.OverallRate*100)
	default:
		a.Summary = fmt.Sprintf("Habit adherence is around %.0f%% right now. Rough stretches happen — it may help to shrink a habit until it fits the week you're actually having.", a.OverallRate*100)
	}
	return a
}

// Spiral is one parsed worry spiral.
type Spiral struct {
	Title        string   `json:"title"`
	Category     string   `json:"category"`
	Steps        []string `json:"steps"`
	CreatedLabel string   `json:"created"`
}

// WorrySpirals is the payload for analyze_worry_spirals.
type WorrySpirals struct {
	Summary        string   `json:"summary"`
	Count          int      `json:"count"`
	Spirals        []Spiral `json:"spirals"`
	CommonTriggers []string `json:"common_triggers"`
}

// FormatWorrySpirals fills in the summary for worry-spiral stats.
func FormatWorrySpirals(w WorrySpirals) WorrySpirals {
	switch {
	case w.Count == 0:
		w.Summary = "No worry spirals were recorded in this window. If your mind has been quieter lately, that's worth noticing."
	case w.Count <= 2:
		w.Summary = fmt.Sprintf("%d worry spirals showed up in this window. Naming them is already a way of loosening their grip.", w.Count)
	default:
		w.Summary = fmt.Sprintf("%d worry spirals showed up in this window — that's a heavy stretch. The recurring threads below might point at what actually needs attention.", w.Count)
	}
	return w
}

// MoodBucket is one timeline bucket of mood readings.
type MoodBucket struct {
	Bucket      string  `json:"bucket"`
	MoodScore   float64 `json:"mood_score"`
	AvgStress   float64 `json:"avg_stress"`
	AvgAnxiety  float64 `json:"avg_anxiety"`
	Samples     int     `json:"samples"`
	Completions int     `json:"completions"`
	Spirals     int     `json:"spirals"`
}

// MoodTimeline is the payload for get_mood_timeline.
type MoodTimeline struct {
	Summary     string       `json:"summary"`
	AverageMood float64      `json:"average_mood"`
	Timeline    []MoodBucket `json:"timeline"`
	BestDays    []MoodBucket `json:"best_days"`
	ToughDays   []MoodBucket `json:"tough_days"`
}

// FormatMoodTimeline fills in the summary for a mood timeline.
func FormatMoodTimeline(m MoodTimeline) MoodTimeline {
	switch {
	case len(m.Timeline) == 0:
		m.Summary = "No mood readings were recorded in this window, so there's no timeline yet. A quick check-in now and then is enough to start one."
	case m.AverageMood >= 7:
		m.Summary = fmt.Sprintf("Your average mood was %.1f/10 — a genuinely good stretch.", m.AverageMood)
	case m.AverageMood >= 4:
		m.Summary = fmt.Sprintf("Your average mood was %.1f/10 — a mixed stretch, with better and harder days mapped below.", m.AverageMood)
	default:
		m.Summary = fmt.Sprintf("Your average mood was %.1f/10 — this window was hard, and that's real. The pattern below might show what made certain days heavier.", m.AverageMood)
	}
	return m
}

// TriggerGroup aggregates emotionally heavy items by category or tag.
type TriggerGroup struct {
	Name        string  `json:"name"`
	Count       int     `json:"count"`
	AvgWeight   float64 `json:"avg_weight"`
	SpiralCount int     `json:"spiral_count"`
	SpiralRate  float64 `json:"spiral_rate"`
}

// EmotionalTriggers is the payload for identify_emotional_triggers.
type EmotionalTriggers struct {
	Summary       string         `json:"summary"`
	Threshold     float64        `json:"min_emotional_weight"`
	TotalMatching int            `json:"total_matching"`
	ByCategory    []TriggerGroup `json:"by_category"`
	ByTag         []TriggerGroup `json:"by_tag"`
}

// FormatEmotionalTriggers fills in the summary for trigger stats.
func FormatEmotionalTriggers(e EmotionalTriggers) EmotionalTriggers {
	switch {
	case e.TotalMatching == 0:
		e.Summary = fmt.Sprintf("Nothing in this window carried an emotional weight of %.0f or more — no standout triggers right now.", e.Threshold)
	case len(e.ByCategory) > 0:
		e.Summary = fmt.Sprintf("%d items carried significant emotional weight, and %q comes up most. Knowing where the heat concentrates is the first step to handling it gently.",
			e.TotalMatching, e.ByCategory[0].Name)
	default:
		e.Summary = fmt.Sprintf("%d items carried significant emotional weight in this window.", e.TotalMatching)
	}
	return e
}

// DeadlineItem is one item with a due date, labeled for display.
type DeadlineItem struct {
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Priority      string   `json:"priority"`
	DueDate       string   `json:"due_date"`
	DueLabel      string   `json:"due_label"`
	PriorityScore *float64 `json:"priority_score,omitempty"`
}

// Deadlines is the payload for get_upcoming_deadlines. Every matching item
// lands in exactly one bucket.
type Deadlines struct {
	Summary  string         `json:"summary"`
	Overdue  []DeadlineItem `json:"overdue"`
	DueToday []DeadlineItem `json:"due_today"`
	Urgent   []DeadlineItem `json:"urgent"`
	Upcoming []DeadlineItem `json:"upcoming"`
}

// FormatDeadlines fills in the time-aware summary for deadline buckets.
func FormatDeadlines(d Deadlines) Deadlines {
	total := len(d.Overdue) + len(d.DueToday) + len(d.Urgent) + len(d.Upcoming)
	switch {
	case total == 0:
		d.Summary = "Nothing on your plate has a deadline in this window — a rare bit of breathing room."
	case len(d.Overdue) > 0:
		d.Summary = fmt.Sprintf("%d items are past due, %d are due today, and %d more are coming up in the next few days. Overdue doesn't mean failed — pick the one that matters most and let the rest wait their turn.",
			len(d.Overdue), len(d.DueToday), len(d.Urgent)+len(d.Upcoming))
	case len(d.DueToday) > 0:
		d.Summary = fmt.Sprintf("%d items are due today and %d more are on the horizon. Today's list is the only one that needs you right now.",
			len(d.DueToday), len(d.Urgent)+len(d.Upcoming))
	default:
		d.Summary = fmt.Sprintf("Nothing is due today — %d items are coming up later in the window, so there's time to plan.", total)
	}
	return d
}

// ForgottenTask is a pending item that hasn't been touched in a while.
type ForgottenTask struct {
	Title         string `json:"title"`
	Category      string `json:"category"`
	DaysUntouched int    `json:"days_untouched"`
	LastTouched   string `json:"last_touched"`
	Suggestion    string `json:"suggestion"` // archive or break down
}

// Forgotten is the payload for get_forgotten_tasks.
type Forgotten struct {
	Summary string          `json:"summary"`
	Count   int             `json:"count"`
	Tasks   []ForgottenTask `json:"tasks"`
}

// FormatForgotten fills in the summary for forgotten-task stats.
func FormatForgotten(f Forgotten) Forgotten {
	switch {
	case f.Count == 0:
		f.Summary = "Nothing on your list has gone quiet — everything pending has been touched recently."
	case f.Count <= 3:
		f.Summary = fmt.Sprintf("%d tasks have gone quiet. Sometimes that means they weren't important — archiving is allowed.", f.Count)
	default:
		f.Summary = fmt.Sprintf("%d tasks have gone quiet, the oldest untouched for %d days. A quick pass to archive or shrink them could lighten the list without doing any of them.",
			f.Count, f.Tasks[0].DaysUntouched)
	}
	return f
}

// BreakdownSuggestion proposes subtask steps for a heavy top-level item.
type BreakdownSuggestion struct {
	Title         string   `json:"title"`
	PriorityScore float64  `json:"priority_score"`
	Steps         []string `json:"steps"`
	Rationale     string   `json:"rationale"`
}

// Breakdowns is the payload for suggest_task_breakdown.
type Breakdowns struct {
	Summary    string                `json:"summary"`
	Candidates []BreakdownSuggestion `json:"candidates"`
}

// FormatBreakdowns fills in the summary for breakdown suggestions.
func FormatBreakdowns(b Breakdowns) Breakdowns {
	switch {
	case len(b.Candidates) == 0:
		b.Summary = "No high-priority tasks are waiting to be broken down right now — either they're already split into steps or the heavy ones are moving."
	case len(b.Candidates) == 1:
		b.Summary = fmt.Sprintf("%q is carrying a lot of weight as a single task. The steps below might make it feel startable.", b.Candidates[0].Title)
	default:
		b.Summary = fmt.Sprintf("%d high-priority tasks look heavy enough to split. Smaller steps aren't cheating — they're how big things actually get done.", len(b.Candidates))
	}
	return b
}

// PriorityBucket is one priority tier's tally.
type PriorityBucket struct {
	Priority string  `json:"priority"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
}

// PriorityDistribution is the payload for get_priority_distribution.
type PriorityDistribution struct {
	Summary     string           `json:"summary"`
	Total       int              `json:"total"`
	Buckets     []PriorityBucket `json:"buckets"`
	HighPercent float64          `json:"high_percent"`
}

// FormatPriorityDistribution fills in the summary for priority stats.
// The tone branches on the high-priority share: above 60% everything
// feels urgent, below 20% the load is balanced.
func FormatPriorityDistribution(p PriorityDistribution) PriorityDistribution {
	switch {
	case p.Total == 0:
		p.Summary = "There are no items to distribute yet — nothing on the list means nothing to triage."
	case p.HighPercent > 60:
		p.Summary = fmt.Sprintf("%.0f%% of your items are marked high priority. When everything is urgent, nothing can be — it might help to ask which two or three are truly time-sensitive.", p.HighPercent)
	case p.HighPercent < 20:
		p.Summary = fmt.Sprintf("Only %.0f%% of your items are high priority — your load looks balanced, with room to breathe between the urgent things.", p.HighPercent)
	default:
		p.Summary = fmt.Sprintf("About %.0f%% of your items are high priority — a workable mix of urgent and steady work.", p.HighPercent)
	}
	return p
}

// SearchHit is one matching item from search_items_advanced.
type SearchHit struct {
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Priority      string   `json:"priority"`
	Status        string   `json:"status"`
	Tags          []string `json:"tags,omitempty"`
	PriorityScore *float64 `json:"priority_score,omitempty"`
	CreatedLabel  string   `json:"created"`
}

// SearchResults is the payload for search_items_advanced.
type SearchResults struct {
	Summary string      `json:"summary"`
	Count   int         `json:"count"`
	Results []SearchHit `json:"results"`
}

// FormatSearchResults fills in the summary for search results.
func FormatSearchResults(s SearchResults, query string) SearchResults {
	switch {
	case s.Count == 0 && query != "":
		s.Summary = fmt.Sprintf("Nothing matched %q with those filters — it may be worded differently in your dumps, or filtered out by status.", query)
	case s.Count == 0:
		s.Summary = "Nothing matched those filters."
	case query != "":
		s.Summary = fmt.Sprintf("Found %d items matching %q, highest priority first.", s.Count, query)
	default:
		s.Summary = fmt.Sprintf("Found %d items matching those filters, highest priority first.", s.Count)
	}
	return s
}

// UserContext is the payload for get_user_context.
type UserContext struct {
	Summary        string                `json:"summary"`
	AnxietyType    string                `json:"anxiety_type,omitempty"`
	Timezone       string                `json:"timezone"`
	TotalDumps     int                   `json:"total_dumps"`
	TotalItems     int                   `json:"total_items"`
	CompletedItems int                   `json:"completed_items"`
	PendingItems   int                   `json:"pending_items"`
	WorrySpirals   int                   `json:"worry_spirals"`
	ActiveDays     int                   `json:"active_days_last_30"`
	TopCategories  []store.CategoryCount `json:"top_categories"`
	TopTags        []store.TagCount      `json:"top_tags"`
	Preferences    *store.Preferences    `json:"preferences,omitempty"`
}

// FormatUserContext fills in the summary for the assembled profile.
func FormatUserContext(u UserContext) UserContext {
	switch {
	case u.TotalItems == 0:
		u.Summary = "This account is just getting started — no items yet, so there's a clean slate to build from."
	case u.ActiveDays >= 20:
		u.Summary = fmt.Sprintf("An active month: %d days of journaling in the last 30, %d items total with %d completed.",
			u.ActiveDays, u.TotalItems, u.CompletedItems)
	default:
		u.Summary = fmt.Sprintf("%d items captured so far (%d completed, %d pending), with %d active days in the last month.",
			u.TotalItems, u.CompletedItems, u.PendingItems, u.ActiveDays)
	}
	return u
}
