package insight

import (
	"strings"
	"testing"
)

func TestRound1(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{1.24, 1.2},
		{1.25, 1.3},
		{-1.25, -1.2},
		{0, 0},
		{9.99, 10},
	}
	for _, tt := range tests {
		if got := Round1(tt.in); got != tt.want {
			t.Errorf("Round1(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(1, 3); got != 33.3 {
		t.Errorf("Percent(1,3) = %v", got)
	}
	if got := Percent(5, 0); got != 0 {
		t.Errorf("Percent with zero total = %v, want 0", got)
	}
}

func TestFormatCompletionPatternsTiers(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		total    int
		fragment string
	}{
		{"empty", 0, 0, "nothing to measure"},
		{"strong at boundary", 0.7, 10, "strong follow-through"},
		{"steady at boundary", 0.4, 10, "steady progress"},
		{"low", 0.39, 10, "says nothing about you"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FormatCompletionPatterns(CompletionPatterns{
				TotalItems:     tt.total,
				CompletedItems: int(tt.rate * float64(tt.total)),
				CompletionRate: tt.rate,
			})
			if !strings.Contains(p.Summary, tt.fragment) {
				t.Errorf("summary %q should contain %q", p.Summary, tt.fragment)
			}
		})
	}
}

func TestFormatAdherenceTiers(t *testing.T) {
	habit := []HabitAdherence{{Title: "meditate", Frequency: "daily", Expected: 30, Actual: 24, Rate: 0.8}}

	tests := []struct {
		name     string
		rate     float64
		habits   []HabitAdherence
		fragment string
	}{
		{"no habits", 0, nil, "no adherence to measure"},
		{"consistent at boundary", 0.8, habit, "real consistency"},
		{"half at boundary", 0.5, habit, "foundation, not a failure"},
		{"rough", 0.49, habit, "Rough stretches happen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := FormatAdherence(Adherence{OverallRate: tt.rate, Habits: tt.habits})
			if !strings.Contains(a.Summary, tt.fragment) {
				t.Errorf("summary %q should contain %q", a.Summary, tt.fragment)
			}
		})
	}
}

func TestAdherenceRateNotClamped(t *testing.T) {
	// Completing more often than planned reads as over 100%; the payload
	// must carry it through untouched.
	a := FormatAdherence(Adherence{
		OverallRate: 1.5,
		Habits:      []HabitAdherence{{Title: "walk", Expected: 4, Actual: 6, Rate: 1.5}},
	})
	if a.OverallRate != 1.5 {
		t.Errorf("OverallRate = %v, want 1.5", a.OverallRate)
	}
	if !strings.Contains(a.Summary, "150%") {
		t.Errorf("summary should carry the over-100 rate: %q", a.Summary)
	}
}

func TestFormatProcrastinationTiers(t *testing.T) {
	tests := []struct {
		count    int
		fragment string
	}{
		{0, "your list is moving"},
		{3, "bigger than it looks"},
		{4, "a lot to carry"},
	}
	for _, tt := range tests {
		p := FormatProcrastination(Procrastination{ThresholdHrs: 48, TotalStalled: tt.count, OldestPending: 12})
		if !strings.Contains(p.Summary, tt.fragment) {
			t.Errorf("count %d: summary %q should contain %q", tt.count, p.Summary, tt.fragment)
		}
	}
}

func TestFormatWorrySpiralsTiers(t *testing.T) {
	tests := []struct {
		count    int
		fragment string
	}{
		{0, "No worry spirals"},
		{2, "loosening their grip"},
		{3, "heavy stretch"},
	}
	for _, tt := range tests {
		w := FormatWorrySpirals(WorrySpirals{Count: tt.count})
		if !strings.Contains(w.Summary, tt.fragment) {
			t.Errorf("count %d: summary %q should contain %q", tt.count, w.Summary, tt.fragment)
		}
	}
}

func TestFormatMoodTimelineTiers(t *testing.T) {
	bucket := []MoodBucket{{Bucket: "2024-01-15", MoodScore: 5}}

	tests := []struct {
		name     string
		avg      float64
		timeline []MoodBucket
		fragment string
	}{
		{"no data", 0, nil, "no timeline yet"},
		{"good at boundary", 7, bucket, "genuinely good stretch"},
		{"mixed at boundary", 4, bucket, "mixed stretch"},
		{"hard", 3.9, bucket, "that's real"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := FormatMoodTimeline(MoodTimeline{AverageMood: tt.avg, Timeline: tt.timeline})
			if !strings.Contains(m.Summary, tt.fragment) {
				t.Errorf("summary %q should contain %q", m.Summary, tt.fragment)
			}
		})
	}
}

func TestFormatEmotionalTriggersZeroMatch(t *testing.T) {
	e := FormatEmotionalTriggers(EmotionalTriggers{Threshold: 50})
	if !strings.Contains(e.Summary, "no standout triggers") {
		t.Errorf("zero-match summary should be explicit, got %q", e.Summary)
	}

	e = FormatEmotionalTriggers(EmotionalTriggers{
		Threshold:     50,
		TotalMatching: 4,
		ByCategory:    []TriggerGroup{{Name: "Health", Count: 3, AvgWeight: 72}},
	})
	if !strings.Contains(e.Summary, "Health") {
		t.Errorf("summary should name the top category, got %q", e.Summary)
	}
}

func TestFormatDeadlinesSummary(t *testing.T) {
	item := DeadlineItem{Title: "taxes", DueDate: "2024-01-15"}

	empty := FormatDeadlines(Deadlines{})
	if !strings.Contains(empty.Summary, "breathing room") {
		t.Errorf("empty summary = %q", empty.Summary)
	}

	overdue := FormatDeadlines(Deadlines{Overdue: []DeadlineItem{item}, DueToday: []DeadlineItem{item}})
	if !strings.Contains(overdue.Summary, "Overdue doesn't mean failed") {
		t.Errorf("overdue summary = %q", overdue.Summary)
	}

	today := FormatDeadlines(Deadlines{DueToday: []DeadlineItem{item}})
	if !strings.Contains(today.Summary, "due today") {
		t.Errorf("due-today summary = %q", today.Summary)
	}

	later := FormatDeadlines(Deadlines{Upcoming: []DeadlineItem{item}})
	if !strings.Contains(later.Summary, "time to plan") {
		t.Errorf("upcoming-only summary = %q", later.Summary)
	}
}

func TestFormatPriorityDistributionTiers(t *testing.T) {
	tests := []struct {
		name     string
		high     float64
		total    int
		fragment string
	}{
		{"empty", 0, 0, "nothing to triage"},
		{"everything urgent", 61, 10, "nothing can be"},
		{"balanced", 19, 10, "looks balanced"},
		{"middle", 40, 10, "workable mix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FormatPriorityDistribution(PriorityDistribution{Total: tt.total, HighPercent: tt.high})
			if !strings.Contains(p.Summary, tt.fragment) {
				t.Errorf("summary %q should contain %q", p.Summary, tt.fragment)
			}
		})
	}
}

func TestFormatSearchResults(t *testing.T) {
	none := FormatSearchResults(SearchResults{}, "dentist")
	if !strings.Contains(none.Summary, `"dentist"`) {
		t.Errorf("no-match summary should echo the query, got %q", none.Summary)
	}

	some := FormatSearchResults(SearchResults{Count: 2}, "")
	if !strings.Contains(some.Summary, "Found 2 items") {
		t.Errorf("summary = %q", some.Summary)
	}
}
