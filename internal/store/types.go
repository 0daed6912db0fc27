// Package store defines the user-data model and the query interface the
// insight tools run against. The extraction pipeline owns the writes;
// this service only reads, always scoped to a single user.
package store

import (
	"fmt"
	"time"
)

// Category is one of the seven fixed, pre-seeded item categories.
// Categories are never created dynamically; the mapping below is the
// single canonical name↔ID table, validated once at the data-access
// boundary so downstream code switches on the enum.
type Category int

const (
	CategoryTasks Category = iota + 1
	CategoryIdeas
	CategoryErrands
	CategoryHealth
	CategoryRelationships
	CategoryWorriesVault
	CategoryRecurring
)

// categoryNames maps enum values to their canonical display names.
var categoryNames = map[Category]string{
	CategoryTasks:         "Tasks",
	CategoryIdeas:         "Ideas",
	CategoryErrands:       "Errands",
	CategoryHealth:        "Health",
	CategoryRelationships: "Relationships",
	CategoryWorriesVault:  "Worries Vault",
	CategoryRecurring:     "Recurring",
}

// String returns the canonical category name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Valid reports whether c is one of the seven seeded categories.
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

// CategoryFromID converts a numeric category ID into the enum.
func CategoryFromID(id int) (Category, error) {
	c := Category(id)
	if !c.Valid() {
		return 0, fmt.Errorf("category_id must be an integer between 1 and 7 (got %d)", id)
	}
	return c, nil
}

// CategoryFromName converts a canonical category name into the enum.
func CategoryFromName(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category name %q", name)
}

// Item statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusArchived  = "archived"
	StatusDeleted   = "deleted"
)

// Item priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Item is a single categorized actionable unit extracted from a voice dump.
// Every Item belongs to exactly one user and one category.
type Item struct {
	ID                   string
	UserID               string
	Title                string
	Description          string
	Category             Category
	ItemType             string
	Priority             string // low, medium, high
	FinalPriorityScore   *float64
	UrgencyScore         *float64
	ImportanceScore      *float64
	EmotionalWeightScore *float64
	DueDate              *time.Time
	DueTime              string
	Status               string
	CustomTags           []string
	IsWorrySpiral        bool
	SpiralBreakdown      string // raw JSON chain-of-thought; may be empty or malformed
	ParentTaskID         *string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CompletionLog records a completion event for an Item. One Item has at
// most one completion log under normal flow; re-completion is not modeled.
type CompletionLog struct {
	ID                   string
	UserID               string
	ItemID               string
	CompletedAt          time.Time
	MoodBefore           *float64
	MoodAfter            *float64
	TimeToCompleteHours  *float64
	WasProcrastinated    bool
	ProcrastinationHours *float64
}

// Recurring frequencies.
const (
	FreqDaily    = "daily"
	FreqWeekly   = "weekly"
	FreqBiweekly = "biweekly"
	FreqMonthly  = "monthly"
	FreqCustom   = "custom"
)

// RecurringSpec decorates an Item with a repetition rule, used to compute
// expected-vs-actual adherence.
type RecurringSpec struct {
	ID           string
	UserID       string
	ItemID       string
	ItemTitle    string
	Frequency    string // daily, weekly, biweekly, monthly, custom
	IntervalDays *int   // for custom frequency
	TimesPerWeek *int   // for custom frequency
	Active       bool
	CreatedAt    time.Time
}

// MoodSample is a point-in-time stress/anxiety reading on a 0–10 scale.
type MoodSample struct {
	ID         string
	UserID     string
	Category   *Category
	Stress     float64
	Anxiety    float64
	RecordedAt time.Time
}

// UserProfile holds aggregate statistics and settings for a user.
// Read-only from this service's perspective.
type UserProfile struct {
	UserID      string
	AnxietyType string
	Timezone    string
	TotalDumps  int
	TotalItems  int
	CreatedAt   time.Time
}

// Preferences holds per-user notification and display settings.
type Preferences struct {
	UserID         string
	DailySummary   bool
	ReminderHour   int
	DisplayDensity string
}

// CategoryCount is a per-category item tally.
type CategoryCount struct {
	Category Category `json:"category_id"`
	Name     string   `json:"category"`
	Count    int      `json:"count"`
}

// TagCount is a per-tag frequency tally.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}
