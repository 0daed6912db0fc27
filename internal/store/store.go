package store

import (
	"context"
	"time"
)

// OrderBy selects the sort order for item queries.
type OrderBy int

const (
	// OrderDefault leaves ordering to the implementation (created_at desc).
	OrderDefault OrderBy = iota
	// OrderCreatedDesc sorts newest-created first.
	OrderCreatedDesc
	// OrderCreatedAsc sorts oldest-created first.
	OrderCreatedAsc
	// OrderUpdatedAsc sorts stalest first.
	OrderUpdatedAsc
	// OrderPriorityDesc sorts by final_priority_score, highest first.
	OrderPriorityDesc
	// OrderDueAsc sorts by due date, soonest first.
	OrderDueAsc
)

// ItemFilter narrows item queries. Zero values mean "no constraint".
type ItemFilter struct {
	Categories         []Category
	ExcludeCategory    Category // 0 = none
	Status             string
	ExcludeCompleted   bool
	Priority           string
	IsWorrySpiral      *bool
	MinEmotionalWeight *float64
	MinPriorityScore   *float64
	CreatedAfter       *time.Time
	CreatedBefore      *time.Time
	UpdatedBefore      *time.Time
	HasDueDate         bool
	DueBefore          *time.Time
	TopLevelOnly       bool // parent_task_id IS NULL
	Query              string
	OrderBy            OrderBy
	Limit              int
}

// CompletionFilter narrows completion-log queries.
type CompletionFilter struct {
	ItemID string
	From   *time.Time
	To     *time.Time
}

// Store is the read-side query interface over the user's journaling data.
// Implementations must scope every query to the given userID. The store is
// a capability passed into tool contexts, never process-global state;
// connection pooling is the implementation's own concern.
type Store interface {
	ListItems(ctx context.Context, userID string, f ItemFilter) ([]Item, error)
	CountItems(ctx context.Context, userID string, f ItemFilter) (int, error)
	ListCompletions(ctx context.Context, userID string, f CompletionFilter) ([]CompletionLog, error)
	ListRecurring(ctx context.Context, userID string, activeOnly bool) ([]RecurringSpec, error)
	ListMoodSamples(ctx context.Context, userID string, from, to time.Time) ([]MoodSample, error)
	GetUserProfile(ctx context.Context, userID string) (*UserProfile, error)
	// GetPreferences returns (nil, nil) when the user has no preferences row.
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
	HasSubtasks(ctx context.Context, userID, itemID string) (bool, error)
	TopCategories(ctx context.Context, userID string, n int) ([]CategoryCount, error)
	TopTags(ctx context.Context, userID string, n int) ([]TagCount, error)
	// ActiveDays counts distinct calendar days with item creation since the
	// given time.
	ActiveDays(ctx context.Context, userID string, since time.Time) (int, error)
}
