package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Postgres implements Store against the product's Postgres database.
type Postgres struct {
	db *sql.DB
}

// Open connects to Postgres and verifies the connection.
func Open(connString string, maxOpenConns int) (*Postgres, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the underlying connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

const itemColumns = `id, user_id, title, COALESCE(description, ''), category_id,
	COALESCE(item_type, ''), COALESCE(priority, 'medium'),
	final_priority_score, urgency_score, importance_score, emotional_weight_score,
	due_date, COALESCE(due_time, ''), status, COALESCE(custom_tags, '{}'),
	is_worry_spiral, COALESCE(spiral_breakdown::text, ''), parent_task_id,
	created_at, updated_at`

// buildItemWhere translates an ItemFilter into a WHERE clause. The first
// placeholder is always the user ID.
func buildItemWhere(userID string, f ItemFilter) (string, []any) {
	where := []string{"user_id = $1"}
	args := []any{userID}

	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if len(f.Categories) > 0 {
		ids := make([]int64, len(f.Categories))
		for i, c := range f.Categories {
			ids[i] = int64(c)
		}
		add("category_id = ANY($%d)", pq.Array(ids))
	}
	if f.ExcludeCategory != 0 {
		add("category_id <> $%d", int(f.ExcludeCategory))
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.ExcludeCompleted {
		where = append(where, "status NOT IN ('completed', 'archived', 'deleted')")
	}
	if f.Priority != "" {
		add("priority = $%d", f.Priority)
	}
	if f.IsWorrySpiral != nil {
		add("is_worry_spiral = $%d", *f.IsWorrySpiral)
	}
	if f.MinEmotionalWeight != nil {
		add("emotional_weight_score >= $%d", *f.MinEmotionalWeight)
	}
	if f.MinPriorityScore != nil {
		add("final_priority_score >= $%d", *f.MinPriorityScore)
	}
	if f.CreatedAfter != nil {
		add("created_at >= $%d", *f.CreatedAfter)
	}
	if f.CreatedBefore != nil {
		add("created_at <= $%d", *f.CreatedBefore)
	}
	if f.UpdatedBefore != nil {
		add("updated_at <= $%d", *f.UpdatedBefore)
	}
	if f.HasDueDate {
		where = append(where, "due_date IS NOT NULL")
	}
	if f.DueBefore != nil {
		add("due_date <= $%d", *f.DueBefore)
	}
	if f.TopLevelOnly {
		where = append(where, "parent_task_id IS NULL")
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	return strings.Join(where, " AND "), args
}

func orderClause(o OrderBy) string {
	switch o {
	case OrderCreatedDesc:
		return "ORDER BY created_at DESC"
	case OrderCreatedAsc:
		return "ORDER BY created_at ASC"
	case OrderUpdatedAsc:
		return "ORDER BY updated_at ASC"
	case OrderPriorityDesc:
		return "ORDER BY final_priority_score DESC NULLS LAST"
	case OrderDueAsc:
		return "ORDER BY due_date ASC"
	default:
		return "ORDER BY created_at DESC"
	}
}

// ListItems returns the user's items matching the filter.
func (p *Postgres) ListItems(ctx context.Context, userID string, f ItemFilter) ([]Item, error) {
	where, args := buildItemWhere(userID, f)
	query := fmt.Sprintf("SELECT %s FROM items WHERE %s %s", itemColumns, where, orderClause(f.OrderBy))
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		var categoryID int
		var tags pq.StringArray
		var parentID sql.NullString
		if err := rows.Scan(
			&it.ID, &it.UserID, &it.Title, &it.Description, &categoryID,
			&it.ItemType, &it.Priority,
			&it.FinalPriorityScore, &it.UrgencyScore, &it.ImportanceScore, &it.EmotionalWeightScore,
			&it.DueDate, &it.DueTime, &it.Status, &tags,
			&it.IsWorrySpiral, &it.SpiralBreakdown, &parentID,
			&it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		cat, err := CategoryFromID(categoryID)
		if err != nil {
			return nil, fmt.Errorf("item %s: %w", it.ID, err)
		}
		it.Category = cat
		it.CustomTags = []string(tags)
		if parentID.Valid {
			it.ParentTaskID = &parentID.String
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountItems returns an exact count of the user's items matching the filter.
func (p *Postgres) CountItems(ctx context.Context, userID string, f ItemFilter) (int, error) {
	where, args := buildItemWhere(userID, f)
	var count int
	err := p.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return count, nil
}

// ListCompletions returns completion log entries matching the filter.
func (p *Postgres) ListCompletions(ctx context.Context, userID string, f CompletionFilter) ([]CompletionLog, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if f.ItemID != "" {
		args = append(args, f.ItemID)
		where = append(where, fmt.Sprintf("item_id = $%d", len(args)))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("completed_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("completed_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT id, user_id, item_id, completed_at,
		mood_before, mood_after, time_to_complete_hours,
		COALESCE(was_procrastinated, FALSE), procrastination_hours
		FROM completion_logs WHERE %s ORDER BY completed_at DESC`,
		strings.Join(where, " AND "))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query completions: %w", err)
	}
	defer rows.Close()

	var logs []CompletionLog
	for rows.Next() {
		var cl CompletionLog
		if err := rows.Scan(
			&cl.ID, &cl.UserID, &cl.ItemID, &cl.CompletedAt,
			&cl.MoodBefore, &cl.MoodAfter, &cl.TimeToCompleteHours,
			&cl.WasProcrastinated, &cl.ProcrastinationHours,
		); err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		logs = append(logs, cl)
	}
	return logs, rows.Err()
}

// ListRecurring returns the user's recurring item specs, joined with the
// item title for display.
func (p *Postgres) ListRecurring(ctx context.Context, userID string, activeOnly bool) ([]RecurringSpec, error) {
	query := `SELECT r.id, r.user_id, r.item_id, COALESCE(i.title, ''),
		r.frequency, r.interval_days, r.times_per_week, r.active, r.created_at
		FROM recurring_items r
		LEFT JOIN items i ON i.id = r.item_id
		WHERE r.user_id = $1`
	if activeOnly {
		query += " AND r.active = TRUE"
	}
	query += " ORDER BY r.created_at"

	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query recurring items: %w", err)
	}
	defer rows.Close()

	var specs []RecurringSpec
	for rows.Next() {
		var rs RecurringSpec
		if err := rows.Scan(
			&rs.ID, &rs.UserID, &rs.ItemID, &rs.ItemTitle,
			&rs.Frequency, &rs.IntervalDays, &rs.TimesPerWeek, &rs.Active, &rs.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan recurring item: %w", err)
		}
		specs = append(specs, rs)
	}
	return specs, rows.Err()
}

// ListMoodSamples returns mood readings recorded within [from, to].
func (p *Postgres) ListMoodSamples(ctx context.Context, userID string, from, to time.Time) ([]MoodSample, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, user_id, category_id,
		stress_level, anxiety_level, recorded_at
		FROM mood_samples
		WHERE user_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		ORDER BY recorded_at`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query mood samples: %w", err)
	}
	defer rows.Close()

	var samples []MoodSample
	for rows.Next() {
		var ms MoodSample
		var categoryID sql.NullInt64
		if err := rows.Scan(&ms.ID, &ms.UserID, &categoryID, &ms.Stress, &ms.Anxiety, &ms.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan mood sample: %w", err)
		}
		if categoryID.Valid {
			if cat, err := CategoryFromID(int(categoryID.Int64)); err == nil {
				ms.Category = &cat
			}
		}
		samples = append(samples, ms)
	}
	return samples, rows.Err()
}

// GetUserProfile fetches the user's base row. A missing row is an error;
// callers must not silently continue with partial data.
func (p *Postgres) GetUserProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var u UserProfile
	err := p.db.QueryRowContext(ctx, `SELECT id, COALESCE(anxiety_type, ''),
		COALESCE(timezone, 'UTC'), COALESCE(total_dumps, 0), COALESCE(total_items, 0), created_at
		FROM users WHERE id = $1`, userID).Scan(
		&u.UserID, &u.AnxietyType, &u.Timezone, &u.TotalDumps, &u.TotalItems, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

// GetPreferences fetches the user's preferences row, or (nil, nil) if the
// user has never saved preferences.
func (p *Postgres) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	var pr Preferences
	err := p.db.QueryRowContext(ctx, `SELECT user_id, COALESCE(daily_summary, FALSE),
		COALESCE(reminder_hour, 9), COALESCE(display_density, 'comfortable')
		FROM user_preferences WHERE user_id = $1`, userID).Scan(
		&pr.UserID, &pr.DailySummary, &pr.ReminderHour, &pr.DisplayDensity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	return &pr, nil
}

// HasSubtasks reports whether the item has at least one child item.
func (p *Postgres) HasSubtasks(ctx context.Context, userID, itemID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM items WHERE user_id = $1 AND parent_task_id = $2 AND status <> 'deleted')`,
		userID, itemID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query subtasks: %w", err)
	}
	return exists, nil
}

// TopCategories returns the user's n most-populated categories.
func (p *Postgres) TopCategories(ctx context.Context, userID string, n int) ([]CategoryCount, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT category_id, COUNT(*)
		FROM items WHERE user_id = $1 AND status <> 'deleted'
		GROUP BY category_id ORDER BY COUNT(*) DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("query top categories: %w", err)
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var id, count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		cat, err := CategoryFromID(id)
		if err != nil {
			return nil, err
		}
		counts = append(counts, CategoryCount{Category: cat, Name: cat.String(), Count: count})
	}
	return counts, rows.Err()
}

// TopTags returns the user's n most-used custom tags across all items.
func (p *Postgres) TopTags(ctx context.Context, userID string, n int) ([]TagCount, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT tag, COUNT(*)
		FROM items, unnest(custom_tags) AS tag
		WHERE user_id = $1 AND status <> 'deleted'
		GROUP BY tag ORDER BY COUNT(*) DESC LIMIT $2`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("query top tags: %w", err)
	}
	defer rows.Close()

	var counts []TagCount
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan tag count: %w", err)
		}
		counts = append(counts, tc)
	}
	return counts, rows.Err()
}

// ActiveDays counts distinct calendar days with item creation since the
// given time.
func (p *Postgres) ActiveDays(ctx context.Context, userID string, since time.Time) (int, error) {
	var days int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT created_at::date) FROM items WHERE user_id = $1 AND created_at >= $2`,
		userID, since).Scan(&days)
	if err != nil {
		return 0, fmt.Errorf("count active days: %w", err)
	}
	return days, nil
}
