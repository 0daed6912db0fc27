package tools

import (
	"context"
	"strings"
	"time"

	"github.com/unspiral/unspiral/internal/dates"
	"github.com/unspiral/unspiral/internal/insight"
	"github.com/unspiral/unspiral/internal/store"
	"github.com/unspiral/unspiral/internal/validate"
)

// SearchItemsAdvanced runs a filtered item search. Text matching and the
// structural filters happen in the store; tag overlap is applied after
// the fetch because tags are a free-form array.
func SearchItemsAdvanced(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	filter := store.ItemFilter{
		Status:  store.StatusPending,
		OrderBy: store.OrderPriorityDesc,
		Limit:   20,
	}

	query := ""
	if v, ok := params["query"]; ok && v != nil {
		q, err := validate.SearchQuery(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		query = q
		filter.Query = q
	}

	if v, ok := params["categories"]; ok && v != nil {
		cats, err := validate.Array(v, "categories", validate.CategoryID)
		if err != nil {
			return failure(start, "%v", err)
		}
		filter.Categories = cats
	}

	var tags []string
	if v, ok := params["tags"]; ok && v != nil {
		ts, err := validate.Array(v, "tags", validate.Tag)
		if err != nil {
			return failure(start, "%v", err)
		}
		tags = ts
	}

	if v, ok := params["priority"]; ok && v != nil {
		p, err := validate.Priority(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		filter.Priority = p
	}

	if v, ok := params["status"]; ok && v != nil {
		s, err := validate.Status(v)
		if err != nil {
			return failure(start, "%v", err)
		}
		filter.Status = s
	}

	if v, ok := params["limit"]; ok {
		n, err := validate.Number(v, "limit", 1, 100)
		if err != nil {
			return failure(start, "%v", err)
		}
		filter.Limit = int(n)
	}

	items, err := tc.Store.ListItems(ctx, tc.UserID, filter)
	if err != nil {
		return failure(start, "search items: %v", err)
	}

	if len(tags) > 0 {
		items = filterByTags(items, tags)
	}

	payload := insight.SearchResults{Count: len(items), Results: []insight.SearchHit{}}
	for _, it := range items {
		payload.Results = append(payload.Results, insight.SearchHit{
			Title:         it.Title,
			Category:      it.Category.String(),
			Priority:      it.Priority,
			Status:        it.Status,
			Tags:          it.CustomTags,
			PriorityScore: it.FinalPriorityScore,
			CreatedLabel:  dates.RelativeLabel(now, it.CreatedAt),
		})
	}

	return success(start, insight.FormatSearchResults(payload, query))
}

// filterByTags keeps items whose tags overlap the requested set,
// case-insensitively.
func filterByTags(items []store.Item, tags []string) []store.Item {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[strings.ToLower(t)] = true
	}
	var out []store.Item
	for _, it := range items {
		for _, t := range it.CustomTags {
			if want[strings.ToLower(t)] {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// GetUserContext assembles the profile, preferences, item counts,
// activity, and top categories/tags into one payload. A missing user row
// is a hard failure; missing preferences are not.
func GetUserContext(ctx context.Context, tc Context, params map[string]any) Result {
	start := time.Now()
	now := tc.now()

	profile, err := tc.Store.GetUserProfile(ctx, tc.UserID)
	if err != nil {
		return failure(start, "load user profile: %v", err)
	}

	prefs, err := tc.Store.GetPreferences(ctx, tc.UserID)
	if err != nil {
		return failure(start, "load preferences: %v", err)
	}

	total, err := tc.Store.CountItems(ctx, tc.UserID, store.ItemFilter{})
	if err != nil {
		return failure(start, "count items: %v", err)
	}
	completed, err := tc.Store.CountItems(ctx, tc.UserID, store.ItemFilter{Status: store.StatusCompleted})
	if err != nil {
		return failure(start, "count completed items: %v", err)
	}
	pending, err := tc.Store.CountItems(ctx, tc.UserID, store.ItemFilter{Status: store.StatusPending})
	if err != nil {
		return failure(start, "count pending items: %v", err)
	}
	spiral := true
	spirals, err := tc.Store.CountItems(ctx, tc.UserID, store.ItemFilter{IsWorrySpiral: &spiral})
	if err != nil {
		return failure(start, "count worry spirals: %v", err)
	}

	activeDays, err := tc.Store.ActiveDays(ctx, tc.UserID, now.AddDate(0, 0, -30))
	if err != nil {
		return failure(start, "count active days: %v", err)
	}

	topCategories, err := tc.Store.TopCategories(ctx, tc.UserID, 3)
	if err != nil {
		return failure(start, "top categories: %v", err)
	}
	topTags, err := tc.Store.TopTags(ctx, tc.UserID, 5)
	if err != nil {
		return failure(start, "top tags: %v", err)
	}

	payload := insight.UserContext{
		AnxietyType:    profile.AnxietyType,
		Timezone:       profile.Timezone,
		TotalDumps:     profile.TotalDumps,
		TotalItems:     total,
		CompletedItems: completed,
		PendingItems:   pending,
		WorrySpirals:   spirals,
		ActiveDays:     activeDays,
		TopCategories:  topCategories,
		TopTags:        topTags,
		Preferences:    prefs,
	}

	return success(start, insight.FormatUserContext(payload))
}
