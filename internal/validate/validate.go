// Package validate sanitizes tool parameters before any query executes.
// Parameters arrive as untrusted JSON-decoded values from the model; each
// validator either returns a narrowed, typed value or an error naming the
// parameter and its allowed domain. All validators are pure and
// synchronous. Callers convert failures into tool results — validation
// errors never cross the tool boundary as exceptions.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/unspiral/unspiral/internal/dates"
	"github.com/unspiral/unspiral/internal/store"
)

// MaxSearchQueryLen bounds search input length.
const MaxSearchQueryLen = 500

// TimeRange validates a time_range parameter.
func TimeRange(v any) (dates.TimeRange, error) {
	s, ok := v.(string)
	if ok {
		for _, r := range dates.TimeRanges {
			if dates.TimeRange(s) == r {
				return r, nil
			}
		}
	}
	return "", fmt.Errorf("time_range must be one of: today, week, month, quarter, year, all (got %v)", v)
}

// Granularity validates a granularity parameter.
func Granularity(v any) (dates.Granularity, error) {
	s, ok := v.(string)
	if ok {
		for _, g := range dates.Granularities {
			if dates.Granularity(s) == g {
				return g, nil
			}
		}
	}
	return "", fmt.Errorf("granularity must be one of: hourly, daily, weekly (got %v)", v)
}

// CategoryID coerces and validates a category_id parameter against the
// seven fixed categories.
func CategoryID(v any) (store.Category, error) {
	n, err := Number(v, "category_id", 1, 7)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, fmt.Errorf("category_id must be an integer between 1 and 7 (got %v)", v)
	}
	return store.CategoryFromID(int(n))
}

// Priority validates a priority parameter.
func Priority(v any) (string, error) {
	s, ok := v.(string)
	if ok {
		switch s {
		case store.PriorityLow, store.PriorityMedium, store.PriorityHigh:
			return s, nil
		}
	}
	return "", fmt.Errorf("priority must be one of: low, medium, high (got %v)", v)
}

// Status validates a status parameter.
func Status(v any) (string, error) {
	s, ok := v.(string)
	if ok {
		switch s {
		case store.StatusPending, store.StatusCompleted, store.StatusArchived, store.StatusDeleted:
			return s, nil
		}
	}
	return "", fmt.Errorf("status must be one of: pending, completed, archived, deleted (got %v)", v)
}

// SearchQuery validates a free-text search parameter: non-empty after
// trimming and at most MaxSearchQueryLen characters.
func SearchQuery(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("query must be a string (got %T)", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("query must not be empty")
	}
	if len(s) > MaxSearchQueryLen {
		return "", fmt.Errorf("query must be at most %d characters (got %d)", MaxSearchQueryLen, len(s))
	}
	return s, nil
}

// Number coerces v to a finite float64 within [min, max] inclusive.
// Accepts JSON numbers, Go integer types, and numeric strings.
func Number(v any, name string, min, max float64) (float64, error) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a number (got %q)", name, x)
		}
		n = parsed
	default:
		return 0, fmt.Errorf("%s must be a number (got %T)", name, v)
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("%s must be a finite number", name)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %v and %v (got %v)", name, min, max, n)
	}
	return n, nil
}

// Boolean coerces v to a bool. Accepts booleans and the strings
// "true"/"false"/"1"/"0".
func Boolean(v any, name string) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1":
			return true, nil
		case "false", "0":
			return false, nil
		}
	}
	return false, fmt.Errorf("%s must be a boolean (got %v)", name, v)
}

// Array validates that v is an array and that every element passes the
// item validator. A failing element fails the whole call, reporting the
// failing index.
func Array[T any](v any, name string, item func(any) (T, error)) ([]T, error) {
	raw, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array (got %T)", name, v)
	}
	out := make([]T, 0, len(raw))
	for i, el := range raw {
		typed, err := item(el)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", name, i, err)
		}
		out = append(out, typed)
	}
	return out, nil
}

// Tag validates a single custom tag value.
func Tag(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("tag must be a string (got %T)", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("tag must not be empty")
	}
	return s, nil
}
