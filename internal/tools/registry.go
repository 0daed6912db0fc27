package tools

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// Tool identifiers. The model addresses tools by these names.
const (
	ToolAnalyzeCompletionPatterns    = "analyze_completion_patterns"
	ToolAnalyzeProcrastinationTrends = "analyze_procrastination_trends"
	ToolAnalyzeRecurringAdherence    = "analyze_recurring_adherence"
	ToolAnalyzeWorrySpirals          = "analyze_worry_spirals"
	ToolGetMoodTimeline              = "get_mood_timeline"
	ToolIdentifyEmotionalTriggers    = "identify_emotional_triggers"
	ToolGetUpcomingDeadlines         = "get_upcoming_deadlines"
	ToolGetForgottenTasks            = "get_forgotten_tasks"
	ToolSuggestTaskBreakdown         = "suggest_task_breakdown"
	ToolGetPriorityDistribution      = "get_priority_distribution"
	ToolSearchItemsAdvanced          = "search_items_advanced"
	ToolGetUserContext               = "get_user_context"
)

// Executor is a single tool implementation.
type Executor func(ctx context.Context, tc Context, params map[string]any) Result

// registry maps the twelve tool names to their executors. Dispatch is by
// name because that is what arrives on the wire from the model; unknown
// names take an explicit failure branch in Execute.
var registry = map[string]Executor{
	ToolAnalyzeCompletionPatterns:    AnalyzeCompletionPatterns,
	ToolAnalyzeProcrastinationTrends: AnalyzeProcrastinationTrends,
	ToolAnalyzeRecurringAdherence:    AnalyzeRecurringAdherence,
	ToolAnalyzeWorrySpirals:          AnalyzeWorrySpirals,
	ToolGetMoodTimeline:              GetMoodTimeline,
	ToolIdentifyEmotionalTriggers:    IdentifyEmotionalTriggers,
	ToolGetUpcomingDeadlines:         GetUpcomingDeadlines,
	ToolGetForgottenTasks:            GetForgottenTasks,
	ToolSuggestTaskBreakdown:         SuggestTaskBreakdown,
	ToolGetPriorityDistribution:      GetPriorityDistribution,
	ToolSearchItemsAdvanced:          SearchItemsAdvanced,
	ToolGetUserContext:               GetUserContext,
}

// IsValidTool reports whether name is a registered tool.
func IsValidTool(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names returns all registered tool names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultTimeout is the per-tool execution budget.
const DefaultTimeout = 10 * time.Second

// Runner executes tools by name with a wall-clock budget. A tool that
// overruns its budget produces a failure result for that tool only; the
// goroutine is left to finish and its late result is discarded.
type Runner struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewRunner creates a Runner with the given budget; zero means
// DefaultTimeout.
func NewRunner(timeout time.Duration, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{Timeout: timeout, Logger: logger}
}

// Execute validates the tool name, then races the executor against the
// timeout. It never returns an error or panics: unknown tools, tool
// panics, and timeouts all come back as failure Results with timing
// metadata.
func (r *Runner) Execute(ctx context.Context, name string, params map[string]any, tc Context) Result {
	start := time.Now()

	executor, ok := registry[name]
	if !ok {
		return failure(start, "Unknown tool: %s", name)
	}

	done := make(chan Result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.Logger.Error("tool panicked", "tool", name, "panic", rec)
				done <- failure(start, "tool %s failed: internal error", name)
			}
		}()
		done <- executor(ctx, tc, params)
	}()

	timer := time.NewTimer(r.Timeout)
	defer timer.Stop()

	select {
	case result := <-done:
		r.Logger.Debug("tool executed",
			"tool", name,
			"success", result.Success,
			"duration_ms", result.Metadata.ExecutionTimeMS,
		)
		return result
	case <-timer.C:
		r.Logger.Warn("tool timed out", "tool", name, "timeout", r.Timeout)
		return failure(start, "Tool execution timeout")
	case <-ctx.Done():
		return failure(start, "tool %s canceled: %v", name, ctx.Err())
	}
}
