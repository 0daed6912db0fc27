package tools

// Definitions returns the tool catalogue sent to the model on every
// chat request. Descriptions are written for the model: they say when to
// reach for a tool, not how it is implemented.
func Definitions() []map[string]any {
	return []map[string]any{
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolAnalyzeCompletionPatterns,
				"description": "Analyze how many items the user completed in a time window, including completion rate, average time to complete, per-category breakdown, and how mood shifted around completions. Use when the user asks how they're doing, whether they're getting things done, or about productivity patterns.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"time_range": map[string]any{
							"type":        "string",
							"enum":        []string{"today", "week", "month", "quarter", "year", "all"},
							"description": "Window to analyze (default: month)",
						},
						"category_id": map[string]any{
							"type":        "integer",
							"description": "Restrict to one category: 1=Tasks, 2=Ideas, 3=Errands, 4=Health, 5=Relationships, 6=Worries Vault, 7=Recurring",
						},
						"include_mood_correlation": map[string]any{
							"type":        "boolean",
							"description": "Include before/after mood readings around completions (default: true)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolAnalyzeProcrastinationTrends,
				"description": "Find pending items that have been sitting longer than a threshold and see which categories stall the most. Use when the user asks what they've been putting off or why things aren't moving.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min_procrastination_hours": map[string]any{
							"type":        "number",
							"description": "Minimum hours pending before an item counts as stalled (default: 48)",
						},
						"include_patterns": map[string]any{
							"type":        "boolean",
							"description": "Include per-category delay aggregates (default: true)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolAnalyzeRecurringAdherence,
				"description": "Compare how often the user actually completed each recurring habit against how often its schedule expected, over a time window. Use when the user asks about habits, routines, or consistency.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"time_range": map[string]any{
							"type":        "string",
							"enum":        []string{"today", "week", "month", "quarter", "year", "all"},
							"description": "Window to analyze (default: month)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolAnalyzeWorrySpirals,
				"description": "List recent worry spirals with their step-by-step thought chains and the recurring triggers that start them. Use when the user asks about their worries, anxious thought patterns, or what keeps coming back.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"time_range": map[string]any{
							"type":        "string",
							"enum":        []string{"today", "week", "month", "quarter", "year", "all"},
							"description": "Window to analyze (default: month)",
						},
						"limit": map[string]any{
							"type":        "integer",
							"description": "Maximum spirals to return, newest first (default: 10, max: 50)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolGetMoodTimeline,
				"description": "Build a timeline of stress/anxiety readings bucketed by hour, day, or week, correlated with completions and worry spirals, highlighting the best and toughest stretches. Use when the user asks how their mood has been or what their good and bad days looked like.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"time_range": map[string]any{
							"type":        "string",
							"enum":        []string{"today", "week", "month", "quarter", "year", "all"},
							"description": "Window to analyze (default: month)",
						},
						"granularity": map[string]any{
							"type":        "string",
							"enum":        []string{"hourly", "daily", "weekly"},
							"description": "Bucket size for the timeline (default: daily)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolIdentifyEmotionalTriggers,
				"description": "Group emotionally heavy items by category and tag to show where emotional weight concentrates and which areas spiral most. Use when the user asks what stresses them out or where their anxiety comes from.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min_emotional_weight": map[string]any{
							"type":        "number",
							"description": "Minimum emotional weight score 0-100 to count as heavy (default: 50)",
						},
						"time_range": map[string]any{
							"type":        "string",
							"enum":        []string{"today", "week", "month", "quarter", "year", "all"},
							"description": "Window to analyze (default: month)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolGetUpcomingDeadlines,
				"description": "List dated, uncompleted items grouped into overdue, due today, urgent (next 3 days), and upcoming buckets. Use when the user asks what's due, what's coming up, or what they're behind on.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"days_ahead": map[string]any{
							"type":        "integer",
							"description": "How many days ahead to look (default: 7)",
						},
						"include_overdue": map[string]any{
							"type":        "boolean",
							"description": "Include items already past due (default: true)",
						},
						"min_priority_score": map[string]any{
							"type":        "number",
							"description": "Only include items at or above this priority score 0-100 (default: 0, no gate)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolGetForgottenTasks,
				"description": "Surface pending tasks that haven't been touched in a while, oldest first, each with a suggestion to archive or break down. Use when the user asks what they've forgotten about or wants to clean up their list.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"days_untouched": map[string]any{
							"type":        "integer",
							"description": "Minimum days since last update to count as forgotten (default: 14)",
						},
						"exclude_worries": map[string]any{
							"type":        "boolean",
							"description": "Skip Worries Vault entries, which are parked on purpose (default: true)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolSuggestTaskBreakdown,
				"description": "Propose concrete subtask steps for high-priority tasks that have no subtasks yet. Use when the user feels overwhelmed by a big task or asks how to get started on something.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"min_priority_score": map[string]any{
							"type":        "number",
							"description": "Minimum priority score 0-100 for a task to be considered (default: 60)",
						},
						"max_results": map[string]any{
							"type":        "integer",
							"description": "Maximum tasks to suggest breakdowns for (default: 5, max: 20)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolGetPriorityDistribution,
				"description": "Tally items by priority tier to show whether everything is marked urgent or the load is balanced. Use when the user asks if they have too much going on or how their workload is distributed.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"include_completed": map[string]any{
							"type":        "boolean",
							"description": "Count completed items too, not just pending (default: false)",
						},
						"time_range": map[string]any{
							"type":        "string",
							"enum":        []string{"today", "week", "month", "quarter", "year", "all"},
							"description": "Restrict to items created in this window (default: all items)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolSearchItemsAdvanced,
				"description": "Search the user's items by text, categories, tags, priority, and status. Use when the user asks about a specific topic, mentions something they dumped earlier, or wants a filtered list.",
				"parameters": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "Text to match against item titles and descriptions",
						},
						"categories": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "integer"},
							"description": "Category IDs to include: 1=Tasks, 2=Ideas, 3=Errands, 4=Health, 5=Relationships, 6=Worries Vault, 7=Recurring",
						},
						"tags": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Custom tags; items matching any tag are kept",
						},
						"priority": map[string]any{
							"type":        "string",
							"enum":        []string{"low", "medium", "high"},
							"description": "Priority tier to filter by",
						},
						"status": map[string]any{
							"type":        "string",
							"enum":        []string{"pending", "completed", "archived", "deleted"},
							"description": "Item status to filter by (default: pending)",
						},
						"limit": map[string]any{
							"type":        "integer",
							"description": "Maximum results (default: 20, max: 100)",
						},
					},
				},
			},
		},
		{
			"type": "function",
			"function": map[string]any{
				"name":        ToolGetUserContext,
				"description": "Fetch the user's profile, preferences, item counts, journaling activity, and top categories and tags. Use at the start of a conversation or when a personalized answer needs background about the user.",
				"parameters": map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
			},
		},
	}
}
