// Package tools implements the twelve analytical tools the chat agent can
// invoke, plus the registry and timeout-bounded executor that dispatches
// them. Every tool validates its own parameters, queries the store scoped
// to the context's user, and returns a uniform Result envelope — errors
// become failure results at the tool boundary, never panics or raw
// returned errors.
package tools

import (
	"fmt"
	"time"
)

// Result is the uniform envelope every tool returns.
type Result struct {
	Success  bool     `json:"success"`
	Data     any      `json:"data,omitempty"`
	Error    string   `json:"error,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// Metadata carries execution timing, populated on both success and
// failure paths.
type Metadata struct {
	ExecutionTimeMS int64 `json:"execution_time_ms"`
}

func elapsed(start time.Time) Metadata {
	return Metadata{ExecutionTimeMS: time.Since(start).Milliseconds()}
}

func success(start time.Time, data any) Result {
	return Result{Success: true, Data: data, Metadata: elapsed(start)}
}

func failure(start time.Time, format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...), Metadata: elapsed(start)}
}
