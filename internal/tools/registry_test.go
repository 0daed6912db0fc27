package tools

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func testRunner(timeout time.Duration) *Runner {
	return NewRunner(timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestIsValidTool(t *testing.T) {
	if !IsValidTool(ToolGetUserContext) {
		t.Error("get_user_context should be registered")
	}
	if IsValidTool("delete_all_items") {
		t.Error("unregistered name should not validate")
	}
}

func TestNamesSortedComplete(t *testing.T) {
	names := Names()
	if len(names) != 12 {
		t.Fatalf("Names() = %d entries, want 12", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("Names() not sorted at %d: %q >= %q", i, names[i-1], names[i])
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r := testRunner(0)
	res := r.Execute(context.Background(), "summon_demons", nil, testContext(&fakeStore{}))
	if res.Success {
		t.Fatal("unknown tool must fail")
	}
	if res.Error != "Unknown tool: summon_demons" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecuteTimeout(t *testing.T) {
	block := make(chan struct{})
	registry["__test_block"] = func(ctx context.Context, tc Context, params map[string]any) Result {
		<-block
		return success(time.Now(), nil)
	}
	defer func() {
		close(block)
		delete(registry, "__test_block")
	}()

	r := testRunner(20 * time.Millisecond)
	res := r.Execute(context.Background(), "__test_block", nil, testContext(&fakeStore{}))
	if res.Success {
		t.Fatal("overrunning tool must fail")
	}
	if res.Error != "Tool execution timeout" {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecuteRecoversPanic(t *testing.T) {
	registry["__test_panic"] = func(ctx context.Context, tc Context, params map[string]any) Result {
		panic("boom")
	}
	defer delete(registry, "__test_panic")

	r := testRunner(0)
	res := r.Execute(context.Background(), "__test_panic", nil, testContext(&fakeStore{}))
	if res.Success {
		t.Fatal("panicking tool must fail, not crash")
	}
	if !strings.Contains(res.Error, "internal error") {
		t.Errorf("panic should surface as an internal error, got %q", res.Error)
	}
}

func TestExecuteContextCancel(t *testing.T) {
	block := make(chan struct{})
	registry["__test_cancel"] = func(ctx context.Context, tc Context, params map[string]any) Result {
		<-block
		return success(time.Now(), nil)
	}
	defer func() {
		close(block)
		delete(registry, "__test_cancel")
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := testRunner(time.Minute)
	res := r.Execute(ctx, "__test_cancel", nil, testContext(&fakeStore{}))
	if res.Success {
		t.Fatal("canceled context must fail the call")
	}
	if !strings.Contains(res.Error, "canceled") {
		t.Errorf("error = %q", res.Error)
	}
}

func TestExecuteRealTool(t *testing.T) {
	r := testRunner(0)
	res := r.Execute(context.Background(), ToolGetPriorityDistribution, nil, testContext(&fakeStore{}))
	if !res.Success {
		t.Fatalf("expected success, got %q", res.Error)
	}
	if res.Metadata.ExecutionTimeMS < 0 {
		t.Errorf("execution time = %d", res.Metadata.ExecutionTimeMS)
	}
}

func TestDefinitionsCoverRegistry(t *testing.T) {
	defs := Definitions()
	if len(defs) != 12 {
		t.Fatalf("Definitions() = %d entries, want 12", len(defs))
	}
	for _, def := range defs {
		fn, ok := def["function"].(map[string]any)
		if !ok {
			t.Fatalf("definition missing function block: %v", def)
		}
		name, _ := fn["name"].(string)
		if !IsValidTool(name) {
			t.Errorf("definition %q has no registered executor", name)
		}
		if desc, _ := fn["description"].(string); desc == "" {
			t.Errorf("definition %q has no description", name)
		}
		if _, ok := fn["parameters"]; !ok {
			t.Errorf("definition %q has no parameters schema", name)
		}
	}
}
