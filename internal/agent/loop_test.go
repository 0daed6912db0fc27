package agent

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/unspiral/unspiral/internal/llm"
	"github.com/unspiral/unspiral/internal/store"
	"github.com/unspiral/unspiral/internal/thread"
	"github.com/unspiral/unspiral/internal/tools"
)

// scriptedClient returns canned responses in order and records what it
// was called with.
type scriptedClient struct {
	responses []*llm.ChatResponse
	calls     int

	// defsPerCall records whether the tool catalogue was passed on each call.
	defsPerCall []bool
	messages    [][]llm.Message
}

func (c *scriptedClient) Chat(ctx context.Context, model string, messages []llm.Message, defs []map[string]any) (*llm.ChatResponse, error) {
	c.defsPerCall = append(c.defsPerCall, defs != nil)
	c.messages = append(c.messages, messages)
	if c.calls >= len(c.responses) {
		return nil, fmt.Errorf("unexpected model call %d", c.calls+1)
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func (c *scriptedClient) ChatStream(ctx context.Context, model string, messages []llm.Message, defs []map[string]any, callback llm.StreamCallback) (*llm.ChatResponse, error) {
	resp, err := c.Chat(ctx, model, messages, defs)
	if err != nil {
		return nil, err
	}
	if resp.Message.Content != "" {
		callback(llm.StreamEvent{Kind: llm.KindToken, Token: resp.Message.Content})
	}
	return resp, nil
}

func (c *scriptedClient) Ping(ctx context.Context) error { return nil }

// memHistory is an in-memory History.
type memHistory struct {
	titles   map[string]string
	messages map[string][]llm.Message
	records  []thread.ToolCallRecord
}

func newMemHistory() *memHistory {
	return &memHistory{
		titles:   map[string]string{},
		messages: map[string][]llm.Message{},
	}
}

func (h *memHistory) EnsureThread(ctx context.Context, userID, threadID string) (string, error) {
	if threadID == "" {
		threadID = "thread-1"
	}
	return threadID, nil
}

func (h *memHistory) SetTitle(ctx context.Context, threadID, title string) error {
	h.titles[threadID] = title
	return nil
}

func (h *memHistory) Messages(ctx context.Context, threadID string) ([]llm.Message, error) {
	return h.messages[threadID], nil
}

func (h *memHistory) AppendMessage(ctx context.Context, threadID string, msg llm.Message) error {
	h.messages[threadID] = append(h.messages[threadID], msg)
	return nil
}

func (h *memHistory) RecordToolCall(ctx context.Context, rec thread.ToolCallRecord) error {
	h.records = append(h.records, rec)
	return nil
}

// emptyStore is a store.Store with no data; the real tool executors run
// against it during loop tests.
type emptyStore struct{}

func (emptyStore) ListItems(ctx context.Context, userID string, f store.ItemFilter) ([]store.Item, error) {
	return nil, nil
}
func (emptyStore) CountItems(ctx context.Context, userID string, f store.ItemFilter) (int, error) {
	return 0, nil
}
func (emptyStore) ListCompletions(ctx context.Context, userID string, f store.CompletionFilter) ([]store.CompletionLog, error) {
	return nil, nil
}
func (emptyStore) ListRecurring(ctx context.Context, userID string, activeOnly bool) ([]store.RecurringSpec, error) {
	return nil, nil
}
func (emptyStore) ListMoodSamples(ctx context.Context, userID string, from, to time.Time) ([]store.MoodSample, error) {
	return nil, nil
}
func (emptyStore) GetUserProfile(ctx context.Context, userID string) (*store.UserProfile, error) {
	return &store.UserProfile{UserID: userID, Timezone: "UTC"}, nil
}
func (emptyStore) GetPreferences(ctx context.Context, userID string) (*store.Preferences, error) {
	return nil, nil
}
func (emptyStore) HasSubtasks(ctx context.Context, userID, itemID string) (bool, error) {
	return false, nil
}
func (emptyStore) TopCategories(ctx context.Context, userID string, n int) ([]store.CategoryCount, error) {
	return nil, nil
}
func (emptyStore) TopTags(ctx context.Context, userID string, n int) ([]store.TagCount, error) {
	return nil, nil
}
func (emptyStore) ActiveDays(ctx context.Context, userID string, since time.Time) (int, error) {
	return 0, nil
}

func testLoop(t *testing.T, client *scriptedClient, history *memHistory, maxRounds int) *Loop {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := tools.NewRunner(time.Second, logger)
	return NewLoop(logger, client, runner, emptyStore{}, history, "test-model", maxRounds)
}

func textResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Model:        "test-model",
		Message:      llm.Message{Role: "assistant", Content: content},
		Done:         true,
		InputTokens:  10,
		OutputTokens: 5,
	}
}

func toolResponse(calls ...llm.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{
		Model:       "test-model",
		Message:     llm.Message{Role: "assistant", ToolCalls: calls},
		InputTokens: 10,
	}
}

func TestRunTextOnlyTurn(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{textResponse("You're doing fine.")}}
	history := newMemHistory()
	loop := testLoop(t, client, history, 3)

	result, err := loop.Run(context.Background(), &Request{UserID: "u1", Message: "how am I doing?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Response != "You're doing fine." {
		t.Errorf("response = %q", result.Response)
	}
	if result.Rounds != 1 {
		t.Errorf("rounds = %d, want 1", result.Rounds)
	}
	if result.ThreadID != "thread-1" {
		t.Errorf("thread = %q", result.ThreadID)
	}
	if history.titles["thread-1"] != "how am I doing?" {
		t.Errorf("title = %q", history.titles["thread-1"])
	}

	// History holds the user turn plus the assistant reply.
	msgs := history.messages["thread-1"]
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Errorf("stored messages = %+v", msgs)
	}
}

func TestRunValidation(t *testing.T) {
	loop := testLoop(t, &scriptedClient{}, newMemHistory(), 3)

	if _, err := loop.Run(context.Background(), &Request{Message: "hi"}); err == nil {
		t.Error("missing user_id should fail")
	}
	if _, err := loop.Run(context.Background(), &Request{UserID: "u1"}); err == nil {
		t.Error("missing message should fail")
	}
}

func TestRunToolRound(t *testing.T) {
	calls := []llm.ToolCall{
		llm.NewToolCall("call-1", tools.ToolGetPriorityDistribution, nil),
		llm.NewToolCall("call-2", tools.ToolGetUserContext, nil),
	}
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolResponse(calls...),
		textResponse("Here's what I found."),
	}}
	history := newMemHistory()
	loop := testLoop(t, client, history, 3)

	result, err := loop.Run(context.Background(), &Request{UserID: "u1", Message: "what's on my plate?"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Response != "Here's what I found." {
		t.Errorf("response = %q", result.Response)
	}
	if result.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", result.Rounds)
	}

	// Summaries preserve the model's request order and IDs.
	if len(result.ToolCalls) != 2 {
		t.Fatalf("tool calls = %+v", result.ToolCalls)
	}
	if result.ToolCalls[0].ID != "call-1" || result.ToolCalls[0].Name != tools.ToolGetPriorityDistribution {
		t.Errorf("first summary = %+v", result.ToolCalls[0])
	}
	if result.ToolCalls[1].ID != "call-2" || result.ToolCalls[1].Name != tools.ToolGetUserContext {
		t.Errorf("second summary = %+v", result.ToolCalls[1])
	}
	for _, tc := range result.ToolCalls {
		if !tc.Success {
			t.Errorf("tool %s should succeed against the empty store", tc.Name)
		}
	}

	// The second model call must carry the tool results, paired by ID.
	second := client.messages[1]
	var toolMsgs []llm.Message
	for _, m := range second {
		if m.Role == "tool" {
			toolMsgs = append(toolMsgs, m)
		}
	}
	if len(toolMsgs) != 2 {
		t.Fatalf("tool messages in round 2 = %d, want 2", len(toolMsgs))
	}
	if toolMsgs[0].ToolCallID != "call-1" || toolMsgs[1].ToolCallID != "call-2" {
		t.Errorf("tool message IDs = %q, %q", toolMsgs[0].ToolCallID, toolMsgs[1].ToolCallID)
	}
	if !strings.Contains(toolMsgs[0].Content, `"success":true`) {
		t.Errorf("tool message should carry the result envelope: %s", toolMsgs[0].Content)
	}

	// Both executions are recorded.
	if len(history.records) != 2 {
		t.Errorf("recorded tool calls = %d", len(history.records))
	}
}

func TestRunFailedToolStaysInBand(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolResponse(llm.NewToolCall("call-1", "no_such_tool", nil)),
		textResponse("I couldn't look that up."),
	}}
	history := newMemHistory()
	loop := testLoop(t, client, history, 3)

	result, err := loop.Run(context.Background(), &Request{UserID: "u1", Message: "hm"})
	if err != nil {
		t.Fatalf("a failed tool must not fail the turn: %v", err)
	}
	if result.ToolCalls[0].Success {
		t.Error("unknown tool should report failure")
	}

	// The failure reaches the model as a result payload, not an error.
	second := client.messages[1]
	last := second[len(second)-1]
	if last.Role != "tool" || !strings.Contains(last.Content, "Unknown tool") {
		t.Errorf("tool failure message = %+v", last)
	}
}

func TestRunRoundExhaustionForcesText(t *testing.T) {
	wantsTools := toolResponse(llm.NewToolCall("c", tools.ToolGetPriorityDistribution, nil))
	client := &scriptedClient{responses: []*llm.ChatResponse{
		wantsTools,
		wantsTools,
		textResponse("Short answer with what I have."),
	}}
	history := newMemHistory()
	loop := testLoop(t, client, history, 2)

	result, err := loop.Run(context.Background(), &Request{UserID: "u1", Message: "dig deep"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if client.calls != 3 {
		t.Fatalf("model calls = %d, want 2 rounds + 1 forced", client.calls)
	}
	// The forced final call gets no tool catalogue.
	if !client.defsPerCall[0] || !client.defsPerCall[1] {
		t.Error("tool rounds should carry the catalogue")
	}
	if client.defsPerCall[2] {
		t.Error("forced final call must not carry the catalogue")
	}
	if result.Response != "Short answer with what I have." {
		t.Errorf("response = %q", result.Response)
	}
	if result.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", result.Rounds)
	}
}

func TestRunStreamEvents(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		toolResponse(llm.NewToolCall("call-1", tools.ToolGetPriorityDistribution, nil)),
		textResponse("All balanced."),
	}}
	loop := testLoop(t, client, newMemHistory(), 3)

	var events []llm.StreamEvent
	result, err := loop.RunStream(context.Background(), &Request{UserID: "u1", Message: "priorities?"}, func(ev llm.StreamEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("RunStream: %v", err)
	}
	if result.Response != "All balanced." {
		t.Errorf("response = %q", result.Response)
	}

	var starts, dones, terms int
	for _, ev := range events {
		switch ev.Kind {
		case llm.KindToolCallStart:
			starts++
		case llm.KindToolCallDone:
			dones++
		case llm.KindDone:
			terms++
		}
	}
	if starts != 1 || dones != 1 {
		t.Errorf("tool events = %d starts, %d dones", starts, dones)
	}
	if terms != 1 {
		t.Errorf("terminal events = %d, want exactly 1", terms)
	}
	if last := events[len(events)-1]; last.Kind != llm.KindDone {
		t.Errorf("last event kind = %v, want done", last.Kind)
	}
}

func TestRunStreamNilCallback(t *testing.T) {
	loop := testLoop(t, &scriptedClient{}, newMemHistory(), 3)
	if _, err := loop.RunStream(context.Background(), &Request{UserID: "u1", Message: "hi"}, nil); err == nil {
		t.Error("nil callback should be rejected")
	}
}
