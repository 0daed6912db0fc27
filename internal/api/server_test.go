package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/unspiral/unspiral/internal/agent"
	"github.com/unspiral/unspiral/internal/llm"
	"github.com/unspiral/unspiral/internal/store"
	"github.com/unspiral/unspiral/internal/thread"
	"github.com/unspiral/unspiral/internal/tools"
)

// textClient always answers with the same text.
type textClient struct {
	reply string
}

func (c *textClient) Chat(ctx context.Context, model string, messages []llm.Message, defs []map[string]any) (*llm.ChatResponse, error) {
	return &llm.ChatResponse{
		Model:        model,
		Message:      llm.Message{Role: "assistant", Content: c.reply},
		Done:         true,
		InputTokens:  7,
		OutputTokens: 3,
	}, nil
}

func (c *textClient) ChatStream(ctx context.Context, model string, messages []llm.Message, defs []map[string]any, callback llm.StreamCallback) (*llm.ChatResponse, error) {
	callback(llm.StreamEvent{Kind: llm.KindToken, Token: c.reply})
	return c.Chat(ctx, model, messages, defs)
}

func (c *textClient) Ping(ctx context.Context) error { return nil }

// nilStore satisfies store.Store; the canned client never calls tools.
type nilStore struct{}

func (nilStore) ListItems(ctx context.Context, userID string, f store.ItemFilter) ([]store.Item, error) {
	return nil, nil
}
func (nilStore) CountItems(ctx context.Context, userID string, f store.ItemFilter) (int, error) {
	return 0, nil
}
func (nilStore) ListCompletions(ctx context.Context, userID string, f store.CompletionFilter) ([]store.CompletionLog, error) {
	return nil, nil
}
func (nilStore) ListRecurring(ctx context.Context, userID string, activeOnly bool) ([]store.RecurringSpec, error) {
	return nil, nil
}
func (nilStore) ListMoodSamples(ctx context.Context, userID string, from, to time.Time) ([]store.MoodSample, error) {
	return nil, nil
}
func (nilStore) GetUserProfile(ctx context.Context, userID string) (*store.UserProfile, error) {
	return &store.UserProfile{UserID: userID}, nil
}
func (nilStore) GetPreferences(ctx context.Context, userID string) (*store.Preferences, error) {
	return nil, nil
}
func (nilStore) HasSubtasks(ctx context.Context, userID, itemID string) (bool, error) {
	return false, nil
}
func (nilStore) TopCategories(ctx context.Context, userID string, n int) ([]store.CategoryCount, error) {
	return nil, nil
}
func (nilStore) TopTags(ctx context.Context, userID string, n int) ([]store.TagCount, error) {
	return nil, nil
}
func (nilStore) ActiveDays(ctx context.Context, userID string, since time.Time) (int, error) {
	return 0, nil
}

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	threads, err := thread.Open(filepath.Join(t.TempDir(), "threads.db"))
	if err != nil {
		t.Fatalf("open thread store: %v", err)
	}
	t.Cleanup(func() { threads.Close() })

	runner := tools.NewRunner(time.Second, logger)
	loop := agent.NewLoop(logger, &textClient{reply: "All good."}, runner, nilStore{}, threads, "test-model", 3)
	return NewServer("127.0.0.1:0", loop, threads, nil, logger)
}

func doJSON(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := testServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestChatRequiresUserHeader(t *testing.T) {
	h := testServer(t).Handler()
	rec := doJSON(t, h, http.MethodPost, "/v1/chat", "", `{"message":"hi"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestChatRejectsBadBody(t *testing.T) {
	h := testServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/chat", "u1", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/chat", "u1", `{"message":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", rec.Code)
	}
}

func TestChatTurn(t *testing.T) {
	s := testServer(t)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/chat", "u1", `{"message":"how am I doing?"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result agent.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Response != "All good." {
		t.Errorf("response = %q", result.Response)
	}
	if result.ThreadID == "" {
		t.Error("thread_id missing from response")
	}

	// The turn shows up in session stats.
	rec = doJSON(t, h, http.MethodGet, "/v1/stats", "", "")
	var stats SessionStatsSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalTurns != 1 || stats.TotalInputTokens != 7 || stats.TotalOutputTokens != 3 {
		t.Errorf("stats = %+v", stats)
	}

	// And the thread is listed for its owner only.
	rec = doJSON(t, h, http.MethodGet, "/v1/threads", "u1", "")
	if !strings.Contains(rec.Body.String(), result.ThreadID) {
		t.Errorf("threads for u1 = %s", rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/threads", "u2", "")
	if strings.Contains(rec.Body.String(), result.ThreadID) {
		t.Errorf("u2 can see u1's thread: %s", rec.Body.String())
	}

	// Fetching the thread returns its messages.
	rec = doJSON(t, h, http.MethodGet, "/v1/threads/"+result.ThreadID, "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get thread status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "how am I doing?") {
		t.Errorf("thread body = %s", rec.Body.String())
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/threads/"+result.ThreadID, "u2", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user get thread status = %d, want 404", rec.Code)
	}
}

func TestChatStream(t *testing.T) {
	h := testServer(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/v1/chat/stream", "u1", `{"message":"stream it"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"type":"text_delta"`) {
		t.Errorf("stream missing text_delta: %s", body)
	}
	if !strings.Contains(body, `"type":"done"`) {
		t.Errorf("stream missing terminal done: %s", body)
	}
	if !strings.Contains(body, `"thread_id"`) {
		t.Errorf("done event missing thread_id: %s", body)
	}
	if strings.Count(body, `"type":"done"`)+strings.Count(body, `"type":"error"`) != 1 {
		t.Errorf("stream must end with exactly one terminal event: %s", body)
	}
}

func TestVersionEndpoint(t *testing.T) {
	h := testServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/v1/version", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var info map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatal(err)
	}
	if info["version"] == "" {
		t.Errorf("info = %v", info)
	}
}

func TestToolCallsEndpointRequiresUser(t *testing.T) {
	h := testServer(t).Handler()
	rec := doJSON(t, h, http.MethodGet, "/v1/tools/calls", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	rec = doJSON(t, h, http.MethodGet, "/v1/tools/calls", "u1", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
