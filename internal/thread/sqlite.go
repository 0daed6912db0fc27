// Package thread persists conversation threads, their messages, and a
// structured audit of every tool call the agent makes. This bookkeeping
// lives in a local SQLite file, separate from the user-data warehouse the
// tools query.
package thread

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/unspiral/unspiral/internal/llm"
)

// Thread is one conversation.
type Thread struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToolCallRecord is one audited tool execution.
type ToolCallRecord struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	ToolName   string    `json:"tool_name"`
	Arguments  string    `json:"arguments"` // JSON
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store is a SQLite-backed thread store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the thread database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// migrate creates the schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_threads_user ON threads(user_id, updated_at);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls TEXT,
		tool_call_id TEXT,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (thread_id) REFERENCES threads(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at);

	CREATE TABLE IF NOT EXISTS tool_calls (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		arguments TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		error TEXT,
		duration_ms INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		FOREIGN KEY (thread_id) REFERENCES threads(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_tool_calls_thread ON tool_calls(thread_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_tool_calls_tool ON tool_calls(tool_name);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureThread returns an existing thread's ID after verifying
// ownership, or creates a new thread when threadID is empty.
func (s *Store) EnsureThread(ctx context.Context, userID, threadID string) (string, error) {
	now := time.Now().UTC()
	if threadID == "" {
		threadID = uuid.NewString()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO threads (id, user_id, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			threadID, userID, now, now)
		if err != nil {
			return "", fmt.Errorf("create thread: %w", err)
		}
		return threadID, nil
	}

	var owner string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM threads WHERE id = ?`, threadID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("thread %s not found", threadID)
	}
	if err != nil {
		return "", fmt.Errorf("load thread: %w", err)
	}
	if owner != userID {
		// Deliberately the same message as not-found; thread IDs of other
		// users must not be probeable.
		return "", fmt.Errorf("thread %s not found", threadID)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE threads SET updated_at = ? WHERE id = ?`, now, threadID)
	if err != nil {
		return "", fmt.Errorf("touch thread: %w", err)
	}
	return threadID, nil
}

// SetTitle records a display title for a thread, usually the first user
// message truncated.
func (s *Store) SetTitle(ctx context.Context, threadID, title string) error {
	const maxTitle = 80
	if len(title) > maxTitle {
		title = title[:maxTitle]
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE threads SET title = ? WHERE id = ? AND (title IS NULL OR title = '')`,
		title, threadID)
	return err
}

// Messages returns a thread's messages in order, rehydrated into the
// model-neutral message type.
func (s *Store) Messages(ctx context.Context, threadID string) ([]llm.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content, tool_calls, tool_call_id
		 FROM messages WHERE thread_id = ? ORDER BY created_at, id`, threadID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []llm.Message
	for rows.Next() {
		var msg llm.Message
		var toolCalls, toolCallID sql.NullString
		if err := rows.Scan(&msg.Role, &msg.Content, &toolCalls, &toolCallID); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, fmt.Errorf("decode tool calls: %w", err)
			}
		}
		msg.ToolCallID = toolCallID.String
		out = append(out, msg)
	}
	return out, rows.Err()
}

// AppendMessage stores one message at the end of a thread.
func (s *Store) AppendMessage(ctx context.Context, threadID string, msg llm.Message) error {
	var toolCalls any
	if len(msg.ToolCalls) > 0 {
		encoded, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return fmt.Errorf("encode tool calls: %w", err)
		}
		toolCalls = string(encoded)
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, thread_id, role, content, tool_calls, tool_call_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), threadID, msg.Role, msg.Content, toolCalls, nullable(msg.ToolCallID), now)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE threads SET updated_at = ? WHERE id = ?`, now, threadID)
	return err
}

// RecordToolCall appends one tool execution to the audit table.
func (s *Store) RecordToolCall(ctx context.Context, rec ToolCallRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (id, thread_id, tool_name, arguments, success, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ThreadID, rec.ToolName, rec.Arguments, rec.Success, nullable(rec.Error), rec.DurationMS, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tool call: %w", err)
	}
	return nil
}

// ListThreads returns a user's threads, most recently active first.
func (s *Store) ListThreads(ctx context.Context, userID string, limit int) ([]Thread, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, COALESCE(title, ''), created_at, updated_at
		 FROM threads WHERE user_id = ? ORDER BY updated_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	var out []Thread
	for rows.Next() {
		var t Thread
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetThread returns one thread if it belongs to the user.
func (s *Store) GetThread(ctx context.Context, userID, threadID string) (*Thread, error) {
	var t Thread
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, COALESCE(title, ''), created_at, updated_at
		 FROM threads WHERE id = ? AND user_id = ?`, threadID, userID).
		Scan(&t.ID, &t.UserID, &t.Title, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("thread %s not found", threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	return &t, nil
}

// ListToolCalls returns the user's recent tool executions, newest first.
func (s *Store) ListToolCalls(ctx context.Context, userID string, limit int) ([]ToolCallRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tc.id, tc.thread_id, tc.tool_name, tc.arguments, tc.success,
		        COALESCE(tc.error, ''), tc.duration_ms, tc.created_at
		 FROM tool_calls tc
		 JOIN threads t ON t.id = tc.thread_id
		 WHERE t.user_id = ?
		 ORDER BY tc.created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query tool calls: %w", err)
	}
	defer rows.Close()

	var out []ToolCallRecord
	for rows.Next() {
		var rec ToolCallRecord
		if err := rows.Scan(&rec.ID, &rec.ThreadID, &rec.ToolName, &rec.Arguments,
			&rec.Success, &rec.Error, &rec.DurationMS, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tool call: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
