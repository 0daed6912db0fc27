// Package agent implements the core conversation loop: call the model
// with the tool catalogue, execute any requested tools, feed results
// back, and repeat within a bounded number of rounds.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unspiral/unspiral/internal/llm"
	"github.com/unspiral/unspiral/internal/store"
	"github.com/unspiral/unspiral/internal/thread"
	"github.com/unspiral/unspiral/internal/tools"
)

// DefaultMaxRounds bounds tool rounds per turn. After the last round the
// model gets one final call with no tools, so a turn always ends in text.
const DefaultMaxRounds = 3

const systemPrompt = `You are the companion inside Unspiral, a voice-journaling app for people managing anxiety. Users dump their thoughts by voice; the app sorts them into tasks, ideas, errands, health, relationships, worries, and recurring habits.

Your job is to help users understand their own patterns. When a question touches their data — what they've done, what's pending, how their mood has been, what they worry about — use the tools rather than guessing. Tool results include a summary you can build on.

Ground rules:
- Be warm and direct. Validate what the user is carrying; never scold or minimize.
- Never invent data. If a tool returns nothing, say so plainly.
- Keep answers conversational and short enough to read on a phone.
- A long list is itself a burden; surface the few things that matter most.`

// History is the conversation persistence the loop needs. *thread.Store
// satisfies it.
type History interface {
	EnsureThread(ctx context.Context, userID, threadID string) (string, error)
	SetTitle(ctx context.Context, threadID, title string) error
	Messages(ctx context.Context, threadID string) ([]llm.Message, error)
	AppendMessage(ctx context.Context, threadID string, msg llm.Message) error
	RecordToolCall(ctx context.Context, rec thread.ToolCallRecord) error
}

// Request is one user turn.
type Request struct {
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`
}

// ToolCallSummary describes one executed tool call in a turn.
type ToolCallSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Success    bool   `json:"success"`
	DurationMS int64  `json:"duration_ms"`
}

// TurnResult is the outcome of one turn.
type TurnResult struct {
	ThreadID     string            `json:"thread_id"`
	Response     string            `json:"response"`
	Model        string            `json:"model"`
	ToolCalls    []ToolCallSummary `json:"tool_calls"`
	Rounds       int               `json:"rounds"`
	InputTokens  int               `json:"input_tokens"`
	OutputTokens int               `json:"output_tokens"`
}

// Loop is the agent execution loop.
type Loop struct {
	logger    *slog.Logger
	llm       llm.Client
	runner    *tools.Runner
	store     store.Store
	history   History
	model     string
	maxRounds int

	// Now supplies the clock passed into tool contexts. Nil means time.Now.
	Now func() time.Time
}

// NewLoop creates an agent loop.
func NewLoop(logger *slog.Logger, client llm.Client, runner *tools.Runner, st store.Store, history History, model string, maxRounds int) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Loop{
		logger:    logger,
		llm:       client,
		runner:    runner,
		store:     st,
		history:   history,
		model:     model,
		maxRounds: maxRounds,
	}
}

// Run executes one synchronous turn.
func (l *Loop) Run(ctx context.Context, req *Request) (*TurnResult, error) {
	return l.run(ctx, req, nil)
}

// RunStream executes one turn, streaming tokens and tool events to the
// callback. Exactly one KindDone event is emitted, after everything else.
func (l *Loop) RunStream(ctx context.Context, req *Request, callback llm.StreamCallback) (*TurnResult, error) {
	if callback == nil {
		return nil, fmt.Errorf("stream callback must not be nil")
	}
	result, err := l.run(ctx, req, callback)
	if err != nil {
		return nil, err
	}
	callback(llm.StreamEvent{Kind: llm.KindDone, Response: &llm.ChatResponse{
		Model:   result.Model,
		Message: llm.Message{Role: "assistant", Content: result.Response},
		Done:    true,
	}})
	return result, nil
}

func (l *Loop) run(ctx context.Context, req *Request, callback llm.StreamCallback) (*TurnResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if req.Message == "" {
		return nil, fmt.Errorf("message is required")
	}

	threadID, err := l.history.EnsureThread(ctx, req.UserID, req.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("ensure thread: %w", err)
	}

	history, err := l.history.Messages(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(history) == 0 {
		if err := l.history.SetTitle(ctx, threadID, req.Message); err != nil {
			l.logger.Warn("set thread title failed", "thread", threadID, "error", err)
		}
	}

	userMsg := llm.Message{Role: "user", Content: req.Message}
	if err := l.history.AppendMessage(ctx, threadID, userMsg); err != nil {
		return nil, fmt.Errorf("store message: %w", err)
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, userMsg)

	l.logger.Info("turn started",
		"user", req.UserID,
		"thread", threadID,
		"history", len(history),
	)

	result := &TurnResult{ThreadID: threadID, Model: l.model, ToolCalls: []ToolCallSummary{}}
	tc := tools.Context{Store: l.store, UserID: req.UserID, Now: l.Now}
	defs := tools.Definitions()

	for round := 1; round <= l.maxRounds; round++ {
		result.Rounds = round
		resp, err := l.chat(ctx, messages, defs, callback)
		if err != nil {
			return nil, fmt.Errorf("model call (round %d): %w", round, err)
		}
		result.InputTokens += resp.InputTokens
		result.OutputTokens += resp.OutputTokens

		if len(resp.Message.ToolCalls) == 0 {
			return l.finish(ctx, threadID, resp.Message, result)
		}

		messages = append(messages, resp.Message)
		if err := l.history.AppendMessage(ctx, threadID, resp.Message); err != nil {
			return nil, fmt.Errorf("store assistant message: %w", err)
		}

		toolMsgs, summaries, err := l.executeCalls(ctx, threadID, tc, resp.Message.ToolCalls, callback)
		if err != nil {
			return nil, err
		}
		result.ToolCalls = append(result.ToolCalls, summaries...)
		for _, msg := range toolMsgs {
			messages = append(messages, msg)
			if err := l.history.AppendMessage(ctx, threadID, msg); err != nil {
				return nil, fmt.Errorf("store tool message: %w", err)
			}
		}
	}

	// Rounds exhausted with the model still asking for tools. One final
	// call without the catalogue forces a text answer.
	l.logger.Warn("tool rounds exhausted", "thread", threadID, "rounds", l.maxRounds)
	resp, err := l.chat(ctx, messages, nil, callback)
	if err != nil {
		return nil, fmt.Errorf("final model call: %w", err)
	}
	result.InputTokens += resp.InputTokens
	result.OutputTokens += resp.OutputTokens
	return l.finish(ctx, threadID, resp.Message, result)
}

// chat dispatches to the streaming or non-streaming client call. Only
// token events are forwarded from inside the model call; tool events are
// the loop's own.
func (l *Loop) chat(ctx context.Context, messages []llm.Message, defs []map[string]any, callback llm.StreamCallback) (*llm.ChatResponse, error) {
	if callback == nil {
		return l.llm.Chat(ctx, l.model, messages, defs)
	}
	return l.llm.ChatStream(ctx, l.model, messages, defs, func(ev llm.StreamEvent) {
		if ev.Kind == llm.KindToken {
			callback(ev)
		}
	})
}

// executeCalls runs one round's tool calls concurrently and returns the
// tool-result messages in the same order the model requested them.
func (l *Loop) executeCalls(ctx context.Context, threadID string, tc tools.Context, calls []llm.ToolCall, callback llm.StreamCallback) ([]llm.Message, []ToolCallSummary, error) {
	if callback != nil {
		for i := range calls {
			callback(llm.StreamEvent{Kind: llm.KindToolCallStart, ToolCall: &calls[i]})
		}
	}

	results := make([]tools.Result, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = l.runner.Execute(gctx, call.Function.Name, call.Function.Arguments, tc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	msgs := make([]llm.Message, 0, len(calls))
	summaries := make([]ToolCallSummary, 0, len(calls))
	for i, call := range calls {
		res := results[i]
		encoded, err := json.Marshal(res)
		if err != nil {
			return nil, nil, fmt.Errorf("encode tool result: %w", err)
		}

		args, err := json.Marshal(call.Function.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		if err := l.history.RecordToolCall(ctx, thread.ToolCallRecord{
			ThreadID:   threadID,
			ToolName:   call.Function.Name,
			Arguments:  string(args),
			Success:    res.Success,
			Error:      res.Error,
			DurationMS: res.Metadata.ExecutionTimeMS,
		}); err != nil {
			l.logger.Warn("record tool call failed", "tool", call.Function.Name, "error", err)
		}

		l.logger.Info("tool executed",
			"thread", threadID,
			"tool", call.Function.Name,
			"success", res.Success,
			"duration_ms", res.Metadata.ExecutionTimeMS,
		)
		if callback != nil {
			callback(llm.StreamEvent{
				Kind:       llm.KindToolCallDone,
				ToolName:   call.Function.Name,
				ToolResult: string(encoded),
				ToolError:  res.Error,
			})
		}

		msgs = append(msgs, llm.Message{
			Role:       "tool",
			Content:    string(encoded),
			ToolCallID: call.ID,
		})
		summaries = append(summaries, ToolCallSummary{
			ID:         call.ID,
			Name:       call.Function.Name,
			Success:    res.Success,
			DurationMS: res.Metadata.ExecutionTimeMS,
		})
	}
	return msgs, summaries, nil
}

func (l *Loop) finish(ctx context.Context, threadID string, msg llm.Message, result *TurnResult) (*TurnResult, error) {
	if err := l.history.AppendMessage(ctx, threadID, msg); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}
	result.Response = msg.Content

	l.logger.Info("turn completed",
		"thread", threadID,
		"rounds", result.Rounds,
		"tool_calls", len(result.ToolCalls),
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
	)
	return result, nil
}
