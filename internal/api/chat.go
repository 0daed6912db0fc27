package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unspiral/unspiral/internal/agent"
	"github.com/unspiral/unspiral/internal/llm"
)

type chatRequest struct {
	ThreadID string `json:"thread_id,omitempty"`
	Message  string `json:"message"`
}

func (s *Server) userID(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}

func (s *Server) decodeChat(w http.ResponseWriter, r *http.Request) (*agent.Request, bool) {
	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header", s.logger)
		return nil, false
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", s.logger)
		return nil, false
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required", s.logger)
		return nil, false
	}

	return &agent.Request{
		UserID:   userID,
		ThreadID: req.ThreadID,
		Message:  req.Message,
	}, true
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	result, err := s.loop.Run(r.Context(), req)
	if err != nil {
		s.logger.Error("chat turn failed", "user", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "chat turn failed", s.logger)
		return
	}
	s.stats.Record(result)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result, s.logger)
}

// streamEvent is one SSE data payload. Exactly one terminal event
// ("done" or "error") ends every stream.
type streamEvent struct {
	Type     string `json:"type"` // text_delta, tool_call_started, tool_result, done, error
	Text     string `json:"text,omitempty"`
	ToolName string `json:"tool_name,omitempty"`
	Success  *bool  `json:"success,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", s.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(ev streamEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		w.Write([]byte("data: "))
		w.Write(data)
		w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	var terminal bool
	result, err := s.loop.RunStream(r.Context(), req, func(ev llm.StreamEvent) {
		switch ev.Kind {
		case llm.KindToken:
			emit(streamEvent{Type: "text_delta", Text: ev.Token})
		case llm.KindToolCallStart:
			emit(streamEvent{Type: "tool_call_started", ToolName: ev.ToolCall.Function.Name})
		case llm.KindToolCallDone:
			success := ev.ToolError == ""
			emit(streamEvent{Type: "tool_result", ToolName: ev.ToolName, Success: &success})
		case llm.KindDone:
			// ThreadID is attached below where the TurnResult is in scope.
		}
	})
	if err != nil {
		s.logger.Error("chat stream failed", "user", req.UserID, "error", err)
		emit(streamEvent{Type: "error", Error: "chat turn failed"})
		terminal = true
	}
	if !terminal {
		s.stats.Record(result)
		emit(streamEvent{Type: "done", ThreadID: result.ThreadID})
	}
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header", s.logger)
		return
	}

	limit := parseLimit(r, 50)
	threads, err := s.threads.ListThreads(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("list threads failed", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "list threads failed", s.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"threads": threads}, s.logger)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header", s.logger)
		return
	}

	threadID := chi.URLParam(r, "threadID")
	t, err := s.threads.GetThread(r.Context(), userID, threadID)
	if err != nil {
		writeError(w, http.StatusNotFound, "thread not found", s.logger)
		return
	}

	messages, err := s.threads.Messages(r.Context(), threadID)
	if err != nil {
		s.logger.Error("load messages failed", "thread", threadID, "error", err)
		writeError(w, http.StatusInternalServerError, "load messages failed", s.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"thread": t, "messages": messages}, s.logger)
}

func (s *Server) handleListToolCalls(w http.ResponseWriter, r *http.Request) {
	userID := s.userID(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing "+userIDHeader+" header", s.logger)
		return
	}

	limit := parseLimit(r, 100)
	calls, err := s.threads.ListToolCalls(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("list tool calls failed", "user", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "list tool calls failed", s.logger)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"tool_calls": calls}, s.logger)
}

func parseLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return fallback
	}
	return n
}
