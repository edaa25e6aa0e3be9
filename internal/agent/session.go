package agent

import (
	"ollaterm/internal/ollama"
)

// Status is the task session state machine. running is initial; done,
// failed and aborted are terminal.
type Status string

const (
	StatusRunning        Status = "running"
	StatusAwaitingAnswer Status = "awaiting_answer"
	StatusDone           Status = "done"
	StatusFailed         Status = "failed"
	StatusAborted        Status = "aborted"
)

// Conversation holds the ordered message history. The system message is
// pinned at index 0 and excluded from trimming; all other messages are
// bounded to the most recent maxHistory entries, dropped oldest-first.
// Trimming is eager, so the view handed to the model is always what is
// stored.
type Conversation struct {
	maxHistory int
	system     ollama.Message
	rest       []ollama.Message
}

func NewConversation(systemPrompt string, maxHistory int) *Conversation {
	if maxHistory <= 0 {
		maxHistory = 16
	}
	return &Conversation{
		maxHistory: maxHistory,
		system:     ollama.Message{Role: ollama.RoleSystem, Content: systemPrompt},
	}
}

// Append records one message and applies the bounding policy. It is the
// only mutator besides Reset.
func (c *Conversation) Append(role, content string) {
	c.rest = append(c.rest, ollama.Message{Role: role, Content: content})
	if len(c.rest) > c.maxHistory {
		c.rest = c.rest[len(c.rest)-c.maxHistory:]
	}
}

// Reset drops everything but the system message and re-anchors with a
// single user message. Used by the hard-reset recovery path.
func (c *Conversation) Reset(anchor string) {
	c.rest = c.rest[:0]
	c.Append(ollama.RoleUser, anchor)
}

// Messages returns the bounded view sent to the model: system message
// first, then survivors in original order.
func (c *Conversation) Messages() []ollama.Message {
	out := make([]ollama.Message, 0, len(c.rest)+1)
	out = append(out, c.system)
	out = append(out, c.rest...)
	return out
}

func (c *Conversation) Len() int {
	return len(c.rest) + 1
}

// Session is the mutable state of one task run. It is owned exclusively by
// the Controller for the lifetime of the task; no locking is needed.
type Session struct {
	Task       string
	Model      string
	Conv       *Conversation
	Status     Status
	Iterations int

	// Cwd is tracked explicitly: every command runs independently and the
	// controller re-applies the directory each call, persisting plain cd
	// commands between turns.
	Cwd string

	lastCommand    string
	lastCmdFailed  bool
	hardResets     int
	summary        string
	failReason     string
}

func NewSession(task, model, systemPrompt, cwd string, maxHistory int) *Session {
	return &Session{
		Task:   task,
		Model:  model,
		Conv:   NewConversation(systemPrompt, maxHistory),
		Status: StatusRunning,
		Cwd:    cwd,
	}
}

// Summary returns the model's completion summary once the session is done.
func (s *Session) Summary() string { return s.summary }

// FailReason explains which guard tripped on a failed session.
func (s *Session) FailReason() string { return s.failReason }
