package domain

import (
	"encoding/json"
	"fmt"
)

// Role tags a message variant.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether the role is one of the four known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ToolCall is a structured retrieval request emitted by an assistant message.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON: {"query": ..., "corpora": [...]}
}

// RetrieveArgs is the decoded argument payload of a retrieval tool call.
type RetrieveArgs struct {
	Query   string   `json:"query"`
	Corpora []string `json:"corpora,omitempty"`
}

// DecodeRetrieveArgs parses the call's argument JSON.
func (c ToolCall) DecodeRetrieveArgs() (RetrieveArgs, error) {
	var args RetrieveArgs
	if err := json.Unmarshal([]byte(c.Arguments), &args); err != nil {
		return RetrieveArgs{}, fmt.Errorf("decode tool arguments: %w", err)
	}
	return args, nil
}

// Message is one entry of a conversation. It is a tagged variant over Role:
// assistant messages may carry ToolCalls, tool messages answer exactly one
// call via ToolCallID. Messages are immutable once appended.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant only
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool only
	ToolName   string     `json:"tool_name,omitempty"`    // tool only
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a finalized assistant message (no tool calls).
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolCallMessage creates an assistant message that requests tool calls.
func NewToolCallMessage(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// NewToolMessage creates a tool result message answering one call.
func NewToolMessage(callID, toolName, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, ToolName: toolName}
}

// RequestsTools reports whether the message asks for tool invocation.
func (m Message) RequestsTools() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Validate checks the variant's shape.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return fmt.Errorf("unknown role %q", m.Role)
	}
	switch m.Role {
	case RoleTool:
		if m.ToolCallID == "" {
			return fmt.Errorf("tool message without tool_call_id")
		}
	case RoleSystem, RoleUser:
		if len(m.ToolCalls) > 0 {
			return fmt.Errorf("%s message must not carry tool calls", m.Role)
		}
	case RoleAssistant:
		// Both plain answers and tool-call requests are valid.
	}
	return nil
}

// Conversation is the append-only message log of one thread.
type Conversation struct {
	ThreadID string
	Messages []Message
}

// ValidateCausalOrder verifies that every tool message immediately follows
// an assistant message carrying the call it answers.
func (c Conversation) ValidateCausalOrder() error {
	pending := map[string]bool{}
	for i, m := range c.Messages {
		switch {
		case m.RequestsTools():
			pending = make(map[string]bool, len(m.ToolCalls))
			for _, call := range m.ToolCalls {
				pending[call.ID] = true
			}
		case m.Role == RoleTool:
			if !pending[m.ToolCallID] {
				return fmt.Errorf("message %d: tool result %q without preceding call", i, m.ToolCallID)
			}
			delete(pending, m.ToolCallID)
		default:
			if len(pending) > 0 {
				return fmt.Errorf("message %d: %d tool calls left unanswered", i, len(pending))
			}
		}
	}
	if len(pending) > 0 {
		return fmt.Errorf("conversation ends with %d unanswered tool calls", len(pending))
	}
	return nil
}
