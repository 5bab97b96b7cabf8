package domain

import "testing"

func TestMessage_Validate(t *testing.T) {
	call := ToolCall{ID: "call-1", Name: "retrieve", Arguments: `{"query":"q"}`}

	tests := []struct {
		name      string
		msg       Message
		wantError bool
	}{
		{"system", NewSystemMessage("persona"), false},
		{"user", NewUserMessage("question"), false},
		{"assistant answer", NewAssistantMessage("answer"), false},
		{"assistant tool call", NewToolCallMessage("", []ToolCall{call}), false},
		{"tool result", NewToolMessage("call-1", "retrieve", "context"), false},
		{"unknown role", Message{Role: "oracle", Content: "x"}, true},
		{"tool without call id", Message{Role: RoleTool, Content: "x"}, true},
		{"user with tool calls", Message{Role: RoleUser, ToolCalls: []ToolCall{call}}, true},
		{"system with tool calls", Message{Role: RoleSystem, ToolCalls: []ToolCall{call}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if (err != nil) != tc.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tc.wantError)
			}
		})
	}
}

func TestMessage_RequestsTools(t *testing.T) {
	call := ToolCall{ID: "call-1", Name: "retrieve", Arguments: `{}`}

	if NewAssistantMessage("answer").RequestsTools() {
		t.Error("plain assistant message should not request tools")
	}
	if !NewToolCallMessage("", []ToolCall{call}).RequestsTools() {
		t.Error("assistant message with calls should request tools")
	}
	if (Message{Role: RoleUser, ToolCalls: []ToolCall{call}}).RequestsTools() {
		t.Error("non-assistant role never requests tools")
	}
}

func TestDecodeRetrieveArgs(t *testing.T) {
	call := ToolCall{ID: "call-1", Name: "retrieve", Arguments: `{"query":"deploy steps","corpora":["runbooks","faq"]}`}

	args, err := call.DecodeRetrieveArgs()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if args.Query != "deploy steps" {
		t.Errorf("unexpected query: %q", args.Query)
	}
	if len(args.Corpora) != 2 || args.Corpora[0] != "runbooks" {
		t.Errorf("unexpected corpora: %v", args.Corpora)
	}
}

func TestDecodeRetrieveArgs_Invalid(t *testing.T) {
	call := ToolCall{ID: "call-1", Name: "retrieve", Arguments: `not json`}
	if _, err := call.DecodeRetrieveArgs(); err == nil {
		t.Fatal("expected error")
	}
}

func TestValidateCausalOrder(t *testing.T) {
	call := ToolCall{ID: "call-1", Name: "retrieve", Arguments: `{"query":"q"}`}

	tests := []struct {
		name      string
		messages  []Message
		wantError bool
	}{
		{
			"plain exchange",
			[]Message{NewUserMessage("q"), NewAssistantMessage("a")},
			false,
		},
		{
			"tool round trip",
			[]Message{
				NewUserMessage("q"),
				NewToolCallMessage("", []ToolCall{call}),
				NewToolMessage("call-1", "retrieve", "context"),
				NewAssistantMessage("a"),
			},
			false,
		},
		{
			"orphan tool result",
			[]Message{NewUserMessage("q"), NewToolMessage("call-1", "retrieve", "context")},
			true,
		},
		{
			"result answering wrong call",
			[]Message{
				NewToolCallMessage("", []ToolCall{call}),
				NewToolMessage("call-2", "retrieve", "context"),
			},
			true,
		},
		{
			"call never answered",
			[]Message{
				NewToolCallMessage("", []ToolCall{call}),
				NewAssistantMessage("a"),
			},
			true,
		},
		{
			"trailing unanswered call",
			[]Message{NewUserMessage("q"), NewToolCallMessage("", []ToolCall{call})},
			true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conv := Conversation{ThreadID: "t1", Messages: tc.messages}
			err := conv.ValidateCausalOrder()
			if (err != nil) != tc.wantError {
				t.Errorf("ValidateCausalOrder() error = %v, wantError %v", err, tc.wantError)
			}
		})
	}
}
