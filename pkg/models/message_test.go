package models

import (
	"encoding/json"
	"testing"
)

func TestRole_Constants(t *testing.T) {
	tests := []struct {
		constant Role
		expected string
	}{
		{RoleUser, "user"},
		{RoleAssistant, "assistant"},
		{RoleSystem, "system"},
		{RoleTool, "tool"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	original := Message{
		Role:     RoleAssistant,
		Content:  "Hello!",
		Metadata: map[string]any{"source": "test"},
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Role != original.Role {
		t.Errorf("Role = %v, want %v", decoded.Role, original.Role)
	}
	if decoded.Content != original.Content {
		t.Errorf("Content = %q, want %q", decoded.Content, original.Content)
	}
}

func TestToolCall_Struct(t *testing.T) {
	tc := ToolCall{
		ID:    "tc-123",
		Name:  "web_search",
		Input: json.RawMessage(`{"query": "test query"}`),
	}

	if tc.ID != "tc-123" {
		t.Errorf("ID = %q, want %q", tc.ID, "tc-123")
	}
	if tc.Name != "web_search" {
		t.Errorf("Name = %q, want %q", tc.Name, "web_search")
	}
}

func TestToolResult_IsError(t *testing.T) {
	ok := ToolResult{CallID: "tc-123", Content: "search results"}
	if ok.IsError() {
		t.Error("IsError() should be false when Error is empty")
	}

	failed := ToolResult{CallID: "tc-456", Error: "boom"}
	if !failed.IsError() {
		t.Error("IsError() should be true when Error is set")
	}
}

func TestToolSpec_Struct(t *testing.T) {
	spec := ToolSpec{
		Name:             "query_optimade",
		Description:      "query a materials database",
		SupportsParallel: true,
	}
	if !spec.SupportsParallel {
		t.Error("SupportsParallel should be true")
	}
	if spec.Name != "query_optimade" {
		t.Errorf("Name = %q, want %q", spec.Name, "query_optimade")
	}
}
