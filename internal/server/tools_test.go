package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	expectedTools := []string{
		"cfar_detect",
		"cfar_fit_mixture",
		"image_info",
		"cfar_parameters",
	}

	if len(tools) != len(expectedTools) {
		t.Fatalf("got %d tools, want %d", len(tools), len(expectedTools))
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		toolMap[tool.Name] = tool
	}
	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want object", tool.InputSchema["type"])
			}

			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema should have properties")
			}

			required, _ := tool.InputSchema["required"].([]string)
			for _, r := range required {
				if _, ok := props[r]; !ok {
					t.Errorf("required property %q is not defined", r)
				}
			}
		})
	}
}

func TestToolDefinitions_DetectorParameters(t *testing.T) {
	keys := []string{"guard_radius", "clutter_radius", "minimum_mixture_count", "maximum_mixture_count"}

	for _, tool := range GetToolDefinitions() {
		if tool.Name != "cfar_detect" && tool.Name != "cfar_parameters" {
			continue
		}
		props := tool.InputSchema["properties"].(map[string]interface{})
		for _, k := range keys {
			if _, ok := props[k]; !ok {
				t.Errorf("%s: missing property %s", tool.Name, k)
			}
		}
	}
}

func TestHandleToolsList(t *testing.T) {
	s := New()
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/list"})

	result := resp.Result.(map[string]interface{})
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatalf("tools: got %T", result["tools"])
	}
	if len(tools) != 4 {
		t.Errorf("got %d tools, want 4", len(tools))
	}
}
