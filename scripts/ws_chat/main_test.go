package main

import (
	"reflect"
	"testing"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line   string
		name   string
		params map[string]any
	}{
		{line: "whoami", name: "whoami", params: map[string]any{}},
		{line: "nick nick=bob", name: "nick", params: map[string]any{"nick": "bob"}},
		{line: "pm nick=bob message=see you later", name: "pm", params: map[string]any{"nick": "bob", "message": "see you later"}},
		{line: "me stray message=waves", name: "me", params: map[string]any{"message": "waves"}},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			cmd := parseCommand(tc.line)
			if cmd.Name != tc.name {
				t.Fatalf("name = %q, want %q", cmd.Name, tc.name)
			}
			if !reflect.DeepEqual(cmd.Params, tc.params) {
				t.Fatalf("params = %v, want %v", cmd.Params, tc.params)
			}
		})
	}
}
