package http

import (
	"encoding/json"
	"testing"

	"github.com/vovakirdan/presence-hub/internal/core"
	"github.com/vovakirdan/presence-hub/internal/proto"
)

func TestInboundMessageMapping(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		text      string
		malformed bool
	}{
		{name: "string", data: `"hello"`, text: "hello"},
		{name: "empty string", data: `""`, text: ""},
		{name: "null", data: `null`, malformed: true},
		{name: "missing", data: ``, malformed: true},
		{name: "number", data: `42`, malformed: true},
		{name: "object", data: `{"text":"hi"}`, malformed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in, protoErr := inboundToCore(proto.Inbound{Type: proto.InboundTypeMessage, Data: json.RawMessage(tc.data)})
			if protoErr != nil {
				t.Fatalf("unexpected protocol error: %+v", protoErr)
			}
			if in.Kind != core.InboundMessage {
				t.Fatalf("unexpected kind: %v", in.Kind)
			}
			if in.Malformed != tc.malformed || in.Text != tc.text {
				t.Fatalf("got malformed=%v text=%q, want malformed=%v text=%q", in.Malformed, in.Text, tc.malformed, tc.text)
			}
		})
	}
}
