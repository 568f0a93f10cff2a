package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/presence-hub/internal/proto"
)

func TestHealthEndpoint(t *testing.T) {
	ts := startTestServer(t, testConfig())

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestChannelPage(t *testing.T) {
	ts := startTestServer(t, testConfig())

	resp, err := ts.Client().Get(ts.URL + "/lobby")
	if err != nil {
		t.Fatalf("page request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `data-channel="lobby"`) || !strings.Contains(string(body), `data-verify-enabled="false"`) {
		t.Fatalf("page not rendered with channel settings: %s", body)
	}
	if _, ok := ts.hub.Lookup("lobby"); !ok {
		t.Fatalf("page request must start the channel")
	}

	resp, err = ts.Client().Get(ts.URL + "/not-a-channel")
	if err != nil {
		t.Fatalf("page request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for invalid channel name, got %d", resp.StatusCode)
	}
}

func TestWebSocketJoinAndMessage(t *testing.T) {
	ts := startTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	connA := dial(t, ctx, ts, "/ws/lobby")
	readUntil(t, ctx, connA, proto.OutboundTypeEvent, "online")
	connB := dial(t, ctx, ts, "/ws/lobby")
	readUntil(t, ctx, connB, proto.OutboundTypeEvent, "online")

	send(t, ctx, connA, proto.InboundTypeJoin, proto.JoinData{Nick: "alice"})

	upd := readUntil(t, ctx, connA, proto.OutboundTypeEvent, "update")
	var update map[string]any
	if err := json.Unmarshal(upd.Data, &update); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	if update["nick"] != "alice" || update["password"] != nil {
		t.Fatalf("unexpected update: %+v", update)
	}

	joined := readUntil(t, ctx, connB, proto.OutboundTypeEvent, "join")
	var peer proto.Peer
	if err := json.Unmarshal(joined.Data, &peer); err != nil {
		t.Fatalf("unmarshal join: %v", err)
	}
	if peer.Nick != "alice" || peer.ID == "" {
		t.Fatalf("unexpected join payload: %+v", peer)
	}

	send(t, ctx, connA, proto.InboundTypeMessage, "hi there")

	msg := readUntil(t, ctx, connB, proto.OutboundTypeEvent, "message")
	var event proto.EventMessage
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("unmarshal event data: %v", err)
	}
	if event.Type != "chat-message" || event.Nick != "alice" || event.Message != "hi there" {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}

func TestWebSocketCommandNotice(t *testing.T) {
	ts := startTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, "/ws")
	send(t, ctx, conn, proto.InboundTypeJoin, nil)
	readUntil(t, ctx, conn, proto.OutboundTypeEvent, "join")

	send(t, ctx, conn, proto.InboundTypeCommand, proto.CommandData{Name: "ban", Params: map[string]any{"id": "x"}})

	msg := readUntil(t, ctx, conn, proto.OutboundTypeEvent, "message")
	var event proto.EventMessage
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("unmarshal event data: %v", err)
	}
	if event.Type != "error-message" || event.Code != "invalid_command_access" {
		t.Fatalf("unexpected notice: %+v", event)
	}
}

func TestWebSocketBannedIsDisconnected(t *testing.T) {
	ts := startTestServer(t, testConfig())
	if err := ts.store.Ban(context.Background(), "127.0.0.1", nil); err != nil {
		t.Fatalf("ban: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, "/ws/lobby")

	msg := readUntil(t, ctx, conn, proto.OutboundTypeEvent, "message")
	var event proto.EventMessage
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		t.Fatalf("unmarshal event data: %v", err)
	}
	if event.Code != "banned" {
		t.Fatalf("expected banned notice, got %+v", event)
	}

	var out testOutbound
	err := wsjson.Read(ctx, conn, &out)
	if status := websocket.CloseStatus(err); status != websocket.StatusPolicyViolation {
		t.Fatalf("expected policy violation close, got %v (%v)", status, err)
	}
}

func TestWebSocketProtocolErrors(t *testing.T) {
	ts := startTestServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, "/ws")
	send(t, ctx, conn, "dance", nil)

	out := readUntil(t, ctx, conn, proto.OutboundTypeError, "")
	if out.Error == nil || out.Error.Code != proto.ErrCodeInvalidMessage {
		t.Fatalf("unexpected error envelope: %+v", out)
	}
}

func TestWebSocketRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.EventsPerSecond = 0.001
	cfg.RateLimit.Burst = 1
	ts := startTestServer(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, ts, "/ws")
	send(t, ctx, conn, proto.InboundTypeJoin, nil)
	send(t, ctx, conn, proto.InboundTypeMessage, "spam")

	out := readUntil(t, ctx, conn, proto.OutboundTypeError, "")
	if out.Error == nil || out.Error.Code != proto.ErrCodeRateLimited {
		t.Fatalf("unexpected error envelope: %+v", out)
	}
}

func TestRedirectServer(t *testing.T) {
	disabledLogger := zerolog.Nop()

	tests := []struct {
		name    string
		tlsAddr string
		want    string
	}{
		{name: "custom port", tlsAddr: ":8443", want: "https://example.com:8443/lobby?x=1"},
		{name: "default port", tlsAddr: ":443", want: "https://example.com/lobby?x=1"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.TLS.Addr = tc.tlsAddr
			server := NewRedirectServer(&cfg, &disabledLogger)

			req := httptest.NewRequest(http.MethodGet, "http://example.com:8080/lobby?x=1", nil)
			resp := httptest.NewRecorder()
			server.Handler.ServeHTTP(resp, req)

			if resp.Code != http.StatusFound {
				t.Fatalf("unexpected status: %d", resp.Code)
			}
			if got := resp.Header().Get("Location"); got != tc.want {
				t.Fatalf("unexpected redirect: got %s want %s", got, tc.want)
			}
		})
	}
}
