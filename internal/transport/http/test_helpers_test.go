package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/presence-hub/internal/auth"
	"github.com/vovakirdan/presence-hub/internal/config"
	"github.com/vovakirdan/presence-hub/internal/core"
	"github.com/vovakirdan/presence-hub/internal/proto"
	"github.com/vovakirdan/presence-hub/internal/store/sqlite"
)

type testServer struct {
	*httptest.Server
	hub   *core.Hub
	store *sqlite.SQLiteStore
}

// testOutbound mirrors proto.Outbound with the payload left raw.
type testOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	cfg.RateLimit = config.RateLimitConfig{}
	return cfg
}

func startTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	disabledLogger := zerolog.Nop()
	accounts := auth.NewService(auth.Options{
		JWT: &auth.JWTConfig{
			Secret:   []byte("test-secret"),
			Issuer:   "test",
			Audience: "test",
			TTL:      time.Hour,
		},
		Mailer:            auth.NewLogMailer(&disabledLogger),
		VerifyEnabled:     cfg.VerifyEnabled(),
		MinPasswordLength: cfg.Accounts.MinPasswordLength,
	})

	hub, err := core.NewHub(st, accounts, core.Settings{
		NickLimit:          cfg.Limits.Nick,
		MessageLimit:       cfg.Limits.Message,
		DefaultAccessLevel: cfg.Accounts.DefaultAccessLevel,
		MaxNickAttempts:    cfg.Accounts.MaxNickAttempts,
	}, &disabledLogger)
	if err != nil {
		t.Fatalf("failed to create hub: %v", err)
	}

	server, err := NewServer(hub, &cfg, &disabledLogger)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testServer{Server: ts, hub: hub, store: st}
}

func dial(t *testing.T, ctx context.Context, ts *testServer, path string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + path
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil reads envelopes until one matches typ and event.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ, event string) testOutbound {
	t.Helper()

	for {
		var out testOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("waiting for %s/%s: %v", typ, event, err)
		}
		if out.Type == typ && out.Event == event {
			return out
		}
	}
}
