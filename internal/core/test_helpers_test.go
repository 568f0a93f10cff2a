package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/presence-hub/internal/auth"
	"github.com/vovakirdan/presence-hub/internal/store"
	"github.com/vovakirdan/presence-hub/internal/store/sqlite"
)

type testHub struct {
	*Hub
	store  *sqlite.SQLiteStore
	mailer *recordingMailer
}

type recordingMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *recordingMailer) SendVerification(_ context.Context, to, _, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	m.codes[to] = code
	return nil
}

func (m *recordingMailer) code(to string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[to]
}

func testSettings() Settings {
	return Settings{
		NickLimit:          32,
		MessageLimit:       2048,
		DefaultAccessLevel: 3,
		MaxNickAttempts:    8,
	}
}

func newTestHub(t testing.TB) *testHub {
	return newTestHubWith(t, testSettings(), false)
}

func newTestHubWith(t testing.TB, settings Settings, verify bool) *testHub {
	t.Helper()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return newTestHubOn(t, st, st, settings, verify)
}

func newTestHubOn(t testing.TB, st store.Store, db *sqlite.SQLiteStore, settings Settings, verify bool) *testHub {
	t.Helper()

	mailer := &recordingMailer{}
	return &testHub{Hub: newHubMailing(t, st, settings, verify, mailer), store: db, mailer: mailer}
}

func newHubMailing(t testing.TB, st store.Store, settings Settings, verify bool, mailer auth.Mailer) *Hub {
	t.Helper()

	accounts := auth.NewService(auth.Options{
		JWT: &auth.JWTConfig{
			Secret:   []byte("test-secret-change-me"),
			Issuer:   "test",
			Audience: "test",
			TTL:      time.Hour,
		},
		Mailer:            mailer,
		VerifyEnabled:     verify,
		MinPasswordLength: 6,
	})

	hub, err := NewHub(st, accounts, settings, nil)
	if err != nil {
		t.Fatalf("failed to create hub: %v", err)
	}
	return hub
}

// connect attaches a new session and consumes the online list and channel info.
func connect(t testing.TB, ch *Channel, id, addr string) *Session {
	t.Helper()

	s := NewSession(id, addr)
	ch.Connect(context.Background(), s)
	mustEvent(t, s.Events, EventOnline)
	mustEvent(t, s.Events, EventUpdate)
	return s
}

// join claims nick for s and discards the resulting events.
func join(t testing.TB, ch *Channel, s *Session, nick string) {
	t.Helper()

	ch.Handle(context.Background(), s, Inbound{Kind: InboundJoin, Nick: nick})
	if s.Nick() != nick {
		t.Fatalf("expected %s to join as %q, got %q", s.ID, nick, s.Nick())
	}
	drain(s)
}

func runCommand(ch *Channel, s *Session, name string, params map[string]any) {
	ch.Handle(context.Background(), s, Inbound{Kind: InboundCommand, Command: name, Params: params})
}

// drain discards every queued event of s and returns them.
func drain(s *Session) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-s.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func mustEvent(t testing.TB, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNotice waits for an error notice carrying code.
func mustNotice(t testing.TB, s *Session, code string) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		ev := mustEvent(t, s.Events, EventMessage)
		if ev.Notice.Type == NoticeError && ev.Notice.Code == code {
			return ev
		}
	}
	t.Fatalf("expected %s notice not received", code)
	return nil
}

func assertNoErrorNotice(t testing.TB, events []*Event) {
	t.Helper()
	for _, ev := range events {
		if ev.Kind == EventMessage && ev.Notice.Type == NoticeError {
			t.Fatalf("unexpected error notice: %+v", ev.Notice)
		}
	}
}

func countKind(events []*Event, kind EventKind) int {
	n := 0
	for _, ev := range events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
