package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trashtalk/internal/domain"
	"trashtalk/internal/ratelimit"
	"trashtalk/internal/snapshot"
	"trashtalk/internal/token"
)

var testRules = domain.Rules{MinPlayers: 3, MaxPlayers: 4, HandSize: 5, ExtraPerCombo: 1, RequireFullReveal: true}

var testSchedule = &domain.Schedule{
	TotalRounds: 2,
	Phases: []domain.SchedulePhase{
		{Rounds: []int{2}, CardsRequired: 2, Points: 2, Label: "Double Down"},
	},
}

func testCatalog() *domain.Catalog {
	responses := make([]string, 60)
	for i := range responses {
		responses[i] = fmt.Sprintf("response %d", i)
	}
	return &domain.Catalog{
		Packs: map[string]*domain.Pack{
			"base": {
				Name:      "Base",
				Icon:      "🃏",
				Prompts:   []string{"Why is ______ so loud?", "Nobody expects ______.", "I brought ______ to the picnic."},
				Prompts2:  []string{"First ______, then ______."},
				Responses: responses,
			},
		},
		Order:   []string{"base"},
		Default: []string{"base"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeConn records every event the gateway sends to it
type fakeConn struct {
	id     string
	mu     sync.Mutex
	events []*domain.Event
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(ev *domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) count(t domain.EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// last returns the most recent event of type t, or nil
func (c *fakeConn) last(t domain.EventType) *domain.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == t {
			return c.events[i]
		}
	}
	return nil
}

func (c *fakeConn) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// hookRecorder records store lifecycle callbacks
type hookRecorder struct {
	mu           sync.Mutex
	closed       map[string]string
	disconnected []string
	dropped      []domain.Removal
}

func newHookRecorder() *hookRecorder {
	return &hookRecorder{closed: make(map[string]string)}
}

func (h *hookRecorder) RoomClosed(room *domain.Room, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed[room.Code] = reason
}

func (h *hookRecorder) PlayerDisconnected(_ *domain.Room, p *domain.Player) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnected = append(h.disconnected, p.ID)
}

func (h *hookRecorder) PlayerDropped(_ *domain.Room, removal domain.Removal) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropped = append(h.dropped, removal)
}

func (h *hookRecorder) closedReason(code string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	reason, ok := h.closed[code]
	return reason, ok
}

func (h *hookRecorder) droppedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.dropped)
}

type harness struct {
	t     *testing.T
	store *Store
	gw    *Gateway
	conns map[string]*fakeConn
}

type harnessConfig struct {
	store     StoreConfig
	limiter   *ratelimit.Limiter
	snapshots snapshot.Store
	secret    string
}

type harnessOption func(*harnessConfig)

func withGrace(d time.Duration) harnessOption {
	return func(cfg *harnessConfig) { cfg.store.GracePeriod = d }
}

func withRateLimit(window time.Duration, max int) harnessOption {
	return func(cfg *harnessConfig) { cfg.limiter = ratelimit.New(window, max) }
}

func withSnapshots(s snapshot.Store) harnessOption {
	return func(cfg *harnessConfig) { cfg.snapshots = s }
}

// withSecret sets the token signing secret; empty means a random one per harness
func withSecret(secret string) harnessOption {
	return func(cfg *harnessConfig) { cfg.secret = secret }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	cfg := harnessConfig{
		store: StoreConfig{
			Expiration:    time.Hour,
			SweepInterval: time.Minute,
			GracePeriod:   time.Hour,
		},
		limiter: ratelimit.New(time.Second, 1000),
		secret:  "test-secret",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	tokens, err := token.NewIssuer(cfg.secret, time.Hour)
	require.NoError(t, err)

	store := NewStore(cfg.store, cfg.snapshots, discardLogger())
	gw := NewGateway(store, cfg.limiter, tokens, NewCodeGenerator(4, nil), GatewayConfig{
		Rules:    testRules,
		Schedule: testSchedule,
		Catalog:  testCatalog(),
	}, discardLogger())

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	return &harness{t: t, store: store, gw: gw, conns: make(map[string]*fakeConn)}
}

func (h *harness) connect(id string) *fakeConn {
	c := &fakeConn{id: id}
	h.conns[id] = c
	h.gw.Connect(c)
	return c
}

func (h *harness) send(connID, intent string, payload interface{}) {
	h.t.Helper()
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(h.t, err)
		raw = data
	}
	h.gw.Handle(connID, Intent{Type: intent, Payload: raw})
}

func (h *harness) create(mode domain.DisplayMode, hostName string) (string, *fakeConn) {
	h.t.Helper()
	host := h.connect("host")
	h.send("host", IntentCreateGame, CreateGamePayload{Mode: mode, HostName: hostName})

	ev := host.last(domain.EventGameCreated)
	require.NotNil(h.t, ev, "game_created")
	created := ev.Payload.(domain.GameCreatedPayload)
	return created.RoomCode, host
}

func (h *harness) join(code, name string) *fakeConn {
	h.t.Helper()
	c := h.connect("conn-" + name)
	h.send(c.id, IntentJoinGame, JoinGamePayload{RoomCode: code, PlayerName: name})
	require.NotNil(h.t, c.last(domain.EventJoinedSuccess), "%s should have joined", name)
	return c
}

func (h *harness) room(code string) *domain.Room {
	h.t.Helper()
	room, err := h.store.Get(code)
	require.NoError(h.t, err)
	return room
}

func (h *harness) player(code, name string) *domain.Player {
	h.t.Helper()
	for _, p := range h.room(code).Players {
		if p.Name == name {
			return p
		}
	}
	h.t.Fatalf("no player %s", name)
	return nil
}

func (h *harness) errorMessage(c *fakeConn) string {
	h.t.Helper()
	ev := c.last(domain.EventError)
	if ev == nil {
		return ""
	}
	return ev.Payload.(domain.MessagePayload).Message
}
