package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"trashtalk/internal/domain"
	"trashtalk/internal/snapshot"
)

// Reasons reported when the store closes a room
const (
	ReasonExpired          = "Game expired due to inactivity"
	ReasonEmpty            = "Everyone left the game"
	ReasonHostDisconnected = "Host disconnected"
	ReasonHostLeft         = "Host left the game"
	ReasonShutdown         = "Server is restarting"
)

// Hooks receives room lifecycle notifications. PlayerDisconnected and PlayerDropped run
// with the room locked; RoomClosed runs after the room left the table.
type Hooks interface {
	RoomClosed(room *domain.Room, reason string)
	PlayerDisconnected(room *domain.Room, player *domain.Player)
	PlayerDropped(room *domain.Room, removal domain.Removal)
}

type noHooks struct{}

func (noHooks) RoomClosed(*domain.Room, string)                 {}
func (noHooks) PlayerDisconnected(*domain.Room, *domain.Player) {}
func (noHooks) PlayerDropped(*domain.Room, domain.Removal)      {}

// StoreConfig holds the store's timings
type StoreConfig struct {
	Expiration       time.Duration
	SweepInterval    time.Duration
	GracePeriod      time.Duration
	SnapshotInterval time.Duration
}

// Rejoin identifies the seat a reconnecting connection was bound to
type Rejoin struct {
	Code     string
	PlayerID string
	Host     bool
}

type slot struct {
	mu     sync.Mutex
	room   *domain.Room
	closed bool
}

type graceEntry struct {
	code     string
	playerID string
	host     bool
	timer    *time.Timer
}

// Store is the authoritative table of rooms. Each room has its own lock; callbacks
// passed to Update and View run with it held and must not call back into the store
// for the same room.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*slot

	graceMu sync.Mutex
	pending map[string]*graceEntry // session token -> seat awaiting reconnect

	cfg       StoreConfig
	hooks     Hooks
	snapshots snapshot.Store
	logger    *slog.Logger
	now       func() time.Time

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStore creates an empty store. snapshots may be nil to disable persistence.
func NewStore(cfg StoreConfig, snapshots snapshot.Store, logger *slog.Logger) *Store {
	return &Store{
		rooms:     make(map[string]*slot),
		pending:   make(map[string]*graceEntry),
		cfg:       cfg,
		hooks:     noHooks{},
		snapshots: snapshots,
		logger:    logger.With("component", "store"),
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// SetHooks registers the lifecycle listener. Call before Start.
func (s *Store) SetHooks(h Hooks) {
	s.hooks = h
}

// Create adds a room under its code
func (s *Store) Create(room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.Code]; exists {
		return domain.ErrRoomExists
	}
	room.Touch(s.now())
	s.rooms[room.Code] = &slot{room: room}

	s.logger.Info("room created", "roomCode", room.Code, "mode", room.Mode)
	return nil
}

func (s *Store) slot(code string) (*slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.rooms[code]
	return sl, ok
}

// Exists reports whether a room with the given code exists
func (s *Store) Exists(code string) bool {
	_, ok := s.slot(code)
	return ok
}

// Get returns a copy of the room
func (s *Store) Get(code string) (*domain.Room, error) {
	var c *domain.Room
	err := s.View(code, func(room *domain.Room) {
		c = room.Clone()
	})
	return c, err
}

// View runs fn with the room locked without counting as activity
func (s *Store) View(code string, fn func(room *domain.Room)) error {
	sl, ok := s.slot(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.closed {
		return domain.ErrRoomNotFound
	}
	fn(sl.room)
	return nil
}

// Update runs fn with the room locked. When fn succeeds the room's activity is refreshed.
func (s *Store) Update(code string, fn func(room *domain.Room) error) error {
	sl, ok := s.slot(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if sl.closed {
		return domain.ErrRoomNotFound
	}
	if err := fn(sl.room); err != nil {
		return err
	}
	sl.room.Touch(s.now())
	return nil
}

// TouchActivity refreshes the room's last activity
func (s *Store) TouchActivity(code string) {
	_ = s.Update(code, func(*domain.Room) error { return nil })
}

// Delete removes a room and cancels its pending reconnects. It returns the removed room.
// It must not be called from inside Update or View.
func (s *Store) Delete(code string) (*domain.Room, bool) {
	s.mu.Lock()
	sl, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	sl.mu.Lock()
	sl.closed = true
	room := sl.room
	sl.mu.Unlock()

	s.cancelGrace(code)
	s.logger.Info("room deleted", "roomCode", code)
	return room, true
}

// List returns every room code in sorted order
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Count returns the number of rooms
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// PlayerCount returns the total number of players across all rooms
func (s *Store) PlayerCount() int {
	total := 0
	for _, code := range s.List() {
		_ = s.View(code, func(room *domain.Room) {
			total += len(room.Players)
		})
	}
	return total
}

// MarkDisconnected flags the player as gone and gives them the grace period to come
// back with token before they are removed.
func (s *Store) MarkDisconnected(code, playerID, token string) error {
	err := s.Update(code, func(room *domain.Room) error {
		p, err := room.GetPlayer(playerID)
		if err != nil {
			return err
		}
		p.Disconnect(s.now())
		s.hooks.PlayerDisconnected(room, p)
		return nil
	})
	if err != nil {
		return err
	}

	s.scheduleGrace(token, &graceEntry{code: code, playerID: playerID})
	return nil
}

func (s *Store) scheduleGrace(token string, e *graceEntry) {
	if token == "" {
		return
	}
	s.graceMu.Lock()
	defer s.graceMu.Unlock()

	if old, ok := s.pending[token]; ok {
		old.timer.Stop()
	}
	e.timer = time.AfterFunc(s.cfg.GracePeriod, func() { s.expire(token, e) })
	s.pending[token] = e
}

// expire runs when a grace timer fires. Whoever removes the pending entry first wins,
// so a reconnect racing the timer either fully succeeds or fully fails.
func (s *Store) expire(token string, e *graceEntry) {
	s.graceMu.Lock()
	if s.pending[token] != e {
		s.graceMu.Unlock()
		return
	}
	delete(s.pending, token)
	s.graceMu.Unlock()

	if e.host {
		if room, ok := s.Delete(e.code); ok {
			s.logger.Info("host did not return", "roomCode", e.code)
			s.hooks.RoomClosed(room, ReasonHostDisconnected)
		}
		return
	}

	err := s.Update(e.code, func(room *domain.Room) error {
		p, err := room.GetPlayer(e.playerID)
		if err != nil || p.IsConnected() {
			return domain.ErrPlayerNotFound
		}
		removal, err := room.RemovePlayer(e.playerID)
		if err != nil {
			return err
		}
		s.logger.Info("player dropped after grace period",
			"roomCode", e.code,
			"playerID", e.playerID,
			"voided", removal.RoundVoided,
		)
		s.hooks.PlayerDropped(room, removal)
		return nil
	})
	if err != nil {
		s.logger.Debug("grace expiry ignored", "roomCode", e.code, "playerID", e.playerID, "error", err)
	}
}

func (s *Store) cancelGrace(code string) {
	s.graceMu.Lock()
	defer s.graceMu.Unlock()
	for token, e := range s.pending {
		if e.code == code {
			e.timer.Stop()
			delete(s.pending, token)
		}
	}
}

// PendingCount returns the number of seats awaiting reconnection
func (s *Store) PendingCount() int {
	s.graceMu.Lock()
	defer s.graceMu.Unlock()
	return len(s.pending)
}

// Reconnect binds connID to the seat held for token. It fails if the token is unknown,
// its grace period ran out, or the room or player is gone.
func (s *Store) Reconnect(connID, token string) (*Rejoin, error) {
	if token == "" {
		return nil, domain.ErrNoSessionToken
	}

	s.graceMu.Lock()
	e, ok := s.pending[token]
	if ok {
		e.timer.Stop()
		delete(s.pending, token)
	}
	s.graceMu.Unlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	err := s.Update(e.code, func(room *domain.Room) error {
		if e.playerID != "" {
			p, err := room.GetPlayer(e.playerID)
			if err != nil || p.SessionToken != token {
				return domain.ErrSessionNotFound
			}
			p.Reconnect(connID)
		}
		if e.host {
			room.HostConnID = connID
		}
		return nil
	})
	if err != nil {
		return nil, domain.ErrSessionNotFound
	}

	s.logger.Info("seat reclaimed", "roomCode", e.code, "playerID", e.playerID, "host", e.host)
	return &Rejoin{Code: e.code, PlayerID: e.playerID, Host: e.host}, nil
}

// Sweep deletes rooms idle past the expiration and rooms nobody is left in.
// It returns the number of rooms removed.
func (s *Store) Sweep() int {
	now := s.now()
	reasons := make(map[string]string)

	for _, code := range s.List() {
		_ = s.View(code, func(room *domain.Room) {
			switch {
			case now.Sub(room.LastActivity) > s.cfg.Expiration:
				reasons[code] = ReasonExpired
			case len(room.Players) == 0 && !room.HasLiveConnection():
				reasons[code] = ReasonEmpty
			}
		})
	}

	removed := 0
	for code, reason := range reasons {
		room, ok := s.Delete(code)
		if !ok {
			continue
		}
		removed++
		s.logger.Info("room swept", "roomCode", code, "reason", reason)
		s.hooks.RoomClosed(room, reason)
	}
	return removed
}

// Persist writes every room to the snapshot store
func (s *Store) Persist(ctx context.Context) error {
	if s.snapshots == nil {
		return nil
	}

	rooms := make(map[string]json.RawMessage)
	for _, code := range s.List() {
		var data []byte
		var err error
		viewErr := s.View(code, func(room *domain.Room) {
			data, err = json.Marshal(room)
		})
		if viewErr != nil {
			continue
		}
		if err != nil {
			return fmt.Errorf("marshal room %s: %w", code, err)
		}
		rooms[code] = data
	}

	if err := s.snapshots.Save(ctx, rooms); err != nil {
		return err
	}
	s.logger.Debug("snapshot saved", "rooms", len(rooms))
	return nil
}

// Restore loads the last snapshot. Rooms past the expiration are skipped; every loaded
// seat waits for its owner to reconnect within the grace period.
func (s *Store) Restore(ctx context.Context) (int, error) {
	if s.snapshots == nil {
		return 0, nil
	}

	saved, err := s.snapshots.Load(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	loaded := 0
	for code, data := range saved {
		var room domain.Room
		if err := json.Unmarshal(data, &room); err != nil {
			s.logger.Warn("skipping unreadable room", "roomCode", code, "error", err)
			continue
		}
		if room.Code == "" || now.Sub(room.LastActivity) > s.cfg.Expiration {
			continue
		}

		room.Restored(now)

		s.mu.Lock()
		_, exists := s.rooms[room.Code]
		if !exists {
			s.rooms[room.Code] = &slot{room: &room}
		}
		s.mu.Unlock()
		if exists {
			continue
		}

		for _, p := range room.Players {
			host := room.HostPlayerID != "" && p.ID == room.HostPlayerID
			s.scheduleGrace(p.SessionToken, &graceEntry{code: room.Code, playerID: p.ID, host: host})
		}
		if room.HostPlayerID == "" {
			s.scheduleGrace(room.HostToken, &graceEntry{code: room.Code, host: true})
		}
		loaded++
	}

	s.logger.Info("snapshot restored", "rooms", loaded, "saved", len(saved))
	return loaded, nil
}

// Start runs the sweep and snapshot loops until Close
func (s *Store) Start() {
	s.wg.Add(1)
	go s.loop(s.cfg.SweepInterval, func() { s.Sweep() })

	if s.snapshots != nil && s.cfg.SnapshotInterval > 0 {
		s.wg.Add(1)
		go s.loop(s.cfg.SnapshotInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SnapshotInterval)
			defer cancel()
			// Failures are retried on the next tick
			if err := s.Persist(ctx); err != nil {
				s.logger.Error("snapshot failed", "error", err)
			}
		})
	}
}

func (s *Store) loop(interval time.Duration, fn func()) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Close stops the background loops and grace timers and writes a final snapshot
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		s.graceMu.Lock()
		for _, e := range s.pending {
			e.timer.Stop()
		}
		s.graceMu.Unlock()

		if s.snapshots != nil {
			err = s.Persist(ctx)
			if cerr := s.snapshots.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}
