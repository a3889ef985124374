package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"trashtalk/internal/domain"
	"trashtalk/internal/ratelimit"
	"trashtalk/internal/token"
)

// Intent types accepted from clients
const (
	IntentCreateGame  = "create_game"
	IntentJoinGame    = "join_game"
	IntentStartGame   = "start_game"
	IntentSubmitCards = "submit_cards"
	IntentRevealNext  = "reveal_next"
	IntentPickWinner  = "pick_winner"
	IntentNextRound   = "next_round"
	IntentLeaveGame   = "leave_game"
	IntentPlayAgain   = "play_again"
	IntentRejoinGame  = "rejoin_game"
	IntentPing        = "ping"
)

// maxCreateAttempts bounds retries when a generated room code is taken by a concurrent create
const maxCreateAttempts = 3

// RoomCodes hands out room codes not already taken
type RoomCodes interface {
	Generate(taken func(code string) bool) (string, error)
}

// Conn is a client connection the gateway can push events to. Send must not block.
type Conn interface {
	ID() string
	Send(event *domain.Event) error
}

// Intent is one inbound client request
type Intent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CreateGamePayload is the payload of create_game
type CreateGamePayload struct {
	Mode     domain.DisplayMode `json:"mode"`
	Packs    []string           `json:"packs"`
	HostName string             `json:"hostName"`
}

// JoinGamePayload is the payload of join_game
type JoinGamePayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

// RejoinGamePayload is the payload of rejoin_game
type RejoinGamePayload struct {
	SessionToken string `json:"sessionToken"`
}

// binding ties a connection to the seat it occupies
type binding struct {
	conn     Conn
	code     string
	playerID string
	token    string
	host     bool
}

// GatewayConfig holds the game content and rules shared by every room
type GatewayConfig struct {
	Rules    domain.Rules
	Schedule *domain.Schedule
	Catalog  *domain.Catalog
}

// Gateway routes client intents to rooms and fans results back out. Authorization
// failures are dropped; every other rejection is reported to the sender.
type Gateway struct {
	store    *Store
	limiter  *ratelimit.Limiter
	tokens   *token.Issuer
	codes    RoomCodes
	rules    domain.Rules
	schedule *domain.Schedule
	catalog  *domain.Catalog
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[string]*binding
}

// NewGateway creates a gateway and registers it for the store's lifecycle hooks
func NewGateway(store *Store, limiter *ratelimit.Limiter, tokens *token.Issuer, codes RoomCodes, cfg GatewayConfig, logger *slog.Logger) *Gateway {
	g := &Gateway{
		store:    store,
		limiter:  limiter,
		tokens:   tokens,
		codes:    codes,
		rules:    cfg.Rules,
		schedule: cfg.Schedule,
		catalog:  cfg.Catalog,
		logger:   logger.With("component", "gateway"),
		conns:    make(map[string]*binding),
	}
	store.SetHooks(g)
	return g
}

// Connect registers a new connection
func (g *Gateway) Connect(conn Conn) {
	g.mu.Lock()
	g.conns[conn.ID()] = &binding{conn: conn}
	g.mu.Unlock()

	g.logger.Debug("connection opened", "connID", conn.ID())
}

// ConnectionCount returns the number of open connections
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

func (g *Gateway) lookup(connID string) (binding, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.conns[connID]
	if !ok {
		return binding{}, false
	}
	return *b, true
}

func (g *Gateway) bind(connID, code, playerID, tok string, host bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if b, ok := g.conns[connID]; ok {
		b.code, b.playerID, b.token, b.host = code, playerID, tok, host
	}
}

func (g *Gateway) unbind(connID string) {
	g.bind(connID, "", "", "", false)
}

// releaseRoom detaches every connection still bound to a closed room
func (g *Gateway) releaseRoom(code string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, b := range g.conns {
		if b.code == code {
			b.code, b.playerID, b.token, b.host = "", "", "", false
		}
	}
}

// Disconnect handles a closed connection. A host takes the room down with them; a
// player with a session token keeps their seat for the grace period; anyone else is
// removed at once.
func (g *Gateway) Disconnect(connID string) {
	g.mu.Lock()
	b, ok := g.conns[connID]
	delete(g.conns, connID)
	g.mu.Unlock()
	g.limiter.Forget(connID)

	if !ok {
		return
	}
	g.logger.Debug("connection closed", "connID", connID, "roomCode", b.code)
	if b.code == "" {
		return
	}

	switch {
	case b.host:
		g.closeRoom(b.code, ReasonHostDisconnected)
	case b.token != "":
		if err := g.store.MarkDisconnected(b.code, b.playerID, b.token); err != nil {
			g.logger.Debug("disconnect for unknown seat", "roomCode", b.code, "playerID", b.playerID, "error", err)
		}
	default:
		g.removePlayer(b.code, b.playerID)
	}
}

// Handle processes one intent from connID
func (g *Gateway) Handle(connID string, in Intent) {
	b, ok := g.lookup(connID)
	if !ok {
		return
	}
	if !g.limiter.Allow(connID) {
		g.reject(connID, domain.ErrRateLimited)
		return
	}

	var err error
	switch in.Type {
	case IntentCreateGame:
		err = g.createGame(connID, b, in.Payload)
	case IntentJoinGame:
		err = g.joinGame(connID, b, in.Payload)
	case IntentStartGame:
		err = g.startGame(connID, b)
	case IntentSubmitCards:
		err = g.submitCards(connID, b, in.Payload)
	case IntentRevealNext:
		err = g.revealNext(connID, b)
	case IntentPickWinner:
		err = g.pickWinner(b, in.Payload)
	case IntentNextRound:
		err = g.nextRound(connID, b)
	case IntentLeaveGame:
		err = g.leaveGame(connID, b)
	case IntentPlayAgain:
		err = g.playAgain(connID, b)
	case IntentRejoinGame:
		g.rejoinGame(connID, b, in.Payload)
	case IntentPing:
		g.send(connID, domain.NewEvent(domain.EventPong, b.code, nil))
	default:
		err = domain.ErrInvalidMessage
	}

	if err != nil {
		g.handleError(connID, in.Type, err)
	}
}

func (g *Gateway) handleError(connID, intent string, err error) {
	switch domain.KindOf(err) {
	case domain.KindAuthorization:
		g.logger.Debug("intent dropped", "connID", connID, "intent", intent, "reason", err)
	case 0:
		g.logger.Error("intent failed", "connID", connID, "intent", intent, "error", err)
		g.reject(connID, err)
	default:
		g.logger.Debug("intent rejected", "connID", connID, "intent", intent, "reason", err)
		g.reject(connID, err)
	}
}

func (g *Gateway) reject(connID string, err error) {
	g.send(connID, domain.NewEvent(domain.EventError, "", domain.MessagePayload{Message: domain.MessageOf(err)}))
}

func (g *Gateway) createGame(connID string, b binding, raw json.RawMessage) error {
	if b.code != "" {
		return domain.ErrAlreadyInRoom
	}

	var req CreateGamePayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return domain.ErrInvalidMessage
		}
	}
	if req.Mode == "" {
		req.Mode = domain.DisplayShared
	}
	if !req.Mode.Valid() {
		return domain.ErrInvalidMessage
	}

	packs := g.catalog.Known(req.Packs)
	if len(packs) == 0 {
		packs = append([]string(nil), g.catalog.Default...)
	}

	var hostName string
	if req.Mode == domain.DisplayPerPlayer {
		if hostName = domain.SanitizeName(req.HostName); hostName == "" {
			return domain.ErrInvalidName
		}
	}

	var (
		room    *domain.Room
		created domain.GameCreatedPayload
	)
	for attempt := 1; ; attempt++ {
		code, err := g.codes.Generate(g.store.Exists)
		if err != nil {
			return err
		}
		room, created, err = g.newRoom(connID, code, req.Mode, packs, hostName)
		if err != nil {
			return err
		}
		err = g.store.Create(room)
		if err == nil {
			break
		}
		// Another create claimed the code between Generate and Create
		if !errors.Is(err, domain.ErrRoomExists) || attempt == maxCreateAttempts {
			return err
		}
	}

	code, playerID, tok := room.Code, room.HostPlayerID, room.HostToken
	g.bind(connID, code, playerID, tok, true)
	g.send(connID, domain.NewEvent(domain.EventGameCreated, code, created))

	g.logger.Info("game created", "roomCode", code, "mode", req.Mode, "packs", packs)
	return nil
}

// newRoom builds a lobby for code with the creating connection as host
func (g *Gateway) newRoom(connID, code string, mode domain.DisplayMode, packs []string, hostName string) (*domain.Room, domain.GameCreatedPayload, error) {
	room := domain.NewRoom(code, mode, g.catalog, packs, g.schedule.TotalRounds)
	room.HostConnID = connID

	created := domain.GameCreatedPayload{
		RoomCode:      code,
		Mode:          mode,
		Packs:         g.catalog.Icons(packs),
		SelectedPacks: packs,
	}

	var playerID string
	if mode == domain.DisplayPerPlayer {
		playerID = uuid.NewString()
	}
	tok, err := g.tokens.Issue(code, playerID, true)
	if err != nil {
		return nil, created, fmt.Errorf("issue host token: %w", err)
	}
	room.HostToken = tok
	created.SessionToken = tok

	if playerID != "" {
		host := domain.NewPlayer(playerID, connID, hostName, domain.RandomAvatar(), tok)
		if err := room.AddPlayer(host, g.rules.MaxPlayers); err != nil {
			return nil, created, err
		}
		room.HostPlayerID = playerID
		created.HostName = host.Name
		created.HostAvatar = host.Avatar
		created.PlayerID = playerID
	}
	return room, created, nil
}

func (g *Gateway) joinGame(connID string, b binding, raw json.RawMessage) error {
	if b.code != "" {
		return domain.ErrAlreadyInRoom
	}

	var req JoinGamePayload
	if err := json.Unmarshal(raw, &req); err != nil {
		return domain.ErrInvalidMessage
	}
	name := domain.SanitizeName(req.PlayerName)
	if name == "" {
		return domain.ErrInvalidName
	}
	code := domain.NormalizeRoomCode(req.RoomCode)
	if !domain.ValidRoomCode(code) {
		return domain.ErrInvalidRoomCode
	}

	playerID := uuid.NewString()
	tok, err := g.tokens.Issue(code, playerID, false)
	if err != nil {
		return fmt.Errorf("issue session token: %w", err)
	}

	return g.store.Update(code, func(room *domain.Room) error {
		p := domain.NewPlayer(playerID, connID, name, domain.RandomAvatar(), tok)
		if err := room.AddPlayer(p, g.rules.MaxPlayers); err != nil {
			return err
		}
		g.bind(connID, code, playerID, tok, false)

		g.send(connID, domain.NewEvent(domain.EventJoinedSuccess, code, domain.JoinedPayload{
			RoomCode:     code,
			PlayerID:     playerID,
			PlayerName:   p.Name,
			Avatar:       p.Avatar,
			Packs:        g.catalog.Icons(room.Packs),
			SessionToken: tok,
		}))

		joined := domain.PlayerJoinedPayload{
			PlayerName:  p.Name,
			Avatar:      p.Avatar,
			PlayerCount: len(room.Players),
		}
		if room.Mode == domain.DisplayPerPlayer {
			joined.Players = room.PlayerInfoList()
		}
		g.emitToRoom(room, domain.EventPlayerJoined, joined)

		g.logger.Info("player joined", "roomCode", code, "playerID", playerID, "players", len(room.Players))
		return nil
	})
}

func (g *Gateway) startGame(connID string, b binding) error {
	if b.code == "" {
		return domain.ErrNotInRoom
	}
	return g.store.Update(b.code, func(room *domain.Room) error {
		if !room.IsHost(connID) {
			return domain.ErrNotHost
		}
		if room.State != domain.StateLobby {
			return domain.ErrInvalidState
		}
		if need := max(g.rules.MinPlayers, 2); len(room.Players) < need {
			return &domain.Error{Kind: domain.KindCapacity, Message: fmt.Sprintf("Need at least %d players!", need)}
		}
		if err := room.StartRound(g.schedule, g.rules); err != nil {
			return err
		}

		if room.Mode == domain.DisplayPerPlayer {
			for _, p := range room.Players {
				g.send(p.ConnID, domain.NewEvent(domain.EventGameStarting, room.Code, nil))
			}
		}
		g.fanoutRoundStart(room)

		g.logger.Info("game started", "roomCode", room.Code, "players", len(room.Players))
		return nil
	})
}

func (g *Gateway) submitCards(connID string, b binding, raw json.RawMessage) error {
	if b.code == "" || b.playerID == "" {
		return domain.ErrNotInRoom
	}
	indices, err := decodeIndices(raw)
	if err != nil {
		return err
	}

	return g.store.Update(b.code, func(room *domain.Room) error {
		cards, err := room.Submit(b.playerID, indices)
		if err != nil {
			return err
		}
		p, _ := room.GetPlayer(b.playerID)

		g.send(connID, domain.NewEvent(domain.EventCardSubmitted, room.Code, domain.CardSubmittedPayload{
			Cards: cloneCards(cards),
			Hand:  cloneCards(p.Hand),
		}))
		g.emitToRoom(room, domain.EventPlayerSubmitted, domain.SubmissionProgressPayload{
			PlayerName:     p.Name,
			PlayerAvatar:   p.Avatar,
			SubmittedCount: room.SubmittedCount(),
			TotalPlayers:   room.ExpectedSubmissions(),
		})

		if room.AllSubmitted() {
			room.StartReveal()
			g.fanoutRevealStart(room)
		}
		return nil
	})
}

func (g *Gateway) revealNext(connID string, b binding) error {
	if b.code == "" {
		return domain.ErrNotInRoom
	}
	return g.store.Update(b.code, func(room *domain.Room) error {
		if !room.CanReveal(connID) {
			return domain.ErrNotRevealer
		}
		if rev, ok := room.RevealNext(); ok {
			g.fanoutCardRevealed(room, rev)
		}
		return nil
	})
}

func (g *Gateway) pickWinner(b binding, raw json.RawMessage) error {
	if b.code == "" || b.playerID == "" {
		return domain.ErrNotInRoom
	}
	indices, err := decodeIndices(raw)
	if err != nil || len(indices) != 1 {
		return domain.ErrInvalidMessage
	}

	return g.store.Update(b.code, func(room *domain.Room) error {
		result, err := room.PickWinner(b.playerID, indices[0], g.rules.RequireFullReveal)
		if err != nil {
			return err
		}
		g.fanoutRoundWinner(room, result)

		g.logger.Info("round won",
			"roomCode", room.Code,
			"round", room.Round,
			"winner", result.WinnerName,
			"points", result.Points,
		)
		return nil
	})
}

func (g *Gateway) nextRound(connID string, b binding) error {
	if b.code == "" {
		return domain.ErrNotInRoom
	}
	return g.store.Update(b.code, func(room *domain.Room) error {
		if !room.IsHost(connID) {
			return domain.ErrNotHost
		}
		ended, err := room.NextRound(g.schedule, g.rules)
		if err != nil {
			return err
		}
		if ended {
			g.fanoutGameOver(room, room.Leaderboard())
			g.logger.Info("game over", "roomCode", room.Code, "rounds", room.Round)
			return nil
		}
		g.fanoutRoundStart(room)
		return nil
	})
}

func (g *Gateway) playAgain(connID string, b binding) error {
	if b.code == "" {
		return domain.ErrNotInRoom
	}
	return g.store.Update(b.code, func(room *domain.Room) error {
		if !room.IsHost(connID) {
			return domain.ErrNotHost
		}
		if err := room.PlayAgain(g.catalog); err != nil {
			return err
		}
		g.fanoutBackToLobby(room)
		return nil
	})
}

func (g *Gateway) leaveGame(connID string, b binding) error {
	if b.code == "" {
		return nil
	}
	g.unbind(connID)

	if b.host {
		g.closeRoom(b.code, ReasonHostLeft)
		return nil
	}
	g.removePlayer(b.code, b.playerID)
	return nil
}

func (g *Gateway) removePlayer(code, playerID string) {
	err := g.store.Update(code, func(room *domain.Room) error {
		removal, err := room.RemovePlayer(playerID)
		if err != nil {
			return err
		}
		g.logger.Info("player left", "roomCode", code, "playerID", playerID, "players", len(room.Players))
		g.announceRemoval(room, removal)
		return nil
	})
	if err != nil {
		g.logger.Debug("remove player skipped", "roomCode", code, "playerID", playerID, "error", err)
	}
}

func (g *Gateway) rejoinGame(connID string, b binding, raw json.RawMessage) {
	fail := func(err error) {
		g.logger.Debug("rejoin failed", "connID", connID, "reason", err)
		g.send(connID, domain.NewEvent(domain.EventRejoinFailed, "", domain.MessagePayload{Message: domain.MessageOf(err)}))
	}

	if b.code != "" {
		fail(domain.ErrAlreadyInRoom)
		return
	}
	var req RejoinGamePayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			fail(domain.ErrInvalidMessage)
			return
		}
	}
	if req.SessionToken == "" {
		fail(domain.ErrNoSessionToken)
		return
	}
	// The pending seat table decides who may rejoin. Tokens signed before a restart
	// with a generated secret no longer verify but still hold their restored seat.
	if _, err := g.tokens.Verify(req.SessionToken); err != nil {
		g.logger.Debug("session token did not verify", "connID", connID, "error", err)
	}

	seat, err := g.store.Reconnect(connID, req.SessionToken)
	if err != nil {
		fail(err)
		return
	}
	g.bind(connID, seat.Code, seat.PlayerID, req.SessionToken, seat.Host)

	err = g.store.Update(seat.Code, func(room *domain.Room) error {
		g.send(connID, domain.NewEvent(domain.EventRejoinSuccess, room.Code, g.rejoinPayload(room, seat)))

		if p, err := room.GetPlayer(seat.PlayerID); err == nil {
			status := domain.PlayerStatusPayload{PlayerID: p.ID, PlayerName: p.Name}
			g.emitToRoomExcept(room, connID, domain.EventPlayerReconnected, status)
		}
		return nil
	})
	if err != nil {
		g.unbind(connID)
		fail(domain.ErrSessionNotFound)
		return
	}

	g.logger.Info("rejoined", "roomCode", seat.Code, "playerID", seat.PlayerID, "host", seat.Host)
}

func (g *Gateway) rejoinPayload(room *domain.Room, seat *Rejoin) domain.RejoinPayload {
	cardsRequired := room.RoundConfig.CardsRequired
	if cardsRequired == 0 {
		cardsRequired = 1
	}
	payload := domain.RejoinPayload{
		RoomCode:      room.Code,
		Packs:         g.catalog.Icons(room.Packs),
		Mode:          room.Mode,
		State:         room.State,
		Round:         room.Round,
		MaxRounds:     room.TotalRounds,
		Prompt:        room.Prompt,
		Hand:          []string{},
		IsHost:        seat.Host,
		CardsRequired: cardsRequired,
		Players:       room.PlayerInfoList(),
	}
	if p, err := room.GetPlayer(seat.PlayerID); err == nil {
		payload.PlayerID = p.ID
		payload.PlayerName = p.Name
		payload.Avatar = p.Avatar
		payload.Hand = cloneCards(p.Hand)
		payload.IsJudge = room.IsJudge(p.ID)
		payload.HasSubmitted = room.HasSubmitted(p.ID)
	}
	return payload
}

// closeRoom deletes a room and tells everyone still in it why
func (g *Gateway) closeRoom(code, reason string) {
	room, ok := g.store.Delete(code)
	if !ok {
		return
	}
	g.logger.Info("game ended", "roomCode", code, "reason", reason)
	g.RoomClosed(room, reason)
}

// RoomClosed notifies the room's connections and releases them
func (g *Gateway) RoomClosed(room *domain.Room, reason string) {
	ev := domain.NewEvent(domain.EventGameEnded, room.Code, domain.MessagePayload{Message: reason})
	for _, id := range room.ConnIDs() {
		g.send(id, ev)
	}
	g.releaseRoom(room.Code)
}

// PlayerDisconnected tells the room a player dropped and may come back
func (g *Gateway) PlayerDisconnected(room *domain.Room, p *domain.Player) {
	g.logger.Info("player disconnected", "roomCode", room.Code, "playerID", p.ID)
	g.emitToRoom(room, domain.EventPlayerDisconnected, domain.PlayerStatusPayload{PlayerID: p.ID, PlayerName: p.Name})
}

// PlayerDropped announces a player whose grace period ran out
func (g *Gateway) PlayerDropped(room *domain.Room, removal domain.Removal) {
	g.announceRemoval(room, removal)
}

func decodeIndices(raw json.RawMessage) ([]int, error) {
	var many []int
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}
	var one int
	if err := json.Unmarshal(raw, &one); err == nil {
		return []int{one}, nil
	}
	var obj struct {
		Indices []int `json:"indices"`
		Index   *int  `json:"index"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		switch {
		case obj.Indices != nil:
			return obj.Indices, nil
		case obj.Index != nil:
			return []int{*obj.Index}, nil
		}
	}
	return nil, domain.ErrInvalidMessage
}

var _ Hooks = (*Gateway)(nil)
