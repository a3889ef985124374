package domain

import (
	"slices"
	"strings"
	"time"
)

// Room is one game instance. All methods assume the caller holds the room's lock.
type Room struct {
	Code         string      `json:"code"`
	Mode         DisplayMode `json:"mode"`
	HostConnID   string      `json:"-"`
	HostPlayerID string      `json:"hostPlayerId,omitempty"` // Set in per-player mode only
	HostToken    string      `json:"hostToken"`
	State        State       `json:"state"`
	Players      []*Player   `json:"players"`
	JudgeIndex   int         `json:"judgeIndex"`

	Round       int         `json:"round"`
	TotalRounds int         `json:"totalRounds"`
	RoundConfig RoundConfig `json:"roundConfig"`
	Prompt      string      `json:"prompt"`

	Decks             Decks    `json:"decks"`
	OriginalPrompts   []string `json:"originalPrompts"`
	OriginalResponses []string `json:"originalResponses"`
	Packs             []string `json:"packs"`

	// Submissions maps player id to the cards played this round.
	Submissions map[string][]string `json:"submissions"`
	// RevealOrder is frozen when the reveal starts. It is rebuilt after a restore.
	RevealOrder  []Submission `json:"-"`
	RevealCursor int          `json:"revealCursor"`
	LastResult   *RoundResult `json:"lastResult,omitempty"`

	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
}

// NewRoom creates a room in the lobby with decks built from the selected packs.
func NewRoom(code string, mode DisplayMode, catalog *Catalog, packs []string, totalRounds int) *Room {
	now := time.Now()
	r := &Room{
		Code:         code,
		Mode:         mode,
		State:        StateLobby,
		Players:      make([]*Player, 0),
		JudgeIndex:   -1,
		TotalRounds:  totalRounds,
		Packs:        packs,
		Submissions:  make(map[string][]string),
		CreatedAt:    now,
		LastActivity: now,
	}
	r.rebuildDecks(catalog)
	return r
}

func (r *Room) rebuildDecks(catalog *Catalog) {
	r.Decks = BuildDecks(catalog, r.Packs)
	r.OriginalPrompts = append([]string(nil), r.Decks.Single...)
	r.OriginalResponses = append([]string(nil), r.Decks.Responses...)
}

// Touch records activity on the room
func (r *Room) Touch(at time.Time) {
	r.LastActivity = at
}

// AddPlayer adds a player to the lobby
func (r *Room) AddPlayer(p *Player, maxPlayers int) error {
	if r.State != StateLobby {
		return ErrGameInProgress
	}
	if maxPlayers > 0 && len(r.Players) >= maxPlayers {
		return ErrRoomFull
	}
	if r.NameTaken(p.Name) {
		return ErrNameTaken
	}
	r.Players = append(r.Players, p)
	return nil
}

// NameTaken reports whether a player already uses name, ignoring case.
func (r *Room) NameTaken(name string) bool {
	for _, p := range r.Players {
		if strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

// GetPlayer returns a player by ID
func (r *Room) GetPlayer(playerID string) (*Player, error) {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

// IsHost reports whether connID is the room's host connection.
func (r *Room) IsHost(connID string) bool {
	return connID != "" && r.HostConnID == connID
}

// Judge returns the player in the judge slot, re-clamping the slot if players left.
func (r *Room) Judge() *Player {
	if len(r.Players) == 0 {
		return nil
	}
	r.clampJudge()
	return r.Players[r.JudgeIndex]
}

// IsJudge reports whether playerID is the current judge. Outside a round nobody is.
func (r *Room) IsJudge(playerID string) bool {
	if r.State == StateLobby || r.JudgeIndex < 0 {
		return false
	}
	j := r.Judge()
	return j != nil && j.ID == playerID
}

func (r *Room) clampJudge() {
	switch {
	case len(r.Players) == 0:
		r.JudgeIndex = -1
	case r.JudgeIndex < 0 || r.JudgeIndex >= len(r.Players):
		r.JudgeIndex = 0
	}
}

// Removal describes what removing a player did to the round in progress.
type Removal struct {
	Player        *Player
	WasJudge      bool
	JudgeChanged  bool
	RevealStarted bool
	RoundVoided   bool
}

// RemovePlayer drops a player and keeps the round consistent: the judge slot is
// re-clamped, a judge never holds a submission, and a round that can no longer
// finish is voided.
func (r *Room) RemovePlayer(playerID string) (Removal, error) {
	idx := r.indexOf(playerID)
	if idx == -1 {
		return Removal{}, ErrPlayerNotFound
	}

	inRound := r.State.InRound()
	removal := Removal{Player: r.Players[idx]}
	removal.WasJudge = inRound && idx == r.JudgeIndex

	r.Players = slices.Delete(r.Players, idx, idx+1)
	delete(r.Submissions, playerID)
	r.dropFromReveal(playerID)

	// Departures before the judge slot shift it so the judge stays the same person.
	if idx < r.JudgeIndex {
		r.JudgeIndex--
	}
	if len(r.Players) == 0 {
		r.JudgeIndex = -1
	} else if r.JudgeIndex >= len(r.Players) {
		r.JudgeIndex = 0
	}

	if !inRound {
		return removal, nil
	}

	if judge := r.Judge(); judge != nil && removal.WasJudge {
		removal.JudgeChanged = true
		if cards, ok := r.Submissions[judge.ID]; ok {
			// The new judge cannot judge their own cards.
			judge.Hand = append(judge.Hand, cards...)
			delete(r.Submissions, judge.ID)
			r.dropFromReveal(judge.ID)
		}
		if r.State == StateReveal {
			// The new judge has not seen anything yet.
			r.RevealCursor = 0
		}
	}

	switch {
	case len(r.Players) < 2:
		r.voidRound()
		removal.RoundVoided = true
	case r.State == StatePlaying && r.AllSubmitted():
		r.StartReveal()
		removal.RevealStarted = true
	case r.State == StateReveal && len(r.RevealOrder) == 0:
		r.voidRound()
		removal.RoundVoided = true
	}

	return removal, nil
}

func (r *Room) dropFromReveal(playerID string) {
	for i, s := range r.RevealOrder {
		if s.PlayerID != playerID {
			continue
		}
		r.RevealOrder = append(r.RevealOrder[:i], r.RevealOrder[i+1:]...)
		if i < r.RevealCursor {
			r.RevealCursor--
		}
		return
	}
}

// PlayerInfoList returns the public view of every player in join order
func (r *Room) PlayerInfoList() []PlayerInfo {
	players := make([]PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.ToInfo())
	}
	return players
}

// HasLiveConnection reports whether the host or any player is connected.
func (r *Room) HasLiveConnection() bool {
	if r.HostConnID != "" {
		return true
	}
	for _, p := range r.Players {
		if p.IsConnected() {
			return true
		}
	}
	return false
}

// ConnIDs returns the connection of the host plus every connected player, once each.
func (r *Room) ConnIDs() []string {
	ids := make([]string, 0, len(r.Players)+1)
	seen := make(map[string]bool, len(r.Players)+1)
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	add(r.HostConnID)
	for _, p := range r.Players {
		add(p.ConnID)
	}
	return ids
}

// Clone returns a deep copy of the room.
func (r *Room) Clone() *Room {
	c := *r
	c.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		c.Players[i] = p.clone()
	}
	c.Decks = Decks{
		Single:    append([]string(nil), r.Decks.Single...),
		Double:    append([]string(nil), r.Decks.Double...),
		Triple:    append([]string(nil), r.Decks.Triple...),
		Responses: append([]string(nil), r.Decks.Responses...),
	}
	c.OriginalPrompts = append([]string(nil), r.OriginalPrompts...)
	c.OriginalResponses = append([]string(nil), r.OriginalResponses...)
	c.Packs = append([]string(nil), r.Packs...)
	c.Submissions = make(map[string][]string, len(r.Submissions))
	for id, cards := range r.Submissions {
		c.Submissions[id] = append([]string(nil), cards...)
	}
	c.RevealOrder = make([]Submission, len(r.RevealOrder))
	for i, s := range r.RevealOrder {
		c.RevealOrder[i] = Submission{PlayerID: s.PlayerID, Cards: append([]string(nil), s.Cards...)}
	}
	if r.LastResult != nil {
		res := *r.LastResult
		res.Cards = append([]string(nil), r.LastResult.Cards...)
		c.LastResult = &res
	}
	return &c
}

// Restored prepares a room loaded from a snapshot. Connections from a previous process
// mean nothing, so every player starts disconnected, and a reveal in progress starts over.
func (r *Room) Restored(at time.Time) {
	r.HostConnID = ""
	for _, p := range r.Players {
		p.Disconnect(at)
	}
	if r.Submissions == nil {
		r.Submissions = make(map[string][]string)
	}
	if r.State == StateReveal {
		r.StartReveal()
		if len(r.RevealOrder) == 0 {
			r.voidRound()
		}
	}
}
