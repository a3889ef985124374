package domain

import "time"

// Player represents a player in a room. ID is stable for the player's lifetime;
// ConnID changes on every reconnect and is never persisted.
type Player struct {
	ID             string    `json:"id"`
	ConnID         string    `json:"-"`
	Name           string    `json:"name"`
	Avatar         string    `json:"avatar"`
	Score          int       `json:"score"`
	Hand           []string  `json:"hand"`
	SessionToken   string    `json:"sessionToken"`
	Disconnected   bool      `json:"disconnected"`
	DisconnectedAt time.Time `json:"disconnectedAt,omitempty"`
	JoinedAt       time.Time `json:"joinedAt"`
}

// NewPlayer creates a new connected player with an empty hand
func NewPlayer(id, connID, name, avatar, token string) *Player {
	return &Player{
		ID:           id,
		ConnID:       connID,
		Name:         name,
		Avatar:       avatar,
		Hand:         make([]string, 0),
		SessionToken: token,
		JoinedAt:     time.Now(),
	}
}

// IsConnected returns true if the player is currently connected
func (p *Player) IsConnected() bool {
	return !p.Disconnected && p.ConnID != ""
}

// Disconnect marks the player as disconnected
func (p *Player) Disconnect(at time.Time) {
	p.ConnID = ""
	p.Disconnected = true
	p.DisconnectedAt = at
}

// Reconnect binds the player to a new connection
func (p *Player) Reconnect(connID string) {
	p.ConnID = connID
	p.Disconnected = false
	p.DisconnectedAt = time.Time{}
}

// ResetForNewGame clears score and hand for "play again"
func (p *Player) ResetForNewGame() {
	p.Score = 0
	p.Hand = make([]string, 0)
}

func (p *Player) clone() *Player {
	c := *p
	c.Hand = append([]string(nil), p.Hand...)
	return &c
}

// PlayerInfo is the public view of a player (no hand, no token)
type PlayerInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar"`
	Score        int    `json:"score"`
	Disconnected bool   `json:"disconnected,omitempty"`
}

// ToInfo converts a Player to PlayerInfo
func (p *Player) ToInfo() PlayerInfo {
	return PlayerInfo{
		ID:           p.ID,
		Name:         p.Name,
		Avatar:       p.Avatar,
		Score:        p.Score,
		Disconnected: p.Disconnected,
	}
}

// Standing is one leaderboard row.
type Standing struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
	Score    int    `json:"score"`
}
