package domain

import "time"

// EventType represents the type of a server notification
type EventType string

const (
	EventGameCreated        EventType = "game_created"
	EventJoinedSuccess      EventType = "joined_success"
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerLeft         EventType = "player_left"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventGameStarting       EventType = "game_starting"
	EventRoundStart         EventType = "round_start"
	EventYourTurn           EventType = "your_turn"
	EventCardSubmitted      EventType = "card_submitted"
	EventPlayerSubmitted    EventType = "player_submitted"
	EventStartReveal        EventType = "start_reveal"
	EventJudgeReveal        EventType = "judge_reveal"
	EventWatchReveal        EventType = "watch_reveal"
	EventCardRevealed       EventType = "card_revealed"
	EventRoundWinner        EventType = "round_winner"
	EventGameOver           EventType = "game_over"
	EventBackToLobby        EventType = "back_to_lobby"
	EventResetToLobby       EventType = "reset_to_lobby"
	EventRejoinSuccess      EventType = "rejoin_success"
	EventRejoinFailed       EventType = "rejoin_failed"
	EventGameEnded          EventType = "game_ended"
	EventError              EventType = "error_msg"
	EventPong               EventType = "pong"
)

// Event is one notification sent to a connection
type Event struct {
	Type      EventType   `json:"type"`
	RoomCode  string      `json:"roomCode,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new event
func NewEvent(eventType EventType, roomCode string, payload interface{}) *Event {
	return &Event{
		Type:      eventType,
		RoomCode:  roomCode,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types. Notifications that differ between display modes embed the shared
// part by value and a *PlayerView that is nil on the host screen in shared mode and
// set on every per-player copy.

// PlayerView carries the recipient-specific fields of a notification.
type PlayerView struct {
	IsJudge     bool     `json:"isJudge"`
	IsYou       bool     `json:"isYou,omitempty"`
	IsHost      bool     `json:"isHost,omitempty"`
	Hand        []string `json:"hand,omitempty"`
	PlayerCount int      `json:"playerCount,omitempty"`
}

// MessagePayload carries a human-readable reason
type MessagePayload struct {
	Message string `json:"message"`
}

// GameCreatedPayload is sent to the creator of a room
type GameCreatedPayload struct {
	RoomCode      string      `json:"roomCode"`
	Mode          DisplayMode `json:"mode"`
	HostName      string      `json:"hostName,omitempty"`
	HostAvatar    string      `json:"hostAvatar,omitempty"`
	PlayerID      string      `json:"playerId,omitempty"`
	Packs         string      `json:"packs"`
	SelectedPacks []string    `json:"selectedPacks"`
	SessionToken  string      `json:"sessionToken"`
}

// JoinedPayload is sent to a player who joined a room
type JoinedPayload struct {
	RoomCode     string `json:"roomCode"`
	PlayerID     string `json:"playerId"`
	PlayerName   string `json:"playerName"`
	Avatar       string `json:"avatar"`
	Packs        string `json:"packs"`
	SessionToken string `json:"sessionToken"`
}

// PlayerJoinedPayload announces a new player. The roster is included in per-player mode.
type PlayerJoinedPayload struct {
	PlayerName  string       `json:"playerName"`
	Avatar      string       `json:"avatar"`
	PlayerCount int          `json:"playerCount"`
	Players     []PlayerInfo `json:"players,omitempty"`
}

// PlayerLeftPayload announces a departure
type PlayerLeftPayload struct {
	PlayerName  string `json:"playerName"`
	PlayerCount int    `json:"playerCount"`
}

// PlayerStatusPayload announces a disconnect or reconnect inside the grace period
type PlayerStatusPayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// RoundInfo is the room-wide data of a round
type RoundInfo struct {
	Round         int    `json:"round"`
	MaxRounds     int    `json:"maxRounds"`
	Prompt        string `json:"prompt"`
	JudgeName     string `json:"judgeName"`
	JudgeAvatar   string `json:"judgeAvatar"`
	CardsRequired int    `json:"cardsNeeded"`
	PointValue    int    `json:"pointValue"`
	Label         string `json:"roundLabel"`
}

// RoundStartPayload is sent when a round begins
type RoundStartPayload struct {
	RoundInfo
	Mode DisplayMode `json:"mode"`
	*PlayerView
}

// CardSubmittedPayload confirms a submission to its author
type CardSubmittedPayload struct {
	Cards []string `json:"cards"`
	Hand  []string `json:"hand"`
}

// SubmissionProgressPayload is sent on every accepted submission
type SubmissionProgressPayload struct {
	PlayerName     string `json:"playerName"`
	PlayerAvatar   string `json:"playerAvatar"`
	SubmittedCount int    `json:"submittedCount"`
	TotalPlayers   int    `json:"totalPlayers"`
}

// RevealStartPayload is sent when the reveal begins
type RevealStartPayload struct {
	Prompt          string `json:"prompt"`
	SubmissionCount int    `json:"submissionCount"`
	CardsRequired   int    `json:"cardsNeeded"`
	PointValue      int    `json:"pointValue"`
	*PlayerView
}

// JudgeRevealPayload tells the judge's phone the reveal started in shared mode
type JudgeRevealPayload struct {
	Prompt string `json:"prompt"`
}

// CardRevealedPayload is one revealed submission
type CardRevealedPayload struct {
	Reveal
	*PlayerView
}

// RoundWinnerPayload is sent when a round resolves
type RoundWinnerPayload struct {
	RoundResult
	Scores []Standing `json:"scores"`
	*PlayerView
}

// GameOverPayload is the final leaderboard
type GameOverPayload struct {
	Leaderboard []Standing `json:"leaderboard"`
	Winner      *Standing  `json:"winner,omitempty"`
	*PlayerView
}

// LobbyPayload is sent when an ended game returns to the lobby
type LobbyPayload struct {
	Players []PlayerInfo `json:"players"`
	Mode    DisplayMode  `json:"mode"`
	*PlayerView
}

// RejoinPayload restores a client after a reconnect
type RejoinPayload struct {
	RoomCode      string       `json:"roomCode"`
	PlayerID      string       `json:"playerId,omitempty"`
	PlayerName    string       `json:"playerName,omitempty"`
	Avatar        string       `json:"avatar,omitempty"`
	Packs         string       `json:"packs"`
	Mode          DisplayMode  `json:"mode"`
	State         State        `json:"gameState"`
	Round         int          `json:"currentRound"`
	MaxRounds     int          `json:"maxRounds"`
	Prompt        string       `json:"prompt"`
	Hand          []string     `json:"hand"`
	IsJudge       bool         `json:"isJudge"`
	IsHost        bool         `json:"isHost"`
	HasSubmitted  bool         `json:"hasSubmitted"`
	CardsRequired int          `json:"cardsNeeded"`
	Players       []PlayerInfo `json:"players"`
}
