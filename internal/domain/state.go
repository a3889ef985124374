package domain

// State is where a room is in the round cycle.
type State string

const (
	StateLobby       State = "LOBBY"        // Waiting for players to join
	StatePlaying     State = "PLAYING"      // Players submitting cards
	StateReveal      State = "REVEAL"       // Submissions revealed one by one
	StateRoundWinner State = "ROUND_WINNER" // Winner picked, scores shown
	StateEnded       State = "ENDED"        // Final leaderboard
)

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// InRound reports whether a round is underway.
func (s State) InRound() bool {
	return s == StatePlaying || s == StateReveal
}

// DisplayMode selects how state is fanned out to clients.
type DisplayMode string

const (
	// DisplayShared is "TV mode": a host screen shows the shared view, phones hold hands.
	DisplayShared DisplayMode = "SHARED"
	// DisplayPerPlayer is "phone party mode": every player, host included, gets the full view.
	DisplayPerPlayer DisplayMode = "PER_PLAYER"
)

// Valid reports whether m is a known display mode.
func (m DisplayMode) Valid() bool {
	return m == DisplayShared || m == DisplayPerPlayer
}
