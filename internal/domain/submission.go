package domain

// Submission is the set of cards one player played in a round
type Submission struct {
	PlayerID string   `json:"playerId"`
	Cards    []string `json:"cards"`
}

// Reveal is one step of the reveal sequence. Index is the position in the reveal order
// and is what the judge picks by.
type Reveal struct {
	Cards  []string `json:"cards"`
	Index  int      `json:"index"`
	IsLast bool     `json:"isLast"`
}

// RoundResult is the outcome of a finished round. A void round has no winner.
type RoundResult struct {
	Round        int      `json:"round"`
	Prompt       string   `json:"prompt"`
	WinnerID     string   `json:"winnerId,omitempty"`
	WinnerName   string   `json:"winnerName,omitempty"`
	WinnerAvatar string   `json:"winnerAvatar,omitempty"`
	Cards        []string `json:"winningCards,omitempty"`
	Points       int      `json:"pointsWon"`
	Void         bool     `json:"void,omitempty"`
}
