package domain

import (
	"math/rand"
	"slices"
)

// StartRound enters PLAYING: the judge slot advances, a prompt is drawn and every hand
// is topped up. It starts the first round from the lobby and later rounds from
// ROUND_WINNER.
func (r *Room) StartRound(schedule *Schedule, rules Rules) error {
	switch r.State {
	case StateLobby:
		if len(r.Players) < max(rules.MinPlayers, 2) {
			return ErrNotEnoughPlayers
		}
	case StateRoundWinner:
		if len(r.Players) < 2 {
			return ErrNotEnoughPlayers
		}
	default:
		return ErrInvalidState
	}

	r.Round++
	r.RoundConfig = schedule.For(r.Round)

	// The slot, not the identity, rotates. After departures the modulo lands on
	// whoever occupies the next slot now.
	r.JudgeIndex = (r.JudgeIndex + 1) % len(r.Players)
	if r.JudgeIndex < 0 {
		r.JudgeIndex = 0
	}

	r.Prompt = r.DrawPrompt(r.RoundConfig.CardsRequired)

	target := rules.HandTarget(r.RoundConfig.CardsRequired)
	for _, p := range r.Players {
		r.DealUpTo(p, target)
	}

	r.Submissions = make(map[string][]string)
	r.RevealOrder = nil
	r.RevealCursor = 0
	r.LastResult = nil
	r.State = StatePlaying
	return nil
}

// Submit plays the cards at the given hand indices for playerID. On any rejection the
// hand and the submissions are left untouched.
func (r *Room) Submit(playerID string, indices []int) ([]string, error) {
	if r.State != StatePlaying {
		return nil, ErrInvalidState
	}
	p, err := r.GetPlayer(playerID)
	if err != nil {
		return nil, ErrNotInRoom
	}
	if r.IsJudge(playerID) {
		return nil, ErrJudgeCannotPlay
	}
	if _, ok := r.Submissions[playerID]; ok {
		return nil, ErrAlreadySubmitted
	}
	if len(indices) != r.RoundConfig.CardsRequired {
		return nil, ErrWrongCardCount
	}

	seen := make(map[int]bool, len(indices))
	cards := make([]string, 0, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(p.Hand) || seen[idx] {
			return nil, ErrInvalidCard
		}
		seen[idx] = true
		cards = append(cards, p.Hand[idx])
	}

	// Highest index first so earlier removals don't shift later ones.
	desc := slices.Clone(indices)
	slices.Sort(desc)
	for i := len(desc) - 1; i >= 0; i-- {
		p.Hand = slices.Delete(p.Hand, desc[i], desc[i]+1)
	}

	r.Submissions[playerID] = cards
	return cards, nil
}

// AllSubmitted reports whether every player except the judge has submitted.
func (r *Room) AllSubmitted() bool {
	judge := r.Judge()
	if judge == nil || len(r.Players) < 2 {
		return false
	}
	for _, p := range r.Players {
		if p.ID == judge.ID {
			continue
		}
		if _, ok := r.Submissions[p.ID]; !ok {
			return false
		}
	}
	return true
}

// HasSubmitted reports whether the player has played this round
func (r *Room) HasSubmitted(playerID string) bool {
	_, ok := r.Submissions[playerID]
	return ok
}

// SubmittedCount returns the number of submissions received this round
func (r *Room) SubmittedCount() int {
	return len(r.Submissions)
}

// ExpectedSubmissions returns the number of players who submit this round
func (r *Room) ExpectedSubmissions() int {
	if len(r.Players) == 0 {
		return 0
	}
	return len(r.Players) - 1
}

// StartReveal enters REVEAL and freezes a shuffled reveal order.
func (r *Room) StartReveal() {
	order := make([]Submission, 0, len(r.Submissions))
	for _, p := range r.Players {
		if cards, ok := r.Submissions[p.ID]; ok {
			order = append(order, Submission{PlayerID: p.ID, Cards: cards})
		}
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	r.RevealOrder = order
	r.RevealCursor = 0
	r.State = StateReveal
}

// CanReveal reports whether connID may advance the reveal: the host screen in shared
// mode, the judge's own device in per-player mode.
func (r *Room) CanReveal(connID string) bool {
	if connID == "" || r.State != StateReveal {
		return false
	}
	if r.Mode == DisplayShared {
		return r.HostConnID == connID
	}
	judge := r.Judge()
	return judge != nil && judge.ConnID == connID
}

// RevealNext reveals the next submission. Once everything is revealed it returns false
// and leaves the cursor where it is.
func (r *Room) RevealNext() (Reveal, bool) {
	if r.State != StateReveal || r.RevealCursor >= len(r.RevealOrder) {
		return Reveal{}, false
	}
	s := r.RevealOrder[r.RevealCursor]
	rev := Reveal{
		Cards:  s.Cards,
		Index:  r.RevealCursor,
		IsLast: r.RevealCursor == len(r.RevealOrder)-1,
	}
	r.RevealCursor++
	return rev, true
}

// FullyRevealed reports whether every submission has been shown
func (r *Room) FullyRevealed() bool {
	return r.RevealCursor >= len(r.RevealOrder)
}

// PickWinner credits the submission at index in the reveal order and enters ROUND_WINNER.
func (r *Room) PickWinner(playerID string, index int, requireFullReveal bool) (*RoundResult, error) {
	if r.State != StateReveal {
		return nil, ErrInvalidState
	}
	if !r.IsJudge(playerID) {
		return nil, ErrNotJudge
	}
	if index < 0 || index >= len(r.RevealOrder) {
		return nil, ErrInvalidPick
	}
	if requireFullReveal && !r.FullyRevealed() {
		return nil, ErrRevealIncomplete
	}

	win := r.RevealOrder[index]
	result := &RoundResult{
		Round:    r.Round,
		Prompt:   r.Prompt,
		WinnerID: win.PlayerID,
		Cards:    win.Cards,
		Points:   r.RoundConfig.PointValue,
	}
	if p, err := r.GetPlayer(win.PlayerID); err == nil {
		p.Score += r.RoundConfig.PointValue
		result.WinnerName = p.Name
		result.WinnerAvatar = p.Avatar
	}

	r.LastResult = result
	r.State = StateRoundWinner
	return result, nil
}

// voidRound ends the current round without a winner and hands submitted cards back.
func (r *Room) voidRound() {
	for _, p := range r.Players {
		if cards, ok := r.Submissions[p.ID]; ok {
			p.Hand = append(p.Hand, cards...)
		}
	}
	r.Submissions = make(map[string][]string)
	r.RevealOrder = nil
	r.RevealCursor = 0
	r.LastResult = &RoundResult{Round: r.Round, Prompt: r.Prompt, Void: true}
	r.State = StateRoundWinner
}

// NextRound moves on from ROUND_WINNER. The game ends once the last round has been
// played or fewer than two players remain.
func (r *Room) NextRound(schedule *Schedule, rules Rules) (ended bool, err error) {
	if r.State != StateRoundWinner {
		return false, ErrInvalidState
	}
	if r.Round >= r.TotalRounds || len(r.Players) < 2 {
		r.EndGame()
		return true, nil
	}
	if err := r.StartRound(schedule, rules); err != nil {
		return false, err
	}
	return false, nil
}

// EndGame enters ENDED and returns the final leaderboard.
func (r *Room) EndGame() []Standing {
	r.State = StateEnded
	r.Submissions = make(map[string][]string)
	r.RevealOrder = nil
	r.RevealCursor = 0
	return r.Leaderboard()
}

// Leaderboard returns players by descending score. Ties keep join order.
func (r *Room) Leaderboard() []Standing {
	board := make([]Standing, 0, len(r.Players))
	for _, p := range r.Players {
		board = append(board, Standing{PlayerID: p.ID, Name: p.Name, Avatar: p.Avatar, Score: p.Score})
	}
	slices.SortStableFunc(board, func(a, b Standing) int {
		return b.Score - a.Score
	})
	return board
}

// PlayAgain returns an ended game to the lobby with fresh decks. Players keep their
// identities and session tokens.
func (r *Room) PlayAgain(catalog *Catalog) error {
	if r.State != StateEnded {
		return ErrInvalidState
	}
	r.rebuildDecks(catalog)
	r.Round = 0
	r.JudgeIndex = -1
	r.RoundConfig = RoundConfig{}
	r.Prompt = ""
	r.Submissions = make(map[string][]string)
	r.RevealOrder = nil
	r.RevealCursor = 0
	r.LastResult = nil
	for _, p := range r.Players {
		p.ResetForNewGame()
	}
	r.State = StateLobby
	return nil
}
