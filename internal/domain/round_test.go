package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchedule = &Schedule{
	TotalRounds: 3,
	Phases: []SchedulePhase{
		{Rounds: []int{1}, CardsRequired: 1, Points: 1},
		{Rounds: []int{2}, CardsRequired: 2, Points: 2, Label: "Double Trouble"},
		{Rounds: []int{3}, CardsRequired: 3, Points: 3, Label: "Triple Threat"},
	},
}

var testRules = Rules{MinPlayers: 3, MaxPlayers: 8, HandSize: 7, ExtraPerCombo: 1, RequireFullReveal: true}

var testNames = []string{"Ann", "Bob", "Cat", "Dan", "Eve", "Fay"}

func newTestRoom(t *testing.T, n int, mode DisplayMode) *Room {
	t.Helper()
	room := NewRoom("TEST", mode, testCatalog(40), []string{"base", "extra"}, testSchedule.TotalRounds)
	room.HostConnID = "host"
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("p%d", i+1)
		p := NewPlayer(id, "conn-"+id, testNames[i], "🦊", "tok-"+id)
		require.NoError(t, room.AddPlayer(p, testRules.MaxPlayers))
	}
	return room
}

func firstN(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func submitAll(t *testing.T, room *Room) {
	t.Helper()
	for _, p := range room.Players {
		if room.IsJudge(p.ID) {
			continue
		}
		_, err := room.Submit(p.ID, firstN(room.RoundConfig.CardsRequired))
		require.NoError(t, err)
	}
}

func playRound(t *testing.T, room *Room) *RoundResult {
	t.Helper()
	submitAll(t, room)
	require.True(t, room.AllSubmitted())
	room.StartReveal()
	for {
		if _, ok := room.RevealNext(); !ok {
			break
		}
	}
	res, err := room.PickWinner(room.Judge().ID, 0, true)
	require.NoError(t, err)
	return res
}

func TestStartRound(t *testing.T) {
	t.Run("needs minimum players", func(t *testing.T) {
		room := newTestRoom(t, 2, DisplayShared)
		assert.ErrorIs(t, room.StartRound(testSchedule, testRules), ErrNotEnoughPlayers)
		assert.Equal(t, StateLobby, room.State)
		assert.Equal(t, 0, room.Round)
	})

	t.Run("deals hands and draws prompt", func(t *testing.T) {
		room := newTestRoom(t, 4, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))

		assert.Equal(t, StatePlaying, room.State)
		assert.Equal(t, 1, room.Round)
		assert.Equal(t, 0, room.JudgeIndex)
		assert.NotEmpty(t, room.Prompt)
		assert.Equal(t, RoundConfig{CardsRequired: 1, PointValue: 1}, room.RoundConfig)
		for _, p := range room.Players {
			assert.Len(t, p.Hand, 8)
		}
	})

	t.Run("not allowed mid round", func(t *testing.T) {
		room := newTestRoom(t, 3, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		assert.ErrorIs(t, room.StartRound(testSchedule, testRules), ErrInvalidState)
	})
}

func TestJudgeRotation(t *testing.T) {
	room := newTestRoom(t, 3, DisplayPerPlayer)
	room.TotalRounds = 10
	require.NoError(t, room.StartRound(testSchedule, testRules))

	var judges []string
	for i := 0; i < 4; i++ {
		judges = append(judges, room.Judge().ID)
		playRound(t, room)
		_, err := room.NextRound(testSchedule, testRules)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"p1", "p2", "p3", "p1"}, judges)
}

func TestSubmit(t *testing.T) {
	t.Run("at most once per round", func(t *testing.T) {
		room := newTestRoom(t, 3, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))

		p := room.Players[1]
		played, err := room.Submit(p.ID, []int{0})
		require.NoError(t, err)
		assert.Len(t, played, 1)

		handBefore := append([]string(nil), p.Hand...)
		_, err = room.Submit(p.ID, []int{0})
		assert.ErrorIs(t, err, ErrAlreadySubmitted)
		assert.Equal(t, handBefore, p.Hand)
		assert.Equal(t, played, room.Submissions[p.ID])
		assert.Equal(t, 0, p.Score)
	})

	t.Run("judge cannot submit", func(t *testing.T) {
		room := newTestRoom(t, 3, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		_, err := room.Submit(room.Judge().ID, []int{0})
		assert.ErrorIs(t, err, ErrJudgeCannotPlay)
		assert.Empty(t, room.Submissions)
	})

	t.Run("unknown player and wrong state", func(t *testing.T) {
		room := newTestRoom(t, 3, DisplayShared)
		_, err := room.Submit("p2", []int{0})
		assert.ErrorIs(t, err, ErrInvalidState)

		require.NoError(t, room.StartRound(testSchedule, testRules))
		_, err = room.Submit("ghost", []int{0})
		assert.ErrorIs(t, err, ErrNotInRoom)
	})

	t.Run("combo of two", func(t *testing.T) {
		room := newTestRoom(t, 4, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		playRound(t, room)
		_, err := room.NextRound(testSchedule, testRules)
		require.NoError(t, err)
		require.Equal(t, 2, room.RoundConfig.CardsRequired)

		p := room.Players[2]
		require.False(t, room.IsJudge(p.ID))
		handSize := len(p.Hand)
		assert.Equal(t, testRules.HandTarget(2), handSize)

		_, err = room.Submit(p.ID, []int{0})
		assert.ErrorIs(t, err, ErrWrongCardCount)
		_, err = room.Submit(p.ID, []int{0, 1, 2})
		assert.ErrorIs(t, err, ErrWrongCardCount)
		_, err = room.Submit(p.ID, []int{0, handSize})
		assert.ErrorIs(t, err, ErrInvalidCard)
		_, err = room.Submit(p.ID, []int{-1, 0})
		assert.ErrorIs(t, err, ErrInvalidCard)
		_, err = room.Submit(p.ID, []int{3, 3})
		assert.ErrorIs(t, err, ErrInvalidCard)
		assert.Len(t, p.Hand, handSize)

		want := []string{p.Hand[5], p.Hand[1]}
		played, err := room.Submit(p.ID, []int{5, 1})
		require.NoError(t, err)
		assert.Equal(t, want, played)
		assert.Len(t, p.Hand, handSize-2)
		assert.NotContains(t, p.Hand, want[0])
		assert.NotContains(t, p.Hand, want[1])
	})
}

func TestAllSubmitted(t *testing.T) {
	room := newTestRoom(t, 4, DisplayShared)
	require.NoError(t, room.StartRound(testSchedule, testRules))
	assert.Equal(t, 3, room.ExpectedSubmissions())

	for _, p := range room.Players {
		if room.IsJudge(p.ID) {
			continue
		}
		assert.False(t, room.AllSubmitted())
		_, err := room.Submit(p.ID, []int{0})
		require.NoError(t, err)
	}

	assert.True(t, room.AllSubmitted())
	assert.Equal(t, room.ExpectedSubmissions(), room.SubmittedCount())
	assert.NotContains(t, room.Submissions, room.Judge().ID)
}

func TestReveal(t *testing.T) {
	room := newTestRoom(t, 4, DisplayShared)
	require.NoError(t, room.StartRound(testSchedule, testRules))
	submitAll(t, room)
	room.StartReveal()

	require.Equal(t, StateReveal, room.State)
	order := append([]Submission(nil), room.RevealOrder...)
	require.Len(t, order, 3)

	for i := 0; i < 3; i++ {
		rev, ok := room.RevealNext()
		require.True(t, ok)
		assert.Equal(t, i, rev.Index)
		assert.Equal(t, order[i].Cards, rev.Cards)
		assert.Equal(t, i == 2, rev.IsLast)
	}

	for i := 0; i < 3; i++ {
		_, ok := room.RevealNext()
		assert.False(t, ok)
	}
	assert.Equal(t, 3, room.RevealCursor)
	if diff := cmp.Diff(order, room.RevealOrder); diff != "" {
		t.Errorf("reveal order changed (-want +got):\n%s", diff)
	}
}

func TestCanReveal(t *testing.T) {
	shared := newTestRoom(t, 3, DisplayShared)
	require.NoError(t, shared.StartRound(testSchedule, testRules))
	submitAll(t, shared)
	assert.False(t, shared.CanReveal("host"), "nothing to reveal before the reveal starts")
	shared.StartReveal()
	assert.True(t, shared.CanReveal("host"))
	assert.False(t, shared.CanReveal(shared.Judge().ConnID))

	phones := newTestRoom(t, 3, DisplayPerPlayer)
	require.NoError(t, phones.StartRound(testSchedule, testRules))
	submitAll(t, phones)
	phones.StartReveal()
	assert.True(t, phones.CanReveal(phones.Judge().ConnID))
	assert.False(t, phones.CanReveal(phones.Players[1].ConnID))
	assert.False(t, phones.CanReveal("host"))
}

func TestPickWinner(t *testing.T) {
	setup := func(t *testing.T) *Room {
		room := newTestRoom(t, 3, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		submitAll(t, room)
		room.StartReveal()
		return room
	}

	t.Run("only the judge picks", func(t *testing.T) {
		room := setup(t)
		room.RevealNext()
		room.RevealNext()
		_, err := room.PickWinner(room.Players[1].ID, 0, true)
		assert.ErrorIs(t, err, ErrNotJudge)
		assert.Equal(t, StateReveal, room.State)
	})

	t.Run("full reveal policy", func(t *testing.T) {
		room := setup(t)
		room.RevealNext()
		judge := room.Judge().ID
		_, err := room.PickWinner(judge, 0, true)
		assert.ErrorIs(t, err, ErrRevealIncomplete)

		_, err = room.PickWinner(judge, 0, false)
		assert.NoError(t, err)
	})

	t.Run("out of range", func(t *testing.T) {
		room := setup(t)
		room.RevealNext()
		room.RevealNext()
		_, err := room.PickWinner(room.Judge().ID, 2, true)
		assert.ErrorIs(t, err, ErrInvalidPick)
		_, err = room.PickWinner(room.Judge().ID, -1, true)
		assert.ErrorIs(t, err, ErrInvalidPick)
	})

	t.Run("credits the submitter by reveal order", func(t *testing.T) {
		room := setup(t)
		room.RevealNext()
		room.RevealNext()
		winner := room.RevealOrder[1]

		res, err := room.PickWinner(room.Judge().ID, 1, true)
		require.NoError(t, err)
		assert.Equal(t, winner.PlayerID, res.WinnerID)
		assert.Equal(t, winner.Cards, res.Cards)
		assert.Equal(t, 1, res.Points)
		assert.Equal(t, StateRoundWinner, room.State)

		p, err := room.GetPlayer(winner.PlayerID)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Score)
	})
}

func TestGameLifecycle(t *testing.T) {
	room := newTestRoom(t, 3, DisplayPerPlayer)
	require.NoError(t, room.StartRound(testSchedule, testRules))

	for round := 1; round <= testSchedule.TotalRounds; round++ {
		require.Equal(t, round, room.Round)
		playRound(t, room)
		ended, err := room.NextRound(testSchedule, testRules)
		require.NoError(t, err)
		assert.Equal(t, round == testSchedule.TotalRounds, ended)
	}
	require.Equal(t, StateEnded, room.State)

	board := room.Leaderboard()
	require.Len(t, board, 3)
	for i := 1; i < len(board); i++ {
		assert.GreaterOrEqual(t, board[i-1].Score, board[i].Score)
	}
	total := 0
	for _, s := range board {
		total += s.Score
	}
	assert.Equal(t, 1+2+3, total)

	_, err := room.NextRound(testSchedule, testRules)
	assert.ErrorIs(t, err, ErrInvalidState)

	tokens := map[string]string{}
	for _, p := range room.Players {
		tokens[p.ID] = p.SessionToken
	}

	require.NoError(t, room.PlayAgain(testCatalog(40)))
	assert.Equal(t, StateLobby, room.State)
	assert.Equal(t, 0, room.Round)
	assert.Equal(t, -1, room.JudgeIndex)
	for _, p := range room.Players {
		assert.Equal(t, 0, p.Score)
		assert.Empty(t, p.Hand)
		assert.Equal(t, tokens[p.ID], p.SessionToken)
	}

	require.NoError(t, room.StartRound(testSchedule, testRules))
	assert.Equal(t, 1, room.Round)
	assert.Equal(t, 0, room.JudgeIndex)
	for _, p := range room.Players {
		assert.Len(t, p.Hand, testRules.HandTarget(1))
	}
}

func TestPlayAgainOnlyWhenEnded(t *testing.T) {
	room := newTestRoom(t, 3, DisplayShared)
	assert.ErrorIs(t, room.PlayAgain(testCatalog(10)), ErrInvalidState)
	require.NoError(t, room.StartRound(testSchedule, testRules))
	assert.ErrorIs(t, room.PlayAgain(testCatalog(10)), ErrInvalidState)
}

func TestLeaderboardTiesKeepJoinOrder(t *testing.T) {
	room := newTestRoom(t, 4, DisplayShared)
	room.Players[0].Score = 1
	room.Players[1].Score = 3
	room.Players[2].Score = 1
	room.Players[3].Score = 3

	var names []string
	for _, s := range room.Leaderboard() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"Bob", "Dan", "Ann", "Cat"}, names)
}

func TestRemovePlayer(t *testing.T) {
	t.Run("judge leaves before anyone submits", func(t *testing.T) {
		room := newTestRoom(t, 4, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		judge := room.Judge()

		removal, err := room.RemovePlayer(judge.ID)
		require.NoError(t, err)
		assert.True(t, removal.WasJudge)
		assert.True(t, removal.JudgeChanged)
		assert.False(t, removal.RoundVoided)

		require.Len(t, room.Players, 3)
		assert.GreaterOrEqual(t, room.JudgeIndex, 0)
		assert.Less(t, room.JudgeIndex, len(room.Players))
		assert.NotEqual(t, judge.ID, room.Judge().ID)

		submitAll(t, room)
		assert.True(t, room.AllSubmitted())
	})

	t.Run("new judge gets their cards back", func(t *testing.T) {
		room := newTestRoom(t, 4, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		next := room.Players[1]
		_, err := room.Submit(next.ID, []int{0})
		require.NoError(t, err)
		require.Len(t, next.Hand, 7)

		_, err = room.RemovePlayer(room.Judge().ID)
		require.NoError(t, err)

		assert.Equal(t, next.ID, room.Judge().ID)
		assert.Len(t, next.Hand, 8)
		assert.False(t, room.HasSubmitted(next.ID))
	})

	t.Run("last missing submitter leaves", func(t *testing.T) {
		room := newTestRoom(t, 4, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		_, err := room.Submit("p2", []int{0})
		require.NoError(t, err)
		_, err = room.Submit("p3", []int{0})
		require.NoError(t, err)

		removal, err := room.RemovePlayer("p4")
		require.NoError(t, err)
		assert.True(t, removal.RevealStarted)
		assert.Equal(t, StateReveal, room.State)
		assert.Len(t, room.RevealOrder, 2)
	})

	t.Run("earlier player leaves and the judge stays", func(t *testing.T) {
		room := newTestRoom(t, 4, DisplayShared)
		room.TotalRounds = 10
		require.NoError(t, room.StartRound(testSchedule, testRules))
		playRound(t, room)
		_, err := room.NextRound(testSchedule, testRules)
		require.NoError(t, err)
		require.Equal(t, "p2", room.Judge().ID)

		removal, err := room.RemovePlayer("p1")
		require.NoError(t, err)
		assert.False(t, removal.JudgeChanged)
		assert.Equal(t, "p2", room.Judge().ID)
	})

	t.Run("too few players voids the round", func(t *testing.T) {
		room := newTestRoom(t, 3, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		p := room.Players[2]
		_, err := room.Submit(p.ID, []int{0})
		require.NoError(t, err)

		_, err = room.RemovePlayer(room.Players[1].ID)
		require.NoError(t, err)
		removal, err := room.RemovePlayer(room.Judge().ID)
		require.NoError(t, err)

		assert.True(t, removal.RoundVoided)
		assert.Equal(t, StateRoundWinner, room.State)
		require.NotNil(t, room.LastResult)
		assert.True(t, room.LastResult.Void)
		assert.Len(t, p.Hand, 8)

		ended, err := room.NextRound(testSchedule, testRules)
		require.NoError(t, err)
		assert.True(t, ended)
	})

	t.Run("reveal with nothing left voids the round", func(t *testing.T) {
		room := newTestRoom(t, 3, DisplayShared)
		require.NoError(t, room.StartRound(testSchedule, testRules))
		submitAll(t, room)
		room.StartReveal()
		room.RevealNext()

		_, err := room.RemovePlayer("p2")
		require.NoError(t, err)
		assert.Equal(t, StateReveal, room.State)
		assert.LessOrEqual(t, room.RevealCursor, len(room.RevealOrder))

		removal, err := room.RemovePlayer("p3")
		require.NoError(t, err)
		assert.True(t, removal.RoundVoided)
		assert.Equal(t, StateRoundWinner, room.State)
	})

	t.Run("unknown player", func(t *testing.T) {
		room := newTestRoom(t, 3, DisplayShared)
		_, err := room.RemovePlayer("ghost")
		assert.ErrorIs(t, err, ErrPlayerNotFound)
	})

	t.Run("last player in lobby", func(t *testing.T) {
		room := newTestRoom(t, 1, DisplayShared)
		_, err := room.RemovePlayer("p1")
		require.NoError(t, err)
		assert.Empty(t, room.Players)
		assert.Equal(t, -1, room.JudgeIndex)
	})
}

func TestRestored(t *testing.T) {
	room := newTestRoom(t, 3, DisplayShared)
	require.NoError(t, room.StartRound(testSchedule, testRules))
	submitAll(t, room)
	room.StartReveal()
	room.RevealNext()

	at := time.Now()
	room.RevealOrder = nil
	room.Restored(at)

	assert.Empty(t, room.HostConnID)
	for _, p := range room.Players {
		assert.False(t, p.IsConnected())
		assert.Equal(t, at, p.DisconnectedAt)
	}
	assert.Equal(t, StateReveal, room.State)
	assert.Len(t, room.RevealOrder, 2)
	assert.Equal(t, 0, room.RevealCursor)
}
