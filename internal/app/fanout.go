package app

import (
	"slices"

	"trashtalk/internal/domain"
)

// Fan-out helpers run with the room locked. In shared mode the host screen gets the
// room-wide view and each phone gets its private part; in per-player mode every player
// gets one message carrying both.

func (g *Gateway) send(connID string, ev *domain.Event) {
	if connID == "" {
		return
	}
	g.mu.RLock()
	b, ok := g.conns[connID]
	g.mu.RUnlock()
	if !ok {
		return
	}
	if err := b.conn.Send(ev); err != nil {
		g.logger.Warn("send failed", "connID", connID, "type", ev.Type, "error", err)
	}
}

// emitToRoom sends to every player in per-player mode and to the host screen in shared mode
func (g *Gateway) emitToRoom(room *domain.Room, t domain.EventType, payload interface{}) {
	g.emitToRoomExcept(room, "", t, payload)
}

func (g *Gateway) emitToRoomExcept(room *domain.Room, skip string, t domain.EventType, payload interface{}) {
	ev := domain.NewEvent(t, room.Code, payload)
	if room.Mode == domain.DisplayShared {
		if room.HostConnID != skip {
			g.send(room.HostConnID, ev)
		}
		return
	}
	for _, p := range room.Players {
		if p.ConnID != skip {
			g.send(p.ConnID, ev)
		}
	}
}

func cloneCards(cards []string) []string {
	if cards == nil {
		return []string{}
	}
	return slices.Clone(cards)
}

func roundInfo(room *domain.Room) domain.RoundInfo {
	info := domain.RoundInfo{
		Round:         room.Round,
		MaxRounds:     room.TotalRounds,
		Prompt:        room.Prompt,
		CardsRequired: room.RoundConfig.CardsRequired,
		PointValue:    room.RoundConfig.PointValue,
		Label:         room.RoundConfig.Label,
	}
	if judge := room.Judge(); judge != nil {
		info.JudgeName = judge.Name
		info.JudgeAvatar = judge.Avatar
	}
	return info
}

// view builds the recipient-specific part of a notification. The judge gets no hand.
func view(room *domain.Room, p *domain.Player) *domain.PlayerView {
	v := &domain.PlayerView{
		IsJudge:     room.IsJudge(p.ID),
		IsHost:      room.HostPlayerID != "" && room.HostPlayerID == p.ID,
		PlayerCount: len(room.Players),
	}
	if !v.IsJudge {
		v.Hand = cloneCards(p.Hand)
	}
	return v
}

func (g *Gateway) fanoutRoundStart(room *domain.Room) {
	info := roundInfo(room)

	if room.Mode == domain.DisplayPerPlayer {
		for _, p := range room.Players {
			g.send(p.ConnID, domain.NewEvent(domain.EventRoundStart, room.Code, domain.RoundStartPayload{
				RoundInfo:  info,
				Mode:       room.Mode,
				PlayerView: view(room, p),
			}))
		}
		return
	}

	g.send(room.HostConnID, domain.NewEvent(domain.EventRoundStart, room.Code, domain.RoundStartPayload{
		RoundInfo: info,
		Mode:      room.Mode,
	}))
	for _, p := range room.Players {
		g.send(p.ConnID, domain.NewEvent(domain.EventYourTurn, room.Code, domain.RoundStartPayload{
			RoundInfo:  info,
			Mode:       room.Mode,
			PlayerView: view(room, p),
		}))
	}
}

func (g *Gateway) fanoutRevealStart(room *domain.Room) {
	base := domain.RevealStartPayload{
		Prompt:          room.Prompt,
		SubmissionCount: len(room.RevealOrder),
		CardsRequired:   room.RoundConfig.CardsRequired,
		PointValue:      room.RoundConfig.PointValue,
	}

	if room.Mode == domain.DisplayPerPlayer {
		for _, p := range room.Players {
			payload := base
			payload.PlayerView = &domain.PlayerView{
				IsJudge: room.IsJudge(p.ID),
				IsHost:  p.ID == room.HostPlayerID,
			}
			g.send(p.ConnID, domain.NewEvent(domain.EventStartReveal, room.Code, payload))
		}
		return
	}

	g.send(room.HostConnID, domain.NewEvent(domain.EventStartReveal, room.Code, base))
	for _, p := range room.Players {
		if room.IsJudge(p.ID) {
			g.send(p.ConnID, domain.NewEvent(domain.EventJudgeReveal, room.Code, domain.JudgeRevealPayload{Prompt: room.Prompt}))
			continue
		}
		g.send(p.ConnID, domain.NewEvent(domain.EventWatchReveal, room.Code, nil))
	}
}

func (g *Gateway) fanoutCardRevealed(room *domain.Room, rev domain.Reveal) {
	rev.Cards = cloneCards(rev.Cards)

	if room.Mode == domain.DisplayPerPlayer {
		for _, p := range room.Players {
			g.send(p.ConnID, domain.NewEvent(domain.EventCardRevealed, room.Code, domain.CardRevealedPayload{
				Reveal:     rev,
				PlayerView: &domain.PlayerView{IsJudge: room.IsJudge(p.ID)},
			}))
		}
		return
	}

	g.send(room.HostConnID, domain.NewEvent(domain.EventCardRevealed, room.Code, domain.CardRevealedPayload{Reveal: rev}))
	if judge := room.Judge(); judge != nil {
		g.send(judge.ConnID, domain.NewEvent(domain.EventCardRevealed, room.Code, domain.CardRevealedPayload{
			Reveal:     rev,
			PlayerView: &domain.PlayerView{IsJudge: true},
		}))
	}
}

// standings lists scores in join order
func standings(room *domain.Room) []domain.Standing {
	scores := make([]domain.Standing, 0, len(room.Players))
	for _, p := range room.Players {
		scores = append(scores, domain.Standing{PlayerID: p.ID, Name: p.Name, Avatar: p.Avatar, Score: p.Score})
	}
	return scores
}

func (g *Gateway) fanoutRoundWinner(room *domain.Room, result *domain.RoundResult) {
	res := *result
	res.Cards = cloneCards(result.Cards)
	scores := standings(room)

	if room.Mode == domain.DisplayShared {
		g.send(room.HostConnID, domain.NewEvent(domain.EventRoundWinner, room.Code, domain.RoundWinnerPayload{
			RoundResult: res,
			Scores:      scores,
		}))
	}
	for _, p := range room.Players {
		g.send(p.ConnID, domain.NewEvent(domain.EventRoundWinner, room.Code, domain.RoundWinnerPayload{
			RoundResult: res,
			Scores:      scores,
			PlayerView: &domain.PlayerView{
				IsJudge: room.IsJudge(p.ID),
				IsYou:   p.ID == res.WinnerID,
				IsHost:  p.ID == room.HostPlayerID,
			},
		}))
	}
}

func (g *Gateway) fanoutGameOver(room *domain.Room, board []domain.Standing) {
	payload := domain.GameOverPayload{Leaderboard: board}
	if len(board) > 0 {
		winner := board[0]
		payload.Winner = &winner
	}

	if room.Mode == domain.DisplayShared {
		g.send(room.HostConnID, domain.NewEvent(domain.EventGameOver, room.Code, payload))
	}
	for _, p := range room.Players {
		pp := payload
		pp.PlayerView = &domain.PlayerView{
			IsYou:  payload.Winner != nil && payload.Winner.PlayerID == p.ID,
			IsHost: p.ID == room.HostPlayerID,
		}
		g.send(p.ConnID, domain.NewEvent(domain.EventGameOver, room.Code, pp))
	}
}

func (g *Gateway) fanoutBackToLobby(room *domain.Room) {
	players := room.PlayerInfoList()

	if room.Mode == domain.DisplayPerPlayer {
		for _, p := range room.Players {
			g.send(p.ConnID, domain.NewEvent(domain.EventBackToLobby, room.Code, domain.LobbyPayload{
				Players:    players,
				Mode:       room.Mode,
				PlayerView: &domain.PlayerView{IsHost: p.ID == room.HostPlayerID},
			}))
		}
		return
	}

	for _, p := range room.Players {
		g.send(p.ConnID, domain.NewEvent(domain.EventResetToLobby, room.Code, nil))
	}
	g.send(room.HostConnID, domain.NewEvent(domain.EventBackToLobby, room.Code, domain.LobbyPayload{
		Players: players,
		Mode:    room.Mode,
	}))
}

// announceRemoval tells the room a player is gone and republishes whatever the
// departure changed about the round.
func (g *Gateway) announceRemoval(room *domain.Room, removal domain.Removal) {
	g.emitToRoom(room, domain.EventPlayerLeft, domain.PlayerLeftPayload{
		PlayerName:  removal.Player.Name,
		PlayerCount: len(room.Players),
	})

	switch {
	case removal.RoundVoided:
		if room.LastResult != nil {
			g.fanoutRoundWinner(room, room.LastResult)
		}
	case removal.RevealStarted:
		g.fanoutRevealStart(room)
	case removal.JudgeChanged && room.State == domain.StatePlaying:
		g.fanoutRoundStart(room)
	case removal.JudgeChanged && room.State == domain.StateReveal:
		g.fanoutRevealStart(room)
	}
}
