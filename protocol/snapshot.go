package protocol

import (
	"time"

	"kurve/game"
)

// BuildGameState 从对局构造快照，只读不写
func BuildGameState(m *game.Match, now time.Time) GameState {
	t := m.Tuning()
	players := m.Players()
	gs := GameState{
		Phase:           string(m.Phase()),
		CurrentRound:    m.Round(),
		RoundsToWin:     t.RoundsToWin,
		Scores:          make([]Score, 0, len(players)),
		ArenaDimensions: Dimensions{Width: t.Width, Height: t.Height},
		Players:         make([]PlayerState, 0, len(players)),
		ServerTimestamp: now.UnixMilli(),
		TickCount:       m.Tick(),
	}
	for _, s := range m.Scores() {
		gs.Scores = append(gs.Scores, Score{PlayerID: s.PlayerID, Rounds: s.Rounds})
	}
	for _, p := range players {
		src := p.Trail.Points()
		trail := make([]Point, len(src))
		for i, tp := range src {
			trail[i] = Point{X: tp.X, Y: tp.Y, Gap: tp.Gap}
		}
		gs.Players = append(gs.Players, PlayerState{
			ID:          p.ID,
			Name:        p.Name,
			Color:       p.Color,
			Position:    Vec{X: p.X, Y: p.Y},
			Rotation:    p.Heading,
			Alive:       p.Alive,
			TrailPoints: trail,
		})
	}
	return gs
}

// BuildLobbyState 大厅公开信息，不含位置与轨迹
func BuildLobbyState(code string, m *game.Match) LobbyState {
	players := m.Players()
	ls := LobbyState{
		ID:          code,
		PlayerCount: len(players),
		MaxPlayers:  m.Tuning().MaxPlayers,
		Phase:       string(m.Phase()),
		Players:     make([]LobbyPlayer, 0, len(players)),
	}
	for _, p := range players {
		ls.Players = append(ls.Players, LobbyPlayerOf(p))
	}
	return ls
}

func LobbyPlayerOf(p *game.Player) LobbyPlayer {
	return LobbyPlayer{
		ID:            p.ID,
		Name:          p.Name,
		Color:         p.Color,
		IsReady:       p.Ready,
		IsHost:        p.IsHost,
		LeftKeyLabel:  p.Binding.Left,
		RightKeyLabel: p.Binding.Right,
	}
}
