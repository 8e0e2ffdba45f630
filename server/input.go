package server

import "kurve/game"

// Input 客户端输入（意图），由房间协程在下一次 Tick 前写入
type Input struct {
	PlayerID string
	Intent   game.Intent
}

// Input 入站输入（不立即改变状态），通道满时丢弃以保证 Tick 准时
func (s *Session) Input(playerID string, intent game.Intent) {
	select {
	case s.inputs <- Input{PlayerID: playerID, Intent: intent}:
	default:
		s.metrics.IncDropped()
	}
}

// applyInput 后写覆盖；已离开的玩家的残留输入直接忽略
func (s *Session) applyInput(in Input) {
	if _, ok := s.members[in.PlayerID]; !ok {
		return
	}
	s.intents[in.PlayerID] = in.Intent
	s.metrics.IncAccepted()
}
