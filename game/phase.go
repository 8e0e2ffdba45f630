package game

// Phase 房间所处的对局阶段，字符串即线上协议取值
type Phase string

const (
	PhaseLobby        Phase = "lobby"
	PhaseCountdown    Phase = "countdown"
	PhasePlaying      Phase = "playing"
	PhaseRoundOver    Phase = "roundOver"
	PhaseWaitingRound Phase = "waitingForNextRound"
	PhaseGameOver     Phase = "gameOver"
)
