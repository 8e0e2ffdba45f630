package server

import (
	"context"
	"time"

	"kurve/protocol"
)

// run 房间协程：命令、输入、Tick 与倒计时在同一个 select 中串行处理，
// 模拟推进不会重入，倒计时与 Tick 也不会同时作用于玩家状态
func (s *Session) run(ctx context.Context) {
	defer func() {
		s.stopTicker()
		s.stopCountdown()
		s.cancel()
		close(s.done)
		if s.onClose != nil {
			s.onClose(s)
		}
		Log.Infow("lobby closed", "lobby", s.Code)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-s.cmds:
			err := s.guard(cmd.run)
			s.publishInfo()
			cmd.reply <- err
		case in := <-s.inputs:
			s.applyInput(in)
		case <-s.tickC:
			_ = s.guard(s.step)
			s.publishInfo()
		case <-s.countC:
			_ = s.guard(s.countdownStep)
			s.publishInfo()
		}
		if s.closing {
			return
		}
	}
}

// step 核心循环：读取意图 → 推进对局 → 广播快照
func (s *Session) step() error {
	start := time.Now()
	res := s.match.Step(s.intents)
	if !res.Ticked {
		s.stopTicker()
		return nil
	}
	s.broadcast(protocol.MsgGameStateUpdate, protocol.BuildGameState(s.match, time.Now()))
	if res.RoundOver {
		// 回合结束即停表，直到下一局倒计时结束
		s.stopTicker()
		s.broadcast(protocol.MsgRoundEnded, protocol.RoundEnded{
			WinnerID: res.WinnerID,
			Round:    res.Round,
			GameOver: res.GameOver,
		})
		Log.Infow("round ended", "lobby", s.Code, "round", res.Round, "winner", res.WinnerID,
			"gameOver", res.GameOver, "tick", s.match.Tick())
	}
	s.metrics.AddTick(time.Since(start).Nanoseconds())
	return nil
}

func (s *Session) countdownStep() error {
	count, started := s.match.CountdownTick()
	if started {
		s.stopCountdown()
		s.resume()
		return nil
	}
	if count <= 0 {
		// 阶段已变化（如回到大厅），倒计时作废
		s.stopCountdown()
		return nil
	}
	s.broadcast(protocol.MsgCountdownUpdate, protocol.CountdownUpdate{Count: count})
	return nil
}

// resume 新一局已出生，先推送一次初始快照再恢复 Tick
func (s *Session) resume() {
	s.broadcast(protocol.MsgGameStateUpdate, protocol.BuildGameState(s.match, time.Now()))
	s.startTicker()
	Log.Infow("round started", "lobby", s.Code, "round", s.match.Round())
}

func (s *Session) startTicker() {
	if s.ticker != nil {
		return
	}
	s.ticker = time.NewTicker(s.tickEvery)
	s.tickC = s.ticker.C
}

func (s *Session) stopTicker() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	s.ticker = nil
	s.tickC = nil
}

func (s *Session) startCountdown() {
	s.stopCountdown()
	s.counter = time.NewTicker(s.countdownEvery)
	s.countC = s.counter.C
}

func (s *Session) stopCountdown() {
	if s.counter == nil {
		return
	}
	s.counter.Stop()
	s.counter = nil
	s.countC = nil
}
