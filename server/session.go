package server

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"kurve/game"
	"kurve/protocol"
)

var ErrSessionClosed = errors.New("lobby closed")

// JoinResult 加入成功后返回给请求者
type JoinResult struct {
	PlayerID string
	Lobby    protocol.LobbyState
}

type command struct {
	run   func() error
	reply chan error
}

// Session 房间：对局状态只在 run 协程内读写，外部通过命令与输入通道交互
type Session struct {
	Code string

	match   *game.Match
	members map[string]Conn // 玩家 ID → 发送端
	intents game.Intents    // 最新输入意图，Tick 时读取
	closing bool

	cmds    chan command
	inputs  chan Input
	done    chan struct{}
	cancel  context.CancelFunc
	onClose func(*Session)

	tickEvery      time.Duration
	countdownEvery time.Duration
	ticker         *time.Ticker
	tickC          <-chan time.Time // 停止时为 nil，select 永不命中
	counter        *time.Ticker
	countC         <-chan time.Time

	metrics SessionMetrics
	info    atomic.Pointer[LobbyInfo]
}

func newSession(code string, t game.Tuning, rng game.Rand, tickEvery, countdownEvery time.Duration) *Session {
	s := &Session{
		Code:           code,
		match:          game.NewMatch(t, rng),
		members:        make(map[string]Conn),
		intents:        make(game.Intents),
		cmds:           make(chan command),
		inputs:         make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		done:           make(chan struct{}),
		tickEvery:      tickEvery,
		countdownEvery: countdownEvery,
	}
	s.publishInfo()
	return s
}

func (s *Session) start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	go s.run(ctx)
}

// Close 取消房间协程，所有计时器随之停止
func (s *Session) Close() { s.cancel() }

func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Metrics() *SessionMetrics { return &s.metrics }

func (s *Session) Info() LobbyInfo { return *s.info.Load() }

func (s *Session) publishInfo() {
	s.info.Store(&LobbyInfo{Code: s.Code, Phase: string(s.match.Phase()), Players: s.match.Len()})
}

// exec 把操作投递到房间协程并等待结果；房间已关闭时返回 ErrSessionClosed
func (s *Session) exec(run func() error) error {
	cmd := command{run: run, reply: make(chan error, 1)}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrSessionClosed
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-s.done:
		select {
		case err := <-cmd.reply:
			return err
		default:
			return ErrSessionClosed
		}
	}
}

// guard 单个房间内的 panic 不影响进程与其他房间
func (s *Session) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			Log.Errorw("session handler panic", "lobby", s.Code, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("lobby %s: internal error", s.Code)
		}
	}()
	return fn()
}

func (s *Session) reject(action, playerID string, err error) error {
	s.metrics.IncRejected()
	Log.Debugw("action rejected", "lobby", s.Code, "action", action, "player", playerID, "err", err)
	return err
}

// Join 大厅阶段加入；满员返回 game.ErrLobbyFull，已开局返回 game.ErrInvalidPhase
func (s *Session) Join(name, color string, conn Conn) (JoinResult, error) {
	var res JoinResult
	err := s.exec(func() error {
		p, err := s.match.AddPlayer(name, color)
		if err != nil {
			return err
		}
		s.members[p.ID] = conn
		res = JoinResult{PlayerID: p.ID, Lobby: protocol.BuildLobbyState(s.Code, s.match)}
		Log.Infow("player joined", "lobby", s.Code, "player", p.ID, "name", p.Name, "slot", p.Slot)
		s.broadcastExcept(p.ID, protocol.MsgPlayerJoined, protocol.PlayerJoined{Player: protocol.LobbyPlayerOf(p)})
		s.broadcastLobby()
		return nil
	})
	return res, err
}

// Leave 主动离开或断线；房间清空后协程退出
func (s *Session) Leave(playerID string) error {
	return s.exec(func() error {
		s.leave(playerID)
		return nil
	})
}

func (s *Session) leave(id string) {
	removed, hostChanged := s.match.RemovePlayer(id)
	if !removed {
		return
	}
	delete(s.members, id)
	delete(s.intents, id)
	Log.Infow("player left", "lobby", s.Code, "player", id, "hostChanged", hostChanged, "remaining", s.match.Len())
	if s.match.Len() == 0 {
		s.closing = true
		return
	}
	s.broadcast(protocol.MsgPlayerLeft, protocol.PlayerLeft{PlayerID: id})
	s.broadcastLobby()
	s.notifyCanStart()
}

func (s *Session) SetReady(playerID string, ready bool) error {
	return s.exec(func() error {
		if err := s.match.SetReady(playerID, ready); err != nil {
			return s.reject("setReady", playerID, err)
		}
		s.broadcastLobby()
		s.notifyCanStart()
		return nil
	})
}

// StartGame 房主开始比赛，立即进入第一局
func (s *Session) StartGame(playerID string) error {
	return s.exec(func() error {
		if err := s.match.Start(playerID); err != nil {
			return s.reject("startGame", playerID, err)
		}
		lobby := protocol.BuildLobbyState(s.Code, s.match)
		s.broadcast(protocol.MsgGameStarted, protocol.GameStarted{
			SimulationState: protocol.BuildGameState(s.match, time.Now()),
			Players:         lobby.Players,
		})
		s.startTicker()
		Log.Infow("game started", "lobby", s.Code, "players", s.match.Len())
		return nil
	})
}

// StartNextRound 房主开始下一局：先倒计时，归零后恢复 Tick
func (s *Session) StartNextRound(playerID string) error {
	return s.exec(func() error {
		count, err := s.match.BeginNextRound(playerID)
		if err != nil {
			return s.reject("startNextRound", playerID, err)
		}
		if count == 0 {
			s.resume()
			return nil
		}
		s.broadcast(protocol.MsgCountdownUpdate, protocol.CountdownUpdate{Count: count})
		s.startCountdown()
		return nil
	})
}

// ReturnToLobby 仅在比赛结束后可用，比分清零
func (s *Session) ReturnToLobby(playerID string) error {
	return s.exec(func() error {
		if err := s.match.ReturnToLobby(playerID); err != nil {
			return s.reject("returnToLobby", playerID, err)
		}
		s.stopTicker()
		s.stopCountdown()
		s.broadcastLobby()
		s.broadcast(protocol.MsgGameStateUpdate, protocol.BuildGameState(s.match, time.Now()))
		return nil
	})
}

// Configure 大厅阶段修改规则，返回生效后的参数
func (s *Session) Configure(st game.Settings) (game.Tuning, error) {
	var out game.Tuning
	err := s.exec(func() error {
		if err := s.match.Configure(st); err != nil {
			return err
		}
		out = s.match.Tuning()
		Log.Infow("lobby configured", "lobby", s.Code, "roundsToWin", out.RoundsToWin,
			"speed", out.Speed, "turnRate", out.TurnRate, "collisionRadius", out.CollisionRadius)
		return nil
	})
	return out, err
}

func (s *Session) Tuning() (game.Tuning, error) {
	var out game.Tuning
	err := s.exec(func() error {
		out = s.match.Tuning()
		return nil
	})
	return out, err
}

// Lobby 当前大厅公开信息
func (s *Session) Lobby() (protocol.LobbyState, error) {
	var out protocol.LobbyState
	err := s.exec(func() error {
		out = protocol.BuildLobbyState(s.Code, s.match)
		return nil
	})
	return out, err
}

func (s *Session) broadcastLobby() {
	s.broadcast(protocol.MsgLobbyUpdated, protocol.LobbyUpdated{LobbyData: protocol.BuildLobbyState(s.Code, s.match)})
}

func (s *Session) notifyCanStart() {
	if s.match.CanStart() {
		s.broadcast(protocol.MsgGameCanStart, nil)
	}
}

func (s *Session) broadcast(t string, payload any) {
	s.broadcastExcept("", t, payload)
}

// broadcastExcept 每种编码只序列化一次，发送队列满的连接丢弃本条
func (s *Session) broadcastExcept(skip, t string, payload any) {
	frames := make(map[protocol.Codec][]byte, 2)
	for id, c := range s.members {
		if id == skip {
			continue
		}
		codec := c.Codec()
		b, ok := frames[codec]
		if !ok {
			var err error
			if b, err = codec.Encode(t, 0, payload); err != nil {
				Log.Errorw("encode failed", "lobby", s.Code, "type", t, "codec", codec.Name(), "err", err)
				return
			}
			frames[codec] = b
		}
		if err := c.Send(b); err != nil {
			s.metrics.IncSendDrop()
		}
	}
	s.metrics.IncBroadcast()
}
