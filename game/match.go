package game

import (
	"time"

	"golang.org/x/exp/rand"
)

// Match 一个房间的完整对局状态机。
// 所有操作先完整校验再修改状态，被拒绝的调用不会留下部分修改。
// Match 本身不加锁，由持有者保证单线程访问。
type Match struct {
	tuning Tuning
	rng    Rand

	players []*Player // 按加入顺序
	scores  map[string]int

	phase     Phase
	round     int
	tick      int
	countdown int
}

// ScoreEntry 单个玩家的胜局数
type ScoreEntry struct {
	PlayerID string
	Rounds   int
}

// StepResult 一次模拟推进的结果
type StepResult struct {
	Ticked    bool
	Deaths    []string
	RoundOver bool
	Round     int    // 刚结束的局数，仅 RoundOver 时有效
	WinnerID  string // 平局（同归于尽）时为空
	GameOver  bool
}

// Settings 大厅阶段可调整的规则，nil 字段保持不变
type Settings struct {
	RoundsToWin     *int     `json:"roundsToWin,omitempty"`
	Speed           *float64 `json:"speed,omitempty"`
	TurnRate        *float64 `json:"turnRate,omitempty"`
	CollisionRadius *float64 `json:"collisionRadius,omitempty"`
}

// NewMatch 创建处于大厅阶段的对局；rng 为 nil 时使用基于时间的随机源
func NewMatch(t Tuning, rng Rand) *Match {
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}
	return &Match{
		tuning: t,
		rng:    rng,
		scores: make(map[string]int),
		phase:  PhaseLobby,
		round:  1,
	}
}

func (m *Match) Phase() Phase { return m.phase }
func (m *Match) Round() int { return m.round }
func (m *Match) Tick() int { return m.tick }
func (m *Match) Countdown() int { return m.countdown }
func (m *Match) Tuning() Tuning { return m.tuning }
func (m *Match) Len() int { return len(m.players) }
func (m *Match) Score(id string) int { return m.scores[id] }

// Players 返回按加入顺序排列的快照副本，遍历期间可安全增删
func (m *Match) Players() []*Player {
	out := make([]*Player, len(m.players))
	copy(out, m.players)
	return out
}

func (m *Match) Player(id string) *Player {
	for _, p := range m.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (m *Match) Host() *Player {
	for _, p := range m.players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (m *Match) Scores() []ScoreEntry {
	out := make([]ScoreEntry, 0, len(m.players))
	for _, p := range m.players {
		out = append(out, ScoreEntry{PlayerID: p.ID, Rounds: m.scores[p.ID]})
	}
	return out
}

// AddPlayer 在大厅阶段加入玩家：占用最小空闲槽位，槽位决定按键绑定；
// 颜色优先使用未被占用的请求色，否则使用槽位默认色。
func (m *Match) AddPlayer(name, color string) (*Player, error) {
	if len(m.players) >= m.tuning.MaxPlayers {
		return nil, ErrLobbyFull
	}
	if m.phase != PhaseLobby {
		return nil, ErrInvalidPhase
	}
	slot := m.freeSlot()
	p := newPlayer(name, m.pickColor(color, slot), slot)
	p.Gap.Randomize(m.tuning, m.rng)
	p.IsHost = len(m.players) == 0
	m.players = append(m.players, p)
	m.scores[p.ID] = 0
	return p, nil
}

func (m *Match) freeSlot() int {
	used := [MaxSlots]bool{}
	for _, p := range m.players {
		used[p.Slot] = true
	}
	for i, u := range used {
		if !u {
			return i
		}
	}
	return 0
}

func (m *Match) pickColor(want string, slot int) string {
	used := make(map[string]bool, len(m.players))
	for _, p := range m.players {
		used[p.Color] = true
	}
	for _, c := range DefaultPalette {
		if c == want && !used[c] {
			return c
		}
	}
	if !used[DefaultPalette[slot]] {
		return DefaultPalette[slot]
	}
	for _, c := range DefaultPalette {
		if !used[c] {
			return c
		}
	}
	return DefaultPalette[slot]
}

// RemovePlayer 移出玩家。房主离开时由加入最早的剩余玩家接任。
// 对局中离开不算死亡，只是不再参与后续 Tick。
func (m *Match) RemovePlayer(id string) (removed, hostChanged bool) {
	idx := -1
	for i, p := range m.players {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, false
	}
	wasHost := m.players[idx].IsHost
	m.players = append(m.players[:idx], m.players[idx+1:]...)
	delete(m.scores, id)
	if wasHost && len(m.players) > 0 {
		m.players[0].IsHost = true
		hostChanged = true
	}
	return true, hostChanged
}

func (m *Match) SetReady(id string, ready bool) error {
	p := m.Player(id)
	if p == nil {
		return ErrUnknownPlayer
	}
	if m.phase != PhaseLobby {
		return ErrInvalidPhase
	}
	p.Ready = ready
	return nil
}

// CanStart 至少两名玩家、全部准备且处于大厅阶段
func (m *Match) CanStart() bool {
	if m.phase != PhaseLobby || len(m.players) < 2 {
		return false
	}
	for _, p := range m.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (m *Match) authorize(requester string) error {
	p := m.Player(requester)
	if p == nil {
		return ErrUnknownPlayer
	}
	if !p.IsHost {
		return ErrNotHost
	}
	return nil
}

// Start 房主开始比赛：第 1 局，全员出生
func (m *Match) Start(requester string) error {
	if err := m.authorize(requester); err != nil {
		return err
	}
	if m.phase != PhaseLobby {
		return ErrInvalidPhase
	}
	if !m.CanStart() {
		return ErrNotReady
	}
	m.phase = PhasePlaying
	m.round = 1
	m.tick = 0
	m.spawnAll()
	return nil
}

func (m *Match) spawnAll() {
	spawns := SpawnPositions(len(m.players), m.tuning.Width/2, m.tuning.Height/2, m.tuning, m.rng)
	for i, p := range m.players {
		p.Respawn(spawns[i], m.tuning, m.rng)
	}
}

// Step 推进一个 Tick：移动 → 缺口/采样 → 碰撞 → 回合结算
func (m *Match) Step(src InputSource) StepResult {
	if m.phase != PhasePlaying {
		return StepResult{}
	}
	m.tick++
	res := StepResult{Ticked: true}
	sample := m.tick%m.tuning.TrailSampleEvery == 0

	for _, p := range m.players {
		if !p.Alive {
			continue
		}
		if !Integrate(p, src.Intent(p.ID), m.tuning) {
			res.Deaths = append(res.Deaths, p.ID)
			continue
		}
		if inGap := p.Gap.Advance(m.tuning, m.rng); !inGap && sample {
			p.Trail.Append(TrailPoint{X: p.X, Y: p.Y, Gap: p.Gap.takeReopened()})
		}
	}

	for _, p := range DetectCollisions(m.players, m.tuning) {
		p.Alive = false
		res.Deaths = append(res.Deaths, p.ID)
	}

	var survivor *Player
	alive := 0
	for _, p := range m.players {
		if p.Alive {
			alive++
			survivor = p
		}
	}
	if alive <= 1 {
		m.endRound(survivor, &res)
	}
	return res
}

func (m *Match) endRound(winner *Player, res *StepResult) {
	m.phase = PhaseRoundOver
	res.RoundOver = true
	res.Round = m.round
	if winner != nil {
		m.scores[winner.ID]++
		res.WinnerID = winner.ID
	}
	for _, s := range m.scores {
		if s >= m.tuning.RoundsToWin {
			m.phase = PhaseGameOver
			res.GameOver = true
			return
		}
	}
	m.round++
	m.phase = PhaseWaitingRound
}

// BeginNextRound 房主开始下一局的倒计时，返回倒计时初值
func (m *Match) BeginNextRound(requester string) (int, error) {
	if err := m.authorize(requester); err != nil {
		return 0, err
	}
	if m.phase != PhaseWaitingRound {
		return 0, ErrInvalidPhase
	}
	m.phase = PhaseCountdown
	m.countdown = m.tuning.Countdown
	if m.countdown <= 0 {
		m.beginPlaying()
	}
	return m.countdown, nil
}

// CountdownTick 倒计时减一；归零时全员重生并进入 playing
func (m *Match) CountdownTick() (count int, started bool) {
	if m.phase != PhaseCountdown {
		return 0, false
	}
	m.countdown--
	if m.countdown > 0 {
		return m.countdown, false
	}
	m.beginPlaying()
	return 0, true
}

func (m *Match) beginPlaying() {
	m.countdown = 0
	m.phase = PhasePlaying
	m.spawnAll()
}

// ReturnToLobby 仅在 gameOver 阶段可用：比分清零，玩家回到大厅初始状态
func (m *Match) ReturnToLobby(requester string) error {
	if err := m.authorize(requester); err != nil {
		return err
	}
	if m.phase != PhaseGameOver {
		return ErrInvalidPhase
	}
	for id := range m.scores {
		m.scores[id] = 0
	}
	for _, p := range m.players {
		p.ResetHome(m.tuning, m.rng)
	}
	m.phase = PhaseLobby
	m.round = 1
	m.tick = 0
	m.countdown = 0
	return nil
}

// Configure 大厅阶段调整规则
func (m *Match) Configure(s Settings) error {
	if m.phase != PhaseLobby {
		return ErrInvalidPhase
	}
	t := m.tuning
	if s.RoundsToWin != nil {
		t.RoundsToWin = *s.RoundsToWin
	}
	if s.Speed != nil {
		t.Speed = *s.Speed
	}
	if s.TurnRate != nil {
		t.TurnRate = *s.TurnRate
	}
	if s.CollisionRadius != nil {
		t.CollisionRadius = *s.CollisionRadius
	}
	if err := t.Validate(); err != nil {
		return err
	}
	m.tuning = t
	return nil
}
