package game

import "github.com/google/uuid"

// MaxSlots 单个房间的玩家上限（调色板与按键绑定的数量）
const MaxSlots = 8

// Binding 一对互斥的转向按键
type Binding struct {
	Left  string
	Right string
}

var DefaultBindings = [MaxSlots]Binding{
	{Left: "KeyA", Right: "KeyS"},
	{Left: "ArrowLeft", Right: "ArrowRight"},
	{Left: "KeyQ", Right: "KeyW"},
	{Left: "KeyO", Right: "KeyP"},
	{Left: "KeyF", Right: "KeyG"},
	{Left: "KeyH", Right: "KeyJ"},
	{Left: "KeyN", Right: "KeyM"},
	{Left: "KeyZ", Right: "KeyX"},
}

var DefaultPalette = [MaxSlots]string{
	"#ff0000",
	"#0000ff",
	"#00ff00",
	"#ffff00",
	"#ff00ff",
	"#00ffff",
	"#ff8000",
	"#8000ff",
}

// Intent 玩家当前的转向意图
type Intent struct {
	Left  bool
	Right bool
}

// Player 房间内的玩家实体（服务端权威状态）
type Player struct {
	ID      string
	Name    string
	Color   string
	Binding Binding
	Slot    int

	IsHost bool
	Ready  bool
	Alive  bool

	X       float64
	Y       float64
	Heading float64

	Trail Trail
	Gap   GapState
}

func newPlayer(name, color string, slot int) *Player {
	return &Player{
		ID:      uuid.NewString(),
		Name:    name,
		Color:   color,
		Binding: DefaultBindings[slot],
		Slot:    slot,
		Alive:   true,
	}
}

// Respawn 放置到出生点并开始新的一局
func (p *Player) Respawn(s Spawn, t Tuning, rng Rand) {
	p.X, p.Y, p.Heading = s.X, s.Y, s.Heading
	p.Alive = true
	p.Trail.Reset()
	p.Gap.Randomize(t, rng)
}

// ResetHome 回到大厅时的初始状态
func (p *Player) ResetHome(t Tuning, rng Rand) {
	p.Ready = false
	p.Alive = true
	p.X, p.Y, p.Heading = 0, 0, 0
	p.Trail.Reset()
	p.Gap.Randomize(t, rng)
}
