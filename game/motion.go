package game

import "math"

// Integrate 按意图推进一个 Tick 的朝向与位置。
// 新位置越界时玩家死亡，位置保留在最后一个合法点，返回 false。
func Integrate(p *Player, in Intent, t Tuning) bool {
	if in.Left {
		p.Heading -= t.TurnRate
	}
	if in.Right {
		p.Heading += t.TurnRate
	}
	nx := p.X + math.Cos(p.Heading)*t.Speed
	ny := p.Y + math.Sin(p.Heading)*t.Speed
	if nx < 0 || nx > t.Width || ny < 0 || ny > t.Height {
		p.Alive = false
		return false
	}
	p.X, p.Y = nx, ny
	return true
}
