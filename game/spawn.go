package game

import "math"

// Spawn 出生点与初始朝向
type Spawn struct {
	X       float64
	Y       float64
	Heading float64
}

// SpawnPositions 将 n 个玩家均匀分布在以 (cx,cy) 为圆心的圆上，
// 面朝圆心并带少量随机扰动，避免完全对称的开局
func SpawnPositions(n int, cx, cy float64, t Tuning, rng Rand) []Spawn {
	out := make([]Spawn, n)
	for i := range out {
		angle := float64(i) * 2 * math.Pi / float64(n)
		out[i] = Spawn{
			X:       cx + math.Cos(angle)*t.SpawnRadius,
			Y:       cy + math.Sin(angle)*t.SpawnRadius,
			Heading: angle + math.Pi + (rng.Float64()-0.5)*t.SpawnJitter,
		}
	}
	return out
}
