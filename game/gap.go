package game

import "math"

// Rand 模拟所需的最小随机源（golang.org/x/exp/rand.*Rand 满足）
type Rand interface {
	Float64() float64
}

// Vary 在 base±base*variance 内均匀取整，且不低于 round(base*floor)
func Vary(base int, variance, floor float64, rng Rand) int {
	b := float64(base)
	lo := b - b*variance
	hi := b + b*variance
	v := int(math.Round(lo + rng.Float64()*(hi-lo)))
	if lowest := int(math.Round(b * floor)); v < lowest {
		v = lowest
	}
	return v
}

// GapState 每个玩家独立的“抬笔/落笔”节奏
type GapState struct {
	Timer    int
	InGap    bool
	Interval int
	Duration int

	// 缺口刚结束，下一个轨迹点需打上 Gap 标记
	reopened bool
}

// Randomize 重置计时并重新抽取间隔与时长
func (g *GapState) Randomize(t Tuning, rng Rand) {
	g.Timer = 0
	g.InGap = false
	g.reopened = false
	g.Interval = Vary(t.GapInterval, t.GapVariance, t.GapFloor, rng)
	g.Duration = Vary(t.GapDuration, t.GapVariance/2, t.GapFloor, rng)
}

// Advance 推进一个 Tick，返回推进后是否处于缺口中
func (g *GapState) Advance(t Tuning, rng Rand) bool {
	g.Timer++
	if !g.InGap {
		if g.Timer >= g.Interval {
			g.InGap = true
			g.Timer = 0
		}
		return g.InGap
	}
	if g.Timer >= g.Duration {
		g.Randomize(t, rng)
		g.reopened = true
	}
	return g.InGap
}

// takeReopened 读取并清除缺口结束标记
func (g *GapState) takeReopened() bool {
	r := g.reopened
	g.reopened = false
	return r
}
