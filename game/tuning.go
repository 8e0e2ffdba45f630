package game

import (
	"errors"
	"math"
)

// Tuning 汇集所有手感相关的经验常量，均可配置
type Tuning struct {
	TurnRate        float64 // 每 Tick 转向弧度
	Speed           float64 // 每 Tick 前进像素
	CollisionRadius float64

	SelfMinPoints   int // 自身轨迹少于该点数时不做自撞检测
	SelfExcludeTail int // 自撞检测忽略最近的点数

	GapInterval int     // 实线段基准长度（Tick）
	GapDuration int     // 缺口基准长度（Tick）
	GapVariance float64 // 间隔的随机幅度，缺口时长取其一半
	GapFloor    float64 // 随机结果不低于 base*GapFloor

	TrailSampleEvery int // 每 N 个 Tick 采样一个轨迹点

	SpawnRadius float64
	SpawnJitter float64 // 朝向扰动总幅度（±SpawnJitter/2）

	Width       float64
	Height      float64
	RoundsToWin int
	MaxPlayers  int
	TickRate    int
	Countdown   int
}

func DefaultTuning() Tuning {
	return Tuning{
		TurnRate:         3 * math.Pi / 180,
		Speed:            2,
		CollisionRadius:  6,
		SelfMinPoints:    30,
		SelfExcludeTail:  20,
		GapInterval:      80,
		GapDuration:      15,
		GapVariance:      0.3,
		GapFloor:         0.5,
		TrailSampleEvery: 2,
		SpawnRadius:      250,
		SpawnJitter:      0.5,
		Width:            1200,
		Height:           800,
		RoundsToWin:      5,
		MaxPlayers:       MaxSlots,
		TickRate:         60,
		Countdown:        3,
	}
}

// Validate 拒绝无法推进模拟的配置
func (t Tuning) Validate() error {
	switch {
	case t.Width <= 0 || t.Height <= 0:
		return errors.New("arena dimensions must be positive")
	case t.Speed <= 0:
		return errors.New("speed must be positive")
	case t.CollisionRadius <= 0:
		return errors.New("collision radius must be positive")
	case t.TickRate <= 0:
		return errors.New("tick rate must be positive")
	case t.RoundsToWin <= 0:
		return errors.New("rounds to win must be positive")
	case t.MaxPlayers < 2 || t.MaxPlayers > MaxSlots:
		return errors.New("max players must be between 2 and 8")
	case t.GapInterval <= 0 || t.GapDuration <= 0:
		return errors.New("gap timings must be positive")
	case t.TrailSampleEvery <= 0:
		return errors.New("trail sample cadence must be positive")
	case t.Countdown < 0:
		return errors.New("countdown must not be negative")
	}
	return nil
}
