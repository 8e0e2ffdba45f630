package game

// HitsTrail 判断 (x,y) 是否落在 owner 轨迹的碰撞半径内。
// self 为 true 时：轨迹少于 SelfMinPoints 直接跳过，否则忽略最近的 SelfExcludeTail 个点。
func HitsTrail(x, y float64, owner *Player, self bool, t Tuning) bool {
	pts := owner.Trail.Points()
	n := len(pts)
	if self {
		if n < t.SelfMinPoints {
			return false
		}
		n -= t.SelfExcludeTail
	}
	r2 := t.CollisionRadius * t.CollisionRadius
	for i := 0; i < n; i++ {
		dx := x - pts[i].X
		dy := y - pts[i].Y
		if dx*dx+dy*dy < r2 {
			return true
		}
	}
	return false
}

// DetectCollisions 返回本 Tick 撞上任意轨迹的存活玩家。
// 只读扫描，由调用方统一标记死亡，因此遍历顺序不影响结果。
func DetectCollisions(players []*Player, t Tuning) []*Player {
	var dead []*Player
	for _, p := range players {
		if !p.Alive {
			continue
		}
		for _, o := range players {
			if HitsTrail(p.X, p.Y, o, o == p, t) {
				dead = append(dead, p)
				break
			}
		}
	}
	return dead
}
