package game

// TrailPoint 轨迹采样点；Gap 标记缺口之后的第一个点，渲染时不应与前一点连线
type TrailPoint struct {
	X   float64
	Y   float64
	Gap bool
}

// Trail 按时间顺序只追加的轨迹
type Trail struct {
	points []TrailPoint
}

func (t *Trail) Append(p TrailPoint) {
	t.points = append(t.points, p)
}

func (t *Trail) Len() int {
	return len(t.points)
}

// Points 返回只读视图，调用方不得修改
func (t *Trail) Points() []TrailPoint {
	return t.points
}

func (t *Trail) Reset() {
	t.points = nil
}
