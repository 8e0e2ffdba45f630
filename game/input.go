package game

// InputSource 为每个 Tick 提供玩家意图：
// 联网版读取缓冲的最新输入，本地版读取键盘即时状态
type InputSource interface {
	Intent(playerID string) Intent
}

// Intents 以玩家 ID 缓存最新意图（后写覆盖，无插值）
type Intents map[string]Intent

func (m Intents) Intent(playerID string) Intent {
	return m[playerID]
}
