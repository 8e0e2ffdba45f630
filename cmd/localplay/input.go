package main

import (
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"kurve/game"
)

// 终端没有按键抬起事件，按住键时依赖系统自动重复；
// 最近一次按下在 holdWindow 内即视为仍按住
const holdWindow = 180 * time.Millisecond

// keyLabel 将终端按键映射为绑定标签（与浏览器 KeyboardEvent.code 一致）
func keyLabel(k tcell.Key, r rune) string {
	switch k {
	case tcell.KeyLeft:
		return "ArrowLeft"
	case tcell.KeyRight:
		return "ArrowRight"
	case tcell.KeyRune:
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			return "Key" + strings.ToUpper(string(r))
		}
	}
	return ""
}

// keyboard 本地即时输入源，实现 game.InputSource
type keyboard struct {
	mu       sync.Mutex
	pressed  map[string]time.Time
	bindings map[string]game.Binding // 玩家 ID → 按键
	now      func() time.Time
}

func newKeyboard() *keyboard {
	return &keyboard{
		pressed:  make(map[string]time.Time),
		bindings: make(map[string]game.Binding),
		now:      time.Now,
	}
}

func (k *keyboard) bind(p *game.Player) {
	k.mu.Lock()
	k.bindings[p.ID] = p.Binding
	k.mu.Unlock()
}

func (k *keyboard) press(label string) {
	if label == "" {
		return
	}
	k.mu.Lock()
	k.pressed[label] = k.now()
	k.mu.Unlock()
}

func (k *keyboard) held(label string, now time.Time) bool {
	at, ok := k.pressed[label]
	return ok && now.Sub(at) <= holdWindow
}

func (k *keyboard) Intent(playerID string) game.Intent {
	k.mu.Lock()
	defer k.mu.Unlock()
	b, ok := k.bindings[playerID]
	if !ok {
		return game.Intent{}
	}
	now := k.now()
	return game.Intent{Left: k.held(b.Left, now), Right: k.held(b.Right, now)}
}
