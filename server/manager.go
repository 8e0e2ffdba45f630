package server

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"kurve/game"
)

const (
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength = 6
)

var ErrNoFreeCode = errors.New("could not allocate lobby code")

// LobbyInfo 供 /lobbies 列表使用
type LobbyInfo struct {
	Code    string `json:"code"`
	Phase   string `json:"phase"`
	Players int    `json:"players"`
}

// Registry 管理多个房间的生命周期：按房间码查找，房间清空时自动移除
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ctx      context.Context
	tuning   game.Tuning

	// 以下字段便于测试替换
	tickEvery      time.Duration
	countdownEvery time.Duration
	newRand        func() game.Rand
}

// NewRegistry 所有房间的 context 均派生自 ctx，取消即关闭全部房间
func NewRegistry(ctx context.Context, t game.Tuning) *Registry {
	every := time.Second / time.Duration(t.TickRate)
	return &Registry{
		sessions:       make(map[string]*Session),
		ctx:            ctx,
		tuning:         t,
		tickEvery:      every,
		countdownEvery: time.Second,
		newRand:        func() game.Rand { return nil },
	}
}

// Create 生成唯一房间码并启动房间协程
func (r *Registry) Create() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for attempt := 0; attempt < 32; attempt++ {
		code, err := generateCode(codeLength)
		if err != nil {
			return nil, err
		}
		if _, exists := r.sessions[code]; exists {
			continue
		}
		s := newSession(code, r.tuning, r.newRand(), r.tickEvery, r.countdownEvery)
		s.onClose = r.remove
		r.sessions[code] = s
		s.start(r.ctx)
		Log.Infow("lobby created", "lobby", code)
		return s, nil
	}
	return nil, ErrNoFreeCode
}

// Get 房间码不区分大小写；不存在时返回 nil
func (r *Registry) Get(code string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[strings.ToUpper(strings.TrimSpace(code))]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List 按房间码排序返回所有活跃房间
func (r *Registry) List() []LobbyInfo {
	r.mu.RLock()
	out := make([]LobbyInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.Info())
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Shutdown 取消所有房间并等待其协程退出
func (r *Registry) Shutdown() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for code, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, code)
	}
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
		<-s.Done()
	}
}

// remove 由房间在退出时回调；仅删除仍指向该房间的条目
func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.Code]; ok && cur == s {
		delete(r.sessions, s.Code)
		Log.Infow("lobby removed", "lobby", s.Code)
	}
}

func generateCode(n int) (string, error) {
	b := make([]byte, n)
	base := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b[i] = codeChars[idx.Int64()]
	}
	return string(b), nil
}
