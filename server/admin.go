package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"kurve/game"
)

// adminConfig 可在大厅阶段热更新的规则，nil 字段保持不变
type adminConfig struct {
	RoundsToWin     *int     `json:"roundsToWin,omitempty"`
	Speed           *float64 `json:"speed,omitempty"`
	TurnRate        *float64 `json:"turnRate,omitempty"`
	CollisionRadius *float64 `json:"collisionRadius,omitempty"`
}

func configOf(t game.Tuning) adminConfig {
	return adminConfig{
		RoundsToWin:     &t.RoundsToWin,
		Speed:           &t.Speed,
		TurnRate:        &t.TurnRate,
		CollisionRadius: &t.CollisionRadius,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// HandleAdminConfig 提供房间规则的读取与更新
// GET /admin/config?lobby=ABC234  返回当前配置
// POST /admin/config?lobby=ABC234 以 JSON 载荷更新部分字段，仅大厅阶段可用
func HandleAdminConfig(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := reg.Get(r.URL.Query().Get("lobby"))
		if s == nil {
			http.Error(w, "lobby not found", http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			t, err := s.Tuning()
			if err != nil {
				http.Error(w, "lobby not found", http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, configOf(t))
		case http.MethodPost:
			var body adminConfig
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			t, err := s.Configure(game.Settings{
				RoundsToWin:     body.RoundsToWin,
				Speed:           body.Speed,
				TurnRate:        body.TurnRate,
				CollisionRadius: body.CollisionRadius,
			})
			switch {
			case errors.Is(err, game.ErrInvalidPhase):
				http.Error(w, "lobby is not in the lobby phase", http.StatusConflict)
				return
			case errors.Is(err, ErrSessionClosed):
				http.Error(w, "lobby not found", http.StatusNotFound)
				return
			case err != nil:
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, configOf(t))
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

// HandleMetrics 输出所有房间（或 ?lobby= 指定房间）的运行指标
func HandleMetrics(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if code := r.URL.Query().Get("lobby"); code != "" {
			s := reg.Get(code)
			if s == nil {
				http.Error(w, "lobby not found", http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"lobby":   s.Code,
				"phase":   s.Info().Phase,
				"metrics": s.Metrics().Snapshot(),
			})
			return
		}
		out := make(map[string]any)
		for _, info := range reg.List() {
			if s := reg.Get(info.Code); s != nil {
				out[info.Code] = s.Metrics().Snapshot()
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"lobbies": out})
	}
}

// HandleLobbies 列出活跃房间
func HandleLobbies(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg.List())
	}
}
