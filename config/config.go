package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"kurve/game"
)

// LoadDotEnv 若存在 .env 文件则加载；已有的环境变量不会被覆盖
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Addr           string
	LogFile        string
	LogLevel       string
	StaticDir      string
	AllowedOrigins []string // 为空表示允许所有来源

	TickRate    int
	RoundsToWin int
	ArenaWidth  float64
	ArenaHeight float64
	MaxPlayers  int
}

func Default() Config {
	t := game.DefaultTuning()
	return Config{
		Addr:        ":3001",
		LogFile:     "app.log",
		LogLevel:    "debug",
		StaticDir:   "web",
		TickRate:    t.TickRate,
		RoundsToWin: t.RoundsToWin,
		ArenaWidth:  t.Width,
		ArenaHeight: t.Height,
		MaxPlayers:  t.MaxPlayers,
	}
}

// Load 以默认值为基础读取环境变量，非法取值保持默认
func Load() Config {
	cfg := Default()
	if raw := os.Getenv("ADDR"); raw != "" {
		cfg.Addr = raw
	} else if raw := os.Getenv("PORT"); raw != "" {
		cfg.Addr = ":" + raw
	}
	if raw := os.Getenv("LOG_FILE"); raw != "" {
		cfg.LogFile = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	if raw := os.Getenv("STATIC_DIR"); raw != "" {
		cfg.StaticDir = raw
	}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if raw := os.Getenv("TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TickRate = value
		}
	}
	if raw := os.Getenv("ROUNDS_TO_WIN"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RoundsToWin = value
		}
	}
	if raw := os.Getenv("ARENA_WIDTH"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.ArenaWidth = value
		}
	}
	if raw := os.Getenv("ARENA_HEIGHT"); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value > 0 {
			cfg.ArenaHeight = value
		}
	}
	if raw := os.Getenv("MAX_PLAYERS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 2 && value <= game.MaxSlots {
			cfg.MaxPlayers = value
		}
	}
	return cfg
}

// Tuning 将配置叠加到默认手感参数上
func (c Config) Tuning() game.Tuning {
	t := game.DefaultTuning()
	t.TickRate = c.TickRate
	t.RoundsToWin = c.RoundsToWin
	t.Width = c.ArenaWidth
	t.Height = c.ArenaHeight
	t.MaxPlayers = c.MaxPlayers
	return t
}
