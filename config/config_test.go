package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("ROUNDS_TO_WIN", "3")
	t.Setenv("ARENA_WIDTH", "640")
	t.Setenv("MAX_PLAYERS", "4")
	t.Setenv("LOG_LEVEL", "INFO")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg := Load()
	if cfg.Addr != ":9999" || cfg.RoundsToWin != 3 || cfg.ArenaWidth != 640 || cfg.MaxPlayers != 4 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("log level = %q, want info", cfg.LogLevel)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
	tun := cfg.Tuning()
	if tun.RoundsToWin != 3 || tun.Width != 640 || tun.MaxPlayers != 4 {
		t.Fatalf("tuning not derived from config: %+v", tun)
	}
	if err := tun.Validate(); err != nil {
		t.Fatalf("derived tuning invalid: %v", err)
	}
}

func TestLoadIgnoresInvalid(t *testing.T) {
	t.Setenv("TICK_RATE", "fast")
	t.Setenv("ROUNDS_TO_WIN", "0")
	t.Setenv("MAX_PLAYERS", "12")
	t.Setenv("ARENA_HEIGHT", "-5")

	cfg := Load()
	def := Default()
	if cfg.TickRate != def.TickRate || cfg.RoundsToWin != def.RoundsToWin ||
		cfg.MaxPlayers != def.MaxPlayers || cfg.ArenaHeight != def.ArenaHeight {
		t.Fatalf("invalid values should fall back to defaults: %+v", cfg)
	}
}

func TestPortFallback(t *testing.T) {
	t.Setenv("ADDR", "")
	t.Setenv("PORT", "8088")
	if cfg := Load(); cfg.Addr != ":8088" {
		t.Fatalf("addr = %q, want :8088", cfg.Addr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("KURVE_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("KURVE_TEST_VALUE", "")
	os.Unsetenv("KURVE_TEST_VALUE")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := os.Getenv("KURVE_TEST_VALUE"); got != "from-file" {
		t.Fatalf("value = %q, want from-file", got)
	}
}
