package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kurve/config"
	"kurve/server"
)

// Kurve 入口：启动 HTTP + WebSocket 服务，并初始化房间注册表
func main() {
	var addr, envFile string
	flag.StringVar(&addr, "addr", "", "server listen address, overrides ADDR, e.g. :3001")
	flag.StringVar(&envFile, "env", ".env", "optional dotenv file")
	flag.Parse()

	if err := config.LoadDotEnv(envFile); err != nil {
		panic(err)
	}
	cfg := config.Load()
	if addr != "" {
		cfg.Addr = addr
	}
	// 使用 zap 日志库写入文件（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	tuning := cfg.Tuning()
	if err := tuning.Validate(); err != nil {
		server.Log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := server.NewRegistry(ctx, tuning)

	mux := http.NewServeMux()
	mux.Handle("/ws", server.NewWSHandler(reg, cfg.AllowedOrigins))
	// 前后端分离：将 / 映射到静态资源目录
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	// 管理与监控接口
	mux.HandleFunc("/admin/config", server.HandleAdminConfig(reg))
	mux.HandleFunc("/metrics", server.HandleMetrics(reg))
	mux.HandleFunc("/lobbies", server.HandleLobbies(reg))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		server.Log.Infof("Kurve listening on %s (tick %d/s, first to %d)", cfg.Addr, tuning.TickRate, tuning.RoundsToWin)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	server.Log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		server.Log.Warnw("http shutdown", "err", err)
	}
	reg.Shutdown()
}
